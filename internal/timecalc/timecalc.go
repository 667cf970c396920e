package timecalc

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Tiliavir/reception/internal/model"
)

// UnknownMonth is the report label for files whose name carries no month.
const UnknownMonth = "unknown date"

var monthPattern = regexp.MustCompile(`(\d{4})[-_](\d{2})`)

// FileMonth extracts the year and month from a file name like "2025_09.csv".
func FileMonth(name string) (year int, month time.Month, ok bool) {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	m := monthPattern.FindStringSubmatch(stem)
	if m == nil {
		return 0, 0, false
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	if mo < 1 || mo > 12 {
		return 0, 0, false
	}
	return y, time.Month(mo), true
}

// MonthLabel returns "MM-YYYY" for a monthly file name, or UnknownMonth.
func MonthLabel(name string) string {
	y, m, ok := FileMonth(name)
	if !ok {
		return UnknownMonth
	}
	return fmt.Sprintf("%02d-%d", int(m), y)
}

// FormatDuration formats seconds as a human-readable string like "1h 40m" or "45m" or "30s".
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}

// WaitTime returns how long a pending visitor has been waiting, formatted.
// Served visitors have no wait time.
func WaitTime(e model.Entry, now time.Time) string {
	if e.Status == model.StatusDone {
		return ""
	}
	return FormatDuration(int64(now.Sub(e.Date).Seconds()))
}

// SortNewestFirst orders entries by Date, most recent first. Entries with
// equal dates keep their file order.
func SortNewestFirst(entries []model.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59 of the same day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// OnDay keeps the entries created on the calendar day of t.
func OnDay(entries []model.Entry, t time.Time) []model.Entry {
	out := []model.Entry{}
	for _, e := range entries {
		if SameDay(e.Date.In(t.Location()), t) {
			out = append(out, e)
		}
	}
	return out
}
