// Package report renders the monthly visitor report in the formats offered
// by the CLI and the web report page.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Tiliavir/reception/internal/model"
	"github.com/Tiliavir/reception/internal/storage"
	"github.com/Tiliavir/reception/internal/timecalc"
)

// Report is one monthly file with its summary.
type Report struct {
	File      string        `json:"file"`
	Month     string        `json:"month"`
	Generated time.Time     `json:"generated"`
	Summary   model.Summary `json:"summary"`
	Entries   []model.Entry `json:"entries"`
}

// New builds a Report from entries already loaded from file.
func New(file string, entries []model.Entry, generated time.Time) Report {
	return Report{
		File:      file,
		Month:     timecalc.MonthLabel(file),
		Generated: generated,
		Summary:   storage.Summarize(entries),
		Entries:   entries,
	}
}

// Build loads file from the store and wraps it in a Report.
func Build(s *storage.Store, file string) (Report, error) {
	entries, err := s.Load(file)
	if err != nil {
		return Report{}, err
	}
	return New(file, entries, s.Now()), nil
}

// FormatIDNumber shows an 11-digit ID number as XXX.XXX.XXX-XX. Other
// values are returned as given.
func FormatIDNumber(s string) string {
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			if digits.Len() == 11 {
				break
			}
		}
	}
	d := digits.String()
	if len(d) != 11 {
		return s
	}
	return d[:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:]
}

// Filename returns a download name for the report in the given extension.
func (r Report) Filename(ext string) string {
	stem := strings.TrimSuffix(r.File, storage.FileExt)
	if stem == "" {
		stem = "report"
	}
	return "report_" + stem + "." + ext
}

// WriteCSV writes the summary followed by the entry table.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"Reception report", r.Month},
		{"Total", fmt.Sprint(r.Summary.Total)},
		{"Called", fmt.Sprint(r.Summary.Called)},
		{"Not called", fmt.Sprint(r.Summary.NotCalled)},
		{},
		storage.Header,
	}
	for _, e := range r.Entries {
		rows = append(rows, []string{
			e.ID,
			e.Date.Format(storage.DateLayout),
			e.Name,
			FormatIDNumber(e.IDNumber),
			e.ServiceType,
			e.Neighborhood,
			model.CalledLabel(e.Called),
			e.Status.String(),
		})
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing csv report: %w", err)
	}
	return nil
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonReport(r)); err != nil {
		return fmt.Errorf("writing json report: %w", err)
	}
	return nil
}

type jsonEntry struct {
	model.Entry
	Date   string `json:"date"`
	Called string `json:"called"`
	Status string `json:"status"`
}

func jsonReport(r Report) any {
	entries := make([]jsonEntry, 0, len(r.Entries))
	for _, e := range r.Entries {
		entries = append(entries, jsonEntry{
			Entry:  e,
			Date:   e.Date.Format(storage.DateLayout),
			Called: model.CalledLabel(e.Called),
			Status: e.Status.String(),
		})
	}
	return struct {
		File      string        `json:"file"`
		Month     string        `json:"month"`
		Generated string        `json:"generated"`
		Summary   model.Summary `json:"summary"`
		Entries   []jsonEntry   `json:"entries"`
	}{r.File, r.Month, r.Generated.Format(time.RFC3339), r.Summary, entries}
}

// WriteMarkdown writes a plain-text summary and table for the terminal.
func WriteMarkdown(w io.Writer, r Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Reception %s (%s)\n", r.Month, r.File)
	b.WriteString("--------------------------------\n")
	fmt.Fprintf(&b, "%-20s%d\n", "Total", r.Summary.Total)
	fmt.Fprintf(&b, "%-20s%d\n", "Called", r.Summary.Called)
	fmt.Fprintf(&b, "%-20s%d\n", "Not called", r.Summary.NotCalled)
	b.WriteString("--------------------------------\n")
	if len(r.Entries) > 0 {
		b.WriteString("\n| ID | Date | Name | ID number | Service | Neighborhood | Called | Status |\n")
		b.WriteString("|---|---|---|---|---|---|---|---|\n")
		for _, e := range r.Entries {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
				e.ID, e.Date.Format(storage.DateLayout), mdEscape(e.Name),
				FormatIDNumber(e.IDNumber), mdEscape(e.ServiceType), mdEscape(e.Neighborhood),
				model.CalledLabel(e.Called), e.Status)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func mdEscape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
