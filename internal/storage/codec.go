package storage

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Tiliavir/reception/internal/model"
)

// DateLayout is the on-disk format of the Date column.
const DateLayout = "2006-01-02 15:04:05"

// Header is the column order of every monthly file.
var Header = []string{"ID", "Date", "Name", "IDNumber", "ServiceType", "Neighborhood", "Called", "Status"}

const (
	colID = iota
	colDate
	colName
	colIDNumber
	colServiceType
	colNeighborhood
	colCalled
	colStatus
)

// headerAliases maps lower-cased header names to column indexes. The
// Portuguese names were used by files written before the rename.
var headerAliases = map[string]int{
	"id":           colID,
	"date":         colDate,
	"data":         colDate,
	"name":         colName,
	"nome":         colName,
	"idnumber":     colIDNumber,
	"cpf":          colIDNumber,
	"servicetype":  colServiceType,
	"atendimento":  colServiceType,
	"neighborhood": colNeighborhood,
	"bairro":       colNeighborhood,
	"called":       colCalled,
	"chamado":      colCalled,
	"status":       colStatus,
}

// decodeEntries parses a monthly file and also returns its header row (nil
// for an empty file). Columns are matched by header name, so reordered or
// partial files still load. Missing values fall back to Called=no,
// Status=Pending and Date=now.
func decodeEntries(r io.Reader, now time.Time, loc *time.Location) ([]model.Entry, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return []model.Entry{}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	index := headerIndex(header)

	entries := []model.Entry{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		field := func(col int) string {
			i, ok := index[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}
		entries = append(entries, model.Entry{
			ID:           field(colID),
			Date:         parseDate(field(colDate), now, loc),
			Name:         field(colName),
			IDNumber:     field(colIDNumber),
			ServiceType:  field(colServiceType),
			Neighborhood: field(colNeighborhood),
			Called:       model.IsAffirmative(field(colCalled)),
			Status:       parseStatus(field(colStatus)),
		})
	}
	return entries, header, nil
}

// headerIndex maps each known column to its position in header. When a
// column appears twice the first one wins.
func headerIndex(header []string) map[int]int {
	index := make(map[int]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		if col, ok := headerAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
			if _, dup := index[col]; !dup {
				index[col] = i
			}
		}
	}
	return index
}

// rowLayout returns, for each position of header, the column stored there,
// or -1 for unknown and duplicate columns.
func rowLayout(header []string) []int {
	layout := make([]int, len(header))
	for i := range layout {
		layout[i] = -1
	}
	for col, i := range headerIndex(header) {
		layout[i] = col
	}
	return layout
}

func parseDate(s string, now time.Time, loc *time.Location) time.Time {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return now
	}
	return t
}

func parseStatus(s string) model.Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "done", "ok":
		return model.StatusDone
	}
	return model.StatusPending
}

func encodeRow(e model.Entry) []string {
	return []string{
		e.ID,
		e.Date.Format(DateLayout),
		e.Name,
		e.IDNumber,
		e.ServiceType,
		e.Neighborhood,
		model.CalledLabel(e.Called),
		e.Status.String(),
	}
}

// encodeEntries writes the header followed by one row per entry.
func encodeEntries(w io.Writer, entries []model.Entry) error {
	return writeRows(w, entries)
}

// encodeRowsAs writes rows only, with fields placed by layout so they line
// up with an existing file's header. Columns the header lacks are dropped.
func encodeRowsAs(w io.Writer, layout []int, entries []model.Entry) error {
	cw := csv.NewWriter(w)
	for _, e := range entries {
		full := encodeRow(e)
		row := make([]string, len(layout))
		for i, col := range layout {
			if col >= 0 {
				row[i] = full[col]
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeRows(w io.Writer, entries []model.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write(encodeRow(e)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// nextID returns one more than the highest all-digit ID, or 1.
func nextID(entries []model.Entry) string {
	highest := 0
	for _, e := range entries {
		if e.ID == "" || strings.TrimLeft(e.ID, "0123456789") != "" {
			continue
		}
		n, err := strconv.Atoi(e.ID)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return strconv.Itoa(highest + 1)
}
