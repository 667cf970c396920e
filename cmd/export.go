package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/reception/internal/model"
	"github.com/Tiliavir/reception/internal/storage"
	"github.com/Tiliavir/reception/internal/timecalc"
)

var (
	exportFormat string
	exportFrom   string
	exportTo     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export visitors of one or more months to stdout",
	Long: `Export writes every visitor of the selected months to stdout, oldest
month first. --from and --to take YYYY-MM and default to the current month.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "First month (YYYY-MM)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Last month (YYYY-MM); defaults to --from or the current month")
}

// monthEntries is one monthly file's entries.
type monthEntries struct {
	File    string
	Entries []model.Entry
}

func runExport(cmd *cobra.Command, args []string) error {
	a := mustApp()
	now := a.store.Now()

	from, to, err := monthRange(exportFrom, exportTo, now)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	files, err := a.store.ListFiles()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var months []monthEntries
	// ListFiles is newest first; export oldest first.
	for i := len(files) - 1; i >= 0; i-- {
		if !inMonthRange(files[i], from, to) {
			continue
		}
		entries, err := a.store.Load(files[i])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		months = append(months, monthEntries{File: files[i], Entries: entries})
	}

	out := cmd.OutOrStdout()
	switch exportFormat {
	case "json":
		if err := writeExportJSON(out, months); err != nil {
			fmt.Fprintln(os.Stderr, "error encoding JSON:", err)
			os.Exit(2)
		}
	default: // csv
		if err := writeExportCSV(out, months); err != nil {
			fmt.Fprintln(os.Stderr, "error writing CSV:", err)
			os.Exit(2)
		}
	}
	return nil
}

// monthRange parses the --from/--to flags into first-of-month times.
func monthRange(fromStr, toStr string, now time.Time) (from, to time.Time, err error) {
	cur := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if toStr != "" && fromStr == "" {
		return from, to, fmt.Errorf("--from is required when --to is specified")
	}
	from, to = cur, cur
	if fromStr != "" {
		if from, err = time.Parse("2006-01", fromStr); err != nil {
			return from, to, fmt.Errorf("invalid --from value %q: %w", fromStr, err)
		}
		to = from
	}
	if toStr != "" {
		if to, err = time.Parse("2006-01", toStr); err != nil {
			return from, to, fmt.Errorf("invalid --to value %q: %w", toStr, err)
		}
	}
	if to.Before(from) {
		return from, to, fmt.Errorf("--to %s is before --from %s", to.Format("2006-01"), from.Format("2006-01"))
	}
	return from, to, nil
}

func inMonthRange(file string, from, to time.Time) bool {
	y, m, ok := timecalc.FileMonth(file)
	if !ok {
		return false
	}
	t := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return !t.Before(from) && !t.After(to)
}

func writeExportCSV(w io.Writer, months []monthEntries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"Month"}, storage.Header...)); err != nil {
		return err
	}
	for _, me := range months {
		month := timecalc.MonthLabel(me.File)
		for _, e := range me.Entries {
			if err := cw.Write([]string{
				month,
				e.ID,
				e.Date.Format(storage.DateLayout),
				e.Name,
				e.IDNumber,
				e.ServiceType,
				e.Neighborhood,
				model.CalledLabel(e.Called),
				e.Status.String(),
			}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

type exportRecord struct {
	Month        string `json:"month"`
	ID           string `json:"id"`
	Date         string `json:"date"`
	Name         string `json:"name"`
	IDNumber     string `json:"id_number"`
	ServiceType  string `json:"service_type"`
	Neighborhood string `json:"neighborhood"`
	Called       string `json:"called"`
	Status       string `json:"status"`
}

func writeExportJSON(w io.Writer, months []monthEntries) error {
	records := []exportRecord{}
	for _, me := range months {
		month := timecalc.MonthLabel(me.File)
		for _, e := range me.Entries {
			records = append(records, exportRecord{
				Month:        month,
				ID:           e.ID,
				Date:         e.Date.Format(storage.DateLayout),
				Name:         e.Name,
				IDNumber:     e.IDNumber,
				ServiceType:  e.ServiceType,
				Neighborhood: e.Neighborhood,
				Called:       model.CalledLabel(e.Called),
				Status:       e.Status.String(),
			})
		}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
