package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/reception/internal/model"
	"github.com/Tiliavir/reception/internal/report"
	"github.com/Tiliavir/reception/internal/timecalc"
)

var (
	listToday   bool
	listPending bool
	listFile    string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List visitors, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listToday, "today", false, "Only today's visitors")
	listCmd.Flags().BoolVar(&listPending, "pending", false, "Only visitors not yet served")
	listCmd.Flags().StringVar(&listFile, "file", "", "Monthly file (default: current month)")
}

func runList(cmd *cobra.Command, args []string) error {
	a := mustApp()
	now := a.store.Now()

	entries, err := a.store.Load(a.fileOrCurrent(listFile))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if listToday {
		entries = timecalc.OnDay(entries, now)
	}
	if listPending {
		entries = pendingOnly(entries)
	}
	timecalc.SortNewestFirst(entries)

	printList(cmd.OutOrStdout(), entries, now)
	return nil
}

func pendingOnly(entries []model.Entry) []model.Entry {
	var out []model.Entry
	for _, e := range entries {
		if e.Status == model.StatusPending {
			out = append(out, e)
		}
	}
	return out
}

// printList groups entries by date and prints them.
func printList(w io.Writer, entries []model.Entry, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No visitors found.")
		return
	}

	var currentDay string
	for _, e := range entries {
		day := e.Date.Format("2006-01-02")
		if day != currentDay {
			fmt.Fprintln(w, day)
			currentDay = day
		}

		wait := ""
		if s := timecalc.WaitTime(e, now); s != "" {
			wait = fmt.Sprintf(" (waiting %s)", s)
		}
		fmt.Fprintf(w, "  #%-4s %s  %-24s %s  %s / %s  called:%s  %s%s\n",
			e.ID, e.Date.Format("15:04"), e.Name, report.FormatIDNumber(e.IDNumber),
			e.ServiceType, e.Neighborhood, model.CalledLabel(e.Called), e.Status, wait)
	}
}
