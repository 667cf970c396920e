package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/reception/internal/model"
	"github.com/Tiliavir/reception/internal/storage"
	"github.com/Tiliavir/reception/internal/timecalc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the queue for the current month",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a := mustApp()
	now := a.store.Now()
	file := a.fileOrCurrent("")

	entries, err := a.store.Load(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	printStatus(cmd.OutOrStdout(), file, entries, now)
	return nil
}

func printStatus(w io.Writer, file string, entries []model.Entry, now time.Time) {
	sum := storage.Summarize(entries)
	fmt.Fprintf(w, "%s (%s)\n", timecalc.MonthLabel(file), file)
	fmt.Fprintf(w, "  Visitors:   %d\n", sum.Total)
	fmt.Fprintf(w, "  Called:     %d\n", sum.Called)
	fmt.Fprintf(w, "  Not called: %d\n", sum.NotCalled)

	var pending []model.Entry
	for _, e := range entries {
		if e.Status == model.StatusPending {
			pending = append(pending, e)
		}
	}
	if len(pending) == 0 {
		fmt.Fprintln(w, "No one waiting.")
		return
	}

	// File order is arrival order; the first pending entry has waited longest.
	oldest := pending[0]
	fmt.Fprintf(w, "Waiting: %d (longest: #%s %s, %s)\n",
		len(pending), oldest.ID, oldest.Name, timecalc.WaitTime(oldest, now))
}
