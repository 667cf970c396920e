package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/reception/internal/model"
)

var doneFile string

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a visitor as served",
	Args:  cobra.ExactArgs(1),
	RunE:  runDone,
}

func init() {
	doneCmd.Flags().StringVar(&doneFile, "file", "", "Monthly file (default: current month)")
}

func runDone(cmd *cobra.Command, args []string) error {
	id := args[0]
	a := mustApp()
	file := a.fileOrCurrent(doneFile)

	entry, err := findEntry(a, file, id)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if entry == nil {
		fmt.Fprintf(os.Stderr, "Visitor #%s not found in %s.\n", id, file)
		os.Exit(1)
	}
	if entry.Status == model.StatusDone {
		fmt.Fprintf(cmd.OutOrStdout(), "Visitor #%s (%s) was already served.\n", id, entry.Name)
		return nil
	}

	if _, err := a.store.MarkDone(id, file); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	waited := int64(a.store.Now().Sub(entry.Date).Seconds())
	fmt.Fprintf(cmd.OutOrStdout(), "Served visitor #%s (%s). Waited: %s\n",
		id, entry.Name, formatElapsed(waited))
	return nil
}

func formatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
