package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/reception/internal/timecalc"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List monthly files in the data directory, newest first",
	Args:  cobra.NoArgs,
	RunE:  runFiles,
}

func runFiles(cmd *cobra.Command, args []string) error {
	a := mustApp()
	files, err := a.store.ListFiles()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintf(out, "No monthly files in %s.\n", a.store.Dir())
		return nil
	}
	for _, f := range files {
		fmt.Fprintf(out, "%-20s%s\n", f, timecalc.MonthLabel(f))
	}
	return nil
}
