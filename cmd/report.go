package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/reception/internal/report"
)

var (
	reportFile   string
	reportFormat string
	reportOut    string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the monthly summary report",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFile, "file", "", "Monthly file (default: current month)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json, pdf")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "Write to this file instead of stdout (required for pdf)")
}

var reportWriters = map[string]func(io.Writer, report.Report) error{
	"md":   report.WriteMarkdown,
	"csv":  report.WriteCSV,
	"json": report.WriteJSON,
	"pdf":  report.WritePDF,
}

func runReport(cmd *cobra.Command, args []string) error {
	write, ok := reportWriters[reportFormat]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown format %q (want md, csv, json or pdf)\n", reportFormat)
		os.Exit(1)
	}
	if reportFormat == "pdf" && reportOut == "" {
		fmt.Fprintln(os.Stderr, "--out is required for pdf")
		os.Exit(1)
	}

	a := mustApp()
	file := a.fileOrCurrent(reportFile)

	files, err := a.store.ListFiles()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if !slices.Contains(files, file) {
		fmt.Fprintf(os.Stderr, "File not found or invalid: %s\n", file)
		os.Exit(1)
	}

	rep, err := report.Build(a.store, file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var w io.Writer = cmd.OutOrStdout()
	if reportOut != "" {
		f, err := os.Create(reportOut)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		defer f.Close()
		w = f
	}

	if err := write(w, rep); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if reportOut != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", reportOut)
	}
	return nil
}
