package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/reception/internal/model"
)

var callFile string

var callCmd = &cobra.Command{
	Use:   "call <id>",
	Short: "Toggle whether a visitor has been called",
	Args:  cobra.ExactArgs(1),
	RunE:  runCall,
}

func init() {
	callCmd.Flags().StringVar(&callFile, "file", "", "Monthly file (default: current month)")
}

func runCall(cmd *cobra.Command, args []string) error {
	id := args[0]
	a := mustApp()
	file := a.fileOrCurrent(callFile)

	entry, err := findEntry(a, file, id)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if entry == nil {
		fmt.Fprintf(os.Stderr, "Visitor #%s not found in %s.\n", id, file)
		os.Exit(1)
	}

	// The store flips relative to the state we assert, so pass what we just read.
	if _, err := a.store.ToggleCalled(id, model.CalledLabel(entry.Called), file); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Visitor #%s (%s) called: %s\n", id, entry.Name, model.CalledLabel(!entry.Called))
	return nil
}

// findEntry returns the first entry with id, or nil.
func findEntry(a *app, file, id string) (*model.Entry, error) {
	entries, err := a.store.Load(file)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
	}
	return nil, nil
}
