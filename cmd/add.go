package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/reception/internal/model"
)

var (
	addIDNumber     string
	addService      string
	addNeighborhood string
)

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Check in a visitor",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addIDNumber, "id-number", "", "Visitor's ID number")
	addCmd.Flags().StringVar(&addService, "service", "", "Requested service")
	addCmd.Flags().StringVar(&addNeighborhood, "neighborhood", "", "Visitor's neighborhood")
	_ = addCmd.MarkFlagRequired("id-number")
	_ = addCmd.MarkFlagRequired("service")
	_ = addCmd.MarkFlagRequired("neighborhood")
}

func runAdd(cmd *cobra.Command, args []string) error {
	ne := model.NewEntry{
		Name:         strings.TrimSpace(args[0]),
		IDNumber:     strings.TrimSpace(addIDNumber),
		ServiceType:  strings.TrimSpace(addService),
		Neighborhood: strings.TrimSpace(addNeighborhood),
	}
	if ne.Name == "" || ne.IDNumber == "" || ne.ServiceType == "" || ne.Neighborhood == "" {
		fmt.Fprintln(os.Stderr, "All fields are required.")
		os.Exit(1)
	}

	a := mustApp()
	file := a.fileOrCurrent("")
	entry, err := a.store.Append(file, ne)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Checked in %q as #%s at %s (%s)\n",
		entry.Name, entry.ID, entry.Date.Format("15:04:05"), file)
	return nil
}
