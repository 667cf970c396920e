package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Tiliavir/reception/internal/config"
	"github.com/Tiliavir/reception/internal/logging"
	"github.com/Tiliavir/reception/internal/storage"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "rcpt",
	Short: "rcpt – reception desk queue and monthly visitor records",
	Long: `rcpt records visitors at a reception desk. Each month is kept in its
own CSV file (e.g. data/2025_09.csv) that opens in any spreadsheet.

Run "rcpt serve" for the desk web page, or use the subcommands directly.`,
	SilenceUsage: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
}

// app bundles what every command needs.
type app struct {
	cfg   config.Config
	log   *zap.Logger
	store *storage.Store
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	store, err := storage.New(cfg.DataDir,
		storage.WithLocation(loc),
		storage.WithAtomicWrites(cfg.Storage.AtomicWrites),
		storage.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, store: store}, nil
}

// mustApp is newApp for commands: failures print to stderr and exit 2.
func mustApp() *app {
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return a
}

// fileOrCurrent returns name, or this month's file when name is empty.
func (a *app) fileOrCurrent(name string) string {
	if name == "" {
		return a.store.CurrentFileName(a.store.Now())
	}
	return name
}
