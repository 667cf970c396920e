package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Tiliavir/reception/internal/web"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reception web page",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a := mustApp()
	defer func() { _ = a.log.Sync() }()

	port := a.cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}

	srv, err := web.NewServer(a.store, a.log, web.Options{
		CorsAllowedOrigins: a.cfg.Server.CorsAllowedOrigins,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", port)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		a.log.Error("server stopped", zap.Error(err))
		os.Exit(2)
	}
	return nil
}
