package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/uxray-ai/uxray/internal/api"
	"github.com/uxray-ai/uxray/internal/app"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve exposes the pipeline over HTTP: submit analyses, fetch
results, inspect circuit breakers, stream pipeline events and scrape
Prometheus metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "",
		"listen address (default from config, 127.0.0.1:8765)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = application.Close() }()

	addr := serveAddr
	if addr == "" {
		addr = cfg.API.Addr
	}

	server := api.NewServer(
		application.Orchestrator,
		application.Store,
		application.Breakers,
		application.Bus,
		application.Metrics,
		logger,
		api.WithAllowedOrigins(cfg.API.AllowedOrigins),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(ctx, addr)
	})
	return g.Wait()
}
