package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kuitang/quicknotes/internal/api"
	"github.com/kuitang/quicknotes/internal/config"
	"github.com/kuitang/quicknotes/internal/notes"
	"github.com/kuitang/quicknotes/internal/obs"
	"github.com/kuitang/quicknotes/internal/ratelimit"
	"github.com/kuitang/quicknotes/internal/store"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var flags config.Flags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the notes HTTP API",
		Long: `Start the notes HTTP API.

Examples:
  quicknotes serve --addr :8080
  STORE_BACKEND=sqlite DATABASE_PATH=./data/notes.db quicknotes serve
  MONGODB_URI=mongodb://localhost:27017 quicknotes serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigFile = configFile
			return runServe(cmd.Context(), flags)
		},
	}
	cmd.Flags().StringVar(&flags.Addr, "addr", "", "listen address (default $LISTEN_ADDR or :8080)")
	cmd.Flags().StringVar(&flags.Backend, "backend", "", "store backend: mongo, sqlite or s3 (default $STORE_BACKEND or mongo)")
	return cmd
}

func runServe(ctx context.Context, flags config.Flags) error {
	obs.Init()
	log := obs.Pkg("main")

	cfg, err := config.LoadConfig(flags)
	if err != nil {
		return err
	}
	cfg.PrintStartupSummary(os.Stdout)

	conn, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to configure store: %w", err)
	}

	limiter := ratelimit.NewRateLimiter(cfg.RateLimit)
	defer limiter.Stop()

	handler := api.NewHandler(notes.NewService(conn), api.HealthInfo{
		Backend:              cfg.Store.Backend,
		ConnectionConfigured: cfg.HasConnectionString(),
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(handler, limiter),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.ListenAddr, "backend", cfg.Store.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
	if err := conn.Close(shutdownCtx); err != nil {
		log.Error("store close failed", "error", err)
	}
	return nil
}
