package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/tablero/internal/api"
	"github.com/Veraticus/tablero/internal/common"
	"github.com/Veraticus/tablero/internal/ingest"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		Long: `Serve the read-only dashboard API over the record store, Prometheus
metrics and an endpoint that triggers a sync.

With --sync-interval the server also syncs every configured source
periodically. Periodic and HTTP-triggered syncs never overlap.`,
		RunE: runServe,
	}

	cmd.Flags().Duration("sync-interval", 0, "sync all sources at this interval (0 disables)")
	cmd.Flags().Bool("sync-on-start", false, "sync all sources before accepting requests")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	interval, _ := cmd.Flags().GetDuration("sync-interval")
	syncOnStart, _ := cmd.Flags().GetBool("sync-on-start")
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	logger := slog.Default()
	opts := api.Options{
		Store:       store,
		Logger:      logger,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit:   cfg.Server.RateLimit,
		RateBurst:   cfg.Server.RateBurst,
		Metrics:     cfg.Metrics.Enabled,
	}
	if len(cfg.Sources) > 0 {
		pipeline, err := buildPipeline(ctx, cfg, store, cfg.Sources, logger)
		if err != nil {
			return err
		}
		opts.Sync = func(ctx context.Context) (ingest.RunSummary, error) {
			summary := pipeline.Run(ctx, cfg.Sources)
			return summary, nil
		}
	}
	server := api.New(opts)

	if syncOnStart {
		runScheduledSync(ctx, server)
	}
	if interval > 0 {
		go syncEvery(ctx, server, interval)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Syncs run inside POST /api/sync and can take minutes.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("Server started", "addr", srv.Addr, "metrics", cfg.Metrics.Enabled, "sources", len(cfg.Sources))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		slog.Info("Server stopped gracefully")
	}

	return nil
}

func syncEvery(ctx context.Context, server *api.Server, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runScheduledSync(ctx, server)
		}
	}
}

func runScheduledSync(ctx context.Context, server *api.Server) {
	summary, err := server.TriggerSync(ctx)
	switch {
	case errors.Is(err, common.ErrSyncInProgress):
		slog.Info("Skipping scheduled sync; another sync is running")
	case err != nil:
		slog.Error("Scheduled sync failed", "error", err)
	default:
		slog.Info("Scheduled sync finished",
			"written", summary.Written(),
			"failed_sources", summary.Failures())
	}
}
