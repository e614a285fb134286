package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/tablero/internal/cli"
	"github.com/spf13/cobra"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [source...]",
		Short: "Ingest configured spreadsheets into the record store",
		Long: `Download every configured source (or only the named ones), detect the
header of each sheet, normalize its rows and upsert the resulting records.

Re-running a sync is safe: records are keyed by a fingerprint of their
content, so unchanged rows overwrite themselves instead of duplicating.`,
		RunE: runSync,
	}

	cmd.Flags().Bool("no-progress", false, "disable the progress bar")

	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sources, err := selectSources(cfg, args)
	if err != nil {
		return err
	}

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Records already written are kept; run 'tablero sync' again to finish.")
	ctx := interrupts.HandleInterrupts(cmd.Context())

	store, err := initStorage(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	logger := slog.Default()
	pipeline, err := buildPipeline(ctx, cfg, store, sources, logger)
	if err != nil {
		return err
	}
	if !noProgress {
		pipeline.OnProgress(cli.NewSyncProgress(cmd.ErrOrStderr()).Observe)
	}

	slog.Info("Starting sync", "sources", len(sources), "database", cfg.Database.Path)
	summary := pipeline.Run(ctx, sources)

	if _, err := fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSyncSummary(&summary)); err != nil {
		slog.Warn("Failed to write sync summary", "error", err)
	}

	if interrupts.WasInterrupted() {
		return errors.New("sync interrupted")
	}
	if summary.Failures() == len(summary.Sources) {
		return fmt.Errorf("all %d sources failed", len(summary.Sources))
	}
	return nil
}
