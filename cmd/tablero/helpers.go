package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/tablero/internal/common"
	"github.com/Veraticus/tablero/internal/config"
	"github.com/Veraticus/tablero/internal/ingest"
	"github.com/Veraticus/tablero/internal/model"
	"github.com/Veraticus/tablero/internal/service"
	"github.com/Veraticus/tablero/internal/sheets"
	"github.com/Veraticus/tablero/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// loadConfig validates the configuration assembled by initConfig.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("Configuration is invalid; check config.yaml", err)
	}
	return cfg, nil
}

// initStorage opens the database and brings its schema up to date.
func initStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// buildFetcher registers a reader for every source kind in use. Google
// clients are only created when a sheets or drive source is configured.
func buildFetcher(ctx context.Context, cfg *config.Config, sources []ingest.SourceConfig, logger *slog.Logger) (*ingest.MultiFetcher, error) {
	fetcher := ingest.NewMultiFetcher()
	fetcher.Register(ingest.KindFile, ingest.NewFileFetcher())

	kinds := make(map[ingest.SourceKind]bool)
	for _, src := range sources {
		kinds[src.Kind] = true
	}

	if kinds[ingest.KindSheets] {
		reader, err := sheets.NewReader(ctx, cfg.Google, logger)
		if err != nil {
			return nil, common.NewUserError("Could not connect to Google Sheets; run 'tablero auth' or set google.service_account_path", err)
		}
		fetcher.Register(ingest.KindSheets, reader)
	}
	if kinds[ingest.KindDrive] {
		reader, err := sheets.NewDriveReader(ctx, cfg.Google, logger)
		if err != nil {
			return nil, common.NewUserError("Could not connect to Google Drive; run 'tablero auth' or set google.service_account_path", err)
		}
		fetcher.Register(ingest.KindDrive, reader)
	}
	return fetcher, nil
}

// buildPipeline wires fetchers, the processor and the store together.
func buildPipeline(ctx context.Context, cfg *config.Config, store service.Storage, sources []ingest.SourceConfig, logger *slog.Logger) (*ingest.Pipeline, error) {
	fetcher, err := buildFetcher(ctx, cfg, sources, logger)
	if err != nil {
		return nil, err
	}
	processorCfg, err := cfg.ProcessorConfig()
	if err != nil {
		return nil, err
	}

	processor := ingest.NewProcessor(processorCfg, ingest.NewUpserter(store, logger), logger)
	return ingest.NewPipeline(fetcher, processor, store, cfg.PipelineConfig(), logger), nil
}

// selectSources returns the named sources, or all of them when names is
// empty.
func selectSources(cfg *config.Config, names []string) ([]ingest.SourceConfig, error) {
	if len(cfg.Sources) == 0 {
		return nil, common.NewUserError("No sources configured; add a sources list to config.yaml", common.ErrNoSources)
	}
	if len(names) == 0 {
		return cfg.Sources, nil
	}

	selected := make([]ingest.SourceConfig, 0, len(names))
	for _, name := range names {
		src, ok := cfg.Source(name)
		if !ok {
			return nil, common.NewUserError(fmt.Sprintf("Unknown source %q", name), common.ErrNotFound)
		}
		selected = append(selected, src)
	}
	return selected, nil
}

// addFilterFlags registers the record filter flags shared by records and
// summary.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "only records on or after this date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "only records on or before this date (YYYY-MM-DD)")
	cmd.Flags().String("scope", "", "filter by scope (Nacional, Internacional, Oficial, Gestión)")
	cmd.Flags().String("official", "", "filter by official name")
	cmd.Flags().String("currency", "", "filter by currency (ARS, USD, EUR)")
	cmd.Flags().StringP("query", "q", "", "free text search over title, place, official, institution and expediente")
	cmd.Flags().Bool("json", false, "print JSON instead of a table")
}

func filterFromFlags(cmd *cobra.Command) (service.RecordFilter, error) {
	var f service.RecordFilter
	flags := cmd.Flags()

	for _, p := range []struct {
		dst  **time.Time
		name string
	}{
		{&f.From, "from"},
		{&f.To, "to"},
	} {
		raw, _ := flags.GetString(p.name)
		if raw == "" {
			continue
		}
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return f, common.NewUserError(fmt.Sprintf("--%s must be YYYY-MM-DD", p.name), err)
		}
		*p.dst = &d
	}

	if raw, _ := flags.GetString("scope"); raw != "" {
		scope, err := model.ParseScope(raw)
		if err != nil {
			return f, common.NewUserError("Unknown --scope", err)
		}
		f.Scope = scope
	}
	if raw, _ := flags.GetString("currency"); raw != "" {
		f.Currency = model.Currency(strings.ToUpper(raw))
		if !f.Currency.IsValid() {
			return f, common.NewUserError(fmt.Sprintf("Unknown --currency %q", raw), common.ErrInvalidConfig)
		}
	}
	f.Official, _ = flags.GetString("official")
	f.Query, _ = flags.GetString("query")
	return f, nil
}
