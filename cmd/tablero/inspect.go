package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/tablero/internal/cli"
	"github.com/Veraticus/tablero/internal/ingest"
	"github.com/Veraticus/tablero/internal/normalize"
	"github.com/spf13/cobra"
)

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <source>",
		Short: "Show how a source's sheets would be read, without writing",
		Long: `Download a source and report, for every sheet, the detected header row,
the column each field was mapped to and why rows would be dropped.
Nothing is written to the database.`,
		Args: cobra.ExactArgs(1),
		RunE: runInspect,
	}

	cmd.Flags().String("sheet", "", "only inspect sheets whose name contains this text")
	cmd.Flags().Int("records", 5, "sample records to show per sheet")

	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	sheetFilter, _ := cmd.Flags().GetString("sheet")
	sample, _ := cmd.Flags().GetInt("records")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sources, err := selectSources(cfg, args)
	if err != nil {
		return err
	}
	src := sources[0]

	logger := slog.Default()
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Sync.Timeout)
	defer cancel()

	fetcher, err := buildFetcher(ctx, cfg, sources, logger)
	if err != nil {
		return err
	}
	workbook, err := fetcher.Fetch(ctx, src)
	if err != nil {
		return err
	}

	processorCfg, err := cfg.ProcessorConfig()
	if err != nil {
		return err
	}
	processor := ingest.NewProcessor(processorCfg, nil, logger)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s: %d sheets", src.Name, len(workbook.Sheets))))

	folded := normalize.Fold(sheetFilter)
	for _, sheet := range workbook.Sheets {
		if folded != "" && !containsFolded(sheet.Name, folded) {
			continue
		}
		records, outcome := processor.NormalizeSheet(src, sheet)
		fmt.Fprintln(out, cli.RenderOutcome(&outcome))
		if sample > 0 && len(records) > 0 {
			fmt.Fprintln(out, cli.RenderRecords(records[:min(sample, len(records))]))
		}
		fmt.Fprintln(out)
	}
	return nil
}

func containsFolded(s, folded string) bool {
	return strings.Contains(normalize.Fold(s), folded)
}
