package main

import (
	"encoding/json"
	"fmt"

	"github.com/Veraticus/tablero/internal/cli"
	"github.com/spf13/cobra"
)

func recordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List stored records",
		Long: `List stored records newest first. Dates marked with * were estimated from
the sheet name because the row had no usable date.`,
		RunE: runRecords,
	}

	addFilterFlags(cmd)
	cmd.Flags().Int("limit", 50, "maximum records to show")
	cmd.Flags().Int("offset", 0, "records to skip")

	return cmd
}

func runRecords(cmd *cobra.Command, _ []string) error {
	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}
	filter.Limit, _ = cmd.Flags().GetInt("limit")
	filter.Offset, _ = cmd.Flags().GetInt("offset")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := initStorage(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.ListRecords(ctx, filter)
	if err != nil {
		return err
	}
	total, err := store.CountRecords(ctx, filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No records match"))
		return nil
	}
	fmt.Fprintln(out, cli.RenderRecords(records))
	fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("%d-%d of %d", filter.Offset+1, filter.Offset+len(records), total)))
	return nil
}

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show totals per currency, scope, month and official",
		RunE:  runSummary,
	}

	addFilterFlags(cmd)

	return cmd
}

func runSummary(cmd *cobra.Command, _ []string) error {
	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := initStorage(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	summary, err := store.SummarizeRecords(ctx, filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	fmt.Fprintln(out, cli.RenderSummary(summary))
	return nil
}

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent sync runs",
		RunE:  runRuns,
	}

	cmd.Flags().Int("limit", 20, "maximum runs to show")

	return cmd
}

func runRuns(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := initStorage(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListSyncRuns(ctx, limit)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		status := cli.SuccessStyle.Render(cli.SuccessIcon)
		if !run.Succeeded() {
			status = cli.ErrorStyle.Render(cli.ErrorIcon + " " + run.Error)
		}
		rows = append(rows, []string{
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.Source,
			fmt.Sprintf("%d/%d/%d", run.SheetsProcessed, run.SheetsSkipped, run.SheetsFailed),
			fmt.Sprint(run.RowsDropped),
			fmt.Sprint(run.RecordsWritten),
			status,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable(
		[]string{"Started", "Source", "Sheets ok/skip/fail", "Dropped", "Written", "Status"}, rows))
	return nil
}
