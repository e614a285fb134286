package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/tablero/internal/model"
)

// DefaultSyncRunLimit caps ListSyncRuns when no limit is given.
const DefaultSyncRunLimit = 50

// SaveSyncRun records the outcome of syncing one source.
func (s *SQLiteStorage) SaveSyncRun(ctx context.Context, run *model.SyncRun) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSyncRun(run); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (
			id, source, started_at, finished_at, sheets_processed, sheets_skipped,
			sheets_failed, rows_dropped, records_written, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Source,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
		run.SheetsProcessed,
		run.SheetsSkipped,
		run.SheetsFailed,
		run.RowsDropped,
		run.RecordsWritten,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save sync run: %w", err)
	}
	return nil
}

// ListSyncRuns returns the most recent runs first.
func (s *SQLiteStorage) ListSyncRuns(ctx context.Context, limit int) ([]model.SyncRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSyncRunLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, started_at, finished_at, sheets_processed, sheets_skipped,
			sheets_failed, rows_dropped, records_written, error
		FROM sync_runs
		ORDER BY started_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.SyncRun
	for rows.Next() {
		var run model.SyncRun
		if err := rows.Scan(
			&run.ID,
			&run.Source,
			&run.StartedAt,
			&run.FinishedAt,
			&run.SheetsProcessed,
			&run.SheetsSkipped,
			&run.SheetsFailed,
			&run.RowsDropped,
			&run.RecordsWritten,
			&run.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
