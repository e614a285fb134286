package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS records (
				fingerprint TEXT PRIMARY KEY,
				date TEXT NOT NULL,
				title TEXT NOT NULL,
				place TEXT NOT NULL DEFAULT '',
				official_name TEXT NOT NULL DEFAULT '',
				cost_amount TEXT NOT NULL DEFAULT '0',
				cost_currency TEXT NOT NULL DEFAULT 'ARS',
				expediente_number TEXT,
				institution TEXT,
				scope TEXT NOT NULL,
				source_label TEXT NOT NULL,
				row_index INTEGER NOT NULL DEFAULT 0,
				date_estimated INTEGER NOT NULL DEFAULT 0,
				synced_at DATETIME NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX idx_records_date ON records(date)`,
			`CREATE INDEX idx_records_scope ON records(scope)`,
			`CREATE INDEX idx_records_official ON records(official_name)`,
			`CREATE INDEX idx_records_source ON records(source_label)`,
			`CREATE INDEX idx_records_currency ON records(cost_currency)`,
		),
	},
	{
		Version:     2,
		Description: "Add sync run history",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS sync_runs (
				id TEXT PRIMARY KEY,
				source TEXT NOT NULL,
				started_at DATETIME NOT NULL,
				finished_at DATETIME NOT NULL,
				sheets_processed INTEGER NOT NULL DEFAULT 0,
				sheets_skipped INTEGER NOT NULL DEFAULT 0,
				sheets_failed INTEGER NOT NULL DEFAULT 0,
				rows_dropped INTEGER NOT NULL DEFAULT 0,
				records_written INTEGER NOT NULL DEFAULT 0,
				error TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX idx_sync_runs_started ON sync_runs(started_at)`,
		),
	},
}

func execAll(queries ...string) func(*sql.Tx) error {
	return func(tx *sql.Tx) error {
		for _, query := range queries {
			if _, err := tx.Exec(query); err != nil {
				return fmt.Errorf("failed to execute query: %w", err)
			}
		}
		return nil
	}
}

// SchemaVersion returns the current PRAGMA user_version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if currentVersion > ExpectedSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than this binary supports (%d)", currentVersion, ExpectedSchemaVersion)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
