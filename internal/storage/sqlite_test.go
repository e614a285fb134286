package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/tablero/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func day(s string) time.Time {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func strPtr(s string) *string {
	return &s
}

// Helper function to create a valid record.
func makeRecord(date, title, official string) model.Record {
	rec := model.Record{
		Date:         day(date),
		Title:        title,
		OfficialName: official,
		CostAmount:   decimal.Zero,
		CostCurrency: model.CurrencyARS,
		Scope:        model.ScopeOficial,
		SourceLabel:  "Agenda / Agenda 2024",
		SyncedAt:     time.Date(2024, time.April, 1, 10, 0, 0, 0, time.UTC),
	}
	rec.Fingerprint = model.Fingerprint(&rec, "")
	return rec
}

func TestNewSQLiteStorage(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "tablero.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	assert.Equal(t, dbPath, store.Path())
	assert.NoError(t, store.Ping(context.Background()))
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("  ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestMigrate(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// running again is a no-op
	require.NoError(t, store.Migrate(ctx))

	for _, table := range []string{"records", "sync_runs"} {
		var name string
		err := store.db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, table)
	}

	for _, index := range []string{"idx_records_date", "idx_records_source", "idx_records_currency"} {
		var name string
		err := store.db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&name)
		require.NoError(t, err, index)
	}

	var estimated int
	require.NoError(t, store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pragma_table_info('records') WHERE name = 'date_estimated'").Scan(&estimated))
	assert.Equal(t, 1, estimated)
}

func TestMigrate_NewerSchema(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, "PRAGMA user_version = 99")
	require.NoError(t, err)

	err = store.Migrate(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer")
}

func TestMigrationsAreOrdered(t *testing.T) {
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version, m.Description)
	}
	assert.Equal(t, ExpectedSchemaVersion, migrations[len(migrations)-1].Version)
}

func TestValidateRecord(t *testing.T) {
	valid := makeRecord("2024-03-15", "Acto", "Ana")
	require.NoError(t, validateRecord(&valid))

	tests := []struct {
		name   string
		mutate func(*model.Record)
	}{
		{"no fingerprint", func(r *model.Record) { r.Fingerprint = "" }},
		{"no date", func(r *model.Record) { r.Date = time.Time{} }},
		{"blank title", func(r *model.Record) { r.Title = "  " }},
		{"bad currency", func(r *model.Record) { r.CostCurrency = "BRL" }},
		{"no scope", func(r *model.Record) { r.Scope = "" }},
		{"no source", func(r *model.Record) { r.SourceLabel = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			assert.ErrorIs(t, validateRecord(&r), ErrInvalidRecord)
		})
	}
}
