// Package testutil provides helpers shared by tests that need a real store.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/tablero/internal/model"
	"github.com/Veraticus/tablero/internal/storage"
	"github.com/shopspring/decimal"
)

// SetupTestDB creates a migrated in-memory database that is closed when the
// test ends.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return store
}

// SeedRecords upserts records into store or fails the test.
func SeedRecords(t *testing.T, store *storage.SQLiteStorage, records ...model.Record) {
	t.Helper()
	if _, err := store.UpsertRecords(context.Background(), records); err != nil {
		t.Fatalf("failed to seed records: %v", err)
	}
}

// RecordBuilder assembles valid records for tests.
type RecordBuilder struct {
	t   *testing.T
	rec model.Record
}

// NewRecord starts a record dated date (YYYY-MM-DD) with a title, ARS zero
// cost and the Oficial scope.
func NewRecord(t *testing.T, date, title string) *RecordBuilder {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		t.Fatalf("bad test date %q: %v", date, err)
	}
	return &RecordBuilder{t: t, rec: model.Record{
		Date:         d,
		Title:        title,
		CostAmount:   decimal.Zero,
		CostCurrency: model.CurrencyARS,
		Scope:        model.ScopeOficial,
		SourceLabel:  "Agenda / Hoja 1",
		SyncedAt:     time.Date(2024, time.April, 1, 12, 0, 0, 0, time.UTC),
	}}
}

// Official sets the official name.
func (b *RecordBuilder) Official(name string) *RecordBuilder {
	b.rec.OfficialName = name
	return b
}

// Place sets the place.
func (b *RecordBuilder) Place(place string) *RecordBuilder {
	b.rec.Place = place
	return b
}

// Cost sets the amount and currency.
func (b *RecordBuilder) Cost(amount string, currency model.Currency) *RecordBuilder {
	b.t.Helper()
	d, err := decimal.NewFromString(amount)
	if err != nil {
		b.t.Fatalf("bad test amount %q: %v", amount, err)
	}
	b.rec.CostAmount = d
	b.rec.CostCurrency = currency
	return b
}

// Scope sets the scope.
func (b *RecordBuilder) Scope(scope model.Scope) *RecordBuilder {
	b.rec.Scope = scope
	return b
}

// Source sets the source label.
func (b *RecordBuilder) Source(label string) *RecordBuilder {
	b.rec.SourceLabel = label
	return b
}

// Expediente sets the expediente number.
func (b *RecordBuilder) Expediente(number string) *RecordBuilder {
	b.rec.ExpedienteNumber = &number
	return b
}

// Build fingerprints and returns the record.
func (b *RecordBuilder) Build() model.Record {
	rec := b.rec
	rec.Fingerprint = model.Fingerprint(&rec, "")
	return rec
}
