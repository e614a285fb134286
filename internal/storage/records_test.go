package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/tablero/internal/common"
	"github.com/Veraticus/tablero/internal/model"
	"github.com/Veraticus/tablero/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, store *SQLiteStorage) []model.Record {
	t.Helper()

	a := makeRecord("2024-03-15", "Cumbre regional", "Ana Pérez")
	a.CostAmount = decimal.RequireFromString("50000.00")
	a.Place = "Córdoba"
	a.Scope = model.ScopeNacional
	a.ExpedienteNumber = strPtr("EX-2024-1")

	b := makeRecord("2024-03-20", "Visita oficial", "Ana Pérez")
	b.CostAmount = decimal.RequireFromString("1200.50")
	b.CostCurrency = model.CurrencyUSD
	b.Scope = model.ScopeInternacional
	b.Institution = strPtr("Cancillería")

	c := makeRecord("2024-04-02", "Reunión de gabinete", "Juan Gómez")
	c.CostAmount = decimal.RequireFromString("0.10")

	d := makeRecord("2024-04-05", "Acto 50% aniversario", "")
	d.CostAmount = decimal.RequireFromString("0.20")

	records := []model.Record{a, b, c, d}
	n, err := store.UpsertRecords(context.Background(), records)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	return records
}

func TestUpsertRecords_RoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	records := seed(t, store)

	got, err := store.GetRecord(context.Background(), records[0].Fingerprint)
	require.NoError(t, err)

	want := records[0]
	assert.Equal(t, want.Fingerprint, got.Fingerprint)
	assert.True(t, want.Date.Equal(got.Date))
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Place, got.Place)
	assert.Equal(t, want.OfficialName, got.OfficialName)
	assert.True(t, want.CostAmount.Equal(got.CostAmount))
	assert.Equal(t, want.CostCurrency, got.CostCurrency)
	assert.Equal(t, want.Scope, got.Scope)
	assert.Equal(t, want.SourceLabel, got.SourceLabel)
	require.NotNil(t, got.ExpedienteNumber)
	assert.Equal(t, "EX-2024-1", *got.ExpedienteNumber)
	assert.Nil(t, got.Institution)
	assert.True(t, want.SyncedAt.Equal(got.SyncedAt))
}

func TestUpsertRecords_OverwritesByFingerprint(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	records := seed(t, store)

	changed := records[0]
	changed.CostAmount = decimal.RequireFromString("75000")
	changed.DateEstimated = true
	n, err := store.UpsertRecords(ctx, []model.Record{changed})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := store.CountRecords(ctx, service.RecordFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	got, err := store.GetRecord(ctx, changed.Fingerprint)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(75000).Equal(got.CostAmount))
	assert.True(t, got.DateEstimated)
}

func TestUpsertRecords_Invalid(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	bad := makeRecord("2024-03-15", "", "Ana")
	_, err := store.UpsertRecords(ctx, []model.Record{bad})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = store.UpsertRecords(ctx, nil)
	assert.ErrorIs(t, err, ErrNilParameter)

	n, err := store.UpsertRecords(ctx, []model.Record{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetRecord_NotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.GetRecord(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListRecords_Filters(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	seed(t, store)
	ctx := context.Background()

	from := day("2024-03-18")
	to := day("2024-04-02")

	tests := []struct {
		name   string
		filter service.RecordFilter
		titles []string
	}{
		{
			name:   "all newest first",
			filter: service.RecordFilter{},
			titles: []string{"Acto 50% aniversario", "Reunión de gabinete", "Visita oficial", "Cumbre regional"},
		},
		{
			name:   "date range inclusive",
			filter: service.RecordFilter{From: &from, To: &to},
			titles: []string{"Reunión de gabinete", "Visita oficial"},
		},
		{
			name:   "scope",
			filter: service.RecordFilter{Scope: model.ScopeInternacional},
			titles: []string{"Visita oficial"},
		},
		{
			name:   "official ignores case",
			filter: service.RecordFilter{Official: "juan gómez"},
			titles: []string{"Reunión de gabinete"},
		},
		{
			name:   "currency",
			filter: service.RecordFilter{Currency: model.CurrencyUSD},
			titles: []string{"Visita oficial"},
		},
		{
			name:   "free text over place",
			filter: service.RecordFilter{Query: "córdoba"},
			titles: []string{"Cumbre regional"},
		},
		{
			name:   "free text over institution",
			filter: service.RecordFilter{Query: "Cancill"},
			titles: []string{"Visita oficial"},
		},
		{
			name:   "like wildcards are literal",
			filter: service.RecordFilter{Query: "50%"},
			titles: []string{"Acto 50% aniversario"},
		},
		{
			name:   "pagination",
			filter: service.RecordFilter{Limit: 2, Offset: 1},
			titles: []string{"Reunión de gabinete", "Visita oficial"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := store.ListRecords(ctx, tt.filter)
			require.NoError(t, err)

			titles := make([]string, len(records))
			for i, r := range records {
				titles[i] = r.Title
			}
			assert.Equal(t, tt.titles, titles)
		})
	}
}

func TestListRecords_InvalidFilter(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	from := day("2024-04-01")
	to := day("2024-03-01")
	_, err := store.ListRecords(ctx, service.RecordFilter{From: &from, To: &to})
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = store.ListRecords(ctx, service.RecordFilter{Currency: "BRL"})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = store.CountRecords(ctx, service.RecordFilter{Offset: -1})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestCountRecords(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	seed(t, store)

	count, err := store.CountRecords(context.Background(), service.RecordFilter{Official: "Ana Pérez", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, count, "pagination does not affect counts")
}

func TestSummarizeRecords(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	seed(t, store)

	summary, err := store.SummarizeRecords(context.Background(), service.RecordFilter{})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.RecordCount)

	require.Len(t, summary.ByCurrency, 2)
	assert.Equal(t, "ARS", summary.ByCurrency[0].Key)
	assert.Equal(t, 3, summary.ByCurrency[0].Count)
	assert.True(t, decimal.RequireFromString("50000.30").Equal(summary.ByCurrency[0].Amount), "decimal sums keep cents exact")
	assert.Equal(t, "USD", summary.ByCurrency[1].Key)

	months := make([]string, len(summary.ByMonth))
	for i, m := range summary.ByMonth {
		months[i] = m.Key + " " + string(m.Currency)
	}
	assert.Equal(t, []string{"2024-03 ARS", "2024-03 USD", "2024-04 ARS"}, months)

	// Ana has one record per currency, so every official total counts one.
	require.Len(t, summary.ByOfficial, 3)
	assert.Equal(t, "Ana Pérez", summary.ByOfficial[0].Key)
	assert.Equal(t, model.CurrencyARS, summary.ByOfficial[0].Currency)
	assert.Equal(t, "Juan Gómez", summary.ByOfficial[2].Key)
	for _, o := range summary.ByOfficial {
		assert.NotEmpty(t, o.Key)
	}

	scopes := make(map[string]int)
	for _, s := range summary.ByScope {
		scopes[s.Key] += s.Count
	}
	assert.Equal(t, map[string]int{"Nacional": 1, "Internacional": 1, "Oficial": 2}, scopes)
}

func TestSummarizeRecords_Filtered(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	seed(t, store)

	summary, err := store.SummarizeRecords(context.Background(), service.RecordFilter{Scope: model.ScopeOficial})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.RecordCount)
	require.Len(t, summary.ByCurrency, 1)
	assert.True(t, decimal.RequireFromString("0.30").Equal(summary.ByCurrency[0].Amount))
}

func TestListOfficials(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	seed(t, store)

	officials, err := store.ListOfficials(context.Background())
	require.NoError(t, err)
	require.Len(t, officials, 2)

	assert.Equal(t, "Ana Pérez", officials[0].Name)
	assert.Equal(t, 2, officials[0].Count)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), officials[0].First)
	assert.Equal(t, time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC), officials[0].Last)
	assert.Equal(t, "Juan Gómez", officials[1].Name)
}
