// Package service defines the interfaces shared by the ingestion pipeline, the API and the store.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/tablero/internal/model"
	"github.com/shopspring/decimal"
)

// Pagination limits for record queries.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// RecordFilter defines filtering options for record queries. Zero values
// disable the corresponding condition.
type RecordFilter struct {
	From     *time.Time
	To       *time.Time
	Scope    model.Scope
	Official string
	Currency model.Currency
	Query    string
	Limit    int
	Offset   int
}

// RecordStore persists normalized records.
type RecordStore interface {
	// UpsertRecords inserts or replaces records keyed by fingerprint in a
	// single transaction and returns the number of rows written.
	UpsertRecords(ctx context.Context, records []model.Record) (int, error)
}

// RunStore keeps the history of sync runs.
type RunStore interface {
	SaveSyncRun(ctx context.Context, run *model.SyncRun) error
	ListSyncRuns(ctx context.Context, limit int) ([]model.SyncRun, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	RecordStore
	RunStore

	// Record queries
	GetRecord(ctx context.Context, fingerprint string) (*model.Record, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]model.Record, error)
	CountRecords(ctx context.Context, filter RecordFilter) (int, error)
	SummarizeRecords(ctx context.Context, filter RecordFilter) (*Summary, error)
	ListOfficials(ctx context.Context) ([]OfficialStat, error)

	// Database management
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Total aggregates the records sharing a key and a currency. Amounts in
// different currencies are never added together.
type Total struct {
	Key      string          `json:"key"`
	Currency model.Currency  `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
	Count    int             `json:"count"`
}

// Summary contains aggregate information for the dashboard.
type Summary struct {
	ByScope     []Total `json:"by_scope"`
	ByCurrency  []Total `json:"by_currency"`
	ByMonth     []Total `json:"by_month"`
	ByOfficial  []Total `json:"by_official"`
	RecordCount int     `json:"record_count"`
}

// OfficialStat describes one official and the span of their records.
type OfficialStat struct {
	First time.Time `json:"first_date"`
	Last  time.Time `json:"last_date"`
	Name  string    `json:"name"`
	Count int       `json:"count"`
}
