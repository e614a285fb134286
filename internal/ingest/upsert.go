package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/tablero/internal/model"
	"github.com/Veraticus/tablero/internal/service"
)

// Upserter writes batches of records, collapsing duplicate fingerprints
// within a batch before they reach the store.
type Upserter struct {
	store  service.RecordStore
	logger *slog.Logger
}

// NewUpserter creates an upserter over store.
func NewUpserter(store service.RecordStore, logger *slog.Logger) *Upserter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Upserter{store: store, logger: logger}
}

// UpsertBatch deduplicates records by fingerprint and upserts them in one
// store transaction. It returns the number of records written.
func (u *Upserter) UpsertBatch(ctx context.Context, records []model.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	batch := Dedupe(records)
	if collapsed := len(records) - len(batch); collapsed > 0 {
		u.logger.Debug("collapsed duplicate fingerprints", "count", collapsed)
	}

	written, err := u.store.UpsertRecords(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert %d records: %w", len(batch), err)
	}
	return written, nil
}

// Dedupe keeps one record per fingerprint. The last record wins, placed at
// the position where its fingerprint first appeared.
func Dedupe(records []model.Record) []model.Record {
	index := make(map[string]int, len(records))
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if i, ok := index[r.Fingerprint]; ok {
			out[i] = r
			continue
		}
		index[r.Fingerprint] = len(out)
		out = append(out, r)
	}
	return out
}
