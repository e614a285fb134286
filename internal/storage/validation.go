// Package storage provides the SQLite persistence layer for records and sync runs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/tablero/internal/model"
	"github.com/Veraticus/tablero/internal/service"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidRecord    = errors.New("invalid record")
	ErrInvalidSyncRun   = errors.New("invalid sync run")
	ErrInvalidFilter    = errors.New("invalid filter")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRecords validates a slice of records.
func validateRecords(records []model.Record) error {
	if records == nil {
		return fmt.Errorf("%w: records", ErrNilParameter)
	}
	for i := range records {
		if err := validateRecord(&records[i]); err != nil {
			return fmt.Errorf("record at index %d: %w", i, err)
		}
	}
	return nil
}

// validateRecord validates a single record.
func validateRecord(r *model.Record) error {
	switch {
	case r.Fingerprint == "":
		return fmt.Errorf("%w: missing fingerprint", ErrInvalidRecord)
	case r.Date.IsZero():
		return fmt.Errorf("%w: missing date", ErrInvalidRecord)
	case strings.TrimSpace(r.Title) == "":
		return fmt.Errorf("%w: missing title", ErrInvalidRecord)
	case !r.CostCurrency.IsValid():
		return fmt.Errorf("%w: unknown currency %q", ErrInvalidRecord, r.CostCurrency)
	case r.Scope == "":
		return fmt.Errorf("%w: missing scope", ErrInvalidRecord)
	case r.SourceLabel == "":
		return fmt.Errorf("%w: missing source label", ErrInvalidRecord)
	}
	return nil
}

// validateSyncRun validates a sync run before it is saved.
func validateSyncRun(run *model.SyncRun) error {
	if run == nil {
		return fmt.Errorf("%w: sync run", ErrNilParameter)
	}
	if run.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidSyncRun)
	}
	if run.Source == "" {
		return fmt.Errorf("%w: missing source", ErrInvalidSyncRun)
	}
	if run.FinishedAt.Before(run.StartedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidSyncRun, ErrInvalidDateRange)
	}
	return nil
}

// validateFilter checks the filter's date range and enumerations.
func validateFilter(f *service.RecordFilter) error {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return fmt.Errorf("%w: %w", ErrInvalidFilter, ErrInvalidDateRange)
	}
	if f.Currency != "" && !f.Currency.IsValid() {
		return fmt.Errorf("%w: unknown currency %q", ErrInvalidFilter, f.Currency)
	}
	if f.Limit < 0 || f.Offset < 0 {
		return fmt.Errorf("%w: negative limit or offset", ErrInvalidFilter)
	}
	return nil
}
