package model

import "time"

// SyncRun records the outcome of ingesting one source.
type SyncRun struct {
	StartedAt       time.Time
	FinishedAt      time.Time
	ID              string
	Source          string
	Error           string
	SheetsProcessed int
	SheetsSkipped   int
	SheetsFailed    int
	RowsDropped     int
	RecordsWritten  int
}

// Succeeded reports whether the source was fetched and processed.
func (r *SyncRun) Succeeded() bool {
	return r.Error == ""
}
