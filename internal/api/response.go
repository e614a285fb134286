package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Veraticus/tablero/internal/common"
	"github.com/Veraticus/tablero/internal/ingest"
	"github.com/Veraticus/tablero/internal/model"
	"github.com/Veraticus/tablero/internal/storage"
	"github.com/shopspring/decimal"
)

type errorResponse struct {
	Error string `json:"error"`
}

type recordResponse struct {
	SyncedAt         time.Time       `json:"synced_at"`
	CostAmount       decimal.Decimal `json:"cost_amount"`
	ExpedienteNumber *string         `json:"expediente_number"`
	Institution      *string         `json:"institution"`
	Fingerprint      string          `json:"fingerprint"`
	Date             string          `json:"date"`
	Title            string          `json:"title"`
	Place            string          `json:"place"`
	OfficialName     string          `json:"official_name"`
	CostCurrency     model.Currency  `json:"cost_currency"`
	Scope            model.Scope     `json:"scope"`
	SourceLabel      string          `json:"source_label"`
	RowIndex         int             `json:"row_index"`
	DateEstimated    bool            `json:"date_estimated"`
}

type recordListResponse struct {
	Records []recordResponse `json:"records"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

type syncRunResponse struct {
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	ID              string    `json:"id"`
	Source          string    `json:"source"`
	Error           string    `json:"error,omitempty"`
	SheetsProcessed int       `json:"sheets_processed"`
	SheetsSkipped   int       `json:"sheets_skipped"`
	SheetsFailed    int       `json:"sheets_failed"`
	RowsDropped     int       `json:"rows_dropped"`
	RecordsWritten  int       `json:"records_written"`
}

type syncResponse struct {
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Sources    []syncRunResponse `json:"sources"`
	Written    int               `json:"written"`
	Failures   int               `json:"failures"`
}

func toRecordResponse(r *model.Record) recordResponse {
	return recordResponse{
		Fingerprint:      r.Fingerprint,
		Date:             r.Date.Format(time.DateOnly),
		DateEstimated:    r.DateEstimated,
		Title:            r.Title,
		Place:            r.Place,
		OfficialName:     r.OfficialName,
		CostAmount:       r.CostAmount,
		CostCurrency:     r.CostCurrency,
		ExpedienteNumber: r.ExpedienteNumber,
		Institution:      r.Institution,
		Scope:            r.Scope,
		SourceLabel:      r.SourceLabel,
		RowIndex:         r.RowIndex,
		SyncedAt:         r.SyncedAt,
	}
}

func toSyncRunResponse(run *model.SyncRun) syncRunResponse {
	return syncRunResponse{
		ID:              run.ID,
		Source:          run.Source,
		StartedAt:       run.StartedAt,
		FinishedAt:      run.FinishedAt,
		SheetsProcessed: run.SheetsProcessed,
		SheetsSkipped:   run.SheetsSkipped,
		SheetsFailed:    run.SheetsFailed,
		RowsDropped:     run.RowsDropped,
		RecordsWritten:  run.RecordsWritten,
		Error:           run.Error,
	}
}

func toSyncResponse(summary *ingest.RunSummary) syncResponse {
	resp := syncResponse{
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
		Sources:    make([]syncRunResponse, 0, len(summary.Sources)),
		Written:    summary.Written(),
		Failures:   summary.Failures(),
	}
	for i := range summary.Sources {
		src := &summary.Sources[i]
		run := syncRunResponse{
			ID:              src.RunID,
			Source:          src.Source,
			StartedAt:       src.StartedAt,
			FinishedAt:      src.FinishedAt,
			SheetsProcessed: src.Count(ingest.SheetProcessed),
			SheetsSkipped:   src.Count(ingest.SheetSkipped),
			SheetsFailed:    src.Count(ingest.SheetFailed),
			RowsDropped:     src.Dropped(),
			RecordsWritten:  src.Written,
		}
		if src.Err != nil {
			run.Error = src.Err.Error()
		}
		resp.Sources = append(resp.Sources, run)
	}
	return resp
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// writeStoreError maps store and sync errors to status codes.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrSyncInProgress):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, common.ErrNoSources),
		errors.Is(err, storage.ErrInvalidFilter),
		errors.Is(err, storage.ErrEmptyString):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
