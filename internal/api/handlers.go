package api

import (
	"context"
	"net/http"
)

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	records, err := s.store.ListRecords(ctx, filter)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	total, err := s.store.CountRecords(ctx, filter)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	resp := recordListResponse{
		Records: make([]recordResponse, 0, len(records)),
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}
	for i := range records {
		resp.Records = append(resp.Records, toRecordResponse(&records[i]))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.GetRecord(r.Context(), r.PathValue("fingerprint"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toRecordResponse(record))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.store.SummarizeRecords(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleOfficials(w http.ResponseWriter, r *http.Request) {
	officials, err := s.store.ListOfficials(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"officials": nonNil(officials)})
}

func (s *Server) handleSyncRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := parseNonNegative(r.URL.Query(), "limit")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := s.store.ListSyncRuns(r.Context(), limit)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	resp := make([]syncRunResponse, 0, len(runs))
	for i := range runs {
		resp = append(resp, toSyncRunResponse(&runs[i]))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sync_runs": resp})
}

// handleSync runs a sync in the request. The run is detached from the
// request context so a disconnecting client does not abort it halfway.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("Sync triggered over HTTP", "remote", r.RemoteAddr)
	summary, err := s.TriggerSync(context.WithoutCancel(r.Context()))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSyncResponse(&summary))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports whether the database answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("Readiness check failed", "error", err)
		s.writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
