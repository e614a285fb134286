package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/tablero/internal/common"
	"github.com/Veraticus/tablero/internal/ingest"
	"github.com/Veraticus/tablero/internal/model"
	"github.com/Veraticus/tablero/internal/service"
	"github.com/Veraticus/tablero/internal/storage"
	"github.com/Veraticus/tablero/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *storage.SQLiteStorage) {
	t.Helper()
	store := testutil.SetupTestDB(t)
	if opts.Store == nil {
		opts.Store = store
	}
	srv := httptest.NewServer(New(opts).Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func seedDashboard(t *testing.T, store *storage.SQLiteStorage) []model.Record {
	t.Helper()
	records := []model.Record{
		testutil.NewRecord(t, "2024-03-15", "Cumbre regional").
			Official("Ana Pérez").Place("Córdoba").Cost("50000", model.CurrencyARS).
			Scope(model.ScopeNacional).Expediente("EX-2024-1").Build(),
		testutil.NewRecord(t, "2024-03-20", "Visita oficial").
			Official("Ana Pérez").Cost("1200.50", model.CurrencyUSD).
			Scope(model.ScopeInternacional).Build(),
		testutil.NewRecord(t, "2024-04-02", "Reunión de gabinete").
			Official("Juan Gómez").Build(),
	}
	testutil.SeedRecords(t, store, records...)
	return records
}

func getJSON(t *testing.T, url string, dst any) *http.Response {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec,noctx // test server URL
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if dst != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	}
	return resp
}

func TestListRecords(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	seedDashboard(t, store)

	var body recordListResponse
	resp := getJSON(t, srv.URL+"/api/records", &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, service.DefaultLimit, body.Limit)
	require.Len(t, body.Records, 3)
	assert.Equal(t, "Reunión de gabinete", body.Records[0].Title)
	assert.Equal(t, "2024-04-02", body.Records[0].Date)
	assert.Equal(t, "Oficial", string(body.Records[0].Scope))
}

func TestListRecords_Filters(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	seedDashboard(t, store)

	tests := []struct {
		name   string
		query  string
		titles []string
		total  int
	}{
		{"date range", "?from=2024-03-16&to=2024-03-31", []string{"Visita oficial"}, 1},
		{"scope ignores case", "?scope=nacional", []string{"Cumbre regional"}, 1},
		{"currency", "?currency=usd", []string{"Visita oficial"}, 1},
		{"official", "?official=Ana%20P%C3%A9rez", []string{"Visita oficial", "Cumbre regional"}, 2},
		{"free text", "?q=EX-2024", []string{"Cumbre regional"}, 1},
		{"pagination keeps total", "?limit=1&offset=1", []string{"Visita oficial"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body recordListResponse
			resp := getJSON(t, srv.URL+"/api/records"+tt.query, &body)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			titles := make([]string, len(body.Records))
			for i, r := range body.Records {
				titles[i] = r.Title
			}
			assert.Equal(t, tt.titles, titles)
			assert.Equal(t, tt.total, body.Total)
		})
	}
}

func TestListRecords_BadParams(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	for _, query := range []string{
		"?from=15/03/2024",
		"?from=2024-04-01&to=2024-03-01",
		"?scope=provincial",
		"?currency=BRL",
		"?limit=-1",
		"?offset=abc",
	} {
		t.Run(query, func(t *testing.T) {
			var body errorResponse
			resp := getJSON(t, srv.URL+"/api/records"+query, &body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestListRecords_LimitCapped(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	var body recordListResponse
	resp := getJSON(t, srv.URL+"/api/records?limit=5000", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, service.MaxLimit, body.Limit)
	assert.NotNil(t, body.Records)
}

func TestGetRecord(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	records := seedDashboard(t, store)

	var body recordResponse
	resp := getJSON(t, srv.URL+"/api/records/"+records[0].Fingerprint, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Cumbre regional", body.Title)
	assert.Equal(t, "50000", body.CostAmount.String())
	require.NotNil(t, body.ExpedienteNumber)
	assert.Equal(t, "EX-2024-1", *body.ExpedienteNumber)

	var missing errorResponse
	resp = getJSON(t, srv.URL+"/api/records/does-not-exist", &missing)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, missing.Error, "not found")
}

func TestSummary(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	seedDashboard(t, store)

	var body service.Summary
	resp := getJSON(t, srv.URL+"/api/summary", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 3, body.RecordCount)
	require.Len(t, body.ByCurrency, 2)
	assert.Equal(t, "50000", body.ByCurrency[0].Amount.String())
	assert.Equal(t, "1200.5", body.ByCurrency[1].Amount.String())

	resp = getJSON(t, srv.URL+"/api/summary?scope=oficial", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, body.RecordCount)
}

func TestOfficials(t *testing.T) {
	srv, store := newTestServer(t, Options{})

	var empty struct {
		Officials []service.OfficialStat `json:"officials"`
	}
	getJSON(t, srv.URL+"/api/officials", &empty)
	assert.NotNil(t, empty.Officials)
	assert.Empty(t, empty.Officials)

	seedDashboard(t, store)
	var body struct {
		Officials []service.OfficialStat `json:"officials"`
	}
	resp := getJSON(t, srv.URL+"/api/officials", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body.Officials, 2)
	assert.Equal(t, "Ana Pérez", body.Officials[0].Name)
	assert.Equal(t, 2, body.Officials[0].Count)
}

func TestSyncRuns(t *testing.T) {
	srv, store := newTestServer(t, Options{})

	started := time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveSyncRun(context.Background(), &model.SyncRun{
		ID:             "run-1",
		Source:         "Agenda",
		StartedAt:      started,
		FinishedAt:     started.Add(time.Second),
		RecordsWritten: 12,
	}))

	var body struct {
		SyncRuns []syncRunResponse `json:"sync_runs"`
	}
	resp := getJSON(t, srv.URL+"/api/sync-runs?limit=5", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body.SyncRuns, 1)
	assert.Equal(t, "run-1", body.SyncRuns[0].ID)
	assert.Equal(t, 12, body.SyncRuns[0].RecordsWritten)
}

func TestSync(t *testing.T) {
	finished := time.Date(2024, time.May, 1, 8, 0, 5, 0, time.UTC)
	srv, _ := newTestServer(t, Options{
		Sync: func(_ context.Context) (ingest.RunSummary, error) {
			return ingest.RunSummary{
				FinishedAt: finished,
				Sources: []ingest.SourceSummary{
					{
						Source:  "Agenda",
						RunID:   "run-1",
						Written: 3,
						Sheets: []ingest.SheetOutcome{
							{Sheet: "Marzo", Status: ingest.SheetProcessed, RowsDropped: 2, Written: 3},
							{Sheet: "Notas", Status: ingest.SheetSkipped, Reason: ingest.SkipNoHeader},
						},
					},
					{Source: "Viajes", Err: errors.New("fetch failed")},
				},
			}, nil
		},
	})

	resp, err := http.Post(srv.URL+"/api/sync", "application/json", nil) //nolint:gosec,noctx // test server URL
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body syncResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 3, body.Written)
	assert.Equal(t, 1, body.Failures)
	require.Len(t, body.Sources, 2)
	assert.Equal(t, 1, body.Sources[0].SheetsProcessed)
	assert.Equal(t, 1, body.Sources[0].SheetsSkipped)
	assert.Equal(t, 2, body.Sources[0].RowsDropped)
	assert.Equal(t, "fetch failed", body.Sources[1].Error)
}

func TestSync_ConflictWhileRunning(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	srv, _ := newTestServer(t, Options{
		Sync: func(_ context.Context) (ingest.RunSummary, error) {
			close(entered)
			<-release
			return ingest.RunSummary{}, nil
		},
	})

	var wg sync.WaitGroup
	wg.Add(1)
	var firstStatus int
	go func() {
		defer wg.Done()
		resp, err := http.Post(srv.URL+"/api/sync", "application/json", nil) //nolint:gosec,noctx // test server URL
		if assert.NoError(t, err) {
			firstStatus = resp.StatusCode
			_ = resp.Body.Close()
		}
	}()

	<-entered
	resp, err := http.Post(srv.URL+"/api/sync", "application/json", nil) //nolint:gosec,noctx // test server URL
	require.NoError(t, err)
	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, common.ErrSyncInProgress.Error(), body.Error)

	close(release)
	wg.Wait()
	assert.Equal(t, http.StatusOK, firstStatus)
}

func TestSync_NoSources(t *testing.T) {
	srv, _ := newTestServer(t, Options{
		Sync: func(_ context.Context) (ingest.RunSummary, error) {
			return ingest.RunSummary{}, common.ErrNoSources
		},
	})

	resp, err := http.Post(srv.URL+"/api/sync", "application/json", nil) //nolint:gosec,noctx // test server URL
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSync_NotRegisteredWithoutSyncFunc(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	resp, err := http.Post(srv.URL+"/api/sync", "application/json", nil) //nolint:gosec,noctx // test server URL
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	resp, err := http.Post(srv.URL+"/api/records", "application/json", nil) //nolint:gosec,noctx // test server URL
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	resp := getJSON(t, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var ready map[string]string
	resp = getJSON(t, srv.URL+"/ready", &ready)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", ready["status"])
}

func TestReady_DatabaseClosed(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	require.NoError(t, store.Close())

	resp := getJSON(t, srv.URL+"/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, Options{Metrics: true})
	getJSON(t, srv.URL+"/health", nil)

	resp, err := http.Get(srv.URL + "/metrics") //nolint:gosec,noctx // test server URL
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	noMetrics, _ := newTestServer(t, Options{})
	resp, err = http.Get(noMetrics.URL + "/metrics") //nolint:gosec,noctx // test server URL
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimit: 0.001, RateBurst: 1})

	first := getJSON(t, srv.URL+"/api/officials", nil)
	assert.Equal(t, http.StatusOK, first.StatusCode)

	var body errorResponse
	second := getJSON(t, srv.URL+"/api/officials", &body)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	assert.Equal(t, "1", second.Header.Get("Retry-After"))
	assert.Equal(t, "rate limit exceeded", body.Error)

	health := getJSON(t, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, health.StatusCode, "probes bypass the limiter")
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t, Options{CORSOrigins: []string{"https://tablero.example.org"}})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/officials", nil) //nolint:noctx // test request
	require.NoError(t, err)
	req.Header.Set("Origin", "https://tablero.example.org")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "https://tablero.example.org", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example.com")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestTriggerSync(t *testing.T) {
	store := testutil.SetupTestDB(t)

	_, err := New(Options{Store: store}).TriggerSync(context.Background())
	assert.ErrorIs(t, err, common.ErrNoSources)

	calls := 0
	s := New(Options{Store: store, Sync: func(_ context.Context) (ingest.RunSummary, error) {
		calls++
		return ingest.RunSummary{}, nil
	}})
	_, err = s.TriggerSync(context.Background())
	require.NoError(t, err)

	s.syncMu.Lock()
	_, err = s.TriggerSync(context.Background())
	s.syncMu.Unlock()
	assert.ErrorIs(t, err, common.ErrSyncInProgress)
	assert.Equal(t, 1, calls)
}
