package ingest

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Veraticus/tablero/internal/model"
)

type memStore struct {
	records map[string]model.Record
	runs    []model.SyncRun
	batches [][]model.Record
	err     error
	mu      sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]model.Record)}
}

func (m *memStore) UpsertRecords(_ context.Context, records []model.Record) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.batches = append(m.batches, records)
	for _, r := range records {
		m.records[r.Fingerprint] = r
	}
	return len(records), nil
}

func (m *memStore) SaveSyncRun(_ context.Context, run *model.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memStore) ListSyncRuns(_ context.Context, limit int) ([]model.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.runs) {
		limit = len(m.runs)
	}
	return append([]model.SyncRun(nil), m.runs[:limit]...), nil
}

func (m *memStore) fingerprints() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.records))
	for fp := range m.records {
		out = append(out, fp)
	}
	sort.Strings(out)
	return out
}

var errFetch = errors.New("download failed")

type fakeFetcher struct {
	workbooks map[string]model.Workbook
	failures  map[string]error
}

func (f *fakeFetcher) Fetch(ctx context.Context, src SourceConfig) (model.Workbook, error) {
	if err := ctx.Err(); err != nil {
		return model.Workbook{}, err
	}
	if err, ok := f.failures[src.Name]; ok {
		return model.Workbook{}, err
	}
	return f.workbooks[src.Name], nil
}

// agendaSheet is a typical agenda sheet: a title block, a header on row 3
// and three valid data rows plus noise.
func agendaSheet() model.RawSheet {
	return model.RawSheet{
		Name: "Agenda 2024",
		Rows: [][]string{
			{"AGENDA DEL MINISTRO"},
			{},
			{"Actualizado al 1/04"},
			{"Fecha", "Evento", "Funcionario", "Lugar", "Costo"},
			{"12 al 15/03", "Cumbre regional", "Ana Pérez", "Córdoba", "$ 50.000,00"},
			{"18/03", "", "Juan Gómez", "CABA", ""},
			{"", "", "", "", ""},
			{"pendiente", "Reunión sin fecha", "Ana Pérez", "", ""},
			{"20/03/2024", "Visita oficial", "Ana Pérez", "Rosario", "USD 1,200.50"},
		},
	}
}

func noHeaderSheet() model.RawSheet {
	return model.RawSheet{
		Name: "Notas",
		Rows: [][]string{
			{"Recordatorios"},
			{"llamar a protocolo"},
		},
	}
}
