package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/tablero/internal/model"
)

// MockReader is an in-memory workbook reader for testing.
type MockReader struct {
	ReadFunc  func(ctx context.Context, location string) ([]model.RawSheet, error)
	Workbooks map[string][]model.RawSheet
	ReadCalls []string
	mu        sync.Mutex
}

// NewMockReader creates a mock serving the given workbooks by location.
func NewMockReader(workbooks map[string][]model.RawSheet) *MockReader {
	if workbooks == nil {
		workbooks = make(map[string][]model.RawSheet)
	}
	return &MockReader{Workbooks: workbooks}
}

// ReadWorkbook returns the kept sheets registered for location.
func (m *MockReader) ReadWorkbook(ctx context.Context, location string, keep func(string) bool) ([]model.RawSheet, error) {
	m.mu.Lock()
	m.ReadCalls = append(m.ReadCalls, location)
	readFunc := m.ReadFunc
	all := m.Workbooks[location]
	m.mu.Unlock()

	if readFunc != nil {
		var err error
		all, err = readFunc(ctx, location)
		if err != nil {
			return nil, err
		}
	}

	var out []model.RawSheet
	for _, s := range all {
		if keep(s.Name) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Calls returns the locations read so far.
func (m *MockReader) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ReadCalls...)
}

// Reset clears all recorded calls.
func (m *MockReader) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadCalls = nil
}
