package ingest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/Veraticus/tablero/internal/model"
	"github.com/Veraticus/tablero/internal/normalize"
)

// SourceKind selects how a source is downloaded.
type SourceKind string

// Supported source kinds.
const (
	KindSheets SourceKind = "sheets"
	KindDrive  SourceKind = "drive"
	KindFile   SourceKind = "file"
)

// Source errors.
var (
	ErrUnsupportedSource = errors.New("unsupported source kind")
	ErrInvalidSource     = errors.New("invalid source")
)

// SourceConfig describes one configured spreadsheet. Location is the
// spreadsheet ID for sheets, the file ID for drive, or a path for file.
type SourceConfig struct {
	Name         string
	Kind         SourceKind
	Location     string
	DefaultScope model.Scope
	Include      []string
	Exclude      []string
}

// Validate checks that the source can be fetched.
func (s SourceConfig) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSource)
	}
	switch s.Kind {
	case KindSheets, KindDrive, KindFile:
	default:
		return fmt.Errorf("%w: source %q has kind %q", ErrUnsupportedSource, s.Name, s.Kind)
	}
	if strings.TrimSpace(s.Location) == "" {
		return fmt.Errorf("%w: source %q has no location", ErrInvalidSource, s.Name)
	}
	if s.DefaultScope == "" {
		return fmt.Errorf("%w: source %q has no default scope", ErrInvalidSource, s.Name)
	}
	for _, p := range append(append([]string{}, s.Include...), s.Exclude...) {
		if _, err := path.Match(normalize.Fold(p), ""); err != nil {
			return fmt.Errorf("%w: source %q has bad sheet pattern %q", ErrInvalidSource, s.Name, p)
		}
	}
	return nil
}

// KeepSheet applies the include and exclude lists to a sheet title. Patterns
// use path.Match syntax and ignore case and accents. An empty include list
// keeps every sheet that is not excluded.
func (s SourceConfig) KeepSheet(title string) bool {
	folded := normalize.Fold(title)
	if len(s.Include) > 0 && !matchAny(s.Include, folded) {
		return false
	}
	return !matchAny(s.Exclude, folded)
}

func matchAny(patterns []string, folded string) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(normalize.Fold(p), folded); ok {
			return true
		}
	}
	return false
}

// Fetcher downloads the sheets of a source.
type Fetcher interface {
	Fetch(ctx context.Context, src SourceConfig) (model.Workbook, error)
}

// WorkbookReader reads the sheets at a location, skipping titles for which
// keep returns false.
type WorkbookReader interface {
	ReadWorkbook(ctx context.Context, location string, keep func(string) bool) ([]model.RawSheet, error)
}

// MultiFetcher dispatches each source to the reader registered for its kind.
type MultiFetcher struct {
	readers map[SourceKind]WorkbookReader
}

// NewMultiFetcher creates a fetcher with no readers registered.
func NewMultiFetcher() *MultiFetcher {
	return &MultiFetcher{readers: make(map[SourceKind]WorkbookReader)}
}

// Register sets the reader for kind, replacing any previous one.
func (m *MultiFetcher) Register(kind SourceKind, r WorkbookReader) {
	m.readers[kind] = r
}

// Fetch implements Fetcher.
func (m *MultiFetcher) Fetch(ctx context.Context, src SourceConfig) (model.Workbook, error) {
	r, ok := m.readers[src.Kind]
	if !ok {
		return model.Workbook{}, fmt.Errorf("%w: no reader for %q", ErrUnsupportedSource, src.Kind)
	}
	sheets, err := r.ReadWorkbook(ctx, src.Location, src.KeepSheet)
	if err != nil {
		return model.Workbook{}, fmt.Errorf("failed to read source %q: %w", src.Name, err)
	}
	return model.Workbook{Source: src.Name, Sheets: sheets}, nil
}
