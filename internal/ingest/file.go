package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/tablero/internal/model"
	"github.com/Veraticus/tablero/internal/sheets"
)

// ErrUnsupportedFormat is returned for local files that are neither xlsx nor csv.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// FileFetcher reads workbooks from local .xlsx and .csv files. A csv file is
// a workbook with a single sheet named after the file.
type FileFetcher struct{}

// NewFileFetcher creates a local file reader.
func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

// ReadWorkbook implements WorkbookReader.
func (f *FileFetcher) ReadWorkbook(ctx context.Context, location string, keep func(string) bool) ([]model.RawSheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(location) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", location, err)
	}
	defer func() { _ = file.Close() }()

	ext := strings.ToLower(filepath.Ext(location))
	switch ext {
	case ".xlsx", ".xlsm":
		return sheets.ParseWorkbook(file, keep)
	case ".csv", ".tsv", ".txt":
		name := strings.TrimSuffix(filepath.Base(location), filepath.Ext(location))
		if !keep(name) {
			return nil, nil
		}
		rows, err := sheets.ReadCSV(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", location, err)
		}
		return []model.RawSheet{{Name: name, Rows: rows}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}
