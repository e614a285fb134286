package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/tablero/internal/model"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Reader downloads every sheet of a Google Sheets spreadsheet as displayed
// text.
type Reader struct {
	service *sheets.Service
	logger  *slog.Logger
}

// NewReader creates a reader. Extra options are passed to the Sheets client
// after the authenticated HTTP client built from config.
func NewReader(ctx context.Context, config Config, logger *slog.Logger, opts ...option.ClientOption) (*Reader, error) {
	auth, err := NewClientOption(ctx, config)
	if err != nil {
		return nil, err
	}
	return NewReaderWithOptions(ctx, logger, append([]option.ClientOption{auth}, opts...)...)
}

// NewReaderWithOptions creates a reader from raw client options.
func NewReaderWithOptions(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*Reader, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{service: srv, logger: logger}, nil
}

// ReadWorkbook lists the sheets of spreadsheetID and fetches the kept ones
// in a single batch request.
func (r *Reader) ReadWorkbook(ctx context.Context, spreadsheetID string, keep func(string) bool) ([]model.RawSheet, error) {
	spreadsheet, err := r.service.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to access spreadsheet %s: %w", spreadsheetID, err)
	}

	var titles []string
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties == nil {
			continue
		}
		if keep(sheet.Properties.Title) {
			titles = append(titles, sheet.Properties.Title)
		} else {
			r.logger.Debug("excluded sheet", "spreadsheet_id", spreadsheetID, "sheet", sheet.Properties.Title)
		}
	}
	if len(titles) == 0 {
		return nil, nil
	}

	ranges := make([]string, len(titles))
	for i, t := range titles {
		ranges[i] = QuoteSheetName(t)
	}

	resp, err := r.service.Spreadsheets.Values.BatchGet(spreadsheetID).
		Ranges(ranges...).
		ValueRenderOption("FORMATTED_VALUE").
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read values of %s: %w", spreadsheetID, err)
	}
	if len(resp.ValueRanges) != len(titles) {
		return nil, fmt.Errorf("spreadsheet %s returned %d ranges for %d sheets", spreadsheetID, len(resp.ValueRanges), len(titles))
	}

	out := make([]model.RawSheet, len(titles))
	for i, vr := range resp.ValueRanges {
		out[i] = model.RawSheet{Name: titles[i], Rows: cellsToRows(vr.Values)}
	}

	r.logger.Debug("read spreadsheet", "spreadsheet_id", spreadsheetID, "sheets", len(out))
	return out, nil
}

// QuoteSheetName turns a sheet title into an A1 range covering the whole
// sheet.
func QuoteSheetName(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func cellsToRows(values [][]any) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v == nil {
				continue
			}
			if s, ok := v.(string); ok {
				cells[j] = s
			} else {
				cells[j] = fmt.Sprint(v)
			}
		}
		rows[i] = cells
	}
	return rows
}
