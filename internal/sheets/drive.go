package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Veraticus/tablero/internal/model"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// MIME types handled by DriveReader.
const (
	GoogleSheetMimeType = "application/vnd.google-apps.spreadsheet"
	XLSXMimeType        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	CSVMimeType         = "text/csv"
)

// DriveReader downloads spreadsheets stored in Google Drive. Uploaded xlsx
// and csv files are downloaded as-is; native Google Sheets are exported as
// xlsx.
type DriveReader struct {
	service *drive.Service
	logger  *slog.Logger
}

// NewDriveReader creates a Drive reader authenticated with config.
func NewDriveReader(ctx context.Context, config Config, logger *slog.Logger, opts ...option.ClientOption) (*DriveReader, error) {
	auth, err := NewClientOption(ctx, config)
	if err != nil {
		return nil, err
	}
	return NewDriveReaderWithOptions(ctx, logger, append([]option.ClientOption{auth}, opts...)...)
}

// NewDriveReaderWithOptions creates a Drive reader from raw client options.
func NewDriveReaderWithOptions(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*DriveReader, error) {
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create drive service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DriveReader{service: srv, logger: logger}, nil
}

// ReadWorkbook downloads fileID and parses it.
func (d *DriveReader) ReadWorkbook(ctx context.Context, fileID string, keep func(string) bool) ([]model.RawSheet, error) {
	file, err := d.service.Files.Get(fileID).
		Fields("id", "name", "mimeType").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to access drive file %s: %w", fileID, err)
	}

	var resp *http.Response
	switch file.MimeType {
	case GoogleSheetMimeType:
		resp, err = d.service.Files.Export(fileID, XLSXMimeType).Context(ctx).Download()
	case XLSXMimeType, CSVMimeType:
		resp, err = d.service.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	default:
		return nil, fmt.Errorf("drive file %s has unsupported type %s", file.Name, file.MimeType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download drive file %s: %w", file.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	d.logger.Debug("downloaded drive file", "file_id", fileID, "name", file.Name, "mime_type", file.MimeType)

	if file.MimeType == CSVMimeType {
		name := trimExt(file.Name)
		if !keep(name) {
			return nil, nil
		}
		rows, err := ReadCSV(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file.Name, err)
		}
		return []model.RawSheet{{Name: name, Rows: rows}}, nil
	}

	sheets, err := ParseWorkbook(resp.Body, keep)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file.Name, err)
	}
	return sheets, nil
}
