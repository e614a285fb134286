package sheets

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Veraticus/tablero/internal/model"
	"github.com/xuri/excelize/v2"
)

// ShortDatePattern is how cells using the locale short date format
// (built-in number format 14) are rendered. excelize defaults to the US
// mm-dd-yy order, which the day-first date normalizer would read swapped.
const ShortDatePattern = "dd/mm/yyyy"

// ParseWorkbook reads an xlsx workbook. Cells come back as displayed, with
// their number formats applied, which matches what the Sheets API returns
// for FORMATTED_VALUE.
func ParseWorkbook(r io.Reader, keep func(string) bool) ([]model.RawSheet, error) {
	f, err := excelize.OpenReader(r, excelize.Options{ShortDatePattern: ShortDatePattern})
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	var out []model.RawSheet
	for _, name := range f.GetSheetList() {
		if !keep(name) {
			continue
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		out = append(out, model.RawSheet{Name: name, Rows: rows})
	}
	return out, nil
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
