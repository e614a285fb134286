// Package ingest drives the sync: it downloads configured spreadsheets,
// normalizes every sheet into records and upserts them into the store.
package ingest

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/tablero/internal/detect"
	"github.com/Veraticus/tablero/internal/model"
	"github.com/Veraticus/tablero/internal/normalize"
)

// Reasons a row is dropped during normalization.
var (
	ErrBlankRow     = errors.New("blank row")
	ErrMissingDate  = errors.New("missing date")
	ErrMissingTitle = errors.New("missing title and official")
	ErrTotalsRow    = errors.New("totals row")
)

// Drop reason labels used in outcomes, logs and metrics.
const (
	DropBlank        = "blank"
	DropMissingDate  = "missing_date"
	DropMissingTitle = "missing_title"
	DropTotals       = "totals"
)

// DropReason returns the label for a row drop error.
func DropReason(err error) string {
	switch {
	case errors.Is(err, ErrBlankRow):
		return DropBlank
	case errors.Is(err, ErrMissingDate):
		return DropMissingDate
	case errors.Is(err, ErrMissingTitle):
		return DropMissingTitle
	case errors.Is(err, ErrTotalsRow):
		return DropTotals
	default:
		return "other"
	}
}

// EstimatedDateSuffix marks titles whose date came from the sheet name.
const EstimatedDateSuffix = " (fecha estimada)"

const synthesizedTitlePrefix = "Actividad de "

// SheetContext carries what NormalizeRow needs to know about the sheet a
// row came from.
type SheetContext struct {
	SyncedAt     time.Time
	DefaultDate  *time.Time
	Salter       *Salter
	SourceLabel  string
	ContextHint  string
	DefaultScope model.Scope
	Dates        normalize.DateNormalizer
	RowIndex     int
}

func (sc *SheetContext) dates() normalize.DateNormalizer {
	if sc.Dates == (normalize.DateNormalizer{}) {
		return normalize.DefaultDateNormalizer()
	}
	return sc.Dates
}

// NormalizeRow converts one data row into a record. Rows that cannot produce
// a usable record return one of the drop errors above.
func NormalizeRow(row []string, cols detect.ColumnMap, sc SheetContext) (model.Record, error) {
	if isBlankRow(row) {
		return model.Record{}, ErrBlankRow
	}
	if isTotalsRow(row, cols) {
		return model.Record{}, ErrTotalsRow
	}

	rawDate := cols.Value(row, detect.FieldDate)
	if col, ok := cols[detect.FieldDate]; ok && rawDate != "" && normalize.Fold(rawDate) == normalize.Fold(col.Name) {
		// header repeated inside the data block
		return model.Record{}, ErrBlankRow
	}

	rec := model.Record{
		SourceLabel: sc.SourceLabel,
		RowIndex:    sc.RowIndex,
		SyncedAt:    sc.SyncedAt,
		Scope:       ResolveScope(cols.Value(row, detect.FieldScope), sc.DefaultScope),
	}

	date, ok := sc.dates().Normalize(rawDate, sc.ContextHint)
	if !ok {
		if sc.DefaultDate == nil {
			return model.Record{}, ErrMissingDate
		}
		date = *sc.DefaultDate
		rec.DateEstimated = true
	}
	rec.Date = date

	title := textValue(row, cols, detect.FieldTitle)
	rec.OfficialName = textValue(row, cols, detect.FieldOfficialName)
	if title == "" {
		if rec.OfficialName == "" {
			return model.Record{}, ErrMissingTitle
		}
		title = synthesizedTitlePrefix + rec.OfficialName
	}
	if rec.DateEstimated {
		title += EstimatedDateSuffix
	}
	rec.Title = title

	rec.Place = textValue(row, cols, detect.FieldPlace)
	rec.ExpedienteNumber = optionalValue(row, cols, detect.FieldExpedienteNumber)
	rec.Institution = optionalValue(row, cols, detect.FieldInstitution)

	money := normalize.ParseMoney(cols.Value(row, detect.FieldCost))
	rec.CostAmount = money.Amount
	rec.CostCurrency = money.Currency

	salt := strconv.Itoa(sc.RowIndex)
	if sc.Salter != nil {
		salt = sc.Salter.Salt(&rec)
	}
	rec.Fingerprint = model.Fingerprint(&rec, salt)

	return rec, nil
}

var scopeMarkers = []struct {
	scope   model.Scope
	markers []string
}{
	{model.ScopeInternacional, []string{"INTERNACIONAL", "EXTERIOR", "EXTRANJERO"}},
	{model.ScopeNacional, []string{"NACIONAL", "INTERIOR", "PROVINCIAL"}},
	{model.ScopeOficial, []string{"OFICIAL"}},
	{model.ScopeGestion, []string{"GESTION"}},
}

// ResolveScope reads a scope cell. Cells without a known marker fall back to
// the source's declared scope. International markers are checked first since
// "INTERNACIONAL" contains "NACIONAL".
func ResolveScope(raw string, fallback model.Scope) model.Scope {
	folded := normalize.Fold(raw)
	if folded == "" {
		return fallback
	}
	for _, sm := range scopeMarkers {
		for _, m := range sm.markers {
			if strings.Contains(folded, m) {
				return sm.scope
			}
		}
	}
	return fallback
}

var totalsLabels = map[string]struct{}{
	"TOTAL":         {},
	"TOTALES":       {},
	"SUBTOTAL":      {},
	"TOTAL GENERAL": {},
}

// isTotalsRow reports whether the row is a footer summing the rows above it,
// labelled in its first cell or its title cell.
func isTotalsRow(row []string, cols detect.ColumnMap) bool {
	cells := []string{cols.Value(row, detect.FieldTitle)}
	if len(row) > 0 {
		cells = append(cells, row[0])
	}
	for _, c := range cells {
		label := strings.TrimSpace(strings.TrimSuffix(normalize.Fold(c), ":"))
		if _, ok := totalsLabels[label]; ok {
			return true
		}
	}
	return false
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if !normalize.IsPlaceholder(cell) {
			return false
		}
	}
	return true
}

func textValue(row []string, cols detect.ColumnMap, f detect.Field) string {
	v := cols.Value(row, f)
	if normalize.IsPlaceholder(v) {
		return ""
	}
	return normalize.CleanText(v)
}

func optionalValue(row []string, cols detect.ColumnMap, f detect.Field) *string {
	v := textValue(row, cols, f)
	if v == "" {
		return nil
	}
	return &v
}
