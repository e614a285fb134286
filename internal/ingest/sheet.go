package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Veraticus/tablero/internal/detect"
	"github.com/Veraticus/tablero/internal/model"
	"github.com/Veraticus/tablero/internal/normalize"
)

// DedupMode selects the salt mixed into record fingerprints.
type DedupMode string

// Dedup modes.
const (
	// DedupOccurrence salts a record with how many identical records came
	// before it in the same sheet. Reruns stay idempotent when rows move.
	DedupOccurrence DedupMode = "occurrence"
	// DedupRowIndex salts a record with its row position.
	DedupRowIndex DedupMode = "row_index"
	// DedupContent uses no salt; identical rows collapse into one record.
	DedupContent DedupMode = "content"
)

// ParseDedupMode validates a configured dedup mode. Empty means occurrence.
func ParseDedupMode(s string) (DedupMode, error) {
	switch DedupMode(s) {
	case "", DedupOccurrence:
		return DedupOccurrence, nil
	case DedupRowIndex, DedupContent:
		return DedupMode(s), nil
	default:
		return "", fmt.Errorf("unknown dedup mode %q", s)
	}
}

// Salter hands out fingerprint salts for the records of one sheet.
type Salter struct {
	seen map[string]int
	mode DedupMode
}

// NewSalter returns a salter for a single sheet.
func NewSalter(mode DedupMode) *Salter {
	return &Salter{mode: mode, seen: make(map[string]int)}
}

// Salt returns the salt for r. In occurrence mode every call counts, so it
// must be called once per kept record.
func (s *Salter) Salt(r *model.Record) string {
	switch s.mode {
	case DedupContent:
		return ""
	case DedupRowIndex:
		return strconv.Itoa(r.RowIndex)
	default:
		key := r.ContentKey()
		n := s.seen[key]
		s.seen[key] = n + 1
		if n == 0 {
			return ""
		}
		return strconv.Itoa(n)
	}
}

// SheetStatus is the result class of processing one sheet.
type SheetStatus string

// Sheet statuses.
const (
	SheetProcessed SheetStatus = "processed"
	SheetSkipped   SheetStatus = "skipped"
	SheetFailed    SheetStatus = "failed"
)

// SkipReason explains a skipped sheet.
type SkipReason string

// Skip reasons.
const (
	SkipEmptySheet   SkipReason = "empty_sheet"
	SkipNoHeader     SkipReason = "no_header"
	SkipNoDateColumn SkipReason = "no_date_column"
)

// SheetOutcome reports what happened to one sheet.
type SheetOutcome struct {
	Err         error
	Drops       map[string]int
	Columns     detect.ColumnMap
	Sheet       string
	Status      SheetStatus
	Reason      SkipReason
	HeaderRow   int
	RowsRead    int
	RowsDropped int
	Written     int
}

// ProcessorConfig tunes sheet processing.
type ProcessorConfig struct {
	Keywords detect.KeywordTable
	Header   detect.HeaderOptions
	Dates    normalize.DateNormalizer
	Dedup    DedupMode
}

// DefaultProcessorConfig returns the built-in keyword table and defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		Keywords: detect.DefaultKeywords(),
		Header:   detect.DefaultHeaderOptions(),
		Dates:    normalize.DefaultDateNormalizer(),
		Dedup:    DedupOccurrence,
	}
}

// Processor turns raw sheets into records and hands them to the upserter.
type Processor struct {
	upserter *Upserter
	logger   *slog.Logger
	now      func() time.Time
	cfg      ProcessorConfig
}

// NewProcessor creates a processor. A nil upserter makes ProcessSheet
// normalize without writing, which is what the inspect command uses.
func NewProcessor(cfg ProcessorConfig, upserter *Upserter, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Keywords == nil {
		cfg.Keywords = detect.DefaultKeywords()
	}
	if cfg.Header.MaxRows == 0 {
		cfg.Header = detect.DefaultHeaderOptions()
	}
	if cfg.Dates == (normalize.DateNormalizer{}) {
		cfg.Dates = normalize.DefaultDateNormalizer()
	}
	if cfg.Dedup == "" {
		cfg.Dedup = DedupOccurrence
	}
	return &Processor{
		cfg:      cfg,
		upserter: upserter,
		logger:   logger,
		now:      time.Now,
	}
}

// NormalizeSheet detects the layout of sheet and normalizes its data rows.
// The outcome is complete except for Written.
func (p *Processor) NormalizeSheet(src SourceConfig, sheet model.RawSheet) ([]model.Record, SheetOutcome) {
	outcome := SheetOutcome{
		Sheet:     sheet.Name,
		Status:    SheetProcessed,
		HeaderRow: detect.NotFound,
		Drops:     make(map[string]int),
	}
	if sheet.IsBlank() {
		return nil, skip(outcome, SkipEmptySheet)
	}

	header := detect.DetectHeaderRow(sheet.Rows, p.cfg.Keywords, p.cfg.Header)
	if header == detect.NotFound {
		return nil, skip(outcome, SkipNoHeader)
	}
	outcome.HeaderRow = header
	cols := detect.MapColumns(sheet.Rows[header], p.cfg.Keywords)
	outcome.Columns = cols

	hint := sheet.Name + " " + src.Name
	sc := SheetContext{
		SyncedAt:     p.now().UTC(),
		Salter:       NewSalter(p.cfg.Dedup),
		SourceLabel:  model.SourceLabel(src.Name, sheet.Name),
		ContextHint:  hint,
		DefaultScope: src.DefaultScope,
		Dates:        p.cfg.Dates,
	}
	if !cols.Has(detect.FieldDate) {
		def, ok := defaultDate(sheet.Name)
		if !ok {
			return nil, skip(outcome, SkipNoDateColumn)
		}
		sc.DefaultDate = &def
	}

	var records []model.Record
	for i, row := range sheet.Rows[header+1:] {
		outcome.RowsRead++
		sc.RowIndex = header + 1 + i
		rec, err := NormalizeRow(row, cols, sc)
		if err != nil {
			outcome.RowsDropped++
			outcome.Drops[DropReason(err)]++
			continue
		}
		records = append(records, rec)
	}
	return records, outcome
}

// ProcessSheet normalizes sheet and upserts the resulting records.
// Persistence errors are reported in the outcome; they never abort the run.
func (p *Processor) ProcessSheet(ctx context.Context, src SourceConfig, sheet model.RawSheet) SheetOutcome {
	logger := p.logger.With("source", src.Name, "sheet", sheet.Name)

	records, outcome := p.NormalizeSheet(src, sheet)
	if outcome.Status == SheetSkipped {
		logger.Warn("skipping sheet", "reason", outcome.Reason)
		return outcome
	}
	if outcome.RowsDropped > 0 {
		logger.Debug("dropped rows", "count", outcome.RowsDropped, "reasons", outcome.Drops)
	}
	if p.upserter == nil || len(records) == 0 {
		return outcome
	}

	written, err := p.upserter.UpsertBatch(ctx, records)
	if err != nil {
		logger.Error("failed to persist sheet", "records", len(records), "error", err)
		outcome.Status = SheetFailed
		outcome.Err = err
		return outcome
	}
	outcome.Written = written
	logger.Info("sheet synced", "written", written, "dropped", outcome.RowsDropped)
	return outcome
}

func skip(o SheetOutcome, reason SkipReason) SheetOutcome {
	o.Status = SheetSkipped
	o.Reason = reason
	return o
}

// defaultDate derives the date used for every row of a sheet that has no
// date column: the month named in the title (January if none) of the year in
// the title.
func defaultDate(sheetName string) (time.Time, bool) {
	year, ok := normalize.YearFromHint(sheetName)
	if !ok {
		return time.Time{}, false
	}
	month, ok := normalize.MonthFromText(sheetName)
	if !ok {
		month = 1
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
}

