package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/tablero/internal/common"
	"github.com/Veraticus/tablero/internal/model"
	"github.com/Veraticus/tablero/internal/service"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

const recordColumns = `fingerprint, date, title, place, official_name, cost_amount, cost_currency,
	expediente_number, institution, scope, source_label, row_index, date_estimated, synced_at`

// UpsertRecords inserts records or replaces the stored row with the same
// fingerprint, all in one transaction.
func (s *SQLiteStorage) UpsertRecords(ctx context.Context, records []model.Record) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateRecords(records); err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			date = excluded.date,
			title = excluded.title,
			place = excluded.place,
			official_name = excluded.official_name,
			cost_amount = excluded.cost_amount,
			cost_currency = excluded.cost_currency,
			expediente_number = excluded.expediente_number,
			institution = excluded.institution,
			scope = excluded.scope,
			source_label = excluded.source_label,
			row_index = excluded.row_index,
			date_estimated = excluded.date_estimated,
			synced_at = excluded.synced_at
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range records {
		r := &records[i]
		syncedAt := r.SyncedAt
		if syncedAt.IsZero() {
			syncedAt = time.Now()
		}
		_, err := stmt.ExecContext(ctx,
			r.Fingerprint,
			r.Date.Format(dateLayout),
			r.Title,
			r.Place,
			r.OfficialName,
			r.CostAmount.String(),
			string(r.CostCurrency),
			nullString(r.ExpedienteNumber),
			nullString(r.Institution),
			string(r.Scope),
			r.SourceLabel,
			r.RowIndex,
			r.DateEstimated,
			syncedAt.UTC(),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert record %s: %w", r.Fingerprint, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit records: %w", err)
	}
	return len(records), nil
}

// GetRecord returns the record with the given fingerprint or common.ErrNotFound.
func (s *SQLiteStorage) GetRecord(ctx context.Context, fingerprint string) (*model.Record, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(fingerprint, "fingerprint"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE fingerprint = ?`, fingerprint)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", fingerprint, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

// ListRecords returns records matching filter, newest first.
func (s *SQLiteStorage) ListRecords(ctx context.Context, filter service.RecordFilter) ([]model.Record, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateFilter(&filter); err != nil {
		return nil, err
	}

	where, args := whereClause(&filter)
	limit := filter.Limit
	if limit == 0 {
		limit = service.DefaultLimit
	}
	if limit > service.MaxLimit {
		limit = service.MaxLimit
	}
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM records`+where+`
		ORDER BY date DESC, source_label, row_index
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// CountRecords returns how many records match filter, ignoring pagination.
func (s *SQLiteStorage) CountRecords(ctx context.Context, filter service.RecordFilter) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateFilter(&filter); err != nil {
		return 0, err
	}

	where, args := whereClause(&filter)
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// SummarizeRecords aggregates the matching records per scope, currency,
// month and official. Amounts are summed as decimals in Go since SQLite
// would sum the text column as floating point.
func (s *SQLiteStorage) SummarizeRecords(ctx context.Context, filter service.RecordFilter) (*service.Summary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateFilter(&filter); err != nil {
		return nil, err
	}

	where, args := whereClause(&filter)
	rows, err := s.db.QueryContext(ctx, `
		SELECT scope, cost_currency, substr(date, 1, 7), official_name, cost_amount
		FROM records`+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byScope := newTotals()
	byCurrency := newTotals()
	byMonth := newTotals()
	byOfficial := newTotals()
	summary := &service.Summary{}

	for rows.Next() {
		var scope, currency, month, official, amountText string
		if err := rows.Scan(&scope, &currency, &month, &official, &amountText); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		amount, err := decimal.NewFromString(amountText)
		if err != nil {
			return nil, fmt.Errorf("stored amount %q is not a decimal: %w", amountText, err)
		}

		cur := model.Currency(currency)
		byScope.add(scope, cur, amount)
		byCurrency.add(currency, cur, amount)
		byMonth.add(month, cur, amount)
		if official != "" {
			byOfficial.add(official, cur, amount)
		}
		summary.RecordCount++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	summary.ByScope = byScope.sorted(byKey)
	summary.ByCurrency = byCurrency.sorted(byKey)
	summary.ByMonth = byMonth.sorted(byKey)
	summary.ByOfficial = byOfficial.sorted(byCount)
	return summary, nil
}

// ListOfficials returns every official with a record count and date span,
// most active first.
func (s *SQLiteStorage) ListOfficials(ctx context.Context) ([]service.OfficialStat, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT official_name, COUNT(*), MIN(date), MAX(date)
		FROM records
		WHERE official_name <> ''
		GROUP BY official_name
		ORDER BY COUNT(*) DESC, official_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query officials: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []service.OfficialStat
	for rows.Next() {
		var stat service.OfficialStat
		var first, last string
		if err := rows.Scan(&stat.Name, &stat.Count, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan official: %w", err)
		}
		if stat.First, err = time.Parse(dateLayout, first); err != nil {
			return nil, fmt.Errorf("invalid stored date %q: %w", first, err)
		}
		if stat.Last, err = time.Parse(dateLayout, last); err != nil {
			return nil, fmt.Errorf("invalid stored date %q: %w", last, err)
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*model.Record, error) {
	var (
		rec                     model.Record
		date, amount, currency  string
		scope                   string
		expediente, institution sql.NullString
	)
	err := row.Scan(
		&rec.Fingerprint,
		&date,
		&rec.Title,
		&rec.Place,
		&rec.OfficialName,
		&amount,
		&currency,
		&expediente,
		&institution,
		&scope,
		&rec.SourceLabel,
		&rec.RowIndex,
		&rec.DateEstimated,
		&rec.SyncedAt,
	)
	if err != nil {
		return nil, err
	}

	if rec.Date, err = time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid stored date %q: %w", date, err)
	}
	if rec.CostAmount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	rec.CostCurrency = model.Currency(currency)
	rec.Scope = model.Scope(scope)
	if expediente.Valid {
		rec.ExpedienteNumber = &expediente.String
	}
	if institution.Valid {
		rec.Institution = &institution.String
	}
	return &rec, nil
}

func whereClause(f *service.RecordFilter) (string, []any) {
	var conds []string
	var args []any

	if f.From != nil {
		conds = append(conds, "date >= ?")
		args = append(args, f.From.Format(dateLayout))
	}
	if f.To != nil {
		conds = append(conds, "date <= ?")
		args = append(args, f.To.Format(dateLayout))
	}
	if f.Scope != "" {
		conds = append(conds, "scope = ?")
		args = append(args, string(f.Scope))
	}
	if f.Official != "" {
		conds = append(conds, "official_name = ? COLLATE NOCASE")
		args = append(args, f.Official)
	}
	if f.Currency != "" {
		conds = append(conds, "cost_currency = ?")
		args = append(args, string(f.Currency))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		conds = append(conds, `(title LIKE ? ESCAPE '\' OR place LIKE ? ESCAPE '\' OR official_name LIKE ? ESCAPE '\'
			OR institution LIKE ? ESCAPE '\' OR expediente_number LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern, pattern, pattern)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

type totalKey struct {
	key      string
	currency model.Currency
}

type totals map[totalKey]*service.Total

func newTotals() totals {
	return make(totals)
}

func (t totals) add(key string, currency model.Currency, amount decimal.Decimal) {
	k := totalKey{key: key, currency: currency}
	total, ok := t[k]
	if !ok {
		total = &service.Total{Key: key, Currency: currency, Amount: decimal.Zero}
		t[k] = total
	}
	total.Amount = total.Amount.Add(amount)
	total.Count++
}

type totalOrder func(a, b *service.Total) bool

func byKey(a, b *service.Total) bool {
	if a.Key != b.Key {
		return a.Key < b.Key
	}
	return a.Currency < b.Currency
}

func byCount(a, b *service.Total) bool {
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	return byKey(a, b)
}

func (t totals) sorted(less totalOrder) []service.Total {
	out := make([]service.Total, 0, len(t))
	for _, total := range t {
		out = append(out, *total)
	}
	sort.Slice(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	return out
}
