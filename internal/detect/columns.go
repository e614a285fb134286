package detect

import (
	"strings"

	"github.com/Veraticus/tablero/internal/normalize"
)

// Column identifies a source column by position and original header text.
type Column struct {
	Name  string
	Index int
}

// ColumnMap assigns source columns to canonical fields. Fields without a
// matching column are absent.
type ColumnMap map[Field]Column

// Has reports whether f was mapped.
func (m ColumnMap) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// Value returns the trimmed cell for f in row. Short rows and unmapped
// fields give an empty string.
func (m ColumnMap) Value(row []string, f Field) string {
	col, ok := m[f]
	if !ok || col.Index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col.Index])
}

// dateRequestMarkers identify date columns that hold when a trip was
// requested or authorized rather than when it happened.
var dateRequestMarkers = []string{"SOLICITUD", "AUTORIZA"}

// MapColumns walks the fields in priority order; each field claims the first
// unclaimed column whose folded header contains one of its keywords. For the
// date field, a column mentioning a request or authorization only wins when
// no other date column exists.
func MapColumns(header []string, table KeywordTable) ColumnMap {
	folded := make([]string, len(header))
	for i, h := range header {
		folded[i] = normalize.Fold(h)
	}

	claimed := make(map[int]bool, len(header))
	out := make(ColumnMap)

	for _, f := range Fields {
		idx := NotFound
		fallback := NotFound
		for i, h := range folded {
			if claimed[i] || !table.Matches(f, h) {
				continue
			}
			if f == FieldDate && containsAny(h, dateRequestMarkers) {
				if fallback == NotFound {
					fallback = i
				}
				continue
			}
			idx = i
			break
		}
		if idx == NotFound {
			idx = fallback
		}
		if idx == NotFound {
			continue
		}
		claimed[idx] = true
		out[f] = Column{Index: idx, Name: strings.TrimSpace(header[idx])}
	}

	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
