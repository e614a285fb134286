package detect

import "github.com/Veraticus/tablero/internal/normalize"

// NotFound is returned by DetectHeaderRow when no row looks like a header.
const NotFound = -1

// HeaderOptions tunes header detection.
type HeaderOptions struct {
	Weights  map[Field]int
	MaxRows  int
	MinScore int
}

// DefaultHeaderOptions scans twenty rows and needs a score of two, which a
// date column alone reaches.
func DefaultHeaderOptions() HeaderOptions {
	return HeaderOptions{
		MaxRows:  20,
		MinScore: 2,
		Weights: map[Field]int{
			FieldDate:             2,
			FieldTitle:            1,
			FieldOfficialName:     1,
			FieldExpedienteNumber: 1,
		},
	}
}

// DetectHeaderRow returns the index of the first row among the first
// opts.MaxRows whose score reaches opts.MinScore, or NotFound.
func DetectHeaderRow(rows [][]string, table KeywordTable, opts HeaderOptions) int {
	limit := opts.MaxRows
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}

	for i := 0; i < limit; i++ {
		if ScoreRow(rows[i], table, opts.Weights) >= opts.MinScore {
			return i
		}
	}
	return NotFound
}

// ScoreRow adds the weight of every keyword group present somewhere in row.
// A group counts once no matter how many cells match it.
func ScoreRow(row []string, table KeywordTable, weights map[Field]int) int {
	folded := make([]string, len(row))
	for i, cell := range row {
		folded[i] = normalize.Fold(cell)
	}

	score := 0
	for f, w := range weights {
		for _, cell := range folded {
			if table.Matches(f, cell) {
				score += w
				break
			}
		}
	}
	return score
}
