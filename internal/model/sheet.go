package model

// RawSheet is one worksheet as read from a source: untyped cell text with
// the original row and column order.
type RawSheet struct {
	Name string
	Rows [][]string
}

// IsBlank reports whether every cell in the sheet is empty.
func (s *RawSheet) IsBlank() bool {
	for _, row := range s.Rows {
		for _, cell := range row {
			if cell != "" {
				return false
			}
		}
	}
	return true
}

// Workbook is the set of sheets downloaded from one source.
type Workbook struct {
	Source string
	Sheets []RawSheet
}
