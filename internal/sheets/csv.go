package sheets

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// sniffLines is how many leading lines are inspected to pick a delimiter.
const sniffLines = 20

var csvDelimiters = []rune{';', '\t', ',', '|'}

// ReadCSV parses delimited text, sniffing the delimiter from the first lines.
// Rows may have different lengths. Input that is not valid UTF-8 is taken to
// be Windows-1252, the encoding Excel uses for CSV on Spanish Windows.
func ReadCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		data, err = charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode Windows-1252 text: %w", err)
		}
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = SniffDelimiter(data)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	return reader.ReadAll()
}

// SniffDelimiter picks the candidate delimiter that appears most often in
// the first lines of data. Comma wins when none appear.
func SniffDelimiter(data []byte) rune {
	counts := make(map[rune]int, len(csvDelimiters))
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for i := 0; i < sniffLines && scanner.Scan(); i++ {
		line := scanner.Text()
		for _, d := range csvDelimiters {
			counts[d] += strings.Count(line, string(d))
		}
	}

	best, bestCount := ',', 0
	for _, d := range csvDelimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}
