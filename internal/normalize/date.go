package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Defaults used by NormalizeDate.
const (
	DefaultFallbackYear = 2025
	DefaultMinYear      = 2020
	DefaultMaxYear      = 2030
)

// spreadsheetEpoch is day zero for serial dates in Sheets and Excel.
var spreadsheetEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var (
	yearHintRe  = regexp.MustCompile(`(?:^|\D)(20\d{2})(?:\D|$)`)
	isoTimeRe   = regexp.MustCompile(`t\d{1,2}:\d{2}.*$`)
	clockRe     = regexp.MustCompile(`\s*\d{1,2}:\d{2}(?::\d{2}(?:\.\d+)?)?\s*(?:a\.?m\.?|p\.?m\.?|hs|hrs|h)?\.?$`)
	hoursRe     = regexp.MustCompile(`\s+\d{1,2}\s*(?:hs|hrs)\.?$`)
	atHourRe    = regexp.MustCompile(`\s+a\s+las?\s+\d.*$`)
	serialRe    = regexp.MustCompile(`^\d{5}(?:\.\d+)?$`)
	connectorRe = regexp.MustCompile(`\b(?:de|del)\b`)
	wordRangeRe = regexp.MustCompile(`^(.*?\d.*?)\s+(?:al|a|y|hasta)\s+(.*\d.*)$`)
	dashRangeRe = regexp.MustCompile(`^(\d{1,2})\s*-\s*(\d{1,2}\D.*)$`)
	tokenRe     = regexp.MustCompile(`(#?)(\d+)`)
	monthNameRe = regexp.MustCompile(`\b(septiembre|setiembre|noviembre|diciembre|febrero|octubre|agosto|` +
		`enero|marzo|abril|mayo|junio|julio|sept|set|ene|feb|mar|abr|may|jun|jul|ago|sep|oct|nov|dic)\b\.?`)
)

var monthNumbers = map[string]int{
	"enero": 1, "ene": 1,
	"febrero": 2, "feb": 2,
	"marzo": 3, "mar": 3,
	"abril": 4, "abr": 4,
	"mayo": 5, "may": 5,
	"junio": 6, "jun": 6,
	"julio": 7, "jul": 7,
	"agosto": 8, "ago": 8,
	"septiembre": 9, "setiembre": 9, "sept": 9, "set": 9, "sep": 9,
	"octubre": 10, "oct": 10,
	"noviembre": 11, "nov": 11,
	"diciembre": 12, "dic": 12,
}

// DateNormalizer resolves loosely written dates found in agenda and travel
// sheets. Dates without a year take the year found in the context hint
// (usually the sheet name), or FallbackYear when the hint has none. Resolved
// years outside [MinYear, MaxYear] are treated as mis-parsed and replaced by
// the context year.
type DateNormalizer struct {
	FallbackYear int
	MinYear      int
	MaxYear      int
}

// DefaultDateNormalizer returns a normalizer with the package defaults.
func DefaultDateNormalizer() DateNormalizer {
	return DateNormalizer{
		FallbackYear: DefaultFallbackYear,
		MinYear:      DefaultMinYear,
		MaxYear:      DefaultMaxYear,
	}
}

// NormalizeDate resolves raw with the default normalizer.
func NormalizeDate(raw, contextHint string) (time.Time, bool) {
	return DefaultDateNormalizer().Normalize(raw, contextHint)
}

// YearFromHint returns the first year between 2000 and 2099 in hint.
func YearFromHint(hint string) (int, bool) {
	m := yearHintRe.FindStringSubmatch(hint)
	if m == nil {
		return 0, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return year, true
}

// Normalize returns the calendar date written in raw, or false when raw is
// empty, a placeholder, or cannot be read as a date. Ranges such as
// "12 al 15/03" resolve to their end date.
func (n DateNormalizer) Normalize(raw, contextHint string) (time.Time, bool) {
	if IsPlaceholder(raw) {
		return time.Time{}, false
	}

	year := n.FallbackYear
	if y, ok := YearFromHint(contextHint); ok {
		year = y
	}

	s := strings.ToLower(CleanText(StripAccents(raw)))
	s = strings.NewReplacer("–", "-", "—", "-").Replace(s)
	s = stripTime(s)
	if s == "" {
		return time.Time{}, false
	}

	if serialRe.MatchString(s) {
		return n.fromSerial(s, year)
	}

	hasMonthName := monthNameRe.MatchString(s)
	s = monthNameRe.ReplaceAllStringFunc(s, func(name string) string {
		return " #" + strconv.Itoa(monthNumbers[strings.TrimSuffix(name, ".")]) + " "
	})
	s = CleanText(connectorRe.ReplaceAllString(s, " "))

	var start, end datePart
	switch {
	case wordRangeRe.MatchString(s):
		m := wordRangeRe.FindStringSubmatch(s)
		start, end = parsePart(m[1]), parsePart(m[2])
	case (hasMonthName || strings.Contains(s, "/")) && dashRangeRe.MatchString(s):
		m := dashRangeRe.FindStringSubmatch(s)
		start, end = parsePart(m[1]), parsePart(m[2])
	default:
		end = parsePart(s)
	}

	if end.month == 0 {
		end.month = start.month
	}
	if end.year == 0 {
		end.year = start.year
	}
	if end.day == 0 && end.month != 0 {
		end.day = 1
	}

	return n.build(end, year)
}

func stripTime(s string) string {
	s = isoTimeRe.ReplaceAllString(s, "")
	s = atHourRe.ReplaceAllString(s, "")
	s = clockRe.ReplaceAllString(s, "")
	s = hoursRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func (n DateNormalizer) fromSerial(s string, year int) (time.Time, bool) {
	days, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, false
	}
	t := spreadsheetEpoch.AddDate(0, 0, int(days))
	return n.build(datePart{day: t.Day(), month: int(t.Month()), year: t.Year()}, year)
}

// datePart holds whatever components one side of a date expression gave.
// Zero means the component was not present.
type datePart struct {
	day   int
	month int
	year  int
}

type dateToken struct {
	value  int
	digits int
	month  bool
}

func parsePart(s string) datePart {
	var tokens []dateToken
	for _, m := range tokenRe.FindAllStringSubmatch(s, -1) {
		v, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		tokens = append(tokens, dateToken{value: v, digits: len(m[2]), month: m[1] == "#"})
	}

	var p datePart
	for _, t := range tokens {
		if t.month {
			p.month = t.value
		}
	}
	if p.month != 0 {
		for _, t := range tokens {
			switch {
			case t.month:
			case t.digits == 4 && p.year == 0:
				p.year = t.value
			case p.day == 0:
				p.day = t.value
			case p.year == 0:
				p.year = t.value
			}
		}
		return p
	}

	switch {
	case len(tokens) >= 3 && tokens[0].digits == 4:
		p.year, p.month, p.day = tokens[0].value, tokens[1].value, tokens[2].value
	case len(tokens) >= 3:
		p.day, p.month, p.year = tokens[0].value, tokens[1].value, tokens[2].value
	case len(tokens) == 2 && tokens[1].digits == 4:
		p.month, p.year = tokens[0].value, tokens[1].value
	case len(tokens) == 2 && tokens[0].digits == 4:
		p.year, p.month = tokens[0].value, tokens[1].value
	case len(tokens) == 2:
		p.day, p.month = tokens[0].value, tokens[1].value
		// 03/25 can only be month-first.
		if p.month > 12 && p.day <= 12 {
			p.day, p.month = p.month, p.day
		}
	case len(tokens) == 1 && tokens[0].digits == 4:
		p.year = tokens[0].value
	case len(tokens) == 1:
		p.day = tokens[0].value
	}

	if len(tokens) >= 3 && tokens[0].digits != 4 && p.month > 12 && p.day <= 12 {
		p.day, p.month = p.month, p.day
	}
	return p
}

func (n DateNormalizer) build(p datePart, contextYear int) (time.Time, bool) {
	if p.month < 1 || p.month > 12 || p.day < 1 || p.day > 31 {
		return time.Time{}, false
	}

	year := p.year
	switch {
	case year == 0:
		year = contextYear
	case year < 100:
		year += 2000
	}
	if year < n.MinYear || year > n.MaxYear {
		year = contextYear
	}

	t := time.Date(year, time.Month(p.month), p.day, 0, 0, 0, 0, time.UTC)
	if t.Day() != p.day || int(t.Month()) != p.month {
		return time.Time{}, false
	}
	return t, true
}

// MonthFromText returns the month named (in Spanish) anywhere in s.
func MonthFromText(s string) (int, bool) {
	name := monthNameRe.FindString(strings.ToLower(StripAccents(s)))
	if name == "" {
		return 0, false
	}
	return monthNumbers[strings.TrimSuffix(name, ".")], true
}
