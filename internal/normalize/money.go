package normalize

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/tablero/internal/model"
)

// Money is an amount parsed from a cell together with its currency.
type Money struct {
	Amount   decimal.Decimal
	Currency model.Currency
}

// currencyKeywords is checked in order; the first currency with a keyword
// present in the cell wins. Cells without any keyword are pesos.
var currencyKeywords = []struct {
	currency model.Currency
	keywords []string
}{
	{currency: model.CurrencyUSD, keywords: []string{"USD", "DOLAR", "U$S", "US$"}},
	{currency: model.CurrencyEUR, keywords: []string{"EUR", "EURO", "€"}},
}

// DetectCurrency returns the currency named in a raw money cell, or ARS when
// the cell names none. A bare "$" is the peso sign.
func DetectCurrency(raw string) model.Currency {
	folded := Fold(raw)
	for _, c := range currencyKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(folded, kw) {
				return c.currency
			}
		}
	}
	return model.CurrencyARS
}

// ParseMoney parses cells such as "USD 1.500,00", "$ 50.000,00" or
// "1,200.50". It never fails: unreadable amounts come back as zero.
func ParseMoney(raw string) Money {
	if IsPlaceholder(raw) {
		return Money{Amount: decimal.Zero, Currency: model.CurrencyARS}
	}

	m := Money{Amount: decimal.Zero, Currency: DetectCurrency(raw)}
	if amount, ok := ParseAmount(raw); ok {
		m.Amount = amount
	}
	return m
}

// ParseAmount extracts a decimal amount, resolving which of "." and "," is
// the decimal separator.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == ',' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, raw)

	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "-")
	if cleaned == "" {
		return decimal.Zero, false
	}

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")

	switch {
	case hasComma && hasDot:
		if strings.Index(cleaned, ",") < strings.Index(cleaned, ".") {
			// 2,363.60
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			// 1.500,00
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		}
	case hasComma:
		last := strings.LastIndex(cleaned, ",")
		if len(cleaned)-last-1 == 2 {
			cleaned = strings.ReplaceAll(cleaned[:last], ",", "") + "." + cleaned[last+1:]
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case strings.Count(cleaned, ".") > 1:
		// 1.500.000
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, true
}
