// Package model contains the canonical types shared by the ingestion pipeline, the store and the API.
package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Currency is an ISO 4217 code for the currencies found in expense sheets.
type Currency string

// Supported currencies.
const (
	CurrencyARS Currency = "ARS"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// IsValid reports whether c is one of the supported currencies.
func (c Currency) IsValid() bool {
	switch c {
	case CurrencyARS, CurrencyUSD, CurrencyEUR:
		return true
	default:
		return false
	}
}

// Scope tags the origin of a record: domestic or international travel,
// official agenda, or administrative management.
type Scope string

// Known scopes.
const (
	ScopeNacional      Scope = "Nacional"
	ScopeInternacional Scope = "Internacional"
	ScopeOficial       Scope = "Oficial"
	ScopeGestion       Scope = "Gestión"
)

// ParseScope maps a configured scope name to a Scope. Matching ignores case
// and the accent in "Gestión".
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nacional":
		return ScopeNacional, nil
	case "internacional":
		return ScopeInternacional, nil
	case "oficial":
		return ScopeOficial, nil
	case "gestión", "gestion":
		return ScopeGestion, nil
	default:
		return "", fmt.Errorf("unknown scope %q", s)
	}
}

// Record is the canonical unit produced by the ingestion pipeline.
type Record struct {
	Date             time.Time
	SyncedAt         time.Time
	CostAmount       decimal.Decimal
	ExpedienteNumber *string
	Institution      *string
	Title            string
	Place            string
	OfficialName     string
	CostCurrency     Currency
	Scope            Scope
	SourceLabel      string
	Fingerprint      string
	RowIndex         int
	DateEstimated    bool
}

// ContentKey is the part of a record that identifies it independently of
// where it sits in the sheet. Title and official are compared ignoring case,
// accents and spacing.
func (r *Record) ContentKey() string {
	return strings.Join([]string{
		r.Date.Format("2006-01-02"),
		foldKey(r.Title),
		foldKey(r.OfficialName),
		r.SourceLabel,
	}, "\x1f")
}

func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(t, s); err == nil {
		s = stripped
	}
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// Fingerprint hashes a record's content key together with a salt that
// separates rows whose content collides.
func Fingerprint(r *Record, salt string) string {
	data := r.ContentKey()
	if salt != "" {
		data += "\x1f" + salt
	}
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// SourceLabel builds the provenance tag stored on every record.
func SourceLabel(source, sheet string) string {
	return source + " / " + sheet
}
