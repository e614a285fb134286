package api

import (
	"net/url"
	"testing"
	"time"

	"github.com/Veraticus/tablero/internal/model"
	"github.com/Veraticus/tablero/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	q := url.Values{
		"from":     {"2024-03-01"},
		"to":       {"2024-03-31"},
		"scope":    {"Gestion"},
		"currency": {" eur "},
		"official": {" Ana Pérez "},
		"q":        {"cumbre"},
		"limit":    {"25"},
		"offset":   {"50"},
	}

	f, err := parseFilter(q)
	require.NoError(t, err)

	require.NotNil(t, f.From)
	require.NotNil(t, f.To)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), *f.From)
	assert.Equal(t, time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), *f.To)
	assert.Equal(t, model.ScopeGestion, f.Scope)
	assert.Equal(t, model.CurrencyEUR, f.Currency)
	assert.Equal(t, "Ana Pérez", f.Official)
	assert.Equal(t, "cumbre", f.Query)
	assert.Equal(t, 25, f.Limit)
	assert.Equal(t, 50, f.Offset)
}

func TestParseFilter_Defaults(t *testing.T) {
	f, err := parseFilter(url.Values{})
	require.NoError(t, err)
	assert.Nil(t, f.From)
	assert.Nil(t, f.To)
	assert.Equal(t, service.DefaultLimit, f.Limit)
	assert.Zero(t, f.Offset)

	f, err = parseFilter(url.Values{"limit": {"100000"}})
	require.NoError(t, err)
	assert.Equal(t, service.MaxLimit, f.Limit)
}
