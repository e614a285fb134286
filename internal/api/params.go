package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/tablero/internal/model"
	"github.com/Veraticus/tablero/internal/service"
)

// parseFilter reads the record filter query parameters. Pagination
// defaults to service.DefaultLimit and is capped at service.MaxLimit.
func parseFilter(q url.Values) (service.RecordFilter, error) {
	var f service.RecordFilter

	for _, p := range []struct {
		dst  **time.Time
		name string
	}{
		{&f.From, "from"},
		{&f.To, "to"},
	} {
		raw := strings.TrimSpace(q.Get(p.name))
		if raw == "" {
			continue
		}
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return f, fmt.Errorf("invalid %s: expected YYYY-MM-DD", p.name)
		}
		*p.dst = &d
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, fmt.Errorf("invalid range: to is before from")
	}

	if raw := q.Get("scope"); raw != "" {
		scope, err := model.ParseScope(raw)
		if err != nil {
			return f, err
		}
		f.Scope = scope
	}

	if raw := q.Get("currency"); raw != "" {
		f.Currency = model.Currency(strings.ToUpper(strings.TrimSpace(raw)))
		if !f.Currency.IsValid() {
			return f, fmt.Errorf("unknown currency %q", raw)
		}
	}

	f.Official = strings.TrimSpace(q.Get("official"))
	f.Query = strings.TrimSpace(q.Get("q"))

	limit, err := parseNonNegative(q, "limit")
	if err != nil {
		return f, err
	}
	switch {
	case limit == 0:
		limit = service.DefaultLimit
	case limit > service.MaxLimit:
		limit = service.MaxLimit
	}
	f.Limit = limit

	if f.Offset, err = parseNonNegative(q, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func parseNonNegative(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: expected a non-negative integer", name)
	}
	return n, nil
}
