package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_IgnoresCaseAccentsAndSpacing(t *testing.T) {
	base := Record{
		Date:         time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
		Title:        "Reunión con intendentes",
		OfficialName: "Ana Pérez",
		SourceLabel:  SourceLabel("agenda", "Marzo 2024"),
	}
	edited := base
	edited.Title = "  REUNION con  Intendentes "
	edited.OfficialName = "ana perez"

	assert.Equal(t, Fingerprint(&base, "1"), Fingerprint(&edited, "1"))
	assert.Equal(t, base.ContentKey(), edited.ContentKey())
}

func TestFingerprint_Distinguishes(t *testing.T) {
	base := Record{
		Date:         time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
		Title:        "Acto",
		OfficialName: "Ana",
		SourceLabel:  "agenda / Marzo",
	}

	tests := []struct {
		name   string
		modify func(r *Record)
		salt   string
	}{
		{name: "date", modify: func(r *Record) { r.Date = r.Date.AddDate(0, 0, 1) }},
		{name: "title", modify: func(r *Record) { r.Title = "Acto central" }},
		{name: "official", modify: func(r *Record) { r.OfficialName = "Juan" }},
		{name: "source", modify: func(r *Record) { r.SourceLabel = "agenda / Abril" }},
		{name: "salt", modify: func(*Record) {}, salt: "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base
			tt.modify(&other)
			assert.NotEqual(t, Fingerprint(&base, ""), Fingerprint(&other, tt.salt))
		})
	}
}
