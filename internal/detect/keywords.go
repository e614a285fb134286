// Package detect finds the header row of arbitrarily shaped sheets and maps
// their columns onto the canonical record fields.
package detect

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tablero/internal/normalize"
)

// Field is a canonical semantic column, independent of the header text a
// given sheet uses for it.
type Field string

// Canonical fields.
const (
	FieldDate             Field = "DATE"
	FieldTitle            Field = "TITLE"
	FieldPlace            Field = "PLACE"
	FieldOfficialName     Field = "OFFICIAL_NAME"
	FieldCost             Field = "COST"
	FieldExpedienteNumber Field = "EXPEDIENTE_NUMBER"
	FieldInstitution      Field = "INSTITUTION"
	FieldScope            Field = "SCOPE"
)

// Fields lists the canonical fields in mapping priority order.
var Fields = []Field{
	FieldDate,
	FieldTitle,
	FieldPlace,
	FieldOfficialName,
	FieldCost,
	FieldExpedienteNumber,
	FieldInstitution,
	FieldScope,
}

// ParseField accepts a field name in any case.
func ParseField(s string) (Field, error) {
	f := Field(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Fields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", s)
}

// KeywordTable maps each canonical field to the substrings that identify it
// in a header cell. Keywords are compared after folding, so case and accents
// do not matter.
type KeywordTable map[Field][]string

// DefaultKeywords returns the keyword table for the office's travel and
// agenda sheets.
func DefaultKeywords() KeywordTable {
	return KeywordTable{
		FieldDate:             {"FECHA", "DATE", "PERIODO"},
		FieldTitle:            {"EVENTO", "ACTIVIDAD", "TITULO", "ASUNTO", "MOTIVO", "DESCRIPCION", "DETALLE", "OBJETO"},
		FieldPlace:            {"LUGAR", "DESTINO", "CIUDAD", "LOCALIDAD", "UBICACION", "PAIS"},
		FieldOfficialName:     {"FUNCIONARIO", "AGENTE", "NOMBRE", "APELLIDO", "VIAJERO", "RESPONSABLE"},
		FieldCost:             {"COSTO", "IMPORTE", "MONTO", "GASTO", "TOTAL", "VALOR", "PRECIO"},
		FieldExpedienteNumber: {"EXPEDIENTE", "EXPTE", "EXP."},
		FieldInstitution:      {"INSTITUCION", "ORGANISMO", "ENTIDAD", "DEPENDENCIA", "ORGANIZADOR"},
		FieldScope:            {"AMBITO", "ALCANCE", "TIPO", "CARACTER", "CATEGORIA"},
	}
}

// WithOverrides returns a copy of t where the fields named in overrides use
// the given keyword lists instead of their defaults.
func (t KeywordTable) WithOverrides(overrides map[string][]string) (KeywordTable, error) {
	out := make(KeywordTable, len(t))
	for f, kws := range t {
		out[f] = append([]string(nil), kws...)
	}
	for name, kws := range overrides {
		f, err := ParseField(name)
		if err != nil {
			return nil, err
		}
		if len(kws) == 0 {
			return nil, fmt.Errorf("field %s: keyword list cannot be empty", f)
		}
		out[f] = append([]string(nil), kws...)
	}
	return out, nil
}

// Matches reports whether a folded header cell contains one of the field's
// keywords.
func (t KeywordTable) Matches(f Field, folded string) bool {
	if folded == "" {
		return false
	}
	for _, kw := range t[f] {
		if strings.Contains(folded, normalize.Fold(kw)) {
			return true
		}
	}
	return false
}
