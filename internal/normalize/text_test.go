package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "INSTITUCION", Fold("Institución"))
	assert.Equal(t, "FECHA DE INICIO", Fold("  fecha   de\tinicio "))
	assert.Equal(t, "GESTION", Fold("gestión"))
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, IsPlaceholder("   "))
	assert.True(t, IsPlaceholder("NaN"))
	assert.True(t, IsPlaceholder("A  Confirmar"))
	assert.False(t, IsPlaceholder("Congreso"))
}
