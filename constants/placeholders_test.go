package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, IsPlaceholder(nil))
	assert.True(t, IsPlaceholder(""))
	assert.True(t, IsPlaceholder("  "))
	assert.True(t, IsPlaceholder("N/A"))
	assert.True(t, IsPlaceholder("n/a"))
	assert.True(t, IsPlaceholder("Não especificado"))
	assert.True(t, IsPlaceholder("NAO INFORMADO"))
	assert.True(t, IsPlaceholder("-"))

	assert.False(t, IsPlaceholder("Agente X"))
	assert.False(t, IsPlaceholder(0.0), "numeric zero is data, not filler")
	assert.False(t, IsPlaceholder(false))
}
