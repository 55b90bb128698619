package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnforcePrecedenceNewValueWins(t *testing.T) {
	prior := map[string]any{"volume_total": 1000.0}
	newRec := map[string]any{"volume_total": 2000.0}
	merged := map[string]any{"volume_total": 2000.0}

	out := EnforcePrecedence(prior, newRec, merged)
	assert.Equal(t, 2000.0, out["volume_total"])
}

func TestEnforcePrecedencePlaceholderNeverOverwrites(t *testing.T) {
	prior := map[string]any{"agente_fiduciario": "Agente X"}
	newRec := map[string]any{"agente_fiduciario": "Não especificado"}
	// The model wrongly let the placeholder through.
	merged := map[string]any{"agente_fiduciario": "Não especificado"}

	out := EnforcePrecedence(prior, newRec, merged)
	assert.Equal(t, "Agente X", out["agente_fiduciario"])
}

func TestEnforcePrecedenceNilNeverOverwrites(t *testing.T) {
	prior := map[string]any{"rating": "brAAA"}
	newRec := map[string]any{"rating": nil}
	merged := map[string]any{"rating": nil}

	out := EnforcePrecedence(prior, newRec, merged)
	assert.Equal(t, "brAAA", out["rating"])
}

func TestEnforcePrecedencePriorOnlyKeysSurvive(t *testing.T) {
	prior := map[string]any{"custodiante": "Banco Y", "rating": "brAAA"}
	newRec := map[string]any{"rating": "brAA+"}
	// The model dropped the prior-only key entirely.
	merged := map[string]any{"rating": "brAA+"}

	out := EnforcePrecedence(prior, newRec, merged)
	assert.Equal(t, "Banco Y", out["custodiante"])
	assert.Equal(t, "brAA+", out["rating"])
}

func TestEnforcePrecedenceNestedObjects(t *testing.T) {
	prior := map[string]any{
		"securitizadora": map[string]any{"nome": "Secur", "cnpj": "12345678000190"},
	}
	newRec := map[string]any{
		"securitizadora": map[string]any{"nome": "Secur Nova Denominação", "cnpj": "N/A"},
	}
	merged := map[string]any{
		"securitizadora": map[string]any{"nome": "Secur Nova Denominação", "cnpj": "N/A"},
	}

	out := EnforcePrecedence(prior, newRec, merged)
	sec, ok := out["securitizadora"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Secur Nova Denominação", sec["nome"])
	assert.Equal(t, "12345678000190", sec["cnpj"], "placeholder CNPJ must not clobber the prior value")
}

func TestEnforcePrecedenceSeriesDeepMerge(t *testing.T) {
	prior := map[string]any{
		"series": []any{
			map[string]any{"nome": "1ª Série", "quantidade": 100.0, "remuneracao": "CDI + 2%"},
			map[string]any{"nome": "2ª Série", "quantidade": 50.0},
		},
	}
	newRec := map[string]any{
		"series": []any{
			map[string]any{"nome": "1ª Série", "quantidade": 120.0, "remuneracao": "N/A"},
			map[string]any{"nome": "3ª Série", "quantidade": 30.0},
		},
	}
	merged := map[string]any{"series": newRec["series"]}

	out := EnforcePrecedence(prior, newRec, merged)
	series, ok := out["series"].([]any)
	require.True(t, ok)
	require.Len(t, series, 3, "existing series update + new series append, no duplicates")

	first := series[0].(map[string]any)
	assert.Equal(t, "1ª Série", first["nome"])
	assert.Equal(t, 120.0, first["quantidade"], "real new value updates the matched series")
	assert.Equal(t, "CDI + 2%", first["remuneracao"], "placeholder keeps the prior subfield")

	second := series[1].(map[string]any)
	assert.Equal(t, "2ª Série", second["nome"], "untouched prior series survives in place")

	third := series[2].(map[string]any)
	assert.Equal(t, "3ª Série", third["nome"])
}

func TestEnforcePrecedenceEmptyPrior(t *testing.T) {
	newRec := map[string]any{"volume_total": 500.0}
	out := EnforcePrecedence(map[string]any{}, newRec, newRec)
	assert.Equal(t, 500.0, out["volume_total"])
}
