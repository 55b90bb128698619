package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// TermSheetSchema is the extraction target shown to the model in the reduce
// prompt. Field names stay in Portuguese because they travel unchanged into
// the output artifact and the prior-extraction merge.
func TermSheetSchema() map[string]any {
	return map[string]any{
		"denominacao_emissao": "string",
		"data_emissao":        "string",
		"numero_emissao":      "string",
		"numero_processo":     "string",
		"volume_total":        "number",
		"securitizadora": map[string]any{
			"nome": "string",
			"cnpj": "string",
			"sede": "string",
		},
		"cedentes":         []any{"string"},
		"devedores":        []any{"string"},
		"agente_fiduciario": "string",
		"auditor":           "string",
		"custodiante":       "string",
		"rating":            "string",
		"creditos": map[string]any{
			"natureza":       "string",
			"valor_total":    "number",
			"lastro":         "string",
			"forma_aquisicao": "string",
		},
		"series": []any{
			map[string]any{
				"nome":            "string",
				"quantidade":      "number",
				"valor_nominal":   "number",
				"remuneracao":     "string",
				"data_vencimento": "string",
				"amortizacao":     "string",
			},
		},
		"informacoes_regulatorias": map[string]any{
			"registro_cvm":      "string",
			"regime_fiduciario": "string",
			"publico_alvo":      "string",
		},
		"disposicoes_gerais": map[string]any{
			"garantias":       "string",
			"eventos_vencimento_antecipado": "string",
			"assembleia_titulares":          "string",
		},
	}
}

// RecordJSONSchema is the structural gate applied to reduce output. It only
// pins the shapes the downstream stages depend on; everything else is free
// form because term sheets vary and nulls are expected.
func RecordJSONSchema() map[string]any {
	return map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type":    "object",
		"properties": map[string]any{
			"numero_processo": map[string]any{
				"type": []any{"string", "null"},
			},
			"volume_total": map[string]any{
				"type": []any{"number", "string", "null"},
			},
			"agente_fiduciario": map[string]any{
				"type": []any{"string", "null"},
			},
			"securitizadora": map[string]any{
				"type": []any{"object", "null"},
				"properties": map[string]any{
					"nome": map[string]any{"type": []any{"string", "null"}},
					"cnpj": map[string]any{"type": []any{"string", "null"}},
				},
			},
			"series": map[string]any{
				"type": []any{"array", "null"},
				"items": map[string]any{
					"type": "object",
				},
			},
		},
	}
}

// ValidateStructure compiles schemaMap and checks data against it.
func ValidateStructure(schemaMap map[string]any, data []byte) error {
	raw, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("llm: marshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("record.json", bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("llm: add schema resource: %w", err)
	}
	schema, err := compiler.Compile("record.json")
	if err != nil {
		return fmt.Errorf("llm: compile schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("llm: unmarshal for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("llm: structural validation: %w", err)
	}
	return nil
}
