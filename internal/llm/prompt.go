package llm

import (
	"encoding/json"
	"fmt"
)

const mapSystemPrompt = `Você é um assistente de sumarização. Sua tarefa é ler o trecho de texto e
sumarizá-lo em alguns pontos principais. Foque em dados financeiros,
nomes de empresas (Securitizadora, Cedente, Agente Fiduciário),
datas, valores, obrigações e características dos títulos.
Se o trecho for irrelevante (ex: índice, página em branco), retorne 'N/A'.`

const mergeSystemPrompt = `You are an assistant specialized in consolidating contract data.

The "Old JSON" represents the current, correct state of the contract.
The "New JSON" represents a possible update (addendum).

Your goal is to merge both into a *final consolidated JSON* following these strict rules:

1. Start with an exact copy of the "Old JSON".

2. Use the values from the "New JSON" to update the "Old JSON" ONLY IF:
- The new value is **not null**, **not empty**, and **not a placeholder**
    such as "Não especificado", "N/A", "Não informado", or similar.

3. If a field in the "New JSON" has one of these placeholder values,
the old value MUST be preserved — it must NOT be overwritten.

4. If a field in the "Old JSON" exists but is missing in the "New JSON",
keep the old value as-is.

5. When the field is a list (for example, "series"), perform a *deep merge*:
- Match items by their "nome" (e.g., "1ª Série", "2ª Série").
- Update only the subfields in that specific item that meet rule (2).
- Keep all other fields and series unchanged.

6. Never duplicate items in a list. If a series already exists, update it;
if it does not exist, append it.

7. Respond **only** with the final merged JSON object — no markdown, no comments, no explanations.`

// MapPrompts builds the summarization call for one chunk.
func MapPrompts(chunk string) (system, user string) {
	user = fmt.Sprintf("<contexto>\n%s\n</contexto>\n\nSumarize os pontos principais deste contexto.", chunk)
	return mapSystemPrompt, user
}

// ReducePrompts builds the extraction call that turns the aggregated
// summaries into the final JSON record.
func ReducePrompts(superSummary string, schema map[string]any) (system, user string) {
	system = fmt.Sprintf(`Você é um assistente especialista em análise de documentos financeiros.
Sua tarefa é extrair dados de um *sumário* de documento e formatá-los em JSON.

Formato de Saída (JSON Schema Completo):
<schema>
%s
</schema>

Responda *APENAS* com o JSON preenchido. Não inclua '`+"```json"+`', introduções ou explicações.
Como você está lendo um sumário, é normal que muitos campos fiquem 'null'.`, mustJSON(schema))
	user = fmt.Sprintf("<contexto_sumarizado>\n%s\n</contexto_sumarizado>\n\nExtraia os dados deste contexto.", superSummary)
	return system, user
}

// MergePrompts builds the consolidation call between the most recent prior
// extraction and the freshly extracted record.
func MergePrompts(prior, current map[string]any) (system, user string) {
	user = fmt.Sprintf(`<json_antigo>
%s
</json_antigo>

<json_novo_aditamento>
%s
</json_novo_aditamento>

Por favor, retorne o JSON final mesclado.`, mustJSON(prior), mustJSON(current))
	return mergeSystemPrompt, user
}

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
