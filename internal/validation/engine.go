// Package validation reconciles extracted records against the CVM
// securitization registry export.
package validation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dfcoelho/cri-extractor/constants"
	"github.com/dfcoelho/cri-extractor/internal/storage"
)

// Divergence is one field whose extracted value disagrees with the
// registry after both sides are normalized.
type Divergence struct {
	Campo    string `json:"campo"`
	ValorLLM any    `json:"valor_llm"`
	ValorCVM any    `json:"valor_cvm"`
	Detalhe  string `json:"detalhe"`
}

// Result is the validation block embedded in the output artifact.
type Result struct {
	Status        constants.ValidationStatus `json:"status"`
	Timestamp     string                     `json:"timestamp_validacao"`
	FonteDadosCVM string                     `json:"fonte_dados_cvm,omitempty"`
	ChaveMatch    string                     `json:"chave_match,omitempty"`
	MotivoFalha   string                     `json:"motivo_falha,omitempty"`
	Divergencias  []Divergence               `json:"divergencias"`
}

type fieldKind int

const (
	kindMonetary fieldKind = iota
	kindName
)

type comparedField struct {
	label     string
	jsonPath  []string
	cvmColumn string
	kind      fieldKind
}

var comparedFields = []comparedField{
	{label: "Volume Total", jsonPath: []string{"volume_total"}, cvmColumn: colTotal, kind: kindMonetary},
	{label: "Securitizadora", jsonPath: []string{"securitizadora", "nome"}, cvmColumn: colIssuer, kind: kindName},
	{label: "Agente Fiduciário", jsonPath: []string{"agente_fiduciario"}, cvmColumn: colFiduciary, kind: kindName},
}

// Engine loads the registry export lazily and answers validation queries.
// The parsed dataset is cached for the lifetime of the process; a failed
// load is retried on the next call.
type Engine struct {
	store  storage.ObjectStore
	bucket string
	key    string
	logger *slog.Logger

	mu sync.Mutex
	ds *Dataset
}

func NewEngine(store storage.ObjectStore, bucket, key string, logger *slog.Logger) *Engine {
	return &Engine{store: store, bucket: bucket, key: key, logger: logger}
}

func (e *Engine) dataset(ctx context.Context) (*Dataset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ds != nil {
		return e.ds, nil
	}
	if e.bucket == "" || e.key == "" {
		return nil, fmt.Errorf("validation: dataset location not configured")
	}
	data, err := e.store.Get(ctx, e.bucket, e.key)
	if err != nil {
		return nil, fmt.Errorf("validation: fetch dataset: %w", err)
	}
	ds, err := ParseDataset(data, e.key)
	if err != nil {
		return nil, err
	}
	e.logger.Info("validation.dataset.loaded",
		"key", e.key,
		"rows", ds.Len())
	e.ds = ds
	return ds, nil
}

// Validate matches the record against the registry and reconciles the
// compared fields. processRaw is the cleaned process-number field; multiple
// candidates separated by ";" or "," are tried in order until one matches.
func (e *Engine) Validate(ctx context.Context, record map[string]any, processRaw string, now time.Time) Result {
	ds, err := e.dataset(ctx)
	if err != nil {
		e.logger.Error("validation.dataset.failed", "error", err)
		return Result{
			Status:       constants.ValidationError,
			Timestamp:    ts(now),
			MotivoFalha:  err.Error(),
			Divergencias: []Divergence{},
		}
	}

	cnpj := nestedValue(record, []string{"securitizadora", "cnpj"})
	emissao := record["numero_emissao"]

	candidates := splitCandidates(processRaw)
	var matched Row
	var matchedKey string
	for _, proc := range candidates {
		key := BuildMatchKey(cnpj, emissao, proc)
		if key == "" {
			continue
		}
		if row, ok := ds.Lookup(key); ok {
			matched = row
			matchedKey = key
			break
		}
	}

	if matched == nil {
		e.logger.Warn("validation.match.miss",
			"candidates", candidates)
		return Result{
			Status:       constants.ValidationRejected,
			Timestamp:    ts(now),
			ChaveMatch:   fmt.Sprintf("Tentativas falharam para processos: %v", candidates),
			MotivoFalha:  "Registro não localizado na base CVM.",
			Divergencias: []Divergence{},
		}
	}

	divergences := compareFields(record, matched)
	status := constants.ValidationApproved
	if len(divergences) > 0 {
		status = constants.ValidationRejected
	}

	e.logger.Info("validation.match.ok",
		"chave_match", matchedKey,
		"status", status,
		"divergencias", len(divergences))
	return Result{
		Status:        status,
		Timestamp:     ts(now),
		FonteDadosCVM: ds.SourceKey,
		ChaveMatch:    matchedKey,
		Divergencias:  divergences,
	}
}

// PendingResult is returned when no usable process number survived
// cleaning, so no match can even be attempted.
func PendingResult(reason string, now time.Time) Result {
	return Result{
		Status:       constants.ValidationPending,
		Timestamp:    ts(now),
		MotivoFalha:  reason,
		Divergencias: []Divergence{},
	}
}

func compareFields(record map[string]any, row Row) []Divergence {
	divergences := []Divergence{}
	for _, field := range comparedFields {
		llmVal := nestedValue(record, field.jsonPath)
		cvmVal := row[field.cvmColumn]

		switch field.kind {
		case kindMonetary:
			lv, lok := NormalizeValue(llmVal)
			cv, cok := NormalizeValue(cvmVal)
			if lok && cok && lv != cv {
				divergences = append(divergences, Divergence{
					Campo:    field.label,
					ValorLLM: llmVal,
					ValorCVM: cvmVal,
					Detalhe:  fmt.Sprintf("Normalizado LLM: %v vs Normalizado CVM: %v", lv, cv),
				})
			}
		case kindName:
			ln := NormalizeName(llmVal)
			cn := NormalizeName(cvmVal)
			if ln != "" && cn != "" && ln != cn {
				divergences = append(divergences, Divergence{
					Campo:    field.label,
					ValorLLM: llmVal,
					ValorCVM: cvmVal,
					Detalhe:  fmt.Sprintf("Normalizado LLM: %s vs Normalizado CVM: %s", ln, cn),
				})
			}
		}
	}
	return divergences
}

func nestedValue(record map[string]any, path []string) any {
	var cur any = record
	for _, p := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}

func splitCandidates(raw string) []string {
	out := []string{}
	for _, part := range reCandidateSplit.Split(raw, -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func ts(now time.Time) string {
	return now.UTC().Format(time.RFC3339)
}
