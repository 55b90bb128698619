package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dfcoelho/cri-extractor/internal/llm"
)

// ErrUnparseableReduce signals that the extraction answer could not be
// turned into a structurally valid record even after repair.
var ErrUnparseableReduce = errors.New("pipeline: reduce output unparseable")

// ReduceStage turns the aggregated summaries into the extraction record.
type ReduceStage struct {
	gateway     *llm.Gateway
	maxTokens   int32
	temperature float32
	logger      *slog.Logger
}

func NewReduceStage(gw *llm.Gateway, maxTokens int32, temperature float32, logger *slog.Logger) *ReduceStage {
	return &ReduceStage{
		gateway:     gw,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

func (r *ReduceStage) Run(ctx context.Context, superSummary string, schema map[string]any) (map[string]any, error) {
	start := time.Now()

	system, user := llm.ReducePrompts(superSummary, schema)
	out, err := r.gateway.Invoke(ctx, llm.InvokeRequest{
		System:      system,
		User:        user,
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
	})
	if err != nil {
		return nil, err
	}

	payload, err := llm.ExtractJSONPayload(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableReduce, err)
	}
	var record map[string]any
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableReduce, err)
	}
	if err := llm.ValidateStructure(llm.RecordJSONSchema(), payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableReduce, err)
	}

	r.logger.Info("pipeline.reduce.ok",
		"summary_len", len(superSummary),
		"elapsed_ms", time.Since(start).Milliseconds())
	return record, nil
}
