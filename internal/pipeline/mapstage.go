package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dfcoelho/cri-extractor/constants"
	"github.com/dfcoelho/cri-extractor/internal/llm"
)

// ErrMapDeadline signals that the summarization fan-out ran out of wall
// clock before every chunk finished.
var ErrMapDeadline = errors.New("pipeline: map stage deadline exceeded")

// DefaultSafetyMargin is how much runway is reserved before the ambient
// deadline so the artifact write still has time to complete.
const DefaultSafetyMargin = 10 * time.Second

// MapStage summarizes chunks concurrently through the gateway. Results keep
// chunk order regardless of completion order.
type MapStage struct {
	gateway     *llm.Gateway
	workers     int
	margin      time.Duration
	maxTokens   int32
	temperature float32
	logger      *slog.Logger
}

func NewMapStage(gw *llm.Gateway, workers int, margin time.Duration, maxTokens int32, temperature float32, logger *slog.Logger) *MapStage {
	if workers <= 0 {
		workers = 4
	}
	if margin <= 0 {
		margin = DefaultSafetyMargin
	}
	return &MapStage{
		gateway:     gw,
		workers:     workers,
		margin:      margin,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

// Run fans the chunks out over the worker pool. When the ambient context
// carries a deadline, the stage stops margin early so the caller can still
// persist a result. A chunk whose call fails permanently degrades to the
// not-applicable sentinel; exhausted retries abort the whole run.
func (m *MapStage) Run(ctx context.Context, chunks []string) ([]string, error) {
	start := time.Now()

	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline.Add(-m.margin))
		defer cancel()
	}

	results := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	for i, chunk := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			system, user := llm.MapPrompts(chunk)
			out, err := m.gateway.Invoke(gctx, llm.InvokeRequest{
				System:      system,
				User:        user,
				MaxTokens:   m.maxTokens,
				Temperature: m.temperature,
			})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if errors.Is(err, llm.ErrRetriesExhausted) {
					return err
				}
				m.logger.Warn("pipeline.map.chunk_failed",
					"chunk", i,
					"error", err)
				results[i] = constants.SummaryNotApplicable
				return nil
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrMapDeadline, err)
		}
		return nil, err
	}

	m.logger.Info("pipeline.map.ok",
		"chunks", len(chunks),
		"elapsed_ms", time.Since(start).Milliseconds())
	return results, nil
}

// Aggregate joins the relevant summaries into the reduce-stage context,
// dropping any the model flagged as not applicable.
func Aggregate(summaries []string) string {
	kept := make([]string, 0, len(summaries))
	for _, s := range summaries {
		if isNotApplicable(s) {
			continue
		}
		kept = append(kept, s)
	}
	return strings.Join(kept, constants.SummarySeparator)
}

func isNotApplicable(s string) bool {
	return s == "" || strings.Contains(s, constants.SummaryNotApplicable)
}
