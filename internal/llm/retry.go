package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// ErrRetriesExhausted signals that every attempt against the model failed
// with a transient error. Callers treat it as fatal for the whole run
// rather than for a single chunk.
var ErrRetriesExhausted = errors.New("llm: retries exhausted")

// TransientError marks an error as retryable. Backends wrap throttles and
// provider-side failures with MarkTransient; anything unwrapped is treated
// as permanent and fails fast.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// MarkTransient wraps err so the Gateway will retry it.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err carries a transient marker anywhere in
// its chain.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// RetryPolicy controls how the Gateway spaces attempts. With Exponential
// unset, attempt n waits BaseDelay*n; set, delays double from BaseDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Exponential bool
}

// Gateway wraps an Invoker with the retry policy and per-call logging.
type Gateway struct {
	inv    Invoker
	policy RetryPolicy
	logger *slog.Logger
}

func NewGateway(inv Invoker, policy RetryPolicy, logger *slog.Logger) *Gateway {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &Gateway{inv: inv, policy: policy, logger: logger}
}

// Invoke runs one model call under the retry policy. Transient errors are
// retried up to MaxAttempts total attempts; permanent errors and context
// cancellation abort immediately. When every attempt was transient the
// returned error wraps ErrRetriesExhausted.
func (g *Gateway) Invoke(ctx context.Context, req InvokeRequest) (string, error) {
	reqID := uuid.NewString()
	start := time.Now()
	attempt := 0

	var result string
	op := func() error {
		attempt++
		out, err := g.inv.Invoke(ctx, req)
		if err != nil {
			if IsTransient(err) {
				g.logger.Warn("llm.invoke.transient",
					"req_id", reqID,
					"attempt", attempt,
					"error", err)
				return err
			}
			return backoff.Permanent(err)
		}
		result = out
		return nil
	}

	bo := backoff.WithContext(g.newBackOff(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		// backoff.Permanent unwraps to the original error on return.
		if IsTransient(err) {
			g.logger.Error("llm.invoke.exhausted",
				"req_id", reqID,
				"attempts", attempt,
				"elapsed_ms", time.Since(start).Milliseconds(),
				"error", err)
			return "", fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, attempt, err)
		}
		g.logger.Error("llm.invoke.failed",
			"req_id", reqID,
			"attempts", attempt,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", err)
		return "", err
	}

	g.logger.Info("llm.invoke.ok",
		"req_id", reqID,
		"attempts", attempt,
		"elapsed_ms", time.Since(start).Milliseconds())
	return result, nil
}

func (g *Gateway) newBackOff() backoff.BackOff {
	var bo backoff.BackOff
	if g.policy.Exponential {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = g.policy.BaseDelay
		eb.Multiplier = 2
		eb.RandomizationFactor = 0
		eb.MaxElapsedTime = 0
		bo = eb
	} else {
		bo = &linearBackOff{base: g.policy.BaseDelay}
	}
	return backoff.WithMaxRetries(bo, uint64(g.policy.MaxAttempts-1))
}

// linearBackOff waits base*n before attempt n+1, matching the provider's
// recommended ramp for throttled calls.
type linearBackOff struct {
	base    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.base * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() { b.attempt = 0 }
