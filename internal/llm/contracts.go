package llm

import "context"

// InvokeRequest is one model call: a system/user prompt pair plus decoding limits.
type InvokeRequest struct {
	System      string
	User        string
	MaxTokens   int32
	Temperature float32
}

// Invoker performs a single outbound model call with no retry discipline.
// Backends wrap transient failures with MarkTransient so the Gateway can
// classify them. Pipeline stages never call an Invoker directly; the Gateway
// is the sole point of outbound model traffic.
type Invoker interface {
	Invoke(ctx context.Context, req InvokeRequest) (string, error)
}
