package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedInvoker struct {
	mu      sync.Mutex
	calls   int
	results []func() (string, error)
}

func (s *scriptedInvoker) Invoke(_ context.Context, _ InvokeRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i]()
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond}
}

func TestGatewayRetriesTransientThenSucceeds(t *testing.T) {
	inv := &scriptedInvoker{results: []func() (string, error){
		func() (string, error) { return "", MarkTransient(errors.New("throttled")) },
		func() (string, error) { return "", MarkTransient(errors.New("throttled")) },
		func() (string, error) { return "ok", nil },
	}}
	gw := NewGateway(inv, fastPolicy(3), discard())

	out, err := gw.Invoke(context.Background(), InvokeRequest{User: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, inv.calls)
}

func TestGatewayPermanentFailsFast(t *testing.T) {
	boom := errors.New("bad request")
	inv := &scriptedInvoker{results: []func() (string, error){
		func() (string, error) { return "", boom },
	}}
	gw := NewGateway(inv, fastPolicy(3), discard())

	_, err := gw.Invoke(context.Background(), InvokeRequest{User: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, inv.calls, "permanent errors must not be retried")
}

func TestGatewayExhaustionWrapsSentinel(t *testing.T) {
	inv := &scriptedInvoker{results: []func() (string, error){
		func() (string, error) { return "", MarkTransient(errors.New("throttled")) },
	}}
	gw := NewGateway(inv, fastPolicy(3), discard())

	_, err := gw.Invoke(context.Background(), InvokeRequest{User: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 3, inv.calls)
}

func TestGatewayHonorsContextCancellation(t *testing.T) {
	inv := &scriptedInvoker{results: []func() (string, error){
		func() (string, error) { return "", MarkTransient(errors.New("throttled")) },
	}}
	gw := NewGateway(inv, RetryPolicy{MaxAttempts: 10, BaseDelay: time.Minute}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := gw.Invoke(ctx, InvokeRequest{User: "x"})
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrRetriesExhausted)
	case <-time.After(5 * time.Second):
		t.Fatal("gateway did not observe cancellation")
	}
}

func TestLinearBackOffRamp(t *testing.T) {
	bo := &linearBackOff{base: 2 * time.Second}
	assert.Equal(t, 2*time.Second, bo.NextBackOff())
	assert.Equal(t, 4*time.Second, bo.NextBackOff())
	assert.Equal(t, 6*time.Second, bo.NextBackOff())
	bo.Reset()
	assert.Equal(t, 2*time.Second, bo.NextBackOff())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(MarkTransient(errors.New("x"))))
	assert.False(t, IsTransient(errors.New("x")))
	assert.Nil(t, MarkTransient(nil))
}
