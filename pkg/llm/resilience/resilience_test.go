package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/pkg/utils/httpclient"
)

var errTest = errors.New("test error")

func fastRetry(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
		Retryable:    func(err error) bool { return !errors.Is(err, ErrCircuitOpen) },
	}
}

func TestCircuitBreakerOpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("t", &CircuitBreakerConfig{MaxFailures: 3, OpenTimeout: time.Second, HalfOpenMaxCalls: 1})
	for i := 0; i < 3; i++ {
		assert.Error(t, cb.Execute(func() error { return errTest }))
	}
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitOpen)
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("t", &CircuitBreakerConfig{MaxFailures: 2, OpenTimeout: time.Second, HalfOpenMaxCalls: 1})
	_ = cb.Execute(func() error { return errTest })
	require.NoError(t, cb.Execute(func() error { return nil }))
	_ = cb.Execute(func() error { return errTest })
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Snapshot().Failures)
}

func TestCircuitBreakerHalfOpen(t *testing.T) {
	cfg := &CircuitBreakerConfig{MaxFailures: 1, OpenTimeout: 20 * time.Millisecond, HalfOpenMaxCalls: 1}

	cb := NewCircuitBreaker("t", cfg)
	_ = cb.Execute(func() error { return errTest })
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())

	cb = NewCircuitBreaker("t", cfg)
	_ = cb.Execute(func() error { return errTest })
	time.Sleep(30 * time.Millisecond)
	assert.Error(t, cb.Execute(func() error { return errTest }))
	assert.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "closed", cb.Snapshot().State)
}

func TestRetryEventualSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(3), func() error {
		calls++
		if calls < 3 {
			return errTest
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(2), func() error {
		calls++
		return errTest
	})
	assert.ErrorIs(t, err, errTest)
	assert.Contains(t, err.Error(), "max retry attempts")
	assert.Equal(t, 2, calls)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), nil, func() error {
		calls++
		return &httpclient.StatusError{StatusCode: http.StatusBadRequest}
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetry(5)
	cfg.InitialDelay = time.Second
	cfg.MaxDelay = time.Second

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Retry(ctx, cfg, func() error { return errTest })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrCircuitOpen, false},
		{context.DeadlineExceeded, false},
		{fmt.Errorf("wrap: %w", &httpclient.StatusError{StatusCode: 503}), true},
		{&httpclient.StatusError{StatusCode: 429}, true},
		{&httpclient.StatusError{StatusCode: 408}, true},
		{&httpclient.StatusError{StatusCode: 401}, false},
		{errTest, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRetryableError(tt.err), "%v", tt.err)
	}
}

type flakyChat struct{ calls int }

func (f *flakyChat) Generate(_ context.Context, prompt string, _ string) (string, error) {
	f.calls++
	if f.calls == 1 {
		return "", &httpclient.StatusError{StatusCode: 502}
	}
	return "ok:" + prompt, nil
}

func (f *flakyChat) Name() string { return "flaky" }

type brokenEmbedder struct{ calls int }

func (b *brokenEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	b.calls++
	return nil, &httpclient.StatusError{StatusCode: 500}
}

func (b *brokenEmbedder) EmbedSingle(context.Context, string) ([]float32, error) {
	b.calls++
	return nil, &httpclient.StatusError{StatusCode: 500}
}

func (b *brokenEmbedder) Name() string { return "broken" }

func TestWrapChatRetries(t *testing.T) {
	inner := &flakyChat{}
	p := WrapChat(inner, fastRetry(3), nil)

	out, err := p.Generate(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, "ok:q", out)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, "flaky-resilient", p.Name())
	assert.Equal(t, StateClosed, p.Breaker().State())
}

func TestWrapEmbeddingOpensBreaker(t *testing.T) {
	inner := &brokenEmbedder{}
	p := WrapEmbedding(inner, fastRetry(2), &CircuitBreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute, HalfOpenMaxCalls: 1})

	_, err := p.EmbedSingle(context.Background(), "x")
	assert.Error(t, err)
	assert.Equal(t, StateOpen, p.Breaker().State())

	_, err = p.Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, inner.calls)
}
