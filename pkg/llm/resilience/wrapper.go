package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/kart-io/sentinel-rag/pkg/llm"
	"github.com/kart-io/sentinel-rag/pkg/utils/httpclient"
)

// EmbeddingProvider 带重试和熔断的 Embedding Provider 包装器。
type EmbeddingProvider struct {
	provider llm.EmbeddingProvider
	retry    *RetryConfig
	cb       *CircuitBreaker
}

var _ llm.EmbeddingProvider = (*EmbeddingProvider)(nil)

// WrapEmbedding 为 Embedding Provider 增加重试和熔断。
func WrapEmbedding(provider llm.EmbeddingProvider, retry *RetryConfig, cb *CircuitBreakerConfig) *EmbeddingProvider {
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	return &EmbeddingProvider{
		provider: provider,
		retry:    retry,
		cb:       NewCircuitBreaker(provider.Name()+"-embedding", cb),
	}
}

// Embed 为多个文本生成向量嵌入。
func (r *EmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := Retry(ctx, r.retry, func() error {
		return r.cb.Execute(func() error {
			var err error
			out, err = r.provider.Embed(ctx, texts)
			return err
		})
	})
	return out, err
}

// EmbedSingle 为单个文本生成向量嵌入。
func (r *EmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := Retry(ctx, r.retry, func() error {
		return r.cb.Execute(func() error {
			var err error
			out, err = r.provider.EmbedSingle(ctx, text)
			return err
		})
	})
	return out, err
}

// Name 返回供应商名称。
func (r *EmbeddingProvider) Name() string {
	return r.provider.Name() + "-resilient"
}

// Breaker 返回熔断器，用于指标输出。
func (r *EmbeddingProvider) Breaker() *CircuitBreaker {
	return r.cb
}

// ChatProvider 带重试和熔断的文本生成 Provider 包装器。
type ChatProvider struct {
	provider llm.ChatProvider
	retry    *RetryConfig
	cb       *CircuitBreaker
}

var _ llm.ChatProvider = (*ChatProvider)(nil)

// WrapChat 为文本生成 Provider 增加重试和熔断。
func WrapChat(provider llm.ChatProvider, retry *RetryConfig, cb *CircuitBreakerConfig) *ChatProvider {
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	return &ChatProvider{
		provider: provider,
		retry:    retry,
		cb:       NewCircuitBreaker(provider.Name()+"-chat", cb),
	}
}

// Generate 根据提示生成文本。
func (r *ChatProvider) Generate(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	var out string
	err := Retry(ctx, r.retry, func() error {
		return r.cb.Execute(func() error {
			var err error
			out, err = r.provider.Generate(ctx, prompt, systemPrompt)
			return err
		})
	})
	return out, err
}

// Name 返回供应商名称。
func (r *ChatProvider) Name() string {
	return r.provider.Name() + "-resilient"
}

// Breaker 返回熔断器，用于指标输出。
func (r *ChatProvider) Breaker() *CircuitBreaker {
	return r.cb
}

// IsRetryableError 判断错误是否可重试：网络错误、408、429 与 5xx 可重试，
// 熔断与 ctx 结束不可重试。
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *httpclient.StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == http.StatusRequestTimeout,
			se.StatusCode == http.StatusTooManyRequests,
			se.StatusCode >= 500:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
