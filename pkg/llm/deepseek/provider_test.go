package deepseek

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/pkg/llm"
)

func TestNewProviderRequiresKey(t *testing.T) {
	_, err := NewProvider(map[string]any{})
	assert.Error(t, err)
}

func TestChatOnlyRegistration(t *testing.T) {
	_, err := llm.NewChatProvider(ProviderName, map[string]any{"api_key": "k"})
	assert.NoError(t, err)

	_, err = llm.NewEmbeddingProvider(ProviderName, map[string]any{"api_key": "k"})
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"deep"}}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider(map[string]any{"api_key": "k", "base_url": srv.URL, "max_retries": 0})
	require.NoError(t, err)
	assert.Equal(t, ProviderName, p.Name())

	out, err := p.Generate(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, "deep", out)
}
