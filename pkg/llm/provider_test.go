package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct{ name string }

func (s *stubProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func (s *stubProvider) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	return []float32{1}, nil
}

func (s *stubProvider) Generate(_ context.Context, prompt string, _ string) (string, error) {
	return "echo: " + prompt, nil
}

func (s *stubProvider) Name() string { return s.name }

func TestRegistry(t *testing.T) {
	RegisterProvider("stub-full", func(map[string]any) (Provider, error) {
		return &stubProvider{name: "stub-full"}, nil
	})
	RegisterChatProvider("stub-chat", func(map[string]any) (ChatProvider, error) {
		return &stubProvider{name: "stub-chat"}, nil
	})

	e, err := NewEmbeddingProvider("stub-full", nil)
	require.NoError(t, err)
	assert.Equal(t, "stub-full", e.Name())

	c, err := NewChatProvider("stub-full", nil)
	require.NoError(t, err)
	assert.Equal(t, "stub-full", c.Name())

	c, err = NewChatProvider("stub-chat", nil)
	require.NoError(t, err)
	assert.Equal(t, "stub-chat", c.Name())

	_, err = NewEmbeddingProvider("stub-chat", nil)
	assert.Error(t, err)

	_, err = NewChatProvider("missing", nil)
	assert.Error(t, err)

	names := ListProviders()
	assert.Contains(t, names, "stub-full")
	assert.Contains(t, names, "stub-chat")
	assert.IsIncreasing(t, names)
}
