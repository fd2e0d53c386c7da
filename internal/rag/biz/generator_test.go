package biz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/internal/rag/store"
)

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t, "plain question", BuildPrompt("plain question", nil))

	hits := []store.ScoredPoint{
		{Payload: store.Payload{Text: "first"}},
		{Payload: store.Payload{Text: "second"}},
	}
	assert.Equal(t,
		"Answer the question using the following documents.\n\nReference documents:\nfirst\n\nsecond\n\nQuestion: q?\n\nAnswer:",
		BuildPrompt("q?", hits))
}

func TestGeneratorWrapsErrors(t *testing.T) {
	g := NewGenerator(&recordingChat{failures: 1}, &GeneratorConfig{Timeout: time.Second})

	_, err := g.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate answer")

	answer, err := g.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "answer: hi", answer)
}
