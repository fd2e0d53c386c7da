package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setHits int
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.setHits++
	return nil
}

type countingEmbedder struct {
	calls  int
	inputs [][]string
}

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.inputs = append(c.inputs, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (c *countingEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	out, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (c *countingEmbedder) Name() string { return "counting" }

func TestCachedEmbedSingle(t *testing.T) {
	inner := &countingEmbedder{}
	kv := newMemKV()
	p := NewCachedEmbeddingProvider(inner, kv, nil)

	v1, err := p.EmbedSingle(context.Background(), "hello")
	require.NoError(t, err)
	v2, err := p.EmbedSingle(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "counting-cached", p.Name())
}

func TestCachedEmbedBatchOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{}
	p := NewCachedEmbeddingProvider(inner, newMemKV(), nil)

	_, err := p.EmbedSingle(context.Background(), "bb")
	require.NoError(t, err)

	out, err := p.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}, {3}}, out)
	require.Len(t, inner.inputs, 2)
	assert.Equal(t, []string{"a", "ccc"}, inner.inputs[1])

	_, err = p.Embed(context.Background(), []string{"a", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedEmbedModelIsolation(t *testing.T) {
	kv := newMemKV()
	inner := &countingEmbedder{}
	a := NewCachedEmbeddingProvider(inner, kv, &EmbeddingCacheConfig{TTL: time.Hour, KeyPrefix: "e:", Model: "m1"})
	b := NewCachedEmbeddingProvider(inner, kv, &EmbeddingCacheConfig{TTL: time.Hour, KeyPrefix: "e:", Model: "m2"})

	_, _ = a.EmbedSingle(context.Background(), "x")
	_, _ = b.EmbedSingle(context.Background(), "x")
	assert.Equal(t, 2, inner.calls)
}

func TestCachedEmbedStoreErrorFallsThrough(t *testing.T) {
	kv := newMemKV()
	kv.getErr = errors.New("redis down")
	inner := &countingEmbedder{}
	p := NewCachedEmbeddingProvider(inner, kv, nil)

	v, err := p.EmbedSingle(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, v)
}

func TestCachedEmbedCorruptEntry(t *testing.T) {
	kv := newMemKV()
	inner := &countingEmbedder{}
	p := NewCachedEmbeddingProvider(inner, kv, nil)
	kv.data[p.cacheKey("abc")] = []byte("not json")

	v, err := p.EmbedSingle(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, v)
	assert.Equal(t, 1, inner.calls)
}
