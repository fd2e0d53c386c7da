package biz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCacheKeyIncludesTopK(t *testing.T) {
	c := NewQueryCache(newMemoryKV(), nil)
	assert.NotEqual(t, c.key(0, "q", 5), c.key(0, "q", 3))
	assert.NotEqual(t, c.key(0, "q", 5), c.key(1, "q", 5))
	assert.Equal(t, c.key(0, "q", 5), c.key(0, "q", 5))
	assert.Contains(t, c.key(0, "q", 5), "rag:query:")
}

func TestQueryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewQueryCache(newMemoryKV(), &QueryCacheConfig{TTL: time.Minute, KeyPrefix: "p:"})

	assert.Nil(t, c.Get(ctx, "q", 5))

	result := &QueryResult{Status: StatusSuccess, Answer: "a", HitInfo: []HitInfo{{Rank: 1, FileName: "f", Score: 0.5}}, ContextUsed: 1, Mode: ModeRAG}
	c.Set(ctx, c.Generation(), "q", 5, result)

	got := c.Get(ctx, "q", 5)
	require.NotNil(t, got)
	assert.Equal(t, result, got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats["hits"])
	assert.Equal(t, int64(1), stats["misses"])
}

func TestQueryCacheSkipsUncacheableResults(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	c := NewQueryCache(kv, nil)

	c.Set(ctx, 0, "q", 5, &QueryResult{Status: StatusSuccess, Mode: ModeFallback})
	c.Set(ctx, 0, "q", 5, &QueryResult{Status: StatusError})
	c.Set(ctx, 0, "q", 5, nil)
	assert.Zero(t, kv.len())
}

func TestQueryCacheDegradesOnStoreErrors(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	kv.err = errors.New("redis down")
	c := NewQueryCache(kv, nil)

	c.Set(ctx, 0, "q", 5, &QueryResult{Status: StatusSuccess, Mode: ModeGeneral})
	assert.Nil(t, c.Get(ctx, "q", 5))
}

func TestQueryCacheIgnoresCorruptEntries(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	c := NewQueryCache(kv, nil)
	kv.data[c.key(0, "q", 5)] = []byte("{not json")

	assert.Nil(t, c.Get(ctx, "q", 5))
}

func TestQueryCacheDropsWritesFromStaleGeneration(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	c := NewQueryCache(kv, nil)
	result := &QueryResult{Status: StatusSuccess, Answer: "a", Mode: ModeRAG}

	gen := c.Generation()
	c.Clear(ctx)
	c.Set(ctx, gen, "q", 5, result)
	assert.Zero(t, kv.len())
	assert.Nil(t, c.Get(ctx, "q", 5))

	c.Set(ctx, c.Generation(), "q", 5, result)
	assert.Equal(t, result, c.Get(ctx, "q", 5))
}

func TestQueryCacheEntriesFromOlderGenerationAreUnreachable(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	c := NewQueryCache(kv, nil)

	// 写入发生在失效检查之后、Clear 删除之后的极端情况
	kv.data[c.key(c.Generation(), "q", 5)] = []byte(`{"status":"success","mode":"rag"}`)
	c.generation.Add(1)
	assert.Nil(t, c.Get(ctx, "q", 5))
}
