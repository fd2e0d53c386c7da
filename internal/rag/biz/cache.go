package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-rag/pkg/utils/json"
)

// CacheStore 是查询缓存所需的键值存储，由 Redis 组件实现。
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// QueryCacheConfig 查询缓存配置。
type QueryCacheConfig struct {
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// QueryCache 查询结果缓存。只缓存 rag 与 general 模式的成功结果，
// 文档集合变化时整体失效。
//
// 每次失效都会推进 generation，键中包含 generation。查询开始时记录
// generation，写入时若已推进则放弃，失效前开始的查询不会写回旧结果。
type QueryCache struct {
	store  CacheStore
	config *QueryCacheConfig

	generation atomic.Uint64
	hits       atomic.Int64
	misses     atomic.Int64
}

// NewQueryCache 创建查询缓存实例。
func NewQueryCache(kv CacheStore, config *QueryCacheConfig) *QueryCache {
	if config == nil {
		config = &QueryCacheConfig{TTL: time.Hour, KeyPrefix: "rag:query:"}
	}
	return &QueryCache{store: kv, config: config}
}

func (c *QueryCache) key(generation uint64, question string, topK int) string {
	hash := sha256.Sum256([]byte(question + "\x00" + strconv.Itoa(topK)))
	return c.config.KeyPrefix + strconv.FormatUint(generation, 10) + ":" + hex.EncodeToString(hash[:])
}

// Generation 返回当前缓存代数，查询开始前读取并传给 Set。
func (c *QueryCache) Generation() uint64 {
	return c.generation.Load()
}

// Get 读取当前代的缓存。未命中或读取失败都返回 nil。
func (c *QueryCache) Get(ctx context.Context, question string, topK int) *QueryResult {
	key := c.key(c.generation.Load(), question, topK)
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		logger.Warnw("failed to get from query cache", "key", key, "error", err.Error())
		c.misses.Add(1)
		return nil
	}
	if !ok {
		c.misses.Add(1)
		return nil
	}

	var result QueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warnw("failed to unmarshal cached result", "key", key, "error", err.Error())
		c.misses.Add(1)
		return nil
	}
	c.hits.Add(1)
	logger.Debugw("query cache hit", "key", key)
	return &result
}

// Set 写入 generation 代的缓存。fallback 与失败结果不缓存，
// generation 已过期时不写入。
func (c *QueryCache) Set(ctx context.Context, generation uint64, question string, topK int, result *QueryResult) {
	if result == nil || result.Status != StatusSuccess || result.Mode == ModeFallback {
		return
	}
	if generation != c.generation.Load() {
		logger.Debugw("query cache invalidated during query, result not cached", "generation", generation)
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		logger.Warnw("failed to marshal result for caching", "error", err.Error())
		return
	}
	key := c.key(generation, question, topK)
	if err := c.store.Set(ctx, key, data, c.config.TTL); err != nil {
		logger.Warnw("failed to set query cache", "key", key, "error", err.Error())
	}
}

// Clear 推进缓存代数并清除所有查询缓存。
func (c *QueryCache) Clear(ctx context.Context) {
	c.generation.Add(1)
	n, err := c.store.DeletePrefix(ctx, c.config.KeyPrefix)
	if err != nil {
		logger.Warnw("failed to clear query cache", "error", err.Error())
		return
	}
	logger.Debugw("cleared query cache", "deleted_count", n)
}

// Stats 返回缓存统计信息。
func (c *QueryCache) Stats() map[string]any {
	return map[string]any{
		"enabled":    true,
		"key_prefix": c.config.KeyPrefix,
		"ttl":        c.config.TTL.String(),
		"generation": c.generation.Load(),
		"hits":       c.hits.Load(),
		"misses":     c.misses.Load(),
	}
}
