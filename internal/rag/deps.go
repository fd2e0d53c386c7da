package ragsvc

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-rag/internal/pkg/rag/docutil"
	"github.com/kart-io/sentinel-rag/internal/rag/audit"
	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/internal/rag/metrics"
	"github.com/kart-io/sentinel-rag/internal/rag/store"
	"github.com/kart-io/sentinel-rag/pkg/component/database"
	"github.com/kart-io/sentinel-rag/pkg/component/qdrant"
	"github.com/kart-io/sentinel-rag/pkg/component/redis"
	"github.com/kart-io/sentinel-rag/pkg/infra/pool"
	"github.com/kart-io/sentinel-rag/pkg/llm"
	"github.com/kart-io/sentinel-rag/pkg/llm/resilience"
	auditopts "github.com/kart-io/sentinel-rag/pkg/options/audit"
	cacheopts "github.com/kart-io/sentinel-rag/pkg/options/cache"
	llmopts "github.com/kart-io/sentinel-rag/pkg/options/llm"
	vectoropts "github.com/kart-io/sentinel-rag/pkg/options/vectorstore"

	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/sentinel-rag/pkg/llm/deepseek"
	_ "github.com/kart-io/sentinel-rag/pkg/llm/ollama"
	_ "github.com/kart-io/sentinel-rag/pkg/llm/openai"
)

// newVectorStore 按配置创建向量库，并登记关闭函数。
func (s *Server) newVectorStore(ctx context.Context, cfg *Config) (store.VectorStore, error) {
	switch cfg.VectorStoreOptions.Type {
	case vectoropts.TypeMilvus:
		return s.newMilvusStore(ctx, cfg)

	case vectoropts.TypeMemory:
		logger.Warn("Using in-memory vector store, documents are lost on restart")
		return store.NewMemoryStore(), nil

	default:
		client, err := qdrant.New(cfg.QdrantOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize qdrant: %w", err)
		}
		s.addCloser("qdrant", func(context.Context) error { return client.Close() })
		logger.Infow("Qdrant client initialized",
			"host", cfg.QdrantOptions.Host,
			"protocol", cfg.QdrantOptions.Protocol,
		)
		return store.NewQdrantStore(client), nil
	}
}

// newCacheStore 连接 Redis。未启用或连接失败时返回 nil，服务以无缓存模式运行。
func (s *Server) newCacheStore(ctx context.Context, opts *cacheopts.Options) *redis.Client {
	if opts == nil || !opts.Enabled {
		logger.Info("Cache is disabled")
		return nil
	}

	client, err := redis.New(ctx, opts.Redis)
	if err != nil {
		logger.Warnw("failed to connect to redis, cache will be disabled", "error", err.Error())
		return nil
	}
	s.addCloser("redis", func(context.Context) error { return client.Close() })
	logger.Infow("Redis cache initialized",
		"addr", opts.Redis.Addr(),
		"ttl", opts.TTL,
		"embedding_cache", opts.EmbeddingCache,
	)
	return client
}

// newEmbeddingProvider 依次叠加重试熔断与向量缓存。
func newEmbeddingProvider(opts *llmopts.ProviderOptions, cacheOpts *cacheopts.Options, kv *redis.Client, m *metrics.RAGMetrics) (llm.EmbeddingProvider, error) {
	provider, err := llm.NewEmbeddingProvider(opts.Provider, opts.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	if opts.Resilient {
		wrapped := resilience.WrapEmbedding(provider, resilience.DefaultRetryConfig(), resilience.DefaultCircuitBreakerConfig())
		m.TrackBreaker(wrapped.Breaker())
		provider = wrapped
	}
	if kv != nil && cacheOpts.EmbeddingCache {
		provider = llm.NewCachedEmbeddingProvider(provider, kv, &llm.EmbeddingCacheConfig{
			TTL:       cacheOpts.EmbeddingTTL,
			KeyPrefix: "rag:emb:",
			Model:     opts.Model,
		})
	}
	logger.Infow("Embedding provider initialized",
		"provider", opts.Provider,
		"model", opts.Model,
		"resilient", opts.Resilient,
	)
	return provider, nil
}

func newChatProvider(opts *llmopts.ProviderOptions, m *metrics.RAGMetrics) (llm.ChatProvider, error) {
	provider, err := llm.NewChatProvider(opts.Provider, opts.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	if opts.Resilient {
		wrapped := resilience.WrapChat(provider, resilience.DefaultRetryConfig(), resilience.DefaultCircuitBreakerConfig())
		m.TrackBreaker(wrapped.Breaker())
		provider = wrapped
	}
	logger.Infow("Chat provider initialized",
		"provider", opts.Provider,
		"model", opts.Model,
		"resilient", opts.Resilient,
	)
	return provider, nil
}

// newAuditStore 打开审计库并迁移表结构，未启用时返回 nil。
func (s *Server) newAuditStore(ctx context.Context, opts *auditopts.Options) (*audit.Store, error) {
	if opts == nil || !opts.Enabled {
		return nil, nil
	}

	db, err := database.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	s.addCloser("audit", func(context.Context) error { return database.Close(db) })

	st := audit.NewStore(db)
	if err := st.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate audit database: %w", err)
	}
	logger.Infow("Audit store initialized", "driver", opts.Driver)
	return st, nil
}

// newAuditSink 创建审计 sink。其 Flush 在审计库关闭之前执行，
// 保证事件池中排队的写入落库。
func (s *Server) newAuditSink(st *audit.Store, workers *pool.Pool) *audit.Sink {
	sink := audit.NewSink(st, workers, 0)
	s.addCloser("audit-sink", sink.Flush)
	return sink
}

// preloadDir 启动后导入目录中的文档，单个文件失败不影响其它文件。
func (s *Server) preloadDir(ctx context.Context) {
	files, err := docutil.FindFiles(s.preload, s.exts)
	if err != nil {
		logger.Warnw("failed to scan preload directory", "dir", s.preload, "error", err.Error())
		return
	}
	logger.Infow("Preloading documents", "dir", s.preload, "files", len(files))

	for _, path := range files {
		if ctx.Err() != nil {
			return
		}
		text, err := docutil.ReadFile(path)
		if err != nil {
			logger.Warnw("failed to read preload file", "path", path, "error", err.Error())
			continue
		}
		result := s.service.AddDocument(ctx, filepath.Base(path), text)
		if result.Status != biz.StatusSuccess {
			logger.Warnw("failed to preload document", "path", path, "message", result.Message)
		}
	}
}
