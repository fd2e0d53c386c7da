// Package ragsvc provides the RAG Service server implementation.
package ragsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"google.golang.org/grpc"

	"github.com/kart-io/sentinel-rag/internal/pkg/pubsub"
	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	ragGRPC "github.com/kart-io/sentinel-rag/internal/rag/grpc"
	"github.com/kart-io/sentinel-rag/internal/rag/handler"
	"github.com/kart-io/sentinel-rag/internal/rag/metrics"
	"github.com/kart-io/sentinel-rag/internal/rag/router"
	"github.com/kart-io/sentinel-rag/pkg/infra/app"
	"github.com/kart-io/sentinel-rag/pkg/infra/middleware"
	"github.com/kart-io/sentinel-rag/pkg/infra/pool"
	"github.com/kart-io/sentinel-rag/pkg/infra/server"
	grpcserver "github.com/kart-io/sentinel-rag/pkg/infra/server/transport/grpc"
	httpserver "github.com/kart-io/sentinel-rag/pkg/infra/server/transport/http"
	"github.com/kart-io/sentinel-rag/pkg/infra/tracing"
	auditopts "github.com/kart-io/sentinel-rag/pkg/options/audit"
	cacheopts "github.com/kart-io/sentinel-rag/pkg/options/cache"
	llmopts "github.com/kart-io/sentinel-rag/pkg/options/llm"
	logopts "github.com/kart-io/sentinel-rag/pkg/options/logger"
	milvusopts "github.com/kart-io/sentinel-rag/pkg/options/milvus"
	qdrantopts "github.com/kart-io/sentinel-rag/pkg/options/qdrant"
	ragopts "github.com/kart-io/sentinel-rag/pkg/options/rag"
	grpcopts "github.com/kart-io/sentinel-rag/pkg/options/server/grpc"
	httpopts "github.com/kart-io/sentinel-rag/pkg/options/server/http"
	tracingopts "github.com/kart-io/sentinel-rag/pkg/options/tracing"
	vectoropts "github.com/kart-io/sentinel-rag/pkg/options/vectorstore"
	"github.com/kart-io/sentinel-rag/pkg/utils/validator"
)

// Name is the name of the application.
const Name = "sentinel-rag"

// 请求日志与链路追踪跳过的路径。
var skipPaths = []string{"/api/health", "/ws/logs"}

// Config contains application-related configurations.
type Config struct {
	HTTPOptions        *httpopts.Options
	GRPCOptions        *grpcopts.Options
	LogOptions         *logopts.Options
	TracingOptions     *tracingopts.Options
	VectorStoreOptions *vectoropts.Options
	QdrantOptions      *qdrantopts.Options
	MilvusOptions      *milvusopts.Options
	EmbeddingOptions   *llmopts.ProviderOptions
	ChatOptions        *llmopts.ProviderOptions
	RAGOptions         *ragopts.Options
	CacheOptions       *cacheopts.Options
	AuditOptions       *auditopts.Options
	ShutdownTimeout    time.Duration
}

// Server represents the RAG server.
type Server struct {
	srv     *server.Manager
	service *biz.RAGService
	preload string
	exts    []string
	closers []closer
}

// closer 是按启动逆序执行的清理函数。
type closer struct {
	name string
	fn   func(ctx context.Context) error
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	printBanner(cfg)

	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting RAG service...")

	s := &Server{
		preload: cfg.RAGOptions.PreloadDir,
		exts:    cfg.RAGOptions.PreloadExtensions,
	}
	ok := false
	defer func() {
		if !ok {
			s.close()
		}
	}()

	// 2. 初始化链路追踪
	tp, err := tracing.NewProvider(cfg.TracingOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.addCloser("tracing", tp.Shutdown)

	// 3. 初始化协程池
	pools := pool.NewManager()
	s.addCloser("pool", func(context.Context) error {
		return pools.ReleaseAllTimeout(5 * time.Second)
	})
	embedConfig := pool.DefaultConfig()
	embedConfig.Capacity = cfg.RAGOptions.EmbedConcurrency
	embedWorkers, err := pools.Register(pool.EmbeddingPool, embedConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding pool: %w", err)
	}
	eventWorkers, err := pools.Register(pool.EventPool, pool.EventConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create event pool: %w", err)
	}

	// 4. 初始化向量库
	vectorStore, err := s.newVectorStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// 5. 初始化缓存，Redis 不可用时降级
	kv := s.newCacheStore(ctx, cfg.CacheOptions)

	// 6. 初始化 LLM 供应商
	ragMetrics := metrics.New()
	embedder, err := newEmbeddingProvider(cfg.EmbeddingOptions, cfg.CacheOptions, kv, ragMetrics)
	if err != nil {
		return nil, err
	}
	chat, err := newChatProvider(cfg.ChatOptions, ragMetrics)
	if err != nil {
		return nil, err
	}

	// 7. 初始化事件链路：日志流 + 审计
	broker := pubsub.NewBroker[biz.Event]()
	s.addCloser("broker", func(context.Context) error {
		broker.Shutdown()
		return nil
	})
	events := biz.MultiSink{biz.NewBrokerSink(broker)}
	auditStore, err := s.newAuditStore(ctx, cfg.AuditOptions)
	if err != nil {
		return nil, err
	}
	if auditStore != nil {
		events = append(events, s.newAuditSink(auditStore, eventWorkers))
	}

	// 8. 初始化 Biz 层
	var queryCache *biz.QueryCache
	if kv != nil {
		queryCache = biz.NewQueryCache(kv, &biz.QueryCacheConfig{
			TTL:       cfg.CacheOptions.TTL,
			KeyPrefix: cfg.CacheOptions.KeyPrefix,
		})
	}
	s.service = biz.NewRAGService(biz.Dependencies{
		Store:    vectorStore,
		Embedder: embedder,
		Chat:     chat,
		Workers:  embedWorkers,
		Cache:    queryCache,
		Events:   events,
		Metrics:  ragMetrics,
	}, &biz.ServiceConfig{
		Collection:      cfg.VectorStoreOptions.Collection,
		Dimension:       cfg.VectorStoreOptions.Dimension,
		ScrollLimit:     cfg.RAGOptions.ScrollLimit,
		ChunkSize:       cfg.RAGOptions.ChunkSize,
		ChunkOverlap:    cfg.RAGOptions.ChunkOverlap,
		EmbedTimeout:    cfg.RAGOptions.EmbedTimeout,
		IndexTimeout:    cfg.RAGOptions.IndexTimeout,
		GenerateTimeout: cfg.RAGOptions.GenerateTimeout,
		SystemPrompt:    cfg.RAGOptions.SystemPrompt,
	})
	if err := s.service.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure collection %s: %w", cfg.VectorStoreOptions.Collection, err)
	}
	logger.Infow("RAG service initialized",
		"collection", cfg.VectorStoreOptions.Collection,
		"dimension", cfg.VectorStoreOptions.Dimension,
		"cache.enabled", queryCache != nil,
		"audit.enabled", auditStore != nil,
	)

	// 9. 初始化 Handler 层
	validator.InstallGin(validator.Global())
	ragHandler := handler.NewRAGHandler(s.service, events, ragMetrics, auditStore, handler.Config{
		Collection: cfg.VectorStoreOptions.Collection,
	})
	logStream := handler.NewLogStream(broker)

	// 10. 初始化服务器并注册路由
	httpMiddleware := []gin.HandlerFunc{
		middleware.Recovery(nil),
		middleware.RequestID(),
		middleware.Logger(skipPaths...),
		middleware.Tracing(skipPaths...),
	}
	if len(cfg.HTTPOptions.CORSAllowOrigins) > 0 {
		httpMiddleware = append(httpMiddleware, middleware.CORS(cfg.HTTPOptions.CORSAllowOrigins))
	}
	httpSrv := httpserver.NewServer(cfg.HTTPOptions, httpMiddleware...)
	router.RegisterHTTP(httpSrv.Engine(), ragHandler, logStream, router.Options{
		MaxUploadSize: cfg.RAGOptions.MaxUploadSize,
		EnableSwagger: cfg.HTTPOptions.EnableSwagger,
	})

	servers := []server.Runnable{httpSrv}
	if cfg.GRPCOptions.Enabled {
		grpcSrv := grpcserver.NewServer(cfg.GRPCOptions, grpcInterceptors()...)
		router.RegisterGRPC(grpcSrv, ragGRPC.NewHandler(s.service, events))
		servers = append(servers, grpcSrv)
	}
	s.srv = server.NewManager(cfg.ShutdownTimeout, servers...)

	ok = true
	logger.Info("RAG service is ready")
	return s, nil
}

func grpcInterceptors() []grpc.UnaryServerInterceptor {
	return []grpc.UnaryServerInterceptor{
		middleware.UnaryRecoveryInterceptor(),
		middleware.UnaryRequestIDInterceptor(),
		middleware.UnaryLoggerInterceptor(),
		middleware.UnaryTracingInterceptor(),
	}
}

// Run starts the server and blocks until ctx is cancelled or a signal arrives.
func (s *Server) Run(ctx context.Context) error {
	defer s.close()

	if s.preload != "" {
		go s.preloadDir(ctx)
	}
	return s.srv.Run(ctx)
}

func (s *Server) addCloser(name string, fn func(ctx context.Context) error) {
	s.closers = append(s.closers, closer{name: name, fn: fn})
}

// close 逆序释放启动时创建的资源。
func (s *Server) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := len(s.closers) - 1; i >= 0; i-- {
		c := s.closers[i]
		if err := c.fn(ctx); err != nil {
			logger.Warnw("failed to release resource", "resource", c.name, "error", err.Error())
		}
	}
	s.closers = nil
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s...\n", Name)
	fmt.Printf("  Vector store: %s (collection %s, dim %d)\n",
		cfg.VectorStoreOptions.Type, cfg.VectorStoreOptions.Collection, cfg.VectorStoreOptions.Dimension)
	fmt.Printf("  Embedding: %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	fmt.Printf("  Chat: %s (%s)\n", cfg.ChatOptions.Provider, cfg.ChatOptions.Model)
	fmt.Printf("  HTTP: %s\n", cfg.HTTPOptions.Addr)
	if cfg.GRPCOptions.Enabled {
		fmt.Printf("  gRPC: %s\n", cfg.GRPCOptions.Addr)
	}
}
