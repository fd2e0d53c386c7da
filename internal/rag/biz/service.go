package biz

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kart-io/logger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kart-io/sentinel-rag/internal/pkg/rag/textutil"
	"github.com/kart-io/sentinel-rag/internal/rag/metrics"
	"github.com/kart-io/sentinel-rag/internal/rag/store"
	"github.com/kart-io/sentinel-rag/pkg/errors"
	"github.com/kart-io/sentinel-rag/pkg/infra/pool"
	"github.com/kart-io/sentinel-rag/pkg/infra/tracing"
	"github.com/kart-io/sentinel-rag/pkg/llm"
)

// Service 定义 RAG 服务接口。
type Service interface {
	// AddDocument 导入文档。
	AddDocument(ctx context.Context, fileName, content string) *IngestResult
	// DeleteDocument 删除文档的所有分块。
	DeleteDocument(ctx context.Context, docID string) *DeleteResult
	// ListDocuments 列出已导入的文档。
	ListDocuments(ctx context.Context) []DocumentInfo
	// Query 回答问题。topK <= 0 时使用默认值。
	Query(ctx context.Context, question string, topK int) *QueryResult
	// PointsCount 返回集合中的点数。
	PointsCount(ctx context.Context) (int64, error)
	// Stats 返回服务统计信息。
	Stats(ctx context.Context) map[string]any
}

// ServiceConfig RAG 服务配置。
type ServiceConfig struct {
	// Collection 集合名称。
	Collection string
	// Dimension 向量维度。
	Dimension int
	// ScrollLimit 列举与删除时的扫描上限。
	ScrollLimit int
	// ChunkSize 分块大小。
	ChunkSize int
	// ChunkOverlap 分块重叠大小。
	ChunkOverlap int
	// EmbedTimeout 单次向量化超时。
	EmbedTimeout time.Duration
	// IndexTimeout 单次向量库调用超时。
	IndexTimeout time.Duration
	// GenerateTimeout 单次 LLM 调用超时。
	GenerateTimeout time.Duration
	// SystemPrompt 可选系统提示词。
	SystemPrompt string
}

// Dependencies 是 RAGService 的外部依赖，由调用方在启动时构建并注入。
type Dependencies struct {
	Store    store.VectorStore
	Embedder llm.EmbeddingProvider
	Chat     llm.ChatProvider
	// Workers 用于并发向量化，可为 nil。
	Workers *pool.Pool
	// Cache 查询缓存，可为 nil。
	Cache *QueryCache
	// Events 事件接收者，可为 nil。
	Events EventSink
	// Metrics 指标收集器，可为 nil。
	Metrics *metrics.RAGMetrics
}

// RAGService 组合 Indexer、Retriever 和 Generator 提供完整的 RAG 服务。
type RAGService struct {
	indexer   *Indexer
	retriever *Retriever
	generator *Generator
	store     store.VectorStore
	embedder  llm.EmbeddingProvider
	chat      llm.ChatProvider
	cache     *QueryCache
	events    EventSink
	metrics   *metrics.RAGMetrics
	config    *ServiceConfig
}

var _ Service = (*RAGService)(nil)

// NewRAGService 创建 RAG 服务实例。
func NewRAGService(deps Dependencies, config *ServiceConfig) *RAGService {
	if deps.Events == nil {
		deps.Events = NopSink{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	return &RAGService{
		indexer: NewIndexer(deps.Store, deps.Embedder, deps.Workers, &IndexerConfig{
			Collection:   config.Collection,
			ChunkSize:    config.ChunkSize,
			ChunkOverlap: config.ChunkOverlap,
			EmbedTimeout: config.EmbedTimeout,
			IndexTimeout: config.IndexTimeout,
		}),
		retriever: NewRetriever(deps.Store, deps.Embedder, &RetrieverConfig{
			Collection:   config.Collection,
			EmbedTimeout: config.EmbedTimeout,
			IndexTimeout: config.IndexTimeout,
		}),
		generator: NewGenerator(deps.Chat, &GeneratorConfig{
			SystemPrompt: config.SystemPrompt,
			Timeout:      config.GenerateTimeout,
		}),
		store:    deps.Store,
		embedder: deps.Embedder,
		chat:     deps.Chat,
		cache:    deps.Cache,
		events:   deps.Events,
		metrics:  deps.Metrics,
		config:   config,
	}
}

// EnsureCollection 确保集合存在，启动时调用。
func (s *RAGService) EnsureCollection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.IndexTimeout)
	defer cancel()
	if err := s.store.EnsureCollection(ctx, s.config.Collection, s.config.Dimension); err != nil {
		return fmt.Errorf("ensure collection %s: %w", s.config.Collection, err)
	}
	logger.Infow("collection ready", "collection", s.config.Collection, "dimension", s.config.Dimension)
	return nil
}

func (s *RAGService) emit(ctx context.Context, event Event) {
	event.Timestamp = time.Now()
	s.events.Emit(ctx, event)
}

// AddDocument 实现 Service。
func (s *RAGService) AddDocument(ctx context.Context, fileName, content string) *IngestResult {
	ctx, span := tracing.StartSpan(ctx, "rag.AddDocument", attribute.String(tracing.FileName, fileName))
	defer span.End()

	if strings.TrimSpace(content) == "" {
		return s.ingestFailed(ctx, fileName, errors.ErrRAGEmptyDocument)
	}

	doc, err := s.indexer.Index(ctx, fileName, content)
	if err != nil {
		tracing.RecordError(ctx, err)
		return s.ingestFailed(ctx, fileName, err)
	}

	s.metrics.RecordIndexing(doc.Chunks, nil)
	s.invalidateCache(ctx)
	logger.Infow("document ingested", "file_name", fileName, "doc_id", doc.DocID, "chunks", doc.Chunks)
	s.emit(ctx, Event{
		Type:     EventDocumentIngested,
		Message:  fmt.Sprintf("Document '%s' ingested (%d chunks)", fileName, doc.Chunks),
		DocID:    doc.DocID,
		FileName: fileName,
		Count:    doc.Chunks,
	})

	return &IngestResult{Status: StatusSuccess, DocID: doc.DocID, ChunksCount: doc.Chunks}
}

func (s *RAGService) ingestFailed(ctx context.Context, fileName string, err error) *IngestResult {
	s.metrics.RecordIndexing(0, err)
	msg := errorMessage(err)
	logger.Errorw("document ingestion failed", "file_name", fileName, "error", err.Error())
	s.emit(ctx, Event{
		Type:     EventDocumentIngestFailed,
		Message:  fmt.Sprintf("Failed to ingest '%s': %s", fileName, msg),
		DocID:    textutil.DocID(fileName),
		FileName: fileName,
		Error:    msg,
	})
	return &IngestResult{Status: StatusError, Message: msg}
}

// DeleteDocument 实现 Service。未知 docID 返回删除 0 个点的成功结果。
func (s *RAGService) DeleteDocument(ctx context.Context, docID string) *DeleteResult {
	ctx, span := tracing.StartSpan(ctx, "rag.DeleteDocument", attribute.String(tracing.DocID, docID))
	defer span.End()

	deleted, err := s.deletePoints(ctx, docID)
	s.metrics.RecordDeletion(deleted, err)
	if err != nil {
		tracing.RecordError(ctx, err)
		logger.Errorw("document deletion failed", "doc_id", docID, "error", err.Error())
		return &DeleteResult{Status: StatusError, Message: err.Error()}
	}

	if deleted > 0 {
		s.invalidateCache(ctx)
	}
	logger.Infow("document deleted", "doc_id", docID, "deleted_points", deleted)
	s.emit(ctx, Event{
		Type:    EventDocumentDeleted,
		Message: fmt.Sprintf("Document %s deleted (%d points)", docID, deleted),
		DocID:   docID,
		Count:   deleted,
	})
	return &DeleteResult{Status: StatusSuccess, DeletedPoints: deleted}
}

func (s *RAGService) deletePoints(ctx context.Context, docID string) (int, error) {
	sctx, cancel := context.WithTimeout(ctx, s.config.IndexTimeout)
	points, err := s.store.Scroll(sctx, s.config.Collection, docID, s.config.ScrollLimit)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("scroll points: %w", err)
	}
	if len(points) == 0 {
		return 0, nil
	}

	ids := make([]string, len(points))
	for i, p := range points {
		ids[i] = p.ID
	}

	dctx, cancel := context.WithTimeout(ctx, s.config.IndexTimeout)
	defer cancel()
	if err := s.store.Delete(dctx, s.config.Collection, ids); err != nil {
		return 0, fmt.Errorf("delete points: %w", err)
	}
	return len(ids), nil
}

// ListDocuments 实现 Service。扫描失败时返回空列表。
// 结果按上传时间升序，其次按文件名与 doc_id 排序。
func (s *RAGService) ListDocuments(ctx context.Context) []DocumentInfo {
	ctx, cancel := context.WithTimeout(ctx, s.config.IndexTimeout)
	defer cancel()

	points, err := s.store.Scroll(ctx, s.config.Collection, "", s.config.ScrollLimit)
	if err != nil {
		logger.Warnw("failed to list documents", "error", err.Error())
		return []DocumentInfo{}
	}

	index := make(map[string]int)
	docs := make([]DocumentInfo, 0)
	for _, p := range points {
		if i, ok := index[p.Payload.DocID]; ok {
			docs[i].ChunksCount++
			continue
		}
		index[p.Payload.DocID] = len(docs)
		docs = append(docs, DocumentInfo{
			DocID:       p.Payload.DocID,
			FileName:    p.Payload.FileName,
			ChunksCount: 1,
			UploadedAt:  p.Payload.UploadedAt,
		})
	}

	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		if a.UploadedAt != b.UploadedAt {
			return a.UploadedAt < b.UploadedAt
		}
		if a.FileName != b.FileName {
			return a.FileName < b.FileName
		}
		return a.DocID < b.DocID
	})
	return docs
}

// Query 实现 Service。
func (s *RAGService) Query(ctx context.Context, question string, topK int) *QueryResult {
	if topK <= 0 {
		topK = DefaultTopK
	}
	ctx, span := tracing.StartSpan(ctx, "rag.Query", attribute.Int(tracing.TopK, topK))
	defer span.End()

	var generation uint64
	if s.cache != nil {
		if cached := s.cache.Get(ctx, question, topK); cached != nil {
			s.metrics.RecordQuery(cached.Mode, true)
			s.emit(ctx, Event{
				Type:    EventQueryAnswered,
				Message: fmt.Sprintf("Query answered from cache (mode: %s, hits: %d)", cached.Mode, cached.ContextUsed),
				Mode:    cached.Mode,
				Count:   cached.ContextUsed,
			})
			return cached
		}
		generation = s.cache.Generation()
	}

	result, cacheable, err := s.answer(ctx, question, topK)
	if err != nil {
		tracing.RecordError(ctx, err)
		logger.Warnw("query failed, falling back to direct answer", "error", err.Error())
		result = s.fallback(ctx, question, err)
	}
	span.SetAttributes(attribute.String(tracing.Mode, result.Mode))

	if result.Status == StatusSuccess {
		s.metrics.RecordQuery(result.Mode, false)
		if s.cache != nil && cacheable {
			s.cache.Set(ctx, generation, question, topK, result)
		}
		s.emit(ctx, Event{
			Type:    EventQueryAnswered,
			Message: fmt.Sprintf("Query answered (mode: %s, hits: %d)", result.Mode, result.ContextUsed),
			Mode:    result.Mode,
			Count:   result.ContextUsed,
		})
	} else {
		s.metrics.RecordQuery("", false)
	}
	return result
}

// answer 检索并生成回答。第二个返回值表示结果是否可以缓存。
func (s *RAGService) answer(ctx context.Context, question string, topK int) (*QueryResult, bool, error) {
	start := time.Now()
	retrieval, err := s.retriever.Retrieve(ctx, question, topK)
	s.metrics.RecordRetrieval(time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	hitInfo := make([]HitInfo, len(retrieval.Hits))
	for i, h := range retrieval.Hits {
		hitInfo[i] = HitInfo{
			Rank:       i + 1,
			FileName:   h.Payload.FileName,
			Score:      textutil.RoundScore(float64(h.Score)),
			ChunkIndex: h.Payload.ChunkIndex,
		}
	}

	mode := ModeGeneral
	if len(retrieval.Hits) > 0 {
		mode = ModeRAG
	}

	answer, err := s.generate(ctx, BuildPrompt(question, retrieval.Hits))
	if err != nil {
		return nil, false, err
	}

	return &QueryResult{
		Status:      StatusSuccess,
		Answer:      answer,
		HitInfo:     hitInfo,
		ContextUsed: len(retrieval.Hits),
		Mode:        mode,
	}, !retrieval.Degraded, nil
}

func (s *RAGService) generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	answer, err := s.generator.Generate(ctx, prompt)
	s.metrics.RecordLLMCall(time.Since(start), err)
	return answer, err
}

// fallback 用原始问题调用一次 LLM，仍然失败时返回错误结果，
// 错误信息取最初导致降级的错误。
func (s *RAGService) fallback(ctx context.Context, question string, cause error) *QueryResult {
	answer, err := s.generate(ctx, question)
	if err != nil {
		msg := errorMessage(cause)
		logger.Errorw("fallback answer failed", "error", err.Error(), "cause", cause.Error())
		s.emit(ctx, Event{
			Type:    EventQueryFailed,
			Message: fmt.Sprintf("Query failed: %s", msg),
			Error:   msg,
		})
		return &QueryResult{
			Status:  StatusError,
			Message: msg,
			Answer:  ErrorAnswer,
			HitInfo: []HitInfo{},
		}
	}
	return &QueryResult{
		Status:  StatusSuccess,
		Answer:  answer,
		HitInfo: []HitInfo{},
		Mode:    ModeFallback,
	}
}

func (s *RAGService) invalidateCache(ctx context.Context) {
	if s.cache != nil {
		s.cache.Clear(ctx)
	}
}

// PointsCount 实现 Service。
func (s *RAGService) PointsCount(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.IndexTimeout)
	defer cancel()
	return s.store.Count(ctx, s.config.Collection)
}

// Stats 实现 Service。
func (s *RAGService) Stats(ctx context.Context) map[string]any {
	stats := map[string]any{
		"collection":     s.config.Collection,
		"embed_provider": s.embedder.Name(),
		"chat_provider":  s.chat.Name(),
		"metrics":        s.metrics.Stats(),
	}
	if n, err := s.PointsCount(ctx); err == nil {
		stats["points_count"] = n
	}
	if s.cache != nil {
		stats["cache"] = s.cache.Stats()
	} else {
		stats["cache"] = map[string]any{"enabled": false}
	}
	return stats
}

// Collection 返回集合名称。
func (s *RAGService) Collection() string {
	return s.config.Collection
}

func errorMessage(err error) string {
	if e, ok := err.(*errors.Errno); ok {
		return e.MessageEN
	}
	return err.Error()
}
