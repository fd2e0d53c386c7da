package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-rag/internal/rag/store"
	"github.com/kart-io/sentinel-rag/pkg/llm"
)

const (
	// ScoreThreshold 命中参与回答所需的最低相似度。
	ScoreThreshold = 0.2
	// DefaultTopK 默认检索数量。
	DefaultTopK = 5
)

// RetrieverConfig 检索器配置。
type RetrieverConfig struct {
	// Collection 集合名称。
	Collection string
	// EmbedTimeout 问题向量化超时。
	EmbedTimeout time.Duration
	// IndexTimeout 计数与检索超时。
	IndexTimeout time.Duration
}

// RetrievalResult 表示检索结果。
type RetrievalResult struct {
	// Hits 是分数不低于阈值的命中，按分数降序。
	Hits []store.ScoredPoint
	// BestScore 是未过滤前的最高分，没有命中时为 0。
	BestScore float32
	// EmptyIndex 表示集合中没有任何点，此时未执行检索。
	EmptyIndex bool
	// Degraded 表示计数失败，按空集合处理。此类结果不应缓存。
	Degraded bool
}

// Retriever 负责向量检索与阈值判定。
type Retriever struct {
	store    store.VectorStore
	embedder llm.EmbeddingProvider
	config   *RetrieverConfig
}

// NewRetriever 创建检索器实例。
func NewRetriever(vectorStore store.VectorStore, embedder llm.EmbeddingProvider, config *RetrieverConfig) *Retriever {
	return &Retriever{store: vectorStore, embedder: embedder, config: config}
}

// Retrieve 检索与问题相关的分块。
// 集合为空或计数失败时返回 EmptyIndex，不视为错误；计数失败另外标记 Degraded。
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) (*RetrievalResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	cctx, cancel := context.WithTimeout(ctx, r.config.IndexTimeout)
	count, err := r.store.Count(cctx, r.config.Collection)
	cancel()
	if err != nil {
		logger.Warnw("failed to count points, answering without context", "collection", r.config.Collection, "error", err.Error())
		return &RetrievalResult{EmptyIndex: true, Degraded: true}, nil
	}
	if count == 0 {
		return &RetrievalResult{EmptyIndex: true}, nil
	}

	ectx, cancel := context.WithTimeout(ctx, r.config.EmbedTimeout)
	vector, err := r.embedder.EmbedSingle(ectx, question)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	sctx, cancel := context.WithTimeout(ctx, r.config.IndexTimeout)
	hits, err := r.store.Search(sctx, r.config.Collection, vector, topK)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	result := &RetrievalResult{}
	if len(hits) == 0 {
		logger.Infow("no search results, answering without context")
		return result, nil
	}

	result.BestScore = hits[0].Score
	for _, h := range hits {
		if h.Score > result.BestScore {
			result.BestScore = h.Score
		}
	}
	if result.BestScore < ScoreThreshold {
		logger.Infow("best score below threshold, answering without context",
			"best_score", result.BestScore, "threshold", ScoreThreshold)
		return result, nil
	}

	for _, h := range hits {
		if h.Score >= ScoreThreshold {
			result.Hits = append(result.Hits, h)
		}
	}
	return result, nil
}
