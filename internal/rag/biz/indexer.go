package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/sentinel-rag/internal/pkg/rag/textutil"
	"github.com/kart-io/sentinel-rag/internal/rag/store"
	"github.com/kart-io/sentinel-rag/pkg/infra/pool"
	"github.com/kart-io/sentinel-rag/pkg/llm"
)

// TimeLayout 是 uploaded_at 的格式：UTC、定宽微秒，字典序即时间序。
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// IndexerConfig 索引器配置。
type IndexerConfig struct {
	// Collection 集合名称。
	Collection string
	// ChunkSize 分块大小。
	ChunkSize int
	// ChunkOverlap 分块重叠大小。
	ChunkOverlap int
	// EmbedTimeout 单次向量化超时。
	EmbedTimeout time.Duration
	// IndexTimeout 单次写入超时。
	IndexTimeout time.Duration
}

// IndexedDocument 一次成功索引的结果。
type IndexedDocument struct {
	DocID      string
	FileName   string
	Chunks     int
	UploadedAt string
}

// Indexer 负责文档分块、向量化与写入。
type Indexer struct {
	store    store.VectorStore
	embedder llm.EmbeddingProvider
	chunker  *textutil.Chunker
	pool     *pool.Pool
	config   *IndexerConfig
	now      func() time.Time
}

// NewIndexer 创建索引器。workers 为 nil 时顺序向量化。
func NewIndexer(vectorStore store.VectorStore, embedder llm.EmbeddingProvider, workers *pool.Pool, config *IndexerConfig) *Indexer {
	return &Indexer{
		store:    vectorStore,
		embedder: embedder,
		chunker:  textutil.NewChunker(config.ChunkSize, config.ChunkOverlap),
		pool:     workers,
		config:   config,
		now:      time.Now,
	}
}

// Index 分块并向量化 content，将所有分块作为一个批次写入。
// 任一分块向量化失败时不写入任何点。
func (i *Indexer) Index(ctx context.Context, fileName, content string) (*IndexedDocument, error) {
	docID := textutil.DocID(fileName)
	chunks := i.chunker.Split(content)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %s produced no chunks", fileName)
	}

	vectors := make([][]float32, len(chunks))
	err := pool.Map(ctx, i.pool, len(chunks), func(ctx context.Context, idx int) error {
		ctx, cancel := context.WithTimeout(ctx, i.config.EmbedTimeout)
		defer cancel()

		vec, err := i.embedder.EmbedSingle(ctx, chunks[idx].Text)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", idx, err)
		}
		vectors[idx] = vec
		return nil
	})
	if err != nil {
		return nil, err
	}

	uploadedAt := i.now().UTC().Format(TimeLayout)
	points := make([]store.Point, len(chunks))
	for idx, c := range chunks {
		points[idx] = store.Point{
			ID:     textutil.PointID(docID, c.Index),
			Vector: vectors[idx],
			Payload: store.Payload{
				DocID:      docID,
				FileName:   fileName,
				ChunkIndex: c.Index,
				Text:       c.Text,
				UploadedAt: uploadedAt,
			},
		}
	}

	wctx, cancel := context.WithTimeout(ctx, i.config.IndexTimeout)
	defer cancel()
	if err := i.store.Upsert(wctx, i.config.Collection, points); err != nil {
		return nil, fmt.Errorf("upsert points: %w", err)
	}

	return &IndexedDocument{DocID: docID, FileName: fileName, Chunks: len(points), UploadedAt: uploadedAt}, nil
}
