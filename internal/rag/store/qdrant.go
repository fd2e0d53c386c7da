package store

import (
	"context"
	"fmt"

	"github.com/kart-io/sentinel-rag/pkg/component/qdrant"
)

// QdrantStore 基于 Qdrant 的向量存储。
type QdrantStore struct {
	client qdrant.Client
}

var _ VectorStore = (*QdrantStore)(nil)

// NewQdrantStore 创建 Qdrant 存储实例。
func NewQdrantStore(client qdrant.Client) *QdrantStore {
	return &QdrantStore{client: client}
}

// EnsureCollection 实现 VectorStore。
func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	return s.client.EnsureCollection(ctx, collection, dimension)
}

// Upsert 实现 VectorStore。
func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if err := checkDimension(points); err != nil {
		return err
	}
	batch := make([]qdrant.Point, len(points))
	for i, p := range points {
		batch[i] = qdrant.Point{ID: p.ID, Vector: p.Vector, Payload: p.Payload.ToMap()}
	}
	return s.client.Upsert(ctx, collection, batch)
}

// Search 实现 VectorStore。
func (s *QdrantStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]ScoredPoint, error) {
	hits, err := s.client.Search(ctx, collection, vector, topK)
	if err != nil {
		return nil, err
	}
	out := make([]ScoredPoint, len(hits))
	for i, h := range hits {
		out[i] = ScoredPoint{ID: h.ID, Score: h.Score, Payload: PayloadFromMap(h.Payload)}
	}
	return out, nil
}

// Scroll 实现 VectorStore。
func (s *QdrantStore) Scroll(ctx context.Context, collection, docID string, limit int) ([]Point, error) {
	key := ""
	if docID != "" {
		key = FieldDocID
	}
	points, err := s.client.ScrollMatch(ctx, collection, key, docID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{ID: p.ID, Payload: PayloadFromMap(p.Payload)}
	}
	return out, nil
}

// Delete 实现 VectorStore。
func (s *QdrantStore) Delete(ctx context.Context, collection string, ids []string) error {
	return s.client.Delete(ctx, collection, ids)
}

// Count 实现 VectorStore。
func (s *QdrantStore) Count(ctx context.Context, collection string) (int64, error) {
	n, err := s.client.Count(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return n, nil
}

// Close 实现 VectorStore。
func (s *QdrantStore) Close(context.Context) error {
	return s.client.Close()
}
