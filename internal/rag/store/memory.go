package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kart-io/sentinel-rag/internal/pkg/rag/textutil"
)

type memCollection struct {
	dimension int
	points    map[string]Point
	seq       map[string]uint64
	next      uint64
}

// MemoryStore 是进程内的 VectorStore 实现，用于开发与测试。
// Scroll 按首次写入顺序返回，Search 使用精确余弦相似度。
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

var _ VectorStore = (*MemoryStore)(nil)

// NewMemoryStore 创建内存存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

// EnsureCollection 实现 VectorStore。
func (s *MemoryStore) EnsureCollection(_ context.Context, collection string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection]; !ok {
		s.collections[collection] = &memCollection{
			dimension: dimension,
			points:    make(map[string]Point),
			seq:       make(map[string]uint64),
		}
	}
	return nil
}

func (s *MemoryStore) get(collection string) (*memCollection, error) {
	c, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	return c, nil
}

// Upsert 实现 VectorStore。
func (s *MemoryStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkDimension(points); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(collection)
	if err != nil {
		return err
	}
	if len(points) > 0 && len(points[0].Vector) != c.dimension {
		return fmt.Errorf("vector dimension %d does not match collection dimension %d", len(points[0].Vector), c.dimension)
	}
	for _, p := range points {
		if _, ok := c.seq[p.ID]; !ok {
			c.seq[p.ID] = c.next
			c.next++
		}
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		p.Vector = vec
		c.points[p.ID] = p
	}
	return nil
}

func (c *memCollection) ordered() []Point {
	out := make([]Point, 0, len(c.points))
	for _, p := range c.points {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return c.seq[out[i].ID] < c.seq[out[j].ID] })
	return out
}

// Search 实现 VectorStore。
func (s *MemoryStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]ScoredPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.get(collection)
	if err != nil {
		return nil, err
	}
	if len(vector) != c.dimension {
		return nil, fmt.Errorf("query dimension %d does not match collection dimension %d", len(vector), c.dimension)
	}

	points := c.ordered()
	hits := make([]ScoredPoint, 0, len(points))
	for _, p := range points {
		hits = append(hits, ScoredPoint{
			ID:      p.ID,
			Score:   float32(textutil.CosineSimilarity(vector, p.Vector)),
			Payload: p.Payload,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Scroll 实现 VectorStore。
func (s *MemoryStore) Scroll(ctx context.Context, collection, docID string, limit int) ([]Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.get(collection)
	if err != nil {
		return nil, err
	}

	var out []Point
	for _, p := range c.ordered() {
		if docID != "" && p.Payload.DocID != docID {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, Point{ID: p.ID, Payload: p.Payload})
	}
	return out, nil
}

// Delete 实现 VectorStore。
func (s *MemoryStore) Delete(ctx context.Context, collection string, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(collection)
	if err != nil {
		return err
	}
	for _, id := range ids {
		delete(c.points, id)
		delete(c.seq, id)
	}
	return nil
}

// Count 实现 VectorStore。
func (s *MemoryStore) Count(_ context.Context, collection string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.get(collection)
	if err != nil {
		return 0, err
	}
	return int64(len(c.points)), nil
}

// Close 实现 VectorStore。
func (s *MemoryStore) Close(context.Context) error { return nil }
