package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPoint(id, docID string, idx int, vec ...float32) Point {
	return Point{
		ID:     id,
		Vector: vec,
		Payload: Payload{
			DocID:      docID,
			FileName:   docID + ".txt",
			ChunkIndex: idx,
			Text:       "chunk",
			UploadedAt: "2026-01-01T00:00:00Z",
		},
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.EnsureCollection(ctx, "docs", 2))
	require.NoError(t, s.EnsureCollection(ctx, "docs", 2))

	require.NoError(t, s.Upsert(ctx, "docs", []Point{
		newPoint("p1", "a", 0, 1, 0),
		newPoint("p2", "a", 1, 0, 1),
		newPoint("p3", "b", 0, 1, 1),
	}))

	n, err := s.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	hits, err := s.Search(ctx, "docs", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "p1", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "p3", hits[1].ID)

	pts, err := s.Scroll(ctx, "docs", "a", 100)
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.Equal(t, "p1", pts[0].ID)
	assert.Nil(t, pts[0].Vector)

	all, err := s.Scroll(ctx, "docs", "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, s.Delete(ctx, "docs", []string{"p1", "p2"}))
	n, err = s.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryStoreUpsertOverwritesKeepingOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.EnsureCollection(ctx, "docs", 2))
	require.NoError(t, s.Upsert(ctx, "docs", []Point{newPoint("p1", "a", 0, 1, 0), newPoint("p2", "a", 1, 0, 1)}))

	updated := newPoint("p1", "a", 0, 1, 0)
	updated.Payload.Text = "new"
	require.NoError(t, s.Upsert(ctx, "docs", []Point{updated}))

	pts, err := s.Scroll(ctx, "docs", "", 10)
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.Equal(t, "p1", pts[0].ID)
	assert.Equal(t, "new", pts[0].Payload.Text)
}

func TestMemoryStoreErrors(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Count(ctx, "missing")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
	assert.Error(t, s.EnsureCollection(ctx, "docs", 0))

	require.NoError(t, s.EnsureCollection(ctx, "docs", 2))
	assert.Error(t, s.Upsert(ctx, "docs", []Point{newPoint("p1", "a", 0, 1, 0, 0)}))
	assert.Error(t, s.Upsert(ctx, "docs", []Point{newPoint("p1", "a", 0, 1, 0), newPoint("p2", "a", 1, 1)}))

	_, err = s.Search(ctx, "docs", []float32{1}, 5)
	assert.Error(t, err)
}

func TestPayloadFromMap(t *testing.T) {
	p := PayloadFromMap(map[string]any{
		FieldDocID:      "d",
		FieldFileName:   "f.txt",
		FieldChunkIndex: float64(3),
		FieldText:       "t",
		FieldUploadedAt: "2026-01-01T00:00:00Z",
	})
	assert.Equal(t, Payload{DocID: "d", FileName: "f.txt", ChunkIndex: 3, Text: "t", UploadedAt: "2026-01-01T00:00:00Z"}, p)

	assert.Equal(t, 7, PayloadFromMap(map[string]any{FieldChunkIndex: int64(7)}).ChunkIndex)
	assert.Equal(t, Payload{}, PayloadFromMap(nil))
	assert.Equal(t, p, PayloadFromMap(p.ToMap()))
}
