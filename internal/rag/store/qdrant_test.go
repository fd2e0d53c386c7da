package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/pkg/component/qdrant"
)

type fakeQdrantClient struct {
	upserted  []qdrant.Point
	scrollKey string
	scrollVal string
	deleted   []string
	countErr  error
	closed    bool
}

func (f *fakeQdrantClient) EnsureCollection(context.Context, string, int) error { return nil }

func (f *fakeQdrantClient) Upsert(_ context.Context, _ string, points []qdrant.Point) error {
	f.upserted = append(f.upserted, points...)
	return nil
}

func (f *fakeQdrantClient) Search(context.Context, string, []float32, int) ([]qdrant.ScoredPoint, error) {
	return []qdrant.ScoredPoint{{
		ID:    "p1",
		Score: 0.9,
		Payload: map[string]any{
			FieldDocID: "d", FieldFileName: "a.txt", FieldChunkIndex: float64(2), FieldText: "hello",
		},
	}}, nil
}

func (f *fakeQdrantClient) ScrollMatch(_ context.Context, _ string, key, value string, _ int) ([]qdrant.Point, error) {
	f.scrollKey, f.scrollVal = key, value
	return []qdrant.Point{{ID: "p1", Payload: map[string]any{FieldDocID: "d"}}}, nil
}

func (f *fakeQdrantClient) Delete(_ context.Context, _ string, ids []string) error {
	f.deleted = ids
	return nil
}

func (f *fakeQdrantClient) Count(context.Context, string) (int64, error) { return 4, f.countErr }

func (f *fakeQdrantClient) Close() error {
	f.closed = true
	return nil
}

func TestQdrantStoreTranslatesPayloads(t *testing.T) {
	ctx := context.Background()
	fake := &fakeQdrantClient{}
	s := NewQdrantStore(fake)

	require.NoError(t, s.Upsert(ctx, "c", []Point{newPoint("p1", "d", 1, 0.1, 0.2)}))
	require.Len(t, fake.upserted, 1)
	assert.Equal(t, "d", fake.upserted[0].Payload[FieldDocID])
	assert.Equal(t, 1, fake.upserted[0].Payload[FieldChunkIndex])

	hits, err := s.Search(ctx, "c", []float32{0.1, 0.2}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 2, hits[0].Payload.ChunkIndex)
	assert.Equal(t, "a.txt", hits[0].Payload.FileName)

	_, err = s.Scroll(ctx, "c", "d", 10)
	require.NoError(t, err)
	assert.Equal(t, FieldDocID, fake.scrollKey)
	assert.Equal(t, "d", fake.scrollVal)

	_, err = s.Scroll(ctx, "c", "", 10)
	require.NoError(t, err)
	assert.Empty(t, fake.scrollKey)

	require.NoError(t, s.Delete(ctx, "c", []string{"p1"}))
	assert.Equal(t, []string{"p1"}, fake.deleted)

	n, err := s.Count(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	require.NoError(t, s.Close(ctx))
	assert.True(t, fake.closed)
}

func TestQdrantStoreCountError(t *testing.T) {
	fake := &fakeQdrantClient{countErr: errors.New("down")}
	_, err := NewQdrantStore(fake).Count(context.Background(), "c")
	assert.ErrorContains(t, err, "down")
}
