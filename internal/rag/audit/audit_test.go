package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/pkg/component/database"
	"github.com/kart-io/sentinel-rag/pkg/infra/pool"
	auditopts "github.com/kart-io/sentinel-rag/pkg/options/audit"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	opts := auditopts.NewOptions()
	opts.Enabled = true
	opts.DSN = "file::memory:"
	opts.MaxOpenConnections = 1
	opts.MaxIdleConnections = 1

	db, err := database.Open(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	s := NewStore(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSinkWritesSynchronously(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sink := NewSink(s, nil, time.Second)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sink.Emit(ctx, biz.Event{Type: biz.EventDocumentIngested, Message: "ingested", DocID: "d1", FileName: "a.txt", Count: 3, Timestamp: base})
	sink.Emit(ctx, biz.Event{Type: biz.EventQueryAnswered, Message: "answered", Mode: biz.ModeRAG, Count: 1, Timestamp: base.Add(time.Second)})
	sink.Emit(ctx, biz.Event{Type: biz.EventDocumentDeleted, Message: "deleted", DocID: "d1", Count: 3, Timestamp: base.Add(2 * time.Second)})

	all, err := s.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, string(biz.EventDocumentDeleted), all[0].Type)
	assert.Len(t, all[0].ID, 26)
	assert.Equal(t, base.UnixMilli(), all[2].CreatedAt)

	byDoc, err := s.List(ctx, ListOptions{DocID: "d1"})
	require.NoError(t, err)
	assert.Len(t, byDoc, 2)

	byType, err := s.List(ctx, ListOptions{Type: string(biz.EventQueryAnswered), Limit: 10})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, biz.ModeRAG, byType[0].Mode)
}

func TestSinkWritesThroughPool(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	workers, err := pool.NewPool(pool.EventPool, &pool.Config{Capacity: 2, ExpiryDuration: time.Second})
	require.NoError(t, err)
	defer workers.Release()

	sink := NewSink(s, workers, time.Second)
	sink.Emit(ctx, biz.Event{Type: biz.EventQueryFailed, Message: "failed", Error: "boom"})

	assert.Eventually(t, func() bool {
		records, err := s.List(ctx, ListOptions{})
		return err == nil && len(records) == 1 && records[0].Error == "boom"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSinkIDsAreUniqueAndSortable(t *testing.T) {
	sink := NewSink(nil, nil, 0)
	now := time.Now()
	a := sink.newID(now)
	b := sink.newID(now)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b)
}

func TestSinkFlushWaitsForPendingWrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	workers, err := pool.NewPool(pool.EventPool, &pool.Config{Capacity: 4, ExpiryDuration: time.Second})
	require.NoError(t, err)
	defer workers.Release()

	sink := NewSink(s, workers, time.Second)
	for i := 0; i < 20; i++ {
		sink.Emit(ctx, biz.Event{Type: biz.EventQueryAnswered, Message: "answered"})
	}
	require.NoError(t, sink.Flush(ctx))

	records, err := s.List(ctx, ListOptions{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, records, 20)

	// Flush 之后的事件不再写入
	sink.Emit(ctx, biz.Event{Type: biz.EventQueryFailed, Message: "late"})
	records, err = s.List(ctx, ListOptions{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, records, 20)
}
