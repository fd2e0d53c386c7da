package audit

import (
	"context"
	"crypto/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/oklog/ulid/v2"

	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/pkg/infra/pool"
)

// Sink 将事件异步写入审计存储，实现 biz.EventSink。
// 事件池已满时丢弃事件并记录警告，不阻塞流水线。
// 关闭审计库之前必须调用 Flush。
type Sink struct {
	store   *Store
	workers *pool.Pool
	timeout time.Duration

	pending sync.WaitGroup
	closed  atomic.Bool

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var _ biz.EventSink = (*Sink)(nil)

// NewSink 创建审计 sink。workers 为 nil 时同步写入。
func NewSink(store *Store, workers *pool.Pool, timeout time.Duration) *Sink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Sink{
		store:   store,
		workers: workers,
		timeout: timeout,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (s *Sink) newID(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

// Emit 实现 biz.EventSink。Flush 之后的事件直接丢弃。
func (s *Sink) Emit(_ context.Context, event biz.Event) {
	if s.closed.Load() {
		logger.Debugw("audit sink closed, event dropped", "type", string(event.Type))
		return
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	record := recordFromEvent(s.newID(ts), event)

	write := func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.store.Create(ctx, record); err != nil {
			logger.Warnw("failed to write audit record", "type", record.Type, "error", err.Error())
		}
	}

	if s.workers == nil {
		write()
		return
	}
	s.pending.Add(1)
	err := s.workers.Submit(func() {
		defer s.pending.Done()
		write()
	})
	if err != nil {
		s.pending.Done()
		logger.Warnw("audit record dropped", "type", record.Type, "error", err.Error())
	}
}

// Flush 停止接收新事件并等待已提交的写入完成。
func (s *Sink) Flush(ctx context.Context) error {
	s.closed.Store(true)
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
