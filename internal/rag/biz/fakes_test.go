package biz

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/sentinel-rag/internal/rag/store"
)

const testDim = 4

// keywordEmbedder 按关键词生成确定性向量。
type keywordEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
	// failOn 非空时，包含该子串的文本向量化失败。
	failOn string
}

func vectorFor(text string) []float32 {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "router"):
		return []float32{1, 0, 0, 0}
	case strings.Contains(lower, "switch"):
		return []float32{0.8, 0.6, 0, 0}
	case strings.Contains(lower, "cook"):
		return []float32{0, 1, 0, 0}
	default:
		return []float32{0, 0, 0, 1}
	}
}

func (e *keywordEmbedder) EmbedSingle(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("embedding service unavailable")
	}
	return vectorFor(text), nil
}

func (e *keywordEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.EmbedSingle(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *keywordEmbedder) Name() string { return "keyword" }

func (e *keywordEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// recordingChat 记录所有提示词。
type recordingChat struct {
	mu      sync.Mutex
	prompts []string
	// failures 为前 N 次调用返回错误。
	failures int
}

func (c *recordingChat) Generate(_ context.Context, prompt, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if c.failures > 0 {
		c.failures--
		return "", errors.New("model unavailable")
	}
	return "answer: " + prompt[:min(len(prompt), 16)], nil
}

func (c *recordingChat) Name() string { return "recording" }

func (c *recordingChat) lastPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.prompts) == 0 {
		return ""
	}
	return c.prompts[len(c.prompts)-1]
}

// recordingSink 记录所有事件。
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(_ context.Context, e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = string(e.Type)
	}
	return out
}

// memoryKV 是内存版 CacheStore。
type memoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemoryKV() *memoryKV { return &memoryKV{data: make(map[string][]byte)} }

func (m *memoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryKV) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *memoryKV) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func (m *memoryKV) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// countFailingStore 让 Count 返回错误。
type countFailingStore struct {
	*store.MemoryStore
}

func (countFailingStore) Count(context.Context, string) (int64, error) {
	return 0, errors.New("index unreachable")
}

// scrollFailingStore 让 Scroll 返回错误。
type scrollFailingStore struct {
	*store.MemoryStore
}

func (scrollFailingStore) Scroll(context.Context, string, string, int) ([]store.Point, error) {
	return nil, errors.New("index unreachable")
}

// flakyCountStore 在 failing 为 true 时让 Count 返回错误。
type flakyCountStore struct {
	*store.MemoryStore
	failing atomic.Bool
}

func (s *flakyCountStore) Count(ctx context.Context, collection string) (int64, error) {
	if s.failing.Load() {
		return 0, errors.New("index unreachable")
	}
	return s.MemoryStore.Count(ctx, collection)
}

// searchHookStore 在第一次 Search 返回前执行 afterSearch。
type searchHookStore struct {
	*store.MemoryStore
	mu          sync.Mutex
	afterSearch func()
}

func (s *searchHookStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]store.ScoredPoint, error) {
	hits, err := s.MemoryStore.Search(ctx, collection, vector, topK)
	s.mu.Lock()
	hook := s.afterSearch
	s.afterSearch = nil
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return hits, err
}
