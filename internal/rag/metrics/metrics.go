// Package metrics 提供 RAG 服务的业务指标收集。
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kart-io/sentinel-rag/pkg/llm/resilience"
)

const (
	namespace = "sentinel"
	subsystem = "rag"
)

// 查询回答模式。
const (
	ModeRAG      = "rag"
	ModeGeneral  = "general"
	ModeFallback = "fallback"
)

// RAGMetrics RAG 服务业务指标。
// 原子计数用于 JSON 统计接口，同时写入独立的 Prometheus 注册表。
type RAGMetrics struct {
	// 查询指标
	queriesTotal       atomic.Uint64
	queriesRAG         atomic.Uint64
	queriesGeneral     atomic.Uint64
	queriesFallback    atomic.Uint64
	queriesErrors      atomic.Uint64
	queriesCacheHits   atomic.Uint64
	queriesCacheMisses atomic.Uint64

	// 检索指标
	retrievalTotal  atomic.Uint64
	retrievalErrors atomic.Uint64

	// LLM 调用指标
	llmCallsTotal  atomic.Uint64
	llmCallsErrors atomic.Uint64

	// 索引指标
	documentsIndexed atomic.Uint64
	chunksIndexed    atomic.Uint64
	indexErrors      atomic.Uint64
	documentsDeleted atomic.Uint64
	pointsDeleted    atomic.Uint64
	deleteErrors     atomic.Uint64

	durationMu        sync.Mutex
	retrievalDuration float64
	llmCallsDuration  float64
	startTime         time.Time

	breakersMu sync.RWMutex
	breakers   []*resilience.CircuitBreaker

	registry     *prometheus.Registry
	promQueries  *prometheus.CounterVec
	promLatency  *prometheus.HistogramVec
	promErrors   *prometheus.CounterVec
	promDocs     *prometheus.CounterVec
	promChunks   *prometheus.CounterVec
	promBreakers *prometheus.GaugeVec
}

// New 创建指标收集器。
func New() *RAGMetrics {
	m := &RAGMetrics{
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),
	}
	factory := promauto.With(m.registry)

	m.promQueries = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queries_total",
			Help:      "Total number of RAG queries by answer mode and cache result.",
		},
		[]string{"mode", "cache"},
	)
	m.promLatency = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "operation_duration_seconds",
			Help:      "Duration of successful retrievals and LLM calls in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)
	m.promErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Total number of failed operations.",
		},
		[]string{"operation"},
	)
	m.promDocs = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "documents_total",
			Help:      "Total number of documents indexed or deleted.",
		},
		[]string{"operation"},
	)
	m.promChunks = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "points_total",
			Help:      "Total number of points indexed or deleted.",
		},
		[]string{"operation"},
	)
	m.promBreakers = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open).",
		},
		[]string{"name"},
	)
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "uptime_seconds",
			Help:      "Service uptime in seconds.",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)
	return m
}

// TrackBreaker 将熔断器状态纳入指标输出。
func (m *RAGMetrics) TrackBreaker(cb *resilience.CircuitBreaker) {
	if cb == nil {
		return
	}
	m.breakersMu.Lock()
	m.breakers = append(m.breakers, cb)
	m.breakersMu.Unlock()
}

// RecordQuery 记录一次查询结果。mode 为空表示查询彻底失败。
func (m *RAGMetrics) RecordQuery(mode string, cacheHit bool) {
	m.queriesTotal.Add(1)
	switch mode {
	case ModeRAG:
		m.queriesRAG.Add(1)
	case ModeGeneral:
		m.queriesGeneral.Add(1)
	case ModeFallback:
		m.queriesFallback.Add(1)
	default:
		m.queriesErrors.Add(1)
		m.promQueries.WithLabelValues("error", "miss").Inc()
		return
	}
	cache := "miss"
	if cacheHit {
		cache = "hit"
		m.queriesCacheHits.Add(1)
	} else {
		m.queriesCacheMisses.Add(1)
	}
	m.promQueries.WithLabelValues(mode, cache).Inc()
}

// RecordRetrieval 记录检索操作。
func (m *RAGMetrics) RecordRetrieval(duration time.Duration, err error) {
	m.retrievalTotal.Add(1)
	if err != nil {
		m.retrievalErrors.Add(1)
		m.promErrors.WithLabelValues("retrieval").Inc()
		return
	}
	m.promLatency.WithLabelValues("retrieval").Observe(duration.Seconds())
	m.durationMu.Lock()
	m.retrievalDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordLLMCall 记录 LLM 调用。
func (m *RAGMetrics) RecordLLMCall(duration time.Duration, err error) {
	m.llmCallsTotal.Add(1)
	if err != nil {
		m.llmCallsErrors.Add(1)
		m.promErrors.WithLabelValues("llm").Inc()
		return
	}
	m.promLatency.WithLabelValues("llm").Observe(duration.Seconds())
	m.durationMu.Lock()
	m.llmCallsDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordIndexing 记录一次文档索引。
func (m *RAGMetrics) RecordIndexing(chunks int, err error) {
	if err != nil {
		m.indexErrors.Add(1)
		m.promErrors.WithLabelValues("index").Inc()
		return
	}
	m.documentsIndexed.Add(1)
	m.chunksIndexed.Add(uint64(chunks))
	m.promDocs.WithLabelValues("indexed").Inc()
	m.promChunks.WithLabelValues("indexed").Add(float64(chunks))
}

// RecordDeletion 记录一次文档删除。
func (m *RAGMetrics) RecordDeletion(points int, err error) {
	if err != nil {
		m.deleteErrors.Add(1)
		m.promErrors.WithLabelValues("delete").Inc()
		return
	}
	m.documentsDeleted.Add(1)
	m.pointsDeleted.Add(uint64(points))
	m.promDocs.WithLabelValues("deleted").Inc()
	m.promChunks.WithLabelValues("deleted").Add(float64(points))
}

func (m *RAGMetrics) breakerSnapshots() []resilience.Snapshot {
	m.breakersMu.RLock()
	defer m.breakersMu.RUnlock()
	out := make([]resilience.Snapshot, len(m.breakers))
	for i, cb := range m.breakers {
		out[i] = cb.Snapshot()
	}
	return out
}

func (m *RAGMetrics) durations() (retrieval, llm float64) {
	m.durationMu.Lock()
	defer m.durationMu.Unlock()
	return m.retrievalDuration, m.llmCallsDuration
}

func ratio(num, den uint64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Handler 返回 Prometheus 文本格式的指标接口。
// 熔断器状态在每次抓取时刷新。
func (m *RAGMetrics) Handler() http.Handler {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.refreshBreakers()
		h.ServeHTTP(w, r)
	})
}

// Registry 返回指标注册表。
func (m *RAGMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *RAGMetrics) refreshBreakers() {
	for _, s := range m.breakerSnapshots() {
		m.promBreakers.WithLabelValues(s.Name).Set(float64(stateValue(s.State)))
	}
}

// Stats 返回当前统计信息（用于 API）。
func (m *RAGMetrics) Stats() map[string]any {
	retrievalDuration, llmDuration := m.durations()

	hits, misses := m.queriesCacheHits.Load(), m.queriesCacheMisses.Load()
	retrievals := m.retrievalTotal.Load() - m.retrievalErrors.Load()
	llmCalls := m.llmCallsTotal.Load() - m.llmCallsErrors.Load()

	breakers := make([]map[string]any, 0)
	for _, s := range m.breakerSnapshots() {
		breakers = append(breakers, map[string]any{
			"name":     s.Name,
			"state":    s.State,
			"failures": s.Failures,
		})
	}

	return map[string]any{
		"queries": map[string]any{
			"total":          m.queriesTotal.Load(),
			"rag":            m.queriesRAG.Load(),
			"general":        m.queriesGeneral.Load(),
			"fallback":       m.queriesFallback.Load(),
			"errors":         m.queriesErrors.Load(),
			"cache_hits":     hits,
			"cache_misses":   misses,
			"cache_hit_rate": ratio(hits, hits+misses),
		},
		"retrieval": map[string]any{
			"total":               m.retrievalTotal.Load(),
			"errors":              m.retrievalErrors.Load(),
			"total_duration_secs": retrievalDuration,
			"avg_duration_secs":   ratioF(retrievalDuration, retrievals),
		},
		"llm": map[string]any{
			"calls_total":         m.llmCallsTotal.Load(),
			"errors":              m.llmCallsErrors.Load(),
			"total_duration_secs": llmDuration,
			"avg_duration_secs":   ratioF(llmDuration, llmCalls),
		},
		"indexing": map[string]any{
			"documents_indexed": m.documentsIndexed.Load(),
			"chunks_indexed":    m.chunksIndexed.Load(),
			"errors":            m.indexErrors.Load(),
			"documents_deleted": m.documentsDeleted.Load(),
			"points_deleted":    m.pointsDeleted.Load(),
			"delete_errors":     m.deleteErrors.Load(),
		},
		"circuit_breakers": breakers,
		"uptime_seconds":   time.Since(m.startTime).Seconds(),
	}
}

func ratioF(total float64, n uint64) float64 {
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

func stateValue(state string) int {
	switch state {
	case resilience.StateOpen.String():
		return 1
	case resilience.StateHalfOpen.String():
		return 2
	default:
		return 0
	}
}
