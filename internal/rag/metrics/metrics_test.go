package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/pkg/llm/resilience"
)

func TestRecordQuery(t *testing.T) {
	m := New()

	m.RecordQuery(ModeRAG, false)
	m.RecordQuery(ModeGeneral, true)
	m.RecordQuery(ModeFallback, false)
	m.RecordQuery("", false)

	q := m.Stats()["queries"].(map[string]any)
	assert.Equal(t, uint64(4), q["total"])
	assert.Equal(t, uint64(1), q["rag"])
	assert.Equal(t, uint64(1), q["general"])
	assert.Equal(t, uint64(1), q["fallback"])
	assert.Equal(t, uint64(1), q["errors"])
	assert.Equal(t, uint64(1), q["cache_hits"])
	assert.Equal(t, uint64(2), q["cache_misses"])
	assert.InDelta(t, 1.0/3.0, q["cache_hit_rate"], 1e-9)
}

func TestRecordDurations(t *testing.T) {
	m := New()

	m.RecordRetrieval(100*time.Millisecond, nil)
	m.RecordRetrieval(300*time.Millisecond, nil)
	m.RecordRetrieval(time.Second, errors.New("boom"))
	m.RecordLLMCall(2*time.Second, nil)

	stats := m.Stats()
	r := stats["retrieval"].(map[string]any)
	assert.Equal(t, uint64(3), r["total"])
	assert.Equal(t, uint64(1), r["errors"])
	assert.InDelta(t, 0.2, r["avg_duration_secs"], 1e-9)

	l := stats["llm"].(map[string]any)
	assert.Equal(t, uint64(1), l["calls_total"])
	assert.InDelta(t, 2.0, l["avg_duration_secs"], 1e-9)
}

func TestRecordIndexingAndDeletion(t *testing.T) {
	m := New()

	m.RecordIndexing(3, nil)
	m.RecordIndexing(0, errors.New("embed failed"))
	m.RecordDeletion(3, nil)
	m.RecordDeletion(0, errors.New("scroll failed"))

	idx := m.Stats()["indexing"].(map[string]any)
	assert.Equal(t, uint64(1), idx["documents_indexed"])
	assert.Equal(t, uint64(3), idx["chunks_indexed"])
	assert.Equal(t, uint64(1), idx["errors"])
	assert.Equal(t, uint64(1), idx["documents_deleted"])
	assert.Equal(t, uint64(3), idx["points_deleted"])
	assert.Equal(t, uint64(1), idx["delete_errors"])
}

func TestConcurrentRecording(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordQuery(ModeRAG, false)
			m.RecordRetrieval(time.Millisecond, nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(50), m.Stats()["queries"].(map[string]any)["total"])
}

func scrape(t *testing.T, m *RAGMetrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestPrometheusExposition(t *testing.T) {
	m := New()
	cb := resilience.NewCircuitBreaker("chat-provider", &resilience.CircuitBreakerConfig{
		MaxFailures:      1,
		OpenTimeout:      time.Minute,
		HalfOpenMaxCalls: 1,
	})
	m.TrackBreaker(cb)
	m.TrackBreaker(nil)

	_ = cb.Execute(func() error { return errors.New("down") })
	m.RecordQuery(ModeRAG, false)
	m.RecordQuery(ModeGeneral, true)
	m.RecordQuery("", false)
	m.RecordRetrieval(100*time.Millisecond, nil)
	m.RecordLLMCall(time.Second, errors.New("timeout"))
	m.RecordIndexing(3, nil)

	assert.InDelta(t, 1, testutil.ToFloat64(m.promQueries.WithLabelValues(ModeRAG, "miss")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.promQueries.WithLabelValues(ModeGeneral, "hit")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.promQueries.WithLabelValues("error", "miss")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.promErrors.WithLabelValues("llm")), 1e-9)
	assert.InDelta(t, 3, testutil.ToFloat64(m.promChunks.WithLabelValues("indexed")), 1e-9)

	out := scrape(t, m)
	assert.Contains(t, out, "# TYPE sentinel_rag_queries_total counter")
	assert.Contains(t, out, `sentinel_rag_queries_total{cache="miss",mode="rag"} 1`)
	assert.Contains(t, out, `sentinel_rag_operation_duration_seconds_count{operation="retrieval"} 1`)
	assert.Contains(t, out, `sentinel_rag_circuit_breaker_state{name="chat-provider"} 1`)
	assert.Contains(t, out, "# TYPE sentinel_rag_uptime_seconds gauge")

	breakers := m.Stats()["circuit_breakers"].([]map[string]any)
	require.Len(t, breakers, 1)
	assert.Equal(t, "open", breakers[0]["state"])
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordQuery(ModeRAG, false)

	count, err := testutil.GatherAndCount(b.Registry(), "sentinel_rag_queries_total")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.True(t, strings.Contains(scrape(t, a), "sentinel_rag_queries_total"))
}
