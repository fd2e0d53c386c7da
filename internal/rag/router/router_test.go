package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/kart-io/sentinel-rag/internal/pkg/pubsub"
	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/internal/rag/handler"
)

func TestRegisterHTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()

	h := handler.NewRAGHandler(nil, nil, nil, nil, handler.Config{})
	logs := handler.NewLogStream(pubsub.NewBroker[biz.Event]())
	RegisterHTTP(engine, h, logs, Options{MaxUploadSize: 1 << 20, EnableSwagger: true})

	routes := map[string]bool{}
	for _, r := range engine.Routes() {
		routes[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"GET /",
		"POST /api/upload",
		"GET /api/documents",
		"DELETE /api/documents/:doc_id",
		"POST /api/query",
		"GET /api/health",
		"GET /api/v1/rag/metrics",
		"GET /api/v1/rag/events",
		"GET /ws/logs",
		"GET /swagger/*any",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
}

func TestSwaggerDocServed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	RegisterHTTP(engine, handler.NewRAGHandler(nil, nil, nil, nil, handler.Config{}), nil, Options{EnableSwagger: true})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/query")
}

func TestSwaggerDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	RegisterHTTP(engine, handler.NewRAGHandler(nil, nil, nil, nil, handler.Config{}), nil, Options{})

	for _, r := range engine.Routes() {
		assert.NotEqual(t, "/swagger/*any", r.Path)
	}
}
