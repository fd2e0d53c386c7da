package handler

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/internal/rag/metrics"
	"github.com/kart-io/sentinel-rag/pkg/infra/middleware"
	"github.com/kart-io/sentinel-rag/pkg/utils/json"
	"github.com/kart-io/sentinel-rag/pkg/utils/response"
	"github.com/kart-io/sentinel-rag/pkg/utils/validator"
)

type fakeService struct {
	mu sync.Mutex

	added    map[string]string
	addRes   *biz.IngestResult
	deleteFn func(docID string) *biz.DeleteResult
	docs     []biz.DocumentInfo
	queryRes *biz.QueryResult
	lastTopK int
	count    int64
	countErr error
}

func (f *fakeService) AddDocument(_ context.Context, fileName, content string) *biz.IngestResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.added == nil {
		f.added = map[string]string{}
	}
	f.added[fileName] = content
	if f.addRes != nil {
		return f.addRes
	}
	return &biz.IngestResult{Status: biz.StatusSuccess, DocID: "d", ChunksCount: 1}
}

func (f *fakeService) DeleteDocument(_ context.Context, docID string) *biz.DeleteResult {
	if f.deleteFn != nil {
		return f.deleteFn(docID)
	}
	return &biz.DeleteResult{Status: biz.StatusSuccess}
}

func (f *fakeService) ListDocuments(context.Context) []biz.DocumentInfo { return f.docs }

func (f *fakeService) Query(_ context.Context, _ string, topK int) *biz.QueryResult {
	f.lastTopK = topK
	if f.queryRes != nil {
		return f.queryRes
	}
	return &biz.QueryResult{Status: biz.StatusSuccess, Answer: "a", HitInfo: []biz.HitInfo{}, Mode: biz.ModeGeneral}
}

func (f *fakeService) PointsCount(context.Context) (int64, error) { return f.count, f.countErr }

func (f *fakeService) Stats(context.Context) map[string]any {
	return map[string]any{"collection": "network_docs"}
}

type recordingSink struct {
	mu     sync.Mutex
	events []biz.Event
}

func (s *recordingSink) Emit(_ context.Context, e biz.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, string(e.Type))
	}
	return out
}

func newTestEngine(svc biz.Service, sink biz.EventSink, maxUpload int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validator.InstallGin(validator.Global())

	h := NewRAGHandler(svc, sink, metrics.New(), nil, Config{Collection: "network_docs"})
	r := gin.New()
	r.Use(middleware.RequestID())
	r.POST("/api/upload", middleware.BodyLimit(maxUpload), h.Upload)
	r.GET("/api/documents", h.ListDocuments)
	r.DELETE("/api/documents/:doc_id", h.DeleteDocument)
	r.POST("/api/query", h.Query)
	r.GET("/api/health", h.Health)
	r.GET("/api/v1/rag/metrics", h.Metrics)
	r.GET("/api/v1/rag/events", h.Events)
	r.GET("/", Index)
	return r
}

func multipartBody(t *testing.T, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func do(r http.Handler, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUploadText(t *testing.T) {
	svc := &fakeService{}
	sink := &recordingSink{}
	r := newTestEngine(svc, sink, 1<<20)

	body, ct := multipartBody(t, "notes.txt", []byte("hello world"))
	w := do(r, http.MethodPost, "/api/upload", body, ct)

	require.Equal(t, http.StatusOK, w.Code)
	var res biz.IngestResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, biz.StatusSuccess, res.Status)
	assert.Equal(t, "hello world", svc.added["notes.txt"])
	assert.Equal(t, []string{string(biz.EventDocumentUploaded)}, sink.types())
	assert.Contains(t, sink.events[0].Message, "encoding: utf-8")
}

func TestUploadLatin1(t *testing.T) {
	svc := &fakeService{}
	r := newTestEngine(svc, nil, 1<<20)

	body, ct := multipartBody(t, "cafe.txt", []byte{'c', 'a', 'f', 0xE9})
	w := do(r, http.MethodPost, "/api/upload", body, ct)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "café", svc.added["cafe.txt"])
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		content  []byte
		status   int
	}{
		{"empty text", "empty.txt", []byte("   \n\t"), http.StatusBadRequest},
		{"broken pdf", "broken.pdf", []byte("not a pdf"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			sink := &recordingSink{}
			r := newTestEngine(svc, sink, 1<<20)

			body, ct := multipartBody(t, tt.fileName, tt.content)
			w := do(r, http.MethodPost, "/api/upload", body, ct)

			assert.Equal(t, tt.status, w.Code)
			var resp response.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotZero(t, resp.Code)
			assert.NotEmpty(t, resp.RequestID)
			assert.Empty(t, svc.added)
			assert.Equal(t, []string{string(biz.EventDocumentUploadFailed)}, sink.types())
		})
	}
}

func TestUploadMissingFile(t *testing.T) {
	r := newTestEngine(&fakeService{}, nil, 1<<20)
	w := do(r, http.MethodPost, "/api/upload", bytes.NewBufferString("x"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadTooLarge(t *testing.T) {
	r := newTestEngine(&fakeService{}, nil, 64)
	body, ct := multipartBody(t, "big.txt", bytes.Repeat([]byte("a"), 1024))
	w := do(r, http.MethodPost, "/api/upload", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUploadIngestError(t *testing.T) {
	svc := &fakeService{addRes: &biz.IngestResult{Status: biz.StatusError, Message: "embed failed"}}
	r := newTestEngine(svc, nil, 1<<20)

	body, ct := multipartBody(t, "a.txt", []byte("text"))
	w := do(r, http.MethodPost, "/api/upload", body, ct)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"embed failed"}`, w.Body.String())
}

func TestListDocuments(t *testing.T) {
	r := newTestEngine(&fakeService{}, nil, 1<<20)
	w := do(r, http.MethodGet, "/api/documents", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	svc := &fakeService{docs: []biz.DocumentInfo{{DocID: "x", FileName: "a.txt", ChunksCount: 2, UploadedAt: "t"}}}
	r = newTestEngine(svc, nil, 1<<20)
	w = do(r, http.MethodGet, "/api/documents", nil, "")
	assert.JSONEq(t, `[{"doc_id":"x","file_name":"a.txt","chunks_count":2,"uploaded_at":"t"}]`, w.Body.String())
}

func TestDeleteDocument(t *testing.T) {
	var got string
	svc := &fakeService{deleteFn: func(docID string) *biz.DeleteResult {
		got = docID
		return &biz.DeleteResult{Status: biz.StatusSuccess, DeletedPoints: 3}
	}}
	r := newTestEngine(svc, nil, 1<<20)

	w := do(r, http.MethodDelete, "/api/documents/abc", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", got)
	assert.JSONEq(t, `{"status":"success","deleted_points":3}`, w.Body.String())

	svc.deleteFn = func(string) *biz.DeleteResult {
		return &biz.DeleteResult{Status: biz.StatusError, Message: "boom"}
	}
	w = do(r, http.MethodDelete, "/api/documents/abc", nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestQuery(t *testing.T) {
	svc := &fakeService{}
	sink := &recordingSink{}
	r := newTestEngine(svc, sink, 1<<20)

	w := do(r, http.MethodPost, "/api/query", bytes.NewBufferString(`{"question":"what?","top_k":3}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, svc.lastTopK)
	assert.Equal(t, []string{string(biz.EventQueryReceived)}, sink.types())
	assert.Equal(t, "question: what?", sink.events[0].Message)

	var res biz.QueryResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, biz.ModeGeneral, res.Mode)
	assert.NotNil(t, res.HitInfo)
}

func TestQueryValidation(t *testing.T) {
	r := newTestEngine(&fakeService{}, nil, 1<<20)

	tests := []struct {
		name string
		body string
	}{
		{"missing question", `{}`},
		{"blank question", `{"question":"   "}`},
		{"top_k too large", `{"question":"q","top_k":51}`},
		{"malformed json", `{"question":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/query", bytes.NewBufferString(tt.body), "application/json")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestQueryErrorResult(t *testing.T) {
	svc := &fakeService{queryRes: &biz.QueryResult{
		Status:  biz.StatusError,
		Message: "down",
		Answer:  biz.ErrorAnswer,
		HitInfo: []biz.HitInfo{},
	}}
	r := newTestEngine(svc, nil, 1<<20)

	w := do(r, http.MethodPost, "/api/query", bytes.NewBufferString(`{"question":"q"}`), "application/json")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), biz.ErrorAnswer)
}

func TestHealth(t *testing.T) {
	r := newTestEngine(&fakeService{count: 7}, nil, 1<<20)
	w := do(r, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","points_count":7,"collection":"network_docs"}`, w.Body.String())

	r = newTestEngine(&fakeService{countErr: errors.New("unreachable")}, nil, 1<<20)
	w = do(r, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetrics(t *testing.T) {
	r := newTestEngine(&fakeService{}, nil, 1<<20)

	w := do(r, http.MethodGet, "/api/v1/rag/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"collection":"network_docs"}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/rag/metrics?format=prometheus", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, w.Body.String(), "sentinel_rag_")
}

func TestEventsWithoutAuditStore(t *testing.T) {
	r := newTestEngine(&fakeService{}, nil, 1<<20)
	w := do(r, http.MethodGet, "/api/v1/rag/events", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestIndex(t *testing.T) {
	r := newTestEngine(&fakeService{}, nil, 1<<20)
	w := do(r, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<title>Sentinel RAG</title>")
}
