// Package handler provides HTTP handlers for RAG service.
package handler

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-rag/internal/pkg/rag/docutil"
	"github.com/kart-io/sentinel-rag/internal/rag/audit"
	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/internal/rag/metrics"
	"github.com/kart-io/sentinel-rag/pkg/errors"
	"github.com/kart-io/sentinel-rag/pkg/utils/response"
)

// Config 处理器配置。
type Config struct {
	// Collection 集合名称，用于健康检查输出。
	Collection string
}

// RAGHandler handles RAG HTTP requests.
type RAGHandler struct {
	service biz.Service
	events  biz.EventSink
	metrics *metrics.RAGMetrics
	audit   *audit.Store
	config  Config
}

// NewRAGHandler creates a new RAGHandler. events, m and auditStore may be nil.
func NewRAGHandler(service biz.Service, events biz.EventSink, m *metrics.RAGMetrics, auditStore *audit.Store, config Config) *RAGHandler {
	if events == nil {
		events = biz.NopSink{}
	}
	return &RAGHandler{
		service: service,
		events:  events,
		metrics: m,
		audit:   auditStore,
		config:  config,
	}
}

func (h *RAGHandler) emit(ctx context.Context, event biz.Event) {
	event.Timestamp = time.Now()
	h.events.Emit(ctx, event)
}

// QueryRequest represents a query request.
type QueryRequest struct {
	Question string `json:"question" validate:"required,notblank" example:"What is a VLAN?"`
	TopK     int    `json:"top_k" validate:"omitempty,min=1,max=50" example:"5"`
}

// HealthResponse 健康检查响应。
type HealthResponse struct {
	Status      string `json:"status"`
	PointsCount int64  `json:"points_count"`
	Collection  string `json:"collection"`
}

// Upload godoc
//
//	@Summary		上传文档
//	@Description	上传文本或 PDF 文件，提取文本后分块、向量化并写入向量库
//	@Tags			documents
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"文本或 PDF 文件"
//	@Success		200		{object}	biz.IngestResult
//	@Failure		400		{object}	response.Response
//	@Failure		413		{object}	response.Response
//	@Failure		500		{object}	biz.IngestResult
//	@Router			/api/upload [post]
func (h *RAGHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()

	fh, err := c.FormFile("file")
	if err != nil {
		h.uploadFailed(c, "", uploadError(err))
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.uploadFailed(c, fh.Filename, errors.ErrRAGInvalidRequest.WithCause(err))
		return
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		h.uploadFailed(c, fh.Filename, uploadError(err))
		return
	}

	text, source, err := extract(fh.Filename, data)
	if err != nil {
		h.uploadFailed(c, fh.Filename, errors.ErrRAGDecodeFailed.WithMessagef("%s: %v", fh.Filename, err))
		return
	}
	if strings.TrimSpace(text) == "" {
		h.uploadFailed(c, fh.Filename, errors.ErrRAGEmptyDocument.WithMessagef("no text could be extracted from %s", fh.Filename))
		return
	}

	h.emit(ctx, biz.Event{
		Type:     biz.EventDocumentUploaded,
		Message:  fmt.Sprintf("upload: %s (%s, %d chars)", fh.Filename, source, len([]rune(text))),
		FileName: fh.Filename,
	})

	result := h.service.AddDocument(ctx, fh.Filename, text)
	if result.Status != biz.StatusSuccess {
		c.JSON(http.StatusInternalServerError, result)
		return
	}
	response.OK(c, result)
}

func (h *RAGHandler) uploadFailed(c *gin.Context, fileName string, e *errors.Errno) {
	logger.Warnw("upload rejected", "file_name", fileName, "error", e.Error())
	h.emit(c.Request.Context(), biz.Event{
		Type:     biz.EventDocumentUploadFailed,
		Message:  "upload failed: " + e.MessageEN,
		FileName: fileName,
		Error:    e.Error(),
	})
	response.Fail(c, e)
}

func uploadError(err error) *errors.Errno {
	var mbe *http.MaxBytesError
	if stderrors.As(err, &mbe) {
		return errors.ErrRequestTooLarge
	}
	return errors.ErrRAGInvalidRequest.WithMessagef("invalid upload: %v", err)
}

// extract 返回文件文本及其来源描述（PDF 或命中的文本编码）。
func extract(fileName string, data []byte) (string, string, error) {
	if docutil.IsPDF(fileName) {
		text, err := docutil.ExtractPDF(data)
		return text, "pdf", err
	}
	text, enc, err := docutil.DecodeText(data)
	if err != nil {
		return "", "", err
	}
	return text, "encoding: " + enc, nil
}

// ListDocuments godoc
//
//	@Summary	列出文档
//	@Tags		documents
//	@Produce	json
//	@Success	200	{array}	biz.DocumentInfo
//	@Router		/api/documents [get]
func (h *RAGHandler) ListDocuments(c *gin.Context) {
	docs := h.service.ListDocuments(c.Request.Context())
	if docs == nil {
		docs = []biz.DocumentInfo{}
	}
	response.OK(c, docs)
}

// DeleteDocument godoc
//
//	@Summary	删除文档
//	@Tags		documents
//	@Produce	json
//	@Param		doc_id	path		string	true	"文档ID"
//	@Success	200		{object}	biz.DeleteResult
//	@Failure	500		{object}	biz.DeleteResult
//	@Router		/api/documents/{doc_id} [delete]
func (h *RAGHandler) DeleteDocument(c *gin.Context) {
	docID := c.Param("doc_id")
	result := h.service.DeleteDocument(c.Request.Context(), docID)
	if result.Status != biz.StatusSuccess {
		c.JSON(http.StatusInternalServerError, result)
		return
	}
	response.OK(c, result)
}

// Query godoc
//
//	@Summary		知识库问答
//	@Description	检索相关分块并生成回答；无可用文档或相关度不足时直接由模型回答
//	@Tags			query
//	@Accept			json
//	@Produce		json
//	@Param			request	body		QueryRequest	true	"问题"
//	@Success		200		{object}	biz.QueryResult
//	@Failure		400		{object}	response.Response
//	@Failure		500		{object}	biz.QueryResult
//	@Router			/api/query [post]
func (h *RAGHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailWithBindOrValidation(c, err)
		return
	}

	ctx := c.Request.Context()
	h.emit(ctx, biz.Event{
		Type:    biz.EventQueryReceived,
		Message: "question: " + req.Question,
	})

	result := h.service.Query(ctx, req.Question, req.TopK)
	if result.Status != biz.StatusSuccess {
		c.JSON(http.StatusInternalServerError, result)
		return
	}
	response.OK(c, result)
}

// Health godoc
//
//	@Summary	健康检查
//	@Tags		system
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Failure	503	{object}	response.Response
//	@Router		/api/health [get]
func (h *RAGHandler) Health(c *gin.Context) {
	count, err := h.service.PointsCount(c.Request.Context())
	if err != nil {
		response.Fail(c, errors.ErrRAGServiceUnavailable.WithCause(err))
		return
	}
	response.OK(c, HealthResponse{
		Status:      "ok",
		PointsCount: count,
		Collection:  h.config.Collection,
	})
}

// Metrics godoc
//
//	@Summary		服务指标
//	@Description	默认返回 JSON 统计；format=prometheus 时返回 Prometheus 文本格式
//	@Tags			system
//	@Produce		json
//	@Produce		plain
//	@Param			format	query	string	false	"输出格式"	Enums(json, prometheus)
//	@Success		200		{object}	map[string]interface{}
//	@Router			/api/v1/rag/metrics [get]
func (h *RAGHandler) Metrics(c *gin.Context) {
	if c.Query("format") == "prometheus" && h.metrics != nil {
		h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
		return
	}
	response.OK(c, h.service.Stats(c.Request.Context()))
}

// Events godoc
//
//	@Summary	审计事件
//	@Tags		system
//	@Produce	json
//	@Param		type	query		string	false	"事件类型"
//	@Param		doc_id	query		string	false	"文档ID"
//	@Param		limit	query		int		false	"返回条数"	default(100)
//	@Success	200		{array}		audit.Record
//	@Failure	500		{object}	response.Response
//	@Router		/api/v1/rag/events [get]
func (h *RAGHandler) Events(c *gin.Context) {
	if h.audit == nil {
		response.OK(c, []audit.Record{})
		return
	}

	var q struct {
		Type  string `form:"type"`
		DocID string `form:"doc_id" validate:"omitempty,docid"`
		Limit int    `form:"limit" validate:"omitempty,min=1,max=500"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		response.FailWithBindOrValidation(c, err)
		return
	}

	records, err := h.audit.List(c.Request.Context(), audit.ListOptions{
		Type:  q.Type,
		DocID: q.DocID,
		Limit: q.Limit,
	})
	if err != nil {
		response.Fail(c, errors.ErrDatabase.WithCause(err))
		return
	}
	if records == nil {
		records = []audit.Record{}
	}
	response.OK(c, records)
}
