package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/pkg/errors"
	"github.com/kart-io/sentinel-rag/pkg/utils/json"
	"github.com/kart-io/sentinel-rag/pkg/utils/validator"
)

// AddDocumentRequest 导入请求。
type AddDocumentRequest struct {
	FileName string `json:"file_name" validate:"required,notblank"`
	Content  string `json:"content" validate:"required,notblank"`
}

// DeleteDocumentRequest 删除请求。
type DeleteDocumentRequest struct {
	DocID string `json:"doc_id" validate:"required"`
}

// QueryRequest 问答请求。
type QueryRequest struct {
	Question string `json:"question" validate:"required,notblank"`
	TopK     int    `json:"top_k" validate:"omitempty,min=1,max=50"`
}

// Handler implements RAGServiceServer on top of biz.Service.
// Pipeline envelopes are returned unchanged, including status=error results;
// only malformed requests fail with a gRPC status.
type Handler struct {
	service biz.Service
	events  biz.EventSink
}

var _ RAGServiceServer = (*Handler)(nil)

// NewHandler creates a new gRPC handler. events may be nil.
func NewHandler(service biz.Service, events biz.EventSink) *Handler {
	if events == nil {
		events = biz.NopSink{}
	}
	return &Handler{
		service: service,
		events:  events,
	}
}

// AddDocument ingests a document whose text is already extracted.
func (h *Handler) AddDocument(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req AddDocumentRequest
	if err := decode(ctx, in, &req); err != nil {
		return nil, err
	}
	return encode(h.service.AddDocument(ctx, req.FileName, req.Content))
}

// DeleteDocument removes every chunk of a document.
func (h *Handler) DeleteDocument(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req DeleteDocumentRequest
	if err := decode(ctx, in, &req); err != nil {
		return nil, err
	}
	return encode(h.service.DeleteDocument(ctx, req.DocID))
}

// ListDocuments returns all documents under the "documents" key.
func (h *Handler) ListDocuments(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	docs := h.service.ListDocuments(ctx)
	if docs == nil {
		docs = []biz.DocumentInfo{}
	}
	return encode(map[string]any{"documents": docs})
}

// Query answers a question.
func (h *Handler) Query(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req QueryRequest
	if err := decode(ctx, in, &req); err != nil {
		return nil, err
	}
	h.events.Emit(ctx, biz.Event{
		Type:    biz.EventQueryReceived,
		Message: "question: " + req.Question,
	})
	return encode(h.service.Query(ctx, req.Question, req.TopK))
}

// decode 将 Struct 转换为请求结构体并校验。
func decode(ctx context.Context, in *structpb.Struct, out any) error {
	data, err := json.Marshal(in.AsMap())
	if err != nil {
		return errors.ErrInvalidParam.WithCause(err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.ErrInvalidParam.WithMessagef("invalid request: %v", err)
	}
	if verr := validator.Global().ValidateWithLang(out, language(ctx)); verr != nil {
		return errors.ErrValidationFailed.WithMessage(verr.First())
	}
	return nil
}

// encode 将结果按 JSON 形态转换为 Struct。
func encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	return out, nil
}

func language(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get("accept-language"); len(v) > 0 {
		return v[0]
	}
	return ""
}
