package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// RAG 服务错误码 (AA = 20)
var (
	// 输入错误 (类别 01)
	ErrRAGInvalidRequest  = Register(New(MakeCode(ServiceRAG, CategoryRequest, 1), http.StatusBadRequest, codes.InvalidArgument, "Invalid request parameters", "请求参数无效"))
	ErrRAGUnsupportedFile = Register(New(MakeCode(ServiceRAG, CategoryRequest, 2), http.StatusBadRequest, codes.InvalidArgument, "Unsupported file", "不支持的文件"))
	ErrRAGDecodeFailed    = Register(New(MakeCode(ServiceRAG, CategoryRequest, 3), http.StatusBadRequest, codes.InvalidArgument, "Unable to decode file content", "文件内容解码失败"))
	ErrRAGEmptyDocument   = Register(New(MakeCode(ServiceRAG, CategoryRequest, 4), http.StatusBadRequest, codes.InvalidArgument, "Document has no text content", "文档没有文本内容"))

	// 依赖错误 (类别 07 / 10 / 11)
	ErrRAGIndexFailed        = Register(New(MakeCode(ServiceRAG, CategoryInternal, 1), http.StatusInternalServerError, codes.Internal, "Document indexing failed", "文档索引失败"))
	ErrRAGDeleteFailed       = Register(New(MakeCode(ServiceRAG, CategoryInternal, 2), http.StatusInternalServerError, codes.Internal, "Document deletion failed", "文档删除失败"))
	ErrRAGQueryFailed        = Register(New(MakeCode(ServiceRAG, CategoryInternal, 3), http.StatusInternalServerError, codes.Internal, "Query failed", "查询失败"))
	ErrRAGServiceUnavailable = Register(New(MakeCode(ServiceRAG, CategoryNetwork, 1), http.StatusServiceUnavailable, codes.Unavailable, "RAG service unavailable", "RAG 服务不可用"))
	ErrRAGQueryTimeout       = Register(New(MakeCode(ServiceRAG, CategoryTimeout, 1), http.StatusRequestTimeout, codes.DeadlineExceeded, "Query timeout", "查询超时"))
)
