package biz

// 结果状态。
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// 查询回答模式。
const (
	ModeGeneral  = "general"
	ModeRAG      = "rag"
	ModeFallback = "fallback"
)

// ErrorAnswer 是查询与兜底调用均失败时返回的回答。
const ErrorAnswer = "Sorry, an error occurred."

// IngestResult 文档导入结果。
type IngestResult struct {
	Status      string `json:"status"`
	DocID       string `json:"doc_id,omitempty"`
	ChunksCount int    `json:"chunks_count,omitempty"`
	Message     string `json:"message,omitempty"`
}

// DeleteResult 文档删除结果。
type DeleteResult struct {
	Status        string `json:"status"`
	DeletedPoints int    `json:"deleted_points"`
	Message       string `json:"message,omitempty"`
}

// DocumentInfo 文档摘要，由其分块聚合而来。
type DocumentInfo struct {
	DocID       string `json:"doc_id"`
	FileName    string `json:"file_name"`
	ChunksCount int    `json:"chunks_count"`
	UploadedAt  string `json:"uploaded_at"`
}

// HitInfo 描述一个参与回答的检索命中。
type HitInfo struct {
	Rank       int     `json:"rank"`
	FileName   string  `json:"file_name"`
	Score      float64 `json:"score"`
	ChunkIndex int     `json:"chunk_index"`
}

// QueryResult 问答结果。
type QueryResult struct {
	Status      string    `json:"status"`
	Answer      string    `json:"answer"`
	HitInfo     []HitInfo `json:"hit_info"`
	ContextUsed int       `json:"context_used"`
	Mode        string    `json:"mode,omitempty"`
	Message     string    `json:"message,omitempty"`
}
