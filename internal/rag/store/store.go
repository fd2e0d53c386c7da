package store

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Payload 字段名。
const (
	FieldDocID      = "doc_id"
	FieldFileName   = "file_name"
	FieldChunkIndex = "chunk_index"
	FieldText       = "text"
	FieldUploadedAt = "uploaded_at"
)

// ErrCollectionNotFound 集合不存在。
var ErrCollectionNotFound = errors.New("collection not found")

// Payload 是每个文档块点携带的元数据。
type Payload struct {
	DocID      string `json:"doc_id"`
	FileName   string `json:"file_name"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	UploadedAt string `json:"uploaded_at"`
}

// ToMap 转换为通用 map，供 REST/gRPC 客户端序列化。
func (p Payload) ToMap() map[string]any {
	return map[string]any{
		FieldDocID:      p.DocID,
		FieldFileName:   p.FileName,
		FieldChunkIndex: p.ChunkIndex,
		FieldText:       p.Text,
		FieldUploadedAt: p.UploadedAt,
	}
}

// PayloadFromMap 从通用 map 还原 Payload，缺失字段保持零值。
func PayloadFromMap(m map[string]any) Payload {
	var p Payload
	p.DocID, _ = m[FieldDocID].(string)
	p.FileName, _ = m[FieldFileName].(string)
	p.Text, _ = m[FieldText].(string)
	p.UploadedAt, _ = m[FieldUploadedAt].(string)
	p.ChunkIndex = toInt(m[FieldChunkIndex])
	return p
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(math.Round(n))
	case float32:
		return int(math.Round(float64(n)))
	default:
		return 0
	}
}

// Point 向量点。
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// ScoredPoint 带相似度分数的检索结果。
type ScoredPoint struct {
	ID      string
	Score   float32
	Payload Payload
}

// VectorStore 定义向量存储接口。
type VectorStore interface {
	// EnsureCollection 集合不存在时按给定维度创建（余弦距离）。
	EnsureCollection(ctx context.Context, collection string, dimension int) error

	// Upsert 批量写入点，相同 ID 覆盖。返回时点已可检索。
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search 返回与 vector 最相似的至多 topK 个点，按分数降序。
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]ScoredPoint, error)

	// Scroll 返回至多 limit 个点（不含向量）。docID 非空时只返回该文档的点。
	Scroll(ctx context.Context, collection, docID string, limit int) ([]Point, error)

	// Delete 按 ID 删除点。
	Delete(ctx context.Context, collection string, ids []string) error

	// Count 返回集合中的点数。
	Count(ctx context.Context, collection string) (int64, error)

	// Close 释放连接。
	Close(ctx context.Context) error
}

func checkDimension(points []Point) error {
	if len(points) == 0 {
		return nil
	}
	dim := len(points[0].Vector)
	for i, p := range points {
		if len(p.Vector) != dim || dim == 0 {
			return fmt.Errorf("point %d has dimension %d, expected %d", i, len(p.Vector), dim)
		}
	}
	return nil
}
