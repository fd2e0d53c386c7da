//go:build !qdrantgrpc

package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/sentinel-rag/pkg/component/milvus"
)

var outputFields = []string{FieldDocID, FieldFileName, FieldChunkIndex, FieldText, FieldUploadedAt}

// MilvusStore 基于 Milvus 的向量存储。
type MilvusStore struct {
	client *milvus.Client
}

var _ VectorStore = (*MilvusStore)(nil)

// NewMilvusStore 创建 Milvus 存储实例。
func NewMilvusStore(client *milvus.Client) *MilvusStore {
	return &MilvusStore{client: client}
}

// EnsureCollection 实现 VectorStore。
func (s *MilvusStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	return s.client.CreateCollection(ctx, &milvus.CollectionSchema{
		Name:        collection,
		Description: "document chunks",
		Dimension:   dimension,
		MetaFields: []milvus.MetaField{
			{Name: FieldDocID, DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: FieldFileName, DataType: entity.FieldTypeVarChar, MaxLen: 1024},
			{Name: FieldChunkIndex, DataType: entity.FieldTypeInt64},
			{Name: FieldText, DataType: entity.FieldTypeVarChar, MaxLen: 65535},
			{Name: FieldUploadedAt, DataType: entity.FieldTypeVarChar, MaxLen: 64},
		},
	})
}

// Upsert 实现 VectorStore。
func (s *MilvusStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	if err := checkDimension(points); err != nil {
		return err
	}

	data := &milvus.UpsertData{
		IDs:        make([]string, len(points)),
		Embeddings: make([][]float32, len(points)),
		Strings: map[string][]string{
			FieldDocID:      make([]string, len(points)),
			FieldFileName:   make([]string, len(points)),
			FieldText:       make([]string, len(points)),
			FieldUploadedAt: make([]string, len(points)),
		},
		Ints: map[string][]int64{
			FieldChunkIndex: make([]int64, len(points)),
		},
	}
	for i, p := range points {
		data.IDs[i] = p.ID
		data.Embeddings[i] = p.Vector
		data.Strings[FieldDocID][i] = p.Payload.DocID
		data.Strings[FieldFileName][i] = p.Payload.FileName
		data.Strings[FieldText][i] = p.Payload.Text
		data.Strings[FieldUploadedAt][i] = p.Payload.UploadedAt
		data.Ints[FieldChunkIndex][i] = int64(p.Payload.ChunkIndex)
	}
	return s.client.Upsert(ctx, collection, data)
}

// Search 实现 VectorStore。
func (s *MilvusStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]ScoredPoint, error) {
	rows, err := s.client.Search(ctx, collection, vector, topK, outputFields)
	if err != nil {
		return nil, err
	}
	out := make([]ScoredPoint, len(rows))
	for i, r := range rows {
		out[i] = ScoredPoint{ID: r.ID, Score: r.Score, Payload: PayloadFromMap(r.Metadata)}
	}
	return out, nil
}

// Scroll 实现 VectorStore。
func (s *MilvusStore) Scroll(ctx context.Context, collection, docID string, limit int) ([]Point, error) {
	expr := FieldDocID + ` != ""`
	if docID != "" {
		expr = FieldDocID + " == " + strconv.Quote(docID)
	}
	rows, err := s.client.Query(ctx, collection, expr, limit, outputFields)
	if err != nil {
		return nil, err
	}
	out := make([]Point, len(rows))
	for i, r := range rows {
		out[i] = Point{ID: r.ID, Payload: PayloadFromMap(r.Metadata)}
	}
	return out, nil
}

// Delete 实现 VectorStore。
func (s *MilvusStore) Delete(ctx context.Context, collection string, ids []string) error {
	return s.client.DeleteByIDs(ctx, collection, ids)
}

// Count 实现 VectorStore。
func (s *MilvusStore) Count(ctx context.Context, collection string) (int64, error) {
	n, err := s.client.CountRows(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

// Close 实现 VectorStore。
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}
