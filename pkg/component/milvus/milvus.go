// Package milvus wraps the Milvus v2 SDK with the collection layout used by
// the document index: a VarChar primary key, a float vector and scalar
// payload columns.
package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/kart-io/sentinel-rag/pkg/options/milvus"
)

// Reserved column names.
const (
	FieldID        = "id"
	FieldEmbedding = "embedding"
)

// Client wraps the Milvus SDK client.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

// New creates a new Milvus client.
func New(ctx context.Context, opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{client: c, opts: opts}, nil
}

// Close closes the Milvus client connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// CollectionSchema defines the schema for a vector collection.
type CollectionSchema struct {
	Name        string
	Description string
	Dimension   int
	MetaFields  []MetaField
}

// MetaField defines a scalar field in the collection.
type MetaField struct {
	Name     string
	DataType entity.FieldType
	MaxLen   int // VarChar only
}

// CreateCollection creates the collection, its cosine IVF_FLAT index and
// loads it. An existing collection is left untouched.
func (c *Client) CreateCollection(ctx context.Context, schema *CollectionSchema) error {
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(schema.Name))
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return c.load(ctx, schema.Name)
	}

	collSchema := entity.NewSchema().
		WithName(schema.Name).
		WithDescription(schema.Description).
		WithAutoID(false)

	collSchema.WithField(
		entity.NewField().
			WithName(FieldID).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(64).
			WithIsPrimaryKey(true).
			WithIsAutoID(false),
	)
	collSchema.WithField(
		entity.NewField().
			WithName(FieldEmbedding).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(schema.Dimension)),
	)
	for _, f := range schema.MetaFields {
		field := entity.NewField().
			WithName(f.Name).
			WithDataType(f.DataType)
		if f.DataType == entity.FieldTypeVarChar && f.MaxLen > 0 {
			field.WithMaxLength(int64(f.MaxLen))
		}
		collSchema.WithField(field)
	}

	if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(schema.Name, collSchema)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx := index.NewIvfFlatIndex(entity.COSINE, c.opts.NList)
	createIdxTask, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(schema.Name, FieldEmbedding, idx))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := createIdxTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for index creation: %w", err)
	}

	return c.load(ctx, schema.Name)
}

func (c *Client) load(ctx context.Context, name string) error {
	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

// UpsertData is a column oriented batch keyed by string IDs.
type UpsertData struct {
	IDs        []string
	Embeddings [][]float32
	Strings    map[string][]string
	Ints       map[string][]int64
}

// Upsert writes the batch and flushes so the rows are immediately searchable.
func (c *Client) Upsert(ctx context.Context, collectionName string, data *UpsertData) error {
	if len(data.IDs) == 0 {
		return nil
	}
	if len(data.Embeddings) != len(data.IDs) {
		return fmt.Errorf("upsert: %d ids but %d embeddings", len(data.IDs), len(data.Embeddings))
	}

	columns := make([]column.Column, 0, len(data.Strings)+len(data.Ints)+2)
	columns = append(columns,
		column.NewColumnVarChar(FieldID, data.IDs),
		column.NewColumnFloatVector(FieldEmbedding, len(data.Embeddings[0]), data.Embeddings),
	)
	for name, values := range data.Strings {
		columns = append(columns, column.NewColumnVarChar(name, values))
	}
	for name, values := range data.Ints {
		columns = append(columns, column.NewColumnInt64(name, values))
	}

	if _, err := c.client.Upsert(ctx, milvusclient.NewColumnBasedInsertOption(collectionName, columns...)); err != nil {
		return fmt.Errorf("failed to upsert data: %w", err)
	}

	flushTask, err := c.client.Flush(ctx, milvusclient.NewFlushOption(collectionName))
	if err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for flush: %w", err)
	}
	return nil
}

// Row is one entity returned by Search or Query.
type Row struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// Search performs a cosine similarity search.
func (c *Client) Search(ctx context.Context, collectionName string, vector []float32, topK int, outputFields []string) ([]Row, error) {
	results, err := c.client.Search(ctx, milvusclient.NewSearchOption(
		collectionName,
		topK,
		[]entity.Vector{entity.FloatVector(vector)},
	).WithANNSField(FieldEmbedding).
		WithSearchParam("nprobe", strconv.Itoa(c.opts.NProbe)).
		WithConsistencyLevel(entity.ClStrong).
		WithOutputFields(outputFields...))
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	if len(results) == 0 {
		return []Row{}, nil
	}

	rs := results[0]
	rows := make([]Row, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		row := Row{Score: rs.Scores[i], Metadata: rowMetadata(rs.Fields, i)}
		if idCol, ok := rs.IDs.(*column.ColumnVarChar); ok {
			row.ID = idCol.Data()[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Query returns up to limit rows matching a boolean filter expression.
func (c *Client) Query(ctx context.Context, collectionName, expr string, limit int, outputFields []string) ([]Row, error) {
	rs, err := c.client.Query(ctx, milvusclient.NewQueryOption(collectionName).
		WithFilter(expr).
		WithOutputFields(append([]string{FieldID}, outputFields...)...).
		WithConsistencyLevel(entity.ClStrong).
		WithLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	rows := make([]Row, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		md := rowMetadata(rs.Fields, i)
		id, _ := md[FieldID].(string)
		delete(md, FieldID)
		rows = append(rows, Row{ID: id, Metadata: md})
	}
	return rows, nil
}

func rowMetadata(fields []column.Column, i int) map[string]any {
	md := make(map[string]any, len(fields))
	for _, field := range fields {
		switch col := field.(type) {
		case *column.ColumnVarChar:
			md[col.Name()] = col.Data()[i]
		case *column.ColumnInt64:
			md[col.Name()] = col.Data()[i]
		}
	}
	return md
}

// DeleteByIDs deletes entities by primary key.
func (c *Client) DeleteByIDs(ctx context.Context, collectionName string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := c.client.Delete(ctx, milvusclient.NewDeleteOption(collectionName).WithStringIDs(FieldID, ids)); err != nil {
		return fmt.Errorf("failed to delete by ids: %w", err)
	}
	return nil
}

// CountRows returns the number of live entities using a strongly consistent
// count(*) query, which unlike collection statistics excludes deleted rows.
func (c *Client) CountRows(ctx context.Context, collectionName string) (int64, error) {
	rs, err := c.client.Query(ctx, milvusclient.NewQueryOption(collectionName).
		WithOutputFields("count(*)").
		WithConsistencyLevel(entity.ClStrong))
	if err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	for _, field := range rs.Fields {
		if col, ok := field.(*column.ColumnInt64); ok && col.Name() == "count(*)" && col.Len() > 0 {
			return col.Data()[0], nil
		}
	}
	return 0, nil
}
