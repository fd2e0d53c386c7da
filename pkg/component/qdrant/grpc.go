//go:build qdrantgrpc

package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	qdrantopts "github.com/kart-io/sentinel-rag/pkg/options/qdrant"
)

// GRPCClient talks to Qdrant through the official gRPC client.
type GRPCClient struct {
	client *qdrant.Client
}

var _ Client = (*GRPCClient)(nil)

// NewGRPC creates a gRPC client.
func NewGRPC(opts *qdrantopts.Options) (*GRPCClient, error) {
	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   opts.Host,
		Port:   opts.GRPCPort,
		APIKey: opts.APIKey,
		UseTLS: opts.HTTPS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return &GRPCClient{client: c}, nil
}

// EnsureCollection implements Client.
func (c *GRPCClient) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	exists, err := c.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("qdrant: check collection %s: %w", collection, err)
	}
	if exists {
		return nil
	}
	err = c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", collection, err)
	}
	return nil
}

// Upsert implements Client.
func (c *GRPCClient) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	batch := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		batch[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: toValueMap(p.Payload),
		}
	}
	wait := true
	if _, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         batch,
	}); err != nil {
		return fmt.Errorf("qdrant: upsert %d points: %w", len(points), err)
	}
	return nil
}

// Search implements Client.
func (c *GRPCClient) Search(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error) {
	n := uint64(limit)
	results, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &n,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}

	hits := make([]ScoredPoint, 0, len(results))
	for _, r := range results {
		hits = append(hits, ScoredPoint{
			ID:      r.GetId().GetUuid(),
			Score:   r.GetScore(),
			Payload: fromValueMap(r.GetPayload()),
		})
	}
	return hits, nil
}

// ScrollMatch implements Client.
func (c *GRPCClient) ScrollMatch(ctx context.Context, collection, key, value string, limit int) ([]Point, error) {
	n := uint32(limit)
	req := &qdrant.ScrollPoints{
		CollectionName: collection,
		Limit:          &n,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if key != "" {
		req.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(key, value)},
		}
	}

	results, err := c.client.Scroll(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant: scroll: %w", err)
	}

	points := make([]Point, 0, len(results))
	for _, r := range results {
		points = append(points, Point{ID: r.GetId().GetUuid(), Payload: fromValueMap(r.GetPayload())})
	}
	return points, nil
}

// Delete implements Client.
func (c *GRPCClient) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(id)
	}
	wait := true
	_, err := c.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Wait:           &wait,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete %d points: %w", len(ids), err)
	}
	return nil
}

// Count implements Client.
func (c *GRPCClient) Count(ctx context.Context, collection string) (int64, error) {
	exact := true
	n, err := c.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count %s: %w", collection, err)
	}
	return int64(n), nil
}

// Close implements Client.
func (c *GRPCClient) Close() error {
	return c.client.Close()
}

func toValueMap(m map[string]any) map[string]*qdrant.Value {
	out := make(map[string]*qdrant.Value, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			out[k] = qdrant.NewValueString(val)
		case int:
			out[k] = qdrant.NewValueInt(int64(val))
		case int64:
			out[k] = qdrant.NewValueInt(val)
		case float64:
			out[k] = qdrant.NewValueDouble(val)
		case bool:
			out[k] = qdrant.NewValueBool(val)
		default:
			out[k] = qdrant.NewValueString(fmt.Sprintf("%v", v))
		}
	}
	return out
}

func fromValueMap(m map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch kind := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			out[k] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			out[k] = kind.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[k] = kind.DoubleValue
		case *qdrant.Value_BoolValue:
			out[k] = kind.BoolValue
		}
	}
	return out
}
