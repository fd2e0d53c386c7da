package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	qdrantopts "github.com/kart-io/sentinel-rag/pkg/options/qdrant"
	"github.com/kart-io/sentinel-rag/pkg/utils/httpclient"
)

// RESTClient talks to the Qdrant HTTP API.
type RESTClient struct {
	baseURL string
	header  http.Header
	client  *httpclient.Client
}

var _ Client = (*RESTClient)(nil)

// NewREST creates a REST client.
func NewREST(opts *qdrantopts.Options) *RESTClient {
	return NewRESTWithURL(opts.BaseURL(), opts)
}

// NewRESTWithURL creates a REST client against an explicit base URL.
func NewRESTWithURL(baseURL string, opts *qdrantopts.Options) *RESTClient {
	header := http.Header{}
	if opts.APIKey != "" {
		header.Set("api-key", opts.APIKey)
	}
	return &RESTClient{
		baseURL: baseURL,
		header:  header,
		client:  httpclient.NewClient(opts.Timeout, opts.MaxRetries),
	}
}

type restPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
	Score   float32        `json:"score,omitempty"`
}

func (c *RESTClient) url(collection, suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", c.baseURL, collection, suffix)
}

// EnsureCollection implements Client.
func (c *RESTClient) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	err := c.client.SendJSON(ctx, http.MethodGet, c.url(collection, ""), c.header, nil, nil)
	if err == nil {
		return nil
	}
	var se *httpclient.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		return fmt.Errorf("qdrant: get collection %s: %w", collection, err)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := c.client.SendJSON(ctx, http.MethodPut, c.url(collection, ""), c.header, body, nil); err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", collection, err)
	}
	return nil
}

// Upsert implements Client.
func (c *RESTClient) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	batch := make([]restPoint, len(points))
	for i, p := range points {
		batch[i] = restPoint{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}
	body := map[string]any{"points": batch}
	if err := c.client.SendJSON(ctx, http.MethodPut, c.url(collection, "/points?wait=true"), c.header, body, nil); err != nil {
		return fmt.Errorf("qdrant: upsert %d points: %w", len(points), err)
	}
	return nil
}

// Search implements Client.
func (c *RESTClient) Search(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []restPoint `json:"result"`
	}
	if err := c.client.SendJSON(ctx, http.MethodPost, c.url(collection, "/points/search"), c.header, req, &resp); err != nil {
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}

	hits := make([]ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, ScoredPoint{ID: r.ID, Score: r.Score, Payload: r.Payload})
	}
	return hits, nil
}

// ScrollMatch implements Client.
func (c *RESTClient) ScrollMatch(ctx context.Context, collection, key, value string, limit int) ([]Point, error) {
	req := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if key != "" {
		req["filter"] = map[string]any{
			"must": []any{
				map[string]any{"key": key, "match": map[string]any{"value": value}},
			},
		}
	}
	var resp struct {
		Result struct {
			Points []restPoint `json:"points"`
		} `json:"result"`
	}
	if err := c.client.SendJSON(ctx, http.MethodPost, c.url(collection, "/points/scroll"), c.header, req, &resp); err != nil {
		return nil, fmt.Errorf("qdrant: scroll: %w", err)
	}

	points := make([]Point, 0, len(resp.Result.Points))
	for _, r := range resp.Result.Points {
		points = append(points, Point{ID: r.ID, Payload: r.Payload})
	}
	return points, nil
}

// Delete implements Client.
func (c *RESTClient) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]any{"points": ids}
	if err := c.client.SendJSON(ctx, http.MethodPost, c.url(collection, "/points/delete?wait=true"), c.header, body, nil); err != nil {
		return fmt.Errorf("qdrant: delete %d points: %w", len(ids), err)
	}
	return nil
}

// Count implements Client.
func (c *RESTClient) Count(ctx context.Context, collection string) (int64, error) {
	var resp struct {
		Result struct {
			PointsCount int64 `json:"points_count"`
		} `json:"result"`
	}
	if err := c.client.SendJSON(ctx, http.MethodGet, c.url(collection, ""), c.header, nil, &resp); err != nil {
		return 0, fmt.Errorf("qdrant: get collection %s: %w", collection, err)
	}
	return resp.Result.PointsCount, nil
}

// Close implements Client.
func (c *RESTClient) Close() error { return nil }
