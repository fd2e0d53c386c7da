// Package qdrant provides Qdrant clients over the REST and gRPC APIs behind
// a single interface.
package qdrant

import (
	"context"
	"fmt"

	qdrantopts "github.com/kart-io/sentinel-rag/pkg/options/qdrant"
)

// Point is a vector with its payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is a search hit.
type ScoredPoint struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// Client is the subset of the Qdrant API used by the document index.
type Client interface {
	// EnsureCollection creates a cosine collection of the given dimension
	// when it does not exist yet.
	EnsureCollection(ctx context.Context, collection string, dimension int) error
	// Upsert writes points and waits until they are searchable.
	Upsert(ctx context.Context, collection string, points []Point) error
	// Search returns the limit nearest points with payloads.
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error)
	// ScrollMatch returns up to limit points whose payload key equals value.
	// A zero value key disables the filter.
	ScrollMatch(ctx context.Context, collection, key, value string, limit int) ([]Point, error)
	// Delete removes points by id and waits for completion.
	Delete(ctx context.Context, collection string, ids []string) error
	// Count returns the number of points in the collection.
	Count(ctx context.Context, collection string) (int64, error)
	// Close releases the connection.
	Close() error
}

// New creates a client for the configured protocol.
func New(opts *qdrantopts.Options) (Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("qdrant options is nil")
	}
	switch opts.Protocol {
	case qdrantopts.ProtocolGRPC:
		c, err := NewGRPC(opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	case qdrantopts.ProtocolREST, "":
		return NewREST(opts), nil
	default:
		return nil, fmt.Errorf("unsupported qdrant protocol %q", opts.Protocol)
	}
}
