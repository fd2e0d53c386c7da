//go:build !qdrantgrpc

package ragsvc

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-rag/internal/rag/store"
	"github.com/kart-io/sentinel-rag/pkg/component/milvus"
)

func (s *Server) newMilvusStore(ctx context.Context, cfg *Config) (store.VectorStore, error) {
	client, err := milvus.New(ctx, cfg.MilvusOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize milvus: %w", err)
	}
	s.addCloser("milvus", client.Close)
	logger.Infow("Milvus client initialized", "address", cfg.MilvusOptions.Address)
	return store.NewMilvusStore(client), nil
}
