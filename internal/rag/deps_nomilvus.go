//go:build qdrantgrpc

package ragsvc

import (
	"context"
	"fmt"

	"github.com/kart-io/sentinel-rag/internal/rag/store"
)

// Milvus 与 qdrant gRPC 客户端注册了同名的 common.proto，不能链接进同一个二进制。
func (s *Server) newMilvusStore(context.Context, *Config) (store.VectorStore, error) {
	return nil, fmt.Errorf("milvus backend is not available in builds with the qdrantgrpc tag")
}
