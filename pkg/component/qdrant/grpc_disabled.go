//go:build !qdrantgrpc

package qdrant

import (
	"errors"

	qdrantopts "github.com/kart-io/sentinel-rag/pkg/options/qdrant"
)

// ErrGRPCDisabled is returned by NewGRPC in builds without the qdrantgrpc tag.
//
// The official gRPC client registers a proto file named common.proto, as does
// the Milvus SDK, and the protobuf runtime refuses to load both. The default
// build keeps Milvus and talks to Qdrant over REST.
var ErrGRPCDisabled = errors.New("qdrant gRPC protocol requires a build with -tags qdrantgrpc")

// NewGRPC reports ErrGRPCDisabled.
func NewGRPC(*qdrantopts.Options) (Client, error) {
	return nil, ErrGRPCDisabled
}
