package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vectoropts "github.com/kart-io/sentinel-rag/pkg/options/vectorstore"
)

func TestDefaultsAreValid(t *testing.T) {
	opts := NewServerOptions()
	require.NoError(t, opts.Complete())
	assert.NoError(t, opts.Validate())

	cfg, err := opts.Config()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8000", cfg.HTTPOptions.Addr)
	assert.Equal(t, "network_docs", cfg.VectorStoreOptions.Collection)
	assert.Equal(t, 1000, cfg.RAGOptions.ChunkSize)
	assert.Equal(t, 200, cfg.RAGOptions.ChunkOverlap)
}

func TestFlagsAreNamespaced(t *testing.T) {
	fss := NewServerOptions().Flags()

	lookup := func(name string) bool {
		for _, fs := range fss.FlagSets {
			if fs.Lookup(name) != nil {
				return true
			}
		}
		return false
	}

	for _, name := range []string{
		"http.addr",
		"grpc.addr",
		"log.level",
		"vector-store.type",
		"qdrant.protocol",
		"milvus.address",
		"embedding.model",
		"chat.model",
		"rag.chunk-size",
		"cache.enabled",
		"cache.redis.host",
		"audit.driver",
		"tracing.enabled",
		"shutdown-timeout",
	} {
		assert.True(t, lookup(name), "missing flag %s", name)
	}
}

func TestValidateOnlySelectedBackend(t *testing.T) {
	opts := NewServerOptions()
	opts.MilvusOptions.Address = ""
	require.NoError(t, opts.Complete())
	assert.NoError(t, opts.Validate())

	opts.VectorStoreOptions.Type = vectoropts.TypeMilvus
	assert.ErrorContains(t, opts.Validate(), "milvus address is required")
}

func TestValidateAggregatesErrors(t *testing.T) {
	opts := NewServerOptions()
	opts.RAGOptions.ChunkOverlap = 2000
	opts.VectorStoreOptions.Type = "faiss"

	err := opts.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk-overlap")
	assert.Contains(t, err.Error(), "faiss")
}
