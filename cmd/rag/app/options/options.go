// Package options contains flags and options for initializing the RAG server.
package options

import (
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	ragsvc "github.com/kart-io/sentinel-rag/internal/rag"
	cliflag "github.com/kart-io/sentinel-rag/pkg/infra/app/cliflag"
	auditopts "github.com/kart-io/sentinel-rag/pkg/options/audit"
	cacheopts "github.com/kart-io/sentinel-rag/pkg/options/cache"
	llmopts "github.com/kart-io/sentinel-rag/pkg/options/llm"
	logopts "github.com/kart-io/sentinel-rag/pkg/options/logger"
	milvusopts "github.com/kart-io/sentinel-rag/pkg/options/milvus"
	qdrantopts "github.com/kart-io/sentinel-rag/pkg/options/qdrant"
	ragopts "github.com/kart-io/sentinel-rag/pkg/options/rag"
	grpcopts "github.com/kart-io/sentinel-rag/pkg/options/server/grpc"
	httpopts "github.com/kart-io/sentinel-rag/pkg/options/server/http"
	tracingopts "github.com/kart-io/sentinel-rag/pkg/options/tracing"
	vectoropts "github.com/kart-io/sentinel-rag/pkg/options/vectorstore"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// GRPCOptions contains gRPC server configuration.
	GRPCOptions *grpcopts.Options `json:"grpc" mapstructure:"grpc"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// TracingOptions contains OpenTelemetry configuration.
	TracingOptions *tracingopts.Options `json:"tracing" mapstructure:"tracing"`

	// VectorStoreOptions selects the vector index backend.
	VectorStoreOptions *vectoropts.Options `json:"vector-store" mapstructure:"vector-store"`

	// QdrantOptions contains Qdrant connection configuration.
	QdrantOptions *qdrantopts.Options `json:"qdrant" mapstructure:"qdrant"`

	// MilvusOptions contains Milvus connection configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// RAGOptions contains retrieval pipeline configuration.
	RAGOptions *ragopts.Options `json:"rag" mapstructure:"rag"`

	// CacheOptions contains cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// AuditOptions contains the event audit store configuration.
	AuditOptions *auditopts.Options `json:"audit" mapstructure:"audit"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:        httpopts.NewOptions(),
		GRPCOptions:        grpcopts.NewOptions(),
		LogOptions:         logopts.NewOptions(),
		TracingOptions:     tracingopts.NewOptions(),
		VectorStoreOptions: vectoropts.NewOptions(),
		QdrantOptions:      qdrantopts.NewOptions(),
		MilvusOptions:      milvusopts.NewOptions(),
		EmbeddingOptions:   llmopts.NewEmbeddingOptions(),
		ChatOptions:        llmopts.NewChatOptions(),
		RAGOptions:         ragopts.NewOptions(),
		CacheOptions:       cacheopts.NewOptions(),
		AuditOptions:       auditopts.NewOptions(),
		ShutdownTimeout:    30 * time.Second,
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.GRPCOptions.AddFlags(fss.FlagSet("grpc"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))
	o.VectorStoreOptions.AddFlags(fss.FlagSet("vector-store"))
	o.QdrantOptions.AddFlags(fss.FlagSet("qdrant"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding")
	o.ChatOptions.AddFlags(fss.FlagSet("chat"), "chat")
	o.RAGOptions.AddFlags(fss.FlagSet("rag"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))
	o.AuditOptions.AddFlags(fss.FlagSet("audit"))

	// misc flags
	fs := fss.FlagSet("misc")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")

	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.HTTPOptions.Complete(); err != nil {
		return err
	}
	if err := o.GRPCOptions.Complete(); err != nil {
		return err
	}
	if err := o.LogOptions.Complete(); err != nil {
		return err
	}
	if err := o.QdrantOptions.Complete(); err != nil {
		return fmt.Errorf("qdrant: %w", err)
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := o.RAGOptions.Complete(); err != nil {
		return fmt.Errorf("rag: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.GRPCOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.TracingOptions.Validate()...)
	errs = append(errs, o.VectorStoreOptions.Validate()...)
	switch o.VectorStoreOptions.Type {
	case vectoropts.TypeQdrant:
		errs = append(errs, o.QdrantOptions.Validate()...)
	case vectoropts.TypeMilvus:
		errs = append(errs, o.MilvusOptions.Validate()...)
	}
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.RAGOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	errs = append(errs, o.AuditOptions.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Config builds a ragsvc.Config based on ServerOptions.
func (o *ServerOptions) Config() (*ragsvc.Config, error) {
	return &ragsvc.Config{
		HTTPOptions:        o.HTTPOptions,
		GRPCOptions:        o.GRPCOptions,
		LogOptions:         o.LogOptions,
		TracingOptions:     o.TracingOptions,
		VectorStoreOptions: o.VectorStoreOptions,
		QdrantOptions:      o.QdrantOptions,
		MilvusOptions:      o.MilvusOptions,
		EmbeddingOptions:   o.EmbeddingOptions,
		ChatOptions:        o.ChatOptions,
		RAGOptions:         o.RAGOptions,
		CacheOptions:       o.CacheOptions,
		AuditOptions:       o.AuditOptions,
		ShutdownTimeout:    o.ShutdownTimeout,
	}, nil
}
