// Package vectorstore provides options selecting and shaping the vector index.
package vectorstore

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Supported vector index backends.
const (
	TypeQdrant = "qdrant"
	TypeMilvus = "milvus"
	TypeMemory = "memory"
)

// Options selects the vector index backend and its collection.
type Options struct {
	// Type is one of qdrant, milvus or memory.
	Type string `json:"type" mapstructure:"type"`

	// Collection is the logical collection name.
	Collection string `json:"collection" mapstructure:"collection"`

	// Dimension is the embedding dimension the collection is created with.
	Dimension int `json:"dimension" mapstructure:"dimension"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Type:       TypeQdrant,
		Collection: "network_docs",
		Dimension:  768,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "vector-store."
	fs.StringVar(&o.Type, p+"type", o.Type, "Vector index backend (qdrant, milvus, memory).")
	fs.StringVar(&o.Collection, p+"collection", o.Collection, "Collection name.")
	fs.IntVar(&o.Dimension, p+"dimension", o.Dimension, "Embedding vector dimension.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Type {
	case TypeQdrant, TypeMilvus, TypeMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported vector-store type %q", o.Type))
	}
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("vector-store collection is required"))
	}
	if o.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("vector-store dimension must be positive"))
	}
	return errs
}
