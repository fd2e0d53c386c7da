// Package rag provides retrieval pipeline configuration options.
package rag

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains retrieval pipeline configuration.
type Options struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the overlap between neighbouring chunks.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// ScrollLimit bounds the scans used by listing and deletion.
	ScrollLimit int `json:"scroll-limit" mapstructure:"scroll-limit"`

	// EmbedConcurrency is the number of chunks embedded in parallel during ingestion.
	EmbedConcurrency int `json:"embed-concurrency" mapstructure:"embed-concurrency"`

	// EmbedTimeout bounds a single embedding call.
	EmbedTimeout time.Duration `json:"embed-timeout" mapstructure:"embed-timeout"`

	// IndexTimeout bounds a single vector index call.
	IndexTimeout time.Duration `json:"index-timeout" mapstructure:"index-timeout"`

	// GenerateTimeout bounds a single language model call.
	GenerateTimeout time.Duration `json:"generate-timeout" mapstructure:"generate-timeout"`

	// MaxUploadSize is the largest accepted upload in bytes.
	MaxUploadSize int64 `json:"max-upload-size" mapstructure:"max-upload-size"`

	// SystemPrompt is sent with every generation request when non-empty.
	SystemPrompt string `json:"system-prompt" mapstructure:"system-prompt"`

	// PreloadDir is ingested at startup when set.
	PreloadDir string `json:"preload-dir" mapstructure:"preload-dir"`

	// PreloadExtensions restricts which files under PreloadDir are ingested.
	PreloadExtensions []string `json:"preload-extensions" mapstructure:"preload-extensions"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ChunkSize:         1000,
		ChunkOverlap:      200,
		ScrollLimit:       10000,
		EmbedConcurrency:  4,
		EmbedTimeout:      30 * time.Second,
		IndexTimeout:      30 * time.Second,
		GenerateTimeout:   120 * time.Second,
		MaxUploadSize:     32 << 20,
		PreloadExtensions: []string{".txt", ".md", ".pdf"},
	}
}

// AddFlags adds flags for RAG options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "rag."
	fs.IntVar(&o.ChunkSize, p+"chunk-size", o.ChunkSize, "Maximum chunk length in characters.")
	fs.IntVar(&o.ChunkOverlap, p+"chunk-overlap", o.ChunkOverlap, "Overlap between neighbouring chunks.")
	fs.IntVar(&o.ScrollLimit, p+"scroll-limit", o.ScrollLimit, "Maximum points scanned when listing or deleting documents.")
	fs.IntVar(&o.EmbedConcurrency, p+"embed-concurrency", o.EmbedConcurrency, "Chunks embedded in parallel during ingestion.")
	fs.DurationVar(&o.EmbedTimeout, p+"embed-timeout", o.EmbedTimeout, "Timeout of a single embedding call.")
	fs.DurationVar(&o.IndexTimeout, p+"index-timeout", o.IndexTimeout, "Timeout of a single vector index call.")
	fs.DurationVar(&o.GenerateTimeout, p+"generate-timeout", o.GenerateTimeout, "Timeout of a single language model call.")
	fs.Int64Var(&o.MaxUploadSize, p+"max-upload-size", o.MaxUploadSize, "Largest accepted upload in bytes.")
	fs.StringVar(&o.SystemPrompt, p+"system-prompt", o.SystemPrompt, "System prompt sent with every generation request.")
	fs.StringVar(&o.PreloadDir, p+"preload-dir", o.PreloadDir, "Directory ingested at startup.")
	fs.StringSliceVar(&o.PreloadExtensions, p+"preload-extensions", o.PreloadExtensions, "File extensions ingested from the preload directory.")
}

// Validate validates the RAG options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("rag.chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("rag.chunk-overlap must be within [0, chunk-size)"))
	}
	if o.ScrollLimit <= 0 {
		errs = append(errs, fmt.Errorf("rag.scroll-limit must be positive"))
	}
	if o.EmbedTimeout <= 0 || o.IndexTimeout <= 0 || o.GenerateTimeout <= 0 {
		errs = append(errs, fmt.Errorf("rag timeouts must be positive"))
	}
	if o.MaxUploadSize <= 0 {
		errs = append(errs, fmt.Errorf("rag.max-upload-size must be positive"))
	}
	return errs
}

// Complete completes the RAG options with defaults.
func (o *Options) Complete() error {
	if o.EmbedConcurrency <= 0 {
		o.EmbedConcurrency = 1
	}
	return nil
}
