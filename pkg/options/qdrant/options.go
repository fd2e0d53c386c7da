// Package qdrantopts provides options for the Qdrant clients.
package qdrantopts

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Supported transports.
const (
	ProtocolREST = "rest"
	ProtocolGRPC = "grpc"
)

// Options contains Qdrant connection configuration.
type Options struct {
	// Protocol selects the REST API or the gRPC API.
	Protocol string `json:"protocol" mapstructure:"protocol"`

	// Host is the Qdrant host name.
	Host string `json:"host" mapstructure:"host"`

	// Port is the Qdrant REST port.
	Port int `json:"port" mapstructure:"port"`

	// GRPCPort is the Qdrant gRPC port.
	GRPCPort int `json:"grpc-port" mapstructure:"grpc-port"`

	// HTTPS switches the scheme to https.
	HTTPS bool `json:"https" mapstructure:"https"`

	// APIKey is sent in the api-key header when set.
	APIKey string `json:"-" mapstructure:"api-key"`

	// Timeout bounds every request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries is the number of retries on transport errors and 5xx responses.
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Protocol:   ProtocolREST,
		Host:       "localhost",
		Port:       6333,
		GRPCPort:   6334,
		Timeout:    15 * time.Second,
		MaxRetries: 2,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "qdrant."
	fs.StringVar(&o.Protocol, p+"protocol", o.Protocol, "Qdrant API protocol (rest, grpc).")
	fs.StringVar(&o.Host, p+"host", o.Host, "Qdrant host.")
	fs.IntVar(&o.Port, p+"port", o.Port, "Qdrant REST port.")
	fs.IntVar(&o.GRPCPort, p+"grpc-port", o.GRPCPort, "Qdrant gRPC port.")
	fs.BoolVar(&o.HTTPS, p+"https", o.HTTPS, "Use TLS to reach Qdrant.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "Qdrant API key (or QDRANT_API_KEY).")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Qdrant request timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Qdrant request retries.")
}

// Complete reads the API key from the environment when not configured.
func (o *Options) Complete() error {
	if o.APIKey == "" {
		o.APIKey = os.Getenv("QDRANT_API_KEY")
	}
	return nil
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Host == "" {
		errs = append(errs, fmt.Errorf("qdrant host is required"))
	}
	switch o.Protocol {
	case ProtocolREST, ProtocolGRPC:
	default:
		errs = append(errs, fmt.Errorf("unsupported qdrant protocol %q", o.Protocol))
	}
	if o.Port <= 0 || o.Port > 65535 {
		errs = append(errs, fmt.Errorf("qdrant port %d is out of range", o.Port))
	}
	if o.GRPCPort <= 0 || o.GRPCPort > 65535 {
		errs = append(errs, fmt.Errorf("qdrant grpc port %d is out of range", o.GRPCPort))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("qdrant timeout must be positive"))
	}
	return errs
}

// BaseURL returns the REST endpoint, e.g. http://localhost:6333.
func (o *Options) BaseURL() string {
	scheme := "http"
	if o.HTTPS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, o.Host, o.Port)
}
