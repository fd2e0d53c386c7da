// Package audit provides options for the document lifecycle audit store.
package audit

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Supported audit database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Options configures the gorm backed audit trail.
type Options struct {
	// Enabled turns on persistence of pipeline events.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// Driver is one of sqlite, mysql or postgres.
	Driver string `json:"driver" mapstructure:"driver"`

	// DSN is the driver specific data source name.
	DSN string `json:"-" mapstructure:"dsn"`

	// MaxOpenConnections limits open connections.
	MaxOpenConnections int `json:"max-open-connections" mapstructure:"max-open-connections"`

	// MaxIdleConnections limits idle connections.
	MaxIdleConnections int `json:"max-idle-connections" mapstructure:"max-idle-connections"`

	// MaxConnectionLifeTime recycles connections after this duration.
	MaxConnectionLifeTime time.Duration `json:"max-connection-life-time" mapstructure:"max-connection-life-time"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Enabled:               false,
		Driver:                DriverSQLite,
		DSN:                   "_output/rag-audit.db",
		MaxOpenConnections:    10,
		MaxIdleConnections:    5,
		MaxConnectionLifeTime: 30 * time.Minute,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "audit."
	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Persist document and query events.")
	fs.StringVar(&o.Driver, p+"driver", o.Driver, "Audit database driver (sqlite, mysql, postgres).")
	fs.StringVar(&o.DSN, p+"dsn", o.DSN, "Audit database DSN.")
	fs.IntVar(&o.MaxOpenConnections, p+"max-open-connections", o.MaxOpenConnections, "Maximum open connections.")
	fs.IntVar(&o.MaxIdleConnections, p+"max-idle-connections", o.MaxIdleConnections, "Maximum idle connections.")
	fs.DurationVar(&o.MaxConnectionLifeTime, p+"max-connection-life-time", o.MaxConnectionLifeTime, "Maximum connection lifetime.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	switch o.Driver {
	case DriverSQLite, DriverMySQL, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unsupported audit driver %q", o.Driver))
	}
	if o.DSN == "" {
		errs = append(errs, fmt.Errorf("audit dsn is required"))
	}
	return errs
}
