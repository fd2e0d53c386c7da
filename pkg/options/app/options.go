// Package app defines the options contract consumed by pkg/infra/app.
package app

import (
	cliflag "github.com/kart-io/sentinel-rag/pkg/infra/app/cliflag"
)

// CliOptions abstracts configuration options for reading parameters from the
// command line, a config file and the environment.
type CliOptions interface {
	// Flags returns flags grouped by section name.
	Flags() cliflag.NamedFlagSets

	// Complete fills in defaults derived from other fields.
	Complete() error

	// Validate checks the options and returns an aggregate error.
	Validate() error
}
