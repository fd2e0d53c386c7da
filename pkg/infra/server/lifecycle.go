// Package server runs the HTTP and gRPC transports under one lifecycle.
package server

import "github.com/kart-io/sentinel-rag/pkg/infra/server/transport"

// Runnable represents a component that can be started and stopped.
type Runnable = transport.Transport
