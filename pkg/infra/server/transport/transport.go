// Package transport defines the contract shared by the HTTP and gRPC servers.
package transport

import "context"

// Transport represents a transport protocol server.
type Transport interface {
	// Start starts the transport server. It returns once the listener is bound.
	Start(ctx context.Context) error
	// Stop stops the transport server gracefully.
	Stop(ctx context.Context) error
	// Name returns the transport name (e.g., "http", "grpc").
	Name() string
}
