// Package grpc provides the gRPC transport with health checking and reflection.
package grpc

import (
	"context"
	"net"
	"sync"

	"github.com/kart-io/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/kart-io/sentinel-rag/pkg/infra/server/transport"
	grpcopts "github.com/kart-io/sentinel-rag/pkg/options/server/grpc"
)

// Options is re-exported from pkg/options/server/grpc for convenience.
type Options = grpcopts.Options

// NewOptions is re-exported from pkg/options/server/grpc for convenience.
var NewOptions = grpcopts.NewOptions

// Server is the gRPC server implementation.
type Server struct {
	opts   *grpcopts.Options
	server *grpc.Server
	health *health.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new gRPC server. The standard health service is always
// registered; reflection is registered when enabled in opts.
func NewServer(opts *grpcopts.Options, interceptors ...grpc.UnaryServerInterceptor) *Server {
	if opts == nil {
		opts = grpcopts.NewOptions()
	}

	srv := grpc.NewServer(
		grpc.MaxRecvMsgSize(opts.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(opts.MaxSendMsgSize),
		grpc.ChainUnaryInterceptor(interceptors...),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	if opts.EnableReflection {
		reflection.Register(srv)
	}

	return &Server{
		opts:   opts,
		server: srv,
		health: hs,
	}
}

// Name returns the server name.
func (s *Server) Name() string {
	return "grpc"
}

// RegisterService registers a service implementation and marks it serving.
func (s *Server) RegisterService(desc *grpc.ServiceDesc, impl interface{}) {
	s.server.RegisterService(desc, impl)
	s.health.SetServingStatus(desc.ServiceName, healthpb.HealthCheckResponse_SERVING)
}

// Server returns the underlying grpc.Server.
func (s *Server) Server() *grpc.Server {
	return s.server
}

// Addr returns the bound listener address, or the configured address before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.opts.Addr
}

// Start binds the listener and serves in the background.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(ln); err != nil {
			logger.Errorw("gRPC server stopped unexpectedly", "addr", ln.Addr().String(), "error", err.Error())
		}
	}()
	return nil
}

// Stop marks every service as not serving and stops gracefully, forcing
// the stop when ctx expires first.
func (s *Server) Stop(ctx context.Context) error {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-ctx.Done():
		s.server.Stop()
		return ctx.Err()
	case <-done:
		return nil
	}
}

var _ transport.Transport = (*Server)(nil)
