// Package grpc exposes the RAG pipeline over gRPC.
//
// Messages are google.protobuf.Struct values carrying the same JSON shapes as
// the HTTP API, so the service is described by a hand-written ServiceDesc and
// needs no generated stubs.
package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "sentinel.rag.v1.RAGService"

// Full method names.
const (
	AddDocumentMethod    = "/" + ServiceName + "/AddDocument"
	DeleteDocumentMethod = "/" + ServiceName + "/DeleteDocument"
	ListDocumentsMethod  = "/" + ServiceName + "/ListDocuments"
	QueryMethod          = "/" + ServiceName + "/Query"
)

// RAGServiceServer is the server API for the RAG service.
type RAGServiceServer interface {
	// AddDocument ingests {file_name, content}.
	AddDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// DeleteDocument removes every chunk of {doc_id}.
	DeleteDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// ListDocuments returns {documents: [...]}.
	ListDocuments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Query answers {question, top_k}.
	Query(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterRAGServiceServer registers srv on s.
func RegisterRAGServiceServer(s grpc.ServiceRegistrar, srv RAGServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unaryHandler(
	fullMethod string,
	call func(RAGServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RAGServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(RAGServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc is the grpc.ServiceDesc for the RAG service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RAGServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AddDocument",
			Handler:    unaryHandler(AddDocumentMethod, RAGServiceServer.AddDocument),
		},
		{
			MethodName: "DeleteDocument",
			Handler:    unaryHandler(DeleteDocumentMethod, RAGServiceServer.DeleteDocument),
		},
		{
			MethodName: "ListDocuments",
			Handler:    unaryHandler(ListDocumentsMethod, RAGServiceServer.ListDocuments),
		},
		{
			MethodName: "Query",
			Handler:    unaryHandler(QueryMethod, RAGServiceServer.Query),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sentinel/rag/v1/rag.proto",
}

// Client is a thin client for the RAG service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a client over cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// AddDocument calls RAGService.AddDocument.
func (c *Client) AddDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AddDocumentMethod, in, opts...)
}

// DeleteDocument calls RAGService.DeleteDocument.
func (c *Client) DeleteDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, DeleteDocumentMethod, in, opts...)
}

// ListDocuments calls RAGService.ListDocuments.
func (c *Client) ListDocuments(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ListDocumentsMethod, in, opts...)
}

// Query calls RAGService.Query.
func (c *Client) Query(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, QueryMethod, in, opts...)
}
