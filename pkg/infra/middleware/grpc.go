package middleware

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/kart-io/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/kart-io/sentinel-rag/pkg/errors"
	"github.com/kart-io/sentinel-rag/pkg/infra/tracing"
)

// metadataCarrier adapts gRPC metadata to propagation.TextMapCarrier.
type metadataCarrier struct {
	md metadata.MD
}

func (c *metadataCarrier) Get(key string) string {
	values := c.md.Get(key)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (c *metadataCarrier) Set(key, value string) {
	c.md.Set(key, value)
}

func (c *metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(c.md))
	for key := range c.md {
		keys = append(keys, key)
	}
	return keys
}

// splitMethod splits "/pkg.Service/Method" into service and method.
func splitMethod(fullMethod string) (string, string) {
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	if i := strings.LastIndex(fullMethod, "/"); i >= 0 {
		return fullMethod[:i], fullMethod[i+1:]
	}
	return "unknown", fullMethod
}

// UnaryRecoveryInterceptor converts handler panics into ErrPanic.
func UnaryRecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("grpc panic recovered",
					"panic", r,
					"method", info.FullMethod,
					"stack_trace", string(debug.Stack()),
				)
				err = errors.ErrPanic.WithMessage(fmt.Sprintf("panic: %v", r))
			}
		}()
		return handler(ctx, req)
	}
}

// UnaryRequestIDInterceptor reads x-request-id from metadata or generates one.
func UnaryRequestIDInterceptor() grpc.UnaryServerInterceptor {
	key := strings.ToLower(HeaderXRequestID)
	return func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		requestID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get(key); len(values) > 0 {
				requestID = values[0]
			}
		}
		if requestID == "" {
			requestID = GenerateRequestID()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(key, requestID))
		return handler(WithRequestID(ctx, requestID), req)
	}
}

// UnaryLoggerInterceptor logs every unary call with its status code and latency.
func UnaryLoggerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		latency := time.Since(start)

		fields := []interface{}{
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"latency", latency.String(),
			"latency_ms", latency.Milliseconds(),
		}
		if requestID := GetRequestID(ctx); requestID != "" {
			fields = append(fields, "request_id", requestID)
		}
		if err != nil {
			logger.Warnw("gRPC Request", append(fields, "error", err.Error())...)
		} else {
			logger.Infow("gRPC Request", fields...)
		}
		return resp, err
	}
}

// UnaryTracingInterceptor starts a server span per call, continuing the trace
// carried in the incoming metadata.
func UnaryTracingInterceptor() grpc.UnaryServerInterceptor {
	tracer := otel.Tracer(tracing.TracerName)

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			ctx = otel.GetTextMapPropagator().Extract(ctx, &metadataCarrier{md: md})
		}

		service, method := splitMethod(info.FullMethod)
		ctx, span := tracer.Start(ctx, service+"/"+method,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.RPCSystemGRPC,
				semconv.RPCService(service),
				semconv.RPCMethod(method),
			),
		)
		defer span.End()

		resp, err := handler(ctx, req)
		if err != nil {
			st, _ := status.FromError(err)
			span.SetAttributes(attribute.Int(string(semconv.RPCGRPCStatusCodeKey), int(st.Code())))
			span.RecordError(err)
			span.SetStatus(codes.Error, st.Message())
		} else {
			span.SetAttributes(semconv.RPCGRPCStatusCodeOk)
		}
		return resp, err
	}
}
