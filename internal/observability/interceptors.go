// Package observability provides the metrics endpoint, health probes and the
// gRPC interceptors shared by every server in the service.
package observability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"transcript-search-service/internal/observability/metrics"
)

// RequestIDKey is the metadata key carrying a caller supplied request ID.
const RequestIDKey = "x-request-id"

const healthServicePrefix = "/grpc.health.v1.Health/"

// UnaryServerInterceptor records metrics and logs every unary call. Panics in
// handlers are turned into codes.Internal.
func UnaryServerInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer observe(ctx, m, info.FullMethod, time.Now(), &err)
		return handler(ctx, req)
	}
}

// StreamServerInterceptor is the streaming counterpart of
// UnaryServerInterceptor. Health Watch is the only streaming method served.
func StreamServerInterceptor(m *metrics.Metrics) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer observe(ss.Context(), m, info.FullMethod, time.Now(), &err)
		return handler(srv, ss)
	}
}

// observe must be deferred directly so that recover sees handler panics.
func observe(ctx context.Context, m *metrics.Metrics, method string, start time.Time, errp *error) {
	if r := recover(); r != nil {
		log.Error().Str("method", method).Str("panic", fmt.Sprint(r)).Msg("gRPC handler panicked")
		*errp = status.Error(codes.Internal, "internal error")
	}

	code := status.Code(*errp)
	m.RecordGRPCRequest(method, code.String())

	level := zerolog.InfoLevel
	if strings.HasPrefix(method, healthServicePrefix) {
		level = zerolog.DebugLevel
	}
	if code != codes.OK && code != codes.Canceled {
		level = zerolog.WarnLevel
	}

	ev := log.WithLevel(level).
		Str("method", method).
		Str("code", code.String()).
		Dur("duration", time.Since(start))
	if id := requestID(ctx); id != "" {
		ev = ev.Str("requestId", id)
	}
	ev.Msg("gRPC call finished")
}

func requestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if ids := md.Get(RequestIDKey); len(ids) > 0 {
		return ids[0]
	}
	return ""
}
