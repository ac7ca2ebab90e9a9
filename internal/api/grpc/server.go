// Package grpcapi serves the gRPC health and reflection services used by
// orchestrators and debugging tools such as grpcurl.
package grpcapi

import (
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"transcript-search-service/internal/observability"
	"transcript-search-service/internal/observability/metrics"
)

// ServiceName is the health-check service name reported alongside "".
const ServiceName = "transcript.search.TranscriptSearchService"

// Server wraps a grpc.Server with the standard health service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// NewServer builds the gRPC server with metrics/logging interceptors,
// health and reflection registered. It starts NOT_SERVING.
func NewServer(m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	g := grpc.NewServer(
		grpc.ChainUnaryInterceptor(observability.UnaryServerInterceptor(m)),
		grpc.ChainStreamInterceptor(observability.StreamServerInterceptor(m)),
	)

	// Register gRPC health check service
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(g, hs)

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(g)

	s := &Server{grpc: g, health: hs}
	s.SetServing(false)
	return s
}

// SetServing flips the health status of the server and ServiceName.
func (s *Server) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	log.Info().Str("addr", lis.Addr().String()).Msg("gRPC server started")
	return s.grpc.Serve(lis)
}

// Stop marks the server NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	log.Info().Msg("Shutting down gRPC server")
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
