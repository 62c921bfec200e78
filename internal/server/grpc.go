// Package server builds the gRPC server: standard health and reflection services, OpenTelemetry
// stats handler, and the request id, recovery, logging and telemetry interceptors.
package server

import (
	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/project-queyk/queyk-backend/internal/server/interceptors"
	"github.com/project-queyk/queyk-backend/internal/telemetry"
)

// Health check methods are neither logged nor emitted as telemetry.
var quietMethods = map[string]bool{
	"/grpc.health.v1.Health/Check": true,
	"/grpc.health.v1.Health/Watch": true,
	"/grpc.health.v1.Health/List":  true,
}

// Deps holds optional dependencies for the gRPC server.
type Deps struct {
	// Health is the health server to register. If nil, a default always-SERVING server is used.
	Health *health.Server
	// Emitter receives grpc_request events. If nil, no events are emitted.
	Emitter telemetry.EventEmitter
	Logger  *slog.Logger
	// Reflection registers the reflection service (for grpcurl and similar tools).
	Reflection bool
}

// NewGRPCServer returns a server with every service registered.
func NewGRPCServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.RequestIDUnary(),
			interceptors.RecoveryUnary(deps.Logger),
			interceptors.LoggingUnary(deps.Logger, quietMethods),
			interceptors.TelemetryUnary(deps.Emitter, quietMethods),
		),
	}, opts...)
	s := grpc.NewServer(opts...)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers the health service and, when enabled, reflection.
func RegisterServices(s *grpc.Server, deps Deps) {
	hs := deps.Health
	if hs == nil {
		hs = health.NewServer()
	}
	healthpb.RegisterHealthServer(s, hs)
	if deps.Reflection {
		reflection.Register(s)
	}
}
