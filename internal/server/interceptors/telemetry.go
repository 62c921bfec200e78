package interceptors

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/project-queyk/queyk-backend/internal/telemetry"
)

// grpcRequestMetadata is the JSON shape stored in Event.Metadata for grpc_request events.
type grpcRequestMetadata struct {
	FullMethod string `json:"full_method"`
	StatusCode string `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
	RequestID  string `json:"request_id,omitempty"`
}

// TelemetryUnary returns a unary server interceptor that emits a grpc_request event after each RPC.
// Best-effort: failures are logged and do not fail the RPC. If emitter is nil, the interceptor no-ops.
// skipMethods is the set of full method names to not emit (e.g. health checks).
func TelemetryUnary(emitter telemetry.EventEmitter, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if emitter == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		requestID, _ := GetRequestID(ctx)
		telemetry.EmitAsync(emitter, telemetry.NewEvent(telemetry.EventGRPCRequest, "grpc_interceptor", grpcRequestMetadata{
			FullMethod: info.FullMethod,
			StatusCode: status.Code(err).String(),
			DurationMs: time.Since(start).Milliseconds(),
			ClientIP:   ClientIP(ctx),
			RequestID:  requestID,
		}))
		return resp, err
	}
}
