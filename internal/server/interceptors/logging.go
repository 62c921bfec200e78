package interceptors

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/project-queyk/queyk-backend/internal/logging"
)

// LoggingUnary logs every RPC except skipMethods. Failed RPCs are logged at warn.
func LoggingUnary(logger *slog.Logger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	logger = logging.OrDefault(logger).With("component", "grpc")
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if skipMethods[info.FullMethod] {
			return resp, err
		}
		requestID, _ := GetRequestID(ctx)
		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelWarn
		}
		logger.LogAttrs(ctx, level, "rpc",
			slog.String("method", info.FullMethod),
			slog.String("code", status.Code(err).String()),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", ClientIP(ctx)),
			slog.String("request_id", requestID),
		)
		return resp, err
	}
}

// RecoveryUnary turns a handler panic into codes.Internal and logs the stack.
func RecoveryUnary(logger *slog.Logger) grpc.UnaryServerInterceptor {
	logger = logging.OrDefault(logger).With("component", "grpc")
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("rpc panicked", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
