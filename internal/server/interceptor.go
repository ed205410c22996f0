package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bvilove/datebot/internal/logger"
)

// LoggingInterceptor gives every call a child logger carrying req_id and
// method, reachable through logger.FromContext, and logs the outcome.
func LoggingInterceptor(base *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		l := base.With("req_id", uuid.NewString(), "method", info.FullMethod)
		start := time.Now()

		resp, err := handler(logger.WithContext(ctx, l), req)

		took := time.Since(start)
		switch code := status.Code(err); code {
		case codes.OK:
			l.Debug("request done", "took", took)
		case codes.Internal, codes.DataLoss, codes.Unknown:
			l.Error("request failed", "code", code.String(), "err", err, "took", took)
		default:
			l.Info("request rejected", "code", code.String(), "err", err, "took", took)
		}
		return resp, err
	}
}
