package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/autopeer-io/fleetsim/pkg/log"
)

// UnaryServerLogging logs every call with its code and latency and turns a
// handler panic into codes.Internal.
func UnaryServerLogging(logger log.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				err = status.Errorf(codes.Internal, "panic: %v", r)
				logger.Error(fmt.Errorf("%v", r), "RPC handler panicked", "method", info.FullMethod)
			}

			code := status.Code(err)
			kv := []any{"method", info.FullMethod, "code", code.String(), "latency", time.Since(start)}
			if code == codes.Internal || code == codes.Unknown {
				logger.Error(err, "RPC failed", kv...)
				return
			}
			logger.Debug("RPC handled", kv...)
		}()

		return handler(ctx, req)
	}
}
