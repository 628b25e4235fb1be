package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/autopeer-io/fleetsim/pkg/log"
)

func TestUnaryTimeoutAddsDeadline(t *testing.T) {
	var deadline time.Time
	var ok bool
	invoker := func(ctx context.Context, _ string, _, _ any, _ *grpc.ClientConn, _ ...grpc.CallOption) error {
		deadline, ok = ctx.Deadline()
		return nil
	}

	require.NoError(t, UnaryTimeout(time.Minute)(context.Background(), "/m", nil, nil, nil, invoker))
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestUnaryTimeoutKeepsCallerDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	want, _ := ctx.Deadline()

	invoker := func(ctx context.Context, _ string, _, _ any, _ *grpc.ClientConn, _ ...grpc.CallOption) error {
		got, _ := ctx.Deadline()
		assert.Equal(t, want, got)
		return nil
	}
	require.NoError(t, UnaryTimeout(time.Second)(ctx, "/m", nil, nil, nil, invoker))
}

func TestUnaryServerTimeout(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/fleetsim.v1.FleetService/GetTelemetry"}

	_, err := UnaryServerTimeout(time.Minute)(context.Background(), nil, info, func(ctx context.Context, _ any) (any, error) {
		deadline, ok := ctx.Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
		return nil, nil
	})
	require.NoError(t, err)

	short, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	want, _ := short.Deadline()
	_, err = UnaryServerTimeout(time.Hour)(short, nil, info, func(ctx context.Context, _ any) (any, error) {
		got, _ := ctx.Deadline()
		assert.Equal(t, want, got)
		return nil, nil
	})
	require.NoError(t, err)

	_, err = UnaryServerTimeout(0)(context.Background(), nil, info, func(ctx context.Context, _ any) (any, error) {
		_, ok := ctx.Deadline()
		assert.False(t, ok)
		return nil, nil
	})
	require.NoError(t, err)
}

func TestUnaryServerLogging(t *testing.T) {
	interceptor := UnaryServerLogging(log.NewNopLogger())
	info := &grpc.UnaryServerInfo{FullMethod: "/fleetsim.v1.FleetService/Lookup"}

	resp, err := interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	_, err = interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.NotFound, "no such device")
	})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic(errors.New("boom"))
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}
