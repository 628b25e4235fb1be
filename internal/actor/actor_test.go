package actor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/internal/device/counter"
	"github.com/autopeer-io/fleetsim/internal/pkg/util"
	"github.com/autopeer-io/fleetsim/pkg/log"
)

const interval = 100 * time.Millisecond

func startCounter(t *testing.T, sink device.Sink, opts device.Options) (*Actor, *testingclock.FakeClock) {
	t.Helper()

	fc := testingclock.NewFakeClock(time.Unix(1_700_000_000, 0))
	a, err := Start(Config{
		DeviceID: "dev-1",
		Logic:    counter.New(fc),
		Sink:     sink,
		Options:  opts,
		Interval: interval,
		Clock:    fc,
		Logger:   log.NewNopLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Stop(context.Background()) })
	return a, fc
}

// step fires the pending timer and waits until the actor has re-armed it,
// which happens only after the tick body has run.
func step(t *testing.T, fc *testingclock.FakeClock) {
	t.Helper()
	fc.Step(interval)
	require.Eventually(t, fc.HasWaiters, time.Second, time.Millisecond)
}

func currentCount(t *testing.T, a *Actor) any {
	t.Helper()
	report, err := a.Telemetry(context.Background())
	require.NoError(t, err)
	return report.Data["current_count"]
}

func TestStartValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	logic := device.NewMockLogic(ctrl)
	logic.EXPECT().Init("dev-x", gomock.Any()).Return(nil, errors.New("bad options"))

	tests := []struct {
		name string
		cfg  Config
		kind error
	}{
		{"missing id", Config{Logic: counter.New(nil), Sink: device.NewMockSink(ctrl)}, util.ErrConfiguration},
		{"missing logic", Config{DeviceID: "dev-x", Sink: device.NewMockSink(ctrl)}, util.ErrConfiguration},
		{"init fails", Config{DeviceID: "dev-x", Logic: logic, Sink: device.NewMockSink(ctrl)}, util.ErrInitialization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Logger = log.NewNopLogger()
			a, err := Start(tt.cfg)
			assert.Nil(t, a)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestTickPublishesAndCountsStats(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := device.NewMockSink(ctrl)

	var sizes int64
	sink.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, r *device.Report) error {
		b, err := device.Encode(r)
		require.NoError(t, err)
		sizes += int64(len(b))
		return nil
	}).Times(2)

	a, fc := startCounter(t, sink, device.Options{"max_count": 5})
	assert.Equal(t, StateRunning, a.State())

	step(t, fc)
	step(t, fc)

	stats, err := a.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TelemetryCount)
	assert.Equal(t, sizes, stats.TelemetryBytes)
	assert.Equal(t, int64(0), stats.CommandCount)
	assert.Equal(t, time.Unix(1_700_000_000, 0), stats.StartupTime)
	assert.Equal(t, 2, currentCount(t, a))
}

func TestTickFailureKeepsActorAlive(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := device.NewMockSink(ctrl)
	gomock.InOrder(
		sink.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down")),
		sink.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil),
	)

	a, fc := startCounter(t, sink, nil)

	step(t, fc)
	stats, err := a.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TelemetryCount)
	assert.Equal(t, int64(0), stats.TelemetryBytes)
	assert.Equal(t, 0, currentCount(t, a), "abandoned tick must not advance state")

	reply, err := a.Command(context.Background(), device.Command{Name: counter.CommandResetCount})
	require.NoError(t, err)
	assert.Equal(t, counter.Ack, reply)

	step(t, fc)
	stats, err = a.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TelemetryCount)
	assert.Equal(t, 1, currentCount(t, a))
	assert.NoError(t, a.Err())
}

func TestTelemetryQueryDoesNotAdvanceState(t *testing.T) {
	a, _ := startCounter(t, device.NewMockSink(gomock.NewController(t)), device.Options{"count": 7, "max_count": 9})

	for i := 0; i < 3; i++ {
		report, err := a.Telemetry(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "dev-1", report.DeviceID)
		assert.Equal(t, counter.DeviceType, report.DeviceType)
		assert.Equal(t, map[string]any{"current_count": 7, "count_limit": 9}, report.Data)
	}
}

func TestCommand(t *testing.T) {
	a, _ := startCounter(t, device.NewMockSink(gomock.NewController(t)), device.Options{"count": 42})
	ctx := context.Background()

	reply, err := a.Command(ctx, device.Command{Name: counter.CommandSetMax, Args: []any{200}})
	require.NoError(t, err)
	assert.Equal(t, 200, reply)

	for _, bad := range []device.Command{
		{Name: counter.CommandSetMax, Args: []any{0}},
		{Name: counter.CommandSetMax, Args: []any{-10}},
		{Name: "explode"},
	} {
		_, err := a.Command(ctx, bad)
		assert.ErrorIs(t, err, util.ErrCommand)
		assert.ErrorIs(t, err, device.ErrUnknownCommand)
		assert.False(t, errors.Is(err, util.ErrNotFound))
	}

	report, err := a.Telemetry(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, report.Data["current_count"])
	assert.Equal(t, 200, report.Data["count_limit"])

	stats, err := a.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.CommandCount, "rejected commands are counted too")
}

func TestCommandWithoutReplyIsAcknowledged(t *testing.T) {
	ctrl := gomock.NewController(t)
	logic := device.NewMockLogic(ctrl)
	logic.EXPECT().Init("dev-2", gomock.Any()).Return("s0", nil)
	logic.EXPECT().HandleCommand(device.Command{Name: "noop"}, "s0").Return(nil, "s1", nil)
	logic.EXPECT().HandleCommand(device.Command{Name: "fail"}, "s1").Return(nil, "s2", errors.New("nope"))
	logic.EXPECT().ReportTelemetry("s1").Return(&device.Report{DeviceID: "dev-2"}, nil)

	a, err := Start(Config{
		DeviceID: "dev-2",
		Logic:    logic,
		Sink:     device.NewMockSink(ctrl),
		Interval: time.Hour,
		Clock:    testingclock.NewFakeClock(time.Now()),
		Logger:   log.NewNopLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Stop(context.Background()) })

	reply, err := a.Command(context.Background(), device.Command{Name: "noop"})
	require.NoError(t, err)
	assert.Equal(t, Ack, reply)

	// The failed command's state ("s2") must not be stored.
	_, err = a.Command(context.Background(), device.Command{Name: "fail"})
	assert.ErrorIs(t, err, util.ErrCommand)

	_, err = a.Telemetry(context.Background())
	require.NoError(t, err)
}

func TestStop(t *testing.T) {
	a, _ := startCounter(t, device.NewMockSink(gomock.NewController(t)), nil)

	require.NoError(t, a.Stop(context.Background()))
	<-a.Done()

	assert.Equal(t, StateTerminated, a.State())
	assert.NoError(t, a.Err())
	_, err := a.Stats(context.Background())
	assert.ErrorIs(t, err, util.ErrTerminated)
	assert.NoError(t, a.Stop(context.Background()), "stop is idempotent")
}

func TestPanicTerminatesWithError(t *testing.T) {
	ctrl := gomock.NewController(t)
	logic := device.NewMockLogic(ctrl)
	logic.EXPECT().Init("dev-3", gomock.Any()).Return(0, nil)
	logic.EXPECT().UpdateState(0).DoAndReturn(func(device.State) (device.State, error) {
		panic("corrupted state")
	})

	fc := testingclock.NewFakeClock(time.Now())
	a, err := Start(Config{
		DeviceID: "dev-3",
		Logic:    logic,
		Sink:     device.NewMockSink(ctrl),
		Interval: interval,
		Clock:    fc,
		Logger:   log.NewNopLogger(),
	})
	require.NoError(t, err)

	fc.Step(interval)
	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("actor did not terminate")
	}

	assert.ErrorContains(t, a.Err(), "corrupted state")
	assert.Equal(t, StateTerminated, a.State())
}

func TestCallHonoursContext(t *testing.T) {
	a, _ := startCounter(t, device.NewMockSink(gomock.NewController(t)), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Stats(ctx)
	// Either the request raced through or the cancelled context won.
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
