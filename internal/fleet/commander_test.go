package fleet_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/internal/device/counter"
	"github.com/autopeer-io/fleetsim/internal/fleet"
	"github.com/autopeer-io/fleetsim/internal/pkg/util"
	"github.com/autopeer-io/fleetsim/internal/supervisor"
	"github.com/autopeer-io/fleetsim/pkg/log"
)

type testFleet struct {
	cmd       *fleet.Commander
	sup       *supervisor.Local
	clock     *testingclock.FakeClock
	published atomic.Int64
	failing   atomic.Bool
}

func newTestFleet(t *testing.T) *testFleet {
	t.Helper()

	tf := &testFleet{clock: testingclock.NewFakeClock(time.Unix(1_700_000_000, 0))}

	catalog := fleet.NewCatalog()
	require.NoError(t, catalog.RegisterLogic("counter", counter.New(tf.clock)))
	require.NoError(t, catalog.RegisterSink("console", device.SinkFunc(func(context.Context, *device.Report) error {
		if tf.failing.Load() {
			return errors.New("sink unavailable")
		}
		tf.published.Add(1)
		return nil
	})))

	tf.sup = supervisor.New(supervisor.Config{Logger: log.NewNopLogger(), Clock: tf.clock})
	tf.cmd = fleet.NewCommander(fleet.Config{
		NodeID:          "node1",
		DefaultInterval: time.Second,
		Clock:           tf.clock,
		Logger:          log.NewNopLogger(),
	}, catalog, tf.sup, tf.sup)

	t.Cleanup(func() { _ = tf.sup.Shutdown(context.Background()) })
	return tf
}

func TestDeployFleetEmpty(t *testing.T) {
	tf := newTestFleet(t)

	results := tf.cmd.DeployFleet(context.Background(), nil)
	assert.Empty(t, results)
	results = tf.cmd.DeployFleet(context.Background(), []fleet.DeviceSpec{})
	assert.Empty(t, results)
}

func TestDeployFleetIsolatesFailures(t *testing.T) {
	tf := newTestFleet(t)

	specs := []fleet.DeviceSpec{
		{DeviceID: "ok-1"},
		{DeviceID: "bad-logic", LogicModule: "thermostat"},
		{DeviceID: "ok-1"},
		{DeviceID: "bad-opts", Options: device.Options{"max_count": 0}},
		{},
		{DeviceID: "bad-sink", TelemetrySink: "carrier-pigeon"},
		{DeviceID: "ok-2", ScheduleInterval: 250 * time.Millisecond, Options: device.Options{"count": 3}},
	}

	results := tf.cmd.DeployFleet(context.Background(), specs)
	require.Len(t, results, len(specs))

	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, util.ErrPlacement)
	assert.ErrorIs(t, results[2].Err, util.ErrAlreadyRegistered)
	assert.ErrorIs(t, results[3].Err, util.ErrInitialization)
	assert.NoError(t, results[4].Err)
	assert.True(t, strings.HasPrefix(results[4].DeviceID, "node1-"), results[4].DeviceID)
	assert.ErrorIs(t, results[5].Err, util.ErrPlacement)
	assert.NoError(t, results[6].Err)

	report, err := tf.cmd.GetTelemetry(context.Background(), "ok-2")
	require.NoError(t, err)
	assert.Equal(t, 3, report.Data["current_count"])
	assert.Equal(t, counter.DefaultMaxCount, report.Data["count_limit"])

	counts, err := tf.cmd.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Specs)
	assert.Equal(t, 3, counts.Active)
}

func TestGeneratedIDsAreDistinct(t *testing.T) {
	tf := newTestFleet(t)

	const n = 50
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := tf.cmd.Deploy(context.Background(), "", "", nil)
			if assert.NoError(t, err) {
				ids <- h.ID()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestLookupAndRouting(t *testing.T) {
	tf := newTestFleet(t)
	ctx := context.Background()

	_, err := tf.cmd.Lookup(ctx, "ghost")
	assert.ErrorIs(t, err, util.ErrNotFound)
	_, err = tf.cmd.SendCommand(ctx, "ghost", device.Command{Name: counter.CommandResetCount})
	assert.ErrorIs(t, err, util.ErrNotFound)
	assert.False(t, errors.Is(err, util.ErrCommand))
	_, err = tf.cmd.GetStats(ctx, "ghost")
	assert.ErrorIs(t, err, util.ErrNotFound)

	_, err = tf.cmd.Deploy(ctx, "counter", "console", device.Options{"device_id": "dev-1", "count": 42})
	require.NoError(t, err)

	h, err := tf.cmd.Lookup(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "dev-1", h.ID())

	reply, err := tf.cmd.SendCommand(ctx, "dev-1", device.Command{Name: counter.CommandSetMax, Args: []any{200.0}})
	require.NoError(t, err)
	assert.Equal(t, 200, reply)

	_, err = tf.cmd.SendCommand(ctx, "dev-1", device.Command{Name: counter.CommandSetMax, Args: []any{-10}})
	assert.ErrorIs(t, err, util.ErrCommand)

	stats, err := tf.cmd.GetStats(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.CommandCount)

	require.NoError(t, tf.cmd.Stop(ctx, "dev-1"))
	_, err = tf.cmd.Lookup(ctx, "dev-1")
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestScheduleIntervalOption(t *testing.T) {
	tf := newTestFleet(t)

	tests := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{"duration", 2 * time.Second, false},
		{"string", "250ms", false},
		{"milliseconds", 500, false},
		{"json milliseconds", 500.0, false},
		{"negative", "-1s", true},
		{"garbage", "soon", true},
		{"zero", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tf.cmd.Deploy(context.Background(), "", "", device.Options{
				"device_id":         "interval-" + tt.name,
				"schedule_interval": tt.value,
			})
			if tt.wantErr {
				assert.ErrorIs(t, err, util.ErrConfiguration)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDeviceIDMustBeString(t *testing.T) {
	tf := newTestFleet(t)
	ctx := context.Background()

	for _, v := range []any{42.0, 7, true, []any{"dev"}} {
		_, err := tf.cmd.Deploy(ctx, "", "", device.Options{"device_id": v})
		assert.ErrorIs(t, err, util.ErrConfiguration, "%T", v)
	}

	counts, err := tf.cmd.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Specs)

	h, err := tf.cmd.Deploy(ctx, "", "", device.Options{"device_id": nil})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(h.ID(), "node1-"), h.ID())
}

func TestTickFailureDoesNotStopDevice(t *testing.T) {
	tf := newTestFleet(t)
	ctx := context.Background()

	_, err := tf.cmd.Deploy(ctx, "", "", device.Options{"device_id": "dev-t"})
	require.NoError(t, err)

	tf.failing.Store(true)
	tf.clock.Step(time.Second)
	require.Eventually(t, tf.clock.HasWaiters, time.Second, time.Millisecond)

	reply, err := tf.cmd.SendCommand(ctx, "dev-t", device.Command{Name: counter.CommandResetCount})
	require.NoError(t, err)
	assert.Equal(t, counter.Ack, reply)

	tf.failing.Store(false)
	tf.clock.Step(time.Second)
	require.Eventually(t, func() bool { return tf.published.Load() == 1 }, time.Second, time.Millisecond)

	stats, err := tf.cmd.GetStats(ctx, "dev-t")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TelemetryCount)
}
