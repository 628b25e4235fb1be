// Package fleettest builds an in-process fleet for tests of the outer surfaces.
package fleettest

import (
	"context"
	"sync"
	"testing"
	"time"

	testingclock "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/internal/device/counter"
	"github.com/autopeer-io/fleetsim/internal/fleet"
	"github.com/autopeer-io/fleetsim/internal/supervisor"
	"github.com/autopeer-io/fleetsim/pkg/log"
)

// Recorder is a sink that keeps every published report.
type Recorder struct {
	mu      sync.Mutex
	reports []*device.Report
}

func (r *Recorder) Publish(_ context.Context, rep *device.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	return nil
}

func (r *Recorder) Reports() []*device.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*device.Report(nil), r.reports...)
}

// Fleet is a commander over a local supervisor with a frozen clock. Devices
// only tick when Clock is stepped.
type Fleet struct {
	Commander  *fleet.Commander
	Supervisor *supervisor.Local
	Clock      *testingclock.FakeClock
	Sink       *Recorder
}

func New(t testing.TB) *Fleet {
	t.Helper()

	f := &Fleet{
		Clock: testingclock.NewFakeClock(time.Unix(1_700_000_000, 0)),
		Sink:  &Recorder{},
	}

	catalog := fleet.NewCatalog()
	if err := catalog.RegisterLogic(fleet.DefaultLogicModule, counter.New(f.Clock)); err != nil {
		t.Fatal(err)
	}
	if err := catalog.RegisterSink(fleet.DefaultTelemetrySink, f.Sink); err != nil {
		t.Fatal(err)
	}

	f.Supervisor = supervisor.New(supervisor.Config{Clock: f.Clock, Logger: log.NewNopLogger()})
	f.Commander = fleet.NewCommander(fleet.Config{
		NodeID:          "test",
		DefaultInterval: time.Second,
		Clock:           f.Clock,
		Logger:          log.NewNopLogger(),
	}, catalog, f.Supervisor, f.Supervisor)

	t.Cleanup(func() { _ = f.Supervisor.Shutdown(context.Background()) })
	return f
}
