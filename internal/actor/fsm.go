package actor

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/autopeer-io/fleetsim/internal/pkg/metrics"
)

// Lifecycle states.
const (
	StateInitializing = "initializing"
	StateRunning      = "running"
	StateTerminated   = "terminated"
)

const (
	// EventStarted moves a successfully initialized actor to running.
	EventStarted = "event_started"
	// EventFailed aborts initialization.
	EventFailed = "event_failed"
	// EventStopped terminates a running actor, normally or not.
	EventStopped = "event_stopped"
)

type lifecycle struct {
	*fsm.FSM
	a *Actor
}

func newLifecycle(a *Actor) *lifecycle {
	l := &lifecycle{a: a}

	events := fsm.Events{
		{Name: EventStarted, Src: []string{StateInitializing}, Dst: StateRunning},
		{Name: EventFailed, Src: []string{StateInitializing}, Dst: StateTerminated},
		{Name: EventStopped, Src: []string{StateRunning}, Dst: StateTerminated},
	}

	callbacks := fsm.Callbacks{
		"enter_" + StateRunning:    callback(l.actionEnterRunning),
		"enter_" + StateTerminated: callback(l.actionEnterTerminated),
	}

	l.FSM = fsm.NewFSM(StateInitializing, events, callbacks)
	return l
}

// callback adapts an error-returning action to looplab's fsm.Callback. The
// error is stored on the event and surfaces from Event.
func callback(fn func(ctx context.Context, e *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, e *fsm.Event) {
		if err := fn(ctx, e); err != nil {
			e.Err = err
		}
	}
}

func (l *lifecycle) actionEnterRunning(_ context.Context, _ *fsm.Event) error {
	metrics.ActiveDevices.Inc()
	l.a.logger.Info("Device actor running", "interval", l.a.interval)
	return nil
}

// actionEnterTerminated logs the shutdown. Args[0], when present, is the exit reason.
func (l *lifecycle) actionEnterTerminated(_ context.Context, e *fsm.Event) error {
	if e.Src == StateRunning {
		metrics.ActiveDevices.Dec()
	}

	var reason error
	if len(e.Args) > 0 {
		reason, _ = e.Args[0].(error)
	}
	if reason != nil {
		l.a.logger.Error(reason, "Device actor terminated", "from", e.Src)
		return nil
	}
	l.a.logger.Info("Device actor stopped", "from", e.Src)
	return nil
}
