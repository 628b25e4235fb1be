// Package actor hosts one device's logic in a single goroutine. The goroutine
// owns the device state and serves ticks, queries and commands from its
// mailbox in arrival order, so no locking is needed around the state.
package actor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/internal/pkg/metrics"
	"github.com/autopeer-io/fleetsim/internal/pkg/util"
	"github.com/autopeer-io/fleetsim/pkg/log"
)

const (
	// DefaultInterval is used when Config.Interval is not set.
	DefaultInterval = time.Second

	defaultMailboxSize = 64
)

// Ack is returned by Command when the logic produced no reply value.
const Ack = "ok"

// Stats is the per-actor statistics block.
type Stats struct {
	StartupTime    time.Time `json:"startup_time"`
	CommandCount   int64     `json:"command_count"`
	TelemetryCount int64     `json:"telemetry_count"`
	TelemetryBytes int64     `json:"telemetry_bytes"`
}

// Config configures a single actor.
type Config struct {
	DeviceID string
	Logic    device.Logic
	Sink     device.Sink
	Options  device.Options

	// Interval between ticks. Zero means DefaultInterval.
	Interval time.Duration
	// PublishTimeout bounds one sink call. Zero means no bound beyond the actor's lifetime.
	PublishTimeout time.Duration
	MailboxSize    int

	Clock  clock.WithTicker
	Logger log.Logger
}

type op int

const (
	opTelemetry op = iota
	opStats
	opCommand
)

type request struct {
	op   op
	cmd  device.Command
	resp chan response
}

type response struct {
	report *device.Report
	stats  Stats
	value  any
	err    error
}

// Actor is a running device. All exported methods are safe for concurrent use.
type Actor struct {
	id             string
	logic          device.Logic
	sink           device.Sink
	interval       time.Duration
	publishTimeout time.Duration
	clock          clock.WithTicker
	logger         log.Logger

	// Owned by the loop goroutine.
	state device.State
	stats Stats

	fsm     *lifecycle
	mailbox chan request

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
	stopOnce sync.Once
}

// Start initializes the device logic and, on success, starts the actor loop.
// A missing device id is a configuration error; a failing Init is an
// initialization error. In both cases no goroutine is left behind.
func Start(cfg Config) (*Actor, error) {
	if cfg.DeviceID == "" {
		return nil, util.Errorf(util.KindConfiguration, "", "device_id is required")
	}
	if cfg.Logic == nil {
		return nil, util.Errorf(util.KindConfiguration, cfg.DeviceID, "logic module is required")
	}
	if cfg.Sink == nil {
		return nil, util.Errorf(util.KindConfiguration, cfg.DeviceID, "telemetry sink is required")
	}

	a := &Actor{
		id:             cfg.DeviceID,
		logic:          cfg.Logic,
		sink:           cfg.Sink,
		interval:       cfg.Interval,
		publishTimeout: cfg.PublishTimeout,
		clock:          cfg.Clock,
		logger:         cfg.Logger,
		done:           make(chan struct{}),
	}
	if a.interval <= 0 {
		a.interval = DefaultInterval
	}
	if a.clock == nil {
		a.clock = clock.RealClock{}
	}
	if a.logger == nil {
		a.logger = log.Std()
	}
	a.logger = a.logger.WithName("actor").WithValues("deviceID", a.id)

	size := cfg.MailboxSize
	if size <= 0 {
		size = defaultMailboxSize
	}
	a.mailbox = make(chan request, size)
	a.fsm = newLifecycle(a)

	state, err := a.logic.Init(a.id, cfg.Options)
	if err != nil {
		err = util.NewError(util.KindInitialization, a.id, err)
		_ = a.fsm.Event(context.Background(), EventFailed, err)
		a.err = err
		close(a.done)
		return nil, err
	}

	a.state = state
	a.stats.StartupTime = a.clock.Now()
	a.ctx, a.cancel = context.WithCancel(context.Background())

	// The timer is created before the loop starts so a fake clock sees the waiter immediately.
	timer := a.clock.NewTimer(a.interval)
	if err := a.fsm.Event(context.Background(), EventStarted); err != nil {
		timer.Stop()
		a.cancel()
		close(a.done)
		return nil, util.NewError(util.KindInitialization, a.id, err)
	}

	go a.loop(timer)
	return a, nil
}

// ID returns the device id.
func (a *Actor) ID() string {
	return a.id
}

// State returns the current lifecycle state.
func (a *Actor) State() string {
	return a.fsm.Current()
}

// Done is closed once the actor has terminated.
func (a *Actor) Done() <-chan struct{} {
	return a.done
}

// Err returns the abnormal exit reason once Done is closed. It is nil after a
// normal Stop and nil while the actor is running.
func (a *Actor) Err() error {
	select {
	case <-a.done:
		return a.err
	default:
		return nil
	}
}

// Telemetry returns a fresh report for the current state without advancing it.
func (a *Actor) Telemetry(ctx context.Context) (*device.Report, error) {
	resp, err := a.call(ctx, request{op: opTelemetry})
	if err != nil {
		return nil, err
	}
	return resp.report, resp.err
}

// Stats returns the statistics block.
func (a *Actor) Stats(ctx context.Context) (Stats, error) {
	resp, err := a.call(ctx, request{op: opStats})
	if err != nil {
		return Stats{}, err
	}
	return resp.stats, nil
}

// Command delivers cmd to the device logic and returns its reply value, or Ack
// when the logic produced none.
func (a *Actor) Command(ctx context.Context, cmd device.Command) (any, error) {
	resp, err := a.call(ctx, request{op: opCommand, cmd: cmd})
	if err != nil {
		return nil, err
	}
	return resp.value, resp.err
}

// Stop terminates the actor and waits for its loop to exit or ctx to expire.
// Stopping a terminated actor is a no-op.
func (a *Actor) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
	})

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Actor) call(ctx context.Context, req request) (response, error) {
	req.resp = make(chan response, 1)

	select {
	case a.mailbox <- req:
	case <-a.done:
		return response{}, util.NewError(util.KindTerminated, a.id, nil)
	case <-ctx.Done():
		return response{}, ctx.Err()
	}

	select {
	case resp := <-req.resp:
		return resp, nil
	case <-a.done:
		return response{}, util.NewError(util.KindTerminated, a.id, nil)
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

func (a *Actor) loop(timer clock.Timer) {
	defer func() {
		timer.Stop()
		if r := recover(); r != nil {
			a.err = fmt.Errorf("device actor panic: %v", r)
			a.logger.Debug("Recovered panic", "stack", string(debug.Stack()))
		}
		a.cancel()
		_ = a.fsm.Event(context.Background(), EventStopped, a.err)
		close(a.done)
	}()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-timer.C():
			a.tick()
			// Re-armed after the tick body, so ticks drift by its duration.
			timer.Reset(a.interval)
		case req := <-a.mailbox:
			req.resp <- a.handle(req)
		}
	}
}

func (a *Actor) handle(req request) response {
	switch req.op {
	case opTelemetry:
		report, err := a.logic.ReportTelemetry(a.state)
		return response{report: report, err: err}

	case opStats:
		return response{stats: a.stats}

	case opCommand:
		return a.command(req.cmd)
	}
	return response{err: fmt.Errorf("unknown request %d", req.op)}
}

func (a *Actor) command(cmd device.Command) response {
	// Counted before dispatch, whatever the outcome.
	a.stats.CommandCount++

	reply, next, err := a.logic.HandleCommand(cmd, a.state)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues(cmd.Name, metrics.ResultFailed).Inc()
		a.logger.Debug("Command rejected", "command", cmd.String(), "error", err.Error())
		return response{err: util.NewError(util.KindCommand, a.id, err)}
	}

	a.state = next
	metrics.CommandsTotal.WithLabelValues(cmd.Name, metrics.ResultSuccess).Inc()

	if reply == nil {
		return response{value: Ack}
	}
	return response{value: reply.Value}
}
