// Package device defines the contracts every simulated device and every
// telemetry consumer must satisfy.
package device

//go:generate mockgen -destination=mock_device.go -package=device github.com/autopeer-io/fleetsim/internal/device Logic,Sink

import (
	"context"
	"errors"
	"fmt"
)

// State is the opaque payload owned by a Logic implementation.
// Only the Logic that produced it may interpret it.
type State any

// Options are free-form settings passed to Logic.Init. Keys recognised by the
// fleet layer (device_id, schedule_interval, ...) are passed through as well.
type Options map[string]any

// Command is an externally issued instruction for one device.
type Command struct {
	Name string `json:"name"`
	Args []any  `json:"args,omitempty"`
}

func (c Command) String() string {
	return fmt.Sprintf("%s%v", c.Name, c.Args)
}

// Reply carries the value returned to the caller of a command.
// A nil *Reply means the command produced no reply, only a state transition.
type Reply struct {
	Value any
}

// ErrUnknownCommand is returned by HandleCommand for commands it does not
// recognise or whose arguments it rejects.
var ErrUnknownCommand = errors.New("unknown command")

// UnknownCommand wraps ErrUnknownCommand with the offending command.
func UnknownCommand(cmd Command) error {
	return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
}

// Logic is the behaviour contract of a device.
//
// UpdateState and ReportTelemetry must be pure: no blocking, no I/O, and the
// State passed in must not be mutated.
type Logic interface {
	// Init builds the initial state for deviceID.
	Init(deviceID string, opts Options) (State, error)

	// UpdateState computes the state for the next tick.
	UpdateState(state State) (State, error)

	// ReportTelemetry projects state into a telemetry report.
	ReportTelemetry(state State) (*Report, error)

	// HandleCommand processes cmd. On error the returned state is ignored.
	HandleCommand(cmd Command, state State) (*Reply, State, error)
}

// Sink consumes telemetry reports. Implementations must be safe for
// concurrent use by many actors and must not retry on their own.
type Sink interface {
	Publish(ctx context.Context, report *Report) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, report *Report) error

func (f SinkFunc) Publish(ctx context.Context, report *Report) error {
	return f(ctx, report)
}
