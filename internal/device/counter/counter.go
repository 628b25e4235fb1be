// Package counter implements the reference device: a counter that increments
// on every tick and resets once it exceeds its limit.
package counter

import (
	"fmt"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetsim/internal/device"
)

const (
	// DeviceType is reported in every telemetry report.
	DeviceType = "Counter"

	// DefaultMaxCount is used when the max_count option is absent.
	DefaultMaxCount = 100

	// Ack is the reply value of reset_count.
	Ack = "ok"
)

// Option keys understood by Init.
const (
	OptionCount    = "count"
	OptionMaxCount = "max_count"
)

// Command names.
const (
	CommandSetMax     = "set_max"
	CommandResetCount = "reset_count"
)

// State is the counter payload. Values are copied on every transition.
type State struct {
	ID       string `json:"id"`
	Count    int    `json:"count"`
	MaxCount int    `json:"max_count"`
}

// Logic is the counter implementation of device.Logic.
type Logic struct {
	clock clock.PassiveClock
}

var _ device.Logic = (*Logic)(nil)

// New returns a counter Logic reading report timestamps from c.
// A nil clock means the real clock.
func New(c clock.PassiveClock) *Logic {
	if c == nil {
		c = clock.RealClock{}
	}
	return &Logic{clock: c}
}

func (l *Logic) Init(deviceID string, opts device.Options) (device.State, error) {
	st := State{ID: deviceID, MaxCount: DefaultMaxCount}

	if v, ok := opts[OptionMaxCount]; ok {
		n, isInt := device.AsInt(v)
		if !isInt || n <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer, got %v", OptionMaxCount, v)
		}
		st.MaxCount = n
	}
	if v, ok := opts[OptionCount]; ok {
		n, isInt := device.AsInt(v)
		if !isInt || n < 0 {
			return nil, fmt.Errorf("%s must be a non-negative integer, got %v", OptionCount, v)
		}
		st.Count = n
	}
	if st.Count > st.MaxCount {
		return nil, fmt.Errorf("%s %d exceeds %s %d", OptionCount, st.Count, OptionMaxCount, st.MaxCount)
	}

	return st, nil
}

func (l *Logic) UpdateState(s device.State) (device.State, error) {
	st, err := asState(s)
	if err != nil {
		return nil, err
	}

	st.Count++
	if st.Count > st.MaxCount {
		st.Count = 0
	}
	return st, nil
}

func (l *Logic) ReportTelemetry(s device.State) (*device.Report, error) {
	st, err := asState(s)
	if err != nil {
		return nil, err
	}

	return &device.Report{
		DeviceID:   st.ID,
		DeviceType: DeviceType,
		Timestamp:  l.clock.Now().UnixMilli(),
		Data: map[string]any{
			"current_count": st.Count,
			"count_limit":   st.MaxCount,
		},
	}, nil
}

func (l *Logic) HandleCommand(cmd device.Command, s device.State) (*device.Reply, device.State, error) {
	st, err := asState(s)
	if err != nil {
		return nil, s, err
	}

	switch cmd.Name {
	case CommandSetMax:
		if len(cmd.Args) != 1 {
			return nil, s, device.UnknownCommand(cmd)
		}
		n, ok := device.AsInt(cmd.Args[0])
		if !ok || n <= 0 {
			return nil, s, device.UnknownCommand(cmd)
		}
		st.MaxCount = n
		return &device.Reply{Value: n}, st, nil

	case CommandResetCount:
		st.Count = 0
		return &device.Reply{Value: Ack}, st, nil
	}

	return nil, s, device.UnknownCommand(cmd)
}

func asState(s device.State) (State, error) {
	switch st := s.(type) {
	case State:
		return st, nil
	case *State:
		if st != nil {
			return *st, nil
		}
	}
	return State{}, fmt.Errorf("counter: unexpected state type %T", s)
}
