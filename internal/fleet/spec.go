package fleet

import (
	"fmt"
	"time"

	"github.com/autopeer-io/fleetsim/internal/device"
)

// Option keys recognised by the commander. Everything else is passed to the
// logic module untouched.
const (
	OptionDeviceID         = "device_id"
	OptionLogicModule      = "logic_module"
	OptionTelemetrySink    = "telemetry_sink"
	OptionScheduleInterval = "schedule_interval"
)

// DeviceSpec describes one device in a bulk deployment. Zero fields fall back
// to the commander defaults one by one.
type DeviceSpec struct {
	DeviceID         string         `json:"device_id,omitempty" yaml:"device_id,omitempty"`
	LogicModule      string         `json:"logic_module,omitempty" yaml:"logic_module,omitempty"`
	TelemetrySink    string         `json:"telemetry_sink,omitempty" yaml:"telemetry_sink,omitempty"`
	ScheduleInterval time.Duration  `json:"schedule_interval,omitempty" yaml:"schedule_interval,omitempty"`
	Options          device.Options `json:"options,omitempty" yaml:"options,omitempty"`
}

// options folds the typed fields into a copy of Options.
func (s DeviceSpec) options() device.Options {
	opts := make(device.Options, len(s.Options)+2)
	for k, v := range s.Options {
		opts[k] = v
	}
	if s.DeviceID != "" {
		opts[OptionDeviceID] = s.DeviceID
	}
	if s.ScheduleInterval > 0 {
		opts[OptionScheduleInterval] = s.ScheduleInterval
	}
	return opts
}

// DeployResult is the outcome of one DeviceSpec.
type DeployResult struct {
	DeviceID string
	Handle   Handle
	Err      error
}

// parseInterval accepts a time.Duration, a duration string such as "250ms",
// or an integer number of milliseconds.
func parseInterval(v any) (time.Duration, error) {
	var d time.Duration
	switch t := v.(type) {
	case time.Duration:
		d = t
	case string:
		parsed, err := time.ParseDuration(t)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", OptionScheduleInterval, t, err)
		}
		d = parsed
	default:
		ms, ok := device.AsInt(v)
		if !ok {
			return 0, fmt.Errorf("invalid %s %v (%T)", OptionScheduleInterval, v, v)
		}
		d = time.Duration(ms) * time.Millisecond
	}

	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", OptionScheduleInterval, d)
	}
	return d, nil
}

// logicOptions drops the keys consumed by the commander.
func logicOptions(opts device.Options) device.Options {
	out := make(device.Options, len(opts))
	for k, v := range opts {
		switch k {
		case OptionDeviceID, OptionLogicModule, OptionTelemetrySink, OptionScheduleInterval:
			continue
		}
		out[k] = v
	}
	return out
}
