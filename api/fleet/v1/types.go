// Package v1 is the wire API of the fleet simulator control plane. Messages
// travel as google.protobuf.Struct and map one to one onto the JSON form of
// the types below.
package v1

import "time"

// DeviceSpec is one entry of a bulk deployment. ScheduleInterval is a
// duration string such as "500ms".
type DeviceSpec struct {
	DeviceID         string         `json:"device_id,omitempty"`
	LogicModule      string         `json:"logic_module,omitempty"`
	TelemetrySink    string         `json:"telemetry_sink,omitempty"`
	ScheduleInterval string         `json:"schedule_interval,omitempty"`
	Options          map[string]any `json:"options,omitempty"`
}

type DeployRequest struct {
	LogicModule   string         `json:"logic_module,omitempty"`
	TelemetrySink string         `json:"telemetry_sink,omitempty"`
	Options       map[string]any `json:"options,omitempty"`
}

type DeployResponse struct {
	DeviceID string `json:"device_id"`
}

type DeployFleetRequest struct {
	Devices []DeviceSpec `json:"devices"`
}

// DeployResult carries Error instead of failing the whole batch.
type DeployResult struct {
	DeviceID string `json:"device_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

type DeployFleetResponse struct {
	Results []DeployResult `json:"results"`
}

type DeviceRequest struct {
	DeviceID string `json:"device_id"`
}

type LookupResponse struct {
	DeviceID string `json:"device_id"`
}

type CommandRequest struct {
	DeviceID string `json:"device_id"`
	Command  string `json:"command"`
	Args     []any  `json:"args,omitempty"`
}

type CommandResponse struct {
	Reply any `json:"reply"`
}

type Report struct {
	DeviceID   string         `json:"device_id"`
	DeviceType string         `json:"device_type"`
	Timestamp  int64          `json:"timestamp"`
	Data       map[string]any `json:"data"`
}

type Stats struct {
	StartupTime    time.Time `json:"startup_time"`
	CommandCount   int64     `json:"command_count"`
	TelemetryCount int64     `json:"telemetry_count"`
	TelemetryBytes int64     `json:"telemetry_bytes"`
}

type Counts struct {
	Specs       int `json:"specs"`
	Active      int `json:"active"`
	Supervisors int `json:"supervisors"`
	Workers     int `json:"workers"`
}

type Empty struct{}

// CommandMessage is the payload of {root}/command/{deviceID}.
type CommandMessage struct {
	RequestID string `json:"request_id,omitempty"`
	Command   string `json:"command"`
	Args      []any  `json:"args,omitempty"`
}

// CommandAck is published on {root}/command/ack/{deviceID} for every
// CommandMessage. Exactly one of Reply and Error is meaningful.
type CommandAck struct {
	RequestID string `json:"request_id,omitempty"`
	DeviceID  string `json:"device_id"`
	Command   string `json:"command"`
	Reply     any    `json:"reply,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Error     string `json:"error,omitempty"`
}
