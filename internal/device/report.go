package device

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Report is a telemetry snapshot of one device.
type Report struct {
	DeviceID   string `json:"device_id"`
	DeviceType string `json:"device_type"`
	// Timestamp is in milliseconds since the Unix epoch.
	Timestamp int64          `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// Encode returns the wire form of the report. Its length is what the actor
// accounts as telemetry byte volume.
func Encode(r *Report) ([]byte, error) {
	return json.Marshal(r)
}

// Decode parses a report previously produced by Encode.
func Decode(b []byte) (*Report, error) {
	r := &Report{}
	if err := json.Unmarshal(b, r); err != nil {
		return nil, err
	}
	return r, nil
}
