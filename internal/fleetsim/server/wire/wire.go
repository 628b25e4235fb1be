// Package wire converts between the fleet domain types and the fleetsim.v1
// messages shared by the gRPC, HTTP and MQTT surfaces.
package wire

import (
	fleetv1 "github.com/autopeer-io/fleetsim/api/fleet/v1"
	"github.com/autopeer-io/fleetsim/internal/actor"
	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/internal/fleet"
)

// ToDeviceSpec converts a wire spec. The interval travels as an option so a
// malformed value fails only its own entry.
func ToDeviceSpec(d fleetv1.DeviceSpec) fleet.DeviceSpec {
	opts := make(device.Options, len(d.Options)+1)
	for k, v := range d.Options {
		opts[k] = v
	}
	if d.ScheduleInterval != "" {
		opts[fleet.OptionScheduleInterval] = d.ScheduleInterval
	}
	return fleet.DeviceSpec{
		DeviceID:      d.DeviceID,
		LogicModule:   d.LogicModule,
		TelemetrySink: d.TelemetrySink,
		Options:       opts,
	}
}

func ToDeviceSpecs(devices []fleetv1.DeviceSpec) []fleet.DeviceSpec {
	specs := make([]fleet.DeviceSpec, 0, len(devices))
	for _, d := range devices {
		specs = append(specs, ToDeviceSpec(d))
	}
	return specs
}

func FromDeployResults(results []fleet.DeployResult) *fleetv1.DeployFleetResponse {
	resp := &fleetv1.DeployFleetResponse{Results: make([]fleetv1.DeployResult, 0, len(results))}
	for _, r := range results {
		out := fleetv1.DeployResult{DeviceID: r.DeviceID}
		if r.Err != nil {
			out.Error = r.Err.Error()
		}
		resp.Results = append(resp.Results, out)
	}
	return resp
}

func FromReport(r *device.Report) *fleetv1.Report {
	return &fleetv1.Report{
		DeviceID:   r.DeviceID,
		DeviceType: r.DeviceType,
		Timestamp:  r.Timestamp,
		Data:       r.Data,
	}
}

func FromStats(s actor.Stats) *fleetv1.Stats {
	return &fleetv1.Stats{
		StartupTime:    s.StartupTime,
		CommandCount:   s.CommandCount,
		TelemetryCount: s.TelemetryCount,
		TelemetryBytes: s.TelemetryBytes,
	}
}

func FromCounts(c fleet.Counts) *fleetv1.Counts {
	return &fleetv1.Counts{
		Specs:       c.Specs,
		Active:      c.Active,
		Supervisors: c.Supervisors,
		Workers:     c.Workers,
	}
}

func ToCommand(req *fleetv1.CommandRequest) device.Command {
	return device.Command{Name: req.Command, Args: req.Args}
}
