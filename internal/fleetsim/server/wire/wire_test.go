package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	fleetv1 "github.com/autopeer-io/fleetsim/api/fleet/v1"
	"github.com/autopeer-io/fleetsim/internal/fleet"
)

func TestToDeviceSpec(t *testing.T) {
	in := fleetv1.DeviceSpec{
		DeviceID:         "dev-1",
		TelemetrySink:    "kafka",
		ScheduleInterval: "250ms",
		Options:          map[string]any{"max_count": 5.0},
	}

	spec := ToDeviceSpec(in)
	assert.Equal(t, "dev-1", spec.DeviceID)
	assert.Equal(t, "kafka", spec.TelemetrySink)
	assert.Zero(t, spec.ScheduleInterval)
	assert.Equal(t, "250ms", spec.Options[fleet.OptionScheduleInterval])
	assert.Equal(t, 5.0, spec.Options["max_count"])
	assert.NotContains(t, in.Options, fleet.OptionScheduleInterval)
}

func TestFromDeployResults(t *testing.T) {
	resp := FromDeployResults([]fleet.DeployResult{
		{DeviceID: "a"},
		{DeviceID: "b", Err: errors.New("rejected")},
	})

	assert.Equal(t, []fleetv1.DeployResult{
		{DeviceID: "a"},
		{DeviceID: "b", Error: "rejected"},
	}, resp.Results)
}
