package sink

import (
	"context"

	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/pkg/log"
)

// Console writes every report to the logger. It is the default sink.
type Console struct {
	logger log.Logger
}

var _ device.Sink = (*Console)(nil)

func NewConsole(logger log.Logger) *Console {
	if logger == nil {
		logger = log.Std()
	}
	return &Console{logger: logger.WithName("telemetry")}
}

func (c *Console) Publish(_ context.Context, r *device.Report) error {
	c.logger.Info("Telemetry",
		"deviceID", r.DeviceID,
		"deviceType", r.DeviceType,
		"timestamp", r.Timestamp,
		"data", r.Data,
	)
	return nil
}
