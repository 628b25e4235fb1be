package actor

import (
	"context"

	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/internal/pkg/metrics"
	"github.com/autopeer-io/fleetsim/internal/pkg/util"
)

const (
	stepUpdate  = "update"
	stepReport  = "report"
	stepPublish = "publish"
)

// tick runs one update/report/publish cycle. A failed step abandons the tick:
// state and stats stay as they were and the next tick is scheduled as usual.
func (a *Actor) tick() {
	start := a.clock.Now()
	defer func() {
		metrics.TickDuration.Observe(a.clock.Since(start).Seconds())
	}()

	next, size, step, err := a.runTick()
	if err != nil {
		metrics.TicksTotal.WithLabelValues(metrics.ResultFailed, step).Inc()
		a.logger.Error(util.NewError(util.KindTick, a.id, err), "Tick abandoned", "step", step)
		return
	}

	a.state = next
	a.stats.TelemetryCount++
	a.stats.TelemetryBytes += int64(size)
	metrics.TicksTotal.WithLabelValues(metrics.ResultSuccess, "").Inc()
	metrics.TelemetryBytesTotal.Add(float64(size))
}

func (a *Actor) runTick() (device.State, int, string, error) {
	next, err := a.logic.UpdateState(a.state)
	if err != nil {
		return nil, 0, stepUpdate, err
	}

	report, err := a.logic.ReportTelemetry(next)
	if err != nil {
		return nil, 0, stepReport, err
	}
	payload, err := device.Encode(report)
	if err != nil {
		return nil, 0, stepReport, err
	}

	ctx := a.ctx
	if a.publishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.publishTimeout)
		defer cancel()
	}
	if err := a.sink.Publish(ctx, report); err != nil {
		return nil, 0, stepPublish, err
	}

	return next, len(payload), "", nil
}
