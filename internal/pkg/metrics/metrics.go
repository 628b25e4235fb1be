package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every fleetsim collector. It is served by the HTTP server on /metrics.
var Registry = prometheus.NewRegistry()

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

var (
	// TicksTotal counts periodic ticks by outcome.
	// step: update/report/publish (empty on success)
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetsim_ticks_total",
			Help: "Total number of device ticks by result.",
		},
		[]string{"result", "step"},
	)

	// CommandsTotal counts commands handled by actors, including rejected ones.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetsim_commands_total",
			Help: "Total number of device commands by name and result.",
		},
		[]string{"command", "result"},
	)

	// TelemetryBytesTotal is the encoded size of all published reports.
	TelemetryBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetsim_telemetry_bytes_total",
			Help: "Cumulative byte volume of published telemetry reports.",
		},
	)

	// TickDuration observes the time spent in one tick body.
	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetsim_tick_duration_seconds",
			Help:    "Duration of the update/report/publish cycle.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ActiveDevices is the number of running device actors.
	ActiveDevices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetsim_active_devices",
			Help: "Number of device actors currently running.",
		},
	)

	// RestartsTotal counts supervisor restarts by policy.
	RestartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetsim_restarts_total",
			Help: "Total number of device actor restarts.",
		},
		[]string{"policy"},
	)

	// PlacementsTotal counts placement attempts by outcome.
	PlacementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetsim_placements_total",
			Help: "Total number of device placements by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	Registry.MustRegister(TicksTotal)
	Registry.MustRegister(CommandsTotal)
	Registry.MustRegister(TelemetryBytesTotal)
	Registry.MustRegister(TickDuration)
	Registry.MustRegister(ActiveDevices)
	Registry.MustRegister(RestartsTotal)
	Registry.MustRegister(PlacementsTotal)
}
