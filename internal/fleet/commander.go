// Package fleet resolves deployment requests into placed device actors and
// routes queries and commands to them by id. It keeps no device state; the
// registry is the only source of truth.
package fleet

import (
	"context"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetsim/internal/actor"
	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/internal/pkg/util"
	"github.com/autopeer-io/fleetsim/pkg/log"
)

const (
	DefaultLogicModule   = "counter"
	DefaultTelemetrySink = "console"
)

// Config carries the process-wide deployment defaults.
type Config struct {
	NodeID          string
	DefaultInterval time.Duration
	DefaultLogic    string
	DefaultSink     string
	PublishTimeout  time.Duration
	MailboxSize     int

	Clock  clock.WithTicker
	Logger log.Logger
}

// Commander is the public entry point for deploying and addressing devices.
type Commander struct {
	cfg       Config
	catalog   *Catalog
	placement Placement
	registry  Registry
	ids       *IDGenerator
	logger    log.Logger
}

func NewCommander(cfg Config, catalog *Catalog, placement Placement, registry Registry) *Commander {
	if cfg.DefaultInterval <= 0 {
		cfg.DefaultInterval = actor.DefaultInterval
	}
	if cfg.DefaultLogic == "" {
		cfg.DefaultLogic = DefaultLogicModule
	}
	if cfg.DefaultSink == "" {
		cfg.DefaultSink = DefaultTelemetrySink
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Std()
	}

	return &Commander{
		cfg:       cfg,
		catalog:   catalog,
		placement: placement,
		registry:  registry,
		ids:       NewIDGenerator(cfg.NodeID, cfg.Clock),
		logger:    cfg.Logger.WithName("commander"),
	}
}

// Deploy places one device. Empty logic or sink names use the configured
// defaults. The placement result, duplicate-id rejection included, is returned as is.
func (c *Commander) Deploy(ctx context.Context, logicName, sinkName string, opts device.Options) (Handle, error) {
	var id string
	if v, ok := opts[OptionDeviceID]; ok && v != nil {
		if id, ok = v.(string); !ok {
			return nil, util.Errorf(util.KindConfiguration, "", "device_id must be a string, got %T", v)
		}
	}
	if id == "" {
		id = c.ids.Next()
	}

	if logicName == "" {
		logicName, _ = opts[OptionLogicModule].(string)
	}
	if logicName == "" {
		logicName = c.cfg.DefaultLogic
	}
	if sinkName == "" {
		sinkName, _ = opts[OptionTelemetrySink].(string)
	}
	if sinkName == "" {
		sinkName = c.cfg.DefaultSink
	}

	logic, ok := c.catalog.Logic(logicName)
	if !ok {
		return nil, util.Errorf(util.KindPlacement, id, "unknown logic module %q", logicName)
	}
	sink, ok := c.catalog.Sink(sinkName)
	if !ok {
		return nil, util.Errorf(util.KindPlacement, id, "unknown telemetry sink %q", sinkName)
	}

	interval := c.cfg.DefaultInterval
	if v, ok := opts[OptionScheduleInterval]; ok && v != nil {
		d, err := parseInterval(v)
		if err != nil {
			return nil, util.NewError(util.KindConfiguration, id, err)
		}
		interval = d
	}

	acfg := actor.Config{
		DeviceID:       id,
		Logic:          logic,
		Sink:           sink,
		Options:        logicOptions(opts),
		Interval:       interval,
		PublishTimeout: c.cfg.PublishTimeout,
		MailboxSize:    c.cfg.MailboxSize,
		Clock:          c.cfg.Clock,
		Logger:         c.cfg.Logger,
	}
	factory := func() (Handle, error) {
		a, err := actor.Start(acfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	}

	h, err := c.placement.Place(ctx, id, factory, RestartTransient)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Device deployed", "deviceID", id, "logic", logicName, "sink", sinkName, "interval", interval)
	return h, nil
}

// DeployFleet deploys every spec independently, in order. There is no
// rollback; the result has one entry per spec.
func (c *Commander) DeployFleet(ctx context.Context, specs []DeviceSpec) []DeployResult {
	results := make([]DeployResult, 0, len(specs))
	for _, spec := range specs {
		h, err := c.Deploy(ctx, spec.LogicModule, spec.TelemetrySink, spec.options())

		r := DeployResult{DeviceID: spec.DeviceID, Handle: h, Err: err}
		if h != nil {
			r.DeviceID = h.ID()
		}
		if err != nil {
			c.logger.Warn("Fleet entry failed", "deviceID", spec.DeviceID, "error", err.Error())
		}
		results = append(results, r)
	}
	return results
}

// Lookup resolves id against the registry. Nothing is cached.
func (c *Commander) Lookup(ctx context.Context, id string) (Handle, error) {
	h, ok := c.registry.Lookup(ctx, id)
	if !ok {
		return nil, util.NewError(util.KindNotFound, id, nil)
	}
	return h, nil
}

// SendCommand delivers cmd to the device and returns its reply.
func (c *Commander) SendCommand(ctx context.Context, id string, cmd device.Command) (any, error) {
	h, err := c.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return h.Command(ctx, cmd)
}

// GetTelemetry returns a fresh report from the device.
func (c *Commander) GetTelemetry(ctx context.Context, id string) (*device.Report, error) {
	h, err := c.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return h.Telemetry(ctx)
}

// GetStats returns the device statistics block.
func (c *Commander) GetStats(ctx context.Context, id string) (actor.Stats, error) {
	h, err := c.Lookup(ctx, id)
	if err != nil {
		return actor.Stats{}, err
	}
	return h.Stats(ctx)
}

// Stop stops the device normally, so a transient placement does not restart it.
func (c *Commander) Stop(ctx context.Context, id string) error {
	h, err := c.Lookup(ctx, id)
	if err != nil {
		return err
	}
	return h.Stop(ctx)
}

// Counts passes the registry counters through.
func (c *Commander) Counts(ctx context.Context) (Counts, error) {
	return c.registry.Count(ctx)
}

// Catalog returns the catalog the commander resolves names against.
func (c *Commander) Catalog() *Catalog {
	return c.catalog
}
