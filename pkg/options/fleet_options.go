package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*FleetOptions)(nil)

// FleetOptions holds the process-wide deployment defaults and supervisor limits.
type FleetOptions struct {
	// NodeID prefixes generated device ids. Empty means the hostname.
	NodeID          string        `json:"node-id" mapstructure:"node-id"`
	DefaultInterval time.Duration `json:"default-interval" mapstructure:"default-interval"`
	DefaultLogic    string        `json:"default-logic" mapstructure:"default-logic"`
	DefaultSink     string        `json:"default-sink" mapstructure:"default-sink"`
	PublishTimeout  time.Duration `json:"publish-timeout" mapstructure:"publish-timeout"`
	MailboxSize     int           `json:"mailbox-size" mapstructure:"mailbox-size"`

	MaxRestarts   int           `json:"max-restarts" mapstructure:"max-restarts"`
	RestartWindow time.Duration `json:"restart-window" mapstructure:"restart-window"`

	// Manifest is a YAML file of device specs deployed at startup.
	Manifest string `json:"manifest" mapstructure:"manifest"`
	// WatchManifest redeploys new entries when the manifest changes.
	WatchManifest bool `json:"watch-manifest" mapstructure:"watch-manifest"`
}

func NewFleetOptions() *FleetOptions {
	return &FleetOptions{
		DefaultInterval: time.Second,
		DefaultLogic:    "counter",
		DefaultSink:     "console",
		PublishTimeout:  5 * time.Second,
		MailboxSize:     64,
		MaxRestarts:     3,
		RestartWindow:   5 * time.Second,
	}
}

func (o *FleetOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if o.DefaultInterval <= 0 {
		errors = append(errors, fmt.Errorf("--fleet.default-interval must be positive"))
	}
	if o.DefaultLogic == "" {
		errors = append(errors, fmt.Errorf("--fleet.default-logic must not be empty"))
	}
	if o.DefaultSink == "" {
		errors = append(errors, fmt.Errorf("--fleet.default-sink must not be empty"))
	}
	if o.PublishTimeout < 0 {
		errors = append(errors, fmt.Errorf("--fleet.publish-timeout must not be negative"))
	}
	if o.MailboxSize <= 0 {
		errors = append(errors, fmt.Errorf("--fleet.mailbox-size must be positive"))
	}
	if o.MaxRestarts <= 0 {
		errors = append(errors, fmt.Errorf("--fleet.max-restarts must be positive"))
	}
	if o.RestartWindow <= 0 {
		errors = append(errors, fmt.Errorf("--fleet.restart-window must be positive"))
	}
	if o.WatchManifest && o.Manifest == "" {
		errors = append(errors, fmt.Errorf("--fleet.watch-manifest requires --fleet.manifest"))
	}

	return errors
}

func (o *FleetOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.NodeID, "fleet.node-id", o.NodeID, "Node identity used in generated device ids (default: hostname).")
	fs.DurationVar(&o.DefaultInterval, "fleet.default-interval", o.DefaultInterval, "Tick interval for devices deployed without schedule_interval.")
	fs.StringVar(&o.DefaultLogic, "fleet.default-logic", o.DefaultLogic, "Logic module for devices deployed without one.")
	fs.StringVar(&o.DefaultSink, "fleet.default-sink", o.DefaultSink, "Telemetry sink for devices deployed without one.")
	fs.DurationVar(&o.PublishTimeout, "fleet.publish-timeout", o.PublishTimeout, "Upper bound of a single sink publish (0 disables).")
	fs.IntVar(&o.MailboxSize, "fleet.mailbox-size", o.MailboxSize, "Pending requests buffered per device actor.")
	fs.IntVar(&o.MaxRestarts, "fleet.max-restarts", o.MaxRestarts, "Restarts allowed per device within --fleet.restart-window.")
	fs.DurationVar(&o.RestartWindow, "fleet.restart-window", o.RestartWindow, "Window over which restarts are counted.")
	fs.StringVar(&o.Manifest, "fleet.manifest", o.Manifest, "YAML file listing devices to deploy at startup.")
	fs.BoolVar(&o.WatchManifest, "fleet.watch-manifest", o.WatchManifest, "Deploy devices added to the manifest while running.")
}
