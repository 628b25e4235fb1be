package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*NatsOptions)(nil)

// NatsOptions configures the NATS telemetry sink. An empty URL disables it.
type NatsOptions struct {
	URL string `json:"url" mapstructure:"url"`
	// SubjectPrefix yields subjects like {prefix}.{deviceID}.
	SubjectPrefix string        `json:"subject-prefix" mapstructure:"subject-prefix"`
	Name          string        `json:"name" mapstructure:"name"`
	Timeout       time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxReconnects int           `json:"max-reconnects" mapstructure:"max-reconnects"`
}

func NewNatsOptions() *NatsOptions {
	return &NatsOptions{
		SubjectPrefix: "fleetsim.telemetry",
		Name:          "fleetsim",
		Timeout:       5 * time.Second,
		MaxReconnects: -1,
	}
}

func (o *NatsOptions) Enabled() bool {
	return o != nil && o.URL != ""
}

func (o *NatsOptions) Validate() []error {
	if !o.Enabled() {
		return nil
	}

	errors := []error{}

	if o.SubjectPrefix == "" {
		errors = append(errors, fmt.Errorf("--nats.subject-prefix must not be empty"))
	}

	return errors
}

func (o *NatsOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.URL, "nats.url", o.URL, "NATS server URL. Empty disables the NATS sink.")
	fs.StringVar(&o.SubjectPrefix, "nats.subject-prefix", o.SubjectPrefix, "Subject prefix; reports go to {prefix}.{deviceID}.")
	fs.StringVar(&o.Name, "nats.name", o.Name, "Connection name reported to the server.")
	fs.DurationVar(&o.Timeout, "nats.timeout", o.Timeout, "Connection timeout.")
	fs.IntVar(&o.MaxReconnects, "nats.max-reconnects", o.MaxReconnects, "Maximum reconnect attempts (-1 for unlimited).")
}
