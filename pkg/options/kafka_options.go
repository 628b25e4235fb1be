package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*KafkaOptions)(nil)

// KafkaOptions configures the Kafka telemetry sink. No brokers disables it.
type KafkaOptions struct {
	Brokers []string `json:"brokers" mapstructure:"brokers"`
	Topic   string   `json:"topic" mapstructure:"topic"`

	// RequiredAcks: 0 none, 1 leader, -1 all in-sync replicas.
	RequiredAcks int           `json:"required-acks" mapstructure:"required-acks"`
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
	// BatchTimeout bounds how long the writer waits to fill a batch. Keep it low:
	// every actor tick waits for its own write.
	BatchTimeout time.Duration `json:"batch-timeout" mapstructure:"batch-timeout"`
}

func NewKafkaOptions() *KafkaOptions {
	return &KafkaOptions{
		Topic:        "fleetsim.telemetry",
		RequiredAcks: 1,
		WriteTimeout: 10 * time.Second,
		BatchTimeout: 10 * time.Millisecond,
	}
}

func (o *KafkaOptions) Enabled() bool {
	return o != nil && len(o.Brokers) > 0
}

func (o *KafkaOptions) Validate() []error {
	if !o.Enabled() {
		return nil
	}

	errors := []error{}

	for _, b := range o.Brokers {
		if err := ValidateAddress(b); err != nil {
			errors = append(errors, fmt.Errorf("--kafka.brokers: %w", err))
		}
	}
	if o.Topic == "" {
		errors = append(errors, fmt.Errorf("--kafka.topic must not be empty"))
	}
	if o.RequiredAcks < -1 || o.RequiredAcks > 1 {
		errors = append(errors, fmt.Errorf("--kafka.required-acks must be -1, 0 or 1"))
	}

	return errors
}

func (o *KafkaOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringSliceVar(&o.Brokers, "kafka.brokers", o.Brokers, "Kafka bootstrap brokers (host:port). Empty disables the Kafka sink.")
	fs.StringVar(&o.Topic, "kafka.topic", o.Topic, "Kafka topic receiving telemetry reports.")
	fs.IntVar(&o.RequiredAcks, "kafka.required-acks", o.RequiredAcks, "Acknowledgements required from the brokers (-1, 0, 1).")
	fs.DurationVar(&o.WriteTimeout, "kafka.write-timeout", o.WriteTimeout, "Timeout of a single write.")
	fs.DurationVar(&o.BatchTimeout, "kafka.batch-timeout", o.BatchTimeout, "Maximum time the writer waits to fill a batch.")
}
