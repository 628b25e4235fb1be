package options

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/fleetsim/internal/fleetsim"
	"github.com/autopeer-io/fleetsim/pkg/log"
	"github.com/autopeer-io/fleetsim/pkg/options"
)

// EnvPrefix namespaces environment overrides, e.g. FLEETSIM_MQTT_BROKER.
const EnvPrefix = "FLEETSIM"

type ServerOptions struct {
	FleetOptions    *options.FleetOptions    `json:"fleet" mapstructure:"fleet"`
	HttpOptions     *options.HttpOptions     `json:"http" mapstructure:"http"`
	GrpcOptions     *options.GrpcOptions     `json:"grpc" mapstructure:"grpc"`
	MqttOptions     *options.MqttOptions     `json:"mqtt" mapstructure:"mqtt"`
	KafkaOptions    *options.KafkaOptions    `json:"kafka" mapstructure:"kafka"`
	NatsOptions     *options.NatsOptions     `json:"nats" mapstructure:"nats"`
	S3Options       *options.S3Options       `json:"s3" mapstructure:"s3"`
	PostgresOptions *options.PostgresOptions `json:"postgres" mapstructure:"postgres"`
	Log             *log.Options             `json:"log" mapstructure:"log"`
}

func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		FleetOptions:    options.NewFleetOptions(),
		HttpOptions:     options.NewHttpOptions(),
		GrpcOptions:     options.NewGrpcOptions(),
		MqttOptions:     options.NewMqttOptions(),
		KafkaOptions:    options.NewKafkaOptions(),
		NatsOptions:     options.NewNatsOptions(),
		S3Options:       options.NewS3Options(),
		PostgresOptions: options.NewPostgresOptions(),
		Log:             log.NewOptions(),
	}
}

func (o *ServerOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.FleetOptions.AddFlags(fss.FlagSet("fleet"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.GrpcOptions.AddFlags(fss.FlagSet("grpc"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.KafkaOptions.AddFlags(fss.FlagSet("kafka"))
	o.NatsOptions.AddFlags(fss.FlagSet("nats"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.PostgresOptions.AddFlags(fss.FlagSet("postgres"))
	o.Log.AddFlags(fss.FlagSet("Log"))
	return fss
}

// Load merges the config file (if any), FLEETSIM_* environment variables and
// the command line into o. Flags set explicitly win over the environment,
// which wins over the file. Flag names double as keys: --mqtt.broker is mqtt.broker.
func (o *ServerOptions) Load(fs *pflag.FlagSet, configFile string) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}
	return v.Unmarshal(o)
}

func (o *ServerOptions) Complete() error {
	return nil
}

func (o *ServerOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.FleetOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.GrpcOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.KafkaOptions.Validate()...)
	errs = append(errs, o.NatsOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.PostgresOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *ServerOptions) Config() (*fleetsim.Config, error) {
	return &fleetsim.Config{
		FleetOptions:    o.FleetOptions,
		HttpOptions:     o.HttpOptions,
		GrpcOptions:     o.GrpcOptions,
		MqttOptions:     o.MqttOptions,
		KafkaOptions:    o.KafkaOptions,
		NatsOptions:     o.NatsOptions,
		S3Options:       o.S3Options,
		PostgresOptions: o.PostgresOptions,
	}, nil
}
