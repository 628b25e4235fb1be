package fleetsim

import (
	"context"
	"fmt"

	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/internal/sink"
	"github.com/autopeer-io/fleetsim/pkg/log"
	pkgmqtt "github.com/autopeer-io/fleetsim/pkg/mqtt"
	"github.com/autopeer-io/fleetsim/pkg/mqtt/topic"
)

// Sink names as used in deployment requests.
const (
	SinkConsole  = "console"
	SinkMQTT     = "mqtt"
	SinkKafka    = "kafka"
	SinkNATS     = "nats"
	SinkS3       = "s3"
	SinkPostgres = "postgres"
	// SinkAll fans out to every other configured sink.
	SinkAll = "all"
)

// newSinks connects every configured sink. On failure the sinks opened so far
// are closed again.
func (cfg *Config) newSinks(ctx context.Context, mqttClient pkgmqtt.Client, topics *topic.TopicBuilder, logger log.Logger) (sinks map[string]device.Sink, err error) {
	sinks = map[string]device.Sink{
		SinkConsole: sink.NewConsole(logger),
	}
	defer func() {
		if err != nil {
			_ = sink.CloseAll(sinks)
		}
	}()

	if mqttClient != nil {
		sinks[SinkMQTT] = sink.NewMQTT(mqttClient, topics, cfg.MqttOptions.QoS)
	}
	if cfg.KafkaOptions.Enabled() {
		sinks[SinkKafka] = sink.NewKafka(cfg.KafkaOptions)
	}
	if cfg.NatsOptions.Enabled() {
		n, err := sink.NewNATS(cfg.NatsOptions)
		if err != nil {
			return sinks, err
		}
		sinks[SinkNATS] = n
	}
	if cfg.S3Options.Enabled() {
		a, err := sink.NewArchive(ctx, cfg.S3Options)
		if err != nil {
			return sinks, fmt.Errorf("failed to init s3 sink: %w", err)
		}
		sinks[SinkS3] = a
	}
	if cfg.PostgresOptions.Enabled() {
		p, err := sink.NewPostgres(ctx, cfg.PostgresOptions)
		if err != nil {
			return sinks, err
		}
		sinks[SinkPostgres] = p
	}

	if len(sinks) > 1 {
		members := make(map[string]device.Sink, len(sinks))
		for name, s := range sinks {
			members[name] = s
		}
		sinks[SinkAll] = sink.NewFanout(members)
	}
	return sinks, nil
}
