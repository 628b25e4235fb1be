package fleetsim

import (
	"context"
	"fmt"
	"os"

	"github.com/autopeer-io/fleetsim/internal/device/counter"
	"github.com/autopeer-io/fleetsim/internal/fleet"
	"github.com/autopeer-io/fleetsim/internal/fleetsim/server"
	"github.com/autopeer-io/fleetsim/internal/fleetsim/server/grpc"
	"github.com/autopeer-io/fleetsim/internal/fleetsim/server/http"
	"github.com/autopeer-io/fleetsim/internal/fleetsim/server/mqtt"
	"github.com/autopeer-io/fleetsim/internal/sink"
	"github.com/autopeer-io/fleetsim/internal/supervisor"
	"github.com/autopeer-io/fleetsim/pkg/log"
	pkgmqtt "github.com/autopeer-io/fleetsim/pkg/mqtt"
	"github.com/autopeer-io/fleetsim/pkg/mqtt/topic"
	"github.com/autopeer-io/fleetsim/pkg/options"
)

type Config struct {
	FleetOptions    *options.FleetOptions
	HttpOptions     *options.HttpOptions
	GrpcOptions     *options.GrpcOptions
	MqttOptions     *options.MqttOptions
	KafkaOptions    *options.KafkaOptions
	NatsOptions     *options.NatsOptions
	S3Options       *options.S3Options
	PostgresOptions *options.PostgresOptions
}

// NewFleetServer wires the catalog, the sinks, the supervisor, the commander
// and every ingress server.
func (cfg *Config) NewFleetServer(ctx context.Context) (*FleetServer, error) {
	logger := log.Std()
	nodeID := cfg.nodeID()

	var (
		mqttClient pkgmqtt.Client
		topics     *topic.TopicBuilder
	)
	if cfg.MqttOptions.Enabled() {
		topics = topic.NewTopicBuilder(cfg.MqttOptions.TopicRoot)
		c, err := InitializeMQTTClient(cfg.MqttOptions, nodeID, topics)
		if err != nil {
			return nil, fmt.Errorf("failed to init mqtt client: %w", err)
		}
		mqttClient = c
	}

	sinks, err := cfg.newSinks(ctx, mqttClient, topics, logger)
	if err != nil {
		return nil, err
	}

	catalog := fleet.NewCatalog()
	if err := catalog.RegisterLogic(fleet.DefaultLogicModule, counter.New(nil)); err != nil {
		return nil, err
	}
	for name, s := range sinks {
		if err := catalog.RegisterSink(name, s); err != nil {
			return nil, err
		}
	}
	if _, ok := catalog.Sink(cfg.FleetOptions.DefaultSink); !ok {
		_ = sink.CloseAll(sinks)
		return nil, fmt.Errorf("default sink %q is not configured, have %v", cfg.FleetOptions.DefaultSink, catalog.SinkNames())
	}

	sup := supervisor.New(supervisor.Config{
		MaxRestarts:   cfg.FleetOptions.MaxRestarts,
		RestartWindow: cfg.FleetOptions.RestartWindow,
		Logger:        logger,
	})
	commander := fleet.NewCommander(fleet.Config{
		NodeID:          nodeID,
		DefaultInterval: cfg.FleetOptions.DefaultInterval,
		DefaultLogic:    cfg.FleetOptions.DefaultLogic,
		DefaultSink:     cfg.FleetOptions.DefaultSink,
		PublishTimeout:  cfg.FleetOptions.PublishTimeout,
		MailboxSize:     cfg.FleetOptions.MailboxSize,
		Logger:          logger,
	}, catalog, sup, sup)

	mgr := server.NewManager(grpc.NewServer(cfg.GrpcOptions, commander, logger))

	var ready http.ReadyFunc
	if mqttClient != nil {
		mqttSrv := mqtt.NewServer(mqtt.Config{
			NodeID:         nodeID,
			QoS:            cfg.MqttOptions.QoS,
			Commands:       cfg.MqttOptions.Commands,
			CommandTimeout: cfg.MqttOptions.CommandTimeout,
		}, mqttClient, topics, commander, logger)
		mgr.Add(mqttSrv)
		ready = mqttSrv.Ready
	}
	mgr.Add(http.NewServer(cfg.HttpOptions, commander, ready, logger))

	if cfg.FleetOptions.Manifest != "" {
		mgr.Add(NewManifestLoader(cfg.FleetOptions.Manifest, cfg.FleetOptions.WatchManifest, commander, logger))
	}

	logger.Info("Fleet server configured",
		"node", nodeID,
		"logic", catalog.LogicNames(),
		"sinks", catalog.SinkNames(),
	)

	return &FleetServer{
		serverManager: mgr,
		supervisor:    sup,
		commander:     commander,
		sinks:         sinks,
		logger:        logger,
	}, nil
}

func (cfg *Config) nodeID() string {
	if cfg.FleetOptions.NodeID != "" {
		return cfg.FleetOptions.NodeID
	}
	hostname, _ := os.Hostname()
	return hostname
}

// InitializeMQTTClient builds the client shared by the MQTT sink and the
// command ingress. The broker publishes the offline status if the
// connection drops.
func InitializeMQTTClient(opts *options.MqttOptions, nodeID string, topics *topic.TopicBuilder) (pkgmqtt.Client, error) {
	cfg := opts.ToClientConfig()

	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("fleetsim-%s", nodeID)
	}
	if nodeID != "" {
		cfg.WillTopic = topics.Status(nodeID)
		cfg.WillPayload = []byte(topic.StatusOffline)
		cfg.WillQoS = 1
		cfg.WillRetain = true
	}

	return pkgmqtt.NewClient(cfg)
}
