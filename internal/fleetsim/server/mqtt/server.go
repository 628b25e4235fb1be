package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	fleetv1 "github.com/autopeer-io/fleetsim/api/fleet/v1"
	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/internal/fleet"
	"github.com/autopeer-io/fleetsim/internal/pkg/util"
	"github.com/autopeer-io/fleetsim/pkg/log"
	pkgmqtt "github.com/autopeer-io/fleetsim/pkg/mqtt"
	"github.com/autopeer-io/fleetsim/pkg/mqtt/topic"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultCommandTimeout bounds a command delivered over MQTT when
// Config.CommandTimeout is unset.
const DefaultCommandTimeout = 10 * time.Second

type Config struct {
	NodeID string
	QoS    int
	// Commands subscribes to {root}/command/+ when set.
	Commands       bool
	CommandTimeout time.Duration
}

// Server owns the MQTT connection shared with the telemetry sink. It
// announces the node on the status topic and, when enabled, turns command
// messages into Commander calls.
type Server struct {
	cfg       Config
	client    pkgmqtt.Client
	topics    *topic.TopicBuilder
	commander *fleet.Commander
	logger    log.Logger
}

func NewServer(cfg Config, client pkgmqtt.Client, topics *topic.TopicBuilder, commander *fleet.Commander, logger log.Logger) *Server {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}
	return &Server{
		cfg:       cfg,
		client:    client,
		topics:    topics,
		commander: commander,
		logger:    logger.WithName("mqtt"),
	}
}

// Start connects to the broker and subscribes to topics.
func (s *Server) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.publishStatus(shutdownCtx, topic.StatusOffline)
		s.client.Disconnect(shutdownCtx)
		s.logger.Info("MQTT client disconnected")
	}()

	s.logger.Info("Waiting for MQTT connection...")
	if err := s.client.AwaitConnection(ctx); err != nil {
		return err
	}
	s.logger.Info("MQTT Connected")

	if s.cfg.Commands {
		filter := s.topics.CommandWildcard()
		if err := s.client.Subscribe(ctx, filter, s.cfg.QoS, s.handleCommand); err != nil {
			return fmt.Errorf("failed to subscribe to topic: %s, err: %w", filter, err)
		}
	}
	s.publishStatus(ctx, topic.StatusOnline)

	<-ctx.Done()
	return nil
}

// Ready fails until the broker connection is up.
func (s *Server) Ready() error {
	if !s.client.IsConnected() {
		return fmt.Errorf("mqtt not connected")
	}
	return nil
}

func (s *Server) publishStatus(ctx context.Context, status string) {
	if s.cfg.NodeID == "" {
		return
	}
	if err := s.client.Publish(ctx, s.topics.Status(s.cfg.NodeID), 1, true, []byte(status)); err != nil {
		s.logger.Warn("Failed to publish node status", "status", status, "error", err.Error())
	}
}

func (s *Server) handleCommand(ctx context.Context, t string, payload []byte) {
	id := s.topics.DeviceID(topic.SuffixCommand, t)
	if id == "" {
		return
	}

	var msg fleetv1.CommandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.logger.Warn("Dropping malformed command", "topic", t, "error", err.Error())
		s.ack(ctx, &fleetv1.CommandAck{DeviceID: id, Kind: string(util.KindCommand), Error: "malformed command: " + err.Error()})
		return
	}

	ack := &fleetv1.CommandAck{RequestID: msg.RequestID, DeviceID: id, Command: msg.Command}
	reply, err := s.sendCommand(ctx, id, device.Command{Name: msg.Command, Args: msg.Args})
	if err != nil {
		ack.Kind = string(util.KindOf(err))
		ack.Error = err.Error()
	} else {
		ack.Reply = reply
	}
	s.ack(ctx, ack)
}

// sendCommand runs cmd under the command deadline. The ack is still published
// with the caller's context.
func (s *Server) sendCommand(ctx context.Context, id string, cmd device.Command) (any, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, s.cfg.CommandTimeout)
	defer cancel()

	reply, err := s.commander.SendCommand(cmdCtx, id, cmd)
	if errors.Is(err, context.DeadlineExceeded) && util.KindOf(err) == "" {
		err = util.NewError(util.KindCommand, id, err)
	}
	return reply, err
}

func (s *Server) ack(ctx context.Context, ack *fleetv1.CommandAck) {
	payload, err := json.Marshal(ack)
	if err != nil {
		s.logger.Error(err, "Failed to encode command ack", "deviceID", ack.DeviceID)
		return
	}
	if err := s.client.Publish(ctx, s.topics.CommandAck(ack.DeviceID), s.cfg.QoS, false, payload); err != nil {
		s.logger.Error(err, "Failed to publish command ack", "deviceID", ack.DeviceID)
	}
}
