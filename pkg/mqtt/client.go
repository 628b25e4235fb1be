package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/autopeer-io/fleetsim/pkg/log"
	"github.com/autopeer-io/fleetsim/pkg/mqtt/topic"
)

var errNotStarted = errors.New("mqtt client not started")

type subscription struct {
	filter  string
	qos     byte
	handler MessageHandler
}

// pahoClient implements Client on top of an autopaho connection manager.
type pahoClient struct {
	cfg    *ClientConfig
	logger log.Logger

	cm        *autopaho.ConnectionManager
	connected atomic.Bool

	mu   sync.RWMutex
	subs map[string]subscription
}

var _ Client = (*pahoClient)(nil)

// NewClient validates cfg, fills in defaults and returns an unstarted client.
func NewClient(cfg *ClientConfig) (Client, error) {
	if cfg == nil {
		return nil, errors.New("mqtt config is required")
	}

	setDefaultConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}

	return &pahoClient{
		cfg:    cfg,
		logger: cfg.Logger.WithValues("broker", cfg.BrokerURL, "clientID", cfg.ClientID),
		subs:   make(map[string]subscription),
	}, nil
}

func (c *pahoClient) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(c.cfg.BrokerURL)
	if err != nil {
		return err
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{brokerURL},
		KeepAlive:                     c.cfg.KeepAlive,
		CleanStartOnInitialConnection: c.cfg.CleanStart,
		SessionExpiryInterval:         c.cfg.SessionExpiry,
		ReconnectBackoff:              autopaho.NewConstantBackoff(c.cfg.ReconnectBackoff),
		ConnectTimeout:                c.cfg.ConnectTimeout,
		ConnectUsername:               c.cfg.Username,
		ConnectPassword:               []byte(c.cfg.Password),
		TlsCfg: &tls.Config{
			InsecureSkipVerify: c.cfg.InsecureSkipVerify,
		},
		WillMessage:    c.willMessage(),
		OnConnectionUp: c.onConnectionUp,
		OnConnectError: c.onConnectError,
		ClientConfig: paho.ClientConfig{
			ClientID:           c.cfg.ClientID,
			OnClientError:      c.onClientError,
			OnServerDisconnect: c.onServerDisconnect,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				c.route,
			},
		},
	}

	c.logger.Info("Connecting to MQTT broker")
	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("failed to start mqtt connection: %w", err)
	}
	c.cm = cm
	return nil
}

func (c *pahoClient) Disconnect(ctx context.Context) {
	if c.cm == nil {
		return
	}
	if err := c.cm.Disconnect(ctx); err != nil {
		c.logger.Warn("MQTT disconnect did not complete", "error", err)
	}
	c.connected.Store(false)
	c.logger.Info("MQTT client disconnected")
}

func (c *pahoClient) Publish(ctx context.Context, topicName string, qos int, retain bool, payload []byte) error {
	if c.cm == nil {
		return errNotStarted
	}
	_, err := c.cm.Publish(ctx, &paho.Publish{
		Topic:   topicName,
		QoS:     byte(qos),
		Retain:  retain,
		Payload: payload,
	})
	return err
}

func (c *pahoClient) Subscribe(ctx context.Context, filter string, qos int, handler MessageHandler) error {
	if c.cm == nil {
		return errNotStarted
	}

	// Recorded first so a reconnect racing with this call still restores it.
	c.mu.Lock()
	c.subs[filter] = subscription{filter: filter, qos: byte(qos), handler: handler}
	c.mu.Unlock()

	if _, err := c.cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: filter, QoS: byte(qos)}},
	}); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", filter, err)
	}

	c.logger.Info("Subscribed", "filter", filter)
	return nil
}

func (c *pahoClient) Unsubscribe(ctx context.Context, filter string) error {
	if c.cm == nil {
		return errNotStarted
	}

	c.mu.Lock()
	delete(c.subs, filter)
	c.mu.Unlock()

	_, err := c.cm.Unsubscribe(ctx, &paho.Unsubscribe{Topics: []string{filter}})
	return err
}

func (c *pahoClient) AwaitConnection(ctx context.Context) error {
	if c.cm == nil {
		return errNotStarted
	}
	return c.cm.AwaitConnection(ctx)
}

func (c *pahoClient) IsConnected() bool {
	return c.connected.Load()
}

func (c *pahoClient) snapshot() []subscription {
	c.mu.RLock()
	defer c.mu.RUnlock()
	subs := make([]subscription, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	return subs
}

// onConnectionUp restores every subscription in a single SUBSCRIBE packet.
func (c *pahoClient) onConnectionUp(cm *autopaho.ConnectionManager, _ *paho.Connack) {
	c.connected.Store(true)
	c.logger.Info("MQTT connection established")

	subs := c.snapshot()
	if len(subs) == 0 {
		return
	}
	opts := make([]paho.SubscribeOptions, 0, len(subs))
	for _, s := range subs {
		opts = append(opts, paho.SubscribeOptions{Topic: s.filter, QoS: s.qos})
	}
	if _, err := cm.Subscribe(context.Background(), &paho.Subscribe{Subscriptions: opts}); err != nil {
		c.logger.Error(err, "Failed to restore subscriptions", "count", len(opts))
	}
}

func (c *pahoClient) onConnectError(err error) {
	c.connected.Store(false)
	c.logger.Error(err, "MQTT connection failed, retrying", "backoff", c.cfg.ReconnectBackoff)
}

func (c *pahoClient) onClientError(err error) {
	c.logger.Error(err, "MQTT client error")
}

func (c *pahoClient) onServerDisconnect(d *paho.Disconnect) {
	c.connected.Store(false)
	reason := ""
	if d.Properties != nil {
		reason = d.Properties.ReasonString
	}
	c.logger.Warn("MQTT broker requested disconnect", "reasonCode", d.ReasonCode, "reason", reason)
}

// route hands a received message to every matching handler, each on its own
// goroutine so the paho reader never blocks.
func (c *pahoClient) route(p paho.PublishReceived) (bool, error) {
	name := p.Packet.Topic

	matched := false
	for _, s := range c.snapshot() {
		if !topicsMatch(topicFilter(s.filter), name) {
			continue
		}
		matched = true
		go s.handler(context.Background(), name, p.Packet.Payload)
	}

	if !matched {
		c.logger.Debug("Dropping message on unhandled topic", "topic", name)
	}
	return true, nil
}

func (c *pahoClient) willMessage() *paho.WillMessage {
	if c.cfg.WillTopic == "" {
		return nil
	}
	return &paho.WillMessage{
		Topic:   c.cfg.WillTopic,
		Payload: c.cfg.WillPayload,
		QoS:     c.cfg.WillQoS,
		Retain:  c.cfg.WillRetain,
	}
}

// topicsMatch reports whether name matches filter, honoring + and #.
func topicsMatch(filter, name string) bool {
	if filter == name {
		return true
	}
	if !strings.Contains(filter, topic.Wildcard) && !strings.Contains(filter, topic.MultiWildcard) {
		return false
	}

	filterLevels := strings.Split(filter, "/")
	nameLevels := strings.Split(name, "/")
	for i, level := range filterLevels {
		if level == topic.MultiWildcard {
			return true
		}
		if i >= len(nameLevels) {
			return false
		}
		if level != topic.Wildcard && level != nameLevels[i] {
			return false
		}
	}
	return len(filterLevels) == len(nameLevels)
}

// topicFilter strips the $share/{group}/ prefix of a shared subscription.
func topicFilter(filter string) string {
	rest, ok := strings.CutPrefix(filter, "$share/")
	if !ok {
		return filter
	}
	if _, f, ok := strings.Cut(rest, "/"); ok {
		return f
	}
	return filter
}
