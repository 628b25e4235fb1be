package mqtt

import (
	"errors"
	"net/url"
	"time"

	"github.com/autopeer-io/fleetsim/pkg/log"
)

const (
	DefaultKeepAlive        = 60
	DefaultConnectTimeout   = 5 * time.Second
	DefaultReconnectBackoff = 3 * time.Second
)

// ClientConfig configures NewClient.
type ClientConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// KeepAlive in seconds.
	KeepAlive uint16

	ConnectTimeout time.Duration

	// ReconnectBackoff is the constant delay between connection attempts.
	ReconnectBackoff time.Duration

	CleanStart bool

	// SessionExpiry in seconds. Zero ends the session with the connection.
	SessionExpiry uint32

	InsecureSkipVerify bool

	// Will message published by the broker if the client drops without a DISCONNECT.
	WillTopic   string
	WillPayload []byte
	WillQoS     byte
	WillRetain  bool

	// Logger defaults to the process logger named "mqtt".
	Logger log.Logger
}

func setDefaultConfig(cfg *ClientConfig) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = DefaultKeepAlive
	}
	if cfg.ReconnectBackoff == 0 {
		cfg.ReconnectBackoff = DefaultReconnectBackoff
	}
	if cfg.Logger == nil {
		cfg.Logger = log.WithName("mqtt")
	}
}

// Validate checks the broker url and the will message.
func (c *ClientConfig) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker url is required")
	}
	if _, err := url.Parse(c.BrokerURL); err != nil {
		return err
	}
	if c.WillQoS > 2 {
		return errors.New("will qos must be 0, 1 or 2")
	}
	if c.WillTopic == "" && len(c.WillPayload) > 0 {
		return errors.New("will payload set without a will topic")
	}
	return nil
}
