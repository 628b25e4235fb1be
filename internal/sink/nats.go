package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/pkg/options"
)

type subjectPublisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes each report on {prefix}.{deviceID}. Publishing is buffered by
// the client; an error here means the connection is closed or the buffer is full.
type NATS struct {
	conn   subjectPublisher
	nc     *nats.Conn
	prefix string
}

var _ device.Sink = (*NATS)(nil)

func NewNATS(opts *options.NatsOptions) (*NATS, error) {
	nc, err := nats.Connect(opts.URL,
		nats.Name(opts.Name),
		nats.Timeout(opts.Timeout),
		nats.MaxReconnects(opts.MaxReconnects),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATS{conn: nc, nc: nc, prefix: opts.SubjectPrefix}, nil
}

func (n *NATS) Publish(ctx context.Context, r *device.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := device.Encode(r)
	if err != nil {
		return err
	}

	if err := n.conn.Publish(n.subject(r.DeviceID), payload); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

func (n *NATS) subject(deviceID string) string {
	return n.prefix + "." + subjectToken.Replace(deviceID)
}

// subjectToken keeps a device id within a single subject token.
var subjectToken = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")

// Close drains pending messages before closing the connection.
func (n *NATS) Close() error {
	if n.nc == nil {
		return nil
	}
	return n.nc.Drain()
}
