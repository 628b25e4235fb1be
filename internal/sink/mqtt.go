package sink

import (
	"context"
	"fmt"

	"github.com/autopeer-io/fleetsim/internal/device"
	pkgmqtt "github.com/autopeer-io/fleetsim/pkg/mqtt"
	"github.com/autopeer-io/fleetsim/pkg/mqtt/topic"
)

// MQTT publishes each report to {root}/telemetry/{deviceID}.
type MQTT struct {
	client pkgmqtt.Client
	topics *topic.TopicBuilder
	qos    int
}

var _ device.Sink = (*MQTT)(nil)

// NewMQTT wraps an already started client. The client stays owned by the caller,
// which also uses it for the command ingress.
func NewMQTT(client pkgmqtt.Client, topics *topic.TopicBuilder, qos int) *MQTT {
	return &MQTT{client: client, topics: topics, qos: qos}
}

func (m *MQTT) Publish(ctx context.Context, r *device.Report) error {
	payload, err := device.Encode(r)
	if err != nil {
		return err
	}

	if err := m.client.Publish(ctx, m.topics.Telemetry(r.DeviceID), m.qos, false, payload); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	return nil
}
