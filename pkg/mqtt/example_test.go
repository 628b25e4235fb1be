package mqtt_test

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/fleetsim/pkg/log"
	"github.com/autopeer-io/fleetsim/pkg/mqtt"
	"github.com/autopeer-io/fleetsim/pkg/mqtt/topic"
)

// ExampleClient shows how a component connects, listens for commands and
// publishes telemetry.
func ExampleClient() {
	cfg := &mqtt.ClientConfig{
		BrokerURL:          "tcp://localhost:1883",
		ClientID:           "fleetsim-example",
		KeepAlive:          60,
		ConnectTimeout:     5 * time.Second,
		InsecureSkipVerify: true,
		CleanStart:         true,
	}

	client, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "Failed to create MQTT client")
		return
	}

	// Start returns immediately; the connection (and reconnects) happen in the background.
	ctx := context.Background()
	if err := client.Start(ctx); err != nil {
		log.Error(err, "Failed to start MQTT client")
		return
	}

	topics := topic.NewTopicBuilder("fleetsim/v1")

	// Handlers run in their own goroutine.
	onCommand := func(ctx context.Context, t string, payload []byte) {
		fmt.Printf("command on %s: %s\n", t, string(payload))
	}
	if err := client.Subscribe(ctx, topics.CommandWildcard(), 1, onCommand); err != nil {
		log.Error(err, "Failed to subscribe", "topic", topics.CommandWildcard())
	}

	if err := client.AwaitConnection(ctx); err != nil {
		log.Error(err, "Connection timed out")
		return
	}

	payload := []byte(`{"device_id":"dev-1","device_type":"Counter","timestamp":1700000000000,"data":{"current_count":1,"count_limit":100}}`)
	if err := client.Publish(ctx, topics.Telemetry("dev-1"), 0, false, payload); err != nil {
		log.Error(err, "Failed to publish message")
	}

	client.Disconnect(ctx)
}
