package mqtt

import (
	"context"
)

// MessageHandler processes one received message. It runs on its own
// goroutine and may block.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// Client is the MQTT connection shared by the telemetry sink and the command
// ingress. Implementations reconnect on their own and restore subscriptions.
type Client interface {
	// Start dials in the background and returns. Use AwaitConnection to wait.
	Start(ctx context.Context) error
	Disconnect(ctx context.Context)

	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Subscribe registers handler for filter, which may hold wildcards or a
	// $share/{group}/ prefix. The subscription survives reconnects.
	Subscribe(ctx context.Context, filter string, qos int, handler MessageHandler) error
	Unsubscribe(ctx context.Context, filter string) error

	AwaitConnection(ctx context.Context) error
	IsConnected() bool
}
