package sink

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/pkg/options"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes each report as one message keyed by device id, so the reports
// of a device stay ordered within a partition.
type Kafka struct {
	writer messageWriter
}

var _ device.Sink = (*Kafka)(nil)

func NewKafka(opts *options.KafkaOptions) *Kafka {
	w := &kafka.Writer{
		Addr:         kafka.TCP(opts.Brokers...),
		Topic:        opts.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequiredAcks(opts.RequiredAcks),
		WriteTimeout: opts.WriteTimeout,
		BatchTimeout: opts.BatchTimeout,
	}
	return &Kafka{writer: w}
}

func (k *Kafka) Publish(ctx context.Context, r *device.Report) error {
	payload, err := device.Encode(r)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(r.DeviceID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "device_type", Value: []byte(r.DeviceType)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
