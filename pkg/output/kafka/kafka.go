// Package kafka publishes readings to a Kafka topic. Messages are keyed by
// device so that a compacted topic keeps the last value of each device, the
// Kafka counterpart of a retained MQTT message.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/ericogr/co2-monitor/pkg/config"
	"github.com/ericogr/co2-monitor/pkg/output"
)

type KafkaOutput struct {
	brokers   []string
	key       []byte
	writer    *kafka.Writer
	log       *slog.Logger
	connected bool
}

var _ output.Output = (*KafkaOutput)(nil)

// NewKafka returns an output keyed by deviceID.
func NewKafka(cfg config.KafkaConfig, deviceID string, log *slog.Logger) *KafkaOutput {
	return &KafkaOutput{
		brokers: cfg.Brokers,
		key:     []byte(deviceID),
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			RequiredAcks: kafka.RequireOne,
			Balancer:     &kafka.Hash{},
		},
		log: log.With(slog.String("component", "kafka")),
	}
}

func (k *KafkaOutput) Connected() bool { return k.connected }

// Connect checks that the first reachable broker accepts connections.
func (k *KafkaOutput) Connect(ctx context.Context) error {
	if len(k.brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}
	var errs []error
	for _, b := range k.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		_ = conn.Close()
		k.connected = true
		k.log.Info("connected", "broker", b)
		return nil
	}
	return fmt.Errorf("kafka connect: %w", errors.Join(errs...))
}

// Publish writes payload keyed by device. retained is implied by the key.
func (k *KafkaOutput) Publish(ctx context.Context, topic string, payload []byte, retained bool) error {
	err := k.writer.WriteMessages(ctx, kafka.Message{Topic: topic, Key: k.key, Value: payload})
	if err != nil {
		k.connected = false
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (k *KafkaOutput) Close() error {
	return k.writer.Close()
}
