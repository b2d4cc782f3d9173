package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/prohmpiriya/event-management/pkg/logger"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// KafkaConfig holds producer settings
type KafkaConfig struct {
	Brokers  []string
	ClientID string
	Topic    string
	// DeliveryTimeout bounds how long a record may wait for the broker
	DeliveryTimeout time.Duration
	// Logger receives delivery failures
	Logger *logger.Logger
}

// KafkaPublisher writes messages to a Kafka topic keyed by organization id,
// so every event of one tenant lands on the same partition in order.
type KafkaPublisher struct {
	client  *kgo.Client
	topic   string
	timeout time.Duration
	log     *logger.Logger
}

// NewKafkaPublisher creates the producer client and pings the cluster
func NewKafkaPublisher(ctx context.Context, cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.DeliveryTimeout == 0 {
		cfg.DeliveryTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression(), kgo.NoCompression()),
		kgo.RecordRetries(3),
		kgo.RecordDeliveryTimeout(cfg.DeliveryTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach kafka: %w", err)
	}

	return newKafkaPublisher(client, cfg), nil
}

func newKafkaPublisher(client *kgo.Client, cfg KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		client:  client,
		topic:   cfg.Topic,
		timeout: cfg.DeliveryTimeout,
		log:     cfg.Logger.Named("kafka"),
	}
}

// Publish buffers msg and returns without waiting for the broker. Delivery
// failures, including a full buffer, are logged from the produce callback.
func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	record, err := newRecord(p.topic, msg)
	if err != nil {
		return err
	}
	p.client.TryProduce(context.WithoutCancel(ctx), record, p.delivered(msg))
	return nil
}

// delivered returns the produce callback for msg
func (p *KafkaPublisher) delivered(msg Message) func(*kgo.Record, error) {
	return func(_ *kgo.Record, err error) {
		if err == nil {
			return
		}
		p.log.Warn("domain event not delivered",
			zap.String("type", string(msg.Type)),
			zap.String("message_id", msg.ID),
			zap.Int64("organization_id", msg.OrganizationID),
			zap.Error(err),
		)
	}
}

// Close flushes buffered records and closes the client
func (p *KafkaPublisher) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}

func newRecord(topic string, msg Message) (*kgo.Record, error) {
	value, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", msg.Type, err)
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(strconv.FormatInt(msg.OrganizationID, 10)),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(msg.Type)},
			{Key: "message_id", Value: []byte(msg.ID)},
		},
	}, nil
}
