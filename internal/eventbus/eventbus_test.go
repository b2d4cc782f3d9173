package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prohmpiriya/event-management/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewMessage(t *testing.T) {
	msg := NewMessage(EventTrashed, 1, "event", 10)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, EventTrashed, msg.Type)
	assert.Equal(t, int64(1), msg.OrganizationID)
	assert.Equal(t, int64(10), msg.EntityID)
	assert.False(t, msg.OccurredAt.IsZero())
	assert.NotEqual(t, msg.ID, NewMessage(EventTrashed, 1, "event", 10).ID)
}

func TestNewRecord_KeyedByOrganization(t *testing.T) {
	msg := NewMessage(AttendeeRegistered, 42, "attendee", 7)

	record, err := newRecord("domain-events", msg)
	require.NoError(t, err)

	assert.Equal(t, "domain-events", record.Topic)
	assert.Equal(t, "42", string(record.Key))
	require.Len(t, record.Headers, 2)
	assert.Equal(t, "attendee.registered", string(record.Headers[0].Value))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(record.Value, &decoded))
	assert.Equal(t, "attendee.registered", decoded["type"])
	assert.Equal(t, "attendee", decoded["entity"])
	assert.Equal(t, float64(7), decoded["entity_id"])
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	require.NoError(t, r.Publish(ctx, NewMessage(EventCreated, 1, "event", 1)))
	require.NoError(t, r.Publish(ctx, NewMessage(EventTrashed, 1, "event", 1)))

	assert.Equal(t, []Type{EventCreated, EventTrashed}, r.Types())
	assert.Len(t, r.Messages(), 2)
}

type failingPublisher struct{}

func (failingPublisher) Publish(ctx context.Context, msg Message) error {
	return errors.New("broker unavailable")
}
func (failingPublisher) Close() {}

func TestEmitter_LogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	e := NewEmitter(failingPublisher{}, &logger.Logger{Logger: zap.New(core)})

	assert.NotPanics(t, func() {
		e.Emit(context.Background(), OrganizationPurged, 1, "organization", 1, 3)
	})
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failed to publish domain event", logs.All()[0].Message)
}

func TestEmitter_SetsActor(t *testing.T) {
	r := NewRecorder()
	NewEmitter(r, nil).Emit(context.Background(), EventCreated, 2, "event", 9, 5)

	msgs := r.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(5), msgs[0].ActorID)
}

func TestKafkaPublisher_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	brokers := os.Getenv("TEST_KAFKA_BROKERS")
	if brokers == "" {
		brokers = "localhost:9092"
	}

	ctx := context.Background()
	p, err := NewKafkaPublisher(ctx, KafkaConfig{
		Brokers:  strings.Split(brokers, ","),
		ClientID: "event-management-test",
		Topic:    "event-management.test",
	})
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Publish(ctx, NewMessage(EventCreated, 1, "event", 1)))
}

func TestKafkaPublisher_PublishDoesNotWaitForBroker(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	// Nothing listens on this address, so every record eventually fails
	client, err := kgo.NewClient(
		kgo.SeedBrokers("127.0.0.1:1"),
		kgo.DefaultProduceTopic("event-management.test"),
		kgo.RecordDeliveryTimeout(200*time.Millisecond),
	)
	require.NoError(t, err)
	p := newKafkaPublisher(client, KafkaConfig{
		Topic:           "event-management.test",
		DeliveryTimeout: 200 * time.Millisecond,
		Logger:          &logger.Logger{Logger: zap.New(core)},
	})

	start := time.Now()
	require.NoError(t, p.Publish(context.Background(), NewMessage(EventCreated, 1, "event", 1)))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	client.Close()
	require.Eventually(t, func() bool { return logs.Len() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "domain event not delivered", logs.All()[0].Message)
}

func TestKafkaPublisher_DeliveredIgnoresSuccess(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := &KafkaPublisher{log: &logger.Logger{Logger: zap.New(core)}}
	msg := NewMessage(EventTrashed, 3, "event", 4)

	p.delivered(msg)(&kgo.Record{}, nil)
	assert.Equal(t, 0, logs.Len())

	p.delivered(msg)(&kgo.Record{}, errors.New("not leader"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(3), logs.All()[0].ContextMap()["organization_id"])
}

func TestNewKafkaPublisher_NoBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(context.Background(), KafkaConfig{})
	assert.Error(t, err)
}
