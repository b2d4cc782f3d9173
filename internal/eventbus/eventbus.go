// Package eventbus publishes domain events about tenant resources.
package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type identifies a domain event
type Type string

const (
	OrganizationCreated  Type = "organization.created"
	OrganizationUpdated  Type = "organization.updated"
	OrganizationTrashed  Type = "organization.trashed"
	OrganizationRestored Type = "organization.restored"
	OrganizationPurged   Type = "organization.purged"

	EventCreated  Type = "event.created"
	EventUpdated  Type = "event.updated"
	EventTrashed  Type = "event.trashed"
	EventRestored Type = "event.restored"
	EventPurged   Type = "event.purged"

	AttendeeRegistered Type = "attendee.registered"
	AttendeeUpdated    Type = "attendee.updated"
	AttendeeTrashed    Type = "attendee.trashed"
	AttendeeRestored   Type = "attendee.restored"
)

// Message is the envelope written to the bus
type Message struct {
	ID             string    `json:"id"`
	Type           Type      `json:"type"`
	OrganizationID int64     `json:"organization_id"`
	Entity         string    `json:"entity"`
	EntityID       int64     `json:"entity_id"`
	ActorID        int64     `json:"actor_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewMessage stamps a message with a fresh id and the current time
func NewMessage(t Type, organizationID int64, entity string, entityID int64) Message {
	return Message{
		ID:             uuid.NewString(),
		Type:           t,
		OrganizationID: organizationID,
		Entity:         entity,
		EntityID:       entityID,
		OccurredAt:     time.Now().UTC(),
	}
}

// Publisher delivers messages to subscribers
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close()
}

// NoopPublisher drops every message. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, msg Message) error { return nil }
func (NoopPublisher) Close()                                         {}

// Recorder keeps published messages in memory for tests
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// NewRecorder creates an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(ctx context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *Recorder) Close() {}

// Messages returns a copy of everything published so far
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Types returns the type of every published message in order
func (r *Recorder) Types() []Type {
	msgs := r.Messages()
	types := make([]Type, len(msgs))
	for i, m := range msgs {
		types[i] = m.Type
	}
	return types
}
