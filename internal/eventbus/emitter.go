package eventbus

import (
	"context"

	"github.com/prohmpiriya/event-management/pkg/logger"
	"go.uber.org/zap"
)

// Emitter publishes on behalf of services. Bus failures are logged and never
// surface to the caller.
type Emitter struct {
	publisher Publisher
	log       *logger.Logger
}

// NewEmitter wraps publisher; a nil publisher drops everything
func NewEmitter(publisher Publisher, log *logger.Logger) *Emitter {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Emitter{publisher: publisher, log: log.Named("eventbus")}
}

// Emit publishes a message built from the arguments
func (e *Emitter) Emit(ctx context.Context, t Type, organizationID int64, entity string, entityID int64, actorID int64) {
	msg := NewMessage(t, organizationID, entity, entityID)
	msg.ActorID = actorID

	// The request may finish before the broker acks
	if err := e.publisher.Publish(context.WithoutCancel(ctx), msg); err != nil {
		e.log.WarnContext(ctx, "failed to publish domain event",
			zap.String("type", string(t)),
			zap.Int64("organization_id", organizationID),
			zap.Int64("entity_id", entityID),
			zap.Error(err),
		)
	}
}
