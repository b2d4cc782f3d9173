// Package lifecycle enforces the soft-delete state machine shared by every
// trashable entity.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/prohmpiriya/event-management/internal/domain"
	"github.com/prohmpiriya/event-management/pkg/telemetry"
)

var (
	// ErrInvalidTransition is returned when a transition is not allowed from the subject's state
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)

// Transition names a lifecycle operation
type Transition string

const (
	Trash   Transition = "trash"
	Restore Transition = "restore"
	Purge   Transition = "purge"
)

// target is the state each transition lands in
var target = map[Transition]domain.State{
	Trash:   domain.StateTrashed,
	Restore: domain.StateActive,
	Purge:   domain.StatePurged,
}

// validTransitions defines allowed state transitions
// Key is current state, value is list of allowed next states
var validTransitions = map[domain.State][]domain.State{
	domain.StateActive:  {domain.StateTrashed, domain.StatePurged},
	domain.StateTrashed: {domain.StateActive, domain.StatePurged},
	domain.StatePurged:  {}, // Terminal state
}

// CanTransition returns true if moving from one state to another is allowed
func CanTransition(from, to domain.State) bool {
	allowedStates, exists := validTransitions[from]
	if !exists {
		return false
	}
	for _, allowed := range allowedStates {
		if allowed == to {
			return true
		}
	}
	return false
}

// Subject is anything with an id and a lifecycle state
type Subject interface {
	LifecycleID() int64
	LifecycleState() domain.State
}

// Store applies transitions to persistence
type Store interface {
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
}

// Purger is implemented by stores whose entities can be hard deleted
type Purger interface {
	Purge(ctx context.Context, id int64) error
}

// Manager validates and applies transitions for one entity kind
type Manager struct {
	entity string
	store  Store
}

// NewManager creates a Manager for entity (used in errors and metrics)
func NewManager(entity string, store Store) *Manager {
	return &Manager{entity: entity, store: store}
}

// Entity returns the entity name the manager was built for
func (m *Manager) Entity() string {
	return m.entity
}

// Trash soft deletes an active subject
func (m *Manager) Trash(ctx context.Context, s Subject) error {
	return m.Apply(ctx, s, Trash)
}

// Restore re-activates a trashed subject
func (m *Manager) Restore(ctx context.Context, s Subject) error {
	return m.Apply(ctx, s, Restore)
}

// Purge hard deletes an active or trashed subject
func (m *Manager) Purge(ctx context.Context, s Subject) error {
	return m.Apply(ctx, s, Purge)
}

// Apply validates t against the subject's current state and persists it
func (m *Manager) Apply(ctx context.Context, s Subject, t Transition) error {
	to, ok := target[t]
	if !ok {
		return fmt.Errorf("%w: unknown transition %q", ErrInvalidTransition, t)
	}
	from := s.LifecycleState()
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: cannot %s %s %d from %s", ErrInvalidTransition, t, m.entity, s.LifecycleID(), from)
	}

	var err error
	switch t {
	case Trash:
		err = m.store.SoftDelete(ctx, s.LifecycleID())
	case Restore:
		err = m.store.Restore(ctx, s.LifecycleID())
	case Purge:
		purger, ok := m.store.(Purger)
		if !ok {
			return fmt.Errorf("%w: %s cannot be purged", ErrInvalidTransition, m.entity)
		}
		err = purger.Purge(ctx, s.LifecycleID())
	}
	if err != nil {
		return fmt.Errorf("%s %s %d: %w", t, m.entity, s.LifecycleID(), err)
	}

	telemetry.Metrics().LifecycleTransitions.Inc(ctx,
		telemetry.EntityAttr(m.entity),
		telemetry.TransitionAttr(string(t)),
	)
	return nil
}
