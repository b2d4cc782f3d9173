package domain

import "time"

// State is the soft-delete lifecycle state shared by organizations, events and attendees
type State string

const (
	StateActive  State = "active"
	StateTrashed State = "trashed"
	// StatePurged is terminal; purged rows no longer exist
	StatePurged State = "purged"
)

// Lifecycle is embedded in every soft-deletable entity
type Lifecycle struct {
	DeletedAt *time.Time `json:"deleted_at"`
}

// State derives the lifecycle state from deleted_at
func (l Lifecycle) State() State {
	if l.DeletedAt != nil {
		return StateTrashed
	}
	return StateActive
}

// IsTrashed returns true if the entity is soft deleted
func (l Lifecycle) IsTrashed() bool {
	return l.DeletedAt != nil
}
