package domain

import "time"

// Attendee is a registration for a single event
type Attendee struct {
	ID           int64     `json:"id"`
	EventID      int64     `json:"event_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone"`
	RegisteredAt time.Time `json:"registered_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Lifecycle
}

// LifecycleID implements lifecycle.Subject
func (a *Attendee) LifecycleID() int64 { return a.ID }

// LifecycleState implements lifecycle.Subject
func (a *Attendee) LifecycleState() State { return a.State() }
