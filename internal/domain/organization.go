package domain

import "time"

// Organization is the tenant that owns events
type Organization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Lifecycle
}

// LifecycleID implements lifecycle.Subject
func (o *Organization) LifecycleID() int64 { return o.ID }

// LifecycleState implements lifecycle.Subject
func (o *Organization) LifecycleState() State { return o.State() }
