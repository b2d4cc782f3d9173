package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventStatus represents the publication status of an event
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCancelled EventStatus = "cancelled"
)

// IsValid reports whether s is a known status
func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusCancelled:
		return true
	}
	return false
}

// Event belongs to exactly one organization for its whole life
type Event struct {
	ID             int64           `json:"id"`
	OrganizationID int64           `json:"organization_id"`
	Title          string          `json:"title"`
	Description    *string         `json:"description"`
	Venue          string          `json:"venue"`
	Date           time.Time       `json:"date"`
	Price          decimal.Decimal `json:"price"`
	MaxAttendees   int             `json:"max_attendees"`
	Status         EventStatus     `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Lifecycle
}

// IsUpcoming reports whether the event is published and not yet started
func (e *Event) IsUpcoming(now time.Time) bool {
	return e.Status == EventStatusPublished && !e.Date.Before(now)
}

// LifecycleID implements lifecycle.Subject
func (e *Event) LifecycleID() int64 { return e.ID }

// LifecycleState implements lifecycle.Subject
func (e *Event) LifecycleState() State { return e.State() }
