package repository

import (
	"context"
	"errors"
	"time"

	"github.com/prohmpiriya/event-management/internal/domain"
)

var (
	// ErrNotFound is returned by mutations whose target row is absent or in the wrong state
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateSlug is returned when an organization slug is already taken
	ErrDuplicateSlug = errors.New("organization slug already exists")
	// ErrCapacityExceeded is returned when an event has no free seats left
	ErrCapacityExceeded = errors.New("event capacity exceeded")
)

// Lookup selects which lifecycle states a lookup may return
type Lookup int

const (
	// OnlyActive hides trashed rows
	OnlyActive Lookup = iota
	// OnlyTrashed returns trashed rows only
	OnlyTrashed
	// WithTrashed returns rows in either state
	WithTrashed
)

// OrganizationRepository defines the interface for organization data access.
// Lookups return (nil, nil) when no row matches.
type OrganizationRepository interface {
	// Create inserts org and makes ownerID a member of it in one transaction
	Create(ctx context.Context, org *domain.Organization, ownerID int64) error
	// GetByID retrieves an organization by ID
	GetByID(ctx context.Context, id int64, lookup Lookup) (*domain.Organization, error)
	// GetBySlug retrieves an organization by exact slug
	GetBySlug(ctx context.Context, slug string, lookup Lookup) (*domain.Organization, error)
	// List returns active organizations ordered by id
	List(ctx context.Context) ([]*domain.Organization, error)
	// Update persists name and slug
	Update(ctx context.Context, org *domain.Organization) error
	// ExistsByName checks every non-purged organization except excludeID
	ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error)
	// ExistsBySlug checks every non-purged organization except excludeID
	ExistsBySlug(ctx context.Context, slug string, excludeID int64) (bool, error)
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
	// Purge hard deletes the organization, its events and their attendees,
	// and detaches its members
	Purge(ctx context.Context, id int64) error
}

// UserRepository defines the interface for principal lookups
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *domain.User) error
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// EventFilter narrows an event listing. All set filters are ANDed.
type EventFilter struct {
	OrganizationID int64
	Status         string
	// Upcoming keeps published events dated at or after Now
	Upcoming bool
	Now      time.Time
	Limit    int
	Offset   int
}

// EventRepository defines the interface for event data access
type EventRepository interface {
	// Create creates a new event
	Create(ctx context.Context, event *domain.Event) error
	// GetByID retrieves an event by ID regardless of organization
	GetByID(ctx context.Context, id int64, lookup Lookup) (*domain.Event, error)
	// List retrieves events in id order with the total matching count
	List(ctx context.Context, filter EventFilter) ([]*domain.Event, int64, error)
	// ListTrashed retrieves the trashed events of one organization
	ListTrashed(ctx context.Context, organizationID int64) ([]*domain.Event, error)
	// Update persists every mutable field
	Update(ctx context.Context, event *domain.Event) error
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
	// Purge hard deletes the event and its attendees
	Purge(ctx context.Context, id int64) error
}

// AttendeeRepository defines the interface for attendee data access
type AttendeeRepository interface {
	// Register counts the event's active attendees and inserts attendee as one
	// atomic unit; returns ErrCapacityExceeded when the event is full
	Register(ctx context.Context, attendee *domain.Attendee) error
	// GetByID retrieves an attendee by ID regardless of event
	GetByID(ctx context.Context, id int64, lookup Lookup) (*domain.Attendee, error)
	// ListByEvent retrieves the active attendees of an event in id order
	ListByEvent(ctx context.Context, eventID int64) ([]*domain.Attendee, error)
	// CountActive counts the active attendees of an event
	CountActive(ctx context.Context, eventID int64) (int, error)
	// Update persists name, email and phone
	Update(ctx context.Context, attendee *domain.Attendee) error
	SoftDelete(ctx context.Context, id int64) error
	// Restore re-activates a trashed attendee under the same capacity rule as Register
	Restore(ctx context.Context, id int64) error
}
