// Package service holds the business rules for organizations, events and
// attendees. Services receive the organization already resolved from the
// request and enforce containment themselves.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prohmpiriya/event-management/internal/domain"
	"github.com/prohmpiriya/event-management/internal/dto"
	"github.com/prohmpiriya/event-management/internal/lifecycle"
	"github.com/prohmpiriya/event-management/internal/repository"
	"github.com/prohmpiriya/event-management/internal/tenancy"
)

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrEventNotFound        = errors.New("event not found")
	ErrAttendeeNotFound     = errors.New("attendee not found")
	ErrEventFullyBooked     = errors.New("event is fully booked")
)

// OrganizationService defines organization use cases
type OrganizationService interface {
	List(ctx context.Context) ([]*domain.Organization, error)
	// Create makes the calling principal a member of the new organization
	Create(ctx context.Context, req *dto.CreateOrganizationRequest) (*domain.Organization, error)
	Update(ctx context.Context, org *domain.Organization, req *dto.UpdateOrganizationRequest) (*domain.Organization, error)
	Delete(ctx context.Context, org *domain.Organization) error
	Restore(ctx context.Context, org *domain.Organization) (*domain.Organization, error)
	Purge(ctx context.Context, org *domain.Organization) error
}

// EventService defines event use cases inside one organization
type EventService interface {
	List(ctx context.Context, org *domain.Organization, query *dto.ListEventsQuery) ([]*domain.Event, int64, error)
	Get(ctx context.Context, org *domain.Organization, id int64) (*domain.Event, error)
	Create(ctx context.Context, org *domain.Organization, req *dto.CreateEventRequest) (*domain.Event, error)
	Update(ctx context.Context, org *domain.Organization, id int64, req *dto.UpdateEventRequest) (*domain.Event, error)
	Delete(ctx context.Context, org *domain.Organization, id int64) error
	Trashed(ctx context.Context, org *domain.Organization) ([]*domain.Event, error)
	Restore(ctx context.Context, org *domain.Organization, id int64) (*domain.Event, error)
	ForceDelete(ctx context.Context, org *domain.Organization, id int64) error
}

// AttendeeService defines attendee use cases inside one event
type AttendeeService interface {
	List(ctx context.Context, org *domain.Organization, eventID int64) ([]*domain.Attendee, error)
	Register(ctx context.Context, org *domain.Organization, eventID int64, req *dto.RegisterAttendeeRequest) (*domain.Attendee, error)
	Get(ctx context.Context, org *domain.Organization, eventID, id int64) (*domain.Attendee, error)
	Update(ctx context.Context, org *domain.Organization, eventID, id int64, req *dto.UpdateAttendeeRequest) (*domain.Attendee, error)
	Delete(ctx context.Context, org *domain.Organization, eventID, id int64) error
	Restore(ctx context.Context, org *domain.Organization, eventID, id int64) (*domain.Attendee, error)
}

// actorID returns the id of the calling user, or 0 when anonymous
func actorID(ctx context.Context) int64 {
	if p := tenancy.PrincipalFrom(ctx); p != nil {
		return p.UserID
	}
	return 0
}

// notFound folds lifecycle and repository misses into the entity's not-found error
func notFound(target, err error) error {
	if errors.Is(err, lifecycle.ErrInvalidTransition) || errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %w", target, err)
	}
	return err
}
