package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prohmpiriya/event-management/internal/domain"
	"github.com/prohmpiriya/event-management/internal/dto"
	"github.com/prohmpiriya/event-management/internal/eventbus"
	"github.com/prohmpiriya/event-management/internal/lifecycle"
	"github.com/prohmpiriya/event-management/internal/repository"
	"github.com/prohmpiriya/event-management/internal/tenancy"
	"github.com/prohmpiriya/event-management/pkg/telemetry"
)

// attendeeService implements the AttendeeService interface
type attendeeService struct {
	attendeeRepo repository.AttendeeRepository
	eventRepo    repository.EventRepository
	guard        *tenancy.Guard
	lifecycle    *lifecycle.Manager
	emitter      *eventbus.Emitter
}

// NewAttendeeService creates a new AttendeeService
func NewAttendeeService(
	attendeeRepo repository.AttendeeRepository,
	eventRepo repository.EventRepository,
	guard *tenancy.Guard,
	emitter *eventbus.Emitter,
) AttendeeService {
	if emitter == nil {
		emitter = eventbus.NewEmitter(nil, nil)
	}
	return &attendeeService{
		attendeeRepo: attendeeRepo,
		eventRepo:    eventRepo,
		guard:        guard,
		lifecycle:    lifecycle.NewManager("attendee", attendeeRepo),
		emitter:      emitter,
	}
}

// List returns the active attendees of an event
func (s *attendeeService) List(ctx context.Context, org *domain.Organization, eventID int64) ([]*domain.Attendee, error) {
	if _, err := s.findEvent(ctx, org, eventID); err != nil {
		return nil, err
	}
	attendees, err := s.attendeeRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return attendees, nil
}

// Register adds an attendee if the event still has a free seat
func (s *attendeeService) Register(ctx context.Context, org *domain.Organization, eventID int64, req *dto.RegisterAttendeeRequest) (attendee *domain.Attendee, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.attendee.register",
		telemetry.OrganizationIDAttr(org.ID), telemetry.EventIDAttr(eventID))
	defer func() { telemetry.EndSpan(span, err) }()

	event, err := s.findEvent(ctx, org, eventID)
	if err != nil {
		return nil, err
	}

	attendee = &domain.Attendee{
		EventID: event.ID,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
	}

	if err := s.attendeeRepo.Register(ctx, attendee); err != nil {
		return nil, s.registrationError(ctx, org, event, err)
	}

	s.emitter.Emit(ctx, eventbus.AttendeeRegistered, org.ID, "attendee", attendee.ID, actorID(ctx))
	return attendee, nil
}

// Get returns an active attendee of the event
func (s *attendeeService) Get(ctx context.Context, org *domain.Organization, eventID, id int64) (*domain.Attendee, error) {
	event, err := s.findEvent(ctx, org, eventID)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, org, event, id, repository.OnlyActive)
}

// Update applies the fields present in req
func (s *attendeeService) Update(ctx context.Context, org *domain.Organization, eventID, id int64, req *dto.UpdateAttendeeRequest) (*domain.Attendee, error) {
	event, err := s.findEvent(ctx, org, eventID)
	if err != nil {
		return nil, err
	}
	attendee, err := s.find(ctx, org, event, id, repository.OnlyActive)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		attendee.Name = *req.Name
	}
	if req.Email != nil {
		attendee.Email = *req.Email
	}
	if req.Phone != nil {
		attendee.Phone = req.Phone
	}

	if err := s.attendeeRepo.Update(ctx, attendee); err != nil {
		return nil, notFound(ErrAttendeeNotFound, fmt.Errorf("update attendee: %w", err))
	}

	s.emitter.Emit(ctx, eventbus.AttendeeUpdated, org.ID, "attendee", attendee.ID, actorID(ctx))
	return attendee, nil
}

// Delete trashes an attendee, freeing its seat
func (s *attendeeService) Delete(ctx context.Context, org *domain.Organization, eventID, id int64) error {
	event, err := s.findEvent(ctx, org, eventID)
	if err != nil {
		return err
	}
	attendee, err := s.find(ctx, org, event, id, repository.OnlyActive)
	if err != nil {
		return err
	}

	if err := s.lifecycle.Trash(ctx, attendee); err != nil {
		return notFound(ErrAttendeeNotFound, err)
	}
	s.emitter.Emit(ctx, eventbus.AttendeeTrashed, org.ID, "attendee", attendee.ID, actorID(ctx))
	return nil
}

// Restore re-activates a trashed attendee when the event has room for it
func (s *attendeeService) Restore(ctx context.Context, org *domain.Organization, eventID, id int64) (attendee *domain.Attendee, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.attendee.restore",
		telemetry.OrganizationIDAttr(org.ID), telemetry.EventIDAttr(eventID))
	defer func() { telemetry.EndSpan(span, err) }()

	event, err := s.findEvent(ctx, org, eventID)
	if err != nil {
		return nil, err
	}
	attendee, err = s.find(ctx, org, event, id, repository.WithTrashed)
	if err != nil {
		return nil, err
	}

	if err := s.lifecycle.Restore(ctx, attendee); err != nil {
		if errors.Is(err, repository.ErrCapacityExceeded) {
			return nil, s.registrationError(ctx, org, event, err)
		}
		return nil, notFound(ErrAttendeeNotFound, err)
	}

	attendee.DeletedAt = nil
	s.emitter.Emit(ctx, eventbus.AttendeeRestored, org.ID, "attendee", attendee.ID, actorID(ctx))
	return attendee, nil
}

// registrationError maps a seat reservation failure
func (s *attendeeService) registrationError(ctx context.Context, org *domain.Organization, event *domain.Event, err error) error {
	switch {
	case errors.Is(err, repository.ErrCapacityExceeded):
		telemetry.Metrics().CapacityRejections.Inc(ctx,
			telemetry.OrganizationIDAttr(org.ID),
			telemetry.EventIDAttr(event.ID),
		)
		return fmt.Errorf("%w: %w", ErrEventFullyBooked, err)
	case errors.Is(err, repository.ErrNotFound):
		// The event was trashed between lookup and insert
		return fmt.Errorf("%w: %w", ErrEventNotFound, err)
	}
	return fmt.Errorf("register attendee: %w", err)
}

// findEvent loads an active event and checks that org owns it
func (s *attendeeService) findEvent(ctx context.Context, org *domain.Organization, id int64) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id, repository.OnlyActive)
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	if err := s.guard.EventInOrganization(ctx, event, org); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEventNotFound, err)
	}
	return event, nil
}

// find loads an attendee and checks that it belongs to event inside org
func (s *attendeeService) find(ctx context.Context, org *domain.Organization, event *domain.Event, id int64, lookup repository.Lookup) (*domain.Attendee, error) {
	attendee, err := s.attendeeRepo.GetByID(ctx, id, lookup)
	if err != nil {
		return nil, fmt.Errorf("get attendee %d: %w", id, err)
	}
	if attendee == nil {
		return nil, ErrAttendeeNotFound
	}
	if err := s.guard.AttendeeInEvent(ctx, attendee, event, org); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAttendeeNotFound, err)
	}
	return attendee, nil
}
