package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prohmpiriya/event-management/internal/domain"
	"github.com/prohmpiriya/event-management/internal/dto"
	"github.com/prohmpiriya/event-management/internal/eventbus"
	"github.com/prohmpiriya/event-management/internal/lifecycle"
	"github.com/prohmpiriya/event-management/internal/repository"
	"github.com/prohmpiriya/event-management/internal/tenancy"
	"github.com/prohmpiriya/event-management/pkg/response"
	"github.com/prohmpiriya/event-management/pkg/telemetry"
	"github.com/shopspring/decimal"
)

const (
	msgDateAfterNow = "The date field must be a date after now."
	msgPriceMin     = "The price field must be at least 0."
)

// eventService implements the EventService interface
type eventService struct {
	eventRepo repository.EventRepository
	guard     *tenancy.Guard
	lifecycle *lifecycle.Manager
	emitter   *eventbus.Emitter
	now       func() time.Time
}

// NewEventService creates a new EventService
func NewEventService(eventRepo repository.EventRepository, guard *tenancy.Guard, emitter *eventbus.Emitter) EventService {
	if emitter == nil {
		emitter = eventbus.NewEmitter(nil, nil)
	}
	return &eventService{
		eventRepo: eventRepo,
		guard:     guard,
		lifecycle: lifecycle.NewManager("event", eventRepo),
		emitter:   emitter,
		now:       time.Now,
	}
}

// List returns one page of the organization's active events
func (s *eventService) List(ctx context.Context, org *domain.Organization, query *dto.ListEventsQuery) ([]*domain.Event, int64, error) {
	query.SetDefaults()
	params := response.NewPaginationParams(query.Page)

	events, total, err := s.eventRepo.List(ctx, repository.EventFilter{
		OrganizationID: org.ID,
		Status:         query.Status,
		Upcoming:       query.Upcoming,
		Now:            s.now(),
		Limit:          params.PerPage,
		Offset:         params.Offset(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	return events, total, nil
}

// Get returns an active event owned by org
func (s *eventService) Get(ctx context.Context, org *domain.Organization, id int64) (*domain.Event, error) {
	return s.find(ctx, org, id, repository.OnlyActive)
}

// Create creates an event owned by org
func (s *eventService) Create(ctx context.Context, org *domain.Organization, req *dto.CreateEventRequest) (event *domain.Event, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.create", telemetry.OrganizationIDAttr(org.ID))
	defer func() { telemetry.EndSpan(span, err) }()

	verr := &ValidationError{}
	if req.Date != nil && !req.Date.After(s.now()) {
		verr.Add("date", msgDateAfterNow)
	}
	price := decimal.Zero
	if req.Price != nil {
		price = *req.Price
		if price.IsNegative() {
			verr.Add("price", msgPriceMin)
		}
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	status := domain.EventStatusPublished
	if req.Status != nil {
		status = *req.Status
	}

	now := s.now()
	event = &domain.Event{
		OrganizationID: org.ID,
		Title:          req.Title,
		Description:    req.Description,
		Venue:          req.Venue,
		Date:           req.Date.Time,
		Price:          price.Round(2),
		MaxAttendees:   *req.MaxAttendees,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.emitter.Emit(ctx, eventbus.EventCreated, org.ID, "event", event.ID, actorID(ctx))
	return event, nil
}

// Update applies the fields present in req
func (s *eventService) Update(ctx context.Context, org *domain.Organization, id int64, req *dto.UpdateEventRequest) (event *domain.Event, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.update",
		telemetry.OrganizationIDAttr(org.ID), telemetry.EventIDAttr(id))
	defer func() { telemetry.EndSpan(span, err) }()

	event, err = s.find(ctx, org, id, repository.OnlyActive)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if req.Date != nil && !req.Date.After(s.now()) {
		verr.Add("date", msgDateAfterNow)
	}
	if req.Price != nil && req.Price.IsNegative() {
		verr.Add("price", msgPriceMin)
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.Description.Set {
		event.Description = req.Description.Value
	}
	if req.Venue != nil {
		event.Venue = *req.Venue
	}
	if req.Date != nil {
		event.Date = req.Date.Time
	}
	if req.Price != nil {
		event.Price = req.Price.Round(2)
	}
	if req.MaxAttendees != nil {
		event.MaxAttendees = *req.MaxAttendees
	}
	if req.Status != nil {
		event.Status = *req.Status
	}
	event.UpdatedAt = s.now()

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, notFound(ErrEventNotFound, fmt.Errorf("update event: %w", err))
	}

	s.emitter.Emit(ctx, eventbus.EventUpdated, org.ID, "event", event.ID, actorID(ctx))
	return event, nil
}

// Delete trashes an active event
func (s *eventService) Delete(ctx context.Context, org *domain.Organization, id int64) error {
	event, err := s.find(ctx, org, id, repository.OnlyActive)
	if err != nil {
		return err
	}
	if err := s.lifecycle.Trash(ctx, event); err != nil {
		return notFound(ErrEventNotFound, err)
	}
	s.emitter.Emit(ctx, eventbus.EventTrashed, org.ID, "event", event.ID, actorID(ctx))
	return nil
}

// Trashed lists the organization's trashed events
func (s *eventService) Trashed(ctx context.Context, org *domain.Organization) ([]*domain.Event, error) {
	events, err := s.eventRepo.ListTrashed(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("list trashed events: %w", err)
	}
	return events, nil
}

// Restore re-activates a trashed event
func (s *eventService) Restore(ctx context.Context, org *domain.Organization, id int64) (*domain.Event, error) {
	event, err := s.find(ctx, org, id, repository.WithTrashed)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.Restore(ctx, event); err != nil {
		return nil, notFound(ErrEventNotFound, err)
	}

	event.DeletedAt = nil
	s.emitter.Emit(ctx, eventbus.EventRestored, org.ID, "event", event.ID, actorID(ctx))
	return event, nil
}

// ForceDelete purges an event in either state, attendees included
func (s *eventService) ForceDelete(ctx context.Context, org *domain.Organization, id int64) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.force_delete",
		telemetry.OrganizationIDAttr(org.ID), telemetry.EventIDAttr(id))
	defer func() { telemetry.EndSpan(span, err) }()

	event, err := s.find(ctx, org, id, repository.WithTrashed)
	if err != nil {
		return err
	}
	if err := s.lifecycle.Purge(ctx, event); err != nil {
		return notFound(ErrEventNotFound, err)
	}
	s.emitter.Emit(ctx, eventbus.EventPurged, org.ID, "event", event.ID, actorID(ctx))
	return nil
}

// find loads an event and checks that org owns it
func (s *eventService) find(ctx context.Context, org *domain.Organization, id int64, lookup repository.Lookup) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id, lookup)
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
