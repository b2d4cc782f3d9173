package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prohmpiriya/event-management/internal/domain"
)

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func now() time.Time {
	return time.Now().UTC()
}

// MemoryOrganizationRepository implements OrganizationRepository on a MemoryStore
type MemoryOrganizationRepository struct {
	store *MemoryStore
}

func (r *MemoryOrganizationRepository) Create(ctx context.Context, org *domain.Organization, ownerID int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.organizations {
		if o.Slug == org.Slug || o.Name == org.Name {
			return ErrDuplicateSlug
		}
	}
	owner, ok := s.users[ownerID]
	if !ok {
		return fmt.Errorf("owner %d: %w", ownerID, ErrNotFound)
	}

	ts := now()
	org.ID = s.nextID("organizations")
	org.CreatedAt, org.UpdatedAt = ts, ts
	s.organizations[org.ID] = cloneOrganization(org)

	orgID := org.ID
	owner.OrganizationID = &orgID
	owner.UpdatedAt = ts
	return nil
}

func (r *MemoryOrganizationRepository) GetByID(ctx context.Context, id int64, lookup Lookup) (*domain.Organization, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if o, ok := r.store.organizations[id]; ok && matches(o.Lifecycle, lookup) {
		return cloneOrganization(o), nil
	}
	return nil, nil
}

func (r *MemoryOrganizationRepository) GetBySlug(ctx context.Context, slug string, lookup Lookup) (*domain.Organization, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, o := range r.store.organizations {
		if o.Slug == slug && matches(o.Lifecycle, lookup) {
			return cloneOrganization(o), nil
		}
	}
	return nil, nil
}

func (r *MemoryOrganizationRepository) List(ctx context.Context) ([]*domain.Organization, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	orgs := make([]*domain.Organization, 0, len(r.store.organizations))
	for _, o := range r.store.organizations {
		if !o.IsTrashed() {
			orgs = append(orgs, cloneOrganization(o))
		}
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].ID < orgs[j].ID })
	return orgs, nil
}

func (r *MemoryOrganizationRepository) Update(ctx context.Context, org *domain.Organization) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.organizations[org.ID]
	if !ok || stored.IsTrashed() {
		return ErrNotFound
	}
	for id, o := range s.organizations {
		if id != org.ID && (o.Slug == org.Slug || o.Name == org.Name) {
			return ErrDuplicateSlug
		}
	}

	org.UpdatedAt = now()
	stored.Name, stored.Slug, stored.UpdatedAt = org.Name, org.Slug, org.UpdatedAt
	return nil
}

func (r *MemoryOrganizationRepository) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for id, o := range r.store.organizations {
		if id != excludeID && o.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryOrganizationRepository) ExistsBySlug(ctx context.Context, slug string, excludeID int64) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for id, o := range r.store.organizations {
		if id != excludeID && o.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryOrganizationRepository) SoftDelete(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	o, ok := r.store.organizations[id]
	if !ok || o.IsTrashed() {
		return ErrNotFound
	}
	ts := now()
	o.DeletedAt, o.UpdatedAt = &ts, ts
	return nil
}

func (r *MemoryOrganizationRepository) Restore(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	o, ok := r.store.organizations[id]
	if !ok || !o.IsTrashed() {
		return ErrNotFound
	}
	o.DeletedAt, o.UpdatedAt = nil, now()
	return nil
}

func (r *MemoryOrganizationRepository) Purge(ctx context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.organizations[id]; !ok {
		return ErrNotFound
	}
	delete(s.organizations, id)

	for eventID, e := range s.events {
		if e.OrganizationID == id {
			s.purgeEventLocked(eventID)
		}
	}
	for _, u := range s.users {
		if u.OrganizationID != nil && *u.OrganizationID == id {
			u.OrganizationID = nil
		}
	}
	return nil
}

// MemoryUserRepository implements UserRepository on a MemoryStore
type MemoryUserRepository struct {
	store *MemoryStore
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	ts := now()
	user.ID = r.store.nextID("users")
	user.CreatedAt, user.UpdatedAt = ts, ts
	r.store.users[user.ID] = cloneUser(user)
	return nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if u, ok := r.store.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, nil
}

// MemoryEventRepository implements EventRepository on a MemoryStore
type MemoryEventRepository struct {
	store *MemoryStore
}

func (r *MemoryEventRepository) Create(ctx context.Context, event *domain.Event) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.organizations[event.OrganizationID]; !ok {
		return fmt.Errorf("organization %d: %w", event.OrganizationID, ErrNotFound)
	}

	ts := now()
	event.ID = s.nextID("events")
	event.CreatedAt, event.UpdatedAt = ts, ts
	s.events[event.ID] = cloneEvent(event)
	return nil
}

func (r *MemoryEventRepository) GetByID(ctx context.Context, id int64, lookup Lookup) (*domain.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if e, ok := r.store.events[id]; ok && matches(e.Lifecycle, lookup) {
		return cloneEvent(e), nil
	}
	return nil, nil
}

func (r *MemoryEventRepository) List(ctx context.Context, filter EventFilter) ([]*domain.Event, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	matched := make([]*domain.Event, 0)
	for _, e := range r.store.events {
		if e.OrganizationID != filter.OrganizationID || e.IsTrashed() {
			continue
		}
		if filter.Status != "" && string(e.Status) != filter.Status {
			continue
		}
		if filter.Upcoming && !e.IsUpcoming(filter.Now) {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	start := filter.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}

	page := make([]*domain.Event, 0, end-start)
	for _, e := range matched[start:end] {
		page = append(page, cloneEvent(e))
	}
	return page, total, nil
}

func (r *MemoryEventRepository) ListTrashed(ctx context.Context, organizationID int64) ([]*domain.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	events := make([]*domain.Event, 0)
	for _, e := range r.store.events {
		if e.OrganizationID == organizationID && e.IsTrashed() {
			events = append(events, cloneEvent(e))
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (r *MemoryEventRepository) Update(ctx context.Context, event *domain.Event) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.events[event.ID]
	if !ok || stored.IsTrashed() {
		return ErrNotFound
	}
	event.UpdatedAt = now()
	updated := cloneEvent(event)
	updated.OrganizationID = stored.OrganizationID
	updated.CreatedAt = stored.CreatedAt
	updated.DeletedAt = nil
	r.store.events[event.ID] = updated
	return nil
}

func (r *MemoryEventRepository) SoftDelete(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	e, ok := r.store.events[id]
	if !ok || e.IsTrashed() {
		return ErrNotFound
	}
	ts := now()
	e.DeletedAt, e.UpdatedAt = &ts, ts
	return nil
}

func (r *MemoryEventRepository) Restore(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	e, ok := r.store.events[id]
	if !ok || !e.IsTrashed() {
		return ErrNotFound
	}
	e.DeletedAt, e.UpdatedAt = nil, now()
	return nil
}

func (r *MemoryEventRepository) Purge(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.events[id]; !ok {
		return ErrNotFound
	}
	r.store.purgeEventLocked(id)
	return nil
}

// purgeEventLocked must be called with mu held
func (s *MemoryStore) purgeEventLocked(eventID int64) {
	delete(s.events, eventID)
	for id, a := range s.attendees {
		if a.EventID == eventID {
			delete(s.attendees, id)
		}
	}
}

// MemoryAttendeeRepository implements AttendeeRepository on a MemoryStore
type MemoryAttendeeRepository struct {
	store *MemoryStore
}

func (r *MemoryAttendeeRepository) Register(ctx context.Context, attendee *domain.Attendee) error {
	s := r.store
	unlock := s.eventLocks.Lock(attendee.EventID)
	defer unlock()

	if err := r.reserveSeat(attendee.EventID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	attendee.ID = s.nextID("attendees")
	attendee.RegisteredAt, attendee.CreatedAt, attendee.UpdatedAt = ts, ts, ts
	s.attendees[attendee.ID] = cloneAttendee(attendee)
	return nil
}

// reserveSeat must be called with the event lock held
func (r *MemoryAttendeeRepository) reserveSeat(eventID int64) error {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[eventID]
	if !ok || e.IsTrashed() {
		return ErrNotFound
	}
	if s.countActiveLocked(eventID) >= e.MaxAttendees {
		return ErrCapacityExceeded
	}
	return nil
}

// countActiveLocked must be called with mu held
func (s *MemoryStore) countActiveLocked(eventID int64) int {
	count := 0
	for _, a := range s.attendees {
		if a.EventID == eventID && !a.IsTrashed() {
			count++
		}
	}
	return count
}

func (r *MemoryAttendeeRepository) GetByID(ctx context.Context, id int64, lookup Lookup) (*domain.Attendee, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if a, ok := r.store.attendees[id]; ok && matches(a.Lifecycle, lookup) {
		return cloneAttendee(a), nil
	}
	return nil, nil
}

func (r *MemoryAttendeeRepository) ListByEvent(ctx context.Context, eventID int64) ([]*domain.Attendee, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	attendees := make([]*domain.Attendee, 0)
	for _, a := range r.store.attendees {
		if a.EventID == eventID && !a.IsTrashed() {
			attendees = append(attendees, cloneAttendee(a))
		}
	}
	sort.Slice(attendees, func(i, j int) bool { return attendees[i].ID < attendees[j].ID })
	return attendees, nil
}

func (r *MemoryAttendeeRepository) CountActive(ctx context.Context, eventID int64) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.countActiveLocked(eventID), nil
}

func (r *MemoryAttendeeRepository) Update(ctx context.Context, attendee *domain.Attendee) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.attendees[attendee.ID]
	if !ok || stored.IsTrashed() {
		return ErrNotFound
	}
	attendee.UpdatedAt = now()
	stored.Name, stored.Email, stored.UpdatedAt = attendee.Name, attendee.Email, attendee.UpdatedAt
	stored.Phone = cloneAttendee(attendee).Phone
	return nil
}

func (r *MemoryAttendeeRepository) SoftDelete(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	a, ok := r.store.attendees[id]
	if !ok || a.IsTrashed() {
		return ErrNotFound
	}
	ts := now()
	a.DeletedAt, a.UpdatedAt = &ts, ts
	return nil
}

func (r *MemoryAttendeeRepository) Restore(ctx context.Context, id int64) error {
	s := r.store
	s.mu.RLock()
	a, ok := s.attendees[id]
	if !ok || !a.IsTrashed() {
		s.mu.RUnlock()
		return ErrNotFound
	}
	eventID := a.EventID
	s.mu.RUnlock()

	unlock := s.eventLocks.Lock(eventID)
	defer unlock()

	if err := r.reserveSeat(eventID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok = s.attendees[id]
	if !ok || !a.IsTrashed() {
		return ErrNotFound
	}
	a.DeletedAt, a.UpdatedAt = nil, now()
	return nil
}
