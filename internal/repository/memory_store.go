package repository

import (
	"sync"

	"github.com/prohmpiriya/event-management/internal/domain"
)

// MemoryStore keeps every table in process memory. It backs the memory
// storage driver and the service and handler tests. Entities are copied on
// the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu            sync.RWMutex
	organizations map[int64]*domain.Organization
	users         map[int64]*domain.User
	events        map[int64]*domain.Event
	attendees     map[int64]*domain.Attendee
	seq           map[string]int64

	// eventLocks serializes count-and-insert per event
	eventLocks keyedMutex
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		organizations: make(map[int64]*domain.Organization),
		users:         make(map[int64]*domain.User),
		events:        make(map[int64]*domain.Event),
		attendees:     make(map[int64]*domain.Attendee),
		seq:           make(map[string]int64),
	}
}

// Organizations returns the OrganizationRepository view of the store
func (s *MemoryStore) Organizations() OrganizationRepository {
	return &MemoryOrganizationRepository{store: s}
}

// Users returns the UserRepository view of the store
func (s *MemoryStore) Users() UserRepository {
	return &MemoryUserRepository{store: s}
}

// Events returns the EventRepository view of the store
func (s *MemoryStore) Events() EventRepository {
	return &MemoryEventRepository{store: s}
}

// Attendees returns the AttendeeRepository view of the store
func (s *MemoryStore) Attendees() AttendeeRepository {
	return &MemoryAttendeeRepository{store: s}
}

// nextID must be called with mu held
func (s *MemoryStore) nextID(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func matches(l interface{ IsTrashed() bool }, lookup Lookup) bool {
	switch lookup {
	case OnlyTrashed:
		return l.IsTrashed()
	case WithTrashed:
		return true
	default:
		return !l.IsTrashed()
	}
}

// keyedMutex hands out one mutex per key
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// Lock locks the mutex for key and returns its unlock func
func (k *keyedMutex) Lock(key int64) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[int64]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func cloneOrganization(o *domain.Organization) *domain.Organization {
	c := *o
	c.DeletedAt = cloneTime(o.DeletedAt)
	return &c
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.OrganizationID != nil {
		id := *u.OrganizationID
		c.OrganizationID = &id
	}
	return &c
}

func cloneEvent(e *domain.Event) *domain.Event {
	c := *e
	c.DeletedAt = cloneTime(e.DeletedAt)
	if e.Description != nil {
		d := *e.Description
		c.Description = &d
	}
	return &c
}

func cloneAttendee(a *domain.Attendee) *domain.Attendee {
	c := *a
	c.DeletedAt = cloneTime(a.DeletedAt)
	if a.Phone != nil {
		p := *a.Phone
		c.Phone = &p
	}
	return &c
}
