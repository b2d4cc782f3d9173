package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prohmpiriya/event-management/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type fixture struct {
	store     *MemoryStore
	orgs      OrganizationRepository
	users     UserRepository
	events    EventRepository
	attendees AttendeeRepository
}

func newFixture() *fixture {
	s := NewMemoryStore()
	return &fixture{
		store:     s,
		orgs:      s.Organizations(),
		users:     s.Users(),
		events:    s.Events(),
		attendees: s.Attendees(),
	}
}

func (f *fixture) seedOrg(t *testing.T, name, slug string) (*domain.Organization, *domain.User) {
	t.Helper()
	ctx := context.Background()

	owner := &domain.User{Name: name + " owner", Email: slug + "@example.com"}
	require.NoError(t, f.users.Create(ctx, owner))

	org := &domain.Organization{Name: name, Slug: slug}
	require.NoError(t, f.orgs.Create(ctx, org, owner.ID))
	return org, owner
}

func (f *fixture) seedEvent(t *testing.T, orgID int64, maxAttendees int) *domain.Event {
	t.Helper()
	e := &domain.Event{
		OrganizationID: orgID,
		Title:          "Conf",
		Venue:          "Hall A",
		Date:           time.Now().Add(24 * time.Hour),
		Price:          decimal.Zero,
		MaxAttendees:   maxAttendees,
		Status:         domain.EventStatusPublished,
	}
	require.NoError(t, f.events.Create(context.Background(), e))
	return e
}

func TestMemoryOrganizations_CreateAttachesOwner(t *testing.T) {
	f := newFixture()
	org, owner := f.seedOrg(t, "Acme", "acme")

	user, err := f.users.GetByID(context.Background(), owner.ID)
	require.NoError(t, err)
	require.NotNil(t, user.OrganizationID)
	assert.Equal(t, org.ID, *user.OrganizationID)
}

func TestMemoryOrganizations_DuplicateSlug(t *testing.T) {
	f := newFixture()
	_, owner := f.seedOrg(t, "Acme", "acme")

	err := f.orgs.Create(context.Background(), &domain.Organization{Name: "ACME", Slug: "acme"}, owner.ID)
	assert.ErrorIs(t, err, ErrDuplicateSlug)
}

func TestMemoryOrganizations_Lookups(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	org, _ := f.seedOrg(t, "Acme", "acme")

	got, err := f.orgs.GetBySlug(ctx, "acme", OnlyActive)
	require.NoError(t, err)
	require.NotNil(t, got)

	got, err = f.orgs.GetBySlug(ctx, "ACME", OnlyActive)
	require.NoError(t, err)
	assert.Nil(t, got, "slug match is case-sensitive")

	require.NoError(t, f.orgs.SoftDelete(ctx, org.ID))

	got, _ = f.orgs.GetBySlug(ctx, "acme", OnlyActive)
	assert.Nil(t, got)
	got, _ = f.orgs.GetBySlug(ctx, "acme", OnlyTrashed)
	assert.NotNil(t, got)
	got, _ = f.orgs.GetBySlug(ctx, "acme", WithTrashed)
	assert.NotNil(t, got)

	list, err := f.orgs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, f.orgs.SoftDelete(ctx, org.ID), ErrNotFound)
	require.NoError(t, f.orgs.Restore(ctx, org.ID))
	assert.ErrorIs(t, f.orgs.Restore(ctx, org.ID), ErrNotFound)
}

func TestMemoryOrganizations_PurgeCascades(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	org, owner := f.seedOrg(t, "Acme", "acme")
	other, _ := f.seedOrg(t, "Other", "other")

	e := f.seedEvent(t, org.ID, 5)
	kept := f.seedEvent(t, other.ID, 5)
	a := &domain.Attendee{EventID: e.ID, Name: "Ann", Email: "ann@example.com"}
	require.NoError(t, f.attendees.Register(ctx, a))

	require.NoError(t, f.orgs.Purge(ctx, org.ID))

	got, _ := f.orgs.GetByID(ctx, org.ID, WithTrashed)
	assert.Nil(t, got)
	ev, _ := f.events.GetByID(ctx, e.ID, WithTrashed)
	assert.Nil(t, ev)
	at, _ := f.attendees.GetByID(ctx, a.ID, WithTrashed)
	assert.Nil(t, at)
	ev, _ = f.events.GetByID(ctx, kept.ID, OnlyActive)
	assert.NotNil(t, ev)

	user, _ := f.users.GetByID(ctx, owner.ID)
	assert.Nil(t, user.OrganizationID)
}

func TestMemoryEvents_ListFiltersAndPagination(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	org, _ := f.seedOrg(t, "Acme", "acme")
	other, _ := f.seedOrg(t, "Other", "other")

	for i := 0; i < 12; i++ {
		f.seedEvent(t, org.ID, 10)
	}
	f.seedEvent(t, other.ID, 10)

	draft := f.seedEvent(t, org.ID, 10)
	draft.Status = domain.EventStatusDraft
	require.NoError(t, f.events.Update(ctx, draft))

	past := f.seedEvent(t, org.ID, 10)
	past.Date = time.Now().Add(-time.Hour)
	require.NoError(t, f.events.Update(ctx, past))

	page1, total, err := f.events.List(ctx, EventFilter{OrganizationID: org.ID, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(14), total)
	assert.Len(t, page1, 10)
	for i := 1; i < len(page1); i++ {
		assert.Less(t, page1[i-1].ID, page1[i].ID)
	}

	page2, _, err := f.events.List(ctx, EventFilter{OrganizationID: org.ID, Limit: 10, Offset: 10})
	require.NoError(t, err)
	assert.Len(t, page2, 4)

	_, total, _ = f.events.List(ctx, EventFilter{OrganizationID: org.ID, Status: "draft", Limit: 10})
	assert.Equal(t, int64(1), total)

	_, total, _ = f.events.List(ctx, EventFilter{OrganizationID: org.ID, Upcoming: true, Now: time.Now(), Limit: 10})
	assert.Equal(t, int64(12), total)

	_, total, _ = f.events.List(ctx, EventFilter{OrganizationID: org.ID, Upcoming: true, Status: "draft", Now: time.Now(), Limit: 10})
	assert.Equal(t, int64(0), total)
}

func TestMemoryEvents_TrashedIsTenantScoped(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	org, _ := f.seedOrg(t, "Acme", "acme")
	other, _ := f.seedOrg(t, "Other", "other")

	mine := f.seedEvent(t, org.ID, 1)
	theirs := f.seedEvent(t, other.ID, 1)
	require.NoError(t, f.events.SoftDelete(ctx, mine.ID))
	require.NoError(t, f.events.SoftDelete(ctx, theirs.ID))

	trashed, err := f.events.ListTrashed(ctx, org.ID)
	require.NoError(t, err)
	require.Len(t, trashed, 1)
	assert.Equal(t, mine.ID, trashed[0].ID)
}

func TestMemoryEvents_UpdateKeepsOwner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	org, _ := f.seedOrg(t, "Acme", "acme")
	e := f.seedEvent(t, org.ID, 1)

	e.OrganizationID = 999
	e.Title = "Renamed"
	require.NoError(t, f.events.Update(ctx, e))

	got, _ := f.events.GetByID(ctx, e.ID, OnlyActive)
	assert.Equal(t, org.ID, got.OrganizationID)
	assert.Equal(t, "Renamed", got.Title)
}

func TestMemoryAttendees_CapacityUnderConcurrency(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	org, _ := f.seedOrg(t, "Acme", "acme")

	const capacity = 5
	const attempts = 50
	e := f.seedEvent(t, org.ID, capacity)

	var ok, full atomic.Int32
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			err := f.attendees.Register(ctx, &domain.Attendee{EventID: e.ID, Name: "Guest", Email: "guest@example.com"})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrCapacityExceeded):
				full.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(capacity), ok.Load())
	assert.Equal(t, int32(attempts-capacity), full.Load())

	count, err := f.attendees.CountActive(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, capacity, count)
}

func TestMemoryAttendees_RestoreRechecksCapacity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	org, _ := f.seedOrg(t, "Acme", "acme")
	e := f.seedEvent(t, org.ID, 1)

	first := &domain.Attendee{EventID: e.ID, Name: "Ann", Email: "ann@example.com"}
	require.NoError(t, f.attendees.Register(ctx, first))
	require.NoError(t, f.attendees.SoftDelete(ctx, first.ID))

	second := &domain.Attendee{EventID: e.ID, Name: "Bob", Email: "bob@example.com"}
	require.NoError(t, f.attendees.Register(ctx, second))

	assert.ErrorIs(t, f.attendees.Restore(ctx, first.ID), ErrCapacityExceeded)

	require.NoError(t, f.attendees.SoftDelete(ctx, second.ID))
	require.NoError(t, f.attendees.Restore(ctx, first.ID))

	list, err := f.attendees.ListByEvent(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
}

func TestMemoryAttendees_RegisterOnTrashedEvent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	org, _ := f.seedOrg(t, "Acme", "acme")
	e := f.seedEvent(t, org.ID, 1)
	require.NoError(t, f.events.SoftDelete(ctx, e.ID))

	err := f.attendees.Register(ctx, &domain.Attendee{EventID: e.ID, Name: "Ann", Email: "ann@example.com"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	org, _ := f.seedOrg(t, "Acme", "acme")

	got, _ := f.orgs.GetByID(ctx, org.ID, OnlyActive)
	got.Name = "Mutated"

	again, _ := f.orgs.GetByID(ctx, org.ID, OnlyActive)
	assert.Equal(t, "Acme", again.Name)
}
