package tenancy

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/prohmpiriya/event-management/internal/domain"
	"github.com/prohmpiriya/event-management/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestGuard_Authorize(t *testing.T) {
	acme := &domain.Organization{ID: 1, Slug: "acme"}
	g := NewGuard(nil)

	tests := []struct {
		name       string
		principal  *Principal
		action     Action
		wantReason Reason
		wantErr    error
	}{
		{"public read anonymous", nil, ActionPublicRead, "", nil},
		{"public read foreign member", &Principal{UserID: 9, OrganizationID: int64Ptr(2)}, ActionPublicRead, "", nil},
		{"manage anonymous", nil, ActionManage, "", ErrUnauthenticated},
		{"manage unscoped", &Principal{UserID: 9}, ActionManage, ReasonPrincipalUnscoped, nil},
		{"manage foreign member", &Principal{UserID: 9, OrganizationID: int64Ptr(2)}, ActionManage, ReasonCrossTenantAccess, nil},
		{"manage member", &Principal{UserID: 9, OrganizationID: int64Ptr(1)}, ActionManage, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Authorize(context.Background(), tt.principal, acme, tt.action)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			if tt.wantReason == "" {
				assert.NoError(t, err)
				return
			}

			var d *Denial
			require.ErrorAs(t, err, &d)
			assert.Equal(t, tt.wantReason, d.Reason)
			assert.Equal(t, http.StatusForbidden, d.Status())
		})
	}
}

func TestDenial_Messages(t *testing.T) {
	assert.Equal(t, "User not associated with any organization", (&Denial{Reason: ReasonPrincipalUnscoped}).Message())
	assert.Equal(t, "Unauthorized", (&Denial{Reason: ReasonCrossTenantAccess}).Message())
	assert.Equal(t, http.StatusNotFound, (&Denial{Reason: ReasonResourceNotInTenant}).Status())
	assert.Contains(t, (&Denial{Reason: ReasonResourceNotInTenant, Resource: "event"}).Error(), "event")
}

func TestGuard_Containment(t *testing.T) {
	g := NewGuard(nil)
	ctx := context.Background()
	acme := &domain.Organization{ID: 1}
	other := &domain.Organization{ID: 2}

	event := &domain.Event{ID: 10, OrganizationID: 2}
	assert.NoError(t, g.EventInOrganization(ctx, event, other))

	err := g.EventInOrganization(ctx, event, acme)
	var d *Denial
	require.ErrorAs(t, err, &d)
	assert.Equal(t, ReasonResourceNotInTenant, d.Reason)

	attendee := &domain.Attendee{ID: 5, EventID: 10}
	assert.NoError(t, g.AttendeeInEvent(ctx, attendee, event, other))
	assert.Error(t, g.AttendeeInEvent(ctx, attendee, event, acme))
	assert.Error(t, g.AttendeeInEvent(ctx, &domain.Attendee{ID: 6, EventID: 11}, event, other))
}

func TestResolver(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()

	owner := &domain.User{Name: "Owner", Email: "owner@example.com"}
	require.NoError(t, store.Users().Create(ctx, owner))
	org := &domain.Organization{Name: "Acme", Slug: "acme"}
	require.NoError(t, store.Organizations().Create(ctx, org, owner.ID))

	r := NewResolver(store.Organizations())

	got, err := r.Resolve(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, org.ID, got.ID)

	_, err = r.Resolve(ctx, "Acme")
	assert.ErrorIs(t, err, ErrTenantNotFound)
	_, err = r.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrTenantNotFound)

	require.NoError(t, store.Organizations().SoftDelete(ctx, org.ID))

	_, err = r.Resolve(ctx, "acme")
	assert.ErrorIs(t, err, ErrTenantNotFound)

	got, err = r.ResolveTrashed(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, got.IsTrashed())
}

type failingFinder struct{}

func (failingFinder) GetBySlug(ctx context.Context, slug string, lookup repository.Lookup) (*domain.Organization, error) {
	return nil, errors.New("db down")
}

func TestResolver_PropagatesStoreErrors(t *testing.T) {
	_, err := NewResolver(failingFinder{}).Resolve(context.Background(), "acme")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTenantNotFound)
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, PrincipalFrom(ctx))
	assert.Nil(t, OrganizationFrom(ctx))

	p := PrincipalFromUser(&domain.User{ID: 3, OrganizationID: int64Ptr(1)})
	org := &domain.Organization{ID: 1}
	ctx = WithOrganization(WithPrincipal(ctx, p), org)

	assert.Same(t, p, PrincipalFrom(ctx))
	assert.Same(t, org, OrganizationFrom(ctx))
	assert.True(t, PrincipalFrom(ctx).BelongsTo(1))
	assert.False(t, (*Principal)(nil).IsScoped())
}
