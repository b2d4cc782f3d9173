package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/prohmpiriya/event-management/internal/domain"
	"github.com/prohmpiriya/event-management/internal/repository"
)

var (
	// ErrTenantNotFound is returned when no organization matches the slug
	ErrTenantNotFound = errors.New("organization not found")
	// ErrUnauthenticated is returned when a route needs a principal and has none
	ErrUnauthenticated = errors.New("unauthenticated")
)

// OrganizationFinder is the slice of OrganizationRepository the resolver needs
type OrganizationFinder interface {
	GetBySlug(ctx context.Context, slug string, lookup repository.Lookup) (*domain.Organization, error)
}

// Resolver maps the organization slug of a request to its record
type Resolver struct {
	orgs OrganizationFinder
}

// NewResolver creates a new Resolver
func NewResolver(orgs OrganizationFinder) *Resolver {
	return &Resolver{orgs: orgs}
}

// Resolve finds the active organization with exactly this slug
func (r *Resolver) Resolve(ctx context.Context, slug string) (*domain.Organization, error) {
	return r.resolve(ctx, slug, repository.OnlyActive)
}

// ResolveTrashed also sees trashed organizations. Only the organization
// restore and force-delete routes use it.
func (r *Resolver) ResolveTrashed(ctx context.Context, slug string) (*domain.Organization, error) {
	return r.resolve(ctx, slug, repository.WithTrashed)
}

func (r *Resolver) resolve(ctx context.Context, slug string, lookup repository.Lookup) (*domain.Organization, error) {
	if slug == "" {
		return nil, ErrTenantNotFound
	}
	org, err := r.orgs.GetBySlug(ctx, slug, lookup)
	if err != nil {
		return nil, fmt.Errorf("resolve organization %q: %w", slug, err)
	}
	if org == nil {
		return nil, ErrTenantNotFound
	}
	return org, nil
}
