package tenancy

import (
	"context"

	"github.com/prohmpiriya/event-management/internal/domain"
)

type contextKey int

const (
	principalKey contextKey = iota
	organizationKey
)

// Principal is the authenticated actor of a request
type Principal struct {
	UserID         int64
	OrganizationID *int64
}

// PrincipalFromUser builds a Principal from a loaded user
func PrincipalFromUser(u *domain.User) *Principal {
	p := &Principal{UserID: u.ID}
	if u.OrganizationID != nil {
		id := *u.OrganizationID
		p.OrganizationID = &id
	}
	return p
}

// IsScoped reports whether the principal belongs to an organization
func (p *Principal) IsScoped() bool {
	return p != nil && p.OrganizationID != nil
}

// BelongsTo reports whether the principal is a member of orgID
func (p *Principal) BelongsTo(orgID int64) bool {
	return p.IsScoped() && *p.OrganizationID == orgID
}

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the request principal, or nil for anonymous requests
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// WithOrganization returns a copy of ctx carrying the resolved organization
func WithOrganization(ctx context.Context, org *domain.Organization) context.Context {
	return context.WithValue(ctx, organizationKey, org)
}

// OrganizationFrom returns the resolved organization, or nil before resolution
func OrganizationFrom(ctx context.Context) *domain.Organization {
	org, _ := ctx.Value(organizationKey).(*domain.Organization)
	return org
}
