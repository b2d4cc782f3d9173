package tenancy

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prohmpiriya/event-management/internal/domain"
	"github.com/prohmpiriya/event-management/pkg/logger"
	"github.com/prohmpiriya/event-management/pkg/telemetry"
	"go.uber.org/zap"
)

// Reason classifies why the guard refused a request
type Reason string

const (
	ReasonPrincipalUnscoped   Reason = "PrincipalUnscoped"
	ReasonCrossTenantAccess   Reason = "CrossTenantAccess"
	ReasonResourceNotInTenant Reason = "ResourceNotInTenant"
)

// Denial is returned by the guard when a request may not proceed
type Denial struct {
	Reason   Reason
	Resource string
}

func (d *Denial) Error() string {
	if d.Resource != "" {
		return fmt.Sprintf("access denied: %s (%s)", d.Reason, d.Resource)
	}
	return fmt.Sprintf("access denied: %s", d.Reason)
}

// Status is the HTTP status for the denial. Containment failures look like
// missing records; membership failures are forbidden.
func (d *Denial) Status() int {
	if d.Reason == ReasonResourceNotInTenant {
		return http.StatusNotFound
	}
	return http.StatusForbidden
}

// Message is the client-facing error for membership denials
func (d *Denial) Message() string {
	switch d.Reason {
	case ReasonPrincipalUnscoped:
		return "User not associated with any organization"
	case ReasonCrossTenantAccess:
		return "Unauthorized"
	default:
		return "Not found"
	}
}

// Action is what the request wants to do inside the tenant
type Action int

const (
	// ActionPublicRead covers organization listing, event listing and event show
	ActionPublicRead Action = iota
	// ActionManage covers everything that needs membership
	ActionManage
)

// Guard enforces tenant membership and parent-child containment
type Guard struct {
	log *logger.Logger
}

// NewGuard creates a new Guard
func NewGuard(log *logger.Logger) *Guard {
	if log == nil {
		log = logger.NewNop()
	}
	return &Guard{log: log.Named("guard")}
}

// Authorize applies the membership rules in order: public reads pass, an
// unscoped principal is refused, a member of another organization is refused.
func (g *Guard) Authorize(ctx context.Context, p *Principal, org *domain.Organization, action Action) error {
	if action == ActionPublicRead {
		return nil
	}
	if p == nil {
		return ErrUnauthenticated
	}
	if !p.IsScoped() {
		return g.deny(ctx, &Denial{Reason: ReasonPrincipalUnscoped}, zap.Int64("user_id", p.UserID))
	}
	if !p.BelongsTo(org.ID) {
		return g.deny(ctx, &Denial{Reason: ReasonCrossTenantAccess},
			zap.Int64("user_id", p.UserID),
			zap.Int64("organization_id", org.ID),
		)
	}
	return nil
}

// EventInOrganization checks that event is owned by org
func (g *Guard) EventInOrganization(ctx context.Context, event *domain.Event, org *domain.Organization) error {
	if event.OrganizationID != org.ID {
		return g.deny(ctx, &Denial{Reason: ReasonResourceNotInTenant, Resource: "event"},
			zap.Int64("event_id", event.ID),
			zap.Int64("organization_id", org.ID),
		)
	}
	return nil
}

// AttendeeInEvent checks that attendee belongs to event and event to org
func (g *Guard) AttendeeInEvent(ctx context.Context, attendee *domain.Attendee, event *domain.Event, org *domain.Organization) error {
	if attendee.EventID != event.ID || event.OrganizationID != org.ID {
		return g.deny(ctx, &Denial{Reason: ReasonResourceNotInTenant, Resource: "attendee"},
			zap.Int64("attendee_id", attendee.ID),
			zap.Int64("event_id", event.ID),
			zap.Int64("organization_id", org.ID),
		)
	}
	return nil
}

func (g *Guard) deny(ctx context.Context, d *Denial, fields ...zap.Field) error {
	telemetry.Metrics().AuthorizationDenials.Inc(ctx, telemetry.ReasonAttr(string(d.Reason)))
	g.log.WarnContext(ctx, "request denied", append(fields, zap.String("reason", string(d.Reason)))...)
	return d
}
