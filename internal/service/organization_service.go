package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prohmpiriya/event-management/internal/domain"
	"github.com/prohmpiriya/event-management/internal/dto"
	"github.com/prohmpiriya/event-management/internal/eventbus"
	"github.com/prohmpiriya/event-management/internal/lifecycle"
	"github.com/prohmpiriya/event-management/internal/repository"
	"github.com/prohmpiriya/event-management/internal/slug"
	"github.com/prohmpiriya/event-management/internal/tenancy"
	"github.com/prohmpiriya/event-management/pkg/telemetry"
)

const (
	msgNameTaken    = "The name has already been taken."
	msgNameSlug     = "The name field must contain at least one letter or number."
	msgNameReserved = "The name is reserved."
)

// organizationService implements the OrganizationService interface
type organizationService struct {
	orgRepo   repository.OrganizationRepository
	lifecycle *lifecycle.Manager
	emitter   *eventbus.Emitter
}

// NewOrganizationService creates a new OrganizationService
func NewOrganizationService(orgRepo repository.OrganizationRepository, emitter *eventbus.Emitter) OrganizationService {
	if emitter == nil {
		emitter = eventbus.NewEmitter(nil, nil)
	}
	return &organizationService{
		orgRepo:   orgRepo,
		lifecycle: lifecycle.NewManager("organization", orgRepo),
		emitter:   emitter,
	}
}

// List returns every active organization
func (s *organizationService) List(ctx context.Context) ([]*domain.Organization, error) {
	return s.orgRepo.List(ctx)
}

// Create creates an organization named req.Name with a slug derived from it
func (s *organizationService) Create(ctx context.Context, req *dto.CreateOrganizationRequest) (org *domain.Organization, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.organization.create")
	defer func() { telemetry.EndSpan(span, err) }()

	p := tenancy.PrincipalFrom(ctx)
	if p == nil {
		return nil, tenancy.ErrUnauthenticated
	}

	orgSlug, err := s.checkName(ctx, req.Name, 0)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	org = &domain.Organization{
		Name:      req.Name,
		Slug:      orgSlug,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orgRepo.Create(ctx, org, p.UserID); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			return nil, NewValidationError("name", msgNameTaken)
		}
		return nil, fmt.Errorf("create organization: %w", err)
	}

	s.emitter.Emit(ctx, eventbus.OrganizationCreated, org.ID, "organization", org.ID, p.UserID)
	return org, nil
}

// Update renames org and re-derives its slug
func (s *organizationService) Update(ctx context.Context, org *domain.Organization, req *dto.UpdateOrganizationRequest) (_ *domain.Organization, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.organization.update", telemetry.OrganizationIDAttr(org.ID))
	defer func() { telemetry.EndSpan(span, err) }()

	orgSlug, err := s.checkName(ctx, req.Name, org.ID)
	if err != nil {
		return nil, err
	}

	updated := *org
	updated.Name = req.Name
	updated.Slug = orgSlug
	updated.UpdatedAt = time.Now()

	if err := s.orgRepo.Update(ctx, &updated); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateSlug):
			return nil, NewValidationError("name", msgNameTaken)
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%w: %w", ErrOrganizationNotFound, err)
		}
		return nil, fmt.Errorf("update organization: %w", err)
	}

	s.emitter.Emit(ctx, eventbus.OrganizationUpdated, org.ID, "organization", org.ID, actorID(ctx))
	return &updated, nil
}

// Delete trashes org
func (s *organizationService) Delete(ctx context.Context, org *domain.Organization) error {
	if err := s.lifecycle.Trash(ctx, org); err != nil {
		return notFound(ErrOrganizationNotFound, err)
	}
	s.emitter.Emit(ctx, eventbus.OrganizationTrashed, org.ID, "organization", org.ID, actorID(ctx))
	return nil
}

// Restore re-activates a trashed org
func (s *organizationService) Restore(ctx context.Context, org *domain.Organization) (*domain.Organization, error) {
	if err := s.lifecycle.Restore(ctx, org); err != nil {
		return nil, notFound(ErrOrganizationNotFound, err)
	}

	restored, err := s.orgRepo.GetByID(ctx, org.ID, repository.OnlyActive)
	if err != nil {
		return nil, err
	}
	if restored == nil {
		return nil, ErrOrganizationNotFound
	}

	s.emitter.Emit(ctx, eventbus.OrganizationRestored, org.ID, "organization", org.ID, actorID(ctx))
	return restored, nil
}

// Purge hard deletes org with all of its events and attendees
func (s *organizationService) Purge(ctx context.Context, org *domain.Organization) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.organization.purge", telemetry.OrganizationIDAttr(org.ID))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := s.lifecycle.Purge(ctx, org); err != nil {
		return notFound(ErrOrganizationNotFound, err)
	}
	s.emitter.Emit(ctx, eventbus.OrganizationPurged, org.ID, "organization", org.ID, actorID(ctx))
	return nil
}

// reservedSlugs collide with static routes that share the tenant prefix
var reservedSlugs = map[string]bool{
	"organizations": true,
	"health":        true,
	"ready":         true,
}

// checkName derives the slug for name and verifies that neither is taken
func (s *organizationService) checkName(ctx context.Context, name string, excludeID int64) (string, error) {
	derived := slug.Make(name)
	if derived == "" {
		return "", NewValidationError("name", msgNameSlug)
	}
	if reservedSlugs[derived] {
		return "", NewValidationError("name", msgNameReserved)
	}

	taken, err := s.orgRepo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return "", fmt.Errorf("check organization name: %w", err)
	}
	if !taken {
		taken, err = s.orgRepo.ExistsBySlug(ctx, derived, excludeID)
		if err != nil {
			return "", fmt.Errorf("check organization slug: %w", err)
		}
	}
	if taken {
		return "", NewValidationError("name", msgNameTaken)
	}
	return derived, nil
}
