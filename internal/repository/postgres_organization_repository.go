package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/event-management/internal/domain"
	"github.com/prohmpiriya/event-management/pkg/database"
)

const organizationColumns = `id, name, slug, created_at, updated_at, deleted_at`

// PostgresOrganizationRepository implements OrganizationRepository using PostgreSQL
type PostgresOrganizationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresOrganizationRepository creates a new PostgresOrganizationRepository
func NewPostgresOrganizationRepository(pool *pgxpool.Pool) *PostgresOrganizationRepository {
	return &PostgresOrganizationRepository{pool: pool}
}

// Create inserts the organization and attaches the owner in the same transaction
func (r *PostgresOrganizationRepository) Create(ctx context.Context, org *domain.Organization, ownerID int64) error {
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO organizations (name, slug, created_at, updated_at)
			VALUES ($1, $2, $3, $3)
			RETURNING id, created_at, updated_at
		`
		now := time.Now().UTC()
		if err := tx.QueryRow(ctx, query, org.Name, org.Slug, now).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return err
		}

		result, err := tx.Exec(ctx,
			`UPDATE users SET organization_id = $1, updated_at = $2 WHERE id = $3`,
			org.ID, now, ownerID,
		)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("owner %d: %w", ownerID, ErrNotFound)
		}
		return nil
	})
	if database.IsUniqueViolation(err) {
		return ErrDuplicateSlug
	}
	return err
}

// GetByID retrieves an organization by ID
func (r *PostgresOrganizationRepository) GetByID(ctx context.Context, id int64, lookup Lookup) (*domain.Organization, error) {
	query := fmt.Sprintf(`SELECT %s FROM organizations WHERE id = $1 AND %s`, organizationColumns, lookup.clause("deleted_at"))
	return scanOrganization(r.pool.QueryRow(ctx, query, id))
}

// GetBySlug retrieves an organization by slug
func (r *PostgresOrganizationRepository) GetBySlug(ctx context.Context, slug string, lookup Lookup) (*domain.Organization, error) {
	query := fmt.Sprintf(`SELECT %s FROM organizations WHERE slug = $1 AND %s`, organizationColumns, lookup.clause("deleted_at"))
	return scanOrganization(r.pool.QueryRow(ctx, query, slug))
}

// List returns all active organizations
func (r *PostgresOrganizationRepository) List(ctx context.Context) ([]*domain.Organization, error) {
	query := fmt.Sprintf(`SELECT %s FROM organizations WHERE deleted_at IS NULL ORDER BY id`, organizationColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orgs := make([]*domain.Organization, 0)
	for rows.Next() {
		org := &domain.Organization{}
		if err := rows.Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt, &org.DeletedAt); err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// Update renames an active organization
func (r *PostgresOrganizationRepository) Update(ctx context.Context, org *domain.Organization) error {
	query := `
		UPDATE organizations
		SET name = $2, slug = $3, updated_at = $4
		WHERE id = $1 AND deleted_at IS NULL
	`
	org.UpdatedAt = time.Now().UTC()
	result, err := r.pool.Exec(ctx, query, org.ID, org.Name, org.Slug, org.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistsByName checks whether another organization already uses name
func (r *PostgresOrganizationRepository) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM organizations WHERE name = $1 AND id <> $2)`,
		name, excludeID,
	).Scan(&exists)
	return exists, err
}

// ExistsBySlug checks whether another organization already uses slug
func (r *PostgresOrganizationRepository) ExistsBySlug(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM organizations WHERE slug = $1 AND id <> $2)`,
		slug, excludeID,
	).Scan(&exists)
	return exists, err
}

// SoftDelete trashes an active organization
func (r *PostgresOrganizationRepository) SoftDelete(ctx context.Context, id int64) error {
	return execAffectingOne(ctx, r.pool,
		`UPDATE organizations SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
}

// Restore re-activates a trashed organization
func (r *PostgresOrganizationRepository) Restore(ctx context.Context, id int64) error {
	return execAffectingOne(ctx, r.pool,
		`UPDATE organizations SET deleted_at = NULL, updated_at = NOW() WHERE id = $1 AND deleted_at IS NOT NULL`, id)
}

// Purge hard deletes the organization; foreign keys cascade to events and
// attendees and null out users.organization_id
func (r *PostgresOrganizationRepository) Purge(ctx context.Context, id int64) error {
	return execAffectingOne(ctx, r.pool, `DELETE FROM organizations WHERE id = $1`, id)
}

func scanOrganization(row pgx.Row) (*domain.Organization, error) {
	org := &domain.Organization{}
	err := row.Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt, &org.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return org, nil
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func execAffectingOne(ctx context.Context, db execer, query string, args ...any) error {
	result, err := db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
