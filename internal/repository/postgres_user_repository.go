package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/event-management/internal/domain"
)

const userColumns = `id, name, email, organization_id, created_at, updated_at`

// PostgresUserRepository reads the principals behind bearer tokens. The
// organization_id column is cleared by the foreign key when an organization
// is purged.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create inserts user, which may already belong to an organization
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	query := fmt.Sprintf(`
		INSERT INTO users (name, email, organization_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING %s
	`, userColumns)

	created, err := scanUser(r.pool.QueryRow(ctx, query, user.Name, user.Email, user.OrganizationID, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	*user = *created
	return nil
}

// GetByID returns the user, or nil when there is none
func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.OrganizationID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u, nil
}
