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

const eventColumns = `id, organization_id, title, description, venue, date, price, max_attendees, status, created_at, updated_at, deleted_at`

// PostgresEventRepository implements EventRepository using PostgreSQL
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

// Create creates a new event
func (r *PostgresEventRepository) Create(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (organization_id, title, description, venue, date, price, max_attendees, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id, created_at, updated_at
	`
	return r.pool.QueryRow(ctx, query,
		event.OrganizationID,
		event.Title,
		event.Description,
		event.Venue,
		event.Date,
		event.Price,
		event.MaxAttendees,
		event.Status,
		time.Now().UTC(),
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
}

// GetByID retrieves an event by ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id int64, lookup Lookup) (*domain.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1 AND %s`, eventColumns, lookup.clause("deleted_at"))
	event, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return event, err
}

// List retrieves active events with pagination and filters
func (r *PostgresEventRepository) List(ctx context.Context, filter EventFilter) ([]*domain.Event, int64, error) {
	// Build WHERE clause
	whereClause := "WHERE organization_id = $1 AND deleted_at IS NULL"
	args := []interface{}{filter.OrganizationID}
	argIndex := 2

	if filter.Status != "" {
		whereClause += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, filter.Status)
		argIndex++
	}

	if filter.Upcoming {
		whereClause += fmt.Sprintf(" AND date >= $%d AND status = $%d", argIndex, argIndex+1)
		args = append(args, filter.Now, domain.EventStatusPublished)
		argIndex += 2
	}

	// Count total records
	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM events %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// Get paginated records
	query := fmt.Sprintf(`
		SELECT %s
		FROM events
		%s
		ORDER BY id
		LIMIT $%d OFFSET $%d
	`, eventColumns, whereClause, argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	events, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// ListTrashed retrieves trashed events owned by organizationID
func (r *PostgresEventRepository) ListTrashed(ctx context.Context, organizationID int64) ([]*domain.Event, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM events
		WHERE organization_id = $1 AND deleted_at IS NOT NULL
		ORDER BY id
	`, eventColumns)
	return r.query(ctx, query, organizationID)
}

// Update persists the mutable attributes of an active event
func (r *PostgresEventRepository) Update(ctx context.Context, event *domain.Event) error {
	query := `
		UPDATE events
		SET title = $2, description = $3, venue = $4, date = $5, price = $6,
		    max_attendees = $7, status = $8, updated_at = $9
		WHERE id = $1 AND deleted_at IS NULL
	`
	event.UpdatedAt = time.Now().UTC()
	return execAffectingOne(ctx, r.pool, query,
		event.ID,
		event.Title,
		event.Description,
		event.Venue,
		event.Date,
		event.Price,
		event.MaxAttendees,
		event.Status,
		event.UpdatedAt,
	)
}

// SoftDelete trashes an active event
func (r *PostgresEventRepository) SoftDelete(ctx context.Context, id int64) error {
	return execAffectingOne(ctx, r.pool,
		`UPDATE events SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
}

// Restore re-activates a trashed event
func (r *PostgresEventRepository) Restore(ctx context.Context, id int64) error {
	return execAffectingOne(ctx, r.pool,
		`UPDATE events SET deleted_at = NULL, updated_at = NOW() WHERE id = $1 AND deleted_at IS NOT NULL`, id)
}

// Purge hard deletes the event; attendees cascade
func (r *PostgresEventRepository) Purge(ctx context.Context, id int64) error {
	return execAffectingOne(ctx, r.pool, `DELETE FROM events WHERE id = $1`, id)
}

func (r *PostgresEventRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Event, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	event := &domain.Event{}
	err := row.Scan(
		&event.ID,
		&event.OrganizationID,
		&event.Title,
		&event.Description,
		&event.Venue,
		&event.Date,
		&event.Price,
		&event.MaxAttendees,
		&event.Status,
		&event.CreatedAt,
		&event.UpdatedAt,
		&event.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return event, nil
}
