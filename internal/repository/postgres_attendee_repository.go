package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/event-management/internal/domain"
	"github.com/prohmpiriya/event-management/pkg/database"
)

const attendeeColumns = `id, event_id, name, email, phone, registered_at, created_at, updated_at, deleted_at`

// PostgresAttendeeRepository implements AttendeeRepository using PostgreSQL
type PostgresAttendeeRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAttendeeRepository creates a new PostgresAttendeeRepository
func NewPostgresAttendeeRepository(pool *pgxpool.Pool) *PostgresAttendeeRepository {
	return &PostgresAttendeeRepository{pool: pool}
}

// Register locks the event row, checks capacity and inserts the attendee.
// Concurrent registrations for the same event serialize on the row lock.
func (r *PostgresAttendeeRepository) Register(ctx context.Context, attendee *domain.Attendee) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := reserveSeat(ctx, tx, attendee.EventID); err != nil {
			return err
		}

		query := `
			INSERT INTO attendees (event_id, name, email, phone, registered_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5, $5)
			RETURNING id, registered_at, created_at, updated_at
		`
		return tx.QueryRow(ctx, query,
			attendee.EventID,
			attendee.Name,
			attendee.Email,
			attendee.Phone,
			time.Now().UTC(),
		).Scan(&attendee.ID, &attendee.RegisteredAt, &attendee.CreatedAt, &attendee.UpdatedAt)
	})
}

// reserveSeat takes the event row lock and fails when no seat is left
func reserveSeat(ctx context.Context, tx pgx.Tx, eventID int64) error {
	var maxAttendees int
	err := tx.QueryRow(ctx,
		`SELECT max_attendees FROM events WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`,
		eventID,
	).Scan(&maxAttendees)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock event %d: %w", eventID, err)
	}

	var count int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM attendees WHERE event_id = $1 AND deleted_at IS NULL`,
		eventID,
	).Scan(&count); err != nil {
		return fmt.Errorf("count attendees: %w", err)
	}

	if count >= maxAttendees {
		return ErrCapacityExceeded
	}
	return nil
}

// GetByID retrieves an attendee by ID
func (r *PostgresAttendeeRepository) GetByID(ctx context.Context, id int64, lookup Lookup) (*domain.Attendee, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendees WHERE id = $1 AND %s`, attendeeColumns, lookup.clause("deleted_at"))
	attendee, err := scanAttendee(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return attendee, err
}

// ListByEvent retrieves the active attendees of an event
func (r *PostgresAttendeeRepository) ListByEvent(ctx context.Context, eventID int64) ([]*domain.Attendee, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM attendees
		WHERE event_id = $1 AND deleted_at IS NULL
		ORDER BY id
	`, attendeeColumns)

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attendees := make([]*domain.Attendee, 0)
	for rows.Next() {
		attendee, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		attendees = append(attendees, attendee)
	}
	return attendees, rows.Err()
}

// CountActive counts the active attendees of an event
func (r *PostgresAttendeeRepository) CountActive(ctx context.Context, eventID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attendees WHERE event_id = $1 AND deleted_at IS NULL`,
		eventID,
	).Scan(&count)
	return count, err
}

// Update persists name, email and phone of an active attendee
func (r *PostgresAttendeeRepository) Update(ctx context.Context, attendee *domain.Attendee) error {
	query := `
		UPDATE attendees
		SET name = $2, email = $3, phone = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
	`
	attendee.UpdatedAt = time.Now().UTC()
	return execAffectingOne(ctx, r.pool, query,
		attendee.ID,
		attendee.Name,
		attendee.Email,
		attendee.Phone,
		attendee.UpdatedAt,
	)
}

// SoftDelete trashes an active attendee
func (r *PostgresAttendeeRepository) SoftDelete(ctx context.Context, id int64) error {
	return execAffectingOne(ctx, r.pool,
		`UPDATE attendees SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
}

// Restore re-activates a trashed attendee if its event still has a free seat
func (r *PostgresAttendeeRepository) Restore(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var eventID int64
		err := tx.QueryRow(ctx,
			`SELECT event_id FROM attendees WHERE id = $1 AND deleted_at IS NOT NULL`,
			id,
		).Scan(&eventID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		if err := reserveSeat(ctx, tx, eventID); err != nil {
			return err
		}

		return execAffectingOne(ctx, tx,
			`UPDATE attendees SET deleted_at = NULL, updated_at = NOW() WHERE id = $1 AND deleted_at IS NOT NULL`, id)
	})
}

func scanAttendee(row pgx.Row) (*domain.Attendee, error) {
	attendee := &domain.Attendee{}
	err := row.Scan(
		&attendee.ID,
		&attendee.EventID,
		&attendee.Name,
		&attendee.Email,
		&attendee.Phone,
		&attendee.RegisteredAt,
		&attendee.CreatedAt,
		&attendee.UpdatedAt,
		&attendee.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return attendee, nil
}
