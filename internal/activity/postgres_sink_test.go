package activity

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/event-management/internal/migrate"
	"github.com/prohmpiriya/event-management/pkg/config"
	"github.com/prohmpiriya/event-management/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPostgres(t *testing.T) *database.PostgresDB {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	cfg := config.DatabaseConfig{
		Host:     envOr("TEST_DB_HOST", "localhost"),
		Port:     5432,
		User:     envOr("TEST_DB_USER", "postgres"),
		Password: envOr("TEST_DB_PASSWORD", "postgres"),
		DBName:   envOr("TEST_DB_NAME", "event_management_test"),
		SSLMode:  "disable",
	}
	require.NoError(t, migrate.Run(cfg.URL(), migrate.Up))

	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host, pgCfg.Port = cfg.Host, cfg.Port
	pgCfg.User, pgCfg.Password, pgCfg.Database = cfg.User, cfg.Password, cfg.DBName

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := database.NewPostgres(ctx, pgCfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.Pool().Exec(context.Background(),
		`TRUNCATE activity_logs, attendees, events, users, organizations RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestPostgresSink_WritesEntriesForPurgedRecords_Integration(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	pool := db.Pool()

	var orgID, eventID int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO organizations (name, slug) VALUES ('Acme', 'acme') RETURNING id`).Scan(&orgID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO events (organization_id, title, venue, date, max_attendees)
		 VALUES ($1, 'Launch', 'Hall', NOW() + INTERVAL '1 day', 10) RETURNING id`, orgID).Scan(&eventID))

	entries := []*Entry{
		{ID: uuid.NewString(), OrganizationID: orgID, EventID: &eventID, Action: ActionDelete, StatusCode: 204, CreatedAt: time.Now()},
		{ID: uuid.NewString(), OrganizationID: orgID, EventID: &eventID, Action: ActionForceDelete, StatusCode: 204, CreatedAt: time.Now()},
		{ID: uuid.NewString(), OrganizationID: orgID, Action: ActionUpdate, StatusCode: 200, CreatedAt: time.Now()},
	}

	// Both records are gone by the time the worker flushes
	_, err := pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, eventID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, orgID)
	require.NoError(t, err)

	require.NoError(t, NewPostgresSink(pool).Write(ctx, entries))

	var count int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM activity_logs WHERE organization_id = $1`, orgID).Scan(&count))
	assert.Equal(t, 3, count)
}

func TestPostgresSink_KeepsGoodRowsWhenOneFails_Integration(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	pool := db.Pool()

	duplicate := uuid.NewString()
	first := &Entry{ID: duplicate, OrganizationID: 1, Action: ActionCreate, StatusCode: 201, CreatedAt: time.Now()}
	require.NoError(t, NewPostgresSink(pool).Write(ctx, []*Entry{first}))

	batch := []*Entry{
		{ID: uuid.NewString(), OrganizationID: 2, Action: ActionCreate, StatusCode: 201, CreatedAt: time.Now()},
		{ID: duplicate, OrganizationID: 2, Action: ActionCreate, StatusCode: 201, CreatedAt: time.Now()},
		{ID: uuid.NewString(), OrganizationID: 2, Action: ActionUpdate, StatusCode: 200, CreatedAt: time.Now()},
	}
	err := NewPostgresSink(pool).Write(ctx, batch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), duplicate)

	var count int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM activity_logs WHERE organization_id = 2`).Scan(&count))
	assert.Equal(t, 2, count)
}
