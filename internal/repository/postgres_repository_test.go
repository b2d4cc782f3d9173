package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prohmpiriya/event-management/internal/domain"
	"github.com/prohmpiriya/event-management/internal/migrate"
	"github.com/prohmpiriya/event-management/pkg/config"
	"github.com/prohmpiriya/event-management/pkg/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
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
	pgCfg.MaxConns = 20

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

func TestPostgresRepositories_Integration(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	users := NewPostgresUserRepository(db.Pool())
	orgs := NewPostgresOrganizationRepository(db.Pool())
	events := NewPostgresEventRepository(db.Pool())
	attendees := NewPostgresAttendeeRepository(db.Pool())

	owner := &domain.User{Name: "Owner", Email: "owner@example.com"}
	require.NoError(t, users.Create(ctx, owner))

	org := &domain.Organization{Name: "Acme", Slug: "acme"}
	require.NoError(t, orgs.Create(ctx, org, owner.ID))

	reloaded, err := users.GetByID(ctx, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.OrganizationID)
	assert.Equal(t, org.ID, *reloaded.OrganizationID)

	err = orgs.Create(ctx, &domain.Organization{Name: "Acme", Slug: "acme"}, owner.ID)
	assert.ErrorIs(t, err, ErrDuplicateSlug)

	e := &domain.Event{
		OrganizationID: org.ID,
		Title:          "Launch",
		Venue:          "Hall A",
		Date:           time.Now().Add(48 * time.Hour).UTC(),
		Price:          decimal.RequireFromString("19.99"),
		MaxAttendees:   2,
		Status:         domain.EventStatusPublished,
	}
	require.NoError(t, events.Create(ctx, e))

	got, err := events.GetByID(ctx, e.ID, OnlyActive)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, e.Price.Equal(got.Price))

	a := &domain.Attendee{EventID: e.ID, Name: "Ann", Email: "ann@example.com"}
	require.NoError(t, attendees.Register(ctx, a))

	require.NoError(t, events.SoftDelete(ctx, e.ID))
	got, _ = events.GetByID(ctx, e.ID, OnlyActive)
	assert.Nil(t, got)

	trashed, err := events.ListTrashed(ctx, org.ID)
	require.NoError(t, err)
	require.Len(t, trashed, 1)

	require.NoError(t, events.Restore(ctx, e.ID))
	require.NoError(t, events.Purge(ctx, e.ID))

	at, err := attendees.GetByID(ctx, a.ID, WithTrashed)
	require.NoError(t, err)
	assert.Nil(t, at, "attendees are removed with their event")

	require.NoError(t, orgs.Purge(ctx, org.ID))
	reloaded, _ = users.GetByID(ctx, owner.ID)
	assert.Nil(t, reloaded.OrganizationID)
}

func TestPostgresAttendees_CapacityUnderConcurrency_Integration(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	users := NewPostgresUserRepository(db.Pool())
	orgs := NewPostgresOrganizationRepository(db.Pool())
	events := NewPostgresEventRepository(db.Pool())
	attendees := NewPostgresAttendeeRepository(db.Pool())

	owner := &domain.User{Name: "Owner", Email: "cap@example.com"}
	require.NoError(t, users.Create(ctx, owner))
	org := &domain.Organization{Name: "Capacity", Slug: "capacity"}
	require.NoError(t, orgs.Create(ctx, org, owner.ID))

	const capacity = 3
	const attempts = 30
	e := &domain.Event{
		OrganizationID: org.ID,
		Title:          "Small room",
		Venue:          "Room 1",
		Date:           time.Now().Add(time.Hour).UTC(),
		MaxAttendees:   capacity,
		Status:         domain.EventStatusPublished,
	}
	require.NoError(t, events.Create(ctx, e))

	var ok atomic.Int32
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		i := i
		g.Go(func() error {
			err := attendees.Register(ctx, &domain.Attendee{
				EventID: e.ID,
				Name:    "Guest",
				Email:   fmt.Sprintf("guest%d@example.com", i),
			})
			if err == nil {
				ok.Add(1)
				return nil
			}
			if errors.Is(err, ErrCapacityExceeded) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(capacity), ok.Load())
	count, err := attendees.CountActive(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, capacity, count)
}
