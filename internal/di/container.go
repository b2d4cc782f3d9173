package di

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-management/internal/activity"
	"github.com/prohmpiriya/event-management/internal/domain"
	"github.com/prohmpiriya/event-management/internal/eventbus"
	"github.com/prohmpiriya/event-management/internal/handler"
	"github.com/prohmpiriya/event-management/internal/repository"
	"github.com/prohmpiriya/event-management/internal/service"
	"github.com/prohmpiriya/event-management/internal/tenancy"
	"github.com/prohmpiriya/event-management/pkg/database"
	"github.com/prohmpiriya/event-management/pkg/logger"
	pkgmiddleware "github.com/prohmpiriya/event-management/pkg/middleware"
	"github.com/prohmpiriya/event-management/pkg/redis"
	"go.uber.org/zap"
)

// Container holds all dependencies for the event management service
type Container struct {
	// Infrastructure
	DB       *database.PostgresDB
	Redis    *redis.Client
	Emitter  *eventbus.Emitter
	Activity *activity.Logger
	Logger   *logger.Logger

	// Repositories
	OrganizationRepo repository.OrganizationRepository
	UserRepo         repository.UserRepository
	EventRepo        repository.EventRepository
	AttendeeRepo     repository.AttendeeRepository

	// Tenancy
	Resolver *tenancy.Resolver
	Guard    *tenancy.Guard

	// Services
	OrganizationService service.OrganizationService
	EventService        service.EventService
	AttendeeService     service.AttendeeService

	// Handlers
	HealthHandler       *handler.HealthHandler
	OrganizationHandler *handler.OrganizationHandler
	EventHandler        *handler.EventHandler
	AttendeeHandler     *handler.AttendeeHandler
}

// ContainerConfig contains configuration for building the container.
// A nil DB selects the in-memory store.
type ContainerConfig struct {
	DB        *database.PostgresDB
	Redis     *redis.Client
	Publisher eventbus.Publisher
	Activity  *activity.Logger
	Logger    *logger.Logger
	// SeedUsers are created in the in-memory store so bearer tokens can be
	// issued without a users table; ignored with a DB
	SeedUsers []*domain.User
}

// RouterOptions are the HTTP settings not owned by the container
type RouterOptions struct {
	BasePath          string
	ServiceName       string
	JWT               *pkgmiddleware.JWTConfig
	AttendeeRateLimit pkgmiddleware.RateLimitConfig
	CORS              pkgmiddleware.CORSConfig
	// RedisRateLimit shares attendee buckets across instances through Redis
	RedisRateLimit bool
	Tracing        bool
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	c := &Container{
		DB:       cfg.DB,
		Redis:    cfg.Redis,
		Activity: cfg.Activity,
		Logger:   log,
		Emitter:  eventbus.NewEmitter(cfg.Publisher, log),
	}

	// Initialize repositories
	if cfg.DB != nil {
		pool := cfg.DB.Pool()
		c.OrganizationRepo = repository.NewPostgresOrganizationRepository(pool)
		c.UserRepo = repository.NewPostgresUserRepository(pool)
		c.EventRepo = repository.NewPostgresEventRepository(pool)
		c.AttendeeRepo = repository.NewPostgresAttendeeRepository(pool)
	} else {
		store := repository.NewMemoryStore()
		c.OrganizationRepo = store.Organizations()
		c.UserRepo = store.Users()
		c.EventRepo = store.Events()
		c.AttendeeRepo = store.Attendees()

		for _, u := range cfg.SeedUsers {
			// The memory store cannot fail a user insert
			_ = c.UserRepo.Create(context.Background(), u)
			log.Info("seeded in-memory user", zap.Int64("user_id", u.ID), zap.String("email", u.Email))
		}
	}

	c.Resolver = tenancy.NewResolver(c.OrganizationRepo)
	c.Guard = tenancy.NewGuard(log)

	// Initialize services
	c.OrganizationService = service.NewOrganizationService(c.OrganizationRepo, c.Emitter)
	c.EventService = service.NewEventService(c.EventRepo, c.Guard, c.Emitter)
	c.AttendeeService = service.NewAttendeeService(c.AttendeeRepo, c.EventRepo, c.Guard, c.Emitter)

	// Initialize handlers
	checks := map[string]handler.Checker{}
	if c.DB != nil {
		checks["postgres"] = c.DB.HealthCheck
	}
	if c.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return c.Redis.HealthCheck(ctx) }
	}
	c.HealthHandler = handler.NewHealthHandler(checks)
	c.OrganizationHandler = handler.NewOrganizationHandler(c.OrganizationService, log)
	c.EventHandler = handler.NewEventHandler(c.EventService, log)
	c.AttendeeHandler = handler.NewAttendeeHandler(c.AttendeeService, log)

	return c
}

// Router builds the HTTP engine from the container's handlers
func (c *Container) Router(opts RouterOptions) *gin.Engine {
	rateLimit := opts.AttendeeRateLimit
	if opts.RedisRateLimit && c.Redis != nil && rateLimit.RedisClient == nil {
		rateLimit.RedisClient = c.Redis
	}

	return handler.NewRouter(handler.RouterConfig{
		BasePath:          opts.BasePath,
		ServiceName:       opts.ServiceName,
		Organizations:     c.OrganizationHandler,
		Events:            c.EventHandler,
		Attendees:         c.AttendeeHandler,
		Health:            c.HealthHandler,
		Resolver:          c.Resolver,
		Guard:             c.Guard,
		Users:             c.UserRepo,
		JWT:               opts.JWT,
		AttendeeRateLimit: rateLimit,
		CORS:              opts.CORS,
		Activity:          c.Activity,
		Logger:            c.Logger,
		Tracing:           opts.Tracing,
	})
}
