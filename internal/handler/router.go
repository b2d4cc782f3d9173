package handler

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prohmpiriya/event-management/internal/activity"
	"github.com/prohmpiriya/event-management/internal/middleware"
	"github.com/prohmpiriya/event-management/internal/repository"
	"github.com/prohmpiriya/event-management/internal/service"
	"github.com/prohmpiriya/event-management/internal/tenancy"
	"github.com/prohmpiriya/event-management/pkg/logger"
	pkgmiddleware "github.com/prohmpiriya/event-management/pkg/middleware"
	"github.com/prohmpiriya/event-management/pkg/response"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

var registerValidatorOnce sync.Once

// RouterConfig contains everything the HTTP surface is built from
type RouterConfig struct {
	// BasePath prefixes every API route, e.g. "/api"
	BasePath    string
	ServiceName string

	Organizations *OrganizationHandler
	Events        *EventHandler
	Attendees     *AttendeeHandler
	Health        *HealthHandler

	Resolver *tenancy.Resolver
	Guard    *tenancy.Guard
	Users    repository.UserRepository

	JWT *pkgmiddleware.JWTConfig
	// AttendeeRateLimit throttles the attendee routes per client
	AttendeeRateLimit pkgmiddleware.RateLimitConfig
	CORS              pkgmiddleware.CORSConfig
	// Activity records successful mutations; nil disables it
	Activity *activity.Logger
	Logger   *logger.Logger
	// Tracing adds otelgin spans
	Tracing bool
}

// NewRouter builds the gin engine with every route registered
func NewRouter(cfg RouterConfig) *gin.Engine {
	registerValidatorOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			service.RegisterTagNameFunc(v)
		}
	})

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	if cfg.JWT == nil {
		cfg.JWT = &pkgmiddleware.JWTConfig{}
	}

	r := gin.New()
	r.RedirectTrailingSlash = true
	r.RedirectFixedPath = false

	if cfg.Tracing {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.Recovery(log),
		pkgmiddleware.CORSWithConfig(cfg.CORS),
		pkgmiddleware.Authenticate(cfg.JWT),
		middleware.LoadPrincipal(cfg.Users, log),
	)

	if cfg.Health != nil {
		r.GET("/health", cfg.Health.Health)
		r.GET("/ready", cfg.Health.Ready)
	}

	api := r.Group(cfg.BasePath)
	if cfg.Activity != nil {
		api.Use(activity.Middleware(cfg.Activity))
	}

	requireAuth := pkgmiddleware.RequireAuth()
	manage := middleware.Authorize(cfg.Guard, tenancy.ActionManage)
	publicRead := middleware.Authorize(cfg.Guard, tenancy.ActionPublicRead)

	// Organization routes authenticate before looking the slug up
	orgBySlug := middleware.ResolveTenant(cfg.Resolver, middleware.TenantConfig{
		NotFound: response.Message(msgOrganizationNotFound),
		Logger:   log,
	})
	trashedOrgBySlug := middleware.ResolveTenant(cfg.Resolver, middleware.TenantConfig{
		Trashed:  true,
		NotFound: response.Message(msgOrganizationNotFound),
		Logger:   log,
	})

	orgs := api.Group("/organizations")
	{
		h := cfg.Organizations
		orgs.GET("", h.List)
		orgs.POST("", requireAuth, h.Create)
		orgs.GET("/:organization", requireAuth, orgBySlug, h.Show)
		orgs.PUT("/:organization", requireAuth, orgBySlug, manage, h.Update)
		orgs.PATCH("/:organization", requireAuth, orgBySlug, manage, h.Update)
		orgs.DELETE("/:organization", requireAuth, orgBySlug, manage, h.Delete)
		orgs.POST("/:organization/restore", requireAuth, trashedOrgBySlug, manage, h.Restore)
		orgs.DELETE("/:organization/force-delete", requireAuth, trashedOrgBySlug, manage, h.ForceDelete)
	}

	// Tenant routes resolve the organization first so an unknown slug is
	// always a 404
	tenant := api.Group("/:organization", middleware.ResolveTenant(cfg.Resolver, middleware.TenantConfig{Logger: log}))

	events := tenant.Group("/events")
	{
		h := cfg.Events
		events.GET("", publicRead, h.List)
		events.POST("", requireAuth, manage, h.Create)
		events.GET("/trashed", requireAuth, manage, h.Trashed)
		events.GET("/:event", publicRead, h.Show)
		events.PUT("/:event", requireAuth, manage, h.Update)
		events.PATCH("/:event", requireAuth, manage, h.Update)
		events.DELETE("/:event", requireAuth, manage, h.Delete)
		events.POST("/:event/restore", requireAuth, manage, h.Restore)
		events.DELETE("/:event/force-delete", requireAuth, manage, h.ForceDelete)
	}

	rateLimit := cfg.AttendeeRateLimit
	if rateLimit.Scope == "" {
		rateLimit.Scope = "attendees"
	}
	if rateLimit.Logger == nil {
		rateLimit.Logger = log
	}

	attendees := events.Group("/:event/attendees", requireAuth, manage, pkgmiddleware.RateLimiter(rateLimit))
	{
		h := cfg.Attendees
		attendees.GET("", h.List)
		attendees.POST("", h.Register)
		attendees.GET("/:attendee", h.Show)
		attendees.PUT("/:attendee", h.Update)
		attendees.PATCH("/:attendee", h.Update)
		attendees.DELETE("/:attendee", h.Delete)
		attendees.POST("/:attendee/restore", h.Restore)
	}

	return r
}
