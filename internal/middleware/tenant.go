package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-management/internal/domain"
	"github.com/prohmpiriya/event-management/internal/repository"
	"github.com/prohmpiriya/event-management/internal/tenancy"
	"github.com/prohmpiriya/event-management/pkg/logger"
	pkgmiddleware "github.com/prohmpiriya/event-management/pkg/middleware"
	"github.com/prohmpiriya/event-management/pkg/response"
	"go.uber.org/zap"
)

// LoadPrincipal turns the bearer identity into a tenancy.Principal. A token
// naming a user that no longer exists is rejected outright.
func LoadPrincipal(users repository.UserRepository, log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Get()
	}

	return func(c *gin.Context) {
		userID, ok := pkgmiddleware.GetUserID(c)
		if !ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		user, err := users.GetByID(ctx, userID)
		if err != nil {
			log.ErrorContext(ctx, "failed to load principal", zap.Int64("user_id", userID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.InternalError(""))
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthenticated())
			return
		}

		ctx = context.WithValue(ctx, logger.UserIDKey, user.ID)
		c.Request = c.Request.WithContext(tenancy.WithPrincipal(ctx, tenancy.PrincipalFromUser(user)))
		c.Next()
	}
}

// TenantConfig configures ResolveTenant
type TenantConfig struct {
	// Param is the route parameter holding the slug
	Param string
	// Trashed also resolves trashed organizations
	Trashed bool
	// NotFound is the body written with 404
	NotFound interface{}
	Logger   *logger.Logger
}

// ResolveTenant loads the organization named in the URL and aborts with 404
// before any nested handler runs when there is none
func ResolveTenant(resolver *tenancy.Resolver, config TenantConfig) gin.HandlerFunc {
	if config.Param == "" {
		config.Param = "organization"
	}
	if config.NotFound == nil {
		config.NotFound = response.Error("Organization not found")
	}
	if config.Logger == nil {
		config.Logger = logger.Get()
	}

	resolve := resolver.Resolve
	if config.Trashed {
		resolve = resolver.ResolveTrashed
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		org, err := resolve(ctx, c.Param(config.Param))
		if err != nil {
			if errors.Is(err, tenancy.ErrTenantNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, config.NotFound)
				return
			}
			config.Logger.ErrorContext(ctx, "failed to resolve organization", zap.String("slug", c.Param(config.Param)), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.InternalError("Failed to resolve organization."))
			return
		}

		ctx = context.WithValue(ctx, logger.OrganizationKey, org.Slug)
		c.Request = c.Request.WithContext(tenancy.WithOrganization(ctx, org))
		c.Next()
	}
}

// Authorize applies the scope guard to the resolved organization
func Authorize(guard *tenancy.Guard, action tenancy.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		org := tenancy.OrganizationFrom(ctx)
		if org == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, response.Error("Organization not found"))
			return
		}

		if err := guard.Authorize(ctx, tenancy.PrincipalFrom(ctx), org, action); err != nil {
			AbortWithAuthError(c, err)
			return
		}
		c.Next()
	}
}

// AbortWithAuthError writes the response for an unauthenticated request or a guard denial
func AbortWithAuthError(c *gin.Context, err error) {
	var denial *tenancy.Denial
	switch {
	case errors.Is(err, tenancy.ErrUnauthenticated):
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthenticated())
	case errors.As(err, &denial):
		c.AbortWithStatusJSON(denial.Status(), response.Error(denial.Message()))
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.InternalError(""))
	}
}

// Organization returns the organization resolved for the request
func Organization(c *gin.Context) *domain.Organization {
	return tenancy.OrganizationFrom(c.Request.Context())
}

// Principal returns the authenticated principal, or nil
func Principal(c *gin.Context) *tenancy.Principal {
	return tenancy.PrincipalFrom(c.Request.Context())
}

