package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prohmpiriya/event-management/internal/middleware"
	"github.com/prohmpiriya/event-management/internal/service"
	"github.com/prohmpiriya/event-management/internal/tenancy"
	"github.com/prohmpiriya/event-management/pkg/logger"
	"github.com/prohmpiriya/event-management/pkg/response"
	"go.uber.org/zap"
)

const (
	msgEventNotFound        = "Event not found"
	msgEventNotInTenant     = "Event not found or does not belong to the organization"
	msgAttendeeNotFound     = "Attendee not found or does not belong to the event/organization"
	msgOrganizationNotFound = "Organization not found."
	msgEventFullyBooked     = "Event is fully booked."
	msgOrganizationDeleted  = "Organization deleted successfully."
	msgAttendeeDeleted      = "Attendee deleted successfully."
)

// bindJSON decodes and validates the body. An empty body is validated as a
// zero value so required fields are reported instead of a decode error.
func bindJSON(c *gin.Context, obj interface{}) error {
	err := c.ShouldBindJSON(obj)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(obj)
	}
	return asValidationError(err, "body", "The request body must be valid JSON.")
}

// bindQuery decodes and validates the query string
func bindQuery(c *gin.Context, obj interface{}) error {
	return asValidationError(c.ShouldBindQuery(obj), "query", "The query string is invalid.")
}

func asValidationError(err error, field, message string) error {
	if err == nil {
		return nil
	}
	err = service.TranslateBindingError(err)
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return service.NewValidationError(field, message)
}

// pathID parses a numeric route parameter. Anything else cannot name a record.
func pathID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// failure describes how a handler reports errors it does not recognize
type failure struct {
	// eventNotFound is the 404 body used for missing events
	eventNotFound string
	// message is the 500 body, e.g. "Failed to create event."
	message string
}

// respondError maps a service error to its status and body
func respondError(c *gin.Context, log *logger.Logger, err error, f failure) {
	var verr *service.ValidationError
	var denial *tenancy.Denial

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, response.ValidationFailed(verr.Fields))
	case errors.Is(err, tenancy.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, response.Unauthenticated())
	case errors.Is(err, service.ErrEventFullyBooked):
		c.JSON(http.StatusConflict, response.Error(msgEventFullyBooked))
	case errors.Is(err, service.ErrAttendeeNotFound):
		c.JSON(http.StatusNotFound, response.Error(msgAttendeeNotFound))
	case errors.Is(err, service.ErrEventNotFound):
		msg := f.eventNotFound
		if msg == "" {
			msg = msgEventNotFound
		}
		c.JSON(http.StatusNotFound, response.Error(msg))
	case errors.Is(err, service.ErrOrganizationNotFound):
		c.JSON(http.StatusNotFound, response.Message(msgOrganizationNotFound))
	case errors.As(err, &denial):
		middleware.AbortWithAuthError(c, denial)
	default:
		log.ErrorContext(c.Request.Context(), f.message,
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, response.InternalError(f.message))
	}
}
