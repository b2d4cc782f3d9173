package activity

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prohmpiriya/event-management/internal/tenancy"
)

// Context keys handlers use to annotate the recorded entry
const (
	ContextKeyOrganizationID = "activity_organization_id"
	ContextKeyEventID        = "activity_event_id"
	ContextKeySkip           = "activity_skip"
	requestIDHeader          = "X-Request-ID"
)

// SetOrganizationID records the organization for routes that create one
func SetOrganizationID(c *gin.Context, id int64) {
	c.Set(ContextKeyOrganizationID, id)
}

// SetEventID records the event touched by the request
func SetEventID(c *gin.Context, id int64) {
	c.Set(ContextKeyEventID, id)
}

// Skip marks the request to skip activity logging
func Skip(c *gin.Context) {
	c.Set(ContextKeySkip, true)
}

// Middleware records every successful mutating request
func Middleware(l *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		method := c.Request.Method
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return
		}
		if c.Writer.Status() >= http.StatusBadRequest || c.GetBool(ContextKeySkip) {
			return
		}

		orgID, ok := organizationID(c)
		if !ok {
			return
		}

		action := ActionFor(method, c.FullPath())
		entry := &Entry{
			ID:             uuid.NewString(),
			OrganizationID: orgID,
			Action:         action,
			Description:    fmt.Sprintf("%s %s", method, c.Request.URL.Path),
			RequestID:      c.GetHeader(requestIDHeader),
			StatusCode:     c.Writer.Status(),
			CreatedAt:      time.Now().UTC(),
		}
		if p := tenancy.PrincipalFrom(c.Request.Context()); p != nil {
			userID := p.UserID
			entry.UserID = &userID
		}
		// A purged event can no longer be referenced
		if action != ActionForceDelete {
			entry.EventID = eventID(c)
		}

		l.Log(entry)
	}
}

// ActionFor maps a method and route pattern to an action
func ActionFor(method, route string) Action {
	switch {
	case method == http.MethodPost && strings.HasSuffix(route, "/restore"):
		return ActionRestore
	case method == http.MethodDelete && strings.HasSuffix(route, "/force-delete"):
		return ActionForceDelete
	case method == http.MethodPost:
		return ActionCreate
	case method == http.MethodPut || method == http.MethodPatch:
		return ActionUpdate
	case method == http.MethodDelete:
		return ActionDelete
	}
	return Action(strings.ToLower(method))
}

func organizationID(c *gin.Context) (int64, bool) {
	if v, ok := c.Get(ContextKeyOrganizationID); ok {
		if id, ok := v.(int64); ok {
			return id, true
		}
	}
	if org := tenancy.OrganizationFrom(c.Request.Context()); org != nil {
		return org.ID, true
	}
	return 0, false
}

func eventID(c *gin.Context) *int64 {
	if v, ok := c.Get(ContextKeyEventID); ok {
		if id, ok := v.(int64); ok {
			return &id
		}
	}
	if raw := c.Param("event"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return &id
		}
	}
	return nil
}
