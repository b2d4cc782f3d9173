package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-management/internal/activity"
	"github.com/prohmpiriya/event-management/internal/dto"
	"github.com/prohmpiriya/event-management/internal/middleware"
	"github.com/prohmpiriya/event-management/internal/service"
	"github.com/prohmpiriya/event-management/pkg/logger"
	"github.com/prohmpiriya/event-management/pkg/response"
)

// EventHandler handles event HTTP requests inside an organization
type EventHandler struct {
	eventService service.EventService
	log          *logger.Logger
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(eventService service.EventService, log *logger.Logger) *EventHandler {
	if log == nil {
		log = logger.Get()
	}
	return &EventHandler{eventService: eventService, log: log.Named("event_handler")}
}

// List handles listing events, optionally upcoming only or by status
// GET /api/:organization/events
func (h *EventHandler) List(c *gin.Context) {
	var query dto.ListEventsQuery
	if err := bindQuery(c, &query); err != nil {
		respondError(c, h.log, err, failure{})
		return
	}
	_, query.Upcoming = c.GetQuery("upcoming")

	events, total, err := h.eventService.List(c.Request.Context(), middleware.Organization(c), &query)
	if err != nil {
		respondError(c, h.log, err, failure{message: "Failed to list events."})
		return
	}

	c.JSON(http.StatusOK, response.Paginated(events, response.NewPaginationParams(query.Page), total))
}

// Show handles retrieving one event
// GET /api/:organization/events/:event
func (h *EventHandler) Show(c *gin.Context) {
	id, ok := pathID(c, "event")
	if !ok {
		respondError(c, h.log, service.ErrEventNotFound, failure{})
		return
	}

	event, err := h.eventService.Get(c.Request.Context(), middleware.Organization(c), id)
	if err != nil {
		respondError(c, h.log, err, failure{message: "Failed to fetch event."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

// Create handles event creation
// POST /api/:organization/events
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err, failure{})
		return
	}

	event, err := h.eventService.Create(c.Request.Context(), middleware.Organization(c), &req)
	if err != nil {
		respondError(c, h.log, err, failure{message: "Failed to create event."})
		return
	}

	activity.SetEventID(c, event.ID)
	c.JSON(http.StatusCreated, gin.H{"event": event})
}

// Update handles a partial event update
// PUT|PATCH /api/:organization/events/:event
func (h *EventHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "event")
	if !ok {
		respondError(c, h.log, service.ErrEventNotFound, failure{})
		return
	}

	var req dto.UpdateEventRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err, failure{})
		return
	}

	event, err := h.eventService.Update(c.Request.Context(), middleware.Organization(c), id, &req)
	if err != nil {
		respondError(c, h.log, err, failure{message: "Failed to update event."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

// Delete handles soft deleting an event
// DELETE /api/:organization/events/:event
func (h *EventHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "event")
	if !ok {
		respondError(c, h.log, service.ErrEventNotFound, failure{})
		return
	}

	if err := h.eventService.Delete(c.Request.Context(), middleware.Organization(c), id); err != nil {
		respondError(c, h.log, err, failure{message: "Failed to delete event."})
		return
	}
	c.Status(http.StatusNoContent)
}

// Trashed handles listing the organization's trashed events
// GET /api/:organization/events/trashed
func (h *EventHandler) Trashed(c *gin.Context) {
	events, err := h.eventService.Trashed(c.Request.Context(), middleware.Organization(c))
	if err != nil {
		respondError(c, h.log, err, failure{message: "Failed to list trashed events."})
		return
	}
	c.JSON(http.StatusOK, response.Data(events))
}

// Restore handles restoring a trashed event
// POST /api/:organization/events/:event/restore
func (h *EventHandler) Restore(c *gin.Context) {
	id, ok := pathID(c, "event")
	if !ok {
		respondError(c, h.log, service.ErrEventNotFound, failure{})
		return
	}

	event, err := h.eventService.Restore(c.Request.Context(), middleware.Organization(c), id)
	if err != nil {
		respondError(c, h.log, err, failure{message: "Failed to restore event."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

// ForceDelete handles purging an event and its attendees
// DELETE /api/:organization/events/:event/force-delete
func (h *EventHandler) ForceDelete(c *gin.Context) {
	id, ok := pathID(c, "event")
	if !ok {
		respondError(c, h.log, service.ErrEventNotFound, failure{})
		return
	}

	if err := h.eventService.ForceDelete(c.Request.Context(), middleware.Organization(c), id); err != nil {
		respondError(c, h.log, err, failure{message: "Failed to force delete event."})
		return
	}
	c.Status(http.StatusNoContent)
}
