package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-management/internal/dto"
	"github.com/prohmpiriya/event-management/internal/middleware"
	"github.com/prohmpiriya/event-management/internal/service"
	"github.com/prohmpiriya/event-management/pkg/logger"
	"github.com/prohmpiriya/event-management/pkg/response"
)

// AttendeeHandler handles attendee HTTP requests inside an event
type AttendeeHandler struct {
	attendeeService service.AttendeeService
	log             *logger.Logger
}

// NewAttendeeHandler creates a new AttendeeHandler
func NewAttendeeHandler(attendeeService service.AttendeeService, log *logger.Logger) *AttendeeHandler {
	if log == nil {
		log = logger.Get()
	}
	return &AttendeeHandler{attendeeService: attendeeService, log: log.Named("attendee_handler")}
}

// ids parses the event and attendee route parameters
func (h *AttendeeHandler) ids(c *gin.Context, withAttendee bool) (eventID, attendeeID int64, ok bool) {
	eventID, ok = pathID(c, "event")
	if !ok {
		respondError(c, h.log, service.ErrEventNotFound, failure{eventNotFound: msgEventNotInTenant})
		return 0, 0, false
	}
	if !withAttendee {
		return eventID, 0, true
	}
	attendeeID, ok = pathID(c, "attendee")
	if !ok {
		respondError(c, h.log, service.ErrAttendeeNotFound, failure{})
		return 0, 0, false
	}
	return eventID, attendeeID, true
}

// List handles listing an event's attendees
// GET /api/:organization/events/:event/attendees
func (h *AttendeeHandler) List(c *gin.Context) {
	eventID, _, ok := h.ids(c, false)
	if !ok {
		return
	}

	attendees, err := h.attendeeService.List(c.Request.Context(), middleware.Organization(c), eventID)
	if err != nil {
		respondError(c, h.log, err, failure{eventNotFound: msgEventNotInTenant, message: "Failed to list attendees."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendees": attendees})
}

// Register handles attendee registration under the event's capacity
// POST /api/:organization/events/:event/attendees
func (h *AttendeeHandler) Register(c *gin.Context) {
	eventID, _, ok := h.ids(c, false)
	if !ok {
		return
	}

	var req dto.RegisterAttendeeRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err, failure{})
		return
	}

	attendee, err := h.attendeeService.Register(c.Request.Context(), middleware.Organization(c), eventID, &req)
	if err != nil {
		respondError(c, h.log, err, failure{eventNotFound: msgEventNotInTenant, message: "Failed to register attendee."})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"attendee": attendee})
}

// Show handles retrieving one attendee
// GET /api/:organization/events/:event/attendees/:attendee
func (h *AttendeeHandler) Show(c *gin.Context) {
	eventID, attendeeID, ok := h.ids(c, true)
	if !ok {
		return
	}

	attendee, err := h.attendeeService.Get(c.Request.Context(), middleware.Organization(c), eventID, attendeeID)
	if err != nil {
		respondError(c, h.log, err, failure{eventNotFound: msgEventNotInTenant, message: "Failed to fetch attendee."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendee": attendee})
}

// Update handles a partial attendee update
// PUT|PATCH /api/:organization/events/:event/attendees/:attendee
func (h *AttendeeHandler) Update(c *gin.Context) {
	eventID, attendeeID, ok := h.ids(c, true)
	if !ok {
		return
	}

	var req dto.UpdateAttendeeRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err, failure{})
		return
	}

	attendee, err := h.attendeeService.Update(c.Request.Context(), middleware.Organization(c), eventID, attendeeID, &req)
	if err != nil {
		respondError(c, h.log, err, failure{eventNotFound: msgEventNotInTenant, message: "Failed to update attendee."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendee": attendee})
}

// Delete handles soft deleting an attendee
// DELETE /api/:organization/events/:event/attendees/:attendee
func (h *AttendeeHandler) Delete(c *gin.Context) {
	eventID, attendeeID, ok := h.ids(c, true)
	if !ok {
		return
	}

	if err := h.attendeeService.Delete(c.Request.Context(), middleware.Organization(c), eventID, attendeeID); err != nil {
		respondError(c, h.log, err, failure{eventNotFound: msgEventNotInTenant, message: "Failed to delete attendee."})
		return
	}
	c.JSON(http.StatusOK, response.Message(msgAttendeeDeleted))
}

// Restore handles restoring a trashed attendee if a seat is free
// POST /api/:organization/events/:event/attendees/:attendee/restore
func (h *AttendeeHandler) Restore(c *gin.Context) {
	eventID, attendeeID, ok := h.ids(c, true)
	if !ok {
		return
	}

	attendee, err := h.attendeeService.Restore(c.Request.Context(), middleware.Organization(c), eventID, attendeeID)
	if err != nil {
		respondError(c, h.log, err, failure{eventNotFound: msgEventNotInTenant, message: "Failed to restore attendee."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendee": attendee})
}
