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

// OrganizationHandler handles organization HTTP requests
type OrganizationHandler struct {
	orgService service.OrganizationService
	log        *logger.Logger
}

// NewOrganizationHandler creates a new OrganizationHandler
func NewOrganizationHandler(orgService service.OrganizationService, log *logger.Logger) *OrganizationHandler {
	if log == nil {
		log = logger.Get()
	}
	return &OrganizationHandler{orgService: orgService, log: log.Named("organization_handler")}
}

// List handles listing every active organization
// GET /api/organizations
func (h *OrganizationHandler) List(c *gin.Context) {
	orgs, err := h.orgService.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, failure{message: "Failed to list organizations."})
		return
	}
	c.JSON(http.StatusOK, orgs)
}

// Create handles organization creation; the caller becomes its member
// POST /api/organizations
func (h *OrganizationHandler) Create(c *gin.Context) {
	var req dto.CreateOrganizationRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err, failure{})
		return
	}

	org, err := h.orgService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err, failure{message: "Organization creation failed."})
		return
	}

	activity.SetOrganizationID(c, org.ID)
	c.JSON(http.StatusCreated, gin.H{"organization": org})
}

// Show handles retrieving an organization by slug
// GET /api/organizations/:organization
func (h *OrganizationHandler) Show(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"organization": middleware.Organization(c)})
}

// Update handles renaming an organization
// PUT /api/organizations/:organization
func (h *OrganizationHandler) Update(c *gin.Context) {
	var req dto.UpdateOrganizationRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err, failure{})
		return
	}

	org, err := h.orgService.Update(c.Request.Context(), middleware.Organization(c), &req)
	if err != nil {
		respondError(c, h.log, err, failure{message: "Organization update failed."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"organization": org})
}

// Delete handles soft deleting an organization
// DELETE /api/organizations/:organization
func (h *OrganizationHandler) Delete(c *gin.Context) {
	if err := h.orgService.Delete(c.Request.Context(), middleware.Organization(c)); err != nil {
		respondError(c, h.log, err, failure{message: "Organization deletion failed."})
		return
	}
	c.JSON(http.StatusOK, response.Message(msgOrganizationDeleted))
}

// Restore handles restoring a trashed organization
// POST /api/organizations/:organization/restore
func (h *OrganizationHandler) Restore(c *gin.Context) {
	org, err := h.orgService.Restore(c.Request.Context(), middleware.Organization(c))
	if err != nil {
		respondError(c, h.log, err, failure{message: "Organization restore failed."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"organization": org})
}

// ForceDelete handles purging an organization with its events and attendees
// DELETE /api/organizations/:organization/force-delete
func (h *OrganizationHandler) ForceDelete(c *gin.Context) {
	if err := h.orgService.Purge(c.Request.Context(), middleware.Organization(c)); err != nil {
		respondError(c, h.log, err, failure{message: "Organization force deletion failed."})
		return
	}

	// Nothing is left for an activity row to reference
	activity.Skip(c)
	c.Status(http.StatusNoContent)
}
