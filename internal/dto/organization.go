package dto

// CreateOrganizationRequest represents request to create an organization
type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

// UpdateOrganizationRequest represents request to rename an organization
type UpdateOrganizationRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}
