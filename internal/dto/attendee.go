package dto

// RegisterAttendeeRequest represents request to register an attendee
type RegisterAttendeeRequest struct {
	Name  string  `json:"name" binding:"required,max=255"`
	Email string  `json:"email" binding:"required,email,max=255"`
	Phone *string `json:"phone" binding:"omitempty,max=20"`
}

// UpdateAttendeeRequest represents a partial attendee update
type UpdateAttendeeRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=255"`
	Email *string `json:"email" binding:"omitempty,email,max=255"`
	Phone *string `json:"phone" binding:"omitempty,max=20"`
}
