package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prohmpiriya/event-management/internal/domain"
	"github.com/shopspring/decimal"
)

// acceptedDateLayouts are tried in order when decoding an event date
var acceptedDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// InvalidDateError is returned when a date string matches none of the accepted layouts
type InvalidDateError struct {
	Value string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q", e.Value)
}

// Date accepts RFC 3339 as well as the plain "YYYY-MM-DD hh:mm:ss" form
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return &InvalidDateError{Value: string(data)}
	}

	for _, layout := range acceptedDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return &InvalidDateError{Value: raw}
}

// NullableString tells an absent field from an explicit null. Set is true
// whenever the key was present; Value is nil for null.
type NullableString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON implements json.Unmarshaler
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(data, []byte("null")) {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// CreateEventRequest represents request to create an event. The owning
// organization always comes from the URL, never from the body.
type CreateEventRequest struct {
	Title        string              `json:"title" binding:"required,max=255"`
	Description  *string             `json:"description"`
	Venue        string              `json:"venue" binding:"required,max=255"`
	Date         *Date               `json:"date" binding:"required"`
	Price        *decimal.Decimal    `json:"price"`
	MaxAttendees *int                `json:"max_attendees" binding:"required,min=1"`
	Status       *domain.EventStatus `json:"status" binding:"omitempty,oneof=draft published cancelled"`
}

// UpdateEventRequest represents a partial event update; nil fields are left
// unchanged, while an explicit "description": null clears it
type UpdateEventRequest struct {
	Title        *string             `json:"title" binding:"omitempty,min=1,max=255"`
	Description  NullableString      `json:"description"`
	Venue        *string             `json:"venue" binding:"omitempty,min=1,max=255"`
	Date         *Date               `json:"date"`
	Price        *decimal.Decimal    `json:"price"`
	MaxAttendees *int                `json:"max_attendees" binding:"omitempty,min=1"`
	Status       *domain.EventStatus `json:"status" binding:"omitempty,oneof=draft published cancelled"`
}

// ListEventsQuery represents query parameters for listing events
type ListEventsQuery struct {
	Page int `form:"page" binding:"omitempty,min=1"`
	// Upcoming is set by the presence of ?upcoming, whatever its value
	Upcoming bool   `form:"-"`
	Status   string `form:"status" binding:"omitempty,oneof=draft published cancelled"`
}

// SetDefaults sets default values for query parameters
func (q *ListEventsQuery) SetDefaults() {
	if q.Page == 0 {
		q.Page = 1
	}
}
