package service

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/prohmpiriya/event-management/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	RegisterTagNameFunc(v)
	return v
}

func TestTranslateBindingError_FieldMessages(t *testing.T) {
	v := newValidator()
	zero := 0

	err := v.Struct(&dto.CreateEventRequest{
		Title:        strings.Repeat("x", 256),
		MaxAttendees: &zero,
	})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(TranslateBindingError(err), &verr))

	assert.Equal(t, []string{"The title field must not be greater than 255 characters."}, verr.Fields["title"])
	assert.Equal(t, []string{"The venue field is required."}, verr.Fields["venue"])
	assert.Equal(t, []string{"The date field is required."}, verr.Fields["date"])
	assert.Equal(t, []string{"The max attendees field must be at least 1."}, verr.Fields["max_attendees"])
}

func TestTranslateBindingError_EmailAndOneOf(t *testing.T) {
	v := newValidator()

	err := v.Struct(&dto.RegisterAttendeeRequest{Name: "Ann", Email: "not-an-email"})
	var verr *ValidationError
	require.True(t, errors.As(TranslateBindingError(err), &verr))
	assert.Equal(t, []string{"The email field must be a valid email address."}, verr.Fields["email"])

	err = v.Struct(&dto.ListEventsQuery{Status: "archived"})
	require.True(t, errors.As(TranslateBindingError(err), &verr))
	assert.Equal(t, []string{"The selected status is invalid."}, verr.Fields["status"])
}

func TestTranslateBindingError_EmptyStringOnPartialUpdate(t *testing.T) {
	v := newValidator()
	empty := ""

	err := v.Struct(&dto.UpdateAttendeeRequest{Name: &empty})
	var verr *ValidationError
	require.True(t, errors.As(TranslateBindingError(err), &verr))
	assert.Equal(t, []string{"The name field is required."}, verr.Fields["name"])
}

func TestTranslateBindingError_DecodeErrors(t *testing.T) {
	var req dto.CreateEventRequest

	err := json.Unmarshal([]byte(`{"date":"tomorrow"}`), &req)
	var verr *ValidationError
	require.True(t, errors.As(TranslateBindingError(err), &verr))
	assert.Contains(t, verr.Fields, "date")

	err = json.Unmarshal([]byte(`{"max_attendees":"many"}`), &req)
	require.True(t, errors.As(TranslateBindingError(err), &verr))
	assert.Equal(t, []string{"The max attendees field is invalid."}, verr.Fields["max_attendees"])

	plain := errors.New("boom")
	assert.Equal(t, plain, TranslateBindingError(plain))
	assert.NoError(t, TranslateBindingError(nil))
}

func TestValidationError_Error(t *testing.T) {
	v := NewValidationError("title", "The title field is required.")
	v.Add("date", "The date field is required.")
	assert.Equal(t, "validation failed: date: The date field is required.; title: The title field is required.", v.Error())
}
