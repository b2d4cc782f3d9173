package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/prohmpiriya/event-management/internal/dto"
)

// ValidationError carries per-field messages and is rendered as 422
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError creates a ValidationError with a single message
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{Fields: map[string][]string{}}
	v.Add(field, message)
	return v
}

// Add appends a message for field
func (v *ValidationError) Add(field, message string) {
	if v.Fields == nil {
		v.Fields = map[string][]string{}
	}
	v.Fields[field] = append(v.Fields[field], message)
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(v.Fields[k], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// RegisterTagNameFunc makes validator report JSON field names
func RegisterTagNameFunc(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
}

// TranslateBindingError converts a request binding failure into a ValidationError.
// Errors it does not recognize are returned unchanged.
func TranslateBindingError(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := &ValidationError{Fields: map[string][]string{}}
		for _, fe := range verrs {
			out.Add(fe.Field(), fieldMessage(fe))
		}
		return out
	}

	var dateErr *dto.InvalidDateError
	if errors.As(err, &dateErr) {
		return NewValidationError("date", "The date field must be a valid date.")
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return NewValidationError(typeErr.Field, fmt.Sprintf("The %s field is invalid.", humanize(typeErr.Field)))
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return NewValidationError("body", "The request body must be valid JSON.")
	}

	return err
}

func fieldMessage(fe validator.FieldError) string {
	name := humanize(fe.Field())
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "min":
		if isString {
			if fe.Param() == "1" {
				return fmt.Sprintf("The %s field is required.", name)
			}
			return fmt.Sprintf("The %s field must be at least %s characters.", name, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s.", name, fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("The %s field must not be greater than %s characters.", name, fe.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s.", name, fe.Param())
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", name)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", name)
	}
	return fmt.Sprintf("The %s field is invalid.", name)
}

// humanize turns max_attendees into "max attendees"
func humanize(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}
