// Package apperror holds the error kinds shared across services and mapped
// to transport status codes at the edges.
package apperror

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNotFound is returned when a requested record does not exist or is
	// not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller may not perform the action.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when the action clashes with existing state.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized is returned when credentials are missing or wrong.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError carries field level messages for malformed input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields under their JSON names so clients can map them back.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		if name == "" {
			return f.Name
		}

		return name
	})

	return v
}

// Validate checks v against its `validate` struct tags.
// Rule violations come back as a *ValidationError.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validating input: %w", err)
	}

	ve := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		ve.Fields[fe.Field()] = message(fe)
	}

	return ve
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "uuid":
		return "must be a valid UUID"
	case "datetime":
		return "must be a date formatted as " + fe.Param()
	case "hexcolor":
		return "must be a hex color"
	default:
		return "failed " + fe.Tag() + " rule"
	}
}
