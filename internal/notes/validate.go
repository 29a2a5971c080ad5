// ABOUTME: Input validation for the notes service using validator/v10.
// ABOUTME: Reports per-field messages keyed by JSON field name.

package notes

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrValidation is wrapped by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError lists what is wrong with an input, field by field.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + e.Fields[k]
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

type inputValidator struct {
	v *validator.Validate
}

func newValidator() *inputValidator {
	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &inputValidator{v: v}
}

func (iv *inputValidator) validate(s any) error {
	err := iv.v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fields := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fields[e.Field()] = friendlyMessage(e)
	}
	return &ValidationError{Fields: fields}
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must not have more than %s items", e.Param())
		}
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "min", "gte":
		return "must be at least " + e.Param()
	case "lte":
		return "must be at most " + e.Param()
	case "http_url":
		return "must be an http or https URL"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}
