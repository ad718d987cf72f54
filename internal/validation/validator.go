// Package validation checks user input with go-playground/validator before any request is sent.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/desertthunder/bkx/internal/shared"
	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with friendly, JSON-named messages.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the custom tags used by the models package.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return &Validator{v: v}
}

// Validate checks s and returns an error wrapping [shared.ErrInvalidInput] listing each failing field.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// FieldError describes one invalid field.
type FieldError struct {
	Field   string
	Message string
}

// Error reports every invalid field of a request.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s %s", f.Field, f.Message)
	}
	return fmt.Sprintf("%v: %s", shared.ErrInvalidInput, strings.Join(parts, "; "))
}

func (e *Error) Unwrap() error { return shared.ErrInvalidInput }

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	out := &Error{Fields: make([]FieldError, 0, len(validationErrs))}
	for _, e := range validationErrs {
		out.Fields = append(out.Fields, FieldError{Field: e.Field(), Message: friendlyMessage(e)})
	}
	sort.Slice(out.Fields, func(i, j int) bool { return out.Fields[i].Field < out.Fields[j].Field })
	return out
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return "is required"
	case "oneof":
		return "must be one of: " + e.Param()
	case "numeric":
		return "must be numeric"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	default:
		return "is invalid"
	}
}
