// Package validation checks entities against their `validate` struct tags
// and turns failures into field errors a client can understand.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/deppfellow/magnetite/internal/errs"
	"github.com/go-playground/validator/v10"
)

// validate caches struct metadata, so one instance is shared.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates v. A failure wraps errs.ErrInvalid and keeps the
// validator.ValidationErrors in the chain for ToHTTPError.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrInvalid, err)
	}
	return nil
}

// ToHTTPError renders a validation failure as a 400 with one FieldError per
// failed field. It returns nil when err is not a validation failure.
func ToHTTPError(err error) *errs.HTTPError {
	if !errors.Is(err, errs.ErrInvalid) {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errs.NewBadRequestError("Validation failed", true, nil)
	}
	return errs.NewBadRequestError("Validation failed", true, FieldErrors(validationErrors))
}

// FieldErrors converts validator errors into user-friendly messages.
func FieldErrors(validationErrors validator.ValidationErrors) []errs.FieldError {
	fieldErrors := make([]errs.FieldError, 0, len(validationErrors))

	for _, err := range validationErrors {
		field := strings.ToLower(err.Field())
		var msg string

		switch err.Tag() {
		case "required":
			msg = "is required"
		case "min":
			if err.Type().Kind() == reflect.String {
				msg = fmt.Sprintf("must be at least %s characters", err.Param())
			} else {
				msg = fmt.Sprintf("must be at least %s", err.Param())
			}
		case "max":
			if err.Type().Kind() == reflect.String {
				msg = fmt.Sprintf("must not exceed %s characters", err.Param())
			} else {
				msg = fmt.Sprintf("must not exceed %s", err.Param())
			}
		case "startswith":
			msg = fmt.Sprintf("must start with %q", err.Param())
		case "oneof":
			msg = fmt.Sprintf("must be one of: %s", err.Param())
		case "email":
			msg = "must be a valid email address"
		case "uuid":
			msg = "must be a valid UUID"
		default:
			if err.Param() != "" {
				msg = fmt.Sprintf("%s: %s:%s", field, err.Tag(), err.Param())
			} else {
				msg = fmt.Sprintf("%s: %s", field, err.Tag())
			}
		}

		fieldErrors = append(fieldErrors, errs.FieldError{Field: field, Error: msg})
	}

	return fieldErrors
}
