package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationError reports client input the service refuses to act on.
// Cause holds the validator.ValidationErrors when struct tags rejected the input.
type ValidationError struct {
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// validateStruct runs the struct tags of v
func validateStruct(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return &ValidationError{Message: "validation failed", Cause: fieldErrs}
		}
		return fmt.Errorf("failed to validate input: %w", err)
	}
	return nil
}

// IsValidation reports whether err is a client input error
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
