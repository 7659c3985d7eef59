package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the harness
var (
	ErrNotFound      = new(ErrCodeNotFound, "resource not found")
	ErrValidation    = new(ErrCodeValidation, "validation error")
	ErrConfiguration = new(ErrCodeConfiguration, "configuration error")
	ErrHTTPClient    = new(ErrCodeHTTPClient, "http client error")
	ErrIntegration   = new(ErrCodeIntegration, "integration error")
	ErrSystem        = new(ErrCodeSystemError, "system error")
)

const (
	ErrCodeNotFound      = "not_found"
	ErrCodeValidation    = "validation_error"
	ErrCodeConfiguration = "configuration_error"
	ErrCodeHTTPClient    = "http_client_error"
	ErrCodeIntegration   = "integration_error"
	ErrCodeSystemError   = "system_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConfiguration checks if an error indicates a broken test definition
// or harness configuration. These fail fast and are never converted into
// action outcomes.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsHTTPClient checks if an error is an http client error
func IsHTTPClient(err error) bool {
	return errors.Is(err, ErrHTTPClient)
}

// IsIntegration checks if an error came from an external collaborator
// (checkout service, ledger) rather than the membership API.
func IsIntegration(err error) bool {
	return errors.Is(err, ErrIntegration)
}
