package errors

import (
	stdErrors "errors"
	"fmt"
)

// APIAccessError is returned when a catalog or artwork API refuses the
// configured credentials.
type APIAccessError struct {
	Service    string
	Message    string
	StatusCode int
	APIMessage string // Error message from the API body if available
}

func (e *APIAccessError) Error() string {
	if e.APIMessage != "" {
		return fmt.Sprintf("%s: %s (HTTP %d): %s", e.Service, e.Message, e.StatusCode, e.APIMessage)
	}
	return fmt.Sprintf("%s: %s (HTTP %d)", e.Service, e.Message, e.StatusCode)
}

// NewAPIAccessError creates a new access error for service.
func NewAPIAccessError(service string, statusCode int, apiMessage string) *APIAccessError {
	var message string
	switch statusCode {
	case 401:
		message = "invalid or missing API key"
	case 403:
		message = "access forbidden, check the API key"
	default:
		message = "API access error"
	}

	return &APIAccessError{
		Service:    service,
		Message:    message,
		StatusCode: statusCode,
		APIMessage: apiMessage,
	}
}

// IsAPIAccessError checks if error is an APIAccessError
func IsAPIAccessError(err error) bool {
	var accessErr *APIAccessError
	return stdErrors.As(err, &accessErr)
}
