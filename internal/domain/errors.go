package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrPermissionDenied reports that microphone access was refused.
	ErrPermissionDenied = errors.New("microphone access denied")
	// ErrUnsupportedDevice reports that no speech capture capability is present.
	ErrUnsupportedDevice = errors.New("speech capture is not supported on this device")
)

// ServiceError is the uniform shape of every failed API call.
type ServiceError struct {
	HTTPStatus int    `json:"httpStatus"`
	Message    string `json:"message"`
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("service error: status %d", e.HTTPStatus)
	}
	return fmt.Sprintf("service error (%d): %s", e.HTTPStatus, e.Message)
}

// PaymentRequired reports whether the server refused for lack of credit.
func (e *ServiceError) PaymentRequired() bool {
	return e.HTTPStatus == http.StatusPaymentRequired
}

// IsPaymentRequired reports whether err wraps a 402 ServiceError.
func IsPaymentRequired(err error) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.PaymentRequired()
}

// ValidationError reports a missing or malformed form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
