package service

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidCredentials is returned for an unknown email and for a wrong
	// password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotVerified = errors.New("account not verified")
	// ErrInvalidToken covers malformed, expired, wrong-purpose, superseded and
	// unknown tokens as well as tokens whose account no longer exists.
	ErrInvalidToken = errors.New("invalid or expired token")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed or conflicting input, field by field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// DeliveryError means the account change was committed but the notification
// about it could not be sent.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return "notification delivery failed: " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
