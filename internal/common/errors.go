// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Calendar errors.
	ErrInvalidRange = errors.New("end date before start date")

	// Encoder errors.
	ErrSchemaMismatch   = errors.New("claim missing field required by encoder schema")
	ErrEmptyTrainingSet = errors.New("training set is empty")

	// Model errors.
	ErrVersionMismatch  = errors.New("encoder/model version mismatch")
	ErrModelUnavailable = errors.New("no model published")
	ErrInferenceTimeout = errors.New("inference exceeded configured timeout")

	// Storage errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
