// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Ledger error taxonomy. Callers match with errors.Is.
var (
	// ErrStorageInit means the persisted database image could not be loaded or parsed.
	// It is fatal: no further ledger operation is safe.
	ErrStorageInit = errors.New("storage initialization failed")
	// ErrNotInitialized means a ledger operation ran before Initialize completed.
	ErrNotInitialized = errors.New("ledger not initialized")
	// ErrValidation marks malformed input to add or update.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown transaction id.
	ErrNotFound = errors.New("not found")
	// ErrPersistenceWrite means the in-memory mutation succeeded but the image could not be
	// written, so durable state now lags behind memory.
	ErrPersistenceWrite = errors.New("persistence write failed")

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

// IsFatal reports whether err leaves the ledger unusable.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStorageInit)
}
