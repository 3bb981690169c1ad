package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an AppError into one of the stable machine-readable
// error codes exposed to clients.
type ErrorKind string

const (
	ErrValidation       ErrorKind = "VALIDATION_ERROR"
	ErrCapacityExceeded ErrorKind = "CAPACITY_EXCEEDED"
	ErrOwnershipDenied  ErrorKind = "OWNERSHIP_DENIED"
	ErrConflict         ErrorKind = "CONFLICT"
	ErrNotFound         ErrorKind = "NOT_FOUND"
	ErrBanned           ErrorKind = "ACCOUNT_BANNED"
	ErrUnauthorized     ErrorKind = "UNAUTHORIZED"
	ErrStorage          ErrorKind = "STORAGE_ERROR"
)

// AppError carries an error kind plus a human-readable message across the
// service boundary. Controllers map the kind to an HTTP status.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func NewValidationError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func NewCapacityError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrCapacityExceeded, Message: fmt.Sprintf(format, args...)}
}

// NewOwnershipError is used whether the ID is unknown or belongs to another
// owner; callers must not be able to tell the two apart.
func NewOwnershipError() *AppError {
	return &AppError{Kind: ErrOwnershipDenied, Message: "access denied"}
}

func NewConflictError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewBannedError() *AppError {
	return &AppError{Kind: ErrBanned, Message: "account is banned"}
}

func NewUnauthorizedError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func NewStorageError(message string, err error) *AppError {
	return &AppError{Kind: ErrStorage, Message: message, Err: err}
}

// KindOf extracts the error kind from any error in the chain, defaulting to
// ErrStorage for unclassified failures.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ErrStorage
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
