package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	// ProcessedBy names the registrar holding a request when the error is an
	// ownership conflict. The portal renders it as "Processed by: {name}".
	ProcessedBy string `json:"processedBy,omitempty"`
	Err         error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// ErrOwnershipConflict signals that another registrar already claimed the
	// request. Terminal per attempt: the client closes the detail view and
	// does not retry.
	ErrOwnershipConflict = New("OWNERSHIP_CONFLICT", http.StatusConflict, "request is being processed by another registrar")
	// ErrInvalidTransition signals an attempt to advance a request out of a
	// terminal status or to skip a workflow stage.
	ErrInvalidTransition = New("INVALID_TRANSITION", http.StatusConflict, "status transition not allowed")
	// ErrScheduleOutOfRange rejects release dates outside the allowed window.
	ErrScheduleOutOfRange = New("SCHEDULE_OUT_OF_RANGE", http.StatusBadRequest, "release date outside the allowed window")
	// ErrInvalidResponseFormat mirrors the legacy bridge contract for
	// payloads whose embedded JSON cannot be recovered.
	ErrInvalidResponseFormat = New("INVALID_RESPONSE_FORMAT", http.StatusBadRequest, "Invalid response format")
)

// OwnershipConflict builds an ownership error naming the current owner.
func OwnershipConflict(ownerName string) *Error {
	clone := *ErrOwnershipConflict
	clone.ProcessedBy = ownerName
	if ownerName != "" {
		clone.Message = fmt.Sprintf("request is being processed by %s", ownerName)
	}
	return &clone
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
