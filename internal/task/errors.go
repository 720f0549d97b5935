package task

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies errors returned by the task service
type Kind string

const (
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindValidation      Kind = "VALIDATION"
	KindNotFound        Kind = "NOT_FOUND"
	KindRateLimited     Kind = "RATE_LIMITED"
	KindInternal        Kind = "INTERNAL"
)

// Error is the typed error returned by every Service operation
type Error struct {
	Kind    Kind
	Message string
	// Field names the input field that failed validation
	Field string
	// Limit and RetryAfter are set for KindRateLimited
	Limit      int
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind, so errors.Is(err, ErrNotFound) works
// for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Field == "" && t.Err == nil
}

var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Message: "authentication required"}
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "task not found"}
	ErrValidation      = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrRateLimited     = &Error{Kind: KindRateLimited, Message: "rate limit exceeded"}
	ErrInternal        = &Error{Kind: KindInternal, Message: "internal error"}
)

func validationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func rateLimitedError(limit int, window, retryAfter time.Duration) *Error {
	per := window.String()
	if window == time.Minute {
		per = "minute"
	}
	return &Error{
		Kind:       KindRateLimited,
		Message:    fmt.Sprintf("task creation limit exceeded: you can create %d tasks per %s, try again soon", limit, per),
		Limit:      limit,
		RetryAfter: retryAfter,
	}
}

func internalError(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: "failed to " + op, Err: err}
}

// KindOf returns the Kind of err, or KindInternal for foreign errors
func KindOf(err error) Kind {
	var tErr *Error
	if errors.As(err, &tErr) {
		return tErr.Kind
	}
	return KindInternal
}
