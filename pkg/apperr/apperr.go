// Package apperr defines the domain error taxonomy shared by all services and
// its mapping to transport status codes. Services return *apperr.Error values;
// the echo error handler translates them into the API's response envelope.
package apperr

import (
	"errors"
	"net/http"
)

// Kind identifies a class of domain failure.
type Kind string

const (
	KindValidation         Kind = "VALIDATION_ERROR"
	KindWorkingHours       Kind = "WORKING_HOURS_VIOLATION"
	KindOverlap            Kind = "OVERLAP_CONFLICT"
	KindModificationWindow Kind = "MODIFICATION_WINDOW_VIOLATION"
	KindNotFound           Kind = "NOT_FOUND"
	KindTerminalState      Kind = "TERMINAL_STATE_VIOLATION"
	KindDuplicateTicket    Kind = "DUPLICATE_QUEUE"
	KindQueueFull          Kind = "QUEUE_FULL"
	KindForbidden          Kind = "FORBIDDEN"
	KindInternal           Kind = "INTERNAL_ERROR"
)

// Error is a domain error with a kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, never shown to clients
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a domain error.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a domain error around an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from err, or KindInternal for unrecognized errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a kind to its transport status class.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindWorkingHours, KindOverlap, KindModificationWindow, KindTerminalState:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateTicket, KindQueueFull:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
