package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic     = fmt.Errorf("worker panic")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrConflict        = fmt.Errorf("conflict")
	ErrNotFound        = fmt.Errorf("not found")
	ErrUnauthorized    = fmt.Errorf("unauthorized")
	ErrInternal        = fmt.Errorf("internal error")

	ErrNameInUse       = fmt.Errorf("%w: name already in use", ErrConflict)
	ErrUnknownSender   = fmt.Errorf("%w: sender is not a registered participant", ErrInvalidArgument)
	ErrInvalidLimit    = fmt.Errorf("%w: limit must be a positive integer", ErrInvalidArgument)
	ErrInvalidKind     = fmt.Errorf("%w: kind must be message or private_message", ErrInvalidArgument)
	ErrParticipantGone = fmt.Errorf("%w: participant", ErrNotFound)
	ErrMessageNotFound = fmt.Errorf("%w: message", ErrNotFound)
	ErrNotMessageOwner = fmt.Errorf("%w: requester is not the sender", ErrUnauthorized)
	ErrStatusImmutable = fmt.Errorf("%w: status messages cannot be modified", ErrUnauthorized)
)

// Internal wraps a persistence failure so that callers only see ErrInternal.
func Internal(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}

// MapToHTTPStatus translates a domain error into the status code returned by the gateway.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
