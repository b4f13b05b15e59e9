package helpers

import (
	"errors"
	"net/http"

	"eventplatform/internal/domain"
)

// WriteDomainError maps a known domain error to its HTTP status and error code
// and writes the JSON error response. It returns false when the error is not a
// known domain error, in which case the caller should log it and respond 500.
func WriteDomainError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, ErrCodeNotFound, "event not found")
	case errors.Is(err, domain.ErrUserNotFound):
		WriteJSONError(w, http.StatusNotFound, ErrCodeNotFound, "user not found")
	case errors.Is(err, domain.ErrForbidden):
		WriteJSONError(w, http.StatusForbidden, ErrCodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteJSONError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrAlreadyEnrolled):
		WriteJSONError(w, http.StatusConflict, ErrCodeAlreadyEnrolled, "user already joined this event")
	case errors.Is(err, domain.ErrNotEnrolled):
		WriteJSONError(w, http.StatusConflict, ErrCodeNotEnrolled, "user has not joined this event")
	case errors.Is(err, domain.ErrCapacityExceeded):
		WriteJSONError(w, http.StatusConflict, ErrCodeEventFull, "event is full")
	case errors.Is(err, domain.ErrDuplicateEmail):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, "email already registered")
	case errors.Is(err, domain.ErrInvalidCapacity):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, "capacity must be a positive integer not below the current attendee count")
	case errors.Is(err, domain.ErrInvalidInput):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrTransient):
		WriteJSONError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "temporarily unable to complete the request, please retry")
	default:
		return false
	}
	return true
}
