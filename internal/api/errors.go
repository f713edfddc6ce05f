package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/scry-drill/internal/domain"
	"github.com/phrazzld/scry-drill/internal/domain/srs"
	"github.com/phrazzld/scry-drill/internal/service/review"
	"github.com/phrazzld/scry-drill/internal/store"
)

// MapErrorToStatusCode maps service errors to HTTP status codes.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, review.ErrSessionExpired):
		return http.StatusGone
	case errors.Is(err, review.ErrInvalidTransition),
		errors.Is(err, review.ErrSessionCompleted):
		return http.StatusConflict
	case errors.Is(err, review.ErrNoItemsDue):
		return http.StatusNoContent
	case errors.Is(err, srs.ErrSchedulingUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRating):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, review.ErrSessionExpired):
		return "Review session expired, start a new one"
	case errors.Is(err, review.ErrSessionCompleted):
		return "Review session is already complete"
	case errors.Is(err, review.ErrInvalidTransition):
		return "Action not allowed in the current review state"
	case errors.Is(err, srs.ErrSchedulingUnavailable):
		return "Scheduling is temporarily unavailable, try again"
	case errors.Is(err, store.ErrUserNotFound):
		return "Learner not found"
	case errors.Is(err, store.ErrItemNotFound):
		return "Item not found"
	case errors.Is(err, domain.ErrInvalidRating):
		return "Invalid rating"
	default:
		return "An unexpected error occurred"
	}
}
