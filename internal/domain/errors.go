package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidRating is returned when a rating is outside Again..Easy.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrInvalidTimeOfDay is returned when a reminder time cannot be parsed.
	ErrInvalidTimeOfDay = errors.New("invalid time of day")

	// ErrInvalidReviewMode is returned when a review mode is not recognised.
	ErrInvalidReviewMode = errors.New("invalid review mode")
)
