package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Review log validation errors
var (
	ErrLogItemIDEmpty    = errors.New("review log item ID cannot be empty")
	ErrLogReviewedAtZero = errors.New("review log timestamp cannot be zero")
)

// ReviewLogEntry records one review outcome. Entries are append-only.
type ReviewLogEntry struct {
	ID         uuid.UUID `json:"id"`
	ItemID     uuid.UUID `json:"item_id"`
	Rating     Rating    `json:"rating"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// NewReviewLogEntry creates a log entry for a review of itemID at reviewedAt.
func NewReviewLogEntry(itemID uuid.UUID, rating Rating, reviewedAt time.Time) (*ReviewLogEntry, error) {
	entry := &ReviewLogEntry{
		ID:         uuid.New(),
		ItemID:     itemID,
		Rating:     rating,
		ReviewedAt: reviewedAt.UTC(),
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

// Validate checks if the entry has valid data.
func (e *ReviewLogEntry) Validate() error {
	if e.ItemID == uuid.Nil {
		return ErrLogItemIDEmpty
	}
	if !e.Rating.Valid() {
		return ErrInvalidRating
	}
	if e.ReviewedAt.IsZero() {
		return ErrLogReviewedAtZero
	}
	return nil
}
