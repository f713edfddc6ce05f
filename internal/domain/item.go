package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scheduling bounds shared by every engine.
const (
	MinEaseFactor     = 1.3
	MaxEaseFactor     = 2.5
	DefaultEaseFactor = MaxEaseFactor

	// LearnedThresholdDays is the interval at which an item counts as learned.
	LearnedThresholdDays = 21
)

// Item-specific validation errors
var (
	// ErrItemIDEmpty is returned when an item ID is nil.
	ErrItemIDEmpty = errors.New("item ID cannot be empty")

	// ErrItemOwnerEmpty is returned when an item has no owner.
	ErrItemOwnerEmpty = errors.New("item owner ID cannot be empty")

	// ErrItemFrontEmpty is returned when the prompt side is blank.
	ErrItemFrontEmpty = errors.New("item front cannot be empty")

	// ErrItemBackEmpty is returned when the answer side is blank.
	ErrItemBackEmpty = errors.New("item back cannot be empty")

	// ErrInvalidRepetitions is returned when repetitions is negative.
	ErrInvalidRepetitions = errors.New("repetitions must be greater than or equal to 0")

	// ErrInvalidInterval is returned when the interval is negative.
	ErrInvalidInterval = errors.New("interval must be greater than or equal to 0")

	// ErrInvalidEaseFactor is returned when the ease factor leaves [1.3, 2.5].
	ErrInvalidEaseFactor = errors.New("ease factor must be between 1.3 and 2.5")

	// ErrDueAtUnset is returned when an item has no due time.
	ErrDueAtUnset = errors.New("item due time must be set")

	// ErrLearnedMismatch is returned when IsLearned disagrees with IntervalDays.
	ErrLearnedMismatch = errors.New("learned flag does not match interval")
)

// Item is a learnable flashcard together with its scheduling state.
// Front and Back are opaque to the review core.
type Item struct {
	ID             uuid.UUID `json:"id"`
	OwnerID        int64     `json:"owner_id"`
	Front          string    `json:"front"`
	Back           string    `json:"back"`
	Repetitions    int       `json:"repetitions"`
	EaseFactor     float64   `json:"ease_factor"`
	IntervalDays   int       `json:"interval_days"`
	DueAt          time.Time `json:"due_at"`
	IsLearned      bool      `json:"is_learned"`
	LastReviewedAt time.Time `json:"last_reviewed_at"` // zero until first review
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewItem creates a fresh item that is due immediately.
// Items are normally created by the card-creation flow; the review core only
// reads and reschedules them.
func NewItem(ownerID int64, front, back string, now time.Time) (*Item, error) {
	now = now.UTC()
	item := &Item{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Front:      front,
		Back:       back,
		EaseFactor: DefaultEaseFactor,
		DueAt:      now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks the item's identity and scheduling invariants.
func (i *Item) Validate() error {
	if i.ID == uuid.Nil {
		return ErrItemIDEmpty
	}
	if i.OwnerID == 0 {
		return ErrItemOwnerEmpty
	}
	if strings.TrimSpace(i.Front) == "" {
		return ErrItemFrontEmpty
	}
	if strings.TrimSpace(i.Back) == "" {
		return ErrItemBackEmpty
	}
	return i.ValidateSchedule()
}

// ValidateSchedule checks only the scheduling fields. Engines call it on
// their output.
func (i *Item) ValidateSchedule() error {
	if i.Repetitions < 0 {
		return ErrInvalidRepetitions
	}
	if i.IntervalDays < 0 {
		return ErrInvalidInterval
	}
	if i.EaseFactor < MinEaseFactor || i.EaseFactor > MaxEaseFactor {
		return ErrInvalidEaseFactor
	}
	if i.DueAt.IsZero() {
		return ErrDueAtUnset
	}
	if i.IsLearned != IsLearnedInterval(i.IntervalDays) {
		return ErrLearnedMismatch
	}
	return nil
}

// IsDue reports whether the item should be reviewed at now.
func (i *Item) IsDue(now time.Time) bool {
	return !i.DueAt.After(now)
}

// Clone returns a copy of the item.
func (i *Item) Clone() *Item {
	c := *i
	return &c
}

// IsLearnedInterval reports whether an interval is long enough to call the
// item learned.
func IsLearnedInterval(days int) bool {
	return days >= LearnedThresholdDays
}
