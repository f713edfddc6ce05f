package domain

import (
	"fmt"
	"strings"
)

// Rating is the learner's recall quality for one review. The integer weights
// are persisted verbatim in the review log and must not be renumbered.
type Rating int

// Rating values, ordered from worst to best recall.
const (
	RatingAgain Rating = 1
	RatingHard  Rating = 2
	RatingGood  Rating = 3
	RatingEasy  Rating = 4
)

// Ratings lists every valid rating in ascending order.
var Ratings = []Rating{RatingAgain, RatingHard, RatingGood, RatingEasy}

// Valid reports whether r is one of the four defined ratings.
func (r Rating) Valid() bool {
	return r >= RatingAgain && r <= RatingEasy
}

// Recalled reports whether the rating counts as "knew it" for two-valued
// scheduling and session tallies.
func (r Rating) Recalled() bool {
	return r >= RatingGood
}

// String returns the lowercase name of the rating.
func (r Rating) String() string {
	switch r {
	case RatingAgain:
		return "again"
	case RatingHard:
		return "hard"
	case RatingGood:
		return "good"
	case RatingEasy:
		return "easy"
	default:
		return fmt.Sprintf("rating(%d)", int(r))
	}
}

// ParseRating converts a rating name ("again", "hard", "good", "easy") into a Rating.
func ParseRating(s string) (Rating, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "again":
		return RatingAgain, nil
	case "hard":
		return RatingHard, nil
	case "good":
		return RatingGood, nil
	case "easy":
		return RatingEasy, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Rating) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRating, int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rating) UnmarshalText(text []byte) error {
	parsed, err := ParseRating(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
