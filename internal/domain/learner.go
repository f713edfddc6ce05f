package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Defaults applied to new learners.
const (
	DefaultDailyGoal = 20
	DefaultTimezone  = "Europe/Moscow"
)

// Learner validation errors
var (
	ErrLearnerIDEmpty    = errors.New("learner ID cannot be empty")
	ErrInvalidDailyGoal  = errors.New("daily goal must be greater than 0")
	ErrInvalidReviewed   = errors.New("today reviewed count must be greater than or equal to 0")
	ErrLearnerTZEmpty    = errors.New("learner timezone cannot be empty")
	ErrDuplicateReminder = errors.New("reminder times must be unique")
)

// ReviewMode selects how a learner answers during a session.
type ReviewMode string

// Review modes.
const (
	// ReviewModeReveal shows the answer on request and asks for a rating.
	ReviewModeReveal ReviewMode = "reveal"
	// ReviewModeTyping asks for a typed answer and grades it automatically.
	ReviewModeTyping ReviewMode = "typing"
)

// Valid reports whether m is a known review mode.
func (m ReviewMode) Valid() bool {
	return m == ReviewModeReveal || m == ReviewModeTyping
}

// Learner is the scheduling context of one user. It is owned by the settings
// flow; the review core only reads it, bumps the daily counter, and marks
// unreachable learners inactive.
type Learner struct {
	ID            int64       `json:"id"`
	DailyGoal     int         `json:"daily_goal"`
	TodayReviewed int         `json:"today_reviewed"`
	TodayDate     time.Time   `json:"today_date"` // calendar day of TodayReviewed, see Day
	ReminderTimes []TimeOfDay `json:"reminder_times"`
	Timezone      string      `json:"timezone"`
	ReviewMode    ReviewMode  `json:"review_mode"`
	IsActive      bool        `json:"is_active"`
	CreatedAt     time.Time   `json:"created_at"`
}

// NewLearner creates an active learner with the default goal, timezone and
// reminder times (09:00, 14:00, 20:00).
func NewLearner(id int64, now time.Time) (*Learner, error) {
	l := &Learner{
		ID:            id,
		DailyGoal:     DefaultDailyGoal,
		ReminderTimes: []TimeOfDay{NewTimeOfDay(9, 0), NewTimeOfDay(14, 0), NewTimeOfDay(20, 0)},
		Timezone:      DefaultTimezone,
		ReviewMode:    ReviewModeReveal,
		IsActive:      true,
		CreatedAt:     now.UTC(),
	}

	if err := l.Validate(); err != nil {
		return nil, err
	}

	return l, nil
}

// Validate checks if the learner has valid data.
func (l *Learner) Validate() error {
	if l.ID == 0 {
		return ErrLearnerIDEmpty
	}
	if l.DailyGoal <= 0 {
		return ErrInvalidDailyGoal
	}
	if l.TodayReviewed < 0 {
		return ErrInvalidReviewed
	}
	if strings.TrimSpace(l.Timezone) == "" {
		return ErrLearnerTZEmpty
	}
	if !l.ReviewMode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidReviewMode, l.ReviewMode)
	}
	seen := make(map[TimeOfDay]struct{}, len(l.ReminderTimes))
	for _, t := range l.ReminderTimes {
		if _, dup := seen[t]; dup {
			return ErrDuplicateReminder
		}
		seen[t] = struct{}{}
	}
	return nil
}

// ReviewedOn returns the number of reviews counted for day. A counter that
// belongs to an earlier day counts as zero.
func (l *Learner) ReviewedOn(day time.Time) int {
	if !l.TodayDate.Equal(Day(day)) {
		return 0
	}
	return l.TodayReviewed
}

// GoalReachedOn reports whether the daily goal is met for day.
func (l *Learner) GoalReachedOn(day time.Time) bool {
	return l.ReviewedOn(day) >= l.DailyGoal
}

// Location resolves the learner's timezone. The error is non-nil when the
// identifier is unknown; callers decide on a fallback.
func (l *Learner) Location() (*time.Location, error) {
	return time.LoadLocation(l.Timezone)
}

// LocalTime converts now to the learner's wall clock. When the timezone is
// unknown it uses fallback (UTC if nil) and also returns the lookup error.
func (l *Learner) LocalTime(now time.Time, fallback *time.Location) (time.Time, error) {
	loc, err := l.Location()
	if err != nil {
		if fallback == nil {
			fallback = time.UTC
		}
		return now.In(fallback), err
	}
	return now.In(loc), nil
}

// Day truncates t to its calendar day as seen in t's own location and
// returns it as midnight UTC, so days from different zones compare by date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
