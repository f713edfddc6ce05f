package domain

import (
	"errors"
	"slices"
	"time"
)

// HistoryDays is how many local days of activity LearnerStats keeps,
// today included.
const HistoryDays = 7

// ErrStatsUserIDEmpty is returned when stats are not tied to a learner.
var ErrStatsUserIDEmpty = errors.New("stats user ID cannot be empty")

// DailyActivity is one local day of a learner's reviews.
type DailyActivity struct {
	Date        time.Time `json:"date"` // see Day
	Reviewed    int       `json:"reviewed"`
	GoalReached bool      `json:"goal_reached"`
}

// LearnerStats summarises a learner's progress. It is rewritten after every
// recorded review.
type LearnerStats struct {
	UserID         int64           `json:"user_id"`
	TotalItems     int             `json:"total_items"`
	LearnedItems   int             `json:"learned_items"`
	CurrentStreak  int             `json:"current_streak"`
	LongestStreak  int             `json:"longest_streak"`
	LastActivityAt time.Time       `json:"last_activity_at"` // zero until the first review
	WeeklyHistory  []DailyActivity `json:"weekly_history"`   // oldest first
}

// NewLearnerStats returns empty stats for a learner.
func NewLearnerStats(userID int64) *LearnerStats {
	return &LearnerStats{UserID: userID, WeeklyHistory: []DailyActivity{}}
}

// Validate checks if the stats have valid data.
func (s *LearnerStats) Validate() error {
	if s.UserID == 0 {
		return ErrStatsUserIDEmpty
	}
	return nil
}

// Clone returns a deep copy.
func (s *LearnerStats) Clone() *LearnerStats {
	c := *s
	c.WeeklyHistory = slices.Clone(s.WeeklyHistory)
	return &c
}

// RecordReview counts one review made at on the learner's local day.
// reviewedToday is the learner's daily counter including this review.
//
// The first review that meets goal on a day extends the streak when the
// previous day met its goal too, and restarts it at 1 otherwise. Days that
// fall out of the HistoryDays window are dropped.
func (s *LearnerStats) RecordReview(day time.Time, reviewedToday, goal int, at time.Time) {
	day = Day(day)
	s.LastActivityAt = at.UTC()

	i := s.dayIndex(day)
	if i < 0 {
		s.WeeklyHistory = append(s.WeeklyHistory, DailyActivity{Date: day})
		i = len(s.WeeklyHistory) - 1
	}
	today := &s.WeeklyHistory[i]
	today.Reviewed++

	if !today.GoalReached && reviewedToday >= goal {
		today.GoalReached = true
		if s.GoalReachedOn(day.AddDate(0, 0, -1)) {
			s.CurrentStreak++
		} else {
			s.CurrentStreak = 1
		}
		s.LongestStreak = max(s.LongestStreak, s.CurrentStreak)
	}

	oldest := day.AddDate(0, 0, 1-HistoryDays)
	s.WeeklyHistory = slices.DeleteFunc(s.WeeklyHistory, func(d DailyActivity) bool {
		return d.Date.Before(oldest)
	})
	slices.SortFunc(s.WeeklyHistory, func(a, b DailyActivity) int {
		return a.Date.Compare(b.Date)
	})
}

// GoalReachedOn reports whether the history shows the goal met on day.
func (s *LearnerStats) GoalReachedOn(day time.Time) bool {
	i := s.dayIndex(Day(day))
	return i >= 0 && s.WeeklyHistory[i].GoalReached
}

// StreakOn returns the streak as seen on day. A streak whose last goal day
// is older than yesterday is broken and reads as zero.
func (s *LearnerStats) StreakOn(day time.Time) int {
	day = Day(day)
	if s.GoalReachedOn(day) || s.GoalReachedOn(day.AddDate(0, 0, -1)) {
		return s.CurrentStreak
	}
	return 0
}

func (s *LearnerStats) dayIndex(day time.Time) int {
	return slices.IndexFunc(s.WeeklyHistory, func(d DailyActivity) bool {
		return d.Date.Equal(day)
	})
}
