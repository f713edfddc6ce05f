package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-drill/internal/domain"
	"github.com/phrazzld/scry-drill/internal/platform/logger"
	"github.com/phrazzld/scry-drill/internal/store"
)

// DefaultWindow is the tolerance around a reminder time. It must stay below
// the tick interval so one reminder time fires at most once per tick.
const DefaultWindow = 30 * time.Second

// Eligible reports whether the learner should be reminded at now: their
// daily goal is not met for their local day and their local wall clock is
// strictly less than window away from one of their reminder times, measured
// across midnight.
//
// An unknown timezone is evaluated in fallback and the lookup error is
// returned alongside the result; it is not a reason to skip the learner.
func Eligible(l *domain.Learner, now time.Time, window time.Duration, fallback *time.Location) (bool, error) {
	local, tzErr := l.LocalTime(now, fallback)

	if l.GoalReachedOn(local) {
		return false, tzErr
	}
	for _, rt := range l.ReminderTimes {
		if rt.Distance(local) < window {
			return true, tzErr
		}
	}
	return false, tzErr
}

// Scheduler selects the learners due for a reminder.
type Scheduler struct {
	learners store.LearnerStore
	window   time.Duration
	fallback *time.Location
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler. A non-positive window uses
// DefaultWindow and a nil fallback uses UTC.
func NewScheduler(
	learners store.LearnerStore,
	window time.Duration,
	fallback *time.Location,
	logger *slog.Logger,
) *Scheduler {
	if learners == nil {
		panic("learners cannot be nil")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if fallback == nil {
		fallback = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		learners: learners,
		window:   window,
		fallback: fallback,
		logger:   logger.With(slog.String("component", "reminder_scheduler")),
	}
}

// SelectEligibleUsers returns the ids of the active learners to remind at
// now, in id order.
func (s *Scheduler) SelectEligibleUsers(ctx context.Context, now time.Time) ([]int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	learners, err := s.learners.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active learners: %w", err)
	}

	var eligible []int64
	for _, l := range learners {
		ok, tzErr := Eligible(l, now, s.window, s.fallback)
		if tzErr != nil {
			log.Warn("unknown learner timezone, using fallback",
				slog.Int64("user_id", l.ID),
				slog.String("timezone", l.Timezone),
				slog.String("fallback", s.fallback.String()))
		}
		if ok {
			eligible = append(eligible, l.ID)
		}
	}

	log.Debug("selected learners for reminders",
		slog.Int("active", len(learners)),
		slog.Int("eligible", len(eligible)),
		slog.Time("now", now))
	return eligible, nil
}
