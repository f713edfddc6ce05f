package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/phrazzld/scry-drill/internal/platform/logger"
	"github.com/phrazzld/scry-drill/internal/redact"
	"github.com/phrazzld/scry-drill/internal/service/review"
	"github.com/phrazzld/scry-drill/internal/store"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel deliveries in one run.
const DefaultConcurrency = 8

// ErrRecipientUnreachable is returned by a Notifier when the learner can no
// longer be reached, for example because they blocked the bot. The learner
// is then marked inactive.
var ErrRecipientUnreachable = errors.New("reminder recipient unreachable")

// Reminder is one delivery: the learner, how many items are waiting, and the
// first item of the session started for them.
type Reminder struct {
	UserID   int64
	DueCount int
	View     *review.View
}

// Notifier delivers reminders. It returns an opaque reference to the
// delivered output, which is stored on the session.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) (string, error)
}

// Sessions is the part of the review service the job drives.
type Sessions interface {
	Start(ctx context.Context, userID int64) (*review.View, error)
	SetOutputRef(ctx context.Context, userID int64, ref string) error
	End(userID int64) bool
}

// DueCounter counts a learner's due items.
type DueCounter interface {
	CountDue(ctx context.Context, userID int64) (int, error)
}

// Report summarises one run.
type Report struct {
	Eligible    int
	Sent        int
	Skipped     int // nothing due
	Failed      int
	Deactivated int
}

// Job sends the reminders of one tick.
type Job struct {
	scheduler   *Scheduler
	counter     DueCounter
	sessions    Sessions
	notifier    Notifier
	learners    store.LearnerStore
	concurrency int
	logger      *slog.Logger
}

// NewJob creates a Job. A non-positive concurrency uses DefaultConcurrency.
func NewJob(
	scheduler *Scheduler,
	counter DueCounter,
	sessions Sessions,
	notifier Notifier,
	learners store.LearnerStore,
	concurrency int,
	logger *slog.Logger,
) *Job {
	if scheduler == nil {
		panic("scheduler cannot be nil")
	}
	if counter == nil {
		panic("counter cannot be nil")
	}
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if notifier == nil {
		panic("notifier cannot be nil")
	}
	if learners == nil {
		panic("learners cannot be nil")
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Job{
		scheduler:   scheduler,
		counter:     counter,
		sessions:    sessions,
		notifier:    notifier,
		learners:    learners,
		concurrency: concurrency,
		logger:      logger.With(slog.String("component", "reminder_job")),
	}
}

// Run reminds every learner eligible at now. A failed delivery is logged and
// counted; it does not stop the others. The error is non-nil only when the
// eligible learners cannot be selected or ctx ends.
func (j *Job) Run(ctx context.Context, now time.Time) (Report, error) {
	log := logger.FromContextOrDefault(ctx, j.logger)

	ids, err := j.scheduler.SelectEligibleUsers(ctx, now)
	if err != nil {
		log.Error("failed to select learners for reminders", slog.String("error", redact.Error(err)))
		return Report{}, fmt.Errorf("failed to select learners: %w", err)
	}

	var sent, skipped, failed, deactivated atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)

	for _, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			switch j.remind(gctx, id) {
			case outcomeSent:
				sent.Add(1)
			case outcomeSkipped:
				skipped.Add(1)
			case outcomeDeactivated:
				deactivated.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()

	report := Report{
		Eligible:    len(ids),
		Sent:        int(sent.Load()),
		Skipped:     int(skipped.Load()),
		Failed:      int(failed.Load()),
		Deactivated: int(deactivated.Load()),
	}
	if len(ids) > 0 {
		log.Info("reminder run finished",
			slog.Int("eligible", report.Eligible),
			slog.Int("sent", report.Sent),
			slog.Int("skipped", report.Skipped),
			slog.Int("failed", report.Failed),
			slog.Int("deactivated", report.Deactivated))
	}
	return report, err
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeSent
	outcomeSkipped
	outcomeDeactivated
)

func (j *Job) remind(ctx context.Context, userID int64) outcome {
	log := logger.FromContextOrDefault(ctx, j.logger).With(slog.Int64("user_id", userID))

	due, err := j.counter.CountDue(ctx, userID)
	if err != nil {
		log.Error("failed to count due items", slog.String("error", redact.Error(err)))
		return outcomeFailed
	}
	if due == 0 {
		return outcomeSkipped
	}

	view, err := j.sessions.Start(ctx, userID)
	if errors.Is(err, review.ErrNoItemsDue) {
		return outcomeSkipped
	}
	if err != nil {
		log.Error("failed to start review session", slog.String("error", redact.Error(err)))
		return outcomeFailed
	}

	ref, err := j.notifier.Notify(ctx, Reminder{UserID: userID, DueCount: due, View: view})
	if errors.Is(err, ErrRecipientUnreachable) {
		j.sessions.End(userID)
		if err := j.learners.MarkInactive(ctx, userID); err != nil {
			log.Error("failed to deactivate unreachable learner", slog.String("error", redact.Error(err)))
			return outcomeFailed
		}
		log.Info("learner unreachable, reminders disabled")
		return outcomeDeactivated
	}
	if err != nil {
		j.sessions.End(userID)
		log.Error("failed to deliver reminder", slog.String("error", redact.Error(err)))
		return outcomeFailed
	}

	if ref != "" {
		if err := j.sessions.SetOutputRef(ctx, userID, ref); err != nil {
			log.Warn("failed to store reminder reference", slog.String("error", redact.Error(err)))
		}
	}
	log.Debug("reminder sent", slog.Int("due", due))
	return outcomeSent
}
