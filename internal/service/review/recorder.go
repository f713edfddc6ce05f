package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-drill/internal/domain"
	"github.com/phrazzld/scry-drill/internal/domain/srs"
	"github.com/phrazzld/scry-drill/internal/platform/logger"
	"github.com/phrazzld/scry-drill/internal/redact"
	"github.com/phrazzld/scry-drill/internal/store"
)

// Result is what one recorded rating changed.
type Result struct {
	Item          *domain.Item
	Entry         *domain.ReviewLogEntry
	TodayReviewed int
	Stats         *domain.LearnerStats
}

// Recorder applies a rating to an item and persists the consequences in a
// single transaction.
type Recorder struct {
	tx       store.Transactor
	engine   srs.Engine
	fallback *time.Location
	logger   *slog.Logger
}

// NewRecorder creates a Recorder. fallback is the timezone used for the
// daily counter when a learner's timezone is unknown; nil means UTC.
func NewRecorder(tx store.Transactor, engine srs.Engine, fallback *time.Location, logger *slog.Logger) *Recorder {
	if tx == nil {
		panic("transactor cannot be nil")
	}
	if engine == nil {
		panic("engine cannot be nil")
	}
	if fallback == nil {
		fallback = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Recorder{
		tx:       tx,
		engine:   engine,
		fallback: fallback,
		logger:   logger.With(slog.String("component", "review_recorder")),
	}
}

// Apply reschedules the item with rating, appends a review log entry, bumps
// the learner's counter for their local day and folds the review into the
// learner's stats.
//
// Returns store.ErrItemNotFound when the item is gone or belongs to someone
// else, and an error wrapping srs.ErrSchedulingUnavailable when the engine
// cannot schedule. Nothing is committed on any error.
func (r *Recorder) Apply(
	ctx context.Context,
	userID int64,
	itemID uuid.UUID,
	rating domain.Rating,
	now time.Time,
) (*Result, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)
	now = now.UTC().Truncate(time.Microsecond)

	var res Result
	err := r.tx.WithinTx(ctx, func(ctx context.Context, tx store.Stores) error {
		learner, err := tx.Learners.FindUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to find learner: %w", err)
		}

		local, tzErr := learner.LocalTime(now, r.fallback)
		if tzErr != nil {
			log.Warn("unknown learner timezone, using fallback",
				slog.Int64("user_id", userID),
				slog.String("timezone", learner.Timezone),
				slog.String("fallback", r.fallback.String()))
		}

		item, err := tx.Items.FindItem(ctx, itemID)
		if err != nil {
			return fmt.Errorf("failed to find item: %w", err)
		}
		if item.OwnerID != userID {
			log.Warn("item not owned by learner",
				slog.Int64("user_id", userID),
				slog.String("item_id", itemID.String()))
			return store.ErrItemNotFound
		}

		next, err := r.engine.Schedule(item, rating, now)
		if err != nil {
			return fmt.Errorf("failed to schedule item: %w", err)
		}

		if err := tx.Items.UpdateItem(ctx, next); err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}

		entry, err := domain.NewReviewLogEntry(itemID, rating, now)
		if err != nil {
			return fmt.Errorf("failed to create review log entry: %w", err)
		}
		if err := tx.Logs.AppendReviewLog(ctx, entry); err != nil {
			return fmt.Errorf("failed to append review log: %w", err)
		}

		count, err := tx.Learners.UpdateUserReviewCount(ctx, userID, domain.Day(local))
		if err != nil {
			return fmt.Errorf("failed to update review count: %w", err)
		}

		stats, err := recordStats(ctx, tx, learner, local, count, now)
		if err != nil {
			return err
		}

		res = Result{Item: next, Entry: entry, TodayReviewed: count, Stats: stats}
		return nil
	})
	if err != nil {
		log.Debug("review not recorded",
			slog.Int64("user_id", userID),
			slog.String("item_id", itemID.String()),
			slog.String("rating", rating.String()),
			slog.String("error", redact.Error(err)))
		return nil, err
	}

	log.Debug("review recorded",
		slog.Int64("user_id", userID),
		slog.String("item_id", itemID.String()),
		slog.String("rating", rating.String()),
		slog.Int("interval_days", res.Item.IntervalDays),
		slog.Float64("ease_factor", res.Item.EaseFactor),
		slog.Time("due_at", res.Item.DueAt))
	return &res, nil
}

// recordStats loads the learner's stats, or starts them, and counts one
// review made on the learner's local day. reviewedToday is the counter after
// this review.
func recordStats(
	ctx context.Context,
	tx store.Stores,
	learner *domain.Learner,
	local time.Time,
	reviewedToday int,
	now time.Time,
) (*domain.LearnerStats, error) {
	stats, err := tx.Stats.FindStats(ctx, learner.ID)
	switch {
	case errors.Is(err, store.ErrStatsNotFound):
		stats = domain.NewLearnerStats(learner.ID)
	case err != nil:
		return nil, fmt.Errorf("failed to find stats: %w", err)
	}

	total, learned, err := tx.Items.CountByOwner(ctx, learner.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	stats.TotalItems, stats.LearnedItems = total, learned
	stats.RecordReview(domain.Day(local), reviewedToday, learner.DailyGoal, now)

	if err := tx.Stats.SaveStats(ctx, stats); err != nil {
		return nil, fmt.Errorf("failed to save stats: %w", err)
	}
	return stats, nil
}
