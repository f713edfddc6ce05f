package review

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-drill/internal/domain"
	"github.com/phrazzld/scry-drill/internal/platform/logger"
	"github.com/phrazzld/scry-drill/internal/redact"
	"github.com/phrazzld/scry-drill/internal/store"
)

// DefaultMinimumBatch is the smallest session offered even when the daily
// goal is already met.
const DefaultMinimumBatch = 5

// RecommendedLimit returns how many items to offer: what is left of the
// daily goal, but never fewer than minimumBatch. A non-positive minimumBatch
// uses DefaultMinimumBatch.
func RecommendedLimit(dailyGoal, todayReviewed, minimumBatch int) int {
	if minimumBatch <= 0 {
		minimumBatch = DefaultMinimumBatch
	}
	return max(dailyGoal-todayReviewed, minimumBatch)
}

// Selector picks the items a learner should review next.
type Selector struct {
	items  store.ItemStore
	clock  func() time.Time
	logger *slog.Logger
}

// NewSelector creates a Selector. A nil clock uses time.Now.
func NewSelector(items store.ItemStore, clock func() time.Time, logger *slog.Logger) *Selector {
	if items == nil {
		panic("items cannot be nil")
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Selector{
		items:  items,
		clock:  clock,
		logger: logger.With(slog.String("component", "due_item_selector")),
	}
}

// SelectDue returns at most limit of the learner's due items, most overdue
// first and, among equally overdue items, lowest ease factor first.
func (s *Selector) SelectDue(ctx context.Context, userID int64, limit int) ([]*domain.Item, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		return []*domain.Item{}, nil
	}

	now := s.clock().UTC()
	items, err := s.items.ListDue(ctx, userID, now, limit)
	if err != nil {
		log.Error("failed to list due items",
			slog.Int64("user_id", userID),
			slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("failed to list due items: %w", err)
	}
	if len(items) > limit {
		items = items[:limit]
	}

	log.Debug("selected due items",
		slog.Int64("user_id", userID),
		slog.Int("limit", limit),
		slog.Int("count", len(items)))
	return items, nil
}

// CountDue returns how many items the learner has due now.
func (s *Selector) CountDue(ctx context.Context, userID int64) (int, error) {
	n, err := s.items.CountDue(ctx, userID, s.clock().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to count due items: %w", err)
	}
	return n, nil
}
