package store

import (
	"context"

	"github.com/phrazzld/scry-drill/internal/domain"
)

// StatsStore keeps one LearnerStats record per learner.
type StatsStore interface {
	// FindStats retrieves the learner's stats.
	// Returns ErrStatsNotFound if nothing was recorded yet.
	FindStats(ctx context.Context, userID int64) (*domain.LearnerStats, error)

	// SaveStats inserts or replaces the learner's stats.
	// Returns ErrInvalidEntity wrapping the domain error if they are invalid.
	SaveStats(ctx context.Context, stats *domain.LearnerStats) error
}
