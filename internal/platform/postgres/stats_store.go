package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-drill/internal/domain"
	"github.com/phrazzld/scry-drill/internal/redact"
	"github.com/phrazzld/scry-drill/internal/store"
)

// StatsStore implements store.StatsStore on the learner_stats table. The
// weekly history is kept as a JSONB array.
type StatsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewStatsStore creates a StatsStore on a connection or transaction.
func NewStatsStore(db store.DBTX, logger *slog.Logger) *StatsStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsStore{
		db:     db,
		logger: logger.With(slog.String("component", "stats_store")),
	}
}

var _ store.StatsStore = (*StatsStore)(nil)

// FindStats implements store.StatsStore.
func (s *StatsStore) FindStats(ctx context.Context, userID int64) (*domain.LearnerStats, error) {
	var (
		stats        domain.LearnerStats
		lastActivity sql.NullTime
		history      []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, total_items, learned_items, current_streak, longest_streak,
			last_activity_at, weekly_history
		FROM learner_stats
		WHERE user_id = $1`,
		userID,
	).Scan(
		&stats.UserID, &stats.TotalItems, &stats.LearnedItems, &stats.CurrentStreak,
		&stats.LongestStreak, &lastActivity, &history,
	)
	if err != nil {
		mapped := mapEntityError(err, store.ErrStatsNotFound, nil)
		if !errors.Is(mapped, store.ErrStatsNotFound) {
			s.logger.Error("failed to find stats",
				slog.Int64("user_id", userID),
				slog.String("error", redact.Error(err)))
		}
		return nil, mapped
	}

	if lastActivity.Valid {
		stats.LastActivityAt = lastActivity.Time.UTC()
	}
	stats.WeeklyHistory = []domain.DailyActivity{}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &stats.WeeklyHistory); err != nil {
			return nil, store.NewStoreError("stats", "find", "decode weekly history failed", err)
		}
	}
	return &stats, nil
}

// SaveStats implements store.StatsStore with an upsert.
func (s *StatsStore) SaveStats(ctx context.Context, stats *domain.LearnerStats) error {
	if err := stats.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	history := stats.WeeklyHistory
	if history == nil {
		history = []domain.DailyActivity{}
	}
	encoded, err := json.Marshal(history)
	if err != nil {
		return store.NewStoreError("stats", "save", "encode weekly history failed", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO learner_stats (user_id, total_items, learned_items, current_streak,
			longest_streak, last_activity_at, weekly_history)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			total_items = EXCLUDED.total_items,
			learned_items = EXCLUDED.learned_items,
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			last_activity_at = EXCLUDED.last_activity_at,
			weekly_history = EXCLUDED.weekly_history`,
		stats.UserID, stats.TotalItems, stats.LearnedItems, stats.CurrentStreak,
		stats.LongestStreak, nullTime(stats.LastActivityAt), string(encoded),
	)
	if err != nil {
		s.logger.Error("failed to save stats",
			slog.Int64("user_id", stats.UserID),
			slog.String("error", redact.Error(err)))
		return store.NewStoreError("stats", "save", "upsert failed", MapError(err))
	}
	return nil
}
