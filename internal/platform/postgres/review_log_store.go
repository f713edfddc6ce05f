package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-drill/internal/domain"
	"github.com/phrazzld/scry-drill/internal/redact"
	"github.com/phrazzld/scry-drill/internal/store"
)

// ReviewLogStore implements store.ReviewLogStore on the review_logs table.
type ReviewLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewReviewLogStore creates a ReviewLogStore on a connection or transaction.
func NewReviewLogStore(db store.DBTX, logger *slog.Logger) *ReviewLogStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_log_store")),
	}
}

var _ store.ReviewLogStore = (*ReviewLogStore)(nil)

// AppendReviewLog implements store.ReviewLogStore.
func (s *ReviewLogStore) AppendReviewLog(ctx context.Context, entry *domain.ReviewLogEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO review_logs (id, item_id, rating, reviewed_at) VALUES ($1, $2, $3, $4)`,
		entry.ID, entry.ItemID, int(entry.Rating), entry.ReviewedAt.UTC(),
	)
	if err != nil {
		s.logger.Error("failed to append review log",
			slog.String("item_id", entry.ItemID.String()),
			slog.String("error", redact.Error(err)))
		return store.NewStoreError("review_log", "append", "insert failed", MapError(err))
	}
	return nil
}

// ListByItem implements store.ReviewLogStore.
func (s *ReviewLogStore) ListByItem(ctx context.Context, itemID uuid.UUID) ([]*domain.ReviewLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, rating, reviewed_at
		FROM review_logs
		WHERE item_id = $1
		ORDER BY reviewed_at ASC, id ASC`,
		itemID,
	)
	if err != nil {
		return nil, store.NewStoreError("review_log", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var entries []*domain.ReviewLogEntry
	for rows.Next() {
		var (
			e      domain.ReviewLogEntry
			rating int
		)
		if err := rows.Scan(&e.ID, &e.ItemID, &rating, &e.ReviewedAt); err != nil {
			return nil, store.NewStoreError("review_log", "list", "scan failed", err)
		}
		e.Rating = domain.Rating(rating)
		e.ReviewedAt = e.ReviewedAt.UTC()
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("review_log", "list", "iteration failed", MapError(err))
	}
	return entries, nil
}
