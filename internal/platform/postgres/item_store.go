package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-drill/internal/domain"
	"github.com/phrazzld/scry-drill/internal/redact"
	"github.com/phrazzld/scry-drill/internal/store"
)

const itemColumns = `id, owner_id, front, back, repetitions, ease_factor, interval_days,
	due_at, is_learned, last_reviewed_at, created_at, updated_at`

// ItemStore implements store.ItemStore on the items table.
type ItemStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewItemStore creates an ItemStore on a connection or transaction.
// If logger is nil, a default logger will be used.
func NewItemStore(db store.DBTX, logger *slog.Logger) *ItemStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ItemStore{
		db:     db,
		logger: logger.With(slog.String("component", "item_store")),
	}
}

var _ store.ItemStore = (*ItemStore)(nil)

// Create implements store.ItemStore.
func (s *ItemStore) Create(ctx context.Context, item *domain.Item) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		item.ID, item.OwnerID, item.Front, item.Back,
		item.Repetitions, item.EaseFactor, item.IntervalDays,
		item.DueAt.UTC(), item.IsLearned, nullTime(item.LastReviewedAt),
		item.CreatedAt.UTC(), item.UpdatedAt.UTC(),
	)
	if err != nil {
		s.logger.Error("failed to create item",
			slog.String("item_id", item.ID.String()),
			slog.String("error", redact.Error(err)))
		return store.NewStoreError("item", "create", "insert failed",
			mapEntityError(err, nil, store.ErrItemExists))
	}
	return nil
}

// FindItem implements store.ItemStore.
func (s *ItemStore) FindItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	item, err := scanItem(row)
	if err != nil {
		mapped := mapEntityError(err, store.ErrItemNotFound, nil)
		if !errors.Is(mapped, store.ErrItemNotFound) {
			s.logger.Error("failed to find item",
				slog.String("item_id", id.String()),
				slog.String("error", redact.Error(err)))
		}
		return nil, mapped
	}
	return item, nil
}

// UpdateItem implements store.ItemStore. Only scheduling columns change.
func (s *ItemStore) UpdateItem(ctx context.Context, item *domain.Item) error {
	if err := item.ValidateSchedule(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET repetitions = $2, ease_factor = $3, interval_days = $4, due_at = $5,
			is_learned = $6, last_reviewed_at = $7, updated_at = $8
		WHERE id = $1`,
		item.ID, item.Repetitions, item.EaseFactor, item.IntervalDays, item.DueAt.UTC(),
		item.IsLearned, nullTime(item.LastReviewedAt), item.UpdatedAt.UTC(),
	)
	if err != nil {
		s.logger.Error("failed to update item",
			slog.String("item_id", item.ID.String()),
			slog.String("error", redact.Error(err)))
		return store.NewStoreError("item", "update", "update failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrItemNotFound)
}

// ListDue implements store.ItemStore.
func (s *ItemStore) ListDue(ctx context.Context, ownerID int64, now time.Time, limit int) ([]*domain.Item, error) {
	if limit <= 0 {
		return []*domain.Item{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE owner_id = $1 AND due_at <= $2
		ORDER BY due_at ASC, ease_factor ASC, id ASC
		LIMIT $3`,
		ownerID, now.UTC(), limit,
	)
	if err != nil {
		s.logger.Error("failed to list due items",
			slog.Int64("owner_id", ownerID),
			slog.String("error", redact.Error(err)))
		return nil, store.NewStoreError("item", "list_due", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	items := make([]*domain.Item, 0, limit)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, store.NewStoreError("item", "list_due", "scan failed", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("item", "list_due", "iteration failed", MapError(err))
	}
	return items, nil
}

// CountDue implements store.ItemStore.
func (s *ItemStore) CountDue(ctx context.Context, ownerID int64, now time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE owner_id = $1 AND due_at <= $2`,
		ownerID, now.UTC(),
	).Scan(&n)
	if err != nil {
		return 0, store.NewStoreError("item", "count_due", "query failed", MapError(err))
	}
	return n, nil
}

// CountByOwner implements store.ItemStore.
func (s *ItemStore) CountByOwner(ctx context.Context, ownerID int64) (int, int, error) {
	var total, learned int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_learned) FROM items WHERE owner_id = $1`,
		ownerID,
	).Scan(&total, &learned)
	if err != nil {
		return 0, 0, store.NewStoreError("item", "count_by_owner", "query failed", MapError(err))
	}
	return total, learned, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*domain.Item, error) {
	var (
		item         domain.Item
		lastReviewed sql.NullTime
	)
	err := row.Scan(
		&item.ID, &item.OwnerID, &item.Front, &item.Back,
		&item.Repetitions, &item.EaseFactor, &item.IntervalDays,
		&item.DueAt, &item.IsLearned, &lastReviewed,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.DueAt = item.DueAt.UTC()
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	if lastReviewed.Valid {
		item.LastReviewedAt = lastReviewed.Time.UTC()
	}
	return &item, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
