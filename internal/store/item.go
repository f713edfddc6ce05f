package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-drill/internal/domain"
)

// ItemStore defines persistence for review items.
type ItemStore interface {
	// Create saves a new item. Returns ErrItemExists if the id is taken and
	// ErrInvalidEntity wrapping the domain error if the item is invalid.
	Create(ctx context.Context, item *domain.Item) error

	// FindItem retrieves an item by id.
	// Returns ErrItemNotFound if the item does not exist.
	FindItem(ctx context.Context, id uuid.UUID) (*domain.Item, error)

	// UpdateItem persists the scheduling state of an existing item
	// (repetitions, ease, interval, due time, learned flag, review times).
	// Returns ErrItemNotFound if the item does not exist.
	UpdateItem(ctx context.Context, item *domain.Item) error

	// ListDue returns up to limit items of the owner with DueAt <= now,
	// ordered by DueAt ascending and then EaseFactor ascending, so the most
	// overdue and then the hardest items come first. A non-positive limit
	// returns an empty slice.
	ListDue(ctx context.Context, ownerID int64, now time.Time, limit int) ([]*domain.Item, error)

	// CountDue returns how many items of the owner have DueAt <= now.
	CountDue(ctx context.Context, ownerID int64, now time.Time) (int, error)

	// CountByOwner returns how many items the owner has and how many of
	// them are learned.
	CountByOwner(ctx context.Context, ownerID int64) (total, learned int, err error)
}
