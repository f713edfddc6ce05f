package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-drill/internal/domain"
)

// ReviewLogStore is the append-only history of review outcomes.
type ReviewLogStore interface {
	// AppendReviewLog stores a new entry. Entries are never updated.
	AppendReviewLog(ctx context.Context, entry *domain.ReviewLogEntry) error

	// ListByItem returns the entries of one item, oldest first.
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]*domain.ReviewLogEntry, error)
}
