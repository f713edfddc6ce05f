package store

import (
	"context"
	"time"

	"github.com/phrazzld/scry-drill/internal/domain"
)

// LearnerStore defines persistence for learners and their daily counters.
type LearnerStore interface {
	// Create saves a new learner. Returns ErrUserExists if the id is taken.
	Create(ctx context.Context, learner *domain.Learner) error

	// FindUser retrieves a learner by id.
	// Returns ErrUserNotFound if the learner does not exist.
	FindUser(ctx context.Context, id int64) (*domain.Learner, error)

	// UpdateUserReviewCount increments the learner's review counter for day,
	// the learner's local calendar day as returned by domain.Day. A counter
	// belonging to an earlier day restarts at 1. The increment is atomic with
	// respect to concurrent calls. Returns the new count.
	UpdateUserReviewCount(ctx context.Context, id int64, day time.Time) (int, error)

	// ListActive returns all learners with IsActive set, ordered by id.
	ListActive(ctx context.Context) ([]*domain.Learner, error)

	// MarkInactive clears IsActive so the learner gets no more reminders.
	// Returns ErrUserNotFound if the learner does not exist.
	MarkInactive(ctx context.Context, id int64) error
}
