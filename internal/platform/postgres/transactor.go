package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/scry-drill/internal/store"
)

// NewStores binds all stores to one connection or transaction.
func NewStores(db store.DBTX, logger *slog.Logger) store.Stores {
	return store.Stores{
		Items:    NewItemStore(db, logger),
		Logs:     NewReviewLogStore(db, logger),
		Learners: NewLearnerStore(db, logger),
		Stats:    NewStatsStore(db, logger),
	}
}

// Transactor implements store.Transactor with database transactions.
type Transactor struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTransactor creates a Transactor on db.
func NewTransactor(db *sql.DB, logger *slog.Logger) *Transactor {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transactor{db: db, logger: logger}
}

var _ store.Transactor = (*Transactor)(nil)

// WithinTx implements store.Transactor.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Stores) error) error {
	return store.RunInTransaction(ctx, t.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, NewStores(tx, t.logger))
	})
}
