package store

import "context"

// Stores groups the stores bound to one unit of work.
type Stores struct {
	Items    ItemStore
	Logs     ReviewLogStore
	Learners LearnerStore
	Stats    StatsStore
}

// Transactor runs fn against stores that share one transaction. The work is
// committed when fn returns nil and rolled back otherwise, so either every
// write made through the given Stores becomes visible or none does.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Stores) error) error
}
