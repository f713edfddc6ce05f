package review_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-drill/internal/domain"
	"github.com/phrazzld/scry-drill/internal/domain/srs"
	"github.com/phrazzld/scry-drill/internal/mocks"
	"github.com/phrazzld/scry-drill/internal/platform/memory"
	"github.com/phrazzld/scry-drill/internal/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable clock safe for concurrent use.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func seedLearner(t *testing.T, s *memory.Store, id int64, edit func(l *domain.Learner)) *domain.Learner {
	t.Helper()
	l, err := domain.NewLearner(id, sessionStart.Add(-24*time.Hour))
	require.NoError(t, err)
	if edit != nil {
		edit(l)
	}
	require.NoError(t, s.Learners().Create(context.Background(), l))
	return l
}

// seedItem stores an item that became due the given duration before
// sessionStart.
func seedItem(t *testing.T, s *memory.Store, owner int64, front, back string, overdue time.Duration) *domain.Item {
	t.Helper()
	item, err := domain.NewItem(owner, front, back, sessionStart.Add(-48*time.Hour))
	require.NoError(t, err)
	item.DueAt = sessionStart.Add(-overdue)
	require.NoError(t, s.Items().Create(context.Background(), item))
	return item
}

// vanishing makes items look deleted without touching the underlying store.
type vanishing struct {
	mu   sync.Mutex
	gone map[uuid.UUID]bool
}

func newVanishing() *vanishing {
	return &vanishing{gone: make(map[uuid.UUID]bool)}
}

func (v *vanishing) Remove(id uuid.UUID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gone[id] = true
}

func (v *vanishing) isGone(id uuid.UUID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gone[id]
}

type vanishingItems struct {
	store.ItemStore
	v *vanishing
}

func (s vanishingItems) FindItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	if s.v.isGone(id) {
		return nil, store.ErrItemNotFound
	}
	return s.ItemStore.FindItem(ctx, id)
}

type vanishingTx struct {
	inner store.Transactor
	v     *vanishing
}

func (t vanishingTx) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Stores) error) error {
	return t.inner.WithinTx(ctx, func(ctx context.Context, tx store.Stores) error {
		tx.Items = vanishingItems{ItemStore: tx.Items, v: t.v}
		return fn(ctx, tx)
	})
}

// unavailableEngine is an external scheduling backend that is always down.
func unavailableEngine() srs.Engine {
	backend := new(mocks.MockEngine)
	backend.On("Schedule", mock.Anything, mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded)
	return srs.NewExternalEngine(backend)
}
