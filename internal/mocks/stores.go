package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-drill/internal/domain"
	"github.com/phrazzld/scry-drill/internal/store"
	"github.com/stretchr/testify/mock"
)

var (
	_ store.ItemStore      = (*MockItemStore)(nil)
	_ store.LearnerStore   = (*MockLearnerStore)(nil)
	_ store.ReviewLogStore = (*MockReviewLogStore)(nil)
	_ store.StatsStore     = (*MockStatsStore)(nil)
	_ store.Transactor     = (*MockTransactor)(nil)
)

// MockItemStore is a testify mock of store.ItemStore.
type MockItemStore struct {
	mock.Mock
}

func (m *MockItemStore) Create(ctx context.Context, item *domain.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemStore) FindItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*domain.Item)
	return item, args.Error(1)
}

func (m *MockItemStore) UpdateItem(ctx context.Context, item *domain.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemStore) ListDue(ctx context.Context, ownerID int64, now time.Time, limit int) ([]*domain.Item, error) {
	args := m.Called(ctx, ownerID, now, limit)
	items, _ := args.Get(0).([]*domain.Item)
	return items, args.Error(1)
}

func (m *MockItemStore) CountDue(ctx context.Context, ownerID int64, now time.Time) (int, error) {
	args := m.Called(ctx, ownerID, now)
	return args.Int(0), args.Error(1)
}

func (m *MockItemStore) CountByOwner(ctx context.Context, ownerID int64) (int, int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Int(1), args.Error(2)
}

// MockLearnerStore is a testify mock of store.LearnerStore.
type MockLearnerStore struct {
	mock.Mock
}

func (m *MockLearnerStore) Create(ctx context.Context, learner *domain.Learner) error {
	args := m.Called(ctx, learner)
	return args.Error(0)
}

func (m *MockLearnerStore) FindUser(ctx context.Context, id int64) (*domain.Learner, error) {
	args := m.Called(ctx, id)
	l, _ := args.Get(0).(*domain.Learner)
	return l, args.Error(1)
}

func (m *MockLearnerStore) UpdateUserReviewCount(ctx context.Context, id int64, day time.Time) (int, error) {
	args := m.Called(ctx, id, day)
	return args.Int(0), args.Error(1)
}

func (m *MockLearnerStore) ListActive(ctx context.Context) ([]*domain.Learner, error) {
	args := m.Called(ctx)
	learners, _ := args.Get(0).([]*domain.Learner)
	return learners, args.Error(1)
}

func (m *MockLearnerStore) MarkInactive(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockReviewLogStore is a testify mock of store.ReviewLogStore.
type MockReviewLogStore struct {
	mock.Mock
}

func (m *MockReviewLogStore) AppendReviewLog(ctx context.Context, entry *domain.ReviewLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockReviewLogStore) ListByItem(ctx context.Context, itemID uuid.UUID) ([]*domain.ReviewLogEntry, error) {
	args := m.Called(ctx, itemID)
	entries, _ := args.Get(0).([]*domain.ReviewLogEntry)
	return entries, args.Error(1)
}

// MockStatsStore is a testify mock of store.StatsStore.
type MockStatsStore struct {
	mock.Mock
}

func (m *MockStatsStore) FindStats(ctx context.Context, userID int64) (*domain.LearnerStats, error) {
	args := m.Called(ctx, userID)
	stats, _ := args.Get(0).(*domain.LearnerStats)
	return stats, args.Error(1)
}

func (m *MockStatsStore) SaveStats(ctx context.Context, stats *domain.LearnerStats) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

// MockTransactor is a testify mock of store.Transactor. When the expectation
// returns a store.Stores as its second value, fn runs against those stores
// and its error wins over the first return value.
type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Stores) error) error {
	args := m.Called(ctx, fn)
	if len(args) > 1 {
		if stores, ok := args.Get(1).(store.Stores); ok {
			if err := fn(ctx, stores); err != nil {
				return err
			}
		}
	}
	return args.Error(0)
}
