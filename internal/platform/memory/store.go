package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-drill/internal/domain"
	"github.com/phrazzld/scry-drill/internal/store"
)

// state is the committed data.
type state struct {
	items    map[uuid.UUID]domain.Item
	logs     map[uuid.UUID][]domain.ReviewLogEntry
	learners map[int64]domain.Learner
	stats    map[int64]domain.LearnerStats
}

func newState() *state {
	return &state{
		items:    make(map[uuid.UUID]domain.Item),
		logs:     make(map[uuid.UUID][]domain.ReviewLogEntry),
		learners: make(map[int64]domain.Learner),
		stats:    make(map[int64]domain.LearnerStats),
	}
}

// txn stages writes over the committed state. Only the entries a transaction
// touches are copied; reads fall through to the base for everything else.
type txn struct {
	base     *state
	items    map[uuid.UUID]domain.Item
	logs     map[uuid.UUID][]domain.ReviewLogEntry // appended in this txn
	learners map[int64]domain.Learner
	stats    map[int64]domain.LearnerStats
}

func newTxn(base *state) *txn {
	return &txn{
		base:     base,
		items:    make(map[uuid.UUID]domain.Item),
		logs:     make(map[uuid.UUID][]domain.ReviewLogEntry),
		learners: make(map[int64]domain.Learner),
		stats:    make(map[int64]domain.LearnerStats),
	}
}

func (t *txn) item(id uuid.UUID) (domain.Item, bool) {
	if item, ok := t.items[id]; ok {
		return item, true
	}
	item, ok := t.base.items[id]
	return item, ok
}

func (t *txn) eachItem(fn func(item domain.Item)) {
	for _, item := range t.items {
		fn(item)
	}
	for id, item := range t.base.items {
		if _, staged := t.items[id]; !staged {
			fn(item)
		}
	}
}

func (t *txn) learner(id int64) (domain.Learner, bool) {
	l, ok := t.learners[id]
	if !ok {
		l, ok = t.base.learners[id]
	}
	l.ReminderTimes = slices.Clone(l.ReminderTimes)
	return l, ok
}

func (t *txn) eachLearner(fn func(l domain.Learner)) {
	for _, l := range t.learners {
		fn(l)
	}
	for id, l := range t.base.learners {
		if _, staged := t.learners[id]; !staged {
			fn(l)
		}
	}
}

func (t *txn) logsFor(itemID uuid.UUID) []domain.ReviewLogEntry {
	return slices.Concat(t.base.logs[itemID], t.logs[itemID])
}

func (t *txn) stat(userID int64) (*domain.LearnerStats, bool) {
	s, ok := t.stats[userID]
	if !ok {
		s, ok = t.base.stats[userID]
	}
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// commit folds the staged writes into the base. The caller holds the store
// lock.
func (t *txn) commit() {
	maps.Copy(t.base.items, t.items)
	maps.Copy(t.base.learners, t.learners)
	maps.Copy(t.base.stats, t.stats)
	for id, entries := range t.logs {
		t.base.logs[id] = append(t.base.logs[id], entries...)
	}
}

// Store is an in-process implementation of the store interfaces. All data is
// lost when the process exits. Every call stages its writes and commits them
// only on success; one transaction runs at a time.
type Store struct {
	mu    sync.Mutex
	state *state
}

// New creates an empty Store.
func New() *Store {
	return &Store{state: newState()}
}

var _ store.Transactor = (*Store)(nil)

// Items returns an auto-committing item store.
func (s *Store) Items() store.ItemStore { return itemStore{s: s} }

// Logs returns an auto-committing review log store.
func (s *Store) Logs() store.ReviewLogStore { return logStore{s: s} }

// Learners returns an auto-committing learner store.
func (s *Store) Learners() store.LearnerStore { return learnerStore{s: s} }

// Stats returns an auto-committing learner stats store.
func (s *Store) Stats() store.StatsStore { return statsStore{s: s} }

// WithinTx implements store.Transactor. fn must only use the Stores it is
// given; calling the auto-committing stores from inside fn deadlocks.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := newTxn(s.state)
	tx := store.Stores{
		Items:    itemStore{tx: staged},
		Logs:     logStore{tx: staged},
		Learners: learnerStore{tx: staged},
		Stats:    statsStore{tx: staged},
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	staged.commit()
	return nil
}

// view runs fn inside the caller's transaction, or in a transaction of its
// own that commits when fn succeeds.
func view(ctx context.Context, s *Store, tx *txn, fn func(t *txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx != nil {
		return fn(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	own := newTxn(s.state)
	if err := fn(own); err != nil {
		return err
	}
	own.commit()
	return nil
}

type itemStore struct {
	s  *Store
	tx *txn
}

var _ store.ItemStore = itemStore{}

func (v itemStore) Create(ctx context.Context, item *domain.Item) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	return view(ctx, v.s, v.tx, func(t *txn) error {
		if _, exists := t.item(item.ID); exists {
			return store.ErrItemExists
		}
		if _, ok := t.learner(item.OwnerID); !ok {
			return fmt.Errorf("%w: owner %d does not exist", store.ErrInvalidEntity, item.OwnerID)
		}
		t.items[item.ID] = *item
		return nil
	})
}

func (v itemStore) FindItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	var found domain.Item
	err := view(ctx, v.s, v.tx, func(t *txn) error {
		item, ok := t.item(id)
		if !ok {
			return store.ErrItemNotFound
		}
		found = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (v itemStore) UpdateItem(ctx context.Context, item *domain.Item) error {
	if err := item.ValidateSchedule(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	return view(ctx, v.s, v.tx, func(t *txn) error {
		current, ok := t.item(item.ID)
		if !ok {
			return store.ErrItemNotFound
		}
		current.Repetitions = item.Repetitions
		current.EaseFactor = item.EaseFactor
		current.IntervalDays = item.IntervalDays
		current.DueAt = item.DueAt
		current.IsLearned = item.IsLearned
		current.LastReviewedAt = item.LastReviewedAt
		current.UpdatedAt = item.UpdatedAt
		t.items[item.ID] = current
		return nil
	})
}

func (v itemStore) ListDue(ctx context.Context, ownerID int64, now time.Time, limit int) ([]*domain.Item, error) {
	var due []*domain.Item
	err := view(ctx, v.s, v.tx, func(t *txn) error {
		t.eachItem(func(item domain.Item) {
			if item.OwnerID == ownerID && item.IsDue(now) {
				due = append(due, &item)
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(due, func(a, b *domain.Item) int {
		return cmp.Or(
			a.DueAt.Compare(b.DueAt),
			cmp.Compare(a.EaseFactor, b.EaseFactor),
			slices.Compare(a.ID[:], b.ID[:]),
		)
	})
	if limit <= 0 {
		return []*domain.Item{}, nil
	}
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (v itemStore) CountDue(ctx context.Context, ownerID int64, now time.Time) (int, error) {
	n := 0
	err := view(ctx, v.s, v.tx, func(t *txn) error {
		t.eachItem(func(item domain.Item) {
			if item.OwnerID == ownerID && item.IsDue(now) {
				n++
			}
		})
		return nil
	})
	return n, err
}

func (v itemStore) CountByOwner(ctx context.Context, ownerID int64) (total, learned int, err error) {
	err = view(ctx, v.s, v.tx, func(t *txn) error {
		t.eachItem(func(item domain.Item) {
			if item.OwnerID != ownerID {
				return
			}
			total++
			if item.IsLearned {
				learned++
			}
		})
		return nil
	})
	return total, learned, err
}

type logStore struct {
	s  *Store
	tx *txn
}

var _ store.ReviewLogStore = logStore{}

func (v logStore) AppendReviewLog(ctx context.Context, entry *domain.ReviewLogEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	return view(ctx, v.s, v.tx, func(t *txn) error {
		if _, ok := t.item(entry.ItemID); !ok {
			return fmt.Errorf("%w: item %s does not exist", store.ErrInvalidEntity, entry.ItemID)
		}
		t.logs[entry.ItemID] = append(t.logs[entry.ItemID], *entry)
		return nil
	})
}

func (v logStore) ListByItem(ctx context.Context, itemID uuid.UUID) ([]*domain.ReviewLogEntry, error) {
	var out []*domain.ReviewLogEntry
	err := view(ctx, v.s, v.tx, func(t *txn) error {
		for _, e := range t.logsFor(itemID) {
			out = append(out, &e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b *domain.ReviewLogEntry) int {
		return a.ReviewedAt.Compare(b.ReviewedAt)
	})
	return out, nil
}

type learnerStore struct {
	s  *Store
	tx *txn
}

var _ store.LearnerStore = learnerStore{}

func (v learnerStore) Create(ctx context.Context, learner *domain.Learner) error {
	if err := learner.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	return view(ctx, v.s, v.tx, func(t *txn) error {
		if _, exists := t.learner(learner.ID); exists {
			return store.ErrUserExists
		}
		l := *learner
		l.ReminderTimes = slices.Clone(learner.ReminderTimes)
		t.learners[l.ID] = l
		return nil
	})
}

func (v learnerStore) FindUser(ctx context.Context, id int64) (*domain.Learner, error) {
	var found domain.Learner
	err := view(ctx, v.s, v.tx, func(t *txn) error {
		l, ok := t.learner(id)
		if !ok {
			return store.ErrUserNotFound
		}
		found = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (v learnerStore) UpdateUserReviewCount(ctx context.Context, id int64, day time.Time) (int, error) {
	day = domain.Day(day)
	var count int
	err := view(ctx, v.s, v.tx, func(t *txn) error {
		l, ok := t.learner(id)
		if !ok {
			return store.ErrUserNotFound
		}
		if l.TodayDate.Equal(day) {
			l.TodayReviewed++
		} else {
			l.TodayDate = day
			l.TodayReviewed = 1
		}
		t.learners[id] = l
		count = l.TodayReviewed
		return nil
	})
	return count, err
}

func (v learnerStore) ListActive(ctx context.Context) ([]*domain.Learner, error) {
	var out []*domain.Learner
	err := view(ctx, v.s, v.tx, func(t *txn) error {
		t.eachLearner(func(l domain.Learner) {
			if l.IsActive {
				l.ReminderTimes = slices.Clone(l.ReminderTimes)
				out = append(out, &l)
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b *domain.Learner) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (v learnerStore) MarkInactive(ctx context.Context, id int64) error {
	return view(ctx, v.s, v.tx, func(t *txn) error {
		l, ok := t.learner(id)
		if !ok {
			return store.ErrUserNotFound
		}
		l.IsActive = false
		t.learners[id] = l
		return nil
	})
}

type statsStore struct {
	s  *Store
	tx *txn
}

var _ store.StatsStore = statsStore{}

func (v statsStore) FindStats(ctx context.Context, userID int64) (*domain.LearnerStats, error) {
	var found *domain.LearnerStats
	err := view(ctx, v.s, v.tx, func(t *txn) error {
		s, ok := t.stat(userID)
		if !ok {
			return store.ErrStatsNotFound
		}
		found = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (v statsStore) SaveStats(ctx context.Context, stats *domain.LearnerStats) error {
	if err := stats.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	return view(ctx, v.s, v.tx, func(t *txn) error {
		if _, ok := t.learner(stats.UserID); !ok {
			return fmt.Errorf("%w: learner %d does not exist", store.ErrInvalidEntity, stats.UserID)
		}
		t.stats[stats.UserID] = *stats.Clone()
		return nil
	})
}
