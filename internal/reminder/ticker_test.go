package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/scry-drill/internal/domain"
	"github.com/phrazzld/scry-drill/internal/domain/srs"
	"github.com/phrazzld/scry-drill/internal/platform/logger"
	"github.com/phrazzld/scry-drill/internal/platform/memory"
	"github.com/phrazzld/scry-drill/internal/service/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSweeper struct {
	mu    sync.Mutex
	calls []time.Time
}

func (s *recordingSweeper) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, now)
	return 0
}

type countingNotifier struct {
	mu    sync.Mutex
	users []int64
}

func (n *countingNotifier) Notify(_ context.Context, r Reminder) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, r.UserID)
	return "", nil
}

// blockingNotifier holds every reminder until its context ends.
type blockingNotifier struct {
	started chan struct{}
	once    sync.Once
}

func (n *blockingNotifier) Notify(ctx context.Context, _ Reminder) (string, error) {
	n.once.Do(func() { close(n.started) })
	<-ctx.Done()
	return "", ctx.Err()
}

func newTestJob(t *testing.T, now time.Time) (*Job, *countingNotifier) {
	t.Helper()
	notifier := &countingNotifier{}
	return newTestJobWith(t, now, notifier), notifier
}

func newTestJobWith(t *testing.T, now time.Time, notifier Notifier) *Job {
	t.Helper()
	ctx := context.Background()

	s := memory.New()
	l, err := domain.NewLearner(1, now.Add(-24*time.Hour))
	require.NoError(t, err)
	l.Timezone = "UTC"
	require.NoError(t, s.Learners().Create(ctx, l))
	item, err := domain.NewItem(1, "front", "back", now.Add(-time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.Items().Create(ctx, item))

	svc := review.NewService(review.Deps{
		Items:      s.Items(),
		Learners:   s.Learners(),
		Transactor: s,
		Engine:     srs.NewDefaultEngine(),
		Registry:   review.NewMemoryRegistry(0, nil),
	}, review.Config{Clock: func() time.Time { return now }}, nil)

	return NewJob(NewScheduler(s.Learners(), 0, nil, nil), svc.Selector(), svc, notifier, s.Learners(), 1, nil)
}

func TestTickerTickAndSweep(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 10, 14, 0, 5, 0, time.UTC)
	job, notifier := newTestJob(t, now)
	sweeper := &recordingSweeper{}

	ticker, err := NewTicker(job, sweeper, TickerConfig{Clock: func() time.Time { return now }}, nil)
	require.NoError(t, err)

	ticker.tick()
	assert.Equal(t, []int64{1}, notifier.users)

	ticker.sweep()
	require.Len(t, sweeper.calls, 1)
	assert.Equal(t, now, sweeper.calls[0])
}

func TestNewTickerRejectsBadSchedules(t *testing.T) {
	t.Parallel()

	job, _ := newTestJob(t, time.Now())

	_, err := NewTicker(job, &recordingSweeper{}, TickerConfig{Schedule: "every minute"}, nil)
	assert.ErrorContains(t, err, "invalid reminder schedule")

	// five-field specs are rejected because seconds are required
	_, err = NewTicker(job, &recordingSweeper{}, TickerConfig{SweepSchedule: "* * * * *"}, nil)
	assert.ErrorContains(t, err, "invalid sweep schedule")
}

func TestNewTickerWithoutJobOnlySweeps(t *testing.T) {
	t.Parallel()

	ticker, err := NewTicker(nil, &recordingSweeper{}, TickerConfig{Schedule: "not used"}, nil)
	require.NoError(t, err)
	assert.Len(t, ticker.cron.Entries(), 1)

	job, _ := newTestJob(t, time.Now())
	ticker, err = NewTicker(job, &recordingSweeper{}, TickerConfig{}, nil)
	require.NoError(t, err)
	assert.Len(t, ticker.cron.Entries(), 2)
}

func TestTickerStartStop(t *testing.T) {
	t.Parallel()

	job, _ := newTestJob(t, time.Now())
	ticker, err := NewTicker(job, &recordingSweeper{}, TickerConfig{}, nil)
	require.NoError(t, err)

	ticker.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, ticker.Stop(ctx))
}

func TestTickerStopCancelsRunningReminders(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 10, 14, 0, 5, 0, time.UTC)
	notifier := &blockingNotifier{started: make(chan struct{})}
	job := newTestJobWith(t, now, notifier)
	ticker, err := NewTicker(job, &recordingSweeper{}, TickerConfig{Clock: func() time.Time { return now }}, nil)
	require.NoError(t, err)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker.tick()
	}()

	select {
	case <-notifier.started:
	case <-time.After(5 * time.Second):
		t.Fatal("reminder was never sent")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ticker.Stop(ctx))

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("tick kept running after Stop")
	}
	assert.ErrorIs(t, ticker.ctx.Err(), context.Canceled)
}

func TestCronLoggerRedactsErrors(t *testing.T) {
	t.Parallel()

	log, buf := logger.NewTestLogger()
	cl := cronLogger{logger: log}

	cl.Info("schedule", "entry", 1)
	cl.Error(errors.New("dial postgres://scry:hunter2@db:5432/scry failed"), "panic", "entry", 2)

	entries := buf.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "DEBUG", entries[0]["level"])
	assert.Equal(t, "ERROR", entries[1]["level"])
	assert.NotContains(t, entries[1]["error"], "hunter2")
}
