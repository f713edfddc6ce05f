package review_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/phrazzld/scry-drill/internal/domain"
	"github.com/phrazzld/scry-drill/internal/domain/srs"
	"github.com/phrazzld/scry-drill/internal/mocks"
	"github.com/phrazzld/scry-drill/internal/platform/logger"
	"github.com/phrazzld/scry-drill/internal/platform/memory"
	"github.com/phrazzld/scry-drill/internal/service/review"
	"github.com/phrazzld/scry-drill/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRecorderApply(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memory.New()
	seedLearner(t, s, 1, nil)
	item := seedItem(t, s, 1, "кошка", "cat", time.Hour)

	rec := review.NewRecorder(s, srs.NewDefaultEngine(), nil, nil)
	res, err := rec.Apply(ctx, 1, item.ID, domain.RatingGood, sessionStart)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Item.Repetitions)
	assert.Equal(t, 1, res.Item.IntervalDays)
	assert.Equal(t, sessionStart.AddDate(0, 0, 1), res.Item.DueAt)
	assert.Equal(t, domain.RatingGood, res.Entry.Rating)
	assert.Equal(t, 1, res.TodayReviewed)

	// what was returned is what is stored
	stored, err := s.Items().FindItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Item.DueAt, stored.DueAt)
	assert.Equal(t, res.Item.EaseFactor, stored.EaseFactor)
	assert.Equal(t, res.Item.IntervalDays, stored.IntervalDays)
	assert.Equal(t, res.Item.Repetitions, stored.Repetitions)

	logs, err := s.Logs().ListByItem(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, res.Entry.ID, logs[0].ID)

	res, err = rec.Apply(ctx, 1, item.ID, domain.RatingAgain, sessionStart.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, res.TodayReviewed)
	assert.Zero(t, res.Item.IntervalDays)
	assert.Equal(t, sessionStart.Add(2*time.Minute), res.Item.DueAt)
}

func TestRecorderCountsLocalDay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memory.New()
	seedLearner(t, s, 1, func(l *domain.Learner) { l.Timezone = "Asia/Tokyo" })
	item := seedItem(t, s, 1, "f", "b", time.Hour)
	rec := review.NewRecorder(s, srs.NewDefaultEngine(), nil, nil)

	// 20:00 UTC on May 10 is already May 11 in Tokyo
	late := time.Date(2026, 5, 10, 20, 0, 0, 0, time.UTC)
	_, err := rec.Apply(ctx, 1, item.ID, domain.RatingAgain, late)
	require.NoError(t, err)

	l, err := s.Learners().FindUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), l.TodayDate)
	assert.Equal(t, 1, l.TodayReviewed)
}

func TestRecorderUnknownTimezoneFallsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memory.New()
	seedLearner(t, s, 1, func(l *domain.Learner) { l.Timezone = "Mars/Olympus_Mons" })
	item := seedItem(t, s, 1, "f", "b", time.Hour)

	moscow, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	log, buf := logger.NewTestLogger()
	rec := review.NewRecorder(s, srs.NewDefaultEngine(), moscow, log)

	// 22:30 UTC is already the next day in Moscow
	late := time.Date(2026, 5, 10, 22, 30, 0, 0, time.UTC)
	res, err := rec.Apply(ctx, 1, item.ID, domain.RatingGood, late)
	require.NoError(t, err, "an unknown timezone is not fatal")
	assert.Equal(t, 1, res.TodayReviewed)

	l, err := s.Learners().FindUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), l.TodayDate)

	warnings := buf.EntriesAt(slog.LevelWarn)
	require.Len(t, warnings, 1)
	assert.Equal(t, "Mars/Olympus_Mons", warnings[0]["timezone"])
}

func TestRecorderFailuresCommitNothing(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		engine  srs.Engine
		userID  int64
		wantErr error
	}{
		{
			name:    "engine unavailable",
			engine:  unavailableEngine(),
			userID:  1,
			wantErr: srs.ErrSchedulingUnavailable,
		},
		{
			name:    "item of another learner",
			engine:  srs.NewDefaultEngine(),
			userID:  2,
			wantErr: store.ErrItemNotFound,
		},
		{
			name:    "unknown learner",
			engine:  srs.NewDefaultEngine(),
			userID:  3,
			wantErr: store.ErrUserNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s := memory.New()
			seedLearner(t, s, 1, nil)
			seedLearner(t, s, 2, nil)
			item := seedItem(t, s, 1, "f", "b", time.Hour)

			rec := review.NewRecorder(s, tc.engine, nil, nil)
			_, err := rec.Apply(ctx, tc.userID, item.ID, domain.RatingGood, sessionStart)
			assert.ErrorIs(t, err, tc.wantErr)

			stored, err := s.Items().FindItem(ctx, item.ID)
			require.NoError(t, err)
			assert.Equal(t, item, stored, "item unchanged")

			logs, err := s.Logs().ListByItem(ctx, item.ID)
			require.NoError(t, err)
			assert.Empty(t, logs)

			for _, id := range []int64{1, 2} {
				l, err := s.Learners().FindUser(ctx, id)
				require.NoError(t, err)
				assert.Zero(t, l.TodayReviewed)
				_, err = s.Stats().FindStats(ctx, id)
				assert.ErrorIs(t, err, store.ErrStatsNotFound)
			}
		})
	}
}

func TestRecorderMissingItem(t *testing.T) {
	t.Parallel()

	s := memory.New()
	seedLearner(t, s, 1, nil)
	item := seedItem(t, s, 1, "f", "b", time.Hour)
	gone := newVanishing()
	gone.Remove(item.ID)

	rec := review.NewRecorder(vanishingTx{inner: s, v: gone}, srs.NewDefaultEngine(), nil, nil)
	_, err := rec.Apply(context.Background(), 1, item.ID, domain.RatingGood, sessionStart)
	assert.ErrorIs(t, err, store.ErrItemNotFound)
}

func TestRecorderTransactionError(t *testing.T) {
	t.Parallel()

	txErr := errors.New("could not serialize access")
	tx := new(mocks.MockTransactor)
	tx.On("WithinTx", mock.Anything, mock.Anything).Return(txErr)

	rec := review.NewRecorder(tx, srs.NewDefaultEngine(), nil, nil)
	res, err := rec.Apply(context.Background(), 1, newIDs(1)[0], domain.RatingGood, sessionStart)
	assert.ErrorIs(t, err, txErr)
	assert.Nil(t, res)
	tx.AssertExpectations(t)
}

func TestRecorderStopsAtFirstStoreFailure(t *testing.T) {
	t.Parallel()

	l, err := domain.NewLearner(1, sessionStart)
	require.NoError(t, err)
	item, err := domain.NewItem(1, "perro", "dog", sessionStart.Add(-time.Hour))
	require.NoError(t, err)

	logErr := errors.New("disk full")
	items := new(mocks.MockItemStore)
	items.On("FindItem", mock.Anything, item.ID).Return(item, nil)
	items.On("UpdateItem", mock.Anything, mock.MatchedBy(func(next *domain.Item) bool {
		return next.ID == item.ID && next.Repetitions == 1
	})).Return(nil)
	learners := new(mocks.MockLearnerStore)
	learners.On("FindUser", mock.Anything, int64(1)).Return(l, nil)
	logs := new(mocks.MockReviewLogStore)
	logs.On("AppendReviewLog", mock.Anything, mock.Anything).Return(logErr)

	tx := new(mocks.MockTransactor)
	tx.On("WithinTx", mock.Anything, mock.Anything).
		Return(nil, store.Stores{Items: items, Logs: logs, Learners: learners})

	rec := review.NewRecorder(tx, srs.NewDefaultEngine(), nil, nil)
	res, err := rec.Apply(context.Background(), 1, item.ID, domain.RatingGood, sessionStart)
	assert.ErrorIs(t, err, logErr)
	assert.Nil(t, res)

	items.AssertExpectations(t)
	logs.AssertExpectations(t)
	learners.AssertNotCalled(t, "UpdateUserReviewCount", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecorderTruncatesToMicroseconds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memory.New()
	seedLearner(t, s, 1, nil)
	item := seedItem(t, s, 1, "f", "b", time.Hour)
	rec := review.NewRecorder(s, srs.NewDefaultEngine(), nil, nil)

	reviewAt := sessionStart.Add(987654321 * time.Nanosecond)
	res, err := rec.Apply(ctx, 1, item.ID, domain.RatingAgain, reviewAt)
	require.NoError(t, err)

	want := reviewAt.Truncate(time.Microsecond)
	assert.Equal(t, want, res.Entry.ReviewedAt)
	assert.Equal(t, want, res.Item.LastReviewedAt)
	assert.Equal(t, want.Add(time.Minute), res.Item.DueAt)
	assert.Equal(t, want, res.Stats.LastActivityAt)

	// a second review at the returned due time sees the item as due
	due, err := s.Items().ListDue(ctx, 1, res.Item.DueAt, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, res.Item.DueAt, due[0].DueAt)
}

func TestRecorderUpdatesStats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memory.New()
	seedLearner(t, s, 1, func(l *domain.Learner) {
		l.DailyGoal = 2
		l.Timezone = "Asia/Tokyo"
	})
	a := seedItem(t, s, 1, "uno", "one", time.Hour)
	b := seedItem(t, s, 1, "dos", "two", time.Hour)
	rec := review.NewRecorder(s, srs.NewDefaultEngine(), nil, nil)

	// 16:00 UTC is 01:00 the next day in Tokyo
	day1 := time.Date(2026, 5, 10, 16, 0, 0, 0, time.UTC)
	res, err := rec.Apply(ctx, 1, a.ID, domain.RatingGood, day1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stats.TotalItems)
	assert.Zero(t, res.Stats.CurrentStreak, "goal not met yet")
	require.Len(t, res.Stats.WeeklyHistory, 1)
	assert.Equal(t, time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), res.Stats.WeeklyHistory[0].Date)

	_, err = rec.Apply(ctx, 1, b.ID, domain.RatingGood, day1.Add(time.Minute))
	require.NoError(t, err)

	day2 := day1.AddDate(0, 0, 1)
	_, err = rec.Apply(ctx, 1, a.ID, domain.RatingAgain, day2)
	require.NoError(t, err)
	res, err = rec.Apply(ctx, 1, b.ID, domain.RatingAgain, day2.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Stats.CurrentStreak, "two goal days in a row")
	assert.Equal(t, 2, res.Stats.LongestStreak)
	require.Len(t, res.Stats.WeeklyHistory, 2)
	assert.True(t, res.Stats.WeeklyHistory[1].GoalReached)

	stored, err := s.Stats().FindStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, res.Stats, stored)
}

func TestRecorderStatsFailureRollsBack(t *testing.T) {
	t.Parallel()

	l, err := domain.NewLearner(1, sessionStart)
	require.NoError(t, err)
	item, err := domain.NewItem(1, "perro", "dog", sessionStart.Add(-time.Hour))
	require.NoError(t, err)

	saveErr := errors.New("disk full")
	items := new(mocks.MockItemStore)
	items.On("FindItem", mock.Anything, item.ID).Return(item, nil)
	items.On("UpdateItem", mock.Anything, mock.Anything).Return(nil)
	items.On("CountByOwner", mock.Anything, int64(1)).Return(1, 0, nil)
	learners := new(mocks.MockLearnerStore)
	learners.On("FindUser", mock.Anything, int64(1)).Return(l, nil)
	learners.On("UpdateUserReviewCount", mock.Anything, int64(1), domain.Day(sessionStart)).Return(1, nil)
	logs := new(mocks.MockReviewLogStore)
	logs.On("AppendReviewLog", mock.Anything, mock.Anything).Return(nil)
	stats := new(mocks.MockStatsStore)
	stats.On("FindStats", mock.Anything, int64(1)).Return(nil, store.ErrStatsNotFound)
	stats.On("SaveStats", mock.Anything, mock.MatchedBy(func(s *domain.LearnerStats) bool {
		return s.UserID == 1 && s.TotalItems == 1 && len(s.WeeklyHistory) == 1
	})).Return(saveErr)

	tx := new(mocks.MockTransactor)
	tx.On("WithinTx", mock.Anything, mock.Anything).
		Return(nil, store.Stores{Items: items, Logs: logs, Learners: learners, Stats: stats})

	rec := review.NewRecorder(tx, srs.NewDefaultEngine(), nil, nil)
	res, err := rec.Apply(context.Background(), 1, item.ID, domain.RatingGood, sessionStart)
	assert.ErrorIs(t, err, saveErr)
	assert.Nil(t, res)

	items.AssertExpectations(t)
	learners.AssertExpectations(t)
	stats.AssertExpectations(t)
}

func TestNewRecorderPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { review.NewRecorder(nil, srs.NewDefaultEngine(), nil, nil) })
	assert.Panics(t, func() { review.NewRecorder(memory.New(), nil, nil, nil) })
}
