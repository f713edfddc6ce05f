package reminder_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/phrazzld/scry-drill/internal/domain"
	"github.com/phrazzld/scry-drill/internal/mocks"
	"github.com/phrazzld/scry-drill/internal/platform/logger"
	"github.com/phrazzld/scry-drill/internal/platform/memory"
	"github.com/phrazzld/scry-drill/internal/reminder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func newLearner(t *testing.T, id int64, edit func(l *domain.Learner)) *domain.Learner {
	t.Helper()
	l, err := domain.NewLearner(id, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	if edit != nil {
		edit(l)
	}
	return l
}

func TestEligible(t *testing.T) {
	t.Parallel()

	moscow := mustLocation(t, "Europe/Moscow")
	at := func(h, m, s int) time.Time {
		return time.Date(2026, 5, 10, h, m, s, 0, moscow)
	}

	testCases := []struct {
		name    string
		edit    func(l *domain.Learner)
		now     time.Time
		want    bool
		wantErr bool
	}{
		{
			name: "twenty seconds after a reminder",
			now:  at(9, 0, 20),
			want: true,
		},
		{
			name: "sixty-five seconds after a reminder",
			now:  at(9, 1, 5),
			want: false,
		},
		{
			name: "twenty seconds before a reminder",
			now:  at(13, 59, 40),
			want: true,
		},
		{
			name: "just inside the window",
			now:  at(20, 0, 29),
			want: true,
		},
		{
			name: "exactly at the window edge",
			now:  at(20, 0, 30),
			want: false,
		},
		{
			name: "exactly at the window edge before a reminder",
			now:  at(19, 59, 30),
			want: false,
		},
		{
			name: "between reminders",
			now:  at(11, 0, 0),
			want: false,
		},
		{
			name: "daily goal reached today",
			edit: func(l *domain.Learner) {
				l.TodayReviewed = l.DailyGoal
				l.TodayDate = time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
			},
			now:  at(9, 0, 0),
			want: false,
		},
		{
			name: "daily goal reached yesterday",
			edit: func(l *domain.Learner) {
				l.TodayReviewed = l.DailyGoal + 5
				l.TodayDate = time.Date(2026, 5, 9, 0, 0, 0, 0, time.UTC)
			},
			now:  at(9, 0, 0),
			want: true,
		},
		{
			name: "reminder at midnight seen just before it",
			edit: func(l *domain.Learner) {
				l.ReminderTimes = []domain.TimeOfDay{domain.NewTimeOfDay(0, 0)}
			},
			now:  at(23, 59, 45),
			want: true,
		},
		{
			name: "reminder at midnight seen just after it",
			edit: func(l *domain.Learner) {
				l.ReminderTimes = []domain.TimeOfDay{domain.NewTimeOfDay(0, 0)}
			},
			now:  at(0, 0, 15),
			want: true,
		},
		{
			name: "no reminder times",
			edit: func(l *domain.Learner) { l.ReminderTimes = nil },
			now:  at(9, 0, 0),
			want: false,
		},
		{
			name: "other timezone",
			edit: func(l *domain.Learner) { l.Timezone = "Asia/Tokyo" },
			// 09:00:10 in Tokyo is 03:00:10 in Moscow
			now:  at(3, 0, 10),
			want: true,
		},
		{
			name:    "unknown timezone uses the fallback",
			edit:    func(l *domain.Learner) { l.Timezone = "Nowhere/Special" },
			now:     at(9, 0, 10),
			want:    true,
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := newLearner(t, 1, tc.edit)
			got, err := reminder.Eligible(l, tc.now.UTC(), reminder.DefaultWindow, moscow)
			assert.Equal(t, tc.want, got)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSelectEligibleUsers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memory.New()
	add := func(l *domain.Learner) {
		require.NoError(t, s.Learners().Create(ctx, l))
	}
	add(newLearner(t, 1, nil))
	add(newLearner(t, 2, func(l *domain.Learner) { l.IsActive = false }))
	add(newLearner(t, 3, func(l *domain.Learner) { l.Timezone = "Asia/Tokyo" }))
	add(newLearner(t, 4, func(l *domain.Learner) { l.Timezone = "Not/AZone" }))
	add(newLearner(t, 5, func(l *domain.Learner) {
		l.ReminderTimes = []domain.TimeOfDay{domain.NewTimeOfDay(9, 1)}
	}))

	log, buf := logger.NewTestLogger()
	sched := reminder.NewScheduler(s.Learners(), 0, mustLocation(t, "Europe/Moscow"), log)

	// 06:00:20 UTC is 09:00:20 in Moscow and 15:00:20 in Tokyo
	now := time.Date(2026, 5, 10, 6, 0, 20, 0, time.UTC)
	ids, err := sched.SelectEligibleUsers(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4}, ids)

	warnings := buf.EntriesAt(slog.LevelWarn)
	require.Len(t, warnings, 1)
	assert.Equal(t, float64(4), warnings[0]["user_id"])
	assert.Equal(t, "Not/AZone", warnings[0]["timezone"])

	// a minute later only the 09:01 reminder fires
	ids, err = sched.SelectEligibleUsers(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, ids)
}

func TestSelectEligibleUsersStoreError(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("too many connections")
	learners := new(mocks.MockLearnerStore)
	learners.On("ListActive", mock.Anything).Return(nil, dbErr)

	sched := reminder.NewScheduler(learners, 0, nil, nil)
	_, err := sched.SelectEligibleUsers(context.Background(), time.Now())
	assert.ErrorIs(t, err, dbErr)
	learners.AssertExpectations(t)
}
