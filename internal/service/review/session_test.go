package review_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-drill/internal/domain"
	"github.com/phrazzld/scry-drill/internal/service/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionStart = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func newIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestSessionRevealFlow(t *testing.T) {
	t.Parallel()

	ids := newIDs(2)
	s := review.NewSession(7, domain.ReviewModeReveal, ids, sessionStart)

	assert.Equal(t, review.StateAwaitingPresentation, s.State())
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, ids[0], cur)

	require.NoError(t, s.Present(sessionStart))
	assert.Equal(t, review.StateAwaitingReveal, s.State())
	require.NoError(t, s.Reveal())
	assert.Equal(t, review.StateAwaitingRating, s.State())
	require.NoError(t, s.Record(domain.RatingGood))

	assert.Equal(t, review.StateAwaitingPresentation, s.State())
	assert.Equal(t, 1, s.Position())
	cur, ok = s.Current()
	require.True(t, ok)
	assert.Equal(t, ids[1], cur)

	require.NoError(t, s.Present(sessionStart))
	require.NoError(t, s.Reveal())
	require.NoError(t, s.Record(domain.RatingHard))

	assert.True(t, s.IsComplete())
	assert.Equal(t, review.StateCompleted, s.State())
	knew, didNotKnow := s.Tally()
	assert.Equal(t, 1, knew)
	assert.Equal(t, 1, didNotKnow)

	cur, ok = s.Current()
	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, cur)
}

func TestSessionTypingFlow(t *testing.T) {
	t.Parallel()

	s := review.NewSession(7, domain.ReviewModeTyping, newIDs(3), sessionStart)

	require.NoError(t, s.Present(sessionStart))
	assert.Equal(t, review.StateAwaitingTypedAnswer, s.State())
	require.NoError(t, s.Record(domain.RatingEasy))

	require.NoError(t, s.Present(sessionStart))
	require.NoError(t, s.AwaitDecision())
	assert.Equal(t, review.StateAwaitingPartialDecision, s.State())
	require.NoError(t, s.Record(domain.RatingAgain))

	require.NoError(t, s.Present(sessionStart))
	require.NoError(t, s.AwaitDecision())
	require.NoError(t, s.Record(domain.RatingGood))

	knew, didNotKnow := s.Tally()
	assert.Equal(t, 2, knew)
	assert.Equal(t, 1, didNotKnow)
	assert.True(t, s.IsComplete())
}

func TestSessionInvalidTransitions(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		mode domain.ReviewMode
		prep func(s *review.Session) error
		act  func(s *review.Session) error
	}{
		{
			name: "reveal before presentation",
			mode: domain.ReviewModeReveal,
			act:  func(s *review.Session) error { return s.Reveal() },
		},
		{
			name: "rate before reveal",
			mode: domain.ReviewModeReveal,
			prep: func(s *review.Session) error { return s.Present(sessionStart) },
			act:  func(s *review.Session) error { return s.Record(domain.RatingGood) },
		},
		{
			name: "present twice",
			mode: domain.ReviewModeReveal,
			prep: func(s *review.Session) error { return s.Present(sessionStart) },
			act:  func(s *review.Session) error { return s.Present(sessionStart) },
		},
		{
			name: "reveal in typing mode",
			mode: domain.ReviewModeTyping,
			prep: func(s *review.Session) error { return s.Present(sessionStart) },
			act:  func(s *review.Session) error { return s.Reveal() },
		},
		{
			name: "partial decision in reveal mode",
			mode: domain.ReviewModeReveal,
			prep: func(s *review.Session) error { return s.Present(sessionStart) },
			act:  func(s *review.Session) error { return s.AwaitDecision() },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := review.NewSession(1, tc.mode, newIDs(2), sessionStart)
			if tc.prep != nil {
				require.NoError(t, tc.prep(s))
			}
			before := s.State()

			err := tc.act(s)
			assert.ErrorIs(t, err, review.ErrInvalidTransition)
			assert.Equal(t, before, s.State(), "failed transition must not change state")
			assert.Equal(t, 0, s.Position())
		})
	}
}

func TestSessionCompletedIsTerminal(t *testing.T) {
	t.Parallel()

	s := review.NewSession(1, domain.ReviewModeReveal, newIDs(1), sessionStart)
	require.NoError(t, s.Present(sessionStart))
	require.NoError(t, s.Reveal())
	require.NoError(t, s.Record(domain.RatingGood))
	require.True(t, s.IsComplete())

	assert.ErrorIs(t, s.Present(sessionStart), review.ErrSessionCompleted)
	assert.ErrorIs(t, s.Reveal(), review.ErrSessionCompleted)
	assert.ErrorIs(t, s.AwaitDecision(), review.ErrSessionCompleted)
	assert.ErrorIs(t, s.Record(domain.RatingGood), review.ErrSessionCompleted)
	assert.ErrorIs(t, s.Skip(), review.ErrSessionCompleted)
	assert.ErrorIs(t, s.SetOutputRef("msg-1"), review.ErrSessionCompleted)
	assert.Equal(t, 1, s.Position())
}

func TestSessionEmpty(t *testing.T) {
	t.Parallel()

	s := review.NewSession(1, domain.ReviewModeReveal, nil, sessionStart)
	assert.True(t, s.IsComplete())
	assert.Equal(t, review.StateCompleted, s.State())

	cur, ok := s.Current()
	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, cur)
}

func TestSessionSkipDoesNotTally(t *testing.T) {
	t.Parallel()

	ids := newIDs(2)
	s := review.NewSession(1, domain.ReviewModeReveal, ids, sessionStart)
	require.NoError(t, s.Present(sessionStart))
	require.NoError(t, s.Reveal())

	require.NoError(t, s.Skip())
	assert.Equal(t, review.StateAwaitingPresentation, s.State())
	cur, _ := s.Current()
	assert.Equal(t, ids[1], cur)

	require.NoError(t, s.Skip())
	assert.True(t, s.IsComplete())
	knew, didNotKnow := s.Tally()
	assert.Zero(t, knew)
	assert.Zero(t, didNotKnow)
}

func TestSessionIsCompleteIffCursorAtEnd(t *testing.T) {
	t.Parallel()

	for n := 0; n <= 4; n++ {
		s := review.NewSession(1, domain.ReviewModeTyping, newIDs(n), sessionStart)
		for i := 0; i < n; i++ {
			assert.False(t, s.IsComplete())
			_, ok := s.Current()
			assert.True(t, ok)
			require.NoError(t, s.Present(sessionStart))
			require.NoError(t, s.Record(domain.RatingGood))
		}
		assert.True(t, s.IsComplete())
		assert.Equal(t, s.Len(), s.Position())
		_, ok := s.Current()
		assert.False(t, ok)
	}
}

func TestSessionRecordRejectsInvalidRating(t *testing.T) {
	t.Parallel()

	s := review.NewSession(1, domain.ReviewModeTyping, newIDs(1), sessionStart)
	require.NoError(t, s.Present(sessionStart))

	assert.ErrorIs(t, s.Record(domain.Rating(0)), domain.ErrInvalidRating)
	assert.ErrorIs(t, s.Record(domain.Rating(5)), domain.ErrInvalidRating)
	assert.Equal(t, review.StateAwaitingTypedAnswer, s.State())
}

func TestSessionLatency(t *testing.T) {
	t.Parallel()

	s := review.NewSession(1, domain.ReviewModeTyping, newIDs(2), sessionStart)
	assert.Zero(t, s.Latency(sessionStart.Add(time.Minute)), "nothing presented yet")

	require.NoError(t, s.Present(sessionStart))
	assert.Equal(t, 3*time.Second, s.Latency(sessionStart.Add(3*time.Second)))
	assert.Zero(t, s.Latency(sessionStart.Add(-time.Second)), "clock going backwards")

	require.NoError(t, s.Record(domain.RatingGood))
	assert.Zero(t, s.Latency(sessionStart.Add(time.Minute)))
}

func TestSessionUnknownModeFallsBackToReveal(t *testing.T) {
	t.Parallel()

	s := review.NewSession(1, domain.ReviewMode("voice"), newIDs(1), sessionStart)
	assert.Equal(t, domain.ReviewModeReveal, s.Mode())
	require.NoError(t, s.Present(sessionStart))
	assert.Equal(t, review.StateAwaitingReveal, s.State())
}

func TestSessionActivity(t *testing.T) {
	t.Parallel()

	s := review.NewSession(1, domain.ReviewModeReveal, newIDs(1), sessionStart)
	assert.True(t, s.LastActivity().Equal(sessionStart))

	later := sessionStart.Add(4 * time.Minute)
	s.Touch(later)
	assert.True(t, s.LastActivity().Equal(later))

	require.NoError(t, s.SetOutputRef("chat:42/msg:7"))
	assert.Equal(t, "chat:42/msg:7", s.OutputRef())
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "awaiting_reveal", review.StateAwaitingReveal.String())
	assert.Equal(t, "awaiting_partial_decision", review.StateAwaitingPartialDecision.String())
	assert.Equal(t, "completed", review.StateCompleted.String())

	text, err := review.StateAwaitingTypedAnswer.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "awaiting_typed_answer", string(text))
}

func TestStateUnmarshalText(t *testing.T) {
	t.Parallel()

	var st review.State
	require.NoError(t, st.UnmarshalText([]byte("awaiting_rating")))
	assert.Equal(t, review.StateAwaitingRating, st)

	assert.Error(t, st.UnmarshalText([]byte("sleeping")))
	assert.Equal(t, review.StateAwaitingRating, st, "unchanged on error")
}
