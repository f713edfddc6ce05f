package review

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-drill/internal/domain"
)

// State is the sub-state of a review session.
type State int

// Session states.
const (
	// StateAwaitingPresentation means the current item has not been shown yet.
	StateAwaitingPresentation State = iota
	// StateAwaitingReveal means the prompt is shown and the learner has to
	// ask for the answer (reveal mode).
	StateAwaitingReveal
	// StateAwaitingRating means the answer is shown and the learner rates
	// their recall (reveal mode).
	StateAwaitingRating
	// StateAwaitingTypedAnswer means the prompt is shown and the learner has
	// to type the answer (typing mode).
	StateAwaitingTypedAnswer
	// StateAwaitingPartialDecision means a typed answer was a partial match
	// and the learner decides whether it counts as correct.
	StateAwaitingPartialDecision
	// StateCompleted is terminal.
	StateCompleted
)

// String returns the snake_case name of the state.
func (s State) String() string {
	switch s {
	case StateAwaitingPresentation:
		return "awaiting_presentation"
	case StateAwaitingReveal:
		return "awaiting_reveal"
	case StateAwaitingRating:
		return "awaiting_rating"
	case StateAwaitingTypedAnswer:
		return "awaiting_typed_answer"
	case StateAwaitingPartialDecision:
		return "awaiting_partial_decision"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateAwaitingPresentation; st <= StateCompleted; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

// Session is one learner's ordered batch of due items and the progress
// through it. It performs no I/O.
//
// Session methods do not lock. Service holds the session's mutex for the
// whole of each operation, including the store calls, so operations on one
// session are serialised. Only the last-activity timestamp is read without
// the lock, by the registry sweep.
type Session struct {
	mu sync.Mutex

	userID      int64
	mode        domain.ReviewMode
	items       []uuid.UUID
	cursor      int
	knew        int
	didNotKnow  int
	state       State
	presentedAt time.Time
	outputRef   string

	lastActivity atomic.Int64 // unix nanoseconds
}

// NewSession creates a session over a snapshot of item ids. An empty
// snapshot yields a session that is already complete. An unknown mode is
// treated as reveal mode.
func NewSession(userID int64, mode domain.ReviewMode, items []uuid.UUID, now time.Time) *Session {
	if !mode.Valid() {
		mode = domain.ReviewModeReveal
	}

	s := &Session{
		userID: userID,
		mode:   mode,
		items:  append([]uuid.UUID(nil), items...),
		state:  StateAwaitingPresentation,
	}
	if len(s.items) == 0 {
		s.state = StateCompleted
	}
	s.Touch(now)
	return s
}

// UserID returns the learner the session belongs to.
func (s *Session) UserID() int64 { return s.userID }

// Mode returns the session's review mode.
func (s *Session) Mode() domain.ReviewMode { return s.mode }

// State returns the current sub-state.
func (s *Session) State() State { return s.state }

// Len returns the number of items in the session.
func (s *Session) Len() int { return len(s.items) }

// Position returns how many items have been passed, rated or skipped.
func (s *Session) Position() int { return s.cursor }

// Tally returns the number of items the learner knew and did not know.
func (s *Session) Tally() (knew, didNotKnow int) { return s.knew, s.didNotKnow }

// OutputRef returns the opaque handle of the last presented output.
func (s *Session) OutputRef() string { return s.outputRef }

// IsComplete reports whether the cursor has passed every item.
func (s *Session) IsComplete() bool {
	return s.cursor >= len(s.items)
}

// Current returns the id of the item under the cursor. It returns
// (uuid.Nil, false) once the session is complete.
func (s *Session) Current() (uuid.UUID, bool) {
	if s.IsComplete() {
		return uuid.Nil, false
	}
	return s.items[s.cursor], true
}

// Present shows the current item: reveal mode waits for a reveal, typing
// mode waits for a typed answer. The presentation time is kept to measure
// answer latency.
func (s *Session) Present(now time.Time) error {
	if err := s.expect(StateAwaitingPresentation); err != nil {
		return err
	}

	if s.mode == domain.ReviewModeTyping {
		s.state = StateAwaitingTypedAnswer
	} else {
		s.state = StateAwaitingReveal
	}
	s.presentedAt = now
	return nil
}

// Reveal shows the answer and waits for a rating.
func (s *Session) Reveal() error {
	if err := s.expect(StateAwaitingReveal); err != nil {
		return err
	}
	s.state = StateAwaitingRating
	return nil
}

// AwaitDecision parks a partially matching typed answer until the learner
// decides whether it counts as correct.
func (s *Session) AwaitDecision() error {
	if err := s.expect(StateAwaitingTypedAnswer); err != nil {
		return err
	}
	s.state = StateAwaitingPartialDecision
	return nil
}

// Record tallies rating for the current item and moves to the next one.
// Good and Easy count as knew, Again and Hard as did not know.
func (s *Session) Record(rating domain.Rating) error {
	if !rating.Valid() {
		return fmt.Errorf("%w: %d", domain.ErrInvalidRating, int(rating))
	}
	if err := s.expect(
		StateAwaitingRating,
		StateAwaitingTypedAnswer,
		StateAwaitingPartialDecision,
	); err != nil {
		return err
	}

	if rating.Recalled() {
		s.knew++
	} else {
		s.didNotKnow++
	}
	s.advance()
	return nil
}

// Skip moves past the current item without tallying it. It is used when the
// item no longer exists.
func (s *Session) Skip() error {
	if s.state == StateCompleted {
		return ErrSessionCompleted
	}
	s.advance()
	return nil
}

// Latency returns how long the current item has been shown.
func (s *Session) Latency(now time.Time) time.Duration {
	if s.presentedAt.IsZero() {
		return 0
	}
	return max(now.Sub(s.presentedAt), 0)
}

// SetOutputRef stores the handle of the output that shows the current item.
func (s *Session) SetOutputRef(ref string) error {
	if s.state == StateCompleted {
		return ErrSessionCompleted
	}
	s.outputRef = ref
	return nil
}

// Touch records activity at now.
func (s *Session) Touch(now time.Time) {
	s.lastActivity.Store(now.UnixNano())
}

// LastActivity returns the time of the last recorded activity. It is safe
// to call without holding the session lock.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

func (s *Session) advance() {
	s.cursor++
	s.presentedAt = time.Time{}
	if s.IsComplete() {
		s.state = StateCompleted
		return
	}
	s.state = StateAwaitingPresentation
}

func (s *Session) expect(states ...State) error {
	if s.state == StateCompleted {
		return ErrSessionCompleted
	}
	for _, st := range states {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("%w: session is %s", ErrInvalidTransition, s.state)
}
