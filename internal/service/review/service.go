package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-drill/internal/domain"
	"github.com/phrazzld/scry-drill/internal/domain/grading"
	"github.com/phrazzld/scry-drill/internal/domain/srs"
	"github.com/phrazzld/scry-drill/internal/platform/logger"
	"github.com/phrazzld/scry-drill/internal/redact"
	"github.com/phrazzld/scry-drill/internal/store"
)

// View is what the presentation layer needs to render a session.
type View struct {
	UserID     int64             `json:"user_id"`
	State      State             `json:"state"`
	Mode       domain.ReviewMode `json:"mode"`
	ItemID     uuid.UUID         `json:"item_id"` // uuid.Nil when completed
	Prompt     string            `json:"prompt,omitempty"`
	Answer     string            `json:"answer,omitempty"` // set once revealed
	Position   int               `json:"position"`
	Total      int               `json:"total"`
	Knew       int               `json:"knew"`
	DidNotKnow int               `json:"did_not_know"`
	OutputRef  string            `json:"output_ref,omitempty"`

	// Intervals previews the delay until the item is due again for each
	// rating. Only set while a rating is awaited.
	Intervals map[domain.Rating]time.Duration `json:"intervals,omitempty"`
}

// Outcome reports what an answering action did.
type Outcome struct {
	ItemID uuid.UUID     `json:"item_id"`
	Rating domain.Rating `json:"rating,omitempty"`

	// Match is the grading of a typed answer, nil in reveal mode.
	Match *grading.Match `json:"match,omitempty"`

	// Pending is set when a typed answer matched partially and the learner
	// has to confirm it. Nothing was recorded.
	Pending bool `json:"pending,omitempty"`

	// Skipped is set when the item no longer existed. Nothing was recorded.
	Skipped bool `json:"skipped,omitempty"`

	Item          *domain.Item         `json:"item,omitempty"`
	TodayReviewed int                  `json:"today_reviewed,omitempty"`
	Stats         *domain.LearnerStats `json:"stats,omitempty"`

	// Next is the session after the action. It is nil when the rating was
	// recorded but the next item could not be loaded; Current retries.
	Next *View `json:"next,omitempty"`
}

// Deps are the collaborators of Service.
type Deps struct {
	Items      store.ItemStore
	Learners   store.LearnerStore
	Transactor store.Transactor
	Engine     srs.Engine
	Registry   Registry
}

// Config tunes Service. Zero values select the defaults.
type Config struct {
	MinimumBatch    int
	EasyLatency     time.Duration
	Thresholds      grading.Thresholds
	DefaultTimezone *time.Location
	Clock           func() time.Time
}

// Service runs review sessions for many learners. Operations on one
// learner's session are serialised; different learners proceed in parallel.
type Service struct {
	items    store.ItemStore
	learners store.LearnerStore
	tx       store.Transactor
	engine   srs.Engine
	registry Registry
	selector *Selector
	recorder *Recorder
	matcher  *grading.Matcher
	inferrer grading.Inferrer

	minimumBatch int
	fallback     *time.Location
	clock        func() time.Time
	logger       *slog.Logger
}

// NewService creates a Service.
func NewService(deps Deps, cfg Config, logger *slog.Logger) *Service {
	if deps.Items == nil {
		panic("items cannot be nil")
	}
	if deps.Learners == nil {
		panic("learners cannot be nil")
	}
	if deps.Transactor == nil {
		panic("transactor cannot be nil")
	}
	if deps.Engine == nil {
		panic("engine cannot be nil")
	}
	if deps.Registry == nil {
		panic("registry cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	fallback := cfg.DefaultTimezone
	if fallback == nil {
		fallback = time.UTC
	}
	thresholds := cfg.Thresholds
	if thresholds == (grading.Thresholds{}) {
		thresholds = grading.DefaultThresholds()
	}
	minimumBatch := cfg.MinimumBatch
	if minimumBatch <= 0 {
		minimumBatch = DefaultMinimumBatch
	}

	return &Service{
		items:        deps.Items,
		learners:     deps.Learners,
		tx:           deps.Transactor,
		engine:       deps.Engine,
		registry:     deps.Registry,
		selector:     NewSelector(deps.Items, clock, logger),
		recorder:     NewRecorder(deps.Transactor, deps.Engine, fallback, logger),
		matcher:      grading.NewMatcher(thresholds),
		inferrer:     grading.NewInferrer(cfg.EasyLatency),
		minimumBatch: minimumBatch,
		fallback:     fallback,
		clock:        clock,
		logger:       logger.With(slog.String("component", "review_service")),
	}
}

// Selector returns the due item selector used by the service.
func (s *Service) Selector() *Selector {
	return s.selector
}

// Start begins a new session for the learner, replacing any previous one,
// and presents the first item that still exists.
//
// Returns ErrNoItemsDue when nothing is due and store.ErrUserNotFound when
// the learner is unknown.
func (s *Service) Start(ctx context.Context, userID int64) (*View, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.clock().UTC()

	learner, err := s.learners.FindUser(ctx, userID)
	if err != nil {
		return nil, NewServiceError("start", "failed to load learner", err)
	}

	local, tzErr := learner.LocalTime(now, s.fallback)
	if tzErr != nil {
		log.Warn("unknown learner timezone, using fallback",
			slog.Int64("user_id", userID),
			slog.String("timezone", learner.Timezone),
			slog.String("fallback", s.fallback.String()))
	}

	limit := RecommendedLimit(learner.DailyGoal, learner.ReviewedOn(local), s.minimumBatch)
	items, err := s.selector.SelectDue(ctx, userID, limit)
	if err != nil {
		return nil, NewServiceError("start", "failed to select due items", err)
	}
	if len(items) == 0 {
		log.Debug("no items due", slog.Int64("user_id", userID))
		return nil, ErrNoItemsDue
	}

	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	sess := s.replaceSession(userID, func() *Session {
		sess := NewSession(userID, learner.ReviewMode, ids, now)
		// Registered locked so no other operation sees it before the first
		// item is presented.
		sess.mu.Lock()
		return sess
	})
	defer sess.mu.Unlock()

	log.Info("review session started",
		slog.Int64("user_id", userID),
		slog.Int("items", len(ids)),
		slog.Int("limit", limit),
		slog.String("mode", string(sess.Mode())))

	view, err := s.nextView(ctx, sess, now)
	if err != nil {
		return nil, NewServiceError("start", "failed to present first item", err)
	}
	return view, nil
}

// Current returns the learner's session as it stands, presenting the next
// item if none is shown.
func (s *Service) Current(ctx context.Context, userID int64) (*View, error) {
	sess, unlock, err := s.lockSession(userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.clock().UTC()
	sess.Touch(now)

	view, err := s.nextView(ctx, sess, now)
	if err != nil {
		return nil, NewServiceError("current", "failed to load current item", err)
	}
	return view, nil
}

// Reveal shows the answer of the current item (reveal mode).
func (s *Service) Reveal(ctx context.Context, userID int64) (*View, error) {
	sess, unlock, err := s.lockSession(userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.clock().UTC()
	sess.Touch(now)

	if err := sess.expect(StateAwaitingReveal); err != nil {
		return nil, err
	}

	item, skipped, err := s.currentItem(ctx, sess, now)
	if err != nil {
		return nil, NewServiceError("reveal", "failed to load current item", err)
	}
	if !skipped {
		if err := sess.Reveal(); err != nil {
			return nil, err
		}
	}
	return s.view(ctx, sess, item, now), nil
}

// Rate records the learner's own rating of the revealed item (reveal mode).
func (s *Service) Rate(ctx context.Context, userID int64, rating domain.Rating) (*Outcome, error) {
	if !rating.Valid() {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidRating, int(rating))
	}

	sess, unlock, err := s.lockSession(userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.clock().UTC()
	sess.Touch(now)

	if err := sess.expect(StateAwaitingRating); err != nil {
		return nil, err
	}
	return s.record(ctx, "rate", sess, rating, nil, now)
}

// SubmitAnswer grades a typed answer (typing mode). Exact and wrong answers
// are recorded with the inferred rating. A partial match is not recorded:
// the session waits for ResolvePartial.
func (s *Service) SubmitAnswer(ctx context.Context, userID int64, answer string) (*Outcome, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	sess, unlock, err := s.lockSession(userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.clock().UTC()
	sess.Touch(now)

	if err := sess.expect(StateAwaitingTypedAnswer); err != nil {
		return nil, err
	}

	item, skipped, err := s.currentItem(ctx, sess, now)
	if err != nil {
		return nil, NewServiceError("submit_answer", "failed to load current item", err)
	}
	if skipped {
		return &Outcome{Skipped: true, Next: s.view(ctx, sess, item, now)}, nil
	}

	match := s.matcher.Compare(answer, item.Back)
	latency := sess.Latency(now)

	log.Debug("typed answer graded",
		slog.Int64("user_id", userID),
		slog.String("item_id", item.ID.String()),
		slog.String("match", match.String()),
		slog.Duration("latency", latency))

	if match == grading.MatchPartial {
		if err := sess.AwaitDecision(); err != nil {
			return nil, err
		}
		return &Outcome{
			ItemID:  item.ID,
			Match:   &match,
			Pending: true,
			Next:    s.view(ctx, sess, item, now),
		}, nil
	}

	rating := s.inferrer.Infer(match, latency)
	return s.record(ctx, "submit_answer", sess, rating, &match, now)
}

// ResolvePartial settles a partial match: accepted counts as Good, rejected
// as Again.
func (s *Service) ResolvePartial(ctx context.Context, userID int64, accept bool) (*Outcome, error) {
	sess, unlock, err := s.lockSession(userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.clock().UTC()
	sess.Touch(now)

	if err := sess.expect(StateAwaitingPartialDecision); err != nil {
		return nil, err
	}

	rating := domain.RatingAgain
	if accept {
		rating = domain.RatingGood
	}
	match := grading.MatchPartial
	return s.record(ctx, "resolve_partial", sess, rating, &match, now)
}

// GiveUp records Again for the current item in typing mode, when the learner
// does not remember the answer.
func (s *Service) GiveUp(ctx context.Context, userID int64) (*Outcome, error) {
	sess, unlock, err := s.lockSession(userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.clock().UTC()
	sess.Touch(now)

	if err := sess.expect(StateAwaitingTypedAnswer, StateAwaitingPartialDecision); err != nil {
		return nil, err
	}
	return s.record(ctx, "give_up", sess, domain.RatingAgain, nil, now)
}

// SetOutputRef remembers the handle of the output showing the current item,
// so the transport can edit it later.
func (s *Service) SetOutputRef(ctx context.Context, userID int64, ref string) error {
	sess, unlock, err := s.lockSession(userID)
	if err != nil {
		return err
	}
	defer unlock()

	sess.Touch(s.clock().UTC())
	return sess.SetOutputRef(ref)
}

// Stats returns the learner's progress. Item totals are counted afresh and
// the streak reads as zero once a whole local day passed without meeting
// the goal. A learner who never reviewed gets empty stats.
func (s *Service) Stats(ctx context.Context, userID int64) (*domain.LearnerStats, error) {
	now := s.clock().UTC()

	var out *domain.LearnerStats
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx store.Stores) error {
		learner, err := tx.Learners.FindUser(ctx, userID)
		if err != nil {
			return err
		}

		stats, err := tx.Stats.FindStats(ctx, userID)
		switch {
		case errors.Is(err, store.ErrStatsNotFound):
			stats = domain.NewLearnerStats(userID)
		case err != nil:
			return err
		}

		stats.TotalItems, stats.LearnedItems, err = tx.Items.CountByOwner(ctx, userID)
		if err != nil {
			return err
		}

		// unknown timezones fall back without a warning here
		local, _ := learner.LocalTime(now, s.fallback)
		stats.CurrentStreak = stats.StreakOn(local)
		out = stats
		return nil
	})
	if err != nil {
		return nil, NewServiceError("stats", "failed to load stats", err)
	}
	return out, nil
}

// End discards the learner's session. It reports whether one existed.
func (s *Service) End(userID int64) bool {
	sess, ok := s.registry.Get(userID)
	if !ok {
		return false
	}
	return s.registry.Remove(userID, sess)
}

// replaceSession registers a fresh session for the learner, evicting any
// session already registered.
func (s *Service) replaceSession(userID int64, create func() *Session) *Session {
	for {
		sess, created := s.registry.GetOrCreate(userID, create)
		if created {
			return sess
		}
		s.registry.Remove(userID, sess)
	}
}

// lockSession locks the learner's session and checks that it was not
// replaced or evicted while waiting for the lock.
func (s *Service) lockSession(userID int64) (*Session, func(), error) {
	sess, ok := s.registry.Get(userID)
	if !ok {
		return nil, nil, ErrSessionExpired
	}

	sess.mu.Lock()
	if cur, ok := s.registry.Get(userID); !ok || cur != sess {
		sess.mu.Unlock()
		return nil, nil, ErrSessionExpired
	}
	return sess, sess.mu.Unlock, nil
}

// currentItem loads the item under the cursor, skipping items that no
// longer exist, and presents it if it was not shown yet. skipped reports
// whether the cursor moved. The item is nil once the session is complete.
func (s *Service) currentItem(ctx context.Context, sess *Session, now time.Time) (*domain.Item, bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	skipped := false
	for {
		id, ok := sess.Current()
		if !ok {
			return nil, skipped, nil
		}

		item, err := s.items.FindItem(ctx, id)
		if err == nil && item.OwnerID != sess.UserID() {
			err = store.ErrItemNotFound
		}
		if errors.Is(err, store.ErrItemNotFound) {
			log.Info("skipping missing item",
				slog.Int64("user_id", sess.UserID()),
				slog.String("item_id", id.String()))
			if err := sess.Skip(); err != nil {
				return nil, skipped, err
			}
			skipped = true
			continue
		}
		if err != nil {
			return nil, skipped, err
		}

		if sess.State() == StateAwaitingPresentation {
			if err := sess.Present(now); err != nil {
				return nil, skipped, err
			}
		}
		return item, skipped, nil
	}
}

func (s *Service) nextView(ctx context.Context, sess *Session, now time.Time) (*View, error) {
	item, _, err := s.currentItem(ctx, sess, now)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sess, item, now), nil
}

// record applies rating to the current item and advances the session. The
// session is left untouched when nothing could be recorded.
func (s *Service) record(
	ctx context.Context,
	op string,
	sess *Session,
	rating domain.Rating,
	match *grading.Match,
	now time.Time,
) (*Outcome, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	id, ok := sess.Current()
	if !ok {
		return nil, ErrSessionCompleted
	}

	res, err := s.recorder.Apply(ctx, sess.UserID(), id, rating, now)
	switch {
	case errors.Is(err, store.ErrItemNotFound):
		if err := sess.Skip(); err != nil {
			return nil, err
		}
		out := &Outcome{ItemID: id, Skipped: true}
		out.Next = s.nextOrNil(ctx, sess, now)
		return out, nil
	case errors.Is(err, srs.ErrSchedulingUnavailable):
		log.Error("scheduling unavailable",
			slog.Int64("user_id", sess.UserID()),
			slog.String("item_id", id.String()),
			slog.String("error", redact.Error(err)))
		return nil, NewServiceError(op, "scheduling unavailable", err)
	case err != nil:
		log.Error("failed to record review",
			slog.Int64("user_id", sess.UserID()),
			slog.String("item_id", id.String()),
			slog.String("error", redact.Error(err)))
		return nil, NewServiceError(op, "failed to record review", err)
	}

	if err := sess.Record(rating); err != nil {
		return nil, err
	}

	out := &Outcome{
		ItemID:        id,
		Rating:        rating,
		Match:         match,
		Item:          res.Item,
		TodayReviewed: res.TodayReviewed,
		Stats:         res.Stats,
	}
	out.Next = s.nextOrNil(ctx, sess, now)

	if sess.IsComplete() {
		knew, didNotKnow := sess.Tally()
		log.Info("review session completed",
			slog.Int64("user_id", sess.UserID()),
			slog.Int("knew", knew),
			slog.Int("did_not_know", didNotKnow))
	}
	return out, nil
}

func (s *Service) nextOrNil(ctx context.Context, sess *Session, now time.Time) *View {
	view, err := s.nextView(ctx, sess, now)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to load next item",
			slog.Int64("user_id", sess.UserID()),
			slog.String("error", redact.Error(err)))
		return nil
	}
	return view
}

func (s *Service) view(ctx context.Context, sess *Session, item *domain.Item, now time.Time) *View {
	knew, didNotKnow := sess.Tally()
	v := &View{
		UserID:     sess.UserID(),
		State:      sess.State(),
		Mode:       sess.Mode(),
		Position:   sess.Position(),
		Total:      sess.Len(),
		Knew:       knew,
		DidNotKnow: didNotKnow,
		OutputRef:  sess.OutputRef(),
	}
	if item == nil {
		return v
	}

	v.ItemID = item.ID
	v.Prompt = item.Front

	switch sess.State() {
	case StateAwaitingRating:
		v.Answer = item.Back
		intervals, err := srs.Preview(s.engine, item, now)
		if err != nil {
			logger.FromContextOrDefault(ctx, s.logger).Warn("failed to preview intervals",
				slog.String("item_id", item.ID.String()),
				slog.String("error", redact.Error(err)))
			break
		}
		v.Intervals = intervals
	case StateAwaitingPartialDecision:
		v.Answer = item.Back
	}
	return v
}
