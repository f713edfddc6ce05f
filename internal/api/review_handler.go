package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/phrazzld/scry-drill/internal/api/shared"
	"github.com/phrazzld/scry-drill/internal/domain"
	"github.com/phrazzld/scry-drill/internal/platform/logger"
	"github.com/phrazzld/scry-drill/internal/service/review"
)

// DefaultDueLimit is used by GET /items/due when no limit is given.
const DefaultDueLimit = 20

// ReviewService is the part of review.Service the handlers use.
type ReviewService interface {
	Start(ctx context.Context, userID int64) (*review.View, error)
	Current(ctx context.Context, userID int64) (*review.View, error)
	Reveal(ctx context.Context, userID int64) (*review.View, error)
	Rate(ctx context.Context, userID int64, rating domain.Rating) (*review.Outcome, error)
	SubmitAnswer(ctx context.Context, userID int64, answer string) (*review.Outcome, error)
	ResolvePartial(ctx context.Context, userID int64, accept bool) (*review.Outcome, error)
	GiveUp(ctx context.Context, userID int64) (*review.Outcome, error)
	End(userID int64) bool
	Stats(ctx context.Context, userID int64) (*domain.LearnerStats, error)
}

// DueItemLister lists a learner's due items.
type DueItemLister interface {
	SelectDue(ctx context.Context, userID int64, limit int) ([]*domain.Item, error)
}

// Verify interface compliance at compile time
var (
	_ ReviewService = (*review.Service)(nil)
	_ DueItemLister = (*review.Selector)(nil)
)

// ReviewHandler handles review session requests.
type ReviewHandler struct {
	reviews ReviewService
	due     DueItemLister
	logger  *slog.Logger
}

// NewReviewHandler creates a ReviewHandler.
func NewReviewHandler(reviews ReviewService, due DueItemLister, logger *slog.Logger) *ReviewHandler {
	if reviews == nil {
		panic("reviews cannot be nil")
	}
	if due == nil {
		panic("due cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewHandler{
		reviews: reviews,
		due:     due,
		logger:  logger.With(slog.String("component", "review_handler")),
	}
}

// ListDue handles GET /items/due.
func (h *ReviewHandler) ListDue(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	query := DueItemsQuery{Limit: DefaultDueLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Limit must be a number", err)
			return
		}
		query.Limit = limit
	}
	if err := shared.ValidateRequest(query); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.ValidationMessage(err), err)
		return
	}

	items, err := h.due.SelectDue(r.Context(), userID, query.Limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, dueItemsToResponse(items))
}

// Stats handles GET /stats.
func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	stats, err := h.reviews.Stats(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// Start handles POST /reviews. It replaces any running session.
func (h *ReviewHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	view, err := h.reviews.Start(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	log.Debug("review session started", slog.Int("total", view.Total))
	shared.RespondWithJSON(w, r, http.StatusCreated, view)
}

// Current handles GET /reviews/current.
func (h *ReviewHandler) Current(w http.ResponseWriter, r *http.Request) {
	h.respondView(w, r, h.reviews.Current)
}

// Reveal handles POST /reviews/reveal.
func (h *ReviewHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	h.respondView(w, r, h.reviews.Reveal)
}

// Rate handles POST /reviews/rate.
func (h *ReviewHandler) Rate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req RateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	rating, err := domain.ParseRating(req.Rating)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.respondOutcome(w, r, func() (*review.Outcome, error) {
		return h.reviews.Rate(r.Context(), userID, rating)
	})
}

// SubmitAnswer handles POST /reviews/answer.
func (h *ReviewHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req AnswerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	h.respondOutcome(w, r, func() (*review.Outcome, error) {
		return h.reviews.SubmitAnswer(r.Context(), userID, req.Answer)
	})
}

// ResolvePartial handles POST /reviews/partial.
func (h *ReviewHandler) ResolvePartial(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req PartialRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	h.respondOutcome(w, r, func() (*review.Outcome, error) {
		return h.reviews.ResolvePartial(r.Context(), userID, *req.Accept)
	})
}

// GiveUp handles POST /reviews/give-up.
func (h *ReviewHandler) GiveUp(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	h.respondOutcome(w, r, func() (*review.Outcome, error) {
		return h.reviews.GiveUp(r.Context(), userID)
	})
}

// End handles DELETE /reviews. Ending a session that does not exist is not
// an error.
func (h *ReviewHandler) End(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if h.reviews.End(userID) {
		logger.FromContextOrDefault(r.Context(), h.logger).Debug("review session ended")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReviewHandler) respondView(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, userID int64) (*review.View, error),
) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	view, err := op(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, view)
}

func (h *ReviewHandler) respondOutcome(w http.ResponseWriter, r *http.Request, op func() (*review.Outcome, error)) {
	outcome, err := op()
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, outcome)
}
