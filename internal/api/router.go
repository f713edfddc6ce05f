package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-drill/internal/api/middleware"
	"github.com/phrazzld/scry-drill/internal/service/auth"
)

// RouterDeps are the collaborators of the HTTP router.
type RouterDeps struct {
	Reviews ReviewService
	Due     DueItemLister
	JWT     auth.JWTService
	Logger  *slog.Logger
}

// NewRouter builds the HTTP routes. Everything under /api requires a bearer
// token whose subject is the learner id.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reviewHandler := NewReviewHandler(deps.Reviews, deps.Due, logger)
	authMiddleware := middleware.NewAuthMiddleware(deps.JWT)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.Trace(logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health check response", slog.Any("error", err))
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Get("/items/due", reviewHandler.ListDue)
		r.Get("/stats", reviewHandler.Stats)

		r.Route("/reviews", func(r chi.Router) {
			r.Post("/", reviewHandler.Start)
			r.Delete("/", reviewHandler.End)
			r.Get("/current", reviewHandler.Current)
			r.Post("/reveal", reviewHandler.Reveal)
			r.Post("/rate", reviewHandler.Rate)
			r.Post("/answer", reviewHandler.SubmitAnswer)
			r.Post("/partial", reviewHandler.ResolvePartial)
			r.Post("/give-up", reviewHandler.GiveUp)
		})
	})

	return r
}
