package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/scry-drill/internal/api"
	"github.com/phrazzld/scry-drill/internal/config"
	"github.com/phrazzld/scry-drill/internal/domain/grading"
	"github.com/phrazzld/scry-drill/internal/domain/srs"
	"github.com/phrazzld/scry-drill/internal/platform/memory"
	"github.com/phrazzld/scry-drill/internal/platform/postgres"
	"github.com/phrazzld/scry-drill/internal/platform/telegram"
	"github.com/phrazzld/scry-drill/internal/redact"
	"github.com/phrazzld/scry-drill/internal/reminder"
	"github.com/phrazzld/scry-drill/internal/service/auth"
	"github.com/phrazzld/scry-drill/internal/service/review"
	"github.com/phrazzld/scry-drill/internal/store"
)

// application holds the wired dependencies of the server and releases them
// on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB // nil with the memory driver

	items    store.ItemStore
	learners store.LearnerStore

	reviews  *review.Service
	registry *review.MemoryRegistry
	ticker   *reminder.Ticker
	handler  http.Handler
}

// newApplication wires stores, services, the ticker, and the router. A nil
// notifier means reminders go through the Telegram bot in cfg.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	notifier reminder.Notifier,
) (*application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &application{config: cfg, logger: logger}

	fallback, err := time.LoadLocation(cfg.Reminder.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid default timezone: %w", err)
	}

	var tx store.Transactor
	switch cfg.Database.Driver {
	case "memory":
		mem := memory.New()
		app.items, app.learners, tx = mem.Items(), mem.Learners(), mem
		logger.Warn("using in-memory storage, data is lost on exit")
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %s", redact.Error(err))
		}
		app.db = db
		stores := postgres.NewStores(db, logger)
		app.items, app.learners = stores.Items, stores.Learners
		tx = postgres.NewTransactor(db, logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	app.registry = review.NewMemoryRegistry(cfg.Review.SessionIdleTimeout, logger)
	app.reviews = review.NewService(review.Deps{
		Items:      app.items,
		Learners:   app.learners,
		Transactor: tx,
		Engine:     srs.NewDefaultEngine(),
		Registry:   app.registry,
	}, review.Config{
		MinimumBatch: cfg.Review.MinimumBatch,
		EasyLatency:  cfg.Review.EasyLatency,
		Thresholds: grading.Thresholds{
			Exact:   cfg.Review.ExactThreshold,
			Partial: cfg.Review.PartialThreshold,
		},
		DefaultTimezone: fallback,
	}, logger)

	var job *reminder.Job
	if cfg.Reminder.Enabled {
		if notifier == nil {
			notifier, err = telegram.New(cfg.Telegram.Token, logger)
			if err != nil {
				app.cleanup()
				return nil, err
			}
		}
		scheduler := reminder.NewScheduler(app.learners, cfg.Reminder.Window, fallback, logger)
		job = reminder.NewJob(scheduler, app.reviews.Selector(), app.reviews, notifier,
			app.learners, cfg.Reminder.Concurrency, logger)
	}
	app.ticker, err = reminder.NewTicker(job, app.registry, reminder.TickerConfig{
		Schedule:      cfg.Reminder.Schedule,
		SweepSchedule: cfg.Reminder.SweepSchedule,
	}, logger)
	if err != nil {
		app.cleanup()
		return nil, err
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.handler = api.NewRouter(api.RouterDeps{
		Reviews: app.reviews,
		Due:     app.reviews.Selector(),
		JWT:     jwtService,
		Logger:  logger,
	})

	return app, nil
}

// cleanup releases the database connection.
func (app *application) cleanup() {
	if app.db == nil {
		return
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", slog.String("error", redact.Error(err)))
	}
}

// issueToken mints a bearer token for userID with the configured secret.
func issueToken(ctx context.Context, cfg *config.Config, userID int64) (string, error) {
	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return "", fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	return jwtService.GenerateToken(ctx, userID)
}

// runMigrations applies a goose command to the configured database.
func runMigrations(ctx context.Context, cfg *config.Config, command string, logger *slog.Logger) error {
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("migrations need the postgres driver, got %q", cfg.Database.Driver)
	}
	db, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %s", redact.Error(err))
	}
	defer db.Close()

	return postgres.Migrate(ctx, db, command, logger)
}
