package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-drill/internal/redact"
	"github.com/robfig/cron/v3"
)

// Default schedules, in six-field cron syntax with seconds. Reminders fire at
// second 0 of every minute; the sweep runs half a minute later so the two
// never contend.
const (
	DefaultSchedule      = "0 * * * * *"
	DefaultSweepSchedule = "30 * * * * *"
)

// Sweeper evicts idle review sessions.
type Sweeper interface {
	Sweep(now time.Time) int
}

// TickerConfig configures a Ticker. Empty schedules use the defaults.
type TickerConfig struct {
	Schedule      string
	SweepSchedule string
	Clock         func() time.Time
}

// Ticker runs the reminder job and the session sweep periodically.
type Ticker struct {
	cron    *cron.Cron
	job     *Job
	sweeper Sweeper
	clock   func() time.Time
	logger  *slog.Logger

	// ctx bounds every reminder run; Stop cancels it.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewTicker creates a Ticker. It does not start it. A nil job disables
// reminders and leaves only the session sweep.
func NewTicker(job *Job, sweeper Sweeper, cfg TickerConfig, logger *slog.Logger) (*Ticker, error) {
	if sweeper == nil {
		panic("sweeper cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = DefaultSweepSchedule
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	logger = logger.With(slog.String("component", "reminder_ticker"))
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	t := &Ticker{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		job:     job,
		sweeper: sweeper,
		clock:   cfg.Clock,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}

	if job != nil {
		if _, err := t.cron.AddFunc(cfg.Schedule, t.tick); err != nil {
			cancel()
			return nil, fmt.Errorf("invalid reminder schedule %q: %w", cfg.Schedule, err)
		}
	}
	if _, err := t.cron.AddFunc(cfg.SweepSchedule, t.sweep); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.SweepSchedule, err)
	}
	return t, nil
}

// Start runs the schedules in the background.
func (t *Ticker) Start() {
	t.cron.Start()
	t.logger.Info("reminder ticker started", slog.Bool("reminders", t.job != nil))
}

// Stop stops scheduling, cancels a reminder run in progress and waits for
// running jobs until ctx ends.
func (t *Ticker) Stop(ctx context.Context) error {
	done := t.cron.Stop()
	t.cancel()
	select {
	case <-done.Done():
		t.logger.Info("reminder ticker stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("reminder ticker did not stop: %w", ctx.Err())
	}
}

func (t *Ticker) tick() {
	if _, err := t.job.Run(t.ctx, t.clock().UTC()); err != nil {
		t.logger.Error("reminder run failed", slog.String("error", redact.Error(err)))
	}
}

func (t *Ticker) sweep() {
	t.sweeper.Sweep(t.clock())
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", redact.Error(err))...)
}
