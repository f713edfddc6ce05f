package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-drill/internal/domain"
	"github.com/phrazzld/scry-drill/internal/redact"
	"github.com/phrazzld/scry-drill/internal/store"
)

const learnerColumns = `id, daily_goal, today_reviewed, today_date, reminder_times,
	timezone, review_mode, is_active, created_at`

// dateLayout formats calendar days for DATE parameters. Sending the day as
// text keeps the session time zone out of the conversion.
const dateLayout = "2006-01-02"

// LearnerStore implements store.LearnerStore on the learners table.
type LearnerStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewLearnerStore creates a LearnerStore on a connection or transaction.
func NewLearnerStore(db store.DBTX, logger *slog.Logger) *LearnerStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LearnerStore{
		db:     db,
		logger: logger.With(slog.String("component", "learner_store")),
	}
}

var _ store.LearnerStore = (*LearnerStore)(nil)

// Create implements store.LearnerStore.
func (s *LearnerStore) Create(ctx context.Context, learner *domain.Learner) error {
	if err := learner.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	reminders, err := encodeReminders(learner.ReminderTimes)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO learners (`+learnerColumns+`)
		VALUES ($1, $2, $3, $4::date, $5::jsonb, $6, $7, $8, $9)`,
		learner.ID, learner.DailyGoal, learner.TodayReviewed, nullDate(learner.TodayDate),
		reminders, learner.Timezone, string(learner.ReviewMode), learner.IsActive,
		learner.CreatedAt.UTC(),
	)
	if err != nil {
		s.logger.Error("failed to create learner",
			slog.Int64("user_id", learner.ID),
			slog.String("error", redact.Error(err)))
		return store.NewStoreError("learner", "create", "insert failed",
			mapEntityError(err, nil, store.ErrUserExists))
	}
	return nil
}

// FindUser implements store.LearnerStore.
func (s *LearnerStore) FindUser(ctx context.Context, id int64) (*domain.Learner, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+learnerColumns+` FROM learners WHERE id = $1`, id)
	learner, err := scanLearner(row)
	if err != nil {
		mapped := mapEntityError(err, store.ErrUserNotFound, nil)
		if !errors.Is(mapped, store.ErrUserNotFound) {
			s.logger.Error("failed to find learner",
				slog.Int64("user_id", id),
				slog.String("error", redact.Error(err)))
		}
		return nil, mapped
	}
	return learner, nil
}

// UpdateUserReviewCount implements store.LearnerStore with a single UPDATE,
// so concurrent increments for the same learner serialise on the row lock.
func (s *LearnerStore) UpdateUserReviewCount(ctx context.Context, id int64, day time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		UPDATE learners
		SET today_reviewed = CASE WHEN today_date = $2::date THEN today_reviewed + 1 ELSE 1 END,
			today_date = $2::date
		WHERE id = $1
		RETURNING today_reviewed`,
		id, domain.Day(day).Format(dateLayout),
	).Scan(&count)
	if err != nil {
		mapped := mapEntityError(err, store.ErrUserNotFound, nil)
		if !errors.Is(mapped, store.ErrUserNotFound) {
			s.logger.Error("failed to increment review count",
				slog.Int64("user_id", id),
				slog.String("error", redact.Error(err)))
			return 0, store.NewStoreError("learner", "increment_review_count", "update failed", mapped)
		}
		return 0, mapped
	}
	return count, nil
}

// ListActive implements store.LearnerStore.
func (s *LearnerStore) ListActive(ctx context.Context) ([]*domain.Learner, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+learnerColumns+` FROM learners WHERE is_active ORDER BY id ASC`)
	if err != nil {
		s.logger.Error("failed to list active learners", slog.String("error", redact.Error(err)))
		return nil, store.NewStoreError("learner", "list_active", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var learners []*domain.Learner
	for rows.Next() {
		l, err := scanLearner(rows)
		if err != nil {
			return nil, store.NewStoreError("learner", "list_active", "scan failed", err)
		}
		learners = append(learners, l)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("learner", "list_active", "iteration failed", MapError(err))
	}
	return learners, nil
}

// MarkInactive implements store.LearnerStore.
func (s *LearnerStore) MarkInactive(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE learners SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return store.NewStoreError("learner", "mark_inactive", "update failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrUserNotFound)
}

func scanLearner(row scanner) (*domain.Learner, error) {
	var (
		l         domain.Learner
		todayDate sql.NullTime
		reminders []byte
		mode      string
	)
	err := row.Scan(
		&l.ID, &l.DailyGoal, &l.TodayReviewed, &todayDate, &reminders,
		&l.Timezone, &mode, &l.IsActive, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if todayDate.Valid {
		l.TodayDate = domain.Day(todayDate.Time)
	}
	if len(reminders) > 0 {
		if err := json.Unmarshal(reminders, &l.ReminderTimes); err != nil {
			return nil, fmt.Errorf("decode reminder times: %w", err)
		}
	}
	l.ReviewMode = domain.ReviewMode(mode)
	l.CreatedAt = l.CreatedAt.UTC()
	return &l, nil
}

func encodeReminders(times []domain.TimeOfDay) (string, error) {
	if times == nil {
		times = []domain.TimeOfDay{}
	}
	b, err := json.Marshal(times)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nullDate(day time.Time) sql.NullString {
	if day.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: domain.Day(day).Format(dateLayout), Valid: true}
}
