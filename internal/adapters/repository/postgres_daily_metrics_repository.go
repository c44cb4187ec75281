package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

// PostgresDailyMetricsRepository keeps counters consistent under concurrency by
// applying every increment as a single INSERT ... ON CONFLICT statement.
type PostgresDailyMetricsRepository struct {
	db *sqlx.DB
}

func NewPostgresDailyMetricsRepository(db *sqlx.DB) *PostgresDailyMetricsRepository {
	return &PostgresDailyMetricsRepository{db: db}
}

type metricsRow struct {
	domain.DailyMetrics
	GoalProgressJSON []byte `db:"goal_progress"`
}

const metricsColumns = `user_id, date, tasks_completed, tasks_created, habit_completion_rate,
	goal_progress, focus_time_minutes, productivity_score, day_rating, created_at, updated_at`

func (row metricsRow) toDomain() (*domain.DailyMetrics, error) {
	m := row.DailyMetrics
	m.Date = domain.CalendarDay(m.Date)
	m.GoalProgress = []domain.GoalProgress{}
	if len(row.GoalProgressJSON) > 0 {
		if err := json.Unmarshal(row.GoalProgressJSON, &m.GoalProgress); err != nil {
			return nil, fmt.Errorf("failed to unmarshal goal progress: %w", err)
		}
	}
	return &m, nil
}

func (r *PostgresDailyMetricsRepository) Get(ctx context.Context, userID string, day time.Time) (*domain.DailyMetrics, error) {
	var row metricsRow
	query := `SELECT ` + metricsColumns + ` FROM daily_metrics WHERE user_id = $1 AND date = $2`

	if err := r.db.GetContext(ctx, &row, query, userID, domain.CalendarDay(day)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMetricsNotFound
		}
		return nil, fmt.Errorf("get metrics failed: %w", err)
	}
	return row.toDomain()
}

func (r *PostgresDailyMetricsRepository) Ensure(ctx context.Context, userID string, day time.Time) (*domain.DailyMetrics, error) {
	query := `
		INSERT INTO daily_metrics (user_id, date) VALUES ($1, $2)
		ON CONFLICT (user_id, date) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, userID, domain.CalendarDay(day)); err != nil {
		return nil, fmt.Errorf("ensure metrics failed: %w", err)
	}
	return r.Get(ctx, userID, day)
}

func (r *PostgresDailyMetricsRepository) Increment(ctx context.Context, userID string, day time.Time, d domain.MetricsCounters) error {
	query := `
		INSERT INTO daily_metrics (user_id, date, tasks_completed, tasks_created, focus_time_minutes)
		VALUES ($1, $2, GREATEST($3, 0), GREATEST($4, 0), GREATEST($5, 0))
		ON CONFLICT (user_id, date) DO UPDATE SET
			tasks_completed    = GREATEST(daily_metrics.tasks_completed + $3, 0),
			tasks_created      = GREATEST(daily_metrics.tasks_created + $4, 0),
			focus_time_minutes = GREATEST(daily_metrics.focus_time_minutes + $5, 0),
			updated_at         = NOW()`

	_, err := r.db.ExecContext(ctx, query, userID, domain.CalendarDay(day), d.TasksCompleted, d.TasksCreated, d.FocusTimeMinutes)
	if err != nil {
		return fmt.Errorf("increment metrics failed: %w", err)
	}
	return nil
}

func (r *PostgresDailyMetricsRepository) SetDayRating(ctx context.Context, userID string, day time.Time, rating int) error {
	query := `
		INSERT INTO daily_metrics (user_id, date, day_rating) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, date) DO UPDATE SET day_rating = EXCLUDED.day_rating, updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, userID, domain.CalendarDay(day), rating); err != nil {
		return fmt.Errorf("set day rating failed: %w", err)
	}
	return nil
}

func (r *PostgresDailyMetricsRepository) SaveDerived(ctx context.Context, userID string, day time.Time, d domain.MetricsDerived) error {
	goals := d.GoalProgress
	if goals == nil {
		goals = []domain.GoalProgress{}
	}
	goalsJSON, err := json.Marshal(goals)
	if err != nil {
		return fmt.Errorf("failed to marshal goal progress: %w", err)
	}

	query := `
		INSERT INTO daily_metrics (user_id, date, habit_completion_rate, goal_progress, productivity_score)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, date) DO UPDATE SET
			habit_completion_rate = EXCLUDED.habit_completion_rate,
			goal_progress         = EXCLUDED.goal_progress,
			productivity_score    = EXCLUDED.productivity_score,
			updated_at            = NOW()`

	_, err = r.db.ExecContext(ctx, query, userID, domain.CalendarDay(day), d.HabitCompletionRate, goalsJSON, d.ProductivityScore)
	if err != nil {
		return fmt.Errorf("save derived metrics failed: %w", err)
	}
	return nil
}

func (r *PostgresDailyMetricsRepository) ListRange(ctx context.Context, userID string, from, to time.Time) ([]domain.DailyMetrics, error) {
	var rows []metricsRow
	query := `
		SELECT ` + metricsColumns + ` FROM daily_metrics
		WHERE user_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date ASC`

	if err := r.db.SelectContext(ctx, &rows, query, userID, domain.CalendarDay(from), domain.CalendarDay(to)); err != nil {
		return nil, fmt.Errorf("list metrics failed: %w", err)
	}

	out := make([]domain.DailyMetrics, 0, len(rows))
	for _, row := range rows {
		m, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, nil
}

func (r *PostgresDailyMetricsRepository) TotalFocusMinutes(ctx context.Context, userID string) (int, error) {
	var total int
	query := `SELECT COALESCE(SUM(focus_time_minutes), 0) FROM daily_metrics WHERE user_id = $1`

	if err := r.db.GetContext(ctx, &total, query, userID); err != nil {
		return 0, fmt.Errorf("total focus failed: %w", err)
	}
	return total, nil
}
