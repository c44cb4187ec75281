package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

type PostgresTaskRepository struct {
	db *sqlx.DB
}

func NewPostgresTaskRepository(db *sqlx.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{db: db}
}

func (r *PostgresTaskRepository) Create(ctx context.Context, t *domain.Task) error {
	query := `
		INSERT INTO tasks (id, user_id, title, completed, completed_at, created_at, updated_at)
		VALUES (:id, :user_id, :title, :completed, :completed_at, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: unknown user %s", domain.ErrHabitInvalidUserID, t.UserID)
		}
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (r *PostgresTaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var t domain.Task
	if err := r.db.GetContext(ctx, &t, `SELECT * FROM tasks WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task failed: %w", err)
	}
	return &t, nil
}

func (r *PostgresTaskRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Task, error) {
	tasks := []*domain.Task{}
	query := `SELECT * FROM tasks WHERE user_id = $1 ORDER BY created_at ASC`

	if err := r.db.SelectContext(ctx, &tasks, query, userID); err != nil {
		return nil, fmt.Errorf("list tasks failed: %w", err)
	}
	return tasks, nil
}

func (r *PostgresTaskRepository) SetCompleted(ctx context.Context, t *domain.Task) (bool, error) {
	query := `
		UPDATE tasks SET completed = :completed, completed_at = :completed_at, updated_at = :updated_at
		WHERE id = :id AND completed <> :completed`

	res, err := r.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return false, fmt.Errorf("update task failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *PostgresTaskRepository) CountByUserID(ctx context.Context, userID string) (int, int, error) {
	var counts struct {
		Created   int `db:"created"`
		Completed int `db:"completed"`
	}

	query := `
		SELECT count(*) AS created, count(*) FILTER (WHERE completed) AS completed
		FROM tasks WHERE user_id = $1`

	if err := r.db.GetContext(ctx, &counts, query, userID); err != nil {
		return 0, 0, fmt.Errorf("count tasks failed: %w", err)
	}
	return counts.Created, counts.Completed, nil
}

func (r *PostgresTaskRepository) ListCompletionTimes(ctx context.Context, userID string) ([]time.Time, error) {
	var times []time.Time
	query := `SELECT completed_at FROM tasks WHERE user_id = $1 AND completed AND completed_at IS NOT NULL`

	if err := r.db.SelectContext(ctx, &times, query, userID); err != nil {
		return nil, fmt.Errorf("list completion times failed: %w", err)
	}
	return times, nil
}
