package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

type PostgresGoalRepository struct {
	db *sqlx.DB
}

func NewPostgresGoalRepository(db *sqlx.DB) *PostgresGoalRepository {
	return &PostgresGoalRepository{db: db}
}

func (r *PostgresGoalRepository) Create(ctx context.Context, g *domain.Goal) error {
	query := `
		INSERT INTO goals (id, user_id, title, progress, completed, completed_at, created_at, updated_at)
		VALUES (:id, :user_id, :title, :progress, :completed, :completed_at, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, g); err != nil {
		return fmt.Errorf("failed to insert goal: %w", err)
	}
	return nil
}

func (r *PostgresGoalRepository) GetByID(ctx context.Context, id string) (*domain.Goal, error) {
	var g domain.Goal
	if err := r.db.GetContext(ctx, &g, `SELECT * FROM goals WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrGoalNotFound
		}
		return nil, fmt.Errorf("get goal failed: %w", err)
	}
	return &g, nil
}

func (r *PostgresGoalRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Goal, error) {
	goals := []*domain.Goal{}
	if err := r.db.SelectContext(ctx, &goals, `SELECT * FROM goals WHERE user_id = $1 ORDER BY created_at ASC`, userID); err != nil {
		return nil, fmt.Errorf("list goals failed: %w", err)
	}
	return goals, nil
}

func (r *PostgresGoalRepository) UpdateProgress(ctx context.Context, g *domain.Goal) error {
	query := `
		UPDATE goals
		SET progress = :progress, completed = :completed, completed_at = :completed_at, updated_at = :updated_at
		WHERE id = :id`

	res, err := r.db.NamedExecContext(ctx, query, g)
	if err != nil {
		return fmt.Errorf("update goal failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrGoalNotFound
	}
	return nil
}
