package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

type PostgresAchievementRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewPostgresAchievementRepository(db *sqlx.DB, logger *slog.Logger) *PostgresAchievementRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAchievementRepository{db: db, logger: logger}
}

type definitionRow struct {
	domain.AchievementDefinition
	CriteriaJSON []byte `db:"criteria"`
}

func (r *PostgresAchievementRepository) SeedDefinitions(ctx context.Context, defs []domain.AchievementDefinition) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO achievement_definitions (id, title, description, category, points, rarity, criteria)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title       = EXCLUDED.title,
			description = EXCLUDED.description,
			category    = EXCLUDED.category,
			points      = EXCLUDED.points,
			rarity      = EXCLUDED.rarity,
			criteria    = EXCLUDED.criteria`

	for _, d := range defs {
		criteria, err := json.Marshal(d.Criteria)
		if err != nil {
			return fmt.Errorf("failed to marshal criteria for %s: %w", d.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query, d.ID, d.Title, d.Description, d.Category, d.Points, d.Rarity, criteria); err != nil {
			return fmt.Errorf("seed definition %s failed: %w", d.ID, err)
		}
	}

	return tx.Commit()
}

// ListDefinitions decodes criteria leniently: a row whose JSON cannot be read
// keeps a zero Criteria so evaluation reports it instead of failing the batch.
func (r *PostgresAchievementRepository) ListDefinitions(ctx context.Context) ([]domain.AchievementDefinition, error) {
	var rows []definitionRow
	query := `SELECT id, title, description, category, points, rarity, criteria FROM achievement_definitions ORDER BY id ASC`

	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list definitions failed: %w", err)
	}

	defs := make([]domain.AchievementDefinition, 0, len(rows))
	for _, row := range rows {
		d := row.AchievementDefinition
		d.Criteria = decodeCriteria(r.logger, d.ID, row.CriteriaJSON)
		defs = append(defs, d)
	}
	return defs, nil
}

func decodeCriteria(logger *slog.Logger, id string, raw []byte) domain.Criteria {
	var c domain.Criteria
	if err := json.Unmarshal(raw, &c); err != nil {
		logger.Warn("undecodable achievement criteria", "achievement_id", id, "error", err)
		return domain.Criteria{}
	}
	return c
}

func (r *PostgresAchievementRepository) ListProgress(ctx context.Context, userID string) ([]domain.UserAchievementProgress, error) {
	progress := []domain.UserAchievementProgress{}
	query := `
		SELECT user_id, achievement_id, progress, earned, earned_at, updated_at
		FROM user_achievements WHERE user_id = $1 ORDER BY achievement_id ASC`

	if err := r.db.SelectContext(ctx, &progress, query, userID); err != nil {
		return nil, fmt.Errorf("list progress failed: %w", err)
	}
	return progress, nil
}

func (r *PostgresAchievementRepository) SaveProgress(ctx context.Context, progress []domain.UserAchievementProgress) error {
	if len(progress) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO user_achievements (user_id, achievement_id, progress, earned, earned_at, updated_at)
		VALUES (:user_id, :achievement_id, :progress, :earned, :earned_at, :updated_at)
		ON CONFLICT (user_id, achievement_id) DO UPDATE SET
			progress   = EXCLUDED.progress,
			earned     = EXCLUDED.earned,
			earned_at  = EXCLUDED.earned_at,
			updated_at = EXCLUDED.updated_at
		WHERE NOT user_achievements.earned`

	for i := range progress {
		if _, err := tx.NamedExecContext(ctx, query, progress[i]); err != nil {
			return fmt.Errorf("save progress %s failed: %w", progress[i].AchievementID, err)
		}
	}

	return tx.Commit()
}
