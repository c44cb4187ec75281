package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

type PostgresHabitRepository struct {
	db *sqlx.DB
}

func NewPostgresHabitRepository(db *sqlx.DB) *PostgresHabitRepository {
	return &PostgresHabitRepository{db: db}
}

type habitRow struct {
	ID                string     `db:"id"`
	UserID            string     `db:"user_id"`
	Title             string     `db:"title"`
	Description       string     `db:"description"`
	Color             string     `db:"color"`
	Icon              string     `db:"icon"`
	Frequency         string     `db:"frequency"`
	FrequencyConfig   []byte     `db:"frequency_config"`
	CurrentStreak     int        `db:"current_streak"`
	LongestStreak     int        `db:"longest_streak"`
	LastCompletedDate *time.Time `db:"last_completed_date"`
	Version           int        `db:"version"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
	ArchivedAt        *time.Time `db:"archived_at"`
	DeletedAt         *time.Time `db:"deleted_at"`
}

const habitColumns = `id, user_id, title, description, color, icon, frequency, frequency_config,
	current_streak, longest_streak, last_completed_date, version,
	created_at, updated_at, archived_at, deleted_at`

func (row habitRow) toDomain() (*domain.Habit, error) {
	h := &domain.Habit{
		ID:          row.ID,
		UserID:      row.UserID,
		Title:       row.Title,
		Description: row.Description,
		Color:       row.Color,
		Icon:        row.Icon,
		Frequency:   domain.Frequency(row.Frequency),
		Streak: domain.StreakData{
			Current:           row.CurrentStreak,
			Longest:           row.LongestStreak,
			LastCompletedDate: row.LastCompletedDate,
		},
		CompletionHistory: []domain.CompletionEntry{},
		Version:           row.Version,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
		ArchivedAt:        row.ArchivedAt,
		DeletedAt:         row.DeletedAt,
	}

	if len(row.FrequencyConfig) > 0 {
		if err := json.Unmarshal(row.FrequencyConfig, &h.FrequencyConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal frequency config: %w", err)
		}
	}
	return h, nil
}

func (r *PostgresHabitRepository) Create(ctx context.Context, h *domain.Habit) error {
	cfgJSON, err := json.Marshal(h.FrequencyConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal frequency config: %w", err)
	}

	query := `
        INSERT INTO habits (
            id, user_id, title, description, color, icon,
            frequency, frequency_config, version, created_at, updated_at, archived_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10, $11)`

	_, err = r.db.ExecContext(ctx, query,
		h.ID, h.UserID, h.Title, h.Description, h.Color, h.Icon,
		string(h.Frequency), cfgJSON, h.CreatedAt, h.UpdatedAt, h.ArchivedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: unknown user %s", domain.ErrHabitInvalidUserID, h.UserID)
		}
		return fmt.Errorf("failed to insert habit: %w", err)
	}

	h.Version = 1
	return nil
}

func (r *PostgresHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	var row habitRow
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = $1 AND deleted_at IS NULL`

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHabitNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	h, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	if err := r.attachHistory(ctx, []*domain.Habit{h}); err != nil {
		return nil, err
	}
	return h, nil
}

func (r *PostgresHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	var rows []habitRow
	query := `
        SELECT ` + habitColumns + ` FROM habits
        WHERE user_id = $1 AND deleted_at IS NULL
        ORDER BY created_at ASC`

	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	habits := make([]*domain.Habit, 0, len(rows))
	for _, row := range rows {
		h, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}

	if err := r.attachHistory(ctx, habits); err != nil {
		return nil, err
	}
	return habits, nil
}

// attachHistory loads completion entries for all habits in one round trip.
func (r *PostgresHabitRepository) attachHistory(ctx context.Context, habits []*domain.Habit) error {
	if len(habits) == 0 {
		return nil
	}

	ids := make([]string, 0, len(habits))
	byID := make(map[string]*domain.Habit, len(habits))
	for _, h := range habits {
		ids = append(ids, h.ID)
		byID[h.ID] = h
	}

	var entries []domain.CompletionEntry
	query := `
        SELECT habit_id, user_id, date, completed, value, mood, skip_reason, notes, created_at, updated_at
        FROM habit_completions
        WHERE habit_id = ANY($1)
        ORDER BY date ASC`

	if err := r.db.SelectContext(ctx, &entries, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to load completion history: %w", err)
	}

	for _, e := range entries {
		e.Date = domain.CalendarDay(e.Date)
		if h, ok := byID[e.HabitID]; ok {
			h.CompletionHistory = append(h.CompletionHistory, e)
		}
	}
	return nil
}

func (r *PostgresHabitRepository) Update(ctx context.Context, h *domain.Habit) error {
	cfgJSON, err := json.Marshal(h.FrequencyConfig)
	if err != nil {
		return err
	}

	query := `
        UPDATE habits SET
            title=$1, description=$2, color=$3, icon=$4,
            frequency=$5, frequency_config=$6, archived_at=$7,
            updated_at=NOW(), version = version + 1
        WHERE id=$8 AND version=$9 AND deleted_at IS NULL
        RETURNING version, updated_at`

	row := r.db.QueryRowContext(ctx, query,
		h.Title, h.Description, h.Color, h.Icon,
		string(h.Frequency), cfgJSON, h.ArchivedAt,
		h.ID, h.Version,
	)

	var newVersion int
	var newUpdatedAt time.Time

	if err := row.Scan(&newVersion, &newUpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var count int
			if checkErr := r.db.GetContext(ctx, &count, `SELECT count(*) FROM habits WHERE id = $1 AND deleted_at IS NULL`, h.ID); checkErr != nil {
				return fmt.Errorf("existence check failed: %w", checkErr)
			}
			if count == 0 {
				return domain.ErrHabitNotFound
			}
			return domain.ErrHabitConflict
		}
		return fmt.Errorf("update query failed: %w", err)
	}

	h.Version = newVersion
	h.UpdatedAt = newUpdatedAt
	return nil
}

func (r *PostgresHabitRepository) Delete(ctx context.Context, id string) error {
	query := `
        UPDATE habits
        SET deleted_at = NOW(), updated_at = NOW(), version = version + 1
        WHERE id = $1 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete query failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrHabitNotFound
	}
	return nil
}

func (r *PostgresHabitRepository) UpsertEntry(ctx context.Context, e *domain.CompletionEntry) error {
	query := `
        INSERT INTO habit_completions (
            habit_id, user_id, date, completed, value, mood, skip_reason, notes, created_at, updated_at
        ) VALUES (
            :habit_id, :user_id, :date, :completed, :value, :mood, :skip_reason, :notes, :created_at, :updated_at
        )
        ON CONFLICT (habit_id, date) DO UPDATE SET
            completed   = EXCLUDED.completed,
            value       = EXCLUDED.value,
            mood        = EXCLUDED.mood,
            skip_reason = EXCLUDED.skip_reason,
            notes       = EXCLUDED.notes,
            updated_at  = EXCLUDED.updated_at`

	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrHabitNotFound
		}
		return fmt.Errorf("failed to upsert completion: %w", err)
	}
	return nil
}

// UpdateStreak touches neither version nor updated_at: the streak is derived data.
func (r *PostgresHabitRepository) UpdateStreak(ctx context.Context, id string, s domain.StreakData) error {
	query := `
        UPDATE habits
        SET current_streak = $1, longest_streak = $2, last_completed_date = $3
        WHERE id = $4`

	res, err := r.db.ExecContext(ctx, query, s.Current, s.Longest, s.LastCompletedDate, id)
	if err != nil {
		return fmt.Errorf("streak update failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrHabitNotFound
	}
	return nil
}

func (r *PostgresHabitRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM habits WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("count habits failed: %w", err)
	}
	return count, nil
}
