package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is applied on startup; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		timezone      TEXT NOT NULL DEFAULT 'UTC',
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS habits (
		id                  TEXT PRIMARY KEY,
		user_id             TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title               TEXT NOT NULL CHECK (char_length(title) BETWEEN 1 AND 100),
		description         TEXT NOT NULL DEFAULT '',
		color               TEXT NOT NULL DEFAULT '',
		icon                TEXT NOT NULL DEFAULT '',
		frequency           TEXT NOT NULL CHECK (frequency IN ('daily', 'weekly', 'monthly')),
		frequency_config    JSONB NOT NULL DEFAULT '{}'::jsonb,
		current_streak      INT NOT NULL DEFAULT 0,
		longest_streak      INT NOT NULL DEFAULT 0,
		last_completed_date DATE,
		version             INT NOT NULL DEFAULT 1,
		created_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL,
		archived_at         TIMESTAMPTZ,
		deleted_at          TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_habits_user ON habits (user_id) WHERE deleted_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS habit_completions (
		habit_id    TEXT NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
		user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		date        DATE NOT NULL,
		completed   BOOLEAN NOT NULL,
		value       DOUBLE PRECISION CHECK (value >= 0),
		mood        SMALLINT CHECK (mood BETWEEN 1 AND 5),
		skip_reason TEXT,
		notes       TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (habit_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title        TEXT NOT NULL,
		completed    BOOLEAN NOT NULL DEFAULT FALSE,
		completed_at TIMESTAMPTZ,
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks (user_id)`,
	`CREATE TABLE IF NOT EXISTS goals (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title        TEXT NOT NULL,
		progress     DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (progress BETWEEN 0 AND 100),
		completed    BOOLEAN NOT NULL DEFAULT FALSE,
		completed_at TIMESTAMPTZ,
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS daily_metrics (
		user_id               TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		date                  DATE NOT NULL,
		tasks_completed       INT NOT NULL DEFAULT 0 CHECK (tasks_completed >= 0),
		tasks_created         INT NOT NULL DEFAULT 0 CHECK (tasks_created >= 0),
		habit_completion_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		goal_progress         JSONB NOT NULL DEFAULT '[]'::jsonb,
		focus_time_minutes    INT NOT NULL DEFAULT 0 CHECK (focus_time_minutes >= 0),
		productivity_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
		day_rating            SMALLINT CHECK (day_rating BETWEEN 1 AND 5),
		created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS achievement_definitions (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category    TEXT NOT NULL DEFAULT '',
		points      INT NOT NULL DEFAULT 0,
		rarity      TEXT NOT NULL DEFAULT 'common',
		criteria    JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_achievements (
		user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		achievement_id TEXT NOT NULL REFERENCES achievement_definitions(id) ON DELETE CASCADE,
		progress       DOUBLE PRECISION NOT NULL DEFAULT 0,
		earned         BOOLEAN NOT NULL DEFAULT FALSE,
		earned_at      TIMESTAMPTZ,
		updated_at     TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, achievement_id)
	)`,
}

func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
