package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	_ = godotenv.Load("../../../.env")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		envOr("DB_USER", "kanso_user"),
		envOr("DB_PASSWORD", "secret"),
		envOr("DB_HOST", "localhost"),
		envOr("DB_PORT", "5432"),
		envOr("DB_NAME", "kanso_db"),
	)

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		t.Skipf("Skipping integration tests: database connection failed: %v", err)
	}

	require.NoError(t, Migrate(context.Background(), db))
	cleanup(t, db)
	t.Cleanup(func() {
		cleanup(t, db)
		db.Close()
	})
	return db
}

func cleanup(t *testing.T, db *sqlx.DB) {
	_, err := db.Exec(`TRUNCATE TABLE user_achievements, achievement_definitions, daily_metrics,
		habit_completions, habits, tasks, goals, users CASCADE`)
	require.NoError(t, err, "Failed to clean up database")
}

func insertTestUser(t *testing.T, db *sqlx.DB) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, 'hash', $3, $3)`, id, id+"@kanso.app", now)
	require.NoError(t, err, "Failed to create user fixture")
	return id
}
