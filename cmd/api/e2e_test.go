package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-analytics/internal/config"
	"github.com/comitanigiacomo/kanso-analytics/internal/core/analytics"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func testConfig() *config.Config {
	_ = godotenv.Load("../../.env")

	return &config.Config{
		Server: config.ServerConfig{Port: "0"},
		DB: config.DatabaseConfig{
			Host:         envOr("DB_HOST", "localhost"),
			Port:         envOr("DB_PORT", "5432"),
			User:         envOr("DB_USER", "kanso_user"),
			Password:     envOr("DB_PASSWORD", "secret"),
			Name:         envOr("DB_NAME", "kanso_db"),
			SSLMode:      "disable",
			MaxOpenConns: 5,
		},
		JWT:     config.JWTConfig{Secret: "e2e-secret", Issuer: "kanso-e2e", TTL: time.Hour},
		Scoring: analytics.DefaultScoringConfig(),
	}
}

func setupTestDB(t *testing.T, cfg *config.Config) *sqlx.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := openPostgres(ctx, cfg.DB)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}

	_, err = db.Exec(`TRUNCATE TABLE user_achievements, daily_metrics,
		habit_completions, habits, tasks, goals, users CASCADE`)
	require.NoError(t, err, "Failed to clean up database")

	t.Cleanup(func() { db.Close() })
	return db
}

type client struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func (c *client) call(method, path string, payload any) *httptest.ResponseRecorder {
	c.t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(c.t, json.NewEncoder(&body).Encode(payload))
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func runLifecycle(t *testing.T, a *app) {
	c := &client{t: t, router: a.router}

	t.Run("1. Register And Login", func(t *testing.T) {
		w := c.call(http.MethodPost, "/api/v1/auth/register", map[string]string{
			"email": "e2e@kanso.app", "password": "password123", "timezone": "Europe/Rome",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = c.call(http.MethodPost, "/api/v1/auth/login", map[string]string{
			"email": "e2e@kanso.app", "password": "password123",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var tok struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tok))
		require.NotEmpty(t, tok.Token)
		c.token = tok.Token
	})

	var habitID string
	t.Run("2. Create Habit Earns First Step", func(t *testing.T) {
		w := c.call(http.MethodPost, "/api/v1/habits", map[string]string{"title": "Morning Run", "frequency": "daily"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var res struct {
			Habit struct {
				ID string `json:"id"`
			} `json:"habit"`
			NewlyEarned []struct {
				Achievement string `json:"achievement"`
			} `json:"newlyEarned"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		habitID = res.Habit.ID
		require.NotEmpty(t, habitID)
		require.Len(t, res.NewlyEarned, 1)
		assert.Equal(t, "first_habit", res.NewlyEarned[0].Achievement)
	})

	t.Run("3. Track Habit Builds Streak", func(t *testing.T) {
		w := c.call(http.MethodPost, "/api/v1/habits/"+habitID+"/track", map[string]any{"completed": true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = c.call(http.MethodGet, "/api/v1/habits/"+habitID+"/stats", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var stats struct {
			Streak struct {
				Current int `json:"current"`
			} `json:"streak"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, 1, stats.Streak.Current)
	})

	t.Run("4. Complete Task And Log Focus", func(t *testing.T) {
		w := c.call(http.MethodPost, "/api/v1/tasks", map[string]string{"title": "Ship release"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var created struct {
			Task struct {
				ID string `json:"id"`
			} `json:"task"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

		w = c.call(http.MethodPost, "/api/v1/tasks/"+created.Task.ID, map[string]bool{"completed": true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = c.call(http.MethodPost, "/api/v1/productivity/focus", map[string]int{"minutes": 60})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var report struct {
			TasksCompleted      int     `json:"tasksCompleted"`
			HabitCompletionRate float64 `json:"habitCompletionRate"`
			FocusTime           int     `json:"focusTime"`
			ProductivityScore   float64 `json:"productivityScore"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		assert.Equal(t, 1, report.TasksCompleted)
		assert.Equal(t, 60, report.FocusTime)
		assert.Greater(t, report.ProductivityScore, 0.0)
		assert.LessOrEqual(t, report.ProductivityScore, 100.0)
	})

	t.Run("5. Achievements Reflect Activity", func(t *testing.T) {
		w := c.call(http.MethodGet, "/api/v1/achievements/first_task", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), `"earned":true`)
	})

	t.Run("6. Delete Habit", func(t *testing.T) {
		w := c.call(http.MethodDelete, "/api/v1/habits/"+habitID, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = c.call(http.MethodGet, "/api/v1/habits/"+habitID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestEndToEnd_InMemory(t *testing.T) {
	gin.SetMode(gin.TestMode)

	a, err := buildApp(context.Background(), testConfig(), memoryRepositories(), nil, nil, slog.Default(), time.Now())
	require.NoError(t, err)

	runLifecycle(t, a)
}

func TestEndToEnd_Postgres(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	db := setupTestDB(t, cfg)

	a, err := buildApp(context.Background(), cfg, postgresRepositories(db), db, nil, slog.Default(), time.Now())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"connected"`)

	runLifecycle(t, a)
}
