package repository

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

func TestPostgresAchievementRepository_Integration(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresAchievementRepository(db, nil)
	ctx := context.Background()
	userID := insertTestUser(t, db)

	catalog := domain.DefaultAchievementCatalog()
	require.NoError(t, repo.SeedDefinitions(ctx, catalog))
	require.NoError(t, repo.SeedDefinitions(ctx, catalog), "seeding twice must be idempotent")

	defs, err := repo.ListDefinitions(ctx)
	require.NoError(t, err)
	require.Len(t, defs, len(catalog))
	for _, d := range defs {
		assert.NotEmpty(t, d.Criteria.Type, "criteria of %s must round-trip", d.ID)
	}

	earnedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.SaveProgress(ctx, []domain.UserAchievementProgress{
		{UserID: userID, AchievementID: "first_habit", Progress: 100, Earned: true, EarnedAt: &earnedAt, UpdatedAt: earnedAt},
		{UserID: userID, AchievementID: "task_master", Progress: 20, UpdatedAt: earnedAt},
	}))

	t.Run("Earned Rows Are Frozen", func(t *testing.T) {
		require.NoError(t, repo.SaveProgress(ctx, []domain.UserAchievementProgress{
			{UserID: userID, AchievementID: "first_habit", Progress: 0, UpdatedAt: time.Now().UTC()},
			{UserID: userID, AchievementID: "task_master", Progress: 40, UpdatedAt: time.Now().UTC()},
		}))

		progress, err := repo.ListProgress(ctx, userID)
		require.NoError(t, err)
		require.Len(t, progress, 2)

		assert.Equal(t, "first_habit", progress[0].AchievementID)
		assert.True(t, progress[0].Earned)
		assert.Equal(t, 100.0, progress[0].Progress)
		require.NotNil(t, progress[0].EarnedAt)
		assert.True(t, progress[0].EarnedAt.Equal(earnedAt))

		assert.Equal(t, "task_master", progress[1].AchievementID)
		assert.Equal(t, 40.0, progress[1].Progress)
		assert.False(t, progress[1].Earned)
	})
}

func TestDecodeCriteria(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	t.Run("Valid JSON", func(t *testing.T) {
		c := decodeCriteria(logger, "first_habit", []byte(`{"type":"count","target":1,"path":"habits.created"}`))
		assert.Equal(t, domain.CriteriaCount, c.Type)
		assert.Equal(t, 1.0, c.Target)
		assert.Empty(t, buf.String())
	})

	t.Run("Corrupt JSON Is Logged With Its Id", func(t *testing.T) {
		c := decodeCriteria(logger, "broken_badge", []byte(`{"type":`))
		assert.Equal(t, domain.Criteria{}, c)
		assert.Contains(t, buf.String(), "achievement_id=broken_badge")
		assert.Contains(t, buf.String(), "undecodable achievement criteria")
	})
}
