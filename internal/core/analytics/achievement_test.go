package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

var evalTime = time.Date(2026, 3, 5, 18, 30, 0, 0, time.UTC)

func snapshot() *domain.UserStatsSnapshot {
	s := domain.NewUserStatsSnapshot("user-1", refDay)
	s.Counts[domain.PathHabitsCreated] = 0
	s.Counts[domain.PathTasksCompleted] = 0
	s.Streaks[domain.PathHabitsCurrentStreak] = 0
	s.TimeEvents[domain.PathTasksEarlyBird] = false
	return s
}

func def(id string, c domain.Criteria) domain.AchievementDefinition {
	return domain.AchievementDefinition{ID: id, Criteria: c}
}

func findProgress(list []domain.UserAchievementProgress, id string) *domain.UserAchievementProgress {
	for i := range list {
		if list[i].AchievementID == id {
			return &list[i]
		}
	}
	return nil
}

func TestEvaluate_Count(t *testing.T) {
	t.Run("Count target reached earns with timestamp", func(t *testing.T) {
		stats := snapshot()
		stats.Counts[domain.PathHabitsCreated] = 1

		defs := []domain.AchievementDefinition{
			def("first_habit", domain.Criteria{Type: domain.CriteriaCount, Target: 1, Path: domain.PathHabitsCreated}),
		}

		ev := Evaluate(defs, stats, nil, evalTime)

		require.Len(t, ev.Progress, 1)
		p := ev.Progress[0]
		assert.Equal(t, 100.0, p.Progress)
		assert.True(t, p.Earned)
		require.NotNil(t, p.EarnedAt)
		assert.Equal(t, evalTime, *p.EarnedAt)

		require.Len(t, ev.NewlyEarned, 1)
		assert.Equal(t, "first_habit", ev.NewlyEarned[0].AchievementID)
	})

	t.Run("Partial progress is floored", func(t *testing.T) {
		stats := snapshot()
		stats.Counts[domain.PathTasksCompleted] = 1

		defs := []domain.AchievementDefinition{
			def("three_tasks", domain.Criteria{Type: domain.CriteriaCount, Target: 3, Path: domain.PathTasksCompleted}),
		}

		ev := Evaluate(defs, stats, nil, evalTime)

		require.Len(t, ev.Progress, 1)
		assert.Equal(t, 33.0, ev.Progress[0].Progress)
		assert.False(t, ev.Progress[0].Earned)
		assert.Nil(t, ev.Progress[0].EarnedAt)
		assert.Empty(t, ev.NewlyEarned)
	})
}

func TestEvaluate_Streak(t *testing.T) {
	stats := snapshot()
	stats.Streaks[domain.PathHabitsCurrentStreak] = 3

	defs := []domain.AchievementDefinition{
		def("week_streak", domain.Criteria{Type: domain.CriteriaStreak, Target: 7, Path: domain.PathHabitsCurrentStreak}),
	}

	ev := Evaluate(defs, stats, nil, evalTime)
	require.Len(t, ev.Progress, 1)
	assert.Equal(t, 42.0, ev.Progress[0].Progress)
}

func TestEvaluate_Time(t *testing.T) {
	defs := []domain.AchievementDefinition{
		def("early_bird", domain.Criteria{Type: domain.CriteriaTime, Target: 1, Path: domain.PathTasksEarlyBird}),
	}

	t.Run("Not occurred keeps prior progress", func(t *testing.T) {
		prior := []domain.UserAchievementProgress{{UserID: "user-1", AchievementID: "early_bird", Progress: 0}}

		ev := Evaluate(defs, snapshot(), prior, evalTime)
		require.Len(t, ev.Progress, 1)
		assert.Equal(t, 0.0, ev.Progress[0].Progress)
		assert.False(t, ev.Progress[0].Earned)
	})

	t.Run("Occurred earns", func(t *testing.T) {
		stats := snapshot()
		stats.TimeEvents[domain.PathTasksEarlyBird] = true

		ev := Evaluate(defs, stats, nil, evalTime)
		require.Len(t, ev.NewlyEarned, 1)
		assert.True(t, ev.Progress[0].Earned)
	})
}

func TestEvaluate_Complex(t *testing.T) {
	defs := []domain.AchievementDefinition{
		def("productivity_master", domain.Criteria{
			Type: domain.CriteriaComplex, Target: 5, Path: domain.PathDayProductivityScore, Threshold: 90,
		}),
	}

	history := func(scores ...float64) []domain.DailyMetrics {
		out := make([]domain.DailyMetrics, 0, len(scores))
		for i, s := range scores {
			out = append(out, domain.DailyMetrics{
				Date:              day(i - len(scores) + 1),
				ProductivityScore: s,
			})
		}
		return out
	}

	t.Run("Five qualifying days ending today earns", func(t *testing.T) {
		stats := snapshot()
		stats.DailyHistory = history(50, 91, 95, 90, 99, 92)

		ev := Evaluate(defs, stats, nil, evalTime)
		require.Len(t, ev.NewlyEarned, 1)
	})

	t.Run("Run broken by a low day", func(t *testing.T) {
		stats := snapshot()
		stats.DailyHistory = history(95, 95, 95, 80, 95, 95)

		ev := Evaluate(defs, stats, nil, evalTime)
		require.Len(t, ev.Progress, 1)
		assert.Equal(t, 40.0, ev.Progress[0].Progress)
	})

	t.Run("Today not yet qualifying counts from yesterday", func(t *testing.T) {
		stats := snapshot()
		stats.DailyHistory = history(95, 95, 95, 10)

		ev := Evaluate(defs, stats, nil, evalTime)
		assert.Equal(t, 60.0, ev.Progress[0].Progress)
	})

	t.Run("Threshold is per achievement", func(t *testing.T) {
		lenient := []domain.AchievementDefinition{
			def("lenient", domain.Criteria{Type: domain.CriteriaComplex, Target: 2, Path: domain.PathDayProductivityScore, Threshold: 50}),
		}
		stats := snapshot()
		stats.DailyHistory = history(60, 70)

		ev := Evaluate(lenient, stats, nil, evalTime)
		assert.Len(t, ev.NewlyEarned, 1)
	})
}

func TestEvaluate_MonotonicOnceEarned(t *testing.T) {
	earnedAt := evalTime.Add(-72 * time.Hour)
	prior := []domain.UserAchievementProgress{{
		UserID:        "user-1",
		AchievementID: "week_streak",
		Progress:      100,
		Earned:        true,
		EarnedAt:      &earnedAt,
		UpdatedAt:     earnedAt,
	}}

	defs := []domain.AchievementDefinition{
		def("week_streak", domain.Criteria{Type: domain.CriteriaStreak, Target: 7, Path: domain.PathHabitsCurrentStreak}),
	}

	stats := snapshot()
	stats.Streaks[domain.PathHabitsCurrentStreak] = 0

	first := Evaluate(defs, stats, prior, evalTime)
	second := Evaluate(defs, stats, first.Progress, evalTime.Add(time.Hour))

	for _, ev := range []Evaluation{first, second} {
		require.Len(t, ev.Progress, 1)
		assert.Equal(t, prior[0], ev.Progress[0], "Earned records must stay frozen")
		assert.Empty(t, ev.NewlyEarned)
	}
}

func TestEvaluate_IdempotentForNotEarned(t *testing.T) {
	stats := snapshot()
	stats.Counts[domain.PathTasksCompleted] = 2

	defs := []domain.AchievementDefinition{
		def("task_master", domain.Criteria{Type: domain.CriteriaCount, Target: 50, Path: domain.PathTasksCompleted}),
	}

	first := Evaluate(defs, stats, nil, evalTime)
	second := Evaluate(defs, stats, first.Progress, evalTime.Add(time.Hour))

	assert.Equal(t, first.Progress, second.Progress)
}

func TestEvaluate_MalformedDefinitionIsIsolated(t *testing.T) {
	stats := snapshot()
	stats.Counts[domain.PathHabitsCreated] = 1

	defs := []domain.AchievementDefinition{
		def("bad_type", domain.Criteria{Type: "vibes", Target: 1, Path: domain.PathHabitsCreated}),
		def("bad_target", domain.Criteria{Type: domain.CriteriaCount, Target: 0, Path: domain.PathHabitsCreated}),
		def("bad_path", domain.Criteria{Type: domain.CriteriaCount, Target: 1, Path: "nope.count"}),
		def("bad_complex_path", domain.Criteria{Type: domain.CriteriaComplex, Target: 1, Path: "nope", Threshold: 1}),
		def("first_habit", domain.Criteria{Type: domain.CriteriaCount, Target: 1, Path: domain.PathHabitsCreated}),
	}

	ev := Evaluate(defs, stats, nil, evalTime)

	require.Len(t, ev.Skipped, 4)
	assert.ErrorIs(t, ev.Skipped[0].Err, ErrUnknownCriteria)
	assert.ErrorIs(t, ev.Skipped[1].Err, ErrInvalidTarget)
	assert.ErrorIs(t, ev.Skipped[2].Err, ErrUnknownStatPath)
	assert.ErrorIs(t, ev.Skipped[3].Err, ErrUnknownStatPath)

	require.Len(t, ev.Progress, 1)
	assert.NotNil(t, findProgress(ev.Progress, "first_habit"))
	assert.True(t, ev.Progress[0].Earned)
}
