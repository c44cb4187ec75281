package analytics

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

var (
	ErrUnknownCriteria = errors.New("unknown criteria type")
	ErrInvalidTarget   = errors.New("criteria target must be positive")
	ErrUnknownStatPath = errors.New("unknown stat path")
)

type SkippedDefinition struct {
	AchievementID string
	Err           error
}

type Evaluation struct {
	// Progress holds one record per evaluated definition, frozen ones included.
	Progress []domain.UserAchievementProgress
	// NewlyEarned holds the records whose earned flag flipped in this evaluation.
	NewlyEarned []domain.UserAchievementProgress
	Skipped     []SkippedDefinition
}

// Evaluate computes achievement progress for one user. Records already earned
// in priorProgress are returned unchanged, so repeated calls are idempotent and
// progress never regresses once earned. A malformed definition is reported in
// Skipped and does not stop the others.
func Evaluate(defs []domain.AchievementDefinition, stats *domain.UserStatsSnapshot, prior []domain.UserAchievementProgress, now time.Time) Evaluation {
	priorByID := make(map[string]domain.UserAchievementProgress, len(prior))
	for _, p := range prior {
		priorByID[p.AchievementID] = p
	}

	var ev Evaluation
	for _, def := range defs {
		prev, hasPrev := priorByID[def.ID]
		if hasPrev && prev.Earned {
			ev.Progress = append(ev.Progress, prev)
			continue
		}

		progress, err := computeProgress(def.Criteria, stats, prev.Progress)
		if err != nil {
			ev.Skipped = append(ev.Skipped, SkippedDefinition{AchievementID: def.ID, Err: err})
			continue
		}

		rec := domain.UserAchievementProgress{
			UserID:        stats.UserID,
			AchievementID: def.ID,
			Progress:      progress,
			UpdatedAt:     now.UTC(),
		}
		if hasPrev && prev.Progress == progress {
			rec.UpdatedAt = prev.UpdatedAt
		}

		if progress >= 100 {
			earnedAt := now.UTC()
			rec.Progress = 100
			rec.Earned = true
			rec.EarnedAt = &earnedAt
			ev.NewlyEarned = append(ev.NewlyEarned, rec)
		}

		ev.Progress = append(ev.Progress, rec)
	}

	return ev
}

func computeProgress(c domain.Criteria, stats *domain.UserStatsSnapshot, prior float64) (float64, error) {
	if c.Target <= 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTarget, c.Target)
	}

	switch c.Type {
	case domain.CriteriaCount:
		v, ok := stats.Counts[c.Path]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownStatPath, c.Path)
		}
		return ratio(v, c.Target), nil

	case domain.CriteriaStreak:
		v, ok := stats.Streaks[c.Path]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownStatPath, c.Path)
		}
		return ratio(float64(v), c.Target), nil

	case domain.CriteriaTime:
		occurred, ok := stats.TimeEvents[c.Path]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownStatPath, c.Path)
		}
		if occurred {
			return 100, nil
		}
		return prior, nil

	case domain.CriteriaComplex:
		days, err := consecutiveQualifyingDays(stats.DailyHistory, c.Path, c.Threshold, stats.AsOf)
		if err != nil {
			return 0, err
		}
		return ratio(float64(days), c.Target), nil

	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCriteria, c.Type)
	}
}

func ratio(value, target float64) float64 {
	return math.Floor(100 * math.Min(math.Max(value, 0), target) / target)
}

func dayValue(m domain.DailyMetrics, path string) (float64, bool) {
	switch path {
	case domain.PathDayProductivityScore:
		return m.ProductivityScore, true
	case domain.PathDayFocusMinutes:
		return float64(m.FocusTimeMinutes), true
	case domain.PathDayHabitRate:
		return m.HabitCompletionRate, true
	case domain.PathDayTasksCompleted:
		return float64(m.TasksCompleted), true
	default:
		return 0, false
	}
}

// consecutiveQualifyingDays counts the run of calendar days, ending at asOf or
// the day before, on which the metric at path reached threshold.
func consecutiveQualifyingDays(history []domain.DailyMetrics, path string, threshold float64, asOf time.Time) (int, error) {
	if _, ok := dayValue(domain.DailyMetrics{}, path); !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownStatPath, path)
	}

	qualifying := make(map[string]bool, len(history))
	for _, m := range history {
		v, _ := dayValue(m, path)
		if v >= threshold {
			qualifying[domain.DayKey(m.Date)] = true
		}
	}

	asOf = domain.CalendarDay(asOf)
	day := asOf
	if !qualifying[domain.DayKey(day)] {
		day = day.AddDate(0, 0, -1)
	}

	run := 0
	for qualifying[domain.DayKey(day)] {
		run++
		day = day.AddDate(0, 0, -1)
	}

	return run, nil
}
