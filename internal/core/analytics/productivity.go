package analytics

import (
	"errors"
	"fmt"
)

var ErrInvalidScoringConfig = errors.New("invalid scoring config")

// ScoreWeights are policy, not data: they are loaded from configuration.
type ScoreWeights struct {
	Tasks  float64 `mapstructure:"tasks" json:"tasks"`
	Habits float64 `mapstructure:"habits" json:"habits"`
	Focus  float64 `mapstructure:"focus" json:"focus"`
	Rating float64 `mapstructure:"rating" json:"rating"`
	Goals  float64 `mapstructure:"goals" json:"goals"`
}

type ScoringConfig struct {
	Weights            ScoreWeights `mapstructure:"weights" json:"weights"`
	FocusTargetMinutes int          `mapstructure:"focus_target_minutes" json:"focusTargetMinutes"`
}

const neutralRating = 0.5

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Weights: ScoreWeights{
			Tasks:  0.35,
			Habits: 0.25,
			Focus:  0.25,
			Rating: 0.15,
			Goals:  0,
		},
		FocusTargetMinutes: 120,
	}
}

func (c ScoringConfig) Validate() error {
	w := c.Weights
	for name, v := range map[string]float64{
		"tasks": w.Tasks, "habits": w.Habits, "focus": w.Focus, "rating": w.Rating, "goals": w.Goals,
	} {
		if v < 0 {
			return fmt.Errorf("%w: weight %q is negative", ErrInvalidScoringConfig, name)
		}
	}
	if w.sum() <= 0 {
		return fmt.Errorf("%w: weights sum to zero", ErrInvalidScoringConfig)
	}
	if c.FocusTargetMinutes <= 0 {
		return fmt.Errorf("%w: focus target must be positive", ErrInvalidScoringConfig)
	}
	return nil
}

func (w ScoreWeights) sum() float64 {
	return w.Tasks + w.Habits + w.Focus + w.Rating + w.Goals
}

type ScoreInput struct {
	TasksCompleted      int
	TasksCreated        int
	HabitCompletionRate float64
	FocusTimeMinutes    int
	GoalProgressDelta   float64
	DayRating           *int
}

// ComputeDailyScore combines the day's signals into a 0..100 score.
// Each signal is normalized to [0,1]; the weighted sum is divided by the
// weight total so configurations that do not sum to 1 stay on the same scale.
func ComputeDailyScore(in ScoreInput, cfg ScoringConfig) float64 {
	w := cfg.Weights
	total := w.sum()
	if total <= 0 {
		return 0
	}

	created := in.TasksCreated
	if created < 1 {
		created = 1
	}
	taskRatio := clamp(float64(in.TasksCompleted)/float64(created), 0, 1)

	habitRatio := clamp(in.HabitCompletionRate/100, 0, 1)

	focusRatio := 0.0
	if cfg.FocusTargetMinutes > 0 {
		focusRatio = clamp(float64(in.FocusTimeMinutes)/float64(cfg.FocusTargetMinutes), 0, 1)
	}

	ratingRatio := neutralRating
	if in.DayRating != nil {
		ratingRatio = clamp(float64(*in.DayRating)/5, 0, 1)
	}

	goalRatio := clamp(in.GoalProgressDelta/100, 0, 1)

	sum := w.Tasks*taskRatio +
		w.Habits*habitRatio +
		w.Focus*focusRatio +
		w.Rating*ratingRatio +
		w.Goals*goalRatio

	return clamp(100*sum/total, 0, 100)
}
