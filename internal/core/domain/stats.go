package domain

import "time"

// UserStatsSnapshot is the read-only view the achievement evaluator works on.
// It is assembled by the caller; the evaluator never reads storage.
type UserStatsSnapshot struct {
	UserID       string
	AsOf         time.Time
	Counts       map[string]float64
	Streaks      map[string]int
	TimeEvents   map[string]bool
	DailyHistory []DailyMetrics
}

func NewUserStatsSnapshot(userID string, asOf time.Time) *UserStatsSnapshot {
	return &UserStatsSnapshot{
		UserID:     userID,
		AsOf:       CalendarDay(asOf),
		Counts:     make(map[string]float64),
		Streaks:    make(map[string]int),
		TimeEvents: make(map[string]bool),
	}
}

type HabitStats struct {
	HabitID     string     `json:"habitId"`
	Title       string     `json:"title"`
	Frequency   Frequency  `json:"frequency"`
	Streak      StreakData `json:"streak"`
	Consistency float64    `json:"consistency"`
	WindowDays  int        `json:"windowDays"`
	AsOf        string     `json:"asOf"`
}

// MetricsResult is what every aggregator trigger hands back to the caller.
type MetricsResult struct {
	Metrics     *DailyMetrics             `json:"metrics"`
	Habits      []HabitStats              `json:"habits,omitempty"`
	NewlyEarned []UserAchievementProgress `json:"newlyEarned"`
}
