package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidRating    = errors.New("day rating must be between 1 and 5")
	ErrInvalidFocusTime = errors.New("focus minutes must be between 1 and 1440")
	ErrMetricsNotFound  = errors.New("daily metrics not found")
)

const (
	MinDayRating     = 1
	MaxDayRating     = 5
	MaxFocusPerEntry = 24 * 60
)

type GoalProgress struct {
	GoalID   string  `json:"goalId"`
	Progress float64 `json:"progress"`
}

// DailyMetrics is the per-user, per-day aggregate. Counter fields change only
// through atomic increments; the remaining fields are recomputed by the aggregator.
type DailyMetrics struct {
	UserID              string         `json:"userId" db:"user_id"`
	Date                time.Time      `json:"date" db:"date"`
	TasksCompleted      int            `json:"tasksCompleted" db:"tasks_completed"`
	TasksCreated        int            `json:"tasksCreated" db:"tasks_created"`
	HabitCompletionRate float64        `json:"habitCompletionRate" db:"habit_completion_rate"`
	GoalProgress        []GoalProgress `json:"goalProgress" db:"-"`
	FocusTimeMinutes    int            `json:"focusTimeMinutes" db:"focus_time_minutes"`
	ProductivityScore   float64        `json:"productivityScore" db:"productivity_score"`
	DayRating           *int           `json:"dayRating,omitempty" db:"day_rating"`
	CreatedAt           time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time      `json:"updatedAt" db:"updated_at"`
}

func NewDailyMetrics(userID string, day time.Time) *DailyMetrics {
	now := time.Now().UTC()
	return &DailyMetrics{
		UserID:       userID,
		Date:         CalendarDay(day),
		GoalProgress: []GoalProgress{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// MetricsCounters is an atomic delta applied to a day's counters.
type MetricsCounters struct {
	TasksCompleted   int
	TasksCreated     int
	FocusTimeMinutes int
}

// MetricsDerived holds the fields the aggregator recomputes; writes are last-write-wins.
type MetricsDerived struct {
	HabitCompletionRate float64
	GoalProgress        []GoalProgress
	ProductivityScore   float64
}

func ValidateRating(rating int) error {
	if rating < MinDayRating || rating > MaxDayRating {
		return ErrInvalidRating
	}
	return nil
}

func ValidateFocusMinutes(minutes int) error {
	if minutes < 1 || minutes > MaxFocusPerEntry {
		return ErrInvalidFocusTime
	}
	return nil
}
