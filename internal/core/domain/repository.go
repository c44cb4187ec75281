package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrHabitNotFound = errors.New("habit not found")
	ErrHabitConflict = errors.New("habit version conflict")
)

type HabitRepository interface {
	// Create persists a new habit definition in the storage.
	Create(ctx context.Context, habit *Habit) error

	// GetByID retrieves a habit with its full completion history.
	GetByID(ctx context.Context, id string) (*Habit, error)

	// ListByUserID retrieves all active habits of a user, each with its completion history.
	ListByUserID(ctx context.Context, userID string) ([]*Habit, error)

	// Update modifies the definition of an existing habit.
	// Implementations must check the version to prevent lost updates.
	Update(ctx context.Context, habit *Habit) error

	// Delete soft-deletes a habit.
	Delete(ctx context.Context, id string) error

	// UpsertEntry records the entry for (habit, day), replacing any entry already stored for that day.
	UpsertEntry(ctx context.Context, entry *CompletionEntry) error

	// UpdateStreak rewrites the cached streak columns only; last write wins.
	UpdateStreak(ctx context.Context, id string, streak StreakData) error

	// CountByUserID counts habits ever created by the user, deleted ones included.
	CountByUserID(ctx context.Context, userID string) (int, error)
}

type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	GetByID(ctx context.Context, id string) (*Task, error)
	ListByUserID(ctx context.Context, userID string) ([]*Task, error)

	// SetCompleted stores task's completion state only if the stored state differs,
	// and reports whether it did. Concurrent toggles to the same state change it once.
	SetCompleted(ctx context.Context, task *Task) (bool, error)

	CountByUserID(ctx context.Context, userID string) (created int, completed int, err error)

	// ListCompletionTimes returns the completion instants of all completed tasks.
	ListCompletionTimes(ctx context.Context, userID string) ([]time.Time, error)
}

type GoalRepository interface {
	Create(ctx context.Context, goal *Goal) error
	GetByID(ctx context.Context, id string) (*Goal, error)
	ListByUserID(ctx context.Context, userID string) ([]*Goal, error)
	UpdateProgress(ctx context.Context, goal *Goal) error
}

type DailyMetricsRepository interface {
	// Get returns the record for (user, day) or ErrMetricsNotFound.
	Get(ctx context.Context, userID string, day time.Time) (*DailyMetrics, error)

	// Ensure creates an empty record for (user, day) if none exists and returns the stored one.
	Ensure(ctx context.Context, userID string, day time.Time) (*DailyMetrics, error)

	// Increment applies counter deltas atomically, creating the record lazily.
	Increment(ctx context.Context, userID string, day time.Time, delta MetricsCounters) error

	// SetDayRating stores the rating for (user, day), creating the record lazily.
	SetDayRating(ctx context.Context, userID string, day time.Time, rating int) error

	// SaveDerived overwrites the recomputed fields; counters are left untouched.
	SaveDerived(ctx context.Context, userID string, day time.Time, derived MetricsDerived) error

	// ListRange returns the records in [from, to] ordered by date ascending.
	ListRange(ctx context.Context, userID string, from, to time.Time) ([]DailyMetrics, error)

	// TotalFocusMinutes sums focus time over every recorded day.
	TotalFocusMinutes(ctx context.Context, userID string) (int, error)
}

type AchievementRepository interface {
	// SeedDefinitions inserts or refreshes catalog entries.
	SeedDefinitions(ctx context.Context, defs []AchievementDefinition) error
	ListDefinitions(ctx context.Context) ([]AchievementDefinition, error)
	ListProgress(ctx context.Context, userID string) ([]UserAchievementProgress, error)

	// SaveProgress upserts progress rows. Rows already earned in storage are never overwritten.
	SaveProgress(ctx context.Context, progress []UserAchievementProgress) error
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Delete(ctx context.Context, id string) error
}
