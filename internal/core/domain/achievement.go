package domain

import (
	"errors"
	"time"
)

var (
	ErrAchievementNotFound = errors.New("achievement not found")
)

type CriteriaType string

const (
	CriteriaCount   CriteriaType = "count"
	CriteriaStreak  CriteriaType = "streak"
	CriteriaTime    CriteriaType = "time"
	CriteriaComplex CriteriaType = "complex"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Criteria describes when an achievement is earned. Threshold is only read
// by complex criteria and is the value a day must reach to qualify.
type Criteria struct {
	Type      CriteriaType `json:"type"`
	Target    float64      `json:"target"`
	Path      string       `json:"path"`
	Threshold float64      `json:"threshold,omitempty"`
}

type AchievementDefinition struct {
	ID          string   `json:"id" db:"id"`
	Title       string   `json:"title" db:"title"`
	Description string   `json:"description" db:"description"`
	Category    string   `json:"category" db:"category"`
	Points      int      `json:"points" db:"points"`
	Rarity      Rarity   `json:"rarity" db:"rarity"`
	Criteria    Criteria `json:"criteria" db:"-"`
}

type UserAchievementProgress struct {
	UserID        string     `json:"user" db:"user_id"`
	AchievementID string     `json:"achievement" db:"achievement_id"`
	Progress      float64    `json:"progress" db:"progress"`
	Earned        bool       `json:"earned" db:"earned"`
	EarnedAt      *time.Time `json:"earnedAt,omitempty" db:"earned_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// Stat paths published in UserStatsSnapshot.
const (
	PathHabitsCreated     = "habits.created"
	PathHabitsCompletions = "habits.completions"
	PathTasksCreated      = "tasks.created"
	PathTasksCompleted    = "tasks.completed"
	PathGoalsCreated      = "goals.created"
	PathGoalsCompleted    = "goals.completed"
	PathFocusTotalMinutes = "focus.totalMinutes"

	PathHabitsCurrentStreak = "habits.current"
	PathHabitsLongestStreak = "habits.longest"

	PathTasksEarlyBird       = "tasks.earlyBird"
	PathTasksNightOwl        = "tasks.nightOwl"
	PathHabitsWeekendWarrior = "habits.weekendWarrior"

	PathDayProductivityScore = "productivityScore"
	PathDayFocusMinutes      = "focusTimeMinutes"
	PathDayHabitRate         = "habitCompletionRate"
	PathDayTasksCompleted    = "tasksCompleted"
)

func DefaultAchievementCatalog() []AchievementDefinition {
	return []AchievementDefinition{
		{
			ID: "first_habit", Title: "First Step", Description: "Create your first habit",
			Category: "habits", Points: 10, Rarity: RarityCommon,
			Criteria: Criteria{Type: CriteriaCount, Target: 1, Path: PathHabitsCreated},
		},
		{
			ID: "habit_centurion", Title: "Centurion", Description: "Log 100 habit completions",
			Category: "habits", Points: 50, Rarity: RarityRare,
			Criteria: Criteria{Type: CriteriaCount, Target: 100, Path: PathHabitsCompletions},
		},
		{
			ID: "first_task", Title: "Getting Things Done", Description: "Complete your first task",
			Category: "tasks", Points: 10, Rarity: RarityCommon,
			Criteria: Criteria{Type: CriteriaCount, Target: 1, Path: PathTasksCompleted},
		},
		{
			ID: "task_master", Title: "Task Master", Description: "Complete 50 tasks",
			Category: "tasks", Points: 40, Rarity: RarityRare,
			Criteria: Criteria{Type: CriteriaCount, Target: 50, Path: PathTasksCompleted},
		},
		{
			ID: "goal_getter", Title: "Goal Getter", Description: "Complete a goal",
			Category: "goals", Points: 30, Rarity: RarityRare,
			Criteria: Criteria{Type: CriteriaCount, Target: 1, Path: PathGoalsCompleted},
		},
		{
			ID: "deep_focus", Title: "Deep Focus", Description: "Accumulate 10 hours of focus time",
			Category: "focus", Points: 40, Rarity: RarityRare,
			Criteria: Criteria{Type: CriteriaCount, Target: 600, Path: PathFocusTotalMinutes},
		},
		{
			ID: "week_streak", Title: "On a Roll", Description: "Keep a habit streak for 7 periods",
			Category: "streaks", Points: 25, Rarity: RarityCommon,
			Criteria: Criteria{Type: CriteriaStreak, Target: 7, Path: PathHabitsCurrentStreak},
		},
		{
			ID: "month_streak", Title: "Unstoppable", Description: "Keep a habit streak for 30 periods",
			Category: "streaks", Points: 100, Rarity: RarityEpic,
			Criteria: Criteria{Type: CriteriaStreak, Target: 30, Path: PathHabitsCurrentStreak},
		},
		{
			ID: "early_bird", Title: "Early Bird", Description: "Complete a task before 7 AM",
			Category: "time", Points: 15, Rarity: RarityCommon,
			Criteria: Criteria{Type: CriteriaTime, Target: 1, Path: PathTasksEarlyBird},
		},
		{
			ID: "night_owl", Title: "Night Owl", Description: "Complete a task after 10 PM",
			Category: "time", Points: 15, Rarity: RarityCommon,
			Criteria: Criteria{Type: CriteriaTime, Target: 1, Path: PathTasksNightOwl},
		},
		{
			ID: "weekend_warrior", Title: "Weekend Warrior", Description: "Complete a habit on a weekend",
			Category: "time", Points: 15, Rarity: RarityCommon,
			Criteria: Criteria{Type: CriteriaTime, Target: 1, Path: PathHabitsWeekendWarrior},
		},
		{
			ID: "productivity_master", Title: "Productivity Master", Description: "Score 90+ productivity for 5 consecutive days",
			Category: "productivity", Points: 150, Rarity: RarityLegendary,
			Criteria: Criteria{Type: CriteriaComplex, Target: 5, Path: PathDayProductivityScore, Threshold: 90},
		},
		{
			ID: "focused_week", Title: "Focused Week", Description: "Focus at least 60 minutes a day for 7 consecutive days",
			Category: "focus", Points: 75, Rarity: RarityEpic,
			Criteria: Criteria{Type: CriteriaComplex, Target: 7, Path: PathDayFocusMinutes, Threshold: 60},
		},
	}
}
