package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrGoalTitleEmpty      = errors.New("goal title cannot be empty")
	ErrGoalNotFound        = errors.New("goal not found")
	ErrInvalidGoalProgress = errors.New("goal progress must be between 0 and 100")
)

type Goal struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"userId" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Progress    float64    `json:"progress" db:"progress"`
	Completed   bool       `json:"completed" db:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

func NewGoal(userID, title string) (*Goal, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrHabitInvalidUserID
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrGoalTitleEmpty
	}

	now := time.Now().UTC()
	return &Goal{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SetProgress rejects out-of-range values instead of clamping them.
func (g *Goal) SetProgress(progress float64, at time.Time) error {
	if progress < 0 || progress > 100 {
		return ErrInvalidGoalProgress
	}

	g.Progress = progress
	if progress == 100 && !g.Completed {
		ts := at.UTC()
		g.Completed = true
		g.CompletedAt = &ts
	}
	g.UpdatedAt = at.UTC()
	return nil
}
