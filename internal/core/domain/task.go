package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTaskTitleEmpty   = errors.New("task title cannot be empty")
	ErrTaskTitleTooLong = errors.New("task title is too long (max 200 chars)")
	ErrTaskNotFound     = errors.New("task not found")
)

const MaxTaskTitleLen = 200

type Task struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"userId" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Completed   bool       `json:"completed" db:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

func NewTask(userID, title string) (*Task, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrHabitInvalidUserID
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTaskTitleEmpty
	}
	if len(title) > MaxTaskTitleLen {
		return nil, ErrTaskTitleTooLong
	}

	now := time.Now().UTC()
	return &Task{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SetCompleted applies the toggle and reports whether the completion state actually changed.
func (t *Task) SetCompleted(completed bool, at time.Time) bool {
	if t.Completed == completed {
		return false
	}

	t.Completed = completed
	if completed {
		ts := at.UTC()
		t.CompletedAt = &ts
	} else {
		t.CompletedAt = nil
	}
	t.UpdatedAt = at.UTC()
	return true
}
