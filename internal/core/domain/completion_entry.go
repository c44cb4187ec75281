package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidEntry      = errors.New("invalid completion entry data")
	ErrInvalidMood       = errors.New("mood must be between 1 and 5")
	ErrInvalidEntryValue = errors.New("value cannot be negative")
	ErrEntryDateRequired = errors.New("date is required")
	ErrEntryInFuture     = errors.New("cannot track a habit for a future date")
)

const DateLayout = "2006-01-02"

// CompletionEntry is one day of a habit's activity log.
// Date is a calendar day stored as midnight UTC of the user's local date.
type CompletionEntry struct {
	HabitID    string    `json:"-" db:"habit_id"`
	UserID     string    `json:"-" db:"user_id"`
	Date       time.Time `json:"date" db:"date"`
	Completed  bool      `json:"completed" db:"completed"`
	Value      *float64  `json:"value,omitempty" db:"value"`
	Mood       *int      `json:"mood,omitempty" db:"mood"`
	SkipReason *string   `json:"skipReason,omitempty" db:"skip_reason"`
	Notes      string    `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

func NewCompletionEntry(habitID, userID string, date time.Time, completed bool) *CompletionEntry {
	now := time.Now().UTC()

	return &CompletionEntry{
		HabitID:   habitID,
		UserID:    userID,
		Date:      CalendarDay(date),
		Completed: completed,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (e *CompletionEntry) Validate() error {
	if strings.TrimSpace(e.HabitID) == "" {
		return fmt.Errorf("%w: habit_id is required", ErrInvalidEntry)
	}
	if strings.TrimSpace(e.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidEntry)
	}
	if e.Date.IsZero() {
		return ErrEntryDateRequired
	}
	if e.Value != nil && *e.Value < 0 {
		return ErrInvalidEntryValue
	}
	if e.Mood != nil && (*e.Mood < 1 || *e.Mood > 5) {
		return ErrInvalidMood
	}
	return nil
}

// CalendarDay drops the clock and location from t, keeping its wall-clock date.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LocalDay returns the calendar day of instant t as seen in loc.
func LocalDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return CalendarDay(t.In(loc))
}

func DayKey(t time.Time) string {
	return t.Format(DateLayout)
}

func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}
