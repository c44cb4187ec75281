package domain

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrHabitTitleEmpty     = errors.New("habit title cannot be empty")
	ErrHabitTitleTooLong   = errors.New("habit title is too long (max 100 chars)")
	ErrHabitDescTooLong    = errors.New("habit description is too long (max 500 chars)")
	ErrHabitInvalidUserID  = errors.New("invalid user id")
	ErrInvalidColor        = errors.New("invalid color format (must be #RRGGBB)")
	ErrInvalidFrequency    = errors.New("invalid frequency (must be daily, weekly, or monthly)")
	ErrInvalidDaysOfWeek   = errors.New("invalid days of week (must be 0-6)")
	ErrInvalidDatesOfMonth = errors.New("invalid dates of month (must be 1-31)")
	ErrInvalidTimesPeriod  = errors.New("times per period cannot be negative")
	ErrHabitArchived       = errors.New("cannot update an archived habit")
)

var colorRegex = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

const (
	DefaultIcon = "default_icon"
	MaxTitleLen = 100
	MaxDescLen  = 500
)

// FrequencyConfig narrows when a habit is expected to be done.
// DaysOfWeek uses time.Weekday numbering (0 = Sunday).
type FrequencyConfig struct {
	DaysOfWeek     []int `json:"daysOfWeek,omitempty"`
	DatesOfMonth   []int `json:"datesOfMonth,omitempty"`
	TimesPerPeriod int   `json:"timesPerPeriod,omitempty"`
}

// StreakData is a cached view over CompletionHistory and is rebuilt on every write path.
type StreakData struct {
	Current           int        `json:"current"`
	Longest           int        `json:"longest"`
	LastCompletedDate *time.Time `json:"lastCompletedDate,omitempty"`
}

type Habit struct {
	ID                string            `json:"id"`
	UserID            string            `json:"userId"`
	Title             string            `json:"title"`
	Description       string            `json:"description,omitempty"`
	Color             string            `json:"color"`
	Icon              string            `json:"icon"`
	Frequency         Frequency         `json:"frequency"`
	FrequencyConfig   FrequencyConfig   `json:"frequencyConfig"`
	CompletionHistory []CompletionEntry `json:"completionHistory"`
	Streak            StreakData        `json:"streak"`
	Version           int               `json:"version"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
	ArchivedAt        *time.Time        `json:"archivedAt,omitempty"`
	DeletedAt         *time.Time        `json:"deletedAt,omitempty"`
}

func normalizeInts(values []int) []int {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[int]bool)
	var unique []int
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}

	sort.Ints(unique)
	return unique
}

func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FrequencyDaily, nil
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return f, nil
	default:
		return "", ErrInvalidFrequency
	}
}

func validateAndNormalize(title, desc, color string, freq Frequency, cfg FrequencyConfig) (FrequencyConfig, error) {
	trimmedTitle := strings.TrimSpace(title)
	if trimmedTitle == "" {
		return FrequencyConfig{}, ErrHabitTitleEmpty
	}
	if len(trimmedTitle) > MaxTitleLen {
		return FrequencyConfig{}, ErrHabitTitleTooLong
	}
	if len(strings.TrimSpace(desc)) > MaxDescLen {
		return FrequencyConfig{}, ErrHabitDescTooLong
	}
	if color != "" && !colorRegex.MatchString(color) {
		return FrequencyConfig{}, ErrInvalidColor
	}

	switch freq {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return FrequencyConfig{}, ErrInvalidFrequency
	}

	for _, d := range cfg.DaysOfWeek {
		if d < 0 || d > 6 {
			return FrequencyConfig{}, ErrInvalidDaysOfWeek
		}
	}
	for _, d := range cfg.DatesOfMonth {
		if d < 1 || d > 31 {
			return FrequencyConfig{}, ErrInvalidDatesOfMonth
		}
	}
	if cfg.TimesPerPeriod < 0 {
		return FrequencyConfig{}, ErrInvalidTimesPeriod
	}

	return FrequencyConfig{
		DaysOfWeek:     normalizeInts(cfg.DaysOfWeek),
		DatesOfMonth:   normalizeInts(cfg.DatesOfMonth),
		TimesPerPeriod: cfg.TimesPerPeriod,
	}, nil
}

func NewHabit(title, userID string) (*Habit, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrHabitInvalidUserID
	}

	if _, err := validateAndNormalize(title, "", "", FrequencyDaily, FrequencyConfig{}); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &Habit{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		Icon:      DefaultIcon,
		Frequency: FrequencyDaily,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (h *Habit) Update(title, description, color, icon string, freq Frequency, cfg FrequencyConfig) error {
	if h.ArchivedAt != nil {
		return ErrHabitArchived
	}

	cleanDesc := strings.TrimSpace(description)

	normalized, err := validateAndNormalize(title, cleanDesc, color, freq, cfg)
	if err != nil {
		return err
	}

	if icon == "" {
		icon = DefaultIcon
	}

	h.Title = strings.TrimSpace(title)
	h.Description = cleanDesc
	h.Color = color
	h.Icon = icon
	h.Frequency = freq
	h.FrequencyConfig = normalized
	h.UpdatedAt = time.Now().UTC()

	return nil
}

// UpdateStreak overwrites the cached streak. Callers pass values computed from CompletionHistory.
func (h *Habit) UpdateStreak(streak StreakData) {
	h.Streak = streak
	h.UpdatedAt = time.Now().UTC()
}

// EntryOn returns the completion entry recorded for the given calendar day, if any.
func (h *Habit) EntryOn(day time.Time) (CompletionEntry, bool) {
	key := DayKey(day)
	for _, e := range h.CompletionHistory {
		if DayKey(e.Date) == key {
			return e, true
		}
	}
	return CompletionEntry{}, false
}

// IsDueOn reports whether the habit has an expectation pinned to the given day.
// Weekly and monthly habits without a day configuration are never due on a specific day.
func (h *Habit) IsDueOn(day time.Time) bool {
	switch h.Frequency {
	case FrequencyWeekly:
		return containsInt(h.FrequencyConfig.DaysOfWeek, int(day.Weekday()))
	case FrequencyMonthly:
		return containsInt(h.FrequencyConfig.DatesOfMonth, day.Day())
	default:
		if len(h.FrequencyConfig.DaysOfWeek) == 0 {
			return true
		}
		return containsInt(h.FrequencyConfig.DaysOfWeek, int(day.Weekday()))
	}
}

func (h *Habit) Archive() {
	if h.ArchivedAt != nil {
		return
	}

	now := time.Now().UTC()
	h.ArchivedAt = &now
	h.UpdatedAt = now
}

func (h *Habit) Restore() {
	if h.ArchivedAt == nil {
		return
	}
	h.ArchivedAt = nil
	h.UpdatedAt = time.Now().UTC()
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
