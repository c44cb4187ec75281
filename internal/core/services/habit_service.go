package services

import (
	"context"
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

type HabitService struct {
	repo       domain.HabitRepository
	aggregator *MetricsAggregator
}

func NewHabitService(repo domain.HabitRepository, aggregator *MetricsAggregator) *HabitService {
	return &HabitService{
		repo:       repo,
		aggregator: aggregator,
	}
}

type CreateHabitInput struct {
	UserID          string
	Title           string
	Description     string
	Color           string
	Icon            string
	Frequency       string
	FrequencyConfig domain.FrequencyConfig
}

type UpdateHabitInput struct {
	ID              string
	UserID          string
	Title           *string
	Description     *string
	Color           *string
	Icon            *string
	Frequency       *string
	FrequencyConfig *domain.FrequencyConfig
	Archived        *bool
	Version         int
}

type TrackHabitInput struct {
	HabitID    string
	UserID     string
	Date       *time.Time
	Completed  bool
	Value      *float64
	Mood       *int
	SkipReason *string
	Notes      string
}

// HabitResult carries a habit together with the achievements its change unlocked.
type HabitResult struct {
	Habit       *domain.Habit                    `json:"habit"`
	NewlyEarned []domain.UserAchievementProgress `json:"newlyEarned"`
}

func mergeString(newVal *string, oldVal string) string {
	if newVal == nil {
		return oldVal
	}
	return *newVal
}

func (s *HabitService) Create(ctx context.Context, input CreateHabitInput) (*HabitResult, error) {
	habit, err := domain.NewHabit(input.Title, input.UserID)
	if err != nil {
		return nil, err
	}

	freq, err := domain.ParseFrequency(input.Frequency)
	if err != nil {
		return nil, err
	}

	if err := habit.Update(input.Title, input.Description, input.Color, input.Icon, freq, input.FrequencyConfig); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, habit); err != nil {
		return nil, err
	}

	res, err := s.aggregator.Refresh(ctx, habit.UserID, habit.ID)
	if err != nil {
		return nil, err
	}

	return &HabitResult{Habit: habit, NewlyEarned: res.NewlyEarned}, nil
}

func (s *HabitService) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	return s.repo.ListByUserID(ctx, userID)
}

func (s *HabitService) GetByID(ctx context.Context, id, userID string) (*domain.Habit, error) {
	habit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if habit.UserID != userID {
		return nil, domain.ErrHabitNotFound
	}

	return habit, nil
}

func (s *HabitService) Update(ctx context.Context, input UpdateHabitInput) (*domain.Habit, error) {
	habit, err := s.GetByID(ctx, input.ID, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.Version > 0 && habit.Version != input.Version {
		return nil, fmt.Errorf("%w: client v%d vs server v%d", domain.ErrHabitConflict, input.Version, habit.Version)
	}

	freq := habit.Frequency
	if input.Frequency != nil {
		if freq, err = domain.ParseFrequency(*input.Frequency); err != nil {
			return nil, err
		}
	}

	cfg := habit.FrequencyConfig
	if input.FrequencyConfig != nil {
		cfg = *input.FrequencyConfig
	}

	// An archived habit is frozen: it must be restored before other fields change.
	archive := input.Archived != nil && *input.Archived
	if input.Archived != nil && !archive {
		habit.Restore()
	}
	if archive && habit.ArchivedAt != nil {
		return habit, nil
	}

	err = habit.Update(
		mergeString(input.Title, habit.Title),
		mergeString(input.Description, habit.Description),
		mergeString(input.Color, habit.Color),
		mergeString(input.Icon, habit.Icon),
		freq,
		cfg,
	)
	if err != nil {
		return nil, err
	}

	if archive {
		habit.Archive()
	}

	if err := s.repo.Update(ctx, habit); err != nil {
		return nil, err
	}

	// A schedule change can move the streak, so the cache is rebuilt right away.
	if _, err := s.aggregator.Refresh(ctx, habit.UserID, habit.ID); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, habit.ID)
}

func (s *HabitService) Delete(ctx context.Context, id string, userID string) error {
	if _, err := s.GetByID(ctx, id, userID); err != nil {
		return err
	}

	return s.repo.Delete(ctx, id)
}

// Track records the entry for one calendar day, replacing any earlier entry for
// that day, then refreshes every derived signal.
func (s *HabitService) Track(ctx context.Context, input TrackHabitInput) (*HabitResult, error) {
	habit, err := s.GetByID(ctx, input.HabitID, input.UserID)
	if err != nil {
		return nil, err
	}
	if habit.ArchivedAt != nil {
		return nil, domain.ErrHabitArchived
	}

	today, _, err := s.aggregator.Today(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	day := today
	if input.Date != nil {
		day = domain.CalendarDay(*input.Date)
	}
	if day.After(today) {
		return nil, domain.ErrEntryInFuture
	}

	entry := domain.NewCompletionEntry(habit.ID, habit.UserID, day, input.Completed)
	entry.Value = input.Value
	entry.Mood = input.Mood
	entry.Notes = input.Notes
	if !input.Completed {
		entry.SkipReason = input.SkipReason
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.UpsertEntry(ctx, entry); err != nil {
		return nil, err
	}

	res, err := s.aggregator.Refresh(ctx, habit.UserID, habit.ID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.GetByID(ctx, habit.ID)
	if err != nil {
		return nil, err
	}

	return &HabitResult{Habit: updated, NewlyEarned: res.NewlyEarned}, nil
}

// Stats recomputes streak and consistency from the raw log on every read.
func (s *HabitService) Stats(ctx context.Context, id, userID string, windowDays int) (*domain.HabitStats, error) {
	habit, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	today, _, err := s.aggregator.Today(ctx, userID)
	if err != nil {
		return nil, err
	}

	if windowDays <= 0 {
		windowDays = s.aggregator.cfg.ConsistencyWindowDays
	}

	stats := s.aggregator.habitStats(habit, windowDays, today)
	return &stats, nil
}
