package services

import (
	"context"
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

type TaskService struct {
	repo       domain.TaskRepository
	metrics    domain.DailyMetricsRepository
	aggregator *MetricsAggregator
}

func NewTaskService(repo domain.TaskRepository, metrics domain.DailyMetricsRepository, aggregator *MetricsAggregator) *TaskService {
	return &TaskService{
		repo:       repo,
		metrics:    metrics,
		aggregator: aggregator,
	}
}

type TaskResult struct {
	Task        *domain.Task                     `json:"task"`
	NewlyEarned []domain.UserAchievementProgress `json:"newlyEarned"`
}

func (s *TaskService) Create(ctx context.Context, userID, title string) (*TaskResult, error) {
	task, err := domain.NewTask(userID, title)
	if err != nil {
		return nil, err
	}

	today, _, err := s.aggregator.Today(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	if err := s.metrics.Increment(ctx, userID, today, domain.MetricsCounters{TasksCreated: 1}); err != nil {
		return nil, fmt.Errorf("task service: count created task: %w", err)
	}

	res, err := s.aggregator.Refresh(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &TaskResult{Task: task, NewlyEarned: res.NewlyEarned}, nil
}

func (s *TaskService) ListByUserID(ctx context.Context, userID string) ([]*domain.Task, error) {
	return s.repo.ListByUserID(ctx, userID)
}

func (s *TaskService) GetByID(ctx context.Context, id, userID string) (*domain.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

// Toggle sets the completion state. Only a stored state change moves a counter:
// completing adds one to today, un-completing removes one from today only when
// the task was completed today. Earlier days are left as recorded.
func (s *TaskService) Toggle(ctx context.Context, id, userID string, completed bool) (*TaskResult, error) {
	task, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	today, loc, err := s.aggregator.Today(ctx, userID)
	if err != nil {
		return nil, err
	}

	previous := task.CompletedAt
	if !task.SetCompleted(completed, s.aggregator.now()) {
		return &TaskResult{Task: task, NewlyEarned: []domain.UserAchievementProgress{}}, nil
	}

	changed, err := s.repo.SetCompleted(ctx, task)
	if err != nil {
		return nil, err
	}
	if !changed {
		// Another request got there first.
		current, err := s.GetByID(ctx, id, userID)
		if err != nil {
			return nil, err
		}
		return &TaskResult{Task: current, NewlyEarned: []domain.UserAchievementProgress{}}, nil
	}

	if delta := completionDelta(completed, previous, today, loc); delta != 0 {
		if err := s.metrics.Increment(ctx, userID, today, domain.MetricsCounters{TasksCompleted: delta}); err != nil {
			return nil, fmt.Errorf("task service: count completion: %w", err)
		}
	}

	res, err := s.aggregator.Refresh(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &TaskResult{Task: task, NewlyEarned: res.NewlyEarned}, nil
}

func completionDelta(completed bool, previous *time.Time, today time.Time, loc *time.Location) int {
	if completed {
		return 1
	}
	if previous != nil && domain.LocalDay(*previous, loc).Equal(today) {
		return -1
	}
	return 0
}
