package services

import (
	"context"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

type GoalService struct {
	repo       domain.GoalRepository
	aggregator *MetricsAggregator
}

func NewGoalService(repo domain.GoalRepository, aggregator *MetricsAggregator) *GoalService {
	return &GoalService{
		repo:       repo,
		aggregator: aggregator,
	}
}

type GoalResult struct {
	Goal        *domain.Goal                     `json:"goal"`
	NewlyEarned []domain.UserAchievementProgress `json:"newlyEarned"`
}

func (s *GoalService) Create(ctx context.Context, userID, title string) (*domain.Goal, error) {
	goal, err := domain.NewGoal(userID, title)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

func (s *GoalService) ListByUserID(ctx context.Context, userID string) ([]*domain.Goal, error) {
	return s.repo.ListByUserID(ctx, userID)
}

func (s *GoalService) UpdateProgress(ctx context.Context, id, userID string, progress float64) (*GoalResult, error) {
	goal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if goal.UserID != userID {
		return nil, domain.ErrGoalNotFound
	}

	if err := goal.SetProgress(progress, s.aggregator.now()); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProgress(ctx, goal); err != nil {
		return nil, err
	}

	res, err := s.aggregator.Refresh(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &GoalResult{Goal: goal, NewlyEarned: res.NewlyEarned}, nil
}
