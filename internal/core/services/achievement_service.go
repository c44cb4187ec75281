package services

import (
	"context"
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

type AchievementService struct {
	repo       domain.AchievementRepository
	aggregator *MetricsAggregator
}

func NewAchievementService(repo domain.AchievementRepository, aggregator *MetricsAggregator) *AchievementService {
	return &AchievementService{
		repo:       repo,
		aggregator: aggregator,
	}
}

// AchievementView is a catalog entry with the user's progress on it.
type AchievementView struct {
	domain.AchievementDefinition
	Progress float64    `json:"progress"`
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earnedAt,omitempty"`
}

// SeedCatalog stores the built-in catalog, refreshing definitions that already exist.
func (s *AchievementService) SeedCatalog(ctx context.Context) error {
	if err := s.repo.SeedDefinitions(ctx, domain.DefaultAchievementCatalog()); err != nil {
		return fmt.Errorf("achievement service: seed catalog: %w", err)
	}
	return nil
}

func (s *AchievementService) List(ctx context.Context, userID string) ([]AchievementView, error) {
	defs, err := s.repo.ListDefinitions(ctx)
	if err != nil {
		return nil, err
	}

	progress, err := s.repo.ListProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.UserAchievementProgress, len(progress))
	for _, p := range progress {
		byID[p.AchievementID] = p
	}

	views := make([]AchievementView, 0, len(defs))
	for _, d := range defs {
		v := AchievementView{AchievementDefinition: d}
		if p, ok := byID[d.ID]; ok {
			v.Progress = p.Progress
			v.Earned = p.Earned
			v.EarnedAt = p.EarnedAt
		}
		views = append(views, v)
	}
	return views, nil
}

// Check runs the evaluator now and returns the achievements it unlocked.
func (s *AchievementService) Check(ctx context.Context, userID string) ([]domain.UserAchievementProgress, error) {
	return s.aggregator.CheckAchievements(ctx, userID)
}

func (s *AchievementService) Get(ctx context.Context, userID, id string) (*AchievementView, error) {
	views, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range views {
		if views[i].ID == id {
			return &views[i], nil
		}
	}
	return nil, domain.ErrAchievementNotFound
}
