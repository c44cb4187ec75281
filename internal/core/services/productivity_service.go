package services

import (
	"context"
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

// MaxHistoryRange bounds a single daily-metrics history query.
const MaxHistoryRange = 366

type ProductivityService struct {
	metrics    domain.DailyMetricsRepository
	aggregator *MetricsAggregator
}

func NewProductivityService(metrics domain.DailyMetricsRepository, aggregator *MetricsAggregator) *ProductivityService {
	return &ProductivityService{
		metrics:    metrics,
		aggregator: aggregator,
	}
}

// LogFocus adds minutes to today's focus counter.
func (s *ProductivityService) LogFocus(ctx context.Context, userID string, minutes int) (*domain.MetricsResult, error) {
	if err := domain.ValidateFocusMinutes(minutes); err != nil {
		return nil, err
	}

	today, _, err := s.aggregator.Today(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.metrics.Increment(ctx, userID, today, domain.MetricsCounters{FocusTimeMinutes: minutes}); err != nil {
		return nil, fmt.Errorf("productivity service: log focus: %w", err)
	}

	return s.aggregator.Refresh(ctx, userID)
}

// RateDay stores today's rating; a second call overwrites the first.
func (s *ProductivityService) RateDay(ctx context.Context, userID string, rating int) (*domain.MetricsResult, error) {
	if err := domain.ValidateRating(rating); err != nil {
		return nil, err
	}

	today, _, err := s.aggregator.Today(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.metrics.SetDayRating(ctx, userID, today, rating); err != nil {
		return nil, fmt.Errorf("productivity service: rate day: %w", err)
	}

	return s.aggregator.Refresh(ctx, userID)
}

// Generate recomputes day, or today when day is zero.
func (s *ProductivityService) Generate(ctx context.Context, userID string, day time.Time) (*domain.MetricsResult, error) {
	return s.aggregator.Generate(ctx, userID, day)
}

func (s *ProductivityService) Daily(ctx context.Context, userID string, from, to time.Time) ([]domain.DailyMetrics, error) {
	from, to = domain.CalendarDay(from), domain.CalendarDay(to)
	if to.Before(from) {
		return nil, domain.ErrInvalidRange
	}
	if to.Sub(from) > MaxHistoryRange*24*time.Hour {
		return nil, fmt.Errorf("%w: at most %d days", domain.ErrInvalidRange, MaxHistoryRange)
	}

	return s.metrics.ListRange(ctx, userID, from, to)
}

// DefaultRange returns the last windowDays days ending today in the user's timezone.
func (s *ProductivityService) DefaultRange(ctx context.Context, userID string, windowDays int) (time.Time, time.Time, error) {
	today, _, err := s.aggregator.Today(ctx, userID)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return today.AddDate(0, 0, -(windowDays - 1)), today, nil
}
