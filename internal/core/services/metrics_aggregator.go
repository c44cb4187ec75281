package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

const (
	DefaultConsistencyWindow = 30
	DefaultHistoryDays       = 60

	earlyBirdHour = 7
	nightOwlHour  = 22
)

// AchievementQueue receives users whose achievement evaluation failed and must be retried.
type AchievementQueue interface {
	Enqueue(userID string)
}

type AggregatorRepos struct {
	Habits       domain.HabitRepository
	Tasks        domain.TaskRepository
	Goals        domain.GoalRepository
	Metrics      domain.DailyMetricsRepository
	Achievements domain.AchievementRepository
	Users        domain.UserRepository
}

type AggregatorConfig struct {
	Scoring               analytics.ScoringConfig
	ConsistencyWindowDays int
	HistoryDays           int
}

// MetricsAggregator recomputes every derived signal after an activity event.
// Streaks and the day's metrics are committed before achievements are evaluated;
// an achievement failure never rolls them back.
type MetricsAggregator struct {
	repos  AggregatorRepos
	cfg    AggregatorConfig
	queue  AchievementQueue
	logger *slog.Logger
	now    func() time.Time
}

func NewMetricsAggregator(repos AggregatorRepos, cfg AggregatorConfig, queue AchievementQueue, logger *slog.Logger) *MetricsAggregator {
	if cfg.ConsistencyWindowDays <= 0 {
		cfg.ConsistencyWindowDays = DefaultConsistencyWindow
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = DefaultHistoryDays
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &MetricsAggregator{
		repos:  repos,
		cfg:    cfg,
		queue:  queue,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the wall clock, for tests and backfills.
func (a *MetricsAggregator) SetClock(now func() time.Time) {
	a.now = now
}

// SetQueue attaches the retry queue after construction, since the worker itself depends on the aggregator.
func (a *MetricsAggregator) SetQueue(queue AchievementQueue) {
	a.queue = queue
}

// Today returns the user's current calendar day and timezone.
func (a *MetricsAggregator) Today(ctx context.Context, userID string) (time.Time, *time.Location, error) {
	loc, err := a.location(ctx, userID)
	if err != nil {
		return time.Time{}, nil, err
	}
	return domain.LocalDay(a.now(), loc), loc, nil
}

func (a *MetricsAggregator) location(ctx context.Context, userID string) (*time.Location, error) {
	if a.repos.Users == nil {
		return time.UTC, nil
	}

	user, err := a.repos.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return time.UTC, nil
		}
		return nil, fmt.Errorf("aggregator: load user: %w", err)
	}
	return user.Location(), nil
}

// Refresh handles an activity event on the current day. When habitIDs is empty
// every habit of the user is refreshed.
func (a *MetricsAggregator) Refresh(ctx context.Context, userID string, habitIDs ...string) (*domain.MetricsResult, error) {
	today, loc, err := a.Today(ctx, userID)
	if err != nil {
		return nil, err
	}
	return a.run(ctx, userID, today, today, loc, habitIDs)
}

// Generate forces a full recomputation for day. A zero day means today; past days
// are recomputed as an explicit backfill.
func (a *MetricsAggregator) Generate(ctx context.Context, userID string, day time.Time) (*domain.MetricsResult, error) {
	today, loc, err := a.Today(ctx, userID)
	if err != nil {
		return nil, err
	}

	if day.IsZero() {
		day = today
	}
	day = domain.CalendarDay(day)
	if day.After(today) {
		return nil, fmt.Errorf("%w: %s is in the future", domain.ErrInvalidDate, domain.DayKey(day))
	}

	return a.run(ctx, userID, day, today, loc, nil)
}

func (a *MetricsAggregator) run(ctx context.Context, userID string, day, today time.Time, loc *time.Location, habitIDs []string) (*domain.MetricsResult, error) {
	habits, err := a.repos.Habits.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregator: list habits: %w", err)
	}

	stats, err := a.refreshHabits(ctx, habits, habitIDs, today)
	if err != nil {
		return nil, err
	}

	metrics, err := a.refreshDay(ctx, userID, day, loc, habits)
	if err != nil {
		return nil, err
	}

	result := &domain.MetricsResult{
		Metrics:     metrics,
		Habits:      stats,
		NewlyEarned: []domain.UserAchievementProgress{},
	}

	earned, err := a.evaluate(ctx, userID, today, loc, habits)
	if err != nil {
		a.logger.Error("achievement evaluation failed, scheduling retry",
			"user_id", userID, "error", err)
		if a.queue != nil {
			a.queue.Enqueue(userID)
		}
		return result, nil
	}

	result.NewlyEarned = earned
	return result, nil
}

// refreshHabits recomputes streak and consistency and rewrites the streak cache when it drifted.
func (a *MetricsAggregator) refreshHabits(ctx context.Context, habits []*domain.Habit, habitIDs []string, today time.Time) ([]domain.HabitStats, error) {
	affected := make(map[string]bool, len(habitIDs))
	for _, id := range habitIDs {
		affected[id] = true
	}

	var out []domain.HabitStats
	for _, h := range habits {
		if len(affected) > 0 && !affected[h.ID] {
			continue
		}

		st := a.habitStats(h, a.cfg.ConsistencyWindowDays, today)
		if !sameStreak(h.Streak, st.Streak) {
			if err := a.repos.Habits.UpdateStreak(ctx, h.ID, st.Streak); err != nil {
				return nil, fmt.Errorf("aggregator: update streak for %s: %w", h.ID, err)
			}
			h.UpdateStreak(st.Streak)
		}
		out = append(out, st)
	}
	return out, nil
}

func (a *MetricsAggregator) habitStats(h *domain.Habit, windowDays int, asOf time.Time) domain.HabitStats {
	return domain.HabitStats{
		HabitID:     h.ID,
		Title:       h.Title,
		Frequency:   h.Frequency,
		Streak:      analytics.ComputeStreak(h.CompletionHistory, h.Frequency, h.FrequencyConfig, asOf),
		Consistency: analytics.ComputeConsistency(h.CompletionHistory, h.Frequency, h.FrequencyConfig, windowDays, asOf),
		WindowDays:  windowDays,
		AsOf:        domain.DayKey(asOf),
	}
}

func sameStreak(a, b domain.StreakData) bool {
	if a.Current != b.Current || a.Longest != b.Longest {
		return false
	}
	if a.LastCompletedDate == nil || b.LastCompletedDate == nil {
		return a.LastCompletedDate == nil && b.LastCompletedDate == nil
	}
	return a.LastCompletedDate.Equal(*b.LastCompletedDate)
}

func (a *MetricsAggregator) refreshDay(ctx context.Context, userID string, day time.Time, loc *time.Location, habits []*domain.Habit) (*domain.DailyMetrics, error) {
	metrics, err := a.repos.Metrics.Ensure(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("aggregator: ensure metrics: %w", err)
	}

	goals, err := a.repos.Goals.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregator: list goals: %w", err)
	}

	snapshot := make([]domain.GoalProgress, 0, len(goals))
	for _, g := range goals {
		snapshot = append(snapshot, domain.GoalProgress{GoalID: g.ID, Progress: g.Progress})
	}

	previous, err := a.previousDay(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	derived := domain.MetricsDerived{
		HabitCompletionRate: habitCompletionRate(habits, day, loc),
		GoalProgress:        snapshot,
	}
	derived.ProductivityScore = analytics.ComputeDailyScore(analytics.ScoreInput{
		TasksCompleted:      metrics.TasksCompleted,
		TasksCreated:        metrics.TasksCreated,
		HabitCompletionRate: derived.HabitCompletionRate,
		FocusTimeMinutes:    metrics.FocusTimeMinutes,
		GoalProgressDelta:   goalProgressDelta(snapshot, previous),
		DayRating:           metrics.DayRating,
	}, a.cfg.Scoring)

	if err := a.repos.Metrics.SaveDerived(ctx, userID, day, derived); err != nil {
		return nil, fmt.Errorf("aggregator: save metrics: %w", err)
	}

	metrics.HabitCompletionRate = derived.HabitCompletionRate
	metrics.GoalProgress = derived.GoalProgress
	metrics.ProductivityScore = derived.ProductivityScore
	return metrics, nil
}

func (a *MetricsAggregator) previousDay(ctx context.Context, userID string, day time.Time) ([]domain.GoalProgress, error) {
	from := day.AddDate(0, 0, -a.cfg.HistoryDays)
	to := day.AddDate(0, 0, -1)

	history, err := a.repos.Metrics.ListRange(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregator: load previous day: %w", err)
	}
	if len(history) == 0 {
		return nil, nil
	}
	return history[len(history)-1].GoalProgress, nil
}

// habitCompletionRate is the share of habits due on day that were completed on day.
// Habits created after day are not counted.
func habitCompletionRate(habits []*domain.Habit, day time.Time, loc *time.Location) float64 {
	due, done := 0, 0
	for _, h := range habits {
		if h.ArchivedAt != nil || domain.LocalDay(h.CreatedAt, loc).After(day) || !h.IsDueOn(day) {
			continue
		}
		due++
		if e, ok := h.EntryOn(day); ok && e.Completed {
			done++
		}
	}
	if due == 0 {
		return 0
	}
	return 100 * float64(done) / float64(due)
}

// goalProgressDelta is the mean positive change per goal versus the previous recorded snapshot.
func goalProgressDelta(current, previous []domain.GoalProgress) float64 {
	if len(current) == 0 {
		return 0
	}

	before := make(map[string]float64, len(previous))
	for _, g := range previous {
		before[g.GoalID] = g.Progress
	}

	total := 0.0
	for _, g := range current {
		if d := g.Progress - before[g.GoalID]; d > 0 {
			total += d
		}
	}
	return total / float64(len(current))
}

// CheckAchievements evaluates the catalog for the user without touching streaks or daily metrics.
func (a *MetricsAggregator) CheckAchievements(ctx context.Context, userID string) ([]domain.UserAchievementProgress, error) {
	today, loc, err := a.Today(ctx, userID)
	if err != nil {
		return nil, err
	}

	habits, err := a.repos.Habits.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregator: list habits: %w", err)
	}

	return a.evaluate(ctx, userID, today, loc, habits)
}

func (a *MetricsAggregator) evaluate(ctx context.Context, userID string, today time.Time, loc *time.Location, habits []*domain.Habit) ([]domain.UserAchievementProgress, error) {
	snapshot, err := a.BuildSnapshot(ctx, userID, today, loc, habits)
	if err != nil {
		return nil, err
	}

	defs, err := a.repos.Achievements.ListDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregator: list achievements: %w", err)
	}

	prior, err := a.repos.Achievements.ListProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregator: list progress: %w", err)
	}

	ev := analytics.Evaluate(defs, snapshot, prior, a.now())
	for _, s := range ev.Skipped {
		a.logger.Warn("skipping malformed achievement definition",
			"achievement_id", s.AchievementID, "error", s.Err)
	}

	if changed := changedProgress(prior, ev.Progress); len(changed) > 0 {
		if err := a.repos.Achievements.SaveProgress(ctx, changed); err != nil {
			return nil, fmt.Errorf("aggregator: save progress: %w", err)
		}
	}

	for _, p := range ev.NewlyEarned {
		a.logger.Info("achievement earned", "user_id", userID, "achievement_id", p.AchievementID)
	}

	if ev.NewlyEarned == nil {
		return []domain.UserAchievementProgress{}, nil
	}
	return ev.NewlyEarned, nil
}

func changedProgress(prior, next []domain.UserAchievementProgress) []domain.UserAchievementProgress {
	before := make(map[string]domain.UserAchievementProgress, len(prior))
	for _, p := range prior {
		before[p.AchievementID] = p
	}

	var out []domain.UserAchievementProgress
	for _, p := range next {
		old, ok := before[p.AchievementID]
		if ok && old.Earned {
			continue
		}
		if !ok || old.Progress != p.Progress || old.Earned != p.Earned {
			out = append(out, p)
		}
	}
	return out
}

// BuildSnapshot assembles the stats the achievement evaluator reads.
func (a *MetricsAggregator) BuildSnapshot(ctx context.Context, userID string, today time.Time, loc *time.Location, habits []*domain.Habit) (*domain.UserStatsSnapshot, error) {
	s := domain.NewUserStatsSnapshot(userID, today)

	created, err := a.repos.Habits.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregator: count habits: %w", err)
	}
	s.Counts[domain.PathHabitsCreated] = float64(created)

	completions, current, longest := 0, 0, 0
	weekend := false
	for _, h := range habits {
		for _, e := range h.CompletionHistory {
			if !e.Completed || e.Date.After(today) {
				continue
			}
			completions++
			if wd := e.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
				weekend = true
			}
		}

		streak := analytics.ComputeStreak(h.CompletionHistory, h.Frequency, h.FrequencyConfig, today)
		current = max(current, streak.Current)
		longest = max(longest, streak.Longest)
	}
	s.Counts[domain.PathHabitsCompletions] = float64(completions)
	s.Streaks[domain.PathHabitsCurrentStreak] = current
	s.Streaks[domain.PathHabitsLongestStreak] = longest
	s.TimeEvents[domain.PathHabitsWeekendWarrior] = weekend

	tasksCreated, tasksCompleted, err := a.repos.Tasks.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregator: count tasks: %w", err)
	}
	s.Counts[domain.PathTasksCreated] = float64(tasksCreated)
	s.Counts[domain.PathTasksCompleted] = float64(tasksCompleted)

	times, err := a.repos.Tasks.ListCompletionTimes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregator: list task completions: %w", err)
	}
	s.TimeEvents[domain.PathTasksEarlyBird] = false
	s.TimeEvents[domain.PathTasksNightOwl] = false
	for _, t := range times {
		hour := t.In(loc).Hour()
		if hour < earlyBirdHour {
			s.TimeEvents[domain.PathTasksEarlyBird] = true
		}
		if hour >= nightOwlHour {
			s.TimeEvents[domain.PathTasksNightOwl] = true
		}
	}

	goals, err := a.repos.Goals.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregator: list goals: %w", err)
	}
	goalsCompleted := 0
	for _, g := range goals {
		if g.Completed {
			goalsCompleted++
		}
	}
	s.Counts[domain.PathGoalsCreated] = float64(len(goals))
	s.Counts[domain.PathGoalsCompleted] = float64(goalsCompleted)

	focus, err := a.repos.Metrics.TotalFocusMinutes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregator: total focus: %w", err)
	}
	s.Counts[domain.PathFocusTotalMinutes] = float64(focus)

	history, err := a.repos.Metrics.ListRange(ctx, userID, today.AddDate(0, 0, -(a.cfg.HistoryDays-1)), today)
	if err != nil {
		return nil, fmt.Errorf("aggregator: load history: %w", err)
	}
	s.DailyHistory = history

	return s, nil
}
