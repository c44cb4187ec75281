package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

// In-memory repositories back the unit tests and local runs without PostgreSQL.
// Every read returns a copy so callers cannot mutate stored state.

type InMemoryHabitRepository struct {
	store   map[string]*domain.Habit
	entries map[string]map[string]domain.CompletionEntry

	mu sync.RWMutex
}

func NewInMemoryHabitRepository() *InMemoryHabitRepository {
	return &InMemoryHabitRepository{
		store:   make(map[string]*domain.Habit),
		entries: make(map[string]map[string]domain.CompletionEntry),
	}
}

func (r *InMemoryHabitRepository) Create(ctx context.Context, habit *domain.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store[habit.ID]; exists {
		return fmt.Errorf("habit %s already exists", habit.ID)
	}

	clone := *habit
	clone.CompletionHistory = nil
	r.store[habit.ID] = &clone
	r.entries[habit.ID] = make(map[string]domain.CompletionEntry)
	return nil
}

// withHistory copies h and attaches its entries in chronological order. Caller holds the lock.
func (r *InMemoryHabitRepository) withHistory(h *domain.Habit) *domain.Habit {
	clone := *h
	clone.CompletionHistory = make([]domain.CompletionEntry, 0, len(r.entries[h.ID]))
	for _, e := range r.entries[h.ID] {
		clone.CompletionHistory = append(clone.CompletionHistory, e)
	}
	sort.Slice(clone.CompletionHistory, func(i, j int) bool {
		return clone.CompletionHistory[i].Date.Before(clone.CompletionHistory[j].Date)
	})
	return &clone
}

func (r *InMemoryHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	habit, ok := r.store[id]
	if !ok || habit.DeletedAt != nil {
		return nil, domain.ErrHabitNotFound
	}
	return r.withHistory(habit), nil
}

func (r *InMemoryHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	habits := []*domain.Habit{}
	for _, h := range r.store {
		if h.UserID == userID && h.DeletedAt == nil {
			habits = append(habits, r.withHistory(h))
		}
	}

	sort.Slice(habits, func(i, j int) bool {
		return habits[i].CreatedAt.Before(habits[j].CreatedAt)
	})

	return habits, nil
}

func (r *InMemoryHabitRepository) Update(ctx context.Context, habit *domain.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.store[habit.ID]
	if !ok || stored.DeletedAt != nil {
		return domain.ErrHabitNotFound
	}
	if stored.Version != habit.Version {
		return domain.ErrHabitConflict
	}

	clone := *habit
	clone.CompletionHistory = nil
	clone.Streak = stored.Streak
	clone.Version++
	r.store[habit.ID] = &clone
	habit.Version = clone.Version
	return nil
}

func (r *InMemoryHabitRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.store[id]
	if !ok || h.DeletedAt != nil {
		return domain.ErrHabitNotFound
	}

	now := time.Now().UTC()
	h.DeletedAt = &now
	h.UpdatedAt = now
	h.Version++
	return nil
}

func (r *InMemoryHabitRepository) UpsertEntry(ctx context.Context, entry *domain.CompletionEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.store[entry.HabitID]
	if !ok || h.DeletedAt != nil {
		return domain.ErrHabitNotFound
	}

	key := domain.DayKey(entry.Date)
	e := *entry
	if prev, exists := r.entries[entry.HabitID][key]; exists {
		e.CreatedAt = prev.CreatedAt
	}
	r.entries[entry.HabitID][key] = e
	return nil
}

func (r *InMemoryHabitRepository) UpdateStreak(ctx context.Context, id string, streak domain.StreakData) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.store[id]
	if !ok {
		return domain.ErrHabitNotFound
	}
	h.Streak = streak
	return nil
}

func (r *InMemoryHabitRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, h := range r.store {
		if h.UserID == userID {
			n++
		}
	}
	return n, nil
}

type InMemoryTaskRepository struct {
	store map[string]*domain.Task
	mu    sync.RWMutex
}

func NewInMemoryTaskRepository() *InMemoryTaskRepository {
	return &InMemoryTaskRepository{store: make(map[string]*domain.Task)}
}

func (r *InMemoryTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *task
	r.store[task.ID] = &clone
	return nil
}

func (r *InMemoryTaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.store[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *InMemoryTaskRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := []*domain.Task{}
	for _, t := range r.store {
		if t.UserID == userID {
			clone := *t
			tasks = append(tasks, &clone)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks, nil
}

func (r *InMemoryTaskRepository) SetCompleted(ctx context.Context, task *domain.Task) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[task.ID]
	if !ok || t.Completed == task.Completed {
		return false, nil
	}
	t.Completed = task.Completed
	t.CompletedAt = task.CompletedAt
	t.UpdatedAt = task.UpdatedAt
	return true, nil
}

func (r *InMemoryTaskRepository) CountByUserID(ctx context.Context, userID string) (int, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	created, completed := 0, 0
	for _, t := range r.store {
		if t.UserID != userID {
			continue
		}
		created++
		if t.Completed {
			completed++
		}
	}
	return created, completed, nil
}

func (r *InMemoryTaskRepository) ListCompletionTimes(ctx context.Context, userID string) ([]time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []time.Time
	for _, t := range r.store {
		if t.UserID == userID && t.Completed && t.CompletedAt != nil {
			out = append(out, *t.CompletedAt)
		}
	}
	return out, nil
}

type InMemoryGoalRepository struct {
	store map[string]*domain.Goal
	mu    sync.RWMutex
}

func NewInMemoryGoalRepository() *InMemoryGoalRepository {
	return &InMemoryGoalRepository{store: make(map[string]*domain.Goal)}
}

func (r *InMemoryGoalRepository) Create(ctx context.Context, goal *domain.Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *goal
	r.store[goal.ID] = &clone
	return nil
}

func (r *InMemoryGoalRepository) GetByID(ctx context.Context, id string) (*domain.Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.store[id]
	if !ok {
		return nil, domain.ErrGoalNotFound
	}
	clone := *g
	return &clone, nil
}

func (r *InMemoryGoalRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	goals := []*domain.Goal{}
	for _, g := range r.store {
		if g.UserID == userID {
			clone := *g
			goals = append(goals, &clone)
		}
	}
	sort.Slice(goals, func(i, j int) bool { return goals[i].CreatedAt.Before(goals[j].CreatedAt) })
	return goals, nil
}

func (r *InMemoryGoalRepository) UpdateProgress(ctx context.Context, goal *domain.Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.store[goal.ID]
	if !ok {
		return domain.ErrGoalNotFound
	}
	g.Progress = goal.Progress
	g.Completed = goal.Completed
	g.CompletedAt = goal.CompletedAt
	g.UpdatedAt = goal.UpdatedAt
	return nil
}

type metricsKey struct {
	userID string
	day    string
}

// InMemoryDailyMetricsRepository serializes increments with a mutex, mirroring
// the single-statement upsert used by PostgreSQL.
type InMemoryDailyMetricsRepository struct {
	store map[metricsKey]*domain.DailyMetrics
	mu    sync.Mutex
}

func NewInMemoryDailyMetricsRepository() *InMemoryDailyMetricsRepository {
	return &InMemoryDailyMetricsRepository{store: make(map[metricsKey]*domain.DailyMetrics)}
}

func copyMetrics(m *domain.DailyMetrics) *domain.DailyMetrics {
	clone := *m
	clone.GoalProgress = append([]domain.GoalProgress{}, m.GoalProgress...)
	if m.DayRating != nil {
		r := *m.DayRating
		clone.DayRating = &r
	}
	return &clone
}

// ensure returns the stored record, creating it first. Caller holds the lock.
func (r *InMemoryDailyMetricsRepository) ensure(userID string, day time.Time) *domain.DailyMetrics {
	k := metricsKey{userID: userID, day: domain.DayKey(day)}
	m, ok := r.store[k]
	if !ok {
		m = domain.NewDailyMetrics(userID, day)
		r.store[k] = m
	}
	return m
}

func (r *InMemoryDailyMetricsRepository) Get(ctx context.Context, userID string, day time.Time) (*domain.DailyMetrics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.store[metricsKey{userID: userID, day: domain.DayKey(day)}]
	if !ok {
		return nil, domain.ErrMetricsNotFound
	}
	return copyMetrics(m), nil
}

func (r *InMemoryDailyMetricsRepository) Ensure(ctx context.Context, userID string, day time.Time) (*domain.DailyMetrics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return copyMetrics(r.ensure(userID, day)), nil
}

func (r *InMemoryDailyMetricsRepository) Increment(ctx context.Context, userID string, day time.Time, delta domain.MetricsCounters) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.ensure(userID, day)
	m.TasksCompleted = max(0, m.TasksCompleted+delta.TasksCompleted)
	m.TasksCreated = max(0, m.TasksCreated+delta.TasksCreated)
	m.FocusTimeMinutes = max(0, m.FocusTimeMinutes+delta.FocusTimeMinutes)
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryDailyMetricsRepository) SetDayRating(ctx context.Context, userID string, day time.Time, rating int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.ensure(userID, day)
	m.DayRating = &rating
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryDailyMetricsRepository) SaveDerived(ctx context.Context, userID string, day time.Time, derived domain.MetricsDerived) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.ensure(userID, day)
	m.HabitCompletionRate = derived.HabitCompletionRate
	m.GoalProgress = append([]domain.GoalProgress{}, derived.GoalProgress...)
	m.ProductivityScore = derived.ProductivityScore
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryDailyMetricsRepository) ListRange(ctx context.Context, userID string, from, to time.Time) ([]domain.DailyMetrics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	from, to = domain.CalendarDay(from), domain.CalendarDay(to)
	out := []domain.DailyMetrics{}
	for k, m := range r.store {
		if k.userID != userID || m.Date.Before(from) || m.Date.After(to) {
			continue
		}
		out = append(out, *copyMetrics(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *InMemoryDailyMetricsRepository) TotalFocusMinutes(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for k, m := range r.store {
		if k.userID == userID {
			total += m.FocusTimeMinutes
		}
	}
	return total, nil
}

type InMemoryAchievementRepository struct {
	defs     map[string]domain.AchievementDefinition
	order    []string
	progress map[string]map[string]domain.UserAchievementProgress
	mu       sync.RWMutex
}

func NewInMemoryAchievementRepository() *InMemoryAchievementRepository {
	return &InMemoryAchievementRepository{
		defs:     make(map[string]domain.AchievementDefinition),
		progress: make(map[string]map[string]domain.UserAchievementProgress),
	}
}

func (r *InMemoryAchievementRepository) SeedDefinitions(ctx context.Context, defs []domain.AchievementDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range defs {
		if _, exists := r.defs[d.ID]; !exists {
			r.order = append(r.order, d.ID)
		}
		r.defs[d.ID] = d
	}
	return nil
}

func (r *InMemoryAchievementRepository) ListDefinitions(ctx context.Context) ([]domain.AchievementDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.AchievementDefinition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.defs[id])
	}
	return out, nil
}

func (r *InMemoryAchievementRepository) ListProgress(ctx context.Context, userID string) ([]domain.UserAchievementProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.UserAchievementProgress{}
	for _, p := range r.progress[userID] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AchievementID < out[j].AchievementID })
	return out, nil
}

func (r *InMemoryAchievementRepository) SaveProgress(ctx context.Context, progress []domain.UserAchievementProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range progress {
		byID, ok := r.progress[p.UserID]
		if !ok {
			byID = make(map[string]domain.UserAchievementProgress)
			r.progress[p.UserID] = byID
		}
		if old, exists := byID[p.AchievementID]; exists && old.Earned {
			continue
		}
		byID[p.AchievementID] = p
	}
	return nil
}

type InMemoryUserRepository struct {
	store map[string]*domain.User
	mu    sync.RWMutex
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{store: make(map[string]*domain.User)}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.store {
		if u.Email == user.Email {
			return domain.ErrEmailAlreadyExists
		}
	}
	clone := *user
	r.store[user.ID] = &clone
	return nil
}

func (r *InMemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.store {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *InMemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.store[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *InMemoryUserRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.store, id)
	return nil
}
