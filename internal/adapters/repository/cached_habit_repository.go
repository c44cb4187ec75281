package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

var _ domain.HabitRepository = (*CachedHabitRepository)(nil)

const habitListTTL = 30 * time.Minute

// CachedHabitRepository caches each user's habit list (history included) in Redis.
// Every write path drops the user's key; reads by id always go to the store.
type CachedHabitRepository struct {
	next   domain.HabitRepository
	cache  redis.Cmdable
	logger *slog.Logger
}

func NewCachedHabitRepository(next domain.HabitRepository, cache redis.Cmdable, logger *slog.Logger) *CachedHabitRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedHabitRepository{
		next:   next,
		cache:  cache,
		logger: logger.With("component", "habit_cache"),
	}
}

func (r *CachedHabitRepository) cacheKey(userID string) string {
	return fmt.Sprintf("habits:%s", userID)
}

func (r *CachedHabitRepository) invalidate(ctx context.Context, userID string) {
	if err := r.cache.Del(ctx, r.cacheKey(userID)).Err(); err != nil {
		r.logger.Warn("invalidate failed", "user_id", userID, "error", err)
	}
}

// invalidateOwner resolves the habit's owner before a write that only carries the id.
func (r *CachedHabitRepository) invalidateOwner(ctx context.Context, habitID string) func() {
	habit, err := r.next.GetByID(ctx, habitID)
	if err != nil || habit == nil {
		return func() {}
	}
	return func() { r.invalidate(ctx, habit.UserID) }
}

func (r *CachedHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	key := r.cacheKey(userID)

	val, err := r.cache.Get(ctx, key).Result()
	if err == nil {
		var habits []*domain.Habit
		if err := json.Unmarshal([]byte(val), &habits); err == nil {
			restoreEntryOwners(habits)
			return habits, nil
		}

		r.logger.Warn("corrupted cache entry, dropping key", "user_id", userID)
		r.cache.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		r.logger.Warn("redis read failed", "error", err)
	}

	habits, err := r.next.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(habits); err == nil {
		if setErr := r.cache.Set(ctx, key, data, habitListTTL).Err(); setErr != nil {
			r.logger.Warn("redis write failed", "error", setErr)
		}
	}

	return habits, nil
}

// restoreEntryOwners refills the entry ids that the JSON form omits.
func restoreEntryOwners(habits []*domain.Habit) {
	for _, h := range habits {
		for i := range h.CompletionHistory {
			h.CompletionHistory[i].HabitID = h.ID
			h.CompletionHistory[i].UserID = h.UserID
		}
	}
}

func (r *CachedHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	return r.next.GetByID(ctx, id)
}

func (r *CachedHabitRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	return r.next.CountByUserID(ctx, userID)
}

func (r *CachedHabitRepository) Create(ctx context.Context, habit *domain.Habit) error {
	if err := r.next.Create(ctx, habit); err != nil {
		return err
	}
	r.invalidate(ctx, habit.UserID)
	return nil
}

func (r *CachedHabitRepository) Update(ctx context.Context, habit *domain.Habit) error {
	if err := r.next.Update(ctx, habit); err != nil {
		return err
	}
	r.invalidate(ctx, habit.UserID)
	return nil
}

func (r *CachedHabitRepository) Delete(ctx context.Context, id string) error {
	done := r.invalidateOwner(ctx, id)
	defer done()

	return r.next.Delete(ctx, id)
}

func (r *CachedHabitRepository) UpsertEntry(ctx context.Context, entry *domain.CompletionEntry) error {
	if err := r.next.UpsertEntry(ctx, entry); err != nil {
		return err
	}
	r.invalidate(ctx, entry.UserID)
	return nil
}

func (r *CachedHabitRepository) UpdateStreak(ctx context.Context, id string, streak domain.StreakData) error {
	done := r.invalidateOwner(ctx, id)
	defer done()

	return r.next.UpdateStreak(ctx, id, streak)
}
