package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Options struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (o Options) Addr() string {
	return fmt.Sprintf("%s:%s", o.Host, o.Port)
}

// NewRedisClient connects and pings; callers decide whether a failure is fatal.
func NewRedisClient(opts Options) (*redis.Client, error) {
	addr := opts.Addr()

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return rdb, nil
}

// AchievementQueueKey is the list where users awaiting an achievement re-check are parked
// when the in-process worker queue is saturated.
const AchievementQueueKey = "achievements:pending"

// PendingQueue is a durable overflow list backed by Redis.
type PendingQueue struct {
	rdb redis.Cmdable
	key string
}

func NewPendingQueue(rdb redis.Cmdable, key string) *PendingQueue {
	return &PendingQueue{rdb: rdb, key: key}
}

func (q *PendingQueue) Push(ctx context.Context, userID string) error {
	return q.rdb.RPush(ctx, q.key, userID).Err()
}

// Drain pops up to limit ids in FIFO order.
func (q *PendingQueue) Drain(ctx context.Context, limit int) ([]string, error) {
	ids := make([]string, 0, limit)
	for len(ids) < limit {
		id, err := q.rdb.LPop(ctx, q.key).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
