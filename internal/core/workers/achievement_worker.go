package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

const (
	DefaultQueueSize   = 100
	DefaultMaxAttempts = 5
	DefaultBackoff     = 2 * time.Second

	overflowDrainInterval = 5 * time.Second
	overflowTimeout       = 2 * time.Second
)

// AchievementChecker re-runs the achievement evaluation for one user.
type AchievementChecker interface {
	CheckAchievements(ctx context.Context, userID string) ([]domain.UserAchievementProgress, error)
}

// Overflow parks users that did not fit in the in-process queue.
type Overflow interface {
	Push(ctx context.Context, userID string) error
	Drain(ctx context.Context, limit int) ([]string, error)
}

type AchievementJob struct {
	UserID  string
	Attempt int
}

// AchievementWorker retries achievement evaluations that failed inside a request.
// Jobs for the same user are collapsed while one is queued.
type AchievementWorker struct {
	checker     AchievementChecker
	jobs        chan AchievementJob
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
	overflow    Overflow

	mu      sync.Mutex
	pending map[string]bool
}

func NewAchievementWorker(checker AchievementChecker, queueSize, maxAttempts int, backoff time.Duration, logger *slog.Logger) *AchievementWorker {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if backoff < 0 {
		backoff = DefaultBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AchievementWorker{
		checker:     checker,
		jobs:        make(chan AchievementJob, queueSize),
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      logger,
		pending:     make(map[string]bool),
	}
}

// SetOverflow must be called before Start.
func (w *AchievementWorker) SetOverflow(o Overflow) {
	w.overflow = o
}

// Start consumes jobs until ctx is cancelled. The returned channel is closed on exit.
func (w *AchievementWorker) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)
		w.logger.Info("achievement worker started")

		ticker := time.NewTicker(overflowDrainInterval)
		defer ticker.Stop()

		for {
			select {
			case job := <-w.jobs:
				w.processJob(ctx, job)
			case <-ticker.C:
				w.drainOverflow(ctx)
			case <-ctx.Done():
				w.logger.Info("achievement worker shutting down")
				return
			}
		}
	}()

	return done
}

// Enqueue schedules a first attempt for userID. It never blocks.
func (w *AchievementWorker) Enqueue(userID string) {
	w.push(AchievementJob{UserID: userID, Attempt: 1})
}

func (w *AchievementWorker) push(job AchievementJob) bool {
	w.mu.Lock()
	if w.pending[job.UserID] {
		w.mu.Unlock()
		return true
	}
	w.pending[job.UserID] = true
	w.mu.Unlock()

	select {
	case w.jobs <- job:
		return true
	default:
		w.release(job.UserID)
		if w.parkOverflow(job.UserID) {
			return true
		}
		w.logger.Warn("achievement worker queue full, dropping job", "user_id", job.UserID)
		return false
	}
}

func (w *AchievementWorker) parkOverflow(userID string) bool {
	if w.overflow == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), overflowTimeout)
	defer cancel()

	if err := w.overflow.Push(ctx, userID); err != nil {
		w.logger.Warn("overflow push failed", "user_id", userID, "error", err)
		return false
	}
	return true
}

// drainOverflow refills the queue with parked users up to its free capacity.
func (w *AchievementWorker) drainOverflow(ctx context.Context) {
	if w.overflow == nil {
		return
	}
	free := cap(w.jobs) - len(w.jobs)
	if free <= 0 {
		return
	}

	ids, err := w.overflow.Drain(ctx, free)
	if err != nil {
		w.logger.Warn("overflow drain failed", "error", err)
	}
	for _, id := range ids {
		w.push(AchievementJob{UserID: id, Attempt: 1})
	}
}

func (w *AchievementWorker) release(userID string) {
	w.mu.Lock()
	delete(w.pending, userID)
	w.mu.Unlock()
}

func (w *AchievementWorker) processJob(ctx context.Context, job AchievementJob) {
	w.release(job.UserID)

	earned, err := w.checker.CheckAchievements(ctx, job.UserID)
	if err == nil {
		if len(earned) > 0 {
			w.logger.Info("achievements earned on retry", "user_id", job.UserID, "count", len(earned))
		}
		return
	}

	if job.Attempt >= w.maxAttempts {
		w.logger.Error("giving up on achievement evaluation",
			"user_id", job.UserID, "attempts", job.Attempt, "error", err)
		return
	}

	w.logger.Warn("achievement evaluation retry failed",
		"user_id", job.UserID, "attempt", job.Attempt, "error", err)

	next := AchievementJob{UserID: job.UserID, Attempt: job.Attempt + 1}
	delay := w.backoff * time.Duration(job.Attempt)

	go func() {
		select {
		case <-time.After(delay):
			w.push(next)
		case <-ctx.Done():
		}
	}()
}
