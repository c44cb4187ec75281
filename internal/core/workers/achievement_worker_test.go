package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

type MockChecker struct {
	mock.Mock
	mu    sync.Mutex
	calls int
}

func (m *MockChecker) CheckAchievements(ctx context.Context, userID string) ([]domain.UserAchievementProgress, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.UserAchievementProgress), args.Error(1)
}

func (m *MockChecker) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestAchievementWorker_ProcessesJob(t *testing.T) {
	checker := new(MockChecker)
	checker.On("CheckAchievements", mock.Anything, "user-1").
		Return([]domain.UserAchievementProgress{{AchievementID: "first_habit"}}, nil).Once()

	w := NewAchievementWorker(checker, 10, 3, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := w.Start(ctx)

	w.Enqueue("user-1")

	assert.Eventually(t, func() bool { return checker.callCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	checker.AssertExpectations(t)
}

func TestAchievementWorker_RetriesUntilSuccess(t *testing.T) {
	checker := new(MockChecker)
	checker.On("CheckAchievements", mock.Anything, "user-1").Return(nil, errors.New("db down")).Twice()
	checker.On("CheckAchievements", mock.Anything, "user-1").Return([]domain.UserAchievementProgress{}, nil).Once()

	w := NewAchievementWorker(checker, 10, 5, time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := w.Start(ctx)

	w.Enqueue("user-1")

	assert.Eventually(t, func() bool { return checker.callCount() == 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
	checker.AssertExpectations(t)
}

func TestAchievementWorker_GivesUpAfterMaxAttempts(t *testing.T) {
	checker := new(MockChecker)
	checker.On("CheckAchievements", mock.Anything, "user-1").Return(nil, errors.New("db down"))

	w := NewAchievementWorker(checker, 10, 2, time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := w.Start(ctx)

	w.Enqueue("user-1")

	assert.Eventually(t, func() bool { return checker.callCount() == 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, checker.callCount())

	cancel()
	<-done
}

func TestAchievementWorker_QueueFullDropsJob(t *testing.T) {
	w := NewAchievementWorker(new(MockChecker), 1, 1, 0, nil)

	assert.True(t, w.push(AchievementJob{UserID: "a", Attempt: 1}))
	assert.False(t, w.push(AchievementJob{UserID: "b", Attempt: 1}))
	assert.True(t, w.push(AchievementJob{UserID: "a", Attempt: 1}), "Duplicate users collapse into the queued job")
	assert.Len(t, w.jobs, 1)
}

type sliceOverflow struct {
	mu  sync.Mutex
	ids []string
}

func (o *sliceOverflow) Push(ctx context.Context, userID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ids = append(o.ids, userID)
	return nil
}

func (o *sliceOverflow) Drain(ctx context.Context, limit int) ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := min(limit, len(o.ids))
	out := append([]string{}, o.ids[:n]...)
	o.ids = o.ids[n:]
	return out, nil
}

func TestAchievementWorker_QueueFullParksInOverflow(t *testing.T) {
	overflow := &sliceOverflow{}
	w := NewAchievementWorker(new(MockChecker), 1, 1, 0, nil)
	w.SetOverflow(overflow)

	assert.True(t, w.push(AchievementJob{UserID: "a", Attempt: 1}))
	assert.True(t, w.push(AchievementJob{UserID: "b", Attempt: 1}))
	assert.Equal(t, []string{"b"}, overflow.ids)

	<-w.jobs
	w.release("a")
	w.drainOverflow(context.Background())

	assert.Len(t, w.jobs, 1)
	assert.Empty(t, overflow.ids)
	job := <-w.jobs
	assert.Equal(t, "b", job.UserID)
}
