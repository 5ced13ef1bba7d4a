package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ossignal/ossignal/internal/adapters/driven/storage/memory"
	"github.com/ossignal/ossignal/internal/core/domain"
	"github.com/ossignal/ossignal/internal/core/ports/driving"
)

// The scheduler tests run against the in-memory scheduler store; only the
// crawl driver is mocked.

// mockCrawler implements driving.Crawler for testing.
type mockCrawler struct {
	mu        sync.Mutex
	runCalled bool
	summaries []driving.Summary
	runErr    error
}

func (m *mockCrawler) Run(_ context.Context) ([]driving.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runCalled = true
	return m.summaries, m.runErr
}

func (m *mockCrawler) called() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runCalled
}

var _ driving.Crawler = (*mockCrawler)(nil)

// ==================== Scheduler Tests ====================

func TestNewScheduler(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := memory.NewSchedulerStore()
	crawler := &mockCrawler{}

	scheduler := NewScheduler(config, store, crawler)

	require.NotNil(t, scheduler)
	assert.Equal(t, config.Enabled, scheduler.config.Enabled)
}

func TestScheduler_StartStop(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := memory.NewSchedulerStore()
	crawler := &mockCrawler{}

	scheduler := NewScheduler(config, store, crawler)

	ctx, cancel := context.WithCancel(context.Background())

	// Start scheduler in goroutine
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = scheduler.Start(ctx)
	}()

	// Give it time to start
	time.Sleep(50 * time.Millisecond)

	// Stop scheduler
	cancel()
	err := scheduler.Stop()
	require.NoError(t, err)

	wg.Wait()
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := memory.NewSchedulerStore()
	crawler := &mockCrawler{}

	scheduler := NewScheduler(config, store, crawler)

	// Stop without starting should be safe
	err := scheduler.Stop()
	require.NoError(t, err)
}

func TestScheduler_DoubleStart(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := memory.NewSchedulerStore()
	crawler := &mockCrawler{}

	scheduler := NewScheduler(config, store, crawler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First start
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = scheduler.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	// Second start should return immediately (already running)
	ctx2 := context.Background()
	err := scheduler.Start(ctx2)
	assert.NoError(t, err) // Should not error

	cancel()
	scheduler.Stop() //nolint:errcheck
	wg.Wait()
}

func TestScheduler_InitialiseTasks(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := memory.NewSchedulerStore()
	crawler := &mockCrawler{}

	scheduler := NewScheduler(config, store, crawler)

	ctx := context.Background()
	err := scheduler.initialiseTasks(ctx)
	require.NoError(t, err)

	// Check autocrawl task was created
	task, err := store.GetTask(ctx, domain.TaskIDAutocrawl)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "Autocrawl", task.Name)
	assert.True(t, task.Enabled)
}

func TestScheduler_EnsureTask_UpdateInterval(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := memory.NewSchedulerStore()
	crawler := &mockCrawler{}

	scheduler := NewScheduler(config, store, crawler)
	ctx := context.Background()

	// Create initial task
	taskCfg := domain.TaskConfig{
		Enabled:  true,
		Interval: 1 * time.Hour,
	}
	err := scheduler.ensureTask(ctx, "test-task", "Test Task", taskCfg)
	require.NoError(t, err)

	// Update with new interval
	taskCfg.Interval = 2 * time.Hour
	err = scheduler.ensureTask(ctx, "test-task", "Test Task", taskCfg)
	require.NoError(t, err)

	// Verify interval was updated
	task, err := store.GetTask(ctx, "test-task")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, task.Interval)
}

func TestScheduler_RunAutocrawl(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := memory.NewSchedulerStore()
	crawler := &mockCrawler{
		summaries: []driving.Summary{
			{Command: "githubIssueFiled", Outcome: driving.OutcomeSuccess, Count: 3},
			{Command: "npmDownloads", Outcome: driving.OutcomeFailed, Detail: "boom"},
		},
	}

	scheduler := NewScheduler(config, store, crawler)
	ctx := context.Background()

	processed, err := scheduler.runAutocrawl(ctx)
	require.NoError(t, err)
	assert.True(t, crawler.called())
	assert.Equal(t, 2, processed)
}

func TestScheduler_RunAutocrawl_NilCrawler(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := memory.NewSchedulerStore()

	scheduler := NewScheduler(config, store, nil)
	ctx := context.Background()

	processed, err := scheduler.runAutocrawl(ctx)
	require.NoError(t, err)
	assert.Zero(t, processed)
}

func TestScheduler_RunAutocrawl_Error(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := memory.NewSchedulerStore()
	crawler := &mockCrawler{runErr: errors.New("listing failed")}

	scheduler := NewScheduler(config, store, crawler)
	ctx := context.Background()

	_, err := scheduler.runAutocrawl(ctx)
	require.Error(t, err)
}

func TestScheduler_CheckAndRunDueTasks(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := memory.NewSchedulerStore()
	crawler := &mockCrawler{}

	scheduler := NewScheduler(config, store, crawler)
	ctx := context.Background()

	// Create a task that is due
	now := time.Now()
	dueTask := &domain.ScheduledTask{
		ID:       domain.TaskIDAutocrawl,
		Name:     "Autocrawl",
		Interval: 1 * time.Hour,
		NextRun:  now.Add(-1 * time.Minute), // Already past due
		Enabled:  true,
	}
	err := store.SaveTask(ctx, dueTask)
	require.NoError(t, err)

	// Check and run due tasks
	scheduler.checkAndRunDueTasks(ctx)
	scheduler.wg.Wait()

	// Verify the crawl was triggered and a result recorded
	assert.True(t, crawler.called())
	history, err := store.GetTaskHistory(ctx, domain.TaskIDAutocrawl, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Success)
}

func TestScheduler_RunTask_UnknownTaskID(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := memory.NewSchedulerStore()

	scheduler := NewScheduler(config, store, nil)
	ctx := context.Background()

	// Create unknown task
	task := &domain.ScheduledTask{
		ID:      "unknown-task",
		Name:    "Unknown",
		Enabled: true,
	}

	// This should just log and return, not panic
	scheduler.runTask(ctx, task)
	scheduler.wg.Wait()
}
