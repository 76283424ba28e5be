package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chatlens/chatlens/internal/ingest"
	"github.com/chatlens/chatlens/internal/models"
)

// MockBackend is a mock implementation of the ingest backend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) StartProcessing(ctx context.Context, chatID string) (*ingest.JobStatus, error) {
	args := m.Called(ctx, chatID)
	return args.Get(0).(*ingest.JobStatus), args.Error(1)
}

func (m *MockBackend) FetchJobStatus(ctx context.Context, jobID string) (*ingest.JobStatus, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).(*ingest.JobStatus), args.Error(1)
}

func (m *MockBackend) FetchMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockBackend) FetchSentimentRecords(ctx context.Context, chatID, granularity string) ([]models.SentimentRecord, error) {
	args := m.Called(ctx, chatID, granularity)
	return args.Get(0).([]models.SentimentRecord), args.Error(1)
}

func TestRegistry_JobRunsToCompletion(t *testing.T) {
	backend := &MockBackend{}
	backend.On("StartProcessing", mock.Anything, "chat-1").
		Return(&ingest.JobStatus{JobID: "job-1", ChatID: "chat-1", Status: "starting"}, nil)
	backend.On("FetchJobStatus", mock.Anything, "job-1").
		Return(&ingest.JobStatus{JobID: "job-1", Status: "in_progress", Progress: 40}, nil).Once()
	backend.On("FetchJobStatus", mock.Anything, "job-1").
		Return(&ingest.JobStatus{JobID: "job-1", Status: "completed", Progress: 100}, nil).Once()

	registry := NewRegistry(backend, 10*time.Millisecond)

	completed := make(chan Job, 1)
	ticks := 0
	handle, err := registry.Start(context.Background(), "chat-1", Callbacks{
		OnTick:     func(Job) { ticks++ },
		OnComplete: func(job Job) { completed <- job },
	})
	require.NoError(t, err)
	assert.Equal(t, "job-1", handle.JobID)

	select {
	case job := <-completed:
		assert.Equal(t, StateCompleted, job.State)
		assert.Equal(t, 100, job.Progress)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not complete")
	}

	job, ok := registry.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, StateCompleted, job.State)
	assert.GreaterOrEqual(t, ticks, 2)
	backend.AssertExpectations(t)
}

func TestRegistry_JobFailure(t *testing.T) {
	backend := &MockBackend{}
	backend.On("StartProcessing", mock.Anything, "chat-1").
		Return(&ingest.JobStatus{JobID: "job-1", ChatID: "chat-1", Status: "starting"}, nil)
	backend.On("FetchJobStatus", mock.Anything, "job-1").
		Return(&ingest.JobStatus{JobID: "job-1", Status: "failed", Error: "parse error"}, nil)

	registry := NewRegistry(backend, 10*time.Millisecond)

	failed := make(chan error, 1)
	_, err := registry.Start(context.Background(), "chat-1", Callbacks{
		OnError: func(_ Job, err error) { failed <- err },
	})
	require.NoError(t, err)

	select {
	case err := <-failed:
		assert.Contains(t, err.Error(), "parse error")
	case <-time.After(2 * time.Second):
		t.Fatal("job did not fail")
	}

	job, _ := registry.ForChat("chat-1")
	assert.Equal(t, StateFailed, job.State)
	assert.Equal(t, "parse error", job.Error)
}

func TestRegistry_CancelHonoredAtNextTick(t *testing.T) {
	backend := &MockBackend{}
	backend.On("StartProcessing", mock.Anything, "chat-1").
		Return(&ingest.JobStatus{JobID: "job-1", ChatID: "chat-1", Status: "starting"}, nil)
	backend.On("FetchJobStatus", mock.Anything, "job-1").
		Return(&ingest.JobStatus{JobID: "job-1", Status: "in_progress", Progress: 10}, nil).Maybe()

	registry := NewRegistry(backend, 10*time.Millisecond)

	handle, err := registry.Start(context.Background(), "chat-1", Callbacks{})
	require.NoError(t, err)

	handle.Cancel()
	handle.Cancel() // idempotent

	assert.Eventually(t, func() bool {
		job, ok := registry.Get("job-1")
		return ok && job.State == StateCancelled
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRegistry_RejectsConcurrentJobForSameChat(t *testing.T) {
	backend := &MockBackend{}
	backend.On("StartProcessing", mock.Anything, "chat-1").
		Return(&ingest.JobStatus{JobID: "job-1", ChatID: "chat-1", Status: "starting"}, nil)
	backend.On("FetchJobStatus", mock.Anything, "job-1").
		Return(&ingest.JobStatus{JobID: "job-1", Status: "in_progress"}, nil).Maybe()

	registry := NewRegistry(backend, time.Hour)

	_, err := registry.Start(context.Background(), "chat-1", Callbacks{})
	require.NoError(t, err)

	_, err = registry.Start(context.Background(), "chat-1", Callbacks{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already has an active job")
}

func TestRegistry_ConcurrentStartsOnlyOneWins(t *testing.T) {
	backend := &MockBackend{}
	backend.On("StartProcessing", mock.Anything, "chat-1").
		Run(func(mock.Arguments) { time.Sleep(50 * time.Millisecond) }).
		Return(&ingest.JobStatus{JobID: "job-1", ChatID: "chat-1", Status: "starting"}, nil)
	backend.On("FetchJobStatus", mock.Anything, "job-1").
		Return(&ingest.JobStatus{JobID: "job-1", Status: "in_progress"}, nil).Maybe()

	registry := NewRegistry(backend, time.Hour)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := registry.Start(context.Background(), "chat-1", Callbacks{})
			errs <- err
		}()
	}

	first, second := <-errs, <-errs
	if first == nil {
		first, second = second, first
	}
	require.Error(t, first, "one of the concurrent starts must be rejected")
	assert.Contains(t, first.Error(), "already has an active job")
	assert.NoError(t, second)
	backend.AssertNumberOfCalls(t, "StartProcessing", 1)
}

func TestRegistry_StartRollsBackOnBackendError(t *testing.T) {
	backend := &MockBackend{}
	backend.On("StartProcessing", mock.Anything, "chat-1").
		Return((*ingest.JobStatus)(nil), errors.New("backend down")).Once()
	backend.On("StartProcessing", mock.Anything, "chat-1").
		Return(&ingest.JobStatus{JobID: "job-1", ChatID: "chat-1", Status: "starting"}, nil).Once()
	backend.On("FetchJobStatus", mock.Anything, "job-1").
		Return(&ingest.JobStatus{JobID: "job-1", Status: "in_progress"}, nil).Maybe()

	registry := NewRegistry(backend, time.Hour)

	_, err := registry.Start(context.Background(), "chat-1", Callbacks{})
	require.Error(t, err)

	// The failed attempt left no reservation behind.
	handle, err := registry.Start(context.Background(), "chat-1", Callbacks{})
	require.NoError(t, err)
	assert.Equal(t, "job-1", handle.JobID)
}

func TestRegistry_StartRejectsMissingJobID(t *testing.T) {
	backend := &MockBackend{}
	backend.On("StartProcessing", mock.Anything, "chat-1").
		Return(&ingest.JobStatus{ChatID: "chat-1", Status: "starting"}, nil)

	registry := NewRegistry(backend, time.Hour)

	_, err := registry.Start(context.Background(), "chat-1", Callbacks{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no job id")

	_, ok := registry.ForChat("chat-1")
	assert.False(t, ok, "rejected start must not leave a job behind")
}

func TestRegistry_ConsecutivePollFailuresFailTheJob(t *testing.T) {
	backend := &MockBackend{}
	backend.On("StartProcessing", mock.Anything, "chat-1").
		Return(&ingest.JobStatus{JobID: "job-1", ChatID: "chat-1", Status: "starting"}, nil)
	backend.On("FetchJobStatus", mock.Anything, "job-1").
		Return((*ingest.JobStatus)(nil), errors.New("job not found"))

	registry := NewRegistry(backend, 5*time.Millisecond)

	failed := make(chan error, 1)
	_, err := registry.Start(context.Background(), "chat-1", Callbacks{
		OnError: func(_ Job, err error) { failed <- err },
	})
	require.NoError(t, err)

	select {
	case err := <-failed:
		assert.Contains(t, err.Error(), "job not found")
	case <-time.After(2 * time.Second):
		t.Fatal("job never reached a terminal state despite an unreachable backend")
	}

	job, ok := registry.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, StateFailed, job.State)
}

func TestRegistry_Sweep(t *testing.T) {
	registry := NewRegistry(&MockBackend{}, time.Hour)

	stale := time.Now().Add(-48 * time.Hour)
	registry.jobs["old-done"] = &Job{ID: "old-done", ChatID: "a", State: StateCompleted, UpdatedAt: stale}
	registry.jobs["old-running"] = &Job{ID: "old-running", ChatID: "b", State: StateInProgress, UpdatedAt: stale}
	registry.jobs["fresh-done"] = &Job{ID: "fresh-done", ChatID: "c", State: StateCompleted, UpdatedAt: time.Now()}
	registry.byChat["a"] = "old-done"
	registry.byChat["b"] = "old-running"
	registry.byChat["c"] = "fresh-done"

	removed := registry.Sweep(24 * time.Hour)
	assert.Equal(t, 1, removed)

	_, ok := registry.Get("old-done")
	assert.False(t, ok)
	_, ok = registry.Get("old-running")
	assert.True(t, ok, "non-terminal jobs are never swept")
	_, ok = registry.Get("fresh-done")
	assert.True(t, ok)
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from    State
		to      State
		allowed bool
	}{
		{StateStarting, StateInProgress, true},
		{StateStarting, StateCompleted, true},
		{StateInProgress, StateCompleted, true},
		{StateInProgress, StateFailed, true},
		{StateInProgress, StateCancelled, true},
		{StateCompleted, StateInProgress, false},
		{StateCancelled, StateInProgress, false},
		{StateFailed, StateCompleted, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, canTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestStateTerminal(t *testing.T) {
	assert.False(t, StateStarting.Terminal())
	assert.False(t, StateInProgress.Terminal())
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateCancelled.Terminal())
	assert.True(t, StateFailed.Terminal())
}
