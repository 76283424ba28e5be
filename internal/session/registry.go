package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/internal/ingest"
)

// State is the lifecycle state of one analysis job.
type State string

const (
	StateStarting   State = "starting"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateCancelled  State = "cancelled"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// validTransitions enumerates the allowed state machine edges. Anything else
// coming back from the backend is ignored rather than applied.
var validTransitions = map[State][]State{
	StateStarting:   {StateInProgress, StateCompleted, StateCancelled, StateFailed},
	StateInProgress: {StateInProgress, StateCompleted, StateCancelled, StateFailed},
}

func canTransition(from, to State) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Job is a snapshot of one analysis job.
type Job struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	State     State     `json:"state"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Callbacks receive job lifecycle events. All callbacks are optional and are
// invoked from the job's poll goroutine.
type Callbacks struct {
	OnTick     func(Job)
	OnComplete func(Job)
	OnError    func(Job, error)
}

// Handle allows cancelling a running job. Cancellation is honored at the next
// poll tick, never mid-transition.
type Handle struct {
	JobID  string
	cancel chan struct{}
	once   sync.Once
}

// Cancel requests cancellation. Safe to call more than once.
func (h *Handle) Cancel() {
	h.once.Do(func() { close(h.cancel) })
}

// Registry tracks analysis jobs and drives their state machines by polling
// the processing backend. It replaces any ambient per-chat timer state: every
// job is owned by the registry and addressed through its handle.
type Registry struct {
	backend  ingest.Backend
	interval time.Duration

	mu     sync.RWMutex
	jobs   map[string]*Job
	byChat map[string]string
}

// NewRegistry creates a registry polling the backend at the given interval.
func NewRegistry(backend ingest.Backend, interval time.Duration) *Registry {
	return &Registry{
		backend:  backend,
		interval: interval,
		jobs:     make(map[string]*Job),
		byChat:   make(map[string]string),
	}
}

// Start kicks off processing for a chat and begins polling its status. A chat
// can only have one non-terminal job at a time: the chat is reserved under the
// lock before the backend call, so concurrent Starts cannot both pass the
// check, and the reservation is rolled back if the backend call fails.
func (r *Registry) Start(ctx context.Context, chatID string, callbacks Callbacks) (*Handle, error) {
	provisional := uuid.NewString()
	now := time.Now()
	job := &Job{
		ID:        provisional,
		ChatID:    chatID,
		State:     StateStarting,
		StartedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	if jobID, ok := r.byChat[chatID]; ok {
		if existing, ok := r.jobs[jobID]; ok && !existing.State.Terminal() {
			r.mu.Unlock()
			return nil, fmt.Errorf("chat %s already has an active job %s", chatID, jobID)
		}
	}
	r.jobs[provisional] = job
	r.byChat[chatID] = provisional
	r.mu.Unlock()

	status, err := r.backend.StartProcessing(ctx, chatID)
	if err != nil {
		r.release(chatID, provisional)
		return nil, fmt.Errorf("failed to start processing: %w", err)
	}
	if status.JobID == "" {
		// Without a backend-issued id there is nothing to poll; a locally
		// invented id would error on every status fetch.
		r.release(chatID, provisional)
		return nil, fmt.Errorf("backend returned no job id for chat %s", chatID)
	}

	r.mu.Lock()
	delete(r.jobs, provisional)
	job.ID = status.JobID
	r.jobs[job.ID] = job
	r.byChat[chatID] = job.ID
	r.mu.Unlock()

	handle := &Handle{JobID: job.ID, cancel: make(chan struct{})}
	go r.poll(job.ID, handle, callbacks)

	logrus.Infof("Started analysis job %s for chat %s", job.ID, chatID)
	return handle, nil
}

// release drops the reservation left by a Start attempt that did not produce
// a running job.
func (r *Registry) release(chatID, jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, jobID)
	if r.byChat[chatID] == jobID {
		delete(r.byChat, chatID)
	}
}

// maxPollFailures bounds consecutive status poll errors before a job is
// declared failed, so an unreachable backend cannot strand a job in a
// non-terminal state with no exit path.
const maxPollFailures = 5

// poll drives one job's state machine until it reaches a terminal state.
func (r *Registry) poll(jobID string, handle *Handle, callbacks Callbacks) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-handle.cancel:
			job := r.transition(jobID, StateCancelled, 0, "")
			logrus.Infof("Job %s cancelled", jobID)
			if callbacks.OnTick != nil {
				callbacks.OnTick(job)
			}
			return

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.interval)
			status, err := r.backend.FetchJobStatus(ctx, jobID)
			cancel()
			if err != nil {
				failures++
				if failures < maxPollFailures {
					logrus.Warnf("Status poll for job %s failed: %v", jobID, err)
					continue
				}
				job := r.transition(jobID, StateFailed, 0, err.Error())
				logrus.Errorf("Job %s failed after %d consecutive poll errors: %v", jobID, failures, err)
				if callbacks.OnError != nil {
					callbacks.OnError(job, fmt.Errorf("status polling for job %s gave up: %w", jobID, err))
				}
				return
			}
			failures = 0

			job := r.apply(jobID, status)
			if callbacks.OnTick != nil {
				callbacks.OnTick(job)
			}

			switch job.State {
			case StateCompleted:
				if callbacks.OnComplete != nil {
					callbacks.OnComplete(job)
				}
				return
			case StateFailed:
				if callbacks.OnError != nil {
					callbacks.OnError(job, fmt.Errorf("job %s failed: %s", jobID, job.Error))
				}
				return
			case StateCancelled:
				return
			}
		}
	}
}

// apply maps a backend status onto the job's state machine.
func (r *Registry) apply(jobID string, status *ingest.JobStatus) Job {
	next := StateInProgress
	switch status.Status {
	case "starting":
		next = StateStarting
	case "completed":
		next = StateCompleted
	case "failed":
		next = StateFailed
	}
	return r.transition(jobID, next, status.Progress, status.Error)
}

func (r *Registry) transition(jobID string, next State, progress int, errMsg string) Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return Job{ID: jobID, State: next}
	}
	if job.State != next && !canTransition(job.State, next) {
		logrus.Debugf("Ignoring invalid transition %s -> %s for job %s", job.State, next, jobID)
		return *job
	}

	job.State = next
	if progress > job.Progress {
		job.Progress = progress
	}
	if next == StateCompleted {
		job.Progress = 100
	}
	job.Error = errMsg
	job.UpdatedAt = time.Now()
	return *job
}

// Get returns a snapshot of a job by id.
func (r *Registry) Get(jobID string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// ForChat returns the latest job for a chat.
func (r *Registry) ForChat(chatID string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	jobID, ok := r.byChat[chatID]
	if !ok {
		return Job{}, false
	}
	job, ok := r.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Sweep drops terminal jobs not updated within the retention window and
// returns how many were removed.
func (r *Registry) Sweep(retention time.Duration) int {
	cutoff := time.Now().Add(-retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, job := range r.jobs {
		if job.State.Terminal() && job.UpdatedAt.Before(cutoff) {
			delete(r.jobs, id)
			if r.byChat[job.ChatID] == id {
				delete(r.byChat, job.ChatID)
			}
			removed++
		}
	}
	return removed
}
