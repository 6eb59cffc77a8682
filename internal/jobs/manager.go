package jobs

import (
	"errors"
	"fmt"
	"sync"

	"glb-merger/internal/domain"
)

// ErrMergeInProgress is returned when a batch is submitted while another runs.
var ErrMergeInProgress = errors.New("a merge is already in progress, please wait")

// ErrUnknownJob is returned when transitioning a job outside the batch.
var ErrUnknownJob = errors.New("job is not part of the current batch")

// Manager owns the single active batch and the status of each of its jobs.
type Manager struct {
	mu      sync.RWMutex
	batchID string
	active  bool
	jobs    []domain.Job
	index   map[string]int
}

// NewManager creates a manager with no active batch.
func NewManager() *Manager {
	return &Manager{index: map[string]int{}}
}

// TryAcquire claims the manager for batchID. It reports false without any
// change when another batch holds it.
func (m *Manager) TryAcquire(batchID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		return false
	}
	m.active = true
	m.batchID = batchID
	return true
}

// Release frees the manager. Job statuses of the finished batch stay
// readable until the next MarkPending.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = false
}

// IsRunning reports whether a batch currently holds the manager.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// BatchID returns the id of the current or most recent batch.
func (m *Manager) BatchID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.batchID
}

// MarkPending replaces the job table with ids, all pending.
func (m *Manager) MarkPending(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs = make([]domain.Job, len(ids))
	m.index = make(map[string]int, len(ids))
	for i, id := range ids {
		m.jobs[i] = domain.Job{ID: id, Status: domain.JobStatusPending}
		m.index[id] = i
	}
}

// Transition moves one job forward. Output path and error are recorded when
// non-empty.
func (m *Manager) Transition(jobID string, status domain.JobStatus, outputPath, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	job := &m.jobs[i]
	if job.Status == status {
		return nil
	}
	if !isValidTransition(job.Status, status) {
		return fmt.Errorf("invalid transition for job %s: %s -> %s", jobID, job.Status, status)
	}

	job.Status = status
	if outputPath != "" {
		job.OutputPath = outputPath
	}
	if errMsg != "" {
		job.Error = errMsg
	}
	return nil
}

// Snapshot returns a copy of the job table in submission order.
func (m *Manager) Snapshot() []domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Job(nil), m.jobs...)
}

// isValidTransition enforces forward-only job status edges.
func isValidTransition(from, to domain.JobStatus) bool {
	switch from {
	case domain.JobStatusIdle:
		return to == domain.JobStatusPending
	case domain.JobStatusPending:
		return to == domain.JobStatusRunning || to == domain.JobStatusFailed
	case domain.JobStatusRunning:
		return to == domain.JobStatusSuccess || to == domain.JobStatusFailed
	default:
		return false
	}
}
