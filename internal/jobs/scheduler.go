package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"glb-merger/internal/domain"
	"glb-merger/internal/gltf"
)

// ErrNoJobs is returned when a batch is submitted without jobs.
var ErrNoJobs = errors.New("no jobs to merge")

// JobRunner executes one merge job.
type JobRunner interface {
	RunJob(ctx context.Context, job domain.JobDescriptor, workDir string, hooks gltf.Hooks) (string, error)
}

// WorkDirResolver returns the directory every tool invocation runs in.
type WorkDirResolver func() (string, error)

// Recorder persists batch and job outcomes. Errors are logged, never fatal.
type Recorder interface {
	BatchStarted(batchID, workDir string, jobs []domain.JobDescriptor, at time.Time) error
	JobFinished(batchID string, job domain.Job, startedAt, finishedAt time.Time) error
	BatchFinished(batchID string, result Result, at time.Time) error
}

// Result is the outcome of a dispatched batch. OK is false only when the
// dispatch loop itself broke; individual job failures leave it true.
type Result struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	BatchID string `json:"batchId,omitempty"`
}

// SchedulerDeps wires a Scheduler. Recorder and Logger are optional.
type SchedulerDeps struct {
	State    *Manager
	Runner   JobRunner
	Sink     Sink
	WorkDir  WorkDirResolver
	Recorder Recorder
	Logger   *slog.Logger
}

// Scheduler runs submitted batches one job at a time.
type Scheduler struct {
	state    *Manager
	runner   JobRunner
	sink     Sink
	workDir  WorkDirResolver
	recorder Recorder
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time
}

// NewScheduler builds a scheduler from deps.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	state := deps.State
	if state == nil {
		state = NewManager()
	}
	return &Scheduler{
		state:    state,
		runner:   deps.Runner,
		sink:     deps.Sink,
		workDir:  deps.WorkDir,
		recorder: deps.Recorder,
		logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// IsMerging reports whether a batch is running.
func (s *Scheduler) IsMerging() bool {
	return s.state.IsRunning()
}

// Jobs returns the status table of the current or most recent batch.
func (s *Scheduler) Jobs() []domain.Job {
	return s.state.Snapshot()
}

// Submit runs jobs in order and blocks until all have finished. Pre-flight
// failures return an error before any event is published; an invalid batch
// or an unusable working folder is rejected before the scheduler is claimed. Once dispatched,
// job failures are reported as events and never stop the batch.
func (s *Scheduler) Submit(ctx context.Context, jobs []domain.JobDescriptor) (Result, error) {
	if err := ValidateBatch(jobs); err != nil {
		return Result{}, err
	}

	workDir := ""
	if s.workDir != nil {
		dir, err := s.workDir()
		if err != nil {
			return Result{}, err
		}
		workDir = dir
	}

	batchID := s.newID()
	if !s.state.TryAcquire(batchID) {
		return Result{}, ErrMergeInProgress
	}
	defer s.state.Release()

	return s.dispatch(ctx, batchID, jobs, workDir), nil
}

// dispatch publishes the queue, runs each job, and converts a panic in the
// loop into a failed Result.
func (s *Scheduler) dispatch(ctx context.Context, batchID string, jobs []domain.JobDescriptor, workDir string) (result Result) {
	logger := s.logger.With("batch", batchID)
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprint(r)
			logger.Error("merge batch aborted", "error", msg)
			s.publish(LogEvent("", domain.LogTypeErr, msg))
			result = Result{OK: false, Error: msg, BatchID: batchID}
		}
		s.record(logger, func() error { return s.recorder.BatchFinished(batchID, result, s.now()) })
	}()

	ids := make([]string, len(jobs))
	for i, job := range jobs {
		ids[i] = job.ID
	}
	s.state.MarkPending(ids)
	for _, id := range ids {
		s.publish(StatusEvent(id, domain.JobStatusPending, ""))
	}

	s.record(logger, func() error { return s.recorder.BatchStarted(batchID, workDir, jobs, s.now()) })
	logger.Info("merge batch started", "jobs", len(jobs), "work_dir", workDir)
	s.publish(LogEvent("", domain.LogTypeInfo, fmt.Sprintf("Starting %d merge job(s)...", len(jobs))))
	s.publish(LogEvent("", domain.LogTypeInfo, fmt.Sprintf("Using working folder: %s", workDir)))

	for _, job := range jobs {
		s.runJob(ctx, logger, batchID, job, workDir)
	}

	s.publish(LogEvent("", domain.LogTypeInfo, "All merge jobs finished."))
	logger.Info("merge batch finished")
	return Result{OK: true, BatchID: batchID}
}

// runJob executes one job and converts its failure into events.
func (s *Scheduler) runJob(ctx context.Context, logger *slog.Logger, batchID string, job domain.JobDescriptor, workDir string) {
	logger = logger.With("job", job.ID)
	startedAt := s.now()

	hooks := gltf.Hooks{
		OnLog: func(kind domain.LogType, text string) {
			s.publish(LogEvent(job.ID, kind, text))
		},
		OnStatus: func(status domain.JobStatus, outputPath string) {
			s.setStatus(logger, job.ID, status, outputPath, "")
		},
	}

	outputPath, err := s.runner.RunJob(ctx, job, workDir, hooks)
	if err != nil {
		logger.Warn("merge job failed", "error", err)
		s.publish(LogEvent(job.ID, domain.LogTypeErr, err.Error()))
		s.setStatus(logger, job.ID, domain.JobStatusFailed, "", err.Error())
	} else {
		logger.Info("merge job succeeded", "output", outputPath)
	}

	final := domain.Job{ID: job.ID, Status: domain.JobStatusFailed}
	for _, j := range s.state.Snapshot() {
		if j.ID == job.ID {
			final = j
			break
		}
	}
	s.record(logger, func() error { return s.recorder.JobFinished(batchID, final, startedAt, s.now()) })
}

// setStatus applies a forward transition and publishes it.
func (s *Scheduler) setStatus(logger *slog.Logger, jobID string, status domain.JobStatus, outputPath, errMsg string) {
	if err := s.state.Transition(jobID, status, outputPath, errMsg); err != nil {
		logger.Warn("status change rejected", "status", status, "error", err)
		return
	}
	s.publish(StatusEvent(jobID, status, outputPath))
}

func (s *Scheduler) publish(event Event) {
	if s.sink != nil {
		s.sink.Publish(event)
	}
}

func (s *Scheduler) record(logger *slog.Logger, fn func() error) {
	if s.recorder == nil {
		return
	}
	if err := fn(); err != nil {
		logger.Warn("record merge history", "error", err)
	}
}

// ValidateBatch checks job ids and transform specs before any work starts.
// File lists and output folders are checked per job at run time.
func ValidateBatch(jobs []domain.JobDescriptor) error {
	if len(jobs) == 0 {
		return ErrNoJobs
	}

	seen := make(map[string]struct{}, len(jobs))
	for i, job := range jobs {
		id := strings.TrimSpace(job.ID)
		if id == "" {
			return fmt.Errorf("job %d: id is required", i+1)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("job %s: duplicate id in batch", id)
		}
		seen[id] = struct{}{}

		for _, spec := range job.Transforms {
			if spec.Kind == "" && len(spec.Args) == 0 {
				continue
			}
			if err := spec.Validate(); err != nil {
				return fmt.Errorf("job %s: %w", id, err)
			}
		}
	}
	return nil
}
