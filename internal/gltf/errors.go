package gltf

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
)

// Job stages reported by JobError.
const (
	StageValidation = "validation"
	StageTool       = "tool"
	StageMerge      = "merge"
	StageTransform  = "transform"
)

// ProcessError describes a gltf-transform invocation that failed to start
// or exited non-zero. ExitCode is -1 when the process never ran to exit.
type ProcessError struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exitCode"`
	Err      error    `json:"-"`
}

// Error formats process failures for logs and UI.
func (e *ProcessError) Error() string {
	if e == nil {
		return ""
	}
	var exitErr *exec.ExitError
	switch {
	case e.ExitCode >= 0:
		return fmt.Sprintf("glTF-Transform exited with code %d", e.ExitCode)
	case errors.As(e.Err, &exitErr):
		return fmt.Sprintf("glTF-Transform terminated: %v", e.Err)
	default:
		return fmt.Sprintf("start %s: %v", filepath.Base(e.Command), e.Err)
	}
}

// Unwrap exposes the underlying spawn or wait error.
func (e *ProcessError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// JobError is a stage-aware failure of one merge job.
type JobError struct {
	JobID   string `json:"jobId"`
	Stage   string `json:"stage"`
	Step    string `json:"step,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error formats job failures for logs and UI.
func (e *JobError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *JobError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func validationError(jobID, message string) *JobError {
	return &JobError{JobID: jobID, Stage: StageValidation, Message: message}
}
