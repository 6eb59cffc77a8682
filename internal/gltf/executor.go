package gltf

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"glb-merger/internal/domain"
)

// Hooks receive lifecycle callbacks for one job.
type Hooks struct {
	OnLog    LogFunc
	OnStatus func(status domain.JobStatus, outputPath string)
}

// Runner merges one job's inputs and applies its transform pipeline.
type Runner struct {
	tool    ToolResolver
	invoker Invoker
	logger  *slog.Logger
	stat    func(name string) (os.FileInfo, error)
	remove  func(name string) error
	rename  func(oldpath, newpath string) error
	now     func() time.Time
}

// NewRunner constructs the production runner with OS dependencies.
func NewRunner(tool ToolResolver, logger *slog.Logger) *Runner {
	return &Runner{
		tool:    tool,
		invoker: ExecInvoker{},
		logger:  logger,
		stat:    os.Stat,
		remove:  os.Remove,
		rename:  os.Rename,
		now:     time.Now,
	}
}

// RunJob validates job, merges its files into the resolved output path,
// then applies its transforms. It reports running and success through hooks
// and returns the output path; failures are returned, never reported.
func (r *Runner) RunJob(ctx context.Context, job domain.JobDescriptor, workDir string, hooks Hooks) (string, error) {
	outputPath, err := r.validate(job)
	if err != nil {
		return "", err
	}

	tool, err := r.tool()
	if err != nil {
		return "", &JobError{JobID: job.ID, Stage: StageTool, Message: err.Error(), Err: err}
	}

	transforms := job.Transforms
	if len(transforms) == 0 {
		transforms = domain.DefaultTransforms()
	}
	transforms = lo.Filter(transforms, func(spec domain.TransformSpec, _ int) bool {
		return spec.Kind != ""
	})

	if hooks.OnStatus != nil {
		hooks.OnStatus(domain.JobStatusRunning, outputPath)
	}

	args := make([]string, 0, len(job.Files)+2)
	args = append(args, "merge")
	args = append(args, job.Files...)
	args = append(args, outputPath)

	if err := r.invoker.Invoke(ctx, Invocation{
		Executable: tool,
		Args:       args,
		WorkDir:    workDir,
		Message:    fmt.Sprintf("Running glTF-Transform merge for %s...", filepath.Base(outputPath)),
		OnLog:      hooks.OnLog,
	}); err != nil {
		return "", &JobError{JobID: job.ID, Stage: StageMerge, Message: "glTF-Transform merge failed", Err: err}
	}

	if err := r.ApplyTransforms(ctx, job.ID, outputPath, workDir, tool, transforms, hooks.OnLog); err != nil {
		return "", err
	}

	finished := fmt.Sprintf("Finished job %s. Saved to %s", job.ID, outputPath)
	if info, err := r.stat(outputPath); err == nil {
		finished += fmt.Sprintf(" (%s)", humanize.Bytes(uint64(info.Size())))
	}
	emit(hooks.OnLog, domain.LogTypeInfo, finished)
	if hooks.OnStatus != nil {
		hooks.OnStatus(domain.JobStatusSuccess, outputPath)
	}
	return outputPath, nil
}

// validate checks job inputs and returns the absolute output path.
func (r *Runner) validate(job domain.JobDescriptor) (string, error) {
	if len(job.Files) == 0 {
		return "", validationError(job.ID, "No GLB files selected for this job.")
	}
	outputDir := strings.TrimSpace(job.OutputDir)
	if outputDir == "" {
		return "", validationError(job.ID, "No output directory selected.")
	}

	outputPath, err := filepath.Abs(filepath.Join(outputDir, OutputName(job)))
	if err != nil {
		return "", &JobError{JobID: job.ID, Stage: StageValidation, Message: "cannot resolve output path", Err: err}
	}

	parent := filepath.Dir(outputPath)
	info, err := r.stat(parent)
	if err != nil || !info.IsDir() {
		return "", validationError(job.ID, fmt.Sprintf("Output directory does not exist: %s", parent))
	}
	return outputPath, nil
}

// OutputName returns the job's output file name, defaulting to merged-<id>.glb.
func OutputName(job domain.JobDescriptor) string {
	if name := strings.TrimSpace(job.OutputName); name != "" {
		return name
	}
	return fmt.Sprintf("merged-%s.glb", job.ID)
}

// NewRunnerForTests constructs a runner with injectable dependencies.
func NewRunnerForTests(
	tool ToolResolver,
	invoker Invoker,
	remove func(name string) error,
	rename func(oldpath, newpath string) error,
	now func() time.Time,
) *Runner {
	return &Runner{
		tool:    tool,
		invoker: invoker,
		stat:    os.Stat,
		remove:  remove,
		rename:  rename,
		now:     now,
	}
}
