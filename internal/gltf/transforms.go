package gltf

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"glb-merger/internal/domain"
)

// ApplyTransforms runs each spec over outputPath in order. Every step writes
// to a sibling temp file which replaces outputPath only after the tool exits
// cleanly, so a failing step leaves the previous result in place. The first
// failing step aborts the remaining ones.
func (r *Runner) ApplyTransforms(
	ctx context.Context,
	jobID string,
	outputPath string,
	workDir string,
	tool string,
	specs []domain.TransformSpec,
	onLog LogFunc,
) error {
	for index, spec := range specs {
		if spec.Kind == "" {
			continue
		}
		if err := r.applyStep(ctx, outputPath, workDir, tool, index, spec, onLog); err != nil {
			return &JobError{
				JobID:   jobID,
				Stage:   StageTransform,
				Step:    spec.String(),
				Message: fmt.Sprintf("glTF-Transform %s step failed", spec.String()),
				Err:     err,
			}
		}
	}
	return nil
}

func (r *Runner) applyStep(
	ctx context.Context,
	outputPath string,
	workDir string,
	tool string,
	index int,
	spec domain.TransformSpec,
	onLog LogFunc,
) (err error) {
	tempPath := r.tempPath(outputPath, index)
	r.bestEffortRemove(tempPath)
	defer func() {
		if err != nil {
			r.bestEffortRemove(tempPath)
		}
	}()

	args := make([]string, 0, len(spec.Args)+3)
	args = append(args, spec.Kind)
	args = append(args, spec.Args...)
	args = append(args, outputPath, tempPath)

	if err := r.invoker.Invoke(ctx, Invocation{
		Executable: tool,
		Args:       args,
		WorkDir:    workDir,
		Message:    fmt.Sprintf("Applying glTF-Transform %s step...", spec.String()),
		OnLog:      onLog,
	}); err != nil {
		return err
	}

	if err := r.removeIfExists(outputPath); err != nil {
		return fmt.Errorf("remove previous output: %w", err)
	}
	if err := r.rename(tempPath, outputPath); err != nil {
		return fmt.Errorf("replace output with transformed file: %w", err)
	}

	emit(onLog, domain.LogTypeInfo, fmt.Sprintf("Applied glTF-Transform %s.", spec.String()))
	return nil
}

// tempPath derives a unique sibling of outputPath for one step.
func (r *Runner) tempPath(outputPath string, index int) string {
	ext := filepath.Ext(outputPath)
	if ext == "" {
		ext = ".glb"
	}
	base := strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))
	name := fmt.Sprintf("%s.tmp-%d-%d%s", base, r.now().UnixMilli(), index, ext)
	return filepath.Join(filepath.Dir(outputPath), name)
}

// removeIfExists deletes path, treating a missing file as success.
func (r *Runner) removeIfExists(path string) error {
	if err := r.remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// bestEffortRemove deletes path and discards any error so the caller's
// primary error survives.
func (r *Runner) bestEffortRemove(path string) {
	if err := r.removeIfExists(path); err != nil && r.logger != nil {
		r.logger.Debug("temp cleanup failed", "path", path, "error", err)
	}
}
