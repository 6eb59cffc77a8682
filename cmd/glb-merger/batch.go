package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"glb-merger/internal/config"
	"glb-merger/internal/domain"
	"glb-merger/internal/gltf"
	"glb-merger/internal/history"
	"glb-merger/internal/jobs"
)

// runBatch submits descriptors to a scheduler wired for the terminal and
// returns an error when any job failed.
func runBatch(cmd *cobra.Command, ctx *commandContext, descriptors []domain.JobDescriptor) error {
	settings, err := ctx.ensureSettings()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	logger := ctx.logger(cmd.ErrOrStderr())

	deps := jobs.SchedulerDeps{
		Runner:  gltf.NewRunner(ctx.toolResolver(), logger),
		Sink:    newConsoleSink(out),
		WorkDir: func() (string, error) { return config.ResolveWorkDir(settings.WorkDir) },
		Logger:  logger,
	}

	hist, err := history.Open(settings.HistoryPath)
	if err != nil {
		logger.Warn("merge history disabled", "path", settings.HistoryPath, "error", err)
	} else {
		defer hist.Close()
		deps.Recorder = hist
	}

	scheduler := jobs.NewScheduler(deps)
	result, err := scheduler.Submit(cmdContext(cmd), descriptors)
	if err != nil {
		return err
	}
	if !result.OK {
		return fmt.Errorf("merge batch aborted: %s", result.Error)
	}
	return summarize(out, scheduler.Jobs())
}

func summarize(out io.Writer, results []domain.Job) error {
	failed := 0
	for _, job := range results {
		if job.Status != domain.JobStatusSuccess {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d merge job(s) failed", failed, len(results))
	}
	fmt.Fprintf(out, "%d merge job(s) succeeded\n", len(results))
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
