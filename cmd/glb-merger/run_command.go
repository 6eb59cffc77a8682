package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"glb-merger/internal/domain"
)

// batchFile is the YAML layout accepted by `glb-merger run`. Top-level
// outputDir and transforms apply to jobs that leave them empty.
type batchFile struct {
	OutputDir  string                 `yaml:"outputDir"`
	Transforms []domain.TransformSpec `yaml:"transforms"`
	Jobs       []domain.JobDescriptor `yaml:"jobs"`
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run <batch.yaml>",
		Short: "Run every merge job listed in a YAML batch file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			descriptors, err := loadBatchFile(args[0])
			if err != nil {
				return err
			}
			if dryRun {
				return printBatch(cmd, descriptors)
			}
			return runBatch(cmd, ctx, descriptors)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the resolved jobs without running them")
	return cmd
}

// loadBatchFile parses path and resolves relative file and output paths
// against the batch file's directory.
func loadBatchFile(path string) ([]domain.JobDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}

	var batch batchFile
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("parse batch file %s: %w", path, err)
	}
	if len(batch.Jobs) == 0 {
		return nil, fmt.Errorf("batch file %s lists no jobs", path)
	}

	baseDir := filepath.Dir(path)
	resolve := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	descriptors := make([]domain.JobDescriptor, len(batch.Jobs))
	for i, job := range batch.Jobs {
		if strings.TrimSpace(job.ID) == "" {
			job.ID = fmt.Sprintf("job-%d", i+1)
		}
		if strings.TrimSpace(job.OutputDir) == "" {
			job.OutputDir = batch.OutputDir
		}
		if len(job.Transforms) == 0 && len(batch.Transforms) > 0 {
			job.Transforms = append([]domain.TransformSpec(nil), batch.Transforms...)
		}

		files := make([]string, len(job.Files))
		for j, file := range job.Files {
			files[j] = resolve(file)
		}
		job.Files = files
		job.OutputDir = resolve(job.OutputDir)
		descriptors[i] = job
	}
	return descriptors, nil
}

func printBatch(cmd *cobra.Command, descriptors []domain.JobDescriptor) error {
	rows := make([][]string, 0, len(descriptors))
	for _, job := range descriptors {
		transforms := job.Transforms
		if len(transforms) == 0 {
			transforms = domain.DefaultTransforms()
		}
		steps := make([]string, 0, len(transforms))
		for _, spec := range transforms {
			steps = append(steps, spec.String())
		}
		rows = append(rows, []string{
			job.ID,
			fmt.Sprintf("%d", len(job.Files)),
			job.OutputDir,
			strings.Join(steps, ", "),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Job", "Files", "Output", "Transforms"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
	))
	return nil
}
