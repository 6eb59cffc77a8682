package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"glb-merger/internal/domain"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var outputName string
	var jobID string
	var transforms []string
	var noTransforms bool

	cmd := &cobra.Command{
		Use:   "merge <base.glb> [animation.glb...]",
		Short: "Merge GLB files into one output",
		Long: "Merge GLB files with glTF-Transform. The first file is the base; the rest\n" +
			"contribute their animations. The merged file is post-processed with dedup and\n" +
			"prune unless --transform or --no-transforms is given.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureSettings()
			if err != nil {
				return err
			}

			dir := strings.TrimSpace(outputDir)
			if dir == "" {
				dir = settings.LastOutputDir
			}
			id := strings.TrimSpace(jobID)
			if id == "" {
				id = uuid.NewString()[:8]
			}

			job := domain.JobDescriptor{
				ID:         id,
				Files:      args,
				OutputDir:  dir,
				OutputName: strings.TrimSpace(outputName),
			}
			for _, raw := range transforms {
				spec, ok := domain.ParseTransform(raw)
				if !ok {
					continue
				}
				job.Transforms = append(job.Transforms, spec)
			}
			if noTransforms {
				if len(job.Transforms) > 0 {
					return fmt.Errorf("--no-transforms cannot be combined with --transform")
				}
				// A single blank spec is skipped by the pipeline, so nothing runs after merge.
				job.Transforms = []domain.TransformSpec{{}}
			}

			return runBatch(cmd, ctx, []domain.JobDescriptor{job})
		},
	}

	cmd.Flags().StringVarP(&outputDir, "out", "o", "", "Output directory (defaults to the last used one)")
	cmd.Flags().StringVarP(&outputName, "name", "n", "", "Output file name (default merged-<id>.glb)")
	cmd.Flags().StringVar(&jobID, "id", "", "Job id (random when empty)")
	cmd.Flags().StringArrayVarP(&transforms, "transform", "t", nil, `Transform step, e.g. "dedup" or "resample --tolerance 0.001" (repeatable)`)
	cmd.Flags().BoolVar(&noTransforms, "no-transforms", false, "Skip post-processing after the merge")
	return cmd
}
