package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"glb-merger/internal/diagnostics"
	"glb-merger/internal/domain"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the glTF-Transform CLI and configured folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			settings.ToolPath = ctx.toolPath()

			report := diagnostics.NewChecker(appDir()).Run(settings)
			rows := make([][]string, 0, len(report.Items))
			for _, item := range report.Items {
				rows = append(rows, []string{item.Name, string(item.Status), item.Message, item.Hint})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Check", "Status", "Detail", "Hint"},
				rows,
				nil,
			))

			if report.HasFailures {
				failed := 0
				for _, item := range report.Items {
					if item.Status == domain.DiagnosticStatusFail {
						failed++
					}
				}
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}
