package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"glb-merger/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent merge jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			store, err := history.Open(settings.HistoryPath)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmdContext(cmd), limit)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No merge jobs recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, historyRow(entry))
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Batch", "Job", "Status", "Files", "Output", "Size", "Finished"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to list")
	return cmd
}

func historyRow(entry history.Entry) []string {
	batch := entry.BatchID
	if len(batch) > 8 {
		batch = batch[:8]
	}

	output := entry.Error
	size := ""
	if entry.OutputPath != "" {
		output = filepath.Base(entry.OutputPath)
		if info, err := os.Stat(entry.OutputPath); err == nil {
			size = humanize.Bytes(uint64(info.Size()))
		}
	}

	finished := "-"
	if !entry.FinishedAt.IsZero() {
		finished = humanize.Time(entry.FinishedAt)
	}

	return []string{
		batch,
		entry.JobID,
		string(entry.Status),
		fmt.Sprintf("%d", len(entry.Files)),
		output,
		size,
		finished,
	}
}
