package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"glb-merger/internal/config"
	"glb-merger/internal/domain"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Read and change persisted settings",
	}

	configCmd.AddCommand(newConfigGetCommand(ctx))
	configCmd.AddCommand(newConfigSetCommand(ctx))
	configCmd.AddCommand(newConfigWorkDirCommand(ctx))
	configCmd.AddCommand(newConfigPathCommand(ctx))

	return configCmd
}

func newConfigGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Print one setting, or all settings with a value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				fmt.Fprintln(out, config.GetPref(settings, args[0], ""))
				return nil
			}
			for _, key := range config.PrefKeys(settings) {
				fmt.Fprintf(out, "%s = %s\n", key, config.GetPref(settings, key, ""))
			}
			return nil
		},
	}
}

func newConfigSetCommand(ctx *commandContext) *cobra.Command {
	var unset bool

	cmd := &cobra.Command{
		Use:   "set <key> [value]",
		Short: "Store a setting (workDir, lastOutputDir, toolPath, logLevel, historyPath, or any preference key)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !unset && len(args) != 2 {
				return fmt.Errorf("value is required unless --unset is given")
			}
			var setErr error
			_, err := ctx.store.Update(func(s *domain.Settings) {
				if unset {
					config.DeletePref(s, args[0])
					return
				}
				setErr = config.SetPref(s, args[0], args[1])
			})
			if err != nil {
				return err
			}
			if setErr != nil {
				return setErr
			}
			_, err = ctx.reload()
			return err
		},
	}

	cmd.Flags().BoolVar(&unset, "unset", false, "Remove the setting instead")
	return cmd
}

func newConfigWorkDirCommand(ctx *commandContext) *cobra.Command {
	var clearFlag bool

	cmd := &cobra.Command{
		Use:   "workdir [dir]",
		Short: "Show, set, or clear the working folder tools run in",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch {
			case clearFlag:
				if _, err := ctx.store.Update(func(s *domain.Settings) { s.WorkDir = "" }); err != nil {
					return err
				}
				fmt.Fprintln(out, "Working folder cleared; merges run in the current directory.")
				return nil
			case len(args) == 1:
				dir, err := filepath.Abs(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if _, err := config.ResolveWorkDir(dir); err != nil {
					return err
				}
				if _, err := ctx.store.Update(func(s *domain.Settings) { s.WorkDir = dir }); err != nil {
					return err
				}
				fmt.Fprintf(out, "Working folder set to %s\n", dir)
				return nil
			}

			settings, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			dir, err := config.ResolveWorkDir(settings.WorkDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, dir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearFlag, "clear", false, "Clear the configured working folder")
	return cmd
}

func newConfigPathCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the settings file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), ctx.store.Path())
			return nil
		},
	}
}
