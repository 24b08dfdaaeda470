package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"qmunlock/internal/instrument"
	"qmunlock/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the script, directories, runtime, and target process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var rt instrument.Runtime
			if opened, err := ctx.openRuntime(); err == nil {
				rt = opened
				defer opened.Close()
			}

			lines := renderSectionHeader("qmunlock readiness", colorize)
			if ctx.configPath != "" {
				lines = append(lines, renderStatusLine("Config", statusInfo, ctx.configPath, colorize))
			}
			results := preflight.RunAll(cmd.Context(), cfg, rt)
			lines = append(lines, preflightLines(results, colorize)...)
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if preflight.Failed(results) {
				return errors.New("readiness checks failed")
			}
			return nil
		},
	}
}
