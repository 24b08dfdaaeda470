package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"qmunlock/internal/conversion"
	"qmunlock/internal/runner"
)

func runConvertFile(cmd *cobra.Command, ctx *commandContext, path string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Received %s\n", path)
	return ctx.withRunner(cmd, func(r *runner.Runner, _ *slog.Logger) error {
		outcome, err := r.RunFile(cmd.Context(), path)
		if err != nil {
			return err
		}
		switch outcome.Status {
		case conversion.StatusSkipped:
			fmt.Fprintf(out, "Skipped: %s already exists\n", outcome.Job.TargetPath)
		default:
			fmt.Fprintf(out, "Converted: %s\n", outcome.Job.TargetPath)
		}
		return nil
	})
}
