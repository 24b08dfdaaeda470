package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"qmunlock/internal/conversion"
	"qmunlock/internal/runner"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var inputDir, outputDir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Convert files as they appear in a directory",
		Long: "Convert the eligible files already in the input directory, then keep converting new\n" +
			"ones once they stop changing. Runs until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return ctx.withRunner(cmd, func(r *runner.Runner, _ *slog.Logger) error {
				return r.Watch(cmd.Context(), inputDir, outputDir, func(o conversion.Outcome) {
					fmt.Fprintf(out, "%s: %s\n", filepath.Base(o.Job.SourcePath), describeOutcome(o))
				})
			})
		},
	}

	cmd.Flags().StringVarP(&inputDir, "input", "i", "", "Directory to watch (default paths.input_dir)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for converted files (default paths.output_dir)")
	return cmd
}
