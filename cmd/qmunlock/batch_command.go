package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"qmunlock/internal/conversion"
	"qmunlock/internal/runner"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var inputDir, outputDir string
	var keepGoing bool

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Convert every eligible file in a directory",
		Long: "Convert every eligible file directly inside the input directory (subdirectories are\n" +
			"ignored) into the output directory. Files whose output already exists are skipped.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("keep-going") {
				cfg.Batch.KeepGoing = keepGoing
			}
			return ctx.withRunner(cmd, func(r *runner.Runner, _ *slog.Logger) error {
				report, runErr := r.RunBatch(cmd.Context(), inputDir, outputDir)
				if report != nil {
					printBatchReport(cmd, report)
				}
				return runErr
			})
		},
	}

	cmd.Flags().StringVarP(&inputDir, "input", "i", "", "Directory to scan (default paths.input_dir)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for converted files (default paths.output_dir)")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "Continue past failed files and report them at the end")
	return cmd
}

func printBatchReport(cmd *cobra.Command, report *runner.Report) {
	out := cmd.OutOrStdout()
	if len(report.Outcomes) == 0 {
		fmt.Fprintln(out, "No eligible files found")
		return
	}
	converted, skipped, failed := report.Counts()
	fmt.Fprintln(out, outcomeTable(report.Outcomes, []string{
		"",
		fmt.Sprintf("%d converted, %d skipped, %d failed", converted, skipped, failed),
		"",
		"",
	}))
}

func outcomeTable(outcomes []conversion.Outcome, footer []string) string {
	view := tableView{
		Columns: []column{
			{Title: "#", Right: true},
			{Title: "Source"},
			{Title: "Result"},
			{Title: "Time", Right: true},
		},
		Footer: footer,
	}
	for i, o := range outcomes {
		view.Rows = append(view.Rows, []string{
			strconv.Itoa(i + 1),
			filepath.Base(o.Job.SourcePath),
			describeOutcome(o),
			o.Duration.Round(time.Millisecond).String(),
		})
	}
	return view.render()
}

func describeOutcome(o conversion.Outcome) string {
	switch o.Status {
	case conversion.StatusConverted:
		return "converted -> " + filepath.Base(o.Job.TargetPath)
	case conversion.StatusSkipped:
		return "skipped (" + o.Reason + ")"
	case conversion.StatusFailed:
		if o.Err != nil {
			return "failed: " + o.Err.Error()
		}
		return "failed"
	default:
		return string(o.Status)
	}
}
