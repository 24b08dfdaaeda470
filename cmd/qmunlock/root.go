package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	return newRootCommandWithContext(newCommandContext(os.Stdin))
}

func newRootCommandWithContext(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "qmunlock [file]",
		Short: "Convert protected music containers through the running player",
		Long: "qmunlock attaches to the running music player, loads the decrypt script into it, and\n" +
			"converts .mflac/.mgg files into .flac/.ogg next to the source. Drop a file onto the\n" +
			"executable, pass it as the only argument, or use the batch and watch commands.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A bare invocation only prints the status line, even with a broken config.
			if shouldSkipConfig(cmd) || (cmd == cmd.Root() && len(args) == 0) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No file supplied. Drop a file onto qmunlock or run 'qmunlock --help'.")
				ctx.waitForEnter(cmd.OutOrStdout())
				return nil
			}
			return runConvertFile(cmd, ctx, args[0])
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path")
	flags.StringVar(&ctx.scriptFlag, "script", "", "Decrypt script path (overrides instrument.script_path)")
	flags.StringVar(&ctx.targetFlag, "target", "", "Process name substring (overrides target.process_name)")
	flags.BoolVar(&ctx.noPause, "no-pause", false, "Never wait for Enter before exiting")

	rootCmd.AddCommand(newBatchCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newProcessesCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
