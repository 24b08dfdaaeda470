package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"qmunlock/internal/instrument"
	"qmunlock/internal/logging"
)

func newProcessesCommand(ctx *commandContext) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "processes",
		Short: "List running processes that match the target name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			substring := strings.TrimSpace(name)
			if substring == "" {
				substring = cfg.Target.ProcessName
			}

			rt, err := ctx.openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			matches, err := instrument.NewLocator(rt, logging.NewNop()).Matches(cmd.Context(), substring)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				fmt.Fprintf(out, "No running process matches %q\n", substring)
				return nil
			}
			view := tableView{Columns: []column{{Title: "PID", Right: true}, {Title: "Name"}}}
			for i, p := range matches {
				label := p.Name
				if i == 0 {
					label += " (selected)"
				}
				view.Rows = append(view.Rows, []string{strconv.Itoa(p.PID), label})
			}
			fmt.Fprintln(out, view.render())
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Process name substring (default target.process_name)")
	return cmd
}
