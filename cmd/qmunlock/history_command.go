package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"qmunlock/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent conversion outcomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cfg.History.Enabled {
				fmt.Fprintln(out, "History is disabled (history.enabled = false)")
				return nil
			}

			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No conversions recorded yet")
				return nil
			}

			view := tableView{Columns: []column{
				{Title: "When"},
				{Title: "Mode"},
				{Title: "Source"},
				{Title: "Status"},
				{Title: "Detail"},
			}}
			for _, e := range entries {
				detail := e.Reason
				if e.Error != "" {
					detail = e.Error
				} else if e.TargetPath != "" && detail == "" {
					detail = filepath.Base(e.TargetPath)
				}
				view.Rows = append(view.Rows, []string{
					e.StartedAt.Local().Format("2006-01-02 15:04:05"),
					e.Mode,
					filepath.Base(e.SourcePath),
					string(e.Status),
					detail,
				})
			}
			fmt.Fprintln(out, view.render())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	return cmd
}
