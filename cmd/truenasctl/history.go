package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dokzlo13/truenasctl/internal/app"
	"github.com/dokzlo13/truenasctl/internal/ledger"
)

var errHistoryDisabled = errors.New("history is disabled (database.path is empty)")

// openHistory builds an App without requiring connection settings.
func openHistory(cmd *cobra.Command, flags *globalFlags) (*app.App, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, err
	}
	application, err := app.New(cfg)
	if err != nil {
		return nil, err
	}
	if application.Ledger == nil {
		application.Close()
		return nil, errHistoryDisabled
	}
	return application, nil
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded reconciliations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openHistory(cmd, flags)
			if err != nil {
				return err
			}
			defer application.Close()

			var entries []*ledger.Entry
			if runID != "" {
				entries, err = application.Ledger.ByRun(runID)
			} else {
				entries, err = application.Ledger.Recent(limit)
			}
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), text.FgYellow.Sprint("No history recorded"))
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"TIME", "RUN", "EVENT", "KIND", "KEY", "ACTION", "CHANGED", "MESSAGE"})
			for _, e := range entries {
				message := e.Message
				if e.Error != "" {
					message = text.FgRed.Sprint(e.Error)
				}
				t.AppendRow(table.Row{
					e.Timestamp.Local().Format(time.DateTime),
					shortRunID(e.RunID),
					e.EventType,
					e.Kind,
					e.Key,
					e.Action,
					e.Changed,
					message,
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show every entry of one run")

	return cmd
}

func newPruneCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete history older than ledger.retention_days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openHistory(cmd, flags)
			if err != nil {
				return err
			}
			defer application.Close()

			deleted, err := application.Prune()
			if err != nil {
				return err
			}
			log.Info().
				Int64("deleted", deleted).
				Int("retention_days", application.Config().Ledger.RetentionDays).
				Msg("History pruned")
			return nil
		},
	}
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
