package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/dokzlo13/truenasctl/internal/app"
	"github.com/dokzlo13/truenasctl/internal/manifest"
	"github.com/dokzlo13/truenasctl/internal/reconcile"
)

func newApplyCmd(flags *globalFlags) *cobra.Command {
	var opts app.RunOptions

	cmd := &cobra.Command{
		Use:   "apply MANIFEST",
		Short: "Reconcile every resource of a manifest",
		Long: `Reconcile every cron job and tunable declared in a manifest file
(.yaml, .yml, .toml or .lua). One JSON line is printed per resource.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(args[0])
			if err != nil {
				return err
			}

			application, err := newApp(cmd, flags)
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, cancel := app.SignalContext()
			defer cancel()

			report := application.Run(ctx, m, opts)
			if opts.DryRun {
				renderPlans(cmd.OutOrStdout(), report, false)
				return failuresOf(report)
			}
			return writeOutcomes(cmd.OutOrStdout(), report.Outcomes)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Plan only, do not change anything")
	cmd.Flags().BoolVar(&opts.KeepGoing, "keep-going", false, "Continue after a failed resource")

	return cmd
}

func newPlanCmd(flags *globalFlags) *cobra.Command {
	var showDiff bool

	cmd := &cobra.Command{
		Use:   "plan MANIFEST",
		Short: "Show what apply would change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(args[0])
			if err != nil {
				return err
			}

			application, err := newApp(cmd, flags)
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, cancel := app.SignalContext()
			defer cancel()

			report := application.Run(ctx, m, app.RunOptions{DryRun: true, KeepGoing: true})
			renderPlans(cmd.OutOrStdout(), report, showDiff)
			return failuresOf(report)
		},
	}

	cmd.Flags().BoolVar(&showDiff, "diff", false, "Print the remote -> desired diff of updates")

	return cmd
}

// renderPlans prints a table of planned actions.
func renderPlans(w io.Writer, report *app.Report, showDiff bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"KIND", "KEY", "ACTION", "ID", "ERROR"})

	var diffs []string
	for _, o := range report.Outcomes {
		if o.Err != nil {
			t.AppendRow(table.Row{o.Kind, o.Key.String(), text.FgRed.Sprint("failed"), "", newFailureOutput(o.Err).Message})
			continue
		}
		t.AppendRow(table.Row{o.Kind, o.Key.String(), colorAction(o.Plan.Action), o.Plan.ID, ""})
		if showDiff && o.Plan.Diff != "" {
			diffs = append(diffs, fmt.Sprintf("%s %s:\n%s", o.Kind, o.Key, o.Plan.Diff))
		}
	}

	t.AppendFooter(table.Row{"", fmt.Sprintf("run %s", report.RunID), fmt.Sprintf("%d change(s)", report.Changed()), "", ""})
	t.Render()

	if len(diffs) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, strings.Join(diffs, "\n"))
	}
}

func colorAction(a reconcile.Action) string {
	switch a {
	case reconcile.ActionCreate:
		return text.FgGreen.Sprint(a.String())
	case reconcile.ActionUpdate:
		return text.FgYellow.Sprint(a.String())
	case reconcile.ActionDelete:
		return text.FgRed.Sprint(a.String())
	default:
		return a.String()
	}
}

func failuresOf(report *app.Report) error {
	if n := report.Failed(); n > 0 {
		return &reportedError{code: ExitCodeError, count: n}
	}
	return nil
}
