package main

import (
	"github.com/spf13/cobra"

	"github.com/dokzlo13/truenasctl/internal/app"
	"github.com/dokzlo13/truenasctl/internal/reconcile/cronjob"
	"github.com/dokzlo13/truenasctl/internal/reconcile/tunable"
)

func newCronCmd(flags *globalFlags) *cobra.Command {
	var d cronjob.Desired
	var enabled, hideStdout, hideStderr bool

	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Reconcile a single cron job",
		Example: `  truenasctl cron --description scrub --command "zpool scrub tank" \
      --minute 0 --hour 2 --dom '*' --month '*' --dow 0
  truenasctl cron --description scrub --state absent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			if f.Changed("enabled") {
				d.Enabled = &enabled
			}
			if f.Changed("hide-stdout") {
				d.HideStdout = &hideStdout
			}
			if f.Changed("hide-stderr") {
				d.HideStderr = &hideStderr
			}

			application, err := newApp(cmd, flags)
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, cancel := app.SignalContext()
			defer cancel()

			return writeOutcomes(cmd.OutOrStdout(), []app.Outcome{application.ReconcileCronJob(ctx, d)})
		},
	}

	f := cmd.Flags()
	f.StringVar(&d.State, "state", "present", "present or absent")
	f.StringVar(&d.Description, "description", "", "Job description, used as the match key")
	f.StringVar(&d.Command, "command", "", "Command to run")
	f.StringVar(&d.User, "run-as", "", "User the job runs as (default root)")
	f.BoolVar(&enabled, "enabled", cronjob.DefaultEnabled, "Whether the job is enabled")
	f.BoolVar(&hideStdout, "hide-stdout", cronjob.DefaultHideStdout, "Discard standard output")
	f.BoolVar(&hideStderr, "hide-stderr", cronjob.DefaultHideStderr, "Discard standard error")
	f.StringVar(&d.Schedule.Minute, "minute", "", "Schedule minute field")
	f.StringVar(&d.Schedule.Hour, "hour", "", "Schedule hour field")
	f.StringVar(&d.Schedule.Dom, "dom", "", "Schedule day-of-month field")
	f.StringVar(&d.Schedule.Month, "month", "", "Schedule month field")
	f.StringVar(&d.Schedule.Dow, "dow", "", "Schedule day-of-week field")

	return cmd
}

func newTunableCmd(flags *globalFlags) *cobra.Command {
	var d tunable.Desired
	var value string
	var enabled bool

	cmd := &cobra.Command{
		Use:   "tunable",
		Short: "Reconcile a single tunable",
		Example: `  truenasctl tunable --name kern.maxfiles --type SYSCTL --value 65536
  truenasctl tunable --name wireguard_enable --type RC --state absent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			if f.Changed("value") {
				d.Value = &value
			}
			if f.Changed("enabled") {
				d.Enabled = &enabled
			}

			application, err := newApp(cmd, flags)
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, cancel := app.SignalContext()
			defer cancel()

			return writeOutcomes(cmd.OutOrStdout(), []app.Outcome{application.ReconcileTunable(ctx, d)})
		},
	}

	f := cmd.Flags()
	f.StringVar(&d.State, "state", "present", "present or absent")
	f.StringVar(&d.Name, "name", "", "Variable name")
	f.StringVar(&d.Type, "type", "", "SYSCTL, RC or LOADER")
	f.StringVar(&value, "value", "", "Variable value")
	f.StringVar(&d.Comment, "comment", "", "Free-form comment")
	f.BoolVar(&enabled, "enabled", tunable.DefaultEnabled, "Whether the tunable is enabled")

	return cmd
}
