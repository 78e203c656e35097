package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dokzlo13/truenasctl/internal/app"
	"github.com/dokzlo13/truenasctl/internal/config"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	url        string
	user       string
	password   string
	logLevel   string
	jsonLogs   bool
	noHistory  bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "truenasctl",
		Short: "Reconcile TrueNAS cron jobs and tunables",
		Long: `truenasctl drives a TrueNAS appliance towards a declared state.
Cron jobs are matched by description, tunables by type and name. Each
resource is created, replaced in full, deleted, or left alone.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate(`{{printf "truenasctl version %s\n" .Version}}`)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "config.yaml", "Path to configuration file")
	pf.StringVar(&flags.url, "url", "", "TrueNAS base URL (overrides truenas.url)")
	pf.StringVar(&flags.user, "user", "", "TrueNAS user (overrides truenas.user)")
	pf.StringVar(&flags.password, "password", "", "TrueNAS password (overrides truenas.password)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&flags.jsonLogs, "json-logs", false, "Emit logs as JSON")
	pf.BoolVar(&flags.noHistory, "no-history", false, "Do not record history")

	rootCmd.AddCommand(
		newApplyCmd(flags),
		newPlanCmd(flags),
		newCronCmd(flags),
		newTunableCmd(flags),
		newHistoryCmd(flags),
		newPruneCmd(flags),
	)

	return rootCmd
}

// loadConfig reads the config file and applies flag overrides. The file is
// only mandatory when --config was given explicitly.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	explicit := cmd.Flags().Changed("config")
	cfg, err := config.Load(flags.configPath, !explicit)
	if err != nil {
		return nil, err
	}

	if flags.url != "" {
		cfg.TrueNAS.URL = flags.url
	}
	if flags.user != "" {
		cfg.TrueNAS.User = flags.user
	}
	if flags.password != "" {
		cfg.TrueNAS.Password = flags.password
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.jsonLogs {
		cfg.Log.UseJSON = true
	}
	if flags.noHistory {
		cfg.Database.Path = ""
	}

	setupLogging(cfg.Log.GetLevel(), cfg.Log.UseJSON, cfg.Log.Colors)
	log.Debug().Str("config", flags.configPath).Bool("explicit", explicit).Msg("Configuration loaded")

	return cfg, nil
}

// newApp builds an App for commands that talk to the appliance.
func newApp(cmd *cobra.Command, flags *globalFlags) (*app.App, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.New(cfg)
}
