// Package cronjob provides the reconciliation adapter for TrueNAS cron jobs.
package cronjob

import "github.com/dokzlo13/truenasctl/internal/reconcile"

// Schedule is a five-field cron schedule.
type Schedule struct {
	Minute string `json:"minute" yaml:"minute" toml:"minute"`
	Hour   string `json:"hour" yaml:"hour" toml:"hour"`
	Dom    string `json:"dom" yaml:"dom" toml:"dom"`
	Month  string `json:"month" yaml:"month" toml:"month"`
	Dow    string `json:"dow" yaml:"dow" toml:"dow"`
}

// Desired is the desired state of a cron job. Pointer fields are optional
// and fall back to the defaults below.
type Desired struct {
	State       string   `json:"state,omitempty" yaml:"state,omitempty" toml:"state,omitempty"`
	Description string   `json:"description" yaml:"description" toml:"description"`
	Command     string   `json:"command,omitempty" yaml:"command,omitempty" toml:"command,omitempty"`
	User        string   `json:"user,omitempty" yaml:"user,omitempty" toml:"user,omitempty"`
	Enabled     *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	HideStdout  *bool    `json:"hide_stdout,omitempty" yaml:"hide_stdout,omitempty" toml:"hide_stdout,omitempty"`
	HideStderr  *bool    `json:"hide_stderr,omitempty" yaml:"hide_stderr,omitempty" toml:"hide_stderr,omitempty"`
	Schedule    Schedule `json:"schedule" yaml:"schedule" toml:"schedule"`
}

// Defaults
const (
	DefaultUser       = "root"
	DefaultEnabled    = true
	DefaultHideStdout = true
	DefaultHideStderr = false
)

// Intent returns whether the job should exist. Unparseable states are
// returned as-is and rejected by validation.
func (d Desired) Intent() reconcile.Intent {
	intent, err := reconcile.ParseIntent(d.State)
	if err != nil {
		return reconcile.Intent(d.State)
	}
	return intent
}

// RunAs returns the user the job runs as.
func (d Desired) RunAs() string {
	if d.User == "" {
		return DefaultUser
	}
	return d.User
}

// IsEnabled returns the enabled flag with its default.
func (d Desired) IsEnabled() bool {
	return boolOr(d.Enabled, DefaultEnabled)
}

// StdoutHidden returns the hide_stdout flag with its default.
func (d Desired) StdoutHidden() bool {
	return boolOr(d.HideStdout, DefaultHideStdout)
}

// StderrHidden returns the hide_stderr flag with its default.
func (d Desired) StderrHidden() bool {
	return boolOr(d.HideStderr, DefaultHideStderr)
}

// Payload is the canonical cronjob body.
type Payload struct {
	Description string   `json:"description"`
	Enabled     bool     `json:"enabled"`
	Stdout      bool     `json:"stdout"`
	Stderr      bool     `json:"stderr"`
	Command     string   `json:"command"`
	User        string   `json:"user"`
	Schedule    Schedule `json:"schedule"`
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
