// Package tunable provides the reconciliation adapter for TrueNAS system
// tunables (sysctl, rc.conf and loader variables).
package tunable

import "github.com/dokzlo13/truenasctl/internal/reconcile"

// Tunable types
const (
	TypeSysctl = "SYSCTL"
	TypeRC     = "RC"
	TypeLoader = "LOADER"
)

// Types lists the accepted tunable types.
var Types = []string{TypeSysctl, TypeRC, TypeLoader}

// Desired is the desired state of a tunable. Value is a pointer so that an
// explicit empty value can be told apart from a missing one.
type Desired struct {
	State   string  `json:"state,omitempty" yaml:"state,omitempty" toml:"state,omitempty"`
	Name    string  `json:"name" yaml:"name" toml:"name"`
	Type    string  `json:"type" yaml:"type" toml:"type"`
	Value   *string `json:"value,omitempty" yaml:"value,omitempty" toml:"value,omitempty"`
	Comment string  `json:"comment,omitempty" yaml:"comment,omitempty" toml:"comment,omitempty"`
	Enabled *bool   `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled,omitempty"`
}

// DefaultEnabled is used when Enabled is unset.
const DefaultEnabled = true

// Intent returns whether the tunable should exist.
func (d Desired) Intent() reconcile.Intent {
	intent, err := reconcile.ParseIntent(d.State)
	if err != nil {
		return reconcile.Intent(d.State)
	}
	return intent
}

// IsEnabled returns the enabled flag with its default.
func (d Desired) IsEnabled() bool {
	if d.Enabled == nil {
		return DefaultEnabled
	}
	return *d.Enabled
}

// Payload is the canonical tunable body.
type Payload struct {
	Comment string `json:"comment"`
	Enabled bool   `json:"enabled"`
	Type    string `json:"type"`
	Value   string `json:"value"`
	Var     string `json:"var"`
}
