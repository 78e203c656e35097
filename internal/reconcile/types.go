// Package reconcile provides the reconciliation engine that drives a single
// TrueNAS resource toward a declared desired state.
package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/dokzlo13/truenasctl/internal/truenas"
)

// Kind identifies a type of reconcilable resource.
type Kind string

// Resource kinds
const (
	KindCronJob Kind = "cronjob"
	KindTunable Kind = "tunable"
)

// Noun returns the short name used in result messages.
func (k Kind) Noun() string {
	switch k {
	case KindCronJob:
		return "cron"
	default:
		return string(k)
	}
}

// Intent is whether the resource should exist.
type Intent string

const (
	Present Intent = "present"
	Absent  Intent = "absent"
)

// ParseIntent parses a state string. Empty means present.
func ParseIntent(s string) (Intent, error) {
	switch Intent(strings.ToLower(strings.TrimSpace(s))) {
	case "", Present:
		return Present, nil
	case Absent:
		return Absent, nil
	}
	return "", fmt.Errorf("invalid state %q: must be one of present, absent", s)
}

// MatchKey identifies "the same logical resource" across invocations.
type MatchKey []string

func (k MatchKey) String() string {
	return strings.Join(k, "/")
}

// Desired is a caller-declared resource record.
type Desired interface {
	Intent() Intent
}

// Adapter maps desired records of one kind onto the wire.
type Adapter[D Desired] interface {
	// Kind returns the resource type this adapter handles.
	Kind() Kind

	// CollectionPath is the API path of the collection, e.g. "cronjob".
	CollectionPath() string

	// ItemPath is the API path of a single record.
	ItemPath(id string) string

	// Validate checks the record is complete for its intent.
	Validate(desired D) error

	// ToPayload projects the record into the canonical payload (no id).
	ToPayload(desired D) any

	// MatchKey extracts the lookup key from a desired record.
	MatchKey(desired D) MatchKey

	// ExtractKey extracts the lookup key from a remote record.
	ExtractKey(remote truenas.Remote) MatchKey

	// KeysEqual compares two keys exactly.
	KeysEqual(a, b MatchKey) bool

	// FromRemote projects a remote record back into a desired record.
	FromRemote(remote truenas.Remote) (D, error)
}

// Transport is the subset of the TrueNAS client the reconciler needs.
type Transport interface {
	Fetch(ctx context.Context, collection string) ([]truenas.Remote, error)
	Create(ctx context.Context, collection string, payload any) (truenas.Response, error)
	Replace(ctx context.Context, item string, payload any) (truenas.Response, error)
	Remove(ctx context.Context, item string) (truenas.Response, error)
}

// Plan is the decision for one desired record against fetched remote state.
type Plan struct {
	Kind    Kind
	Key     MatchKey
	Intent  Intent
	Action  Action
	ID      string // matched remote id, empty when no match
	Current any    // matched remote as a desired record, nil when no match
	Payload any
	Diff    string // remote -> payload, only for updates
}

// Result is the outcome reported to the caller.
type Result struct {
	Kind    Kind     `json:"-"`
	Key     MatchKey `json:"-"`
	Action  Action   `json:"-"`
	ID      string   `json:"-"`
	Changed bool     `json:"changed"`
	Message string   `json:"message"`
}
