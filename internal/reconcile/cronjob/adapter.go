package cronjob

import (
	"fmt"
	"slices"

	"github.com/dokzlo13/truenasctl/internal/reconcile"
	"github.com/dokzlo13/truenasctl/internal/truenas"
)

const collection = "cronjob"

// Adapter maps cron job records onto the /cronjob API. Jobs are matched by
// description.
type Adapter struct{}

var _ reconcile.Adapter[Desired] = Adapter{}

// NewAdapter creates a new cron job adapter.
func NewAdapter() Adapter {
	return Adapter{}
}

// Kind returns the resource kind.
func (Adapter) Kind() reconcile.Kind {
	return reconcile.KindCronJob
}

func (Adapter) CollectionPath() string {
	return collection
}

func (Adapter) ItemPath(id string) string {
	return truenas.ItemPath(collection, id)
}

// Validate checks the job has everything its intent needs.
func (Adapter) Validate(d Desired) error {
	v := reconcile.NewValidation(reconcile.KindCronJob, d.Intent())
	v.Require("description", d.Description)

	if d.Intent() == reconcile.Present {
		v.Require("command", d.Command)
		v.Require("user", d.RunAs())
		v.Require("schedule.minute", d.Schedule.Minute)
		v.Require("schedule.hour", d.Schedule.Hour)
		v.Require("schedule.dom", d.Schedule.Dom)
		v.Require("schedule.month", d.Schedule.Month)
		v.Require("schedule.dow", d.Schedule.Dow)
	}

	return v.Err()
}

// ToPayload builds the canonical body sent on create and update.
func (Adapter) ToPayload(d Desired) any {
	return Payload{
		Description: d.Description,
		Enabled:     d.IsEnabled(),
		Stdout:      d.StdoutHidden(),
		Stderr:      d.StderrHidden(),
		Command:     d.Command,
		User:        d.RunAs(),
		Schedule:    d.Schedule,
	}
}

func (Adapter) MatchKey(d Desired) reconcile.MatchKey {
	return reconcile.MatchKey{d.Description}
}

func (Adapter) ExtractKey(remote truenas.Remote) reconcile.MatchKey {
	return reconcile.MatchKey{remote.String("description")}
}

func (Adapter) KeysEqual(a, b reconcile.MatchKey) bool {
	return slices.Equal(a, b)
}

// FromRemote projects a remote cron job back into a desired record.
func (Adapter) FromRemote(remote truenas.Remote) (Desired, error) {
	var p Payload
	if err := remote.Decode(&p); err != nil {
		return Desired{}, fmt.Errorf("failed to decode cronjob: %w", err)
	}

	return Desired{
		State:       string(reconcile.Present),
		Description: p.Description,
		Command:     p.Command,
		User:        p.User,
		Enabled:     &p.Enabled,
		HideStdout:  &p.Stdout,
		HideStderr:  &p.Stderr,
		Schedule:    p.Schedule,
	}, nil
}
