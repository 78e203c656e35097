package tunable

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dokzlo13/truenasctl/internal/reconcile"
	"github.com/dokzlo13/truenasctl/internal/truenas"
)

const collection = "tunable"

// Adapter maps tunable records onto the /tunable API. Tunables are matched
// by (type, var).
type Adapter struct{}

var _ reconcile.Adapter[Desired] = Adapter{}

// NewAdapter creates a new tunable adapter.
func NewAdapter() Adapter {
	return Adapter{}
}

// Kind returns the resource kind.
func (Adapter) Kind() reconcile.Kind {
	return reconcile.KindTunable
}

func (Adapter) CollectionPath() string {
	return collection
}

func (Adapter) ItemPath(id string) string {
	return truenas.ItemPath(collection, id)
}

// Validate checks the tunable has everything its intent needs. The type is
// part of the match key and is required for both intents.
func (Adapter) Validate(d Desired) error {
	v := reconcile.NewValidation(reconcile.KindTunable, d.Intent())
	v.Require("name", d.Name)
	v.Require("type", d.Type)

	if d.Type != "" && !slices.Contains(Types, d.Type) {
		v.Invalidf("type must be one of %s, got %q", strings.Join(Types, ", "), d.Type)
	}

	if d.Intent() == reconcile.Present && d.Value == nil {
		v.Missing = append(v.Missing, "value")
	}

	return v.Err()
}

// ToPayload builds the canonical body sent on create and update.
func (Adapter) ToPayload(d Desired) any {
	value := ""
	if d.Value != nil {
		value = *d.Value
	}

	return Payload{
		Comment: d.Comment,
		Enabled: d.IsEnabled(),
		Type:    d.Type,
		Value:   value,
		Var:     d.Name,
	}
}

func (Adapter) MatchKey(d Desired) reconcile.MatchKey {
	return reconcile.MatchKey{d.Type, d.Name}
}

func (Adapter) ExtractKey(remote truenas.Remote) reconcile.MatchKey {
	return reconcile.MatchKey{remote.String("type"), remote.String("var")}
}

func (Adapter) KeysEqual(a, b reconcile.MatchKey) bool {
	return slices.Equal(a, b)
}

// FromRemote projects a remote tunable back into a desired record.
func (Adapter) FromRemote(remote truenas.Remote) (Desired, error) {
	var p Payload
	if err := remote.Decode(&p); err != nil {
		return Desired{}, fmt.Errorf("failed to decode tunable: %w", err)
	}

	return Desired{
		State:   string(reconcile.Present),
		Name:    p.Var,
		Type:    p.Type,
		Value:   &p.Value,
		Comment: p.Comment,
		Enabled: &p.Enabled,
	}, nil
}
