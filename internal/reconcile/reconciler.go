package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/truenasctl/internal/truenas"
)

// Reconciler makes one remote resource match a desired record.
// Every call performs a fresh fetch; nothing is cached between calls.
type Reconciler[D Desired] struct {
	client  Transport
	adapter Adapter[D]
}

// New creates a new Reconciler for the adapter's resource kind.
func New[D Desired](client Transport, adapter Adapter[D]) *Reconciler[D] {
	return &Reconciler[D]{
		client:  client,
		adapter: adapter,
	}
}

// Adapter returns the resource adapter.
func (r *Reconciler[D]) Adapter() Adapter[D] {
	return r.adapter
}

// Reconcile validates, fetches, decides and performs at most one mutation.
func (r *Reconciler[D]) Reconcile(ctx context.Context, desired D) (Result, error) {
	plan, err := r.Plan(ctx, desired)
	if err != nil {
		return Result{}, err
	}
	return r.Apply(ctx, plan)
}

// Plan computes the action for desired without mutating anything.
func (r *Reconciler[D]) Plan(ctx context.Context, desired D) (*Plan, error) {
	kind := r.adapter.Kind()
	key := r.adapter.MatchKey(desired)
	intent := desired.Intent()

	if err := r.validate(desired); err != nil {
		return nil, &Failure{
			Message: fmt.Sprintf("Invalid truenas %s '%s'", kind.Noun(), key),
			Err:     err,
		}
	}

	remotes, err := r.client.Fetch(ctx, r.adapter.CollectionPath())
	if err != nil {
		return nil, &Failure{
			Message: fmt.Sprintf("Error fetching truenas %ss", kind.Noun()),
			Err:     err,
		}
	}

	match := r.match(remotes, key)

	payload := r.adapter.ToPayload(desired)
	plan := &Plan{
		Kind:    kind,
		Key:     key,
		Intent:  intent,
		Payload: payload,
	}

	equal := false
	if match != nil {
		id, ok := match.ID()
		if !ok {
			return nil, &Failure{
				Message: fmt.Sprintf("Error setting truenas %s '%s'", kind.Noun(), key),
				Err:     fmt.Errorf("matching %s record has no id", kind),
			}
		}
		plan.ID = id

		if current, err := r.adapter.FromRemote(match); err == nil {
			plan.Current = current
		} else {
			log.Warn().Err(err).
				Str("kind", string(kind)).
				Str("id", id).
				Msg("Remote record does not project onto a desired record")
		}

		if intent == Present {
			want, err := normalize(payload)
			if err != nil {
				return nil, &Failure{
					Message: fmt.Sprintf("Error setting truenas %s '%s'", kind.Noun(), key),
					Err:     err,
				}
			}
			got := match.WithoutID()
			equal = cmp.Equal(want, got)
			if !equal {
				plan.Diff = cmp.Diff(got, want)
			}
		}
	}

	plan.Action = DetermineAction(intent, match != nil, equal)

	log.Debug().
		Str("kind", string(kind)).
		Str("key", key.String()).
		Str("intent", string(intent)).
		Str("id", plan.ID).
		Int("remote_count", len(remotes)).
		Str("action", plan.Action.String()).
		Msg("Reconcile plan")

	return plan, nil
}

// Apply performs the planned action.
func (r *Reconciler[D]) Apply(ctx context.Context, plan *Plan) (Result, error) {
	noun := plan.Kind.Noun()
	result := Result{
		Kind:   plan.Kind,
		Key:    plan.Key,
		Action: plan.Action,
		ID:     plan.ID,
	}

	var err error
	switch plan.Action {
	case ActionCreate:
		var resp truenas.Response
		resp, err = r.client.Create(ctx, r.adapter.CollectionPath(), plan.Payload)
		if err == nil {
			result.ID = createdID(resp)
		}
	case ActionUpdate:
		_, err = r.client.Replace(ctx, r.adapter.ItemPath(plan.ID), plan.Payload)
	case ActionDelete:
		_, err = r.client.Remove(ctx, r.adapter.ItemPath(plan.ID))
	}
	if err != nil {
		return Result{}, &Failure{
			Message: fmt.Sprintf("Error setting truenas %s '%s'", noun, plan.Key),
			Err:     err,
		}
	}

	result.Changed = plan.Action != ActionNone
	switch {
	case plan.Intent == Present:
		result.Message = noun + " set"
	case plan.Action == ActionDelete:
		result.Message = noun + " removed"
	default:
		result.Message = noun + " not present"
	}

	if result.Changed {
		log.Info().
			Str("kind", string(plan.Kind)).
			Str("key", plan.Key.String()).
			Str("id", result.ID).
			Str("action", plan.Action.String()).
			Msg("Resource reconciled")
	}

	return result, nil
}

func (r *Reconciler[D]) validate(desired D) error {
	switch desired.Intent() {
	case Present, Absent:
	default:
		v := NewValidation(r.adapter.Kind(), desired.Intent())
		v.Invalidf("state must be one of present, absent, got %q", desired.Intent())
		return v
	}
	return r.adapter.Validate(desired)
}

// match returns the first remote record whose key equals key. When the key
// is not unique the first one in server order wins.
func (r *Reconciler[D]) match(remotes []truenas.Remote, key MatchKey) truenas.Remote {
	var found truenas.Remote
	count := 0
	for _, remote := range remotes {
		if !r.adapter.KeysEqual(r.adapter.ExtractKey(remote), key) {
			continue
		}
		if found == nil {
			found = remote
		}
		count++
	}

	if count > 1 {
		id, _ := found.ID()
		log.Warn().
			Str("kind", string(r.adapter.Kind())).
			Str("key", key.String()).
			Int("matches", count).
			Str("using_id", id).
			Msg("Match key is not unique, using first match")
	}

	return found
}

// normalize converts a typed payload into the generic shape a decoded
// remote record has, so both sides compare structurally.
func normalize(payload any) (map[string]any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to normalize payload: %w", err)
	}
	return out, nil
}

func createdID(resp truenas.Response) string {
	var created truenas.Remote
	if err := resp.Decode(&created); err != nil {
		return ""
	}
	id, _ := created.ID()
	return id
}
