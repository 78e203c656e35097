package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/truenasctl/internal/ledger"
	"github.com/dokzlo13/truenasctl/internal/manifest"
	"github.com/dokzlo13/truenasctl/internal/reconcile"
	"github.com/dokzlo13/truenasctl/internal/reconcile/cronjob"
	"github.com/dokzlo13/truenasctl/internal/reconcile/tunable"
)

// RunOptions controls a manifest run.
type RunOptions struct {
	DryRun    bool // plan only, never mutate
	KeepGoing bool // continue after a failed resource
}

// Outcome is what happened to one resource.
type Outcome struct {
	Kind   reconcile.Kind
	Key    reconcile.MatchKey
	Plan   *reconcile.Plan // set for dry runs
	Result reconcile.Result
	Err    error
}

// Report collects the outcomes of a run.
type Report struct {
	RunID    string
	Outcomes []Outcome
}

// Changed returns how many resources were (or would be) changed.
func (r *Report) Changed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			continue
		}
		if o.Result.Changed || (o.Plan != nil && o.Plan.Action != reconcile.ActionNone) {
			n++
		}
	}
	return n
}

// Failed returns how many resources failed, including those skipped
// because the run was interrupted.
func (r *Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Run reconciles every resource of a manifest, one after the other:
// cron jobs first, then tunables. Each resource gets its own fetch.
func (a *App) Run(ctx context.Context, m *manifest.Manifest, opts RunOptions) *Report {
	report := &Report{RunID: NewRunID()}

	log.Info().
		Str("run_id", report.RunID).
		Int("cronjobs", len(m.CronJobs)).
		Int("tunables", len(m.Tunables)).
		Bool("dry_run", opts.DryRun).
		Msg("Run started")

	steps := make([]step, 0, m.Len())
	for _, d := range m.CronJobs {
		steps = append(steps, newStep(a.CronJobs, d, func() Outcome {
			return runOne(ctx, a, report.RunID, a.CronJobs, d, opts.DryRun)
		}))
	}
	for _, d := range m.Tunables {
		steps = append(steps, newStep(a.Tunables, d, func() Outcome {
			return runOne(ctx, a, report.RunID, a.Tunables, d, opts.DryRun)
		}))
	}

	for i, s := range steps {
		if err := a.limiter.Wait(ctx); err != nil {
			log.Warn().Err(err).Str("run_id", report.RunID).Int("skipped", len(steps)-i).Msg("Run interrupted")
			for _, rest := range steps[i:] {
				outcome := rest.skipped(err)
				a.record(report.RunID, outcome)
				report.Outcomes = append(report.Outcomes, outcome)
			}
			break
		}

		outcome := s.run()
		report.Outcomes = append(report.Outcomes, outcome)

		if outcome.Err != nil && !opts.KeepGoing {
			break
		}
	}

	log.Info().
		Str("run_id", report.RunID).
		Int("resources", len(report.Outcomes)).
		Int("changed", report.Changed()).
		Int("failed", report.Failed()).
		Msg("Run finished")

	return report
}

// ReconcileCronJob reconciles a single cron job.
func (a *App) ReconcileCronJob(ctx context.Context, d cronjob.Desired) Outcome {
	return runOne(ctx, a, NewRunID(), a.CronJobs, d, false)
}

// ReconcileTunable reconciles a single tunable.
func (a *App) ReconcileTunable(ctx context.Context, d tunable.Desired) Outcome {
	return runOne(ctx, a, NewRunID(), a.Tunables, d, false)
}

// Prune drops history entries older than the configured retention.
func (a *App) Prune() (int64, error) {
	if a.Ledger == nil {
		return 0, nil
	}
	if a.cfg.Ledger.RetentionDays < 0 {
		return 0, fmt.Errorf("ledger.retention_days must not be negative, got %d", a.cfg.Ledger.RetentionDays)
	}
	retention := time.Duration(a.cfg.Ledger.RetentionDays) * 24 * time.Hour
	return a.Ledger.DeleteOlderThan(retention)
}

// step is one pending resource of a run.
type step struct {
	kind reconcile.Kind
	key  reconcile.MatchKey
	run  func() Outcome
}

func newStep[D reconcile.Desired](r *reconcile.Reconciler[D], d D, run func() Outcome) step {
	adapter := r.Adapter()
	return step{kind: adapter.Kind(), key: adapter.MatchKey(d), run: run}
}

// skipped is the outcome of a resource the run never reached.
func (s step) skipped(cause error) Outcome {
	return Outcome{
		Kind: s.kind,
		Key:  s.key,
		Err: &reconcile.Failure{
			Message: fmt.Sprintf("Skipped truenas %s '%s'", s.kind.Noun(), s.key),
			Err:     cause,
		},
	}
}

func runOne[D reconcile.Desired](ctx context.Context, a *App, runID string, r *reconcile.Reconciler[D], d D, dryRun bool) Outcome {
	adapter := r.Adapter()
	outcome := Outcome{
		Kind: adapter.Kind(),
		Key:  adapter.MatchKey(d),
	}

	if dryRun {
		outcome.Plan, outcome.Err = r.Plan(ctx, d)
	} else {
		outcome.Result, outcome.Err = r.Reconcile(ctx, d)
	}

	if outcome.Err != nil {
		log.Error().Err(outcome.Err).
			Str("run_id", runID).
			Str("kind", string(outcome.Kind)).
			Str("key", outcome.Key.String()).
			Msg("Reconcile failed")
	}

	a.record(runID, outcome)
	return outcome
}

func (a *App) record(runID string, o Outcome) {
	if a.Ledger == nil {
		return
	}

	entry := ledger.Entry{
		RunID: runID,
		Kind:  string(o.Kind),
		Key:   o.Key.String(),
	}

	switch {
	case o.Err != nil:
		entry.EventType = ledger.EventFailed
		entry.Action = reconcile.ActionNone.String()
		entry.Error = o.Err.Error()
		var failure *reconcile.Failure
		if errors.As(o.Err, &failure) {
			entry.Message = failure.Message
		}
	case o.Plan != nil:
		entry.EventType = ledger.EventPlanned
		entry.Action = o.Plan.Action.String()
		entry.Payload = planPayload(o.Plan)
	default:
		entry.EventType = ledger.EventApplied
		entry.Action = o.Result.Action.String()
		entry.Changed = o.Result.Changed
		entry.Message = o.Result.Message
		if o.Result.ID != "" {
			entry.Payload = map[string]any{"id": o.Result.ID}
		}
	}

	if err := a.Ledger.Append(entry); err != nil {
		log.Warn().Err(err).Str("run_id", runID).Msg("Failed to record history")
	}
}

func planPayload(p *reconcile.Plan) map[string]any {
	payload := map[string]any{}
	if p.ID != "" {
		payload["id"] = p.ID
	}
	if p.Diff != "" {
		payload["diff"] = p.Diff
	}
	if p.Current != nil {
		payload["current"] = p.Current
	}
	if len(payload) == 0 {
		return nil
	}
	return payload
}
