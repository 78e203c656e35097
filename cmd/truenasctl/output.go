package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dokzlo13/truenasctl/internal/app"
	"github.com/dokzlo13/truenasctl/internal/reconcile"
)

// reportedError marks a failure that has already been written to stdout.
type reportedError struct {
	code  int
	count int
}

func (e *reportedError) Error() string {
	return fmt.Sprintf("%d resource(s) failed", e.count)
}

// failureOutput is the JSON document printed for a failed resource.
type failureOutput struct {
	Failed  bool   `json:"failed"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

func newFailureOutput(err error) failureOutput {
	out := failureOutput{Failed: true, Message: err.Error()}
	var failure *reconcile.Failure
	if errors.As(err, &failure) {
		out.Message = failure.Message
		out.Cause = failure.Cause()
	}
	return out
}

// writeOutcome prints one outcome as a single JSON line.
func writeOutcome(w io.Writer, o app.Outcome) error {
	enc := json.NewEncoder(w)
	if o.Err != nil {
		return enc.Encode(newFailureOutput(o.Err))
	}
	return enc.Encode(o.Result)
}

// writeOutcomes prints every outcome and turns failures into an exit code.
func writeOutcomes(w io.Writer, outcomes []app.Outcome) error {
	failed := 0
	for _, o := range outcomes {
		if err := writeOutcome(w, o); err != nil {
			return err
		}
		if o.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return &reportedError{code: ExitCodeError, count: failed}
	}
	return nil
}
