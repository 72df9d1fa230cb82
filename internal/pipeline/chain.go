package pipeline

import (
	"errors"
	"fmt"
)

// Outcome is the terminal result of running one document through the chain.
// Stage names the failing stage, or the last stage that ran on success.
type Outcome struct {
	Success bool
	Stage   string
	Reason  string
}

// Rejection is a business-rule refusal raised by a stage sub-step. It is an
// expected per-document outcome, distinct from unexpected errors.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string { return r.Reason }

// Reject builds a Rejection with a formatted reason.
func Reject(format string, args ...any) error {
	return &Rejection{Reason: fmt.Sprintf(format, args...)}
}

// RejectionReason extracts the reason when err is a Rejection.
func RejectionReason(err error) (string, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

// Stage is one link of the evaluation chain. CanHandle is a cheap
// precondition check; when it reports false the chain skips the stage and
// control passes unchanged to the next one. Handle runs the stage's ordered
// sub-steps and converts any sub-step error into a failed Outcome.
type Stage interface {
	Name() string
	CanHandle(doc *Document) bool
	Handle(doc *Document) Outcome
}

// Chain runs documents through an ordered list of stages, stopping at the
// first failure. One malformed document can never crash the batch driver:
// panics inside a stage are recovered here and downgraded to a failed
// Outcome for that stage.
type Chain struct {
	stages []Stage
}

// NewChain assembles the standard five-stage evaluation chain.
func NewChain() *Chain {
	return &Chain{stages: []Stage{
		NewContentLoad(),
		NewExtraction(),
		NewQualityFilter(),
		NewScoring(),
		NewPackaging(),
	}}
}

// NewChainWith builds a chain from an explicit stage list.
func NewChainWith(stages ...Stage) *Chain {
	return &Chain{stages: stages}
}

// Run evaluates one document. Reaching the end of the chain with no
// rejection is the only success condition.
func (c *Chain) Run(doc *Document) Outcome {
	out := Outcome{Success: true}
	for _, st := range c.stages {
		if !st.CanHandle(doc) {
			continue
		}
		res := c.runStage(st, doc)
		if !res.Success {
			return res
		}
		out = res
	}
	return out
}

func (c *Chain) runStage(st Stage, doc *Document) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{
				Success: false,
				Stage:   st.Name(),
				Reason:  fmt.Sprintf("unexpected error: %v", r),
			}
		}
	}()
	return st.Handle(doc)
}

// runSteps executes a stage's sub-steps in order, translating the first
// error into a failed Outcome via derive. It is the shared stage boundary.
func runSteps(
	name string,
	doc *Document,
	steps []func(*Document) error,
	derive func(error) string,
) Outcome {
	for _, step := range steps {
		if err := step(doc); err != nil {
			return Outcome{Success: false, Stage: name, Reason: derive(err)}
		}
	}
	return Outcome{Success: true, Stage: name}
}

// reasonOrError favors the Rejection reason and falls back to a generic
// error message for unexpected failures.
func reasonOrError(err error) string {
	if reason, ok := RejectionReason(err); ok {
		return reason
	}
	return fmt.Sprintf("Error: %v", err)
}
