// Package runner executes ordered, host-delegated step lists with a
// uniform run-then-check discipline: each step runs to completion, its
// result is checked against the step's success predicate, and the first
// failure halts the remaining steps. Nothing is retried and nothing is
// rolled back; remediation is the operator's job.
package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/nimplane/nimplane/internal/remote"
)

// Observer is notified after every executed step, success or failure.
// The history journal hangs off this.
type Observer interface {
	StepFinished(ctx context.Context, phase Phase, res StepResult)
}

// Runner drives a step list against an executor.
type Runner struct {
	Exec     Executor
	Observer Observer  // optional
	Out      io.Writer // optional progress output
	DryRun   bool
	Verbose  bool
}

// Executor is the delegated host operation contract; remote.Executor
// satisfies it, as does the test Recorder.
type Executor interface {
	Run(ctx context.Context, host string, command string) (remote.Result, error)
}

// Run executes steps in order. It returns the results of every step
// that ran, paired with the first error encountered (if any). Steps
// after a failing step are never invoked.
func (r *Runner) Run(ctx context.Context, phase Phase, steps []Step) ([]StepResult, error) {
	var results []StepResult
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		r.printf("  [%d/%d] %s (on %s)\n", i+1, len(steps), step.Label, step.Host)
		if r.DryRun {
			r.printf("        would run: %s\n", step.Command)
			continue
		}

		res, err := r.runOne(ctx, phase, step)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, phase Phase, step Step) (StepResult, error) {
	res := StepResult{Step: step, Started: time.Now()}

	out, err := r.Exec.Run(ctx, step.Host, step.Command)
	res.Result = out
	res.Finished = time.Now()
	if err == nil {
		res.Changed = step.Mutating && out.Ok()
	}

	if r.Observer != nil {
		r.Observer.StepFinished(ctx, phase, res)
	}

	if err != nil {
		return res, &StepExecutionError{Step: step.Label, Host: step.Host, Result: out, Cause: err}
	}

	check := step.Check
	if check == nil {
		check = ExitZero()
	}
	if err := check(out); err != nil {
		return res, &StepExecutionError{Step: step.Label, Host: step.Host, Result: out, Cause: err}
	}

	if r.Verbose && out.Stdout != "" {
		r.printf("        %s\n", out.Snippet())
	}
	return res, nil
}

func (r *Runner) printf(format string, args ...any) {
	if r.Out != nil {
		fmt.Fprintf(r.Out, format, args...)
	}
}
