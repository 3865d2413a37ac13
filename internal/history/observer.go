package history

import (
	"context"
	"log"

	"github.com/nimplane/nimplane/internal/runner"
)

// StepObserver adapts a Journal to the runner's Observer hook, tagging
// every record with the invocation's run id.
type StepObserver struct {
	Journal Journal
	RunID   string
}

// StepFinished implements runner.Observer. A journal write failure must
// not halt the migration itself; it is logged and the run continues.
func (o *StepObserver) StepFinished(ctx context.Context, phase runner.Phase, res runner.StepResult) {
	rec := Record{
		RunID:      o.RunID,
		Phase:      phase.String(),
		StepLabel:  res.Step.Label,
		Host:       res.Step.Host,
		Command:    res.Step.Command,
		ExitCode:   res.Result.ExitCode,
		Stdout:     res.Result.Stdout,
		Stderr:     res.Result.Stderr,
		Changed:    res.Changed,
		StartedAt:  res.Started,
		FinishedAt: res.Finished,
	}
	if err := o.Journal.RecordStep(ctx, rec); err != nil {
		log.Printf("history: %v", err)
	}
}
