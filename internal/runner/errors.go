package runner

import (
	"fmt"

	"github.com/nimplane/nimplane/internal/remote"
)

// ConfigurationError reports a required workflow parameter that is
// missing or empty. It is always raised before any delegated operation
// runs.
type ConfigurationError struct {
	Parameter string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("required parameter %q is missing or empty", e.Parameter)
}

// PreconditionViolation reports a failed read-only check. The workflow
// never starts mutating steps once one is raised.
type PreconditionViolation struct {
	Check  string
	Host   string
	Detail string
}

func (e *PreconditionViolation) Error() string {
	msg := fmt.Sprintf("precondition %q failed on %s", e.Check, e.Host)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// StepExecutionError reports a delegated step whose command failed its
// success predicate (usually a non-zero exit). It halts the remaining
// steps of the phase.
type StepExecutionError struct {
	Step   string
	Host   string
	Result remote.Result
	Cause  error
}

func (e *StepExecutionError) Error() string {
	msg := fmt.Sprintf("step %q failed on %s", e.Step, e.Host)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	} else if e.Result.ExitCode != 0 {
		msg += fmt.Sprintf(": exit %d", e.Result.ExitCode)
	}
	if snippet := e.Result.Snippet(); snippet != "" {
		msg += "\n  " + snippet
	}
	return msg
}

func (e *StepExecutionError) Unwrap() error { return e.Cause }

// SoftStop is an intentional early termination that is not an error:
// preview mode finishing, or a controller refusing authentication in
// the live-update workflow. Callers must surface it as its own outcome
// rather than collapsing it into success or failure.
type SoftStop struct {
	Reason string
}

func (e *SoftStop) Error() string {
	return "stopped: " + e.Reason
}
