package runner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nimplane/nimplane/internal/remote"
)

func TestRunExecutesStepsInOrder(t *testing.T) {
	rec := remote.NewRecorder()
	r := &Runner{Exec: rec}

	steps := []Step{
		{Label: "first", Host: "h1", Command: "echo one"},
		{Label: "second", Host: "h2", Command: "echo two", Mutating: true},
		{Label: "third", Host: "h1", Command: "echo three"},
	}

	results, err := r.Run(context.Background(), PhaseBackupAndMigration, steps)
	if err != nil {
		t.Fatalf("Run failed: %v\ncalls:\n%s", err, rec)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	calls := rec.Calls()
	for i, want := range []string{"echo one", "echo two", "echo three"} {
		if calls[i].Command != want {
			t.Errorf("call %d = %q, want %q", i, calls[i].Command, want)
		}
	}

	if results[0].Changed {
		t.Error("non-mutating step must not report changed")
	}
	if !results[1].Changed {
		t.Error("successful mutating step should report changed")
	}
}

func TestRunHaltsOnFirstFailure(t *testing.T) {
	rec := remote.NewRecorder()
	rec.Fail("b", "failing", 1, "0042-001 operation failed")
	r := &Runner{Exec: rec}

	steps := []Step{
		{Label: "ok step", Host: "a", Command: "ok"},
		{Label: "bad step", Host: "b", Command: "failing command"},
		{Label: "never runs", Host: "c", Command: "never"},
	}

	results, err := r.Run(context.Background(), PhaseDBRestore, steps)
	if err == nil {
		t.Fatal("expected error from failing step")
	}

	var stepErr *StepExecutionError
	if !errors.As(err, &stepErr) {
		t.Fatalf("error type = %T, want *StepExecutionError", err)
	}
	if stepErr.Step != "bad step" || stepErr.Host != "b" {
		t.Errorf("error names step %q on %q, want bad step on b", stepErr.Step, stepErr.Host)
	}
	if !strings.Contains(stepErr.Error(), "0042-001") {
		t.Errorf("error should surface captured stderr, got: %v", stepErr)
	}

	if rec.CallCount() != 2 {
		t.Errorf("executor saw %d calls, want 2 (later steps never invoked)\n%s", rec.CallCount(), rec)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
}

func TestRunCustomPredicate(t *testing.T) {
	rec := remote.NewRecorder()
	rec.Respond("h", "lssrc", " nimesis  nim  123  active")
	r := &Runner{Exec: rec}

	steps := []Step{{
		Label:   "service active",
		Host:    "h",
		Command: "lssrc -s nimesis",
		Check:   OutputContains("active"),
	}}

	if _, err := r.Run(context.Background(), PhaseBackupAndMigration, steps); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	rec2 := remote.NewRecorder()
	rec2.Respond("h", "lssrc", " nimesis  nim  123  stopped")
	r2 := &Runner{Exec: rec2}
	if _, err := r2.Run(context.Background(), PhaseBackupAndMigration, steps); err == nil {
		t.Fatal("expected predicate failure")
	}
}

func TestRunDryRunInvokesNothing(t *testing.T) {
	rec := remote.NewRecorder()
	r := &Runner{Exec: rec, DryRun: true}

	steps := []Step{
		{Label: "one", Host: "h", Command: "dangerous"},
		{Label: "two", Host: "h", Command: "more dangerous"},
	}

	if _, err := r.Run(context.Background(), PhaseBackupAndMigration, steps); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rec.CallCount() != 0 {
		t.Errorf("dry run executed %d commands, want 0", rec.CallCount())
	}
}

type recordingObserver struct {
	finished []StepResult
}

func (o *recordingObserver) StepFinished(_ context.Context, _ Phase, res StepResult) {
	o.finished = append(o.finished, res)
}

func TestRunNotifiesObserverIncludingFailures(t *testing.T) {
	rec := remote.NewRecorder()
	rec.Fail("h", "bad", 2, "boom")
	obs := &recordingObserver{}
	r := &Runner{Exec: rec, Observer: obs}

	steps := []Step{
		{Label: "good", Host: "h", Command: "good"},
		{Label: "bad", Host: "h", Command: "bad"},
	}

	if _, err := r.Run(context.Background(), PhaseBackupAndMigration, steps); err == nil {
		t.Fatal("expected failure")
	}
	if len(obs.finished) != 2 {
		t.Fatalf("observer saw %d steps, want 2 (failures are journaled too)", len(obs.finished))
	}
	if obs.finished[1].Result.ExitCode != 2 {
		t.Errorf("observer result exit = %d, want 2", obs.finished[1].Result.ExitCode)
	}
}

func TestParsePhase(t *testing.T) {
	for _, input := range []string{"backup_and_migration", "backup-and-migration"} {
		phase, err := ParsePhase(input)
		if err != nil {
			t.Fatalf("ParsePhase(%q) failed: %v", input, err)
		}
		if phase != PhaseBackupAndMigration {
			t.Errorf("ParsePhase(%q) = %q", input, phase)
		}
	}

	if _, err := ParsePhase("db-restore"); err != nil {
		t.Errorf("ParsePhase(db-restore) failed: %v", err)
	}

	if _, err := ParsePhase("rollback"); err == nil {
		t.Error("expected error for unknown phase")
	}

	var cfgErr *ConfigurationError
	if _, err := ParsePhase(""); !errors.As(err, &cfgErr) {
		t.Errorf("empty phase should be a ConfigurationError, got %v", err)
	}
}
