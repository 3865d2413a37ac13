package remote

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Call is one recorded invocation against the Recorder.
type Call struct {
	Host    string
	Command string
}

// Script matches an incoming command and supplies its result.
type Script struct {
	Host    string // empty matches any host
	Prefix  string // matches commands beginning with this text; empty matches all
	Result  Result
	Err     error
	MaxUses int // 0 means unlimited
	uses    int
}

// Recorder is a scripted Executor for tests. Commands are matched
// against scripts in order; unmatched commands succeed with empty
// output so tests only script what they care about.
type Recorder struct {
	mu      sync.Mutex
	scripts []*Script
	calls   []Call
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Script appends a scripted response.
func (r *Recorder) Script(s Script) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts = append(r.scripts, &s)
}

// Fail scripts a non-zero exit for commands on host starting with prefix.
func (r *Recorder) Fail(host, prefix string, exitCode int, stderr string) {
	r.Script(Script{Host: host, Prefix: prefix, Result: Result{ExitCode: exitCode, Stderr: stderr}})
}

// Respond scripts a successful result with the given stdout.
func (r *Recorder) Respond(host, prefix, stdout string) {
	r.Script(Script{Host: host, Prefix: prefix, Result: Result{Stdout: stdout}})
}

// Run implements Executor.
func (r *Recorder) Run(_ context.Context, host string, command string) (Result, error) {
	if host == "" {
		return Result{}, ErrNoHost
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Host: host, Command: command})

	for _, s := range r.scripts {
		if s.Host != "" && s.Host != host {
			continue
		}
		if s.Prefix != "" && !strings.HasPrefix(command, s.Prefix) {
			continue
		}
		if s.MaxUses > 0 && s.uses >= s.MaxUses {
			continue
		}
		s.uses++
		return s.Result, s.Err
	}
	return Result{}, nil
}

// Calls returns a copy of the recorded invocations in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallCount returns how many commands were run.
func (r *Recorder) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// CommandsOn returns the commands run against one host, in order.
func (r *Recorder) CommandsOn(host string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.calls {
		if c.Host == host {
			out = append(out, c.Command)
		}
	}
	return out
}

// String renders the call log, one call per line, for test failure output.
func (r *Recorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var b strings.Builder
	for i, c := range r.calls {
		fmt.Fprintf(&b, "%d: [%s] %s\n", i+1, c.Host, c.Command)
	}
	return b.String()
}
