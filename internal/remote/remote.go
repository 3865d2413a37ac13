package remote

import (
	"context"
	"fmt"
	"strings"
)

// Result is the outcome of one command run on one host. A non-zero exit
// code is a Result, not a transport error; the transport only errors when
// the command could not be run at all (dial failure, auth failure).
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Ok reports whether the command exited zero.
func (r Result) Ok() bool {
	return r.ExitCode == 0
}

// Snippet returns the most useful diagnostic text from the result:
// stderr if present, otherwise stdout, trimmed.
func (r Result) Snippet() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// Executor runs a shell command on a named host and captures its output.
// Every delegated operation in the workflows goes through this interface,
// so tests can substitute a Recorder for the SSH transport.
type Executor interface {
	Run(ctx context.Context, host string, command string) (Result, error)
}

// Host describes how to reach one machine. Address may include a port;
// when it does not, port 22 is assumed.
type Host struct {
	Name         string
	Address      string
	User         string
	IdentityFile string
}

// HostSet resolves short host names (as used in plans and flags) to
// connection details.
type HostSet map[string]Host

// Lookup returns the host entry for name. Unknown names resolve to a
// bare entry using the name as the address, so ad-hoc hosts still work
// without a config file.
func (hs HostSet) Lookup(name string) Host {
	if h, ok := hs[name]; ok {
		return h
	}
	return Host{Name: name, Address: name}
}

// Quote renders a command argument safe for the remote shell.
func Quote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsAny(arg, " \t\n'\"\\$`&|;<>(){}*?#~") {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

// Command joins argv into a single remote shell command line.
func Command(argv ...string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = Quote(a)
	}
	return strings.Join(quoted, " ")
}

// ErrNoHost is returned when an operation is attempted with an empty
// host name.
var ErrNoHost = fmt.Errorf("no target host given")
