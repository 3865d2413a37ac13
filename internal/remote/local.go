package remote

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// LocalHost is the reserved host name for steps that run on the
// invoking controller itself, such as fetching a backup artifact with
// scp before the remote side is rebuilt.
const LocalHost = "controller"

// LocalExecutor runs commands on the controller through the local
// shell.
type LocalExecutor struct{}

// Run implements Executor for the controller host.
func (LocalExecutor) Run(ctx context.Context, host string, command string) (Result, error) {
	if host == "" {
		return Result{}, ErrNoHost
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return Result{}, err
	}
	return result, nil
}

// Mux routes steps between the controller and the fleet: LocalHost goes
// to Local, everything else to Remote.
type Mux struct {
	Local  Executor
	Remote Executor
}

// Run implements Executor.
func (m Mux) Run(ctx context.Context, host string, command string) (Result, error) {
	if host == LocalHost {
		return m.Local.Run(ctx, host, command)
	}
	return m.Remote.Run(ctx, host, command)
}
