// Package wait provides the strategy used between the alternate-disk
// migration reboot and the phase-one completion message. The default is
// a fixed delay, matching the original workflow; Poll is an opt-in
// readiness probe for operators who prefer not to guess at boot times.
package wait

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"

	"github.com/nimplane/nimplane/internal/remote"
)

// Strategy blocks until the rebooted host is assumed (or known) to be
// back, or the context is cancelled.
type Strategy interface {
	Wait(ctx context.Context) error
	Describe() string
}

// FixedDelay waits a flat duration. Unlike the original blocking sleep
// it honors context cancellation.
type FixedDelay struct {
	Duration time.Duration
}

func (f FixedDelay) Wait(ctx context.Context) error {
	timer := time.NewTimer(f.Duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (f FixedDelay) Describe() string {
	return fmt.Sprintf("fixed %s delay", f.Duration)
}

// Poll probes the host with a trivial command until it answers, backing
// off between attempts.
type Poll struct {
	Exec     remote.Executor
	Host     string
	Command  string // defaults to "uptime"
	Attempts int
	Delay    time.Duration
	Out      io.Writer // optional progress output
}

func (p Poll) Wait(ctx context.Context) error {
	command := p.Command
	if command == "" {
		command = "uptime"
	}
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 30
	}
	delay := p.Delay
	if delay <= 0 {
		delay = 30 * time.Second
	}

	return retry.Call(retry.CallArgs{
		Clock:    clock.WallClock,
		Attempts: attempts,
		Delay:    delay,
		Stop:     ctx.Done(),
		Func: func() error {
			res, err := p.Exec.Run(ctx, p.Host, command)
			if err != nil {
				return err
			}
			if !res.Ok() {
				return fmt.Errorf("%s not ready: exit %d", p.Host, res.ExitCode)
			}
			return nil
		},
		NotifyFunc: func(lastErr error, attempt int) {
			if p.Out != nil {
				fmt.Fprintf(p.Out, "  waiting for %s (attempt %d): %v\n", p.Host, attempt, lastErr)
			}
		},
	})
}

func (p Poll) Describe() string {
	return fmt.Sprintf("poll %s until it answers", p.Host)
}
