// Package precheck runs the read-only battery that gates an alternate
// disk migration: the target must be reachable from the master, the
// NIM daemons on both sides must be up, and the target's own niminfo
// must point back at the master doing the work. Checks run in a fixed
// order and the first failure stops the battery; every check is
// idempotent and safe to re-run.
package precheck

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nimplane/nimplane/internal/niminfo"
	"github.com/nimplane/nimplane/internal/remote"
	"github.com/nimplane/nimplane/internal/runner"
)

// objectNotFoundCode is the lsnim error code for an undefined object.
// A probe for registration treats it as "not yet registered", never as
// a hard failure; any other lsnim error is fatal.
const objectNotFoundCode = "0042-053"

// Validator runs the precondition battery for a target/master pair.
type Validator struct {
	Exec remote.Executor
	Out  io.Writer // optional progress output

	// LooseMatch restores the historical substring comparison for the
	// niminfo master cross-check.
	LooseMatch bool
}

// Report summarises a completed validation.
type Report struct {
	Target     string
	Master     string
	Registered bool // whether the target is already defined on the master
}

// Validate runs every check in order against the pair. The returned
// error, if any, is a *runner.PreconditionViolation naming the first
// violated condition; later checks are never invoked.
func (v *Validator) Validate(ctx context.Context, target, master string) (*Report, error) {
	if target == "" {
		return nil, &runner.ConfigurationError{Parameter: "target"}
	}
	if master == "" {
		return nil, &runner.ConfigurationError{Parameter: "master"}
	}

	report := &Report{Target: target, Master: master}

	registered, err := v.checkRegistration(ctx, target, master)
	if err != nil {
		return nil, err
	}
	report.Registered = registered

	if err := v.checkSubsystem(ctx, master, "nimesis"); err != nil {
		return nil, err
	}
	if err := v.checkRemoteChannel(ctx, target, master); err != nil {
		return nil, err
	}
	if err := v.checkSubsystem(ctx, master, "tftpd"); err != nil {
		return nil, err
	}
	if err := v.checkSubsystem(ctx, master, "bootpd"); err != nil {
		return nil, err
	}
	if err := v.checkTargetAgent(ctx, target); err != nil {
		return nil, err
	}
	if err := v.checkNiminfo(ctx, target, master); err != nil {
		return nil, err
	}
	return report, nil
}

// checkRegistration probes whether target is a defined NIM object on
// the master. Absence is an expected state here, signalled by the
// 0042-053 code; it is reported, not fatal.
func (v *Validator) checkRegistration(ctx context.Context, target, master string) (bool, error) {
	res, err := v.Exec.Run(ctx, master, remote.Command("lsnim", "-l", target))
	if err != nil {
		return false, v.violation("target registration query", master, err.Error())
	}
	if res.Ok() {
		v.printf("  ✓ %s is registered on %s\n", target, master)
		return true, nil
	}
	if strings.Contains(res.Stderr, objectNotFoundCode) {
		v.printf("  ✓ %s is not yet registered on %s (will be defined)\n", target, master)
		return false, nil
	}
	return false, v.violation("target registration query", master, res.Snippet())
}

// checkSubsystem verifies an SRC subsystem reports active on host.
func (v *Validator) checkSubsystem(ctx context.Context, host, subsystem string) error {
	res, err := v.Exec.Run(ctx, host, remote.Command("lssrc", "-s", subsystem))
	if err != nil {
		return v.violation(subsystem+" subsystem active", host, err.Error())
	}
	if !res.Ok() {
		return v.violation(subsystem+" subsystem active", host, res.Snippet())
	}
	status, err := parseLssrcStatus(res.Stdout, subsystem)
	if err != nil {
		return v.violation(subsystem+" subsystem active", host, err.Error())
	}
	if status != "active" {
		return v.violation(subsystem+" subsystem active", host,
			fmt.Sprintf("subsystem is %q, want active", status))
	}
	v.printf("  ✓ %s is active on %s\n", subsystem, host)
	return nil
}

// checkRemoteChannel proves the master can run a trivial command on the
// target through the NIM service handler.
func (v *Validator) checkRemoteChannel(ctx context.Context, target, master string) error {
	cmd := remote.Command("/usr/lpp/bos.sysmgt/nim/methods/c_rsh", target, "/usr/bin/true")
	res, err := v.Exec.Run(ctx, master, cmd)
	if err != nil {
		return v.violation("remote execution channel", master, err.Error())
	}
	if !res.Ok() {
		return v.violation("remote execution channel", master, res.Snippet())
	}
	v.printf("  ✓ %s can reach %s over nimsh\n", master, target)
	return nil
}

// checkTargetAgent verifies nimsh is up on the target itself, not just
// believed reachable by the master.
func (v *Validator) checkTargetAgent(ctx context.Context, target string) error {
	return v.checkSubsystem(ctx, target, "nimsh")
}

// checkNiminfo cross-validates the target's stored configuration: its
// recorded master must be the master running this check.
func (v *Validator) checkNiminfo(ctx context.Context, target, master string) error {
	res, err := v.Exec.Run(ctx, target, remote.Command("cat", "/etc/niminfo"))
	if err != nil {
		return v.violation("niminfo master cross-check", target, err.Error())
	}
	if !res.Ok() {
		return v.violation("niminfo master cross-check", target, res.Snippet())
	}
	info, err := niminfo.Parse(res.Stdout)
	if err != nil {
		return v.violation("niminfo master cross-check", target, err.Error())
	}
	if !info.MasterIs(master, v.LooseMatch) {
		return v.violation("niminfo master cross-check", target,
			fmt.Sprintf("client records master %q, expected %q", info.MasterHostname, master))
	}
	v.printf("  ✓ %s records %s as its master\n", target, master)
	return nil
}

func (v *Validator) violation(check, host, detail string) error {
	return &runner.PreconditionViolation{Check: check, Host: host, Detail: detail}
}

func (v *Validator) printf(format string, args ...any) {
	if v.Out != nil {
		fmt.Fprintf(v.Out, format, args...)
	}
}

// parseLssrcStatus extracts the Status column for subsystem from lssrc
// output. The output is a header line followed by one line per
// subsystem; the status is the final field.
func parseLssrcStatus(stdout, subsystem string) (string, error) {
	for _, line := range strings.Split(stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != subsystem {
			continue
		}
		return strings.ToLower(fields[len(fields)-1]), nil
	}
	return "", fmt.Errorf("subsystem %s not present in lssrc output", subsystem)
}
