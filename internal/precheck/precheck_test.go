package precheck

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nimplane/nimplane/internal/remote"
	"github.com/nimplane/nimplane/internal/runner"
)

const targetNiminfo = `export NIM_NAME=client1
export NIM_CONFIGURATION=standalone
export NIM_MASTER_HOSTNAME=master1.example.com
export NIM_MASTER_PORT=1058
`

// healthyRecorder scripts a pair where every check passes.
func healthyRecorder() *remote.Recorder {
	rec := remote.NewRecorder()
	rec.Respond("master1", "lsnim -l client1", "client1:\n   class = machines\n   type  = standalone")
	rec.Respond("master1", "lssrc -s nimesis", "Subsystem  Group  PID  Status\n nimesis  nim  123  active")
	rec.Respond("master1", "/usr/lpp/bos.sysmgt/nim/methods/c_rsh", "")
	rec.Respond("master1", "lssrc -s tftpd", " tftpd  tcpip  200  active")
	rec.Respond("master1", "lssrc -s bootpd", " bootpd  tcpip  201  active")
	rec.Respond("client1", "lssrc -s nimsh", " nimsh  nimclient  300  active")
	rec.Respond("client1", "cat /etc/niminfo", targetNiminfo)
	return rec
}

func validate(t *testing.T, rec *remote.Recorder, loose bool) (*Report, error) {
	t.Helper()
	v := &Validator{Exec: rec, LooseMatch: loose}
	return v.Validate(context.Background(), "client1", "master1")
}

func TestValidateAllChecksPass(t *testing.T) {
	rec := healthyRecorder()
	report, err := validate(t, rec, false)
	if err != nil {
		t.Fatalf("Validate failed: %v\ncalls:\n%s", err, rec)
	}
	if !report.Registered {
		t.Error("target should be reported registered")
	}
	if rec.CallCount() != 7 {
		t.Errorf("ran %d checks, want 7:\n%s", rec.CallCount(), rec)
	}
}

func TestValidateToleratesUnregisteredTarget(t *testing.T) {
	rec2 := remote.NewRecorder()
	rec2.Fail("master1", "lsnim -l client1", 1, "0042-053 lsnim: there is no NIM object named \"client1\"")
	for _, c := range []struct{ host, prefix, out string }{
		{"master1", "lssrc -s nimesis", " nimesis  nim  123  active"},
		{"master1", "/usr/lpp/bos.sysmgt/nim/methods/c_rsh", ""},
		{"master1", "lssrc -s tftpd", " tftpd  tcpip  200  active"},
		{"master1", "lssrc -s bootpd", " bootpd  tcpip  201  active"},
		{"client1", "lssrc -s nimsh", " nimsh  nimclient  300  active"},
		{"client1", "cat /etc/niminfo", targetNiminfo},
	} {
		rec2.Respond(c.host, c.prefix, c.out)
	}

	report, err := validate(t, rec2, false)
	if err != nil {
		t.Fatalf("Validate failed: %v\ncalls:\n%s", err, rec2)
	}
	if report.Registered {
		t.Error("target should be reported unregistered")
	}
}

func TestValidateOtherQueryErrorIsFatal(t *testing.T) {
	rec := remote.NewRecorder()
	rec.Fail("master1", "lsnim -l client1", 1, "0042-006 lsnim: cannot access the NIM database")

	_, err := validate(t, rec, false)
	var violation *runner.PreconditionViolation
	if !errors.As(err, &violation) {
		t.Fatalf("error = %v, want PreconditionViolation", err)
	}
	if violation.Check != "target registration query" {
		t.Errorf("violation names %q", violation.Check)
	}
	if rec.CallCount() != 1 {
		t.Errorf("later checks ran after a fatal failure:\n%s", rec)
	}
}

func TestValidateShortCircuitsOnInactiveDaemon(t *testing.T) {
	rec := remote.NewRecorder()
	rec.Respond("master1", "lsnim -l client1", "client1:\n   class = machines")
	rec.Respond("master1", "lssrc -s nimesis", " nimesis  nim  123  inoperative")

	_, err := validate(t, rec, false)
	var violation *runner.PreconditionViolation
	if !errors.As(err, &violation) {
		t.Fatalf("error = %v, want PreconditionViolation", err)
	}
	if violation.Check != "nimesis subsystem active" || violation.Host != "master1" {
		t.Errorf("violation = %q on %q", violation.Check, violation.Host)
	}
	if !strings.Contains(violation.Detail, "inoperative") {
		t.Errorf("detail should name the observed status: %q", violation.Detail)
	}

	// Checks 3..7 never run.
	if rec.CallCount() != 2 {
		t.Errorf("ran %d checks, want 2:\n%s", rec.CallCount(), rec)
	}
}

func TestValidateNiminfoMismatch(t *testing.T) {
	rec2 := remote.NewRecorder()
	rec2.Respond("m10", "lsnim -l client1", "client1:\n   class = machines")
	rec2.Respond("m10", "lssrc -s nimesis", " nimesis  nim  123  active")
	rec2.Respond("m10", "/usr/lpp/bos.sysmgt/nim/methods/c_rsh", "")
	rec2.Respond("m10", "lssrc -s tftpd", " tftpd  tcpip  200  active")
	rec2.Respond("m10", "lssrc -s bootpd", " bootpd  tcpip  201  active")
	rec2.Respond("client1", "lssrc -s nimsh", " nimsh  nimclient  300  active")
	rec2.Respond("client1", "cat /etc/niminfo", "export NIM_NAME=client1\nexport NIM_MASTER_HOSTNAME=m1.example.com\n")

	v2 := &Validator{Exec: rec2}
	_, err := v2.Validate(context.Background(), "client1", "m10")
	var violation *runner.PreconditionViolation
	if !errors.As(err, &violation) {
		t.Fatalf("error = %v, want PreconditionViolation", err)
	}
	if violation.Check != "niminfo master cross-check" {
		t.Errorf("violation names %q", violation.Check)
	}

	// Loose matching would also reject here: "m10" is not a substring
	// of "m1.example.com". The inverse case, "m1" against a recorded
	// master "m10.example.com", is where strict and loose disagree.
	rec3 := remote.NewRecorder()
	rec3.Respond("m1", "lsnim -l client1", "client1:\n   class = machines")
	rec3.Respond("m1", "lssrc -s nimesis", " nimesis  nim  123  active")
	rec3.Respond("m1", "/usr/lpp/bos.sysmgt/nim/methods/c_rsh", "")
	rec3.Respond("m1", "lssrc -s tftpd", " tftpd  tcpip  200  active")
	rec3.Respond("m1", "lssrc -s bootpd", " bootpd  tcpip  201  active")
	rec3.Respond("client1", "lssrc -s nimsh", " nimsh  nimclient  300  active")
	rec3.Respond("client1", "cat /etc/niminfo", "export NIM_NAME=client1\nexport NIM_MASTER_HOSTNAME=m10.example.com\n")

	strict := &Validator{Exec: rec3}
	if _, err := strict.Validate(context.Background(), "client1", "m1"); err == nil {
		t.Error("strict comparison should reject m1 against recorded master m10")
	}

	rec4 := remote.NewRecorder()
	rec4.Respond("m1", "lsnim -l client1", "client1:\n   class = machines")
	rec4.Respond("m1", "lssrc -s nimesis", " nimesis  nim  123  active")
	rec4.Respond("m1", "/usr/lpp/bos.sysmgt/nim/methods/c_rsh", "")
	rec4.Respond("m1", "lssrc -s tftpd", " tftpd  tcpip  200  active")
	rec4.Respond("m1", "lssrc -s bootpd", " bootpd  tcpip  201  active")
	rec4.Respond("client1", "lssrc -s nimsh", " nimsh  nimclient  300  active")
	rec4.Respond("client1", "cat /etc/niminfo", "export NIM_NAME=client1\nexport NIM_MASTER_HOSTNAME=m10.example.com\n")

	loose := &Validator{Exec: rec4, LooseMatch: true}
	if _, err := loose.Validate(context.Background(), "client1", "m1"); err != nil {
		t.Errorf("loose comparison should accept the historical substring match: %v", err)
	}
}

func TestValidateRequiresTargetAndMaster(t *testing.T) {
	v := &Validator{Exec: remote.NewRecorder()}

	var cfgErr *runner.ConfigurationError
	if _, err := v.Validate(context.Background(), "", "m"); !errors.As(err, &cfgErr) {
		t.Errorf("missing target: error = %v, want ConfigurationError", err)
	}
	if _, err := v.Validate(context.Background(), "t", ""); !errors.As(err, &cfgErr) {
		t.Errorf("missing master: error = %v, want ConfigurationError", err)
	}
}

func TestParseLssrcStatus(t *testing.T) {
	out := `Subsystem         Group            PID          Status
 nimesis          nim              4784322      active
`
	status, err := parseLssrcStatus(out, "nimesis")
	if err != nil {
		t.Fatalf("parseLssrcStatus failed: %v", err)
	}
	if status != "active" {
		t.Errorf("status = %q, want active", status)
	}

	if _, err := parseLssrcStatus(out, "tftpd"); err == nil {
		t.Error("expected error for absent subsystem")
	}
}
