package remote

import (
	"context"
	"testing"
)

func TestQuote(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain", "plain"},
		{"/usr/lpp/bos.sysmgt/nim/methods/c_rsh", "/usr/lpp/bos.sysmgt/nim/methods/c_rsh"},
		{"", "''"},
		{"two words", "'two words'"},
		{"a'b", `'a'\''b'`},
		{"$HOME", "'$HOME'"},
		{"a;rm -rf /", "'a;rm -rf /'"},
	}
	for _, tc := range cases {
		if got := Quote(tc.in); got != tc.want {
			t.Errorf("Quote(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCommand(t *testing.T) {
	got := Command("lsnim", "-l", "client one")
	if got != "lsnim -l 'client one'" {
		t.Errorf("Command = %q", got)
	}
}

func TestHostSetLookup(t *testing.T) {
	hs := HostSet{
		"nim-a": {Name: "nim-a", Address: "10.0.0.10", User: "root"},
	}

	if h := hs.Lookup("nim-a"); h.Address != "10.0.0.10" {
		t.Errorf("Lookup(nim-a) = %+v", h)
	}

	// Names absent from the set still resolve, using the name itself
	// as the address.
	h := hs.Lookup("nim-b.example.com")
	if h.Address != "nim-b.example.com" {
		t.Errorf("ad-hoc lookup = %+v", h)
	}
}

func TestRecorderMatchesScriptsInOrder(t *testing.T) {
	rec := NewRecorder()
	rec.Fail("h1", "lssrc", 1, "not running")
	rec.Respond("h1", "", "fallback")

	res, err := rec.Run(context.Background(), "h1", "lssrc -s nimesis")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ExitCode != 1 || res.Stderr != "not running" {
		t.Errorf("scripted failure not returned: %+v", res)
	}

	res, err = rec.Run(context.Background(), "h1", "uptime")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Stdout != "fallback" {
		t.Errorf("catch-all script not used: %+v", res)
	}

	// A script pinned to another host never matches.
	res, err = rec.Run(context.Background(), "h2", "lssrc -s nimesis")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Ok() {
		t.Errorf("unmatched command should succeed: %+v", res)
	}

	if rec.CallCount() != 3 {
		t.Errorf("CallCount = %d", rec.CallCount())
	}
	if cmds := rec.CommandsOn("h1"); len(cmds) != 2 || cmds[1] != "uptime" {
		t.Errorf("CommandsOn(h1) = %v", cmds)
	}
}

func TestRecorderMaxUses(t *testing.T) {
	rec := NewRecorder()
	rec.Script(Script{Host: "h1", Result: Result{ExitCode: 1}, MaxUses: 1})
	rec.Respond("h1", "", "recovered")

	first, _ := rec.Run(context.Background(), "h1", "uptime")
	second, _ := rec.Run(context.Background(), "h1", "uptime")
	if first.Ok() {
		t.Error("first call should hit the limited failure script")
	}
	if !second.Ok() || second.Stdout != "recovered" {
		t.Errorf("second call = %+v, want the recovery script", second)
	}
}

func TestRecorderRejectsEmptyHost(t *testing.T) {
	rec := NewRecorder()
	if _, err := rec.Run(context.Background(), "", "uptime"); err != ErrNoHost {
		t.Errorf("err = %v, want ErrNoHost", err)
	}
}

func TestResultSnippet(t *testing.T) {
	r := Result{Stdout: "out\n", Stderr: "err\n"}
	if r.Snippet() != "err" {
		t.Errorf("Snippet = %q, want stderr to win", r.Snippet())
	}
	r.Stderr = ""
	if r.Snippet() != "out" {
		t.Errorf("Snippet = %q", r.Snippet())
	}
}

func TestMuxRoutesControllerStepsLocally(t *testing.T) {
	local := NewRecorder()
	fleet := NewRecorder()
	mux := Mux{Local: local, Remote: fleet}

	if _, err := mux.Run(context.Background(), LocalHost, "scp a b"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := mux.Run(context.Background(), "nim-b", "lsnim"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if local.CallCount() != 1 || fleet.CallCount() != 1 {
		t.Errorf("routing wrong: local=%d fleet=%d", local.CallCount(), fleet.CallCount())
	}
	if local.Calls()[0].Command != "scp a b" {
		t.Errorf("local call = %+v", local.Calls()[0])
	}
}

func TestLocalExecutor(t *testing.T) {
	var exec LocalExecutor

	res, err := exec.Run(context.Background(), LocalHost, "printf hello; printf warn >&2")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Stdout != "hello" || res.Stderr != "warn" {
		t.Errorf("result = %+v", res)
	}

	res, err = exec.Run(context.Background(), LocalHost, "exit 3")
	if err != nil {
		t.Fatalf("non-zero exit should be a Result, got error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}

	if _, err := exec.Run(context.Background(), "", "true"); err != ErrNoHost {
		t.Errorf("err = %v, want ErrNoHost", err)
	}
}
