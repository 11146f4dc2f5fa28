package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

type recordingRunner struct {
	calls []string
	proc  *Process
}

func (r *recordingRunner) Before(p *Process) error {
	r.calls = append(r.calls, "Before")
	if p.IsFinalInstance() {
		return errFail("Before observed final instance early")
	}
	return nil
}

func (r *recordingRunner) Between(p *Process) error {
	r.calls = append(r.calls, "Between")
	return nil
}

func (r *recordingRunner) After(p *Process) error {
	r.calls = append(r.calls, "After")
	if r.proc.hasPIDFile {
		if _, err := os.Stat(r.proc.pidFile); err != nil {
			return errFail("After: pid file should already exist: " + err.Error())
		}
	}
	return nil
}

func (r *recordingRunner) Run(p *Process) error {
	r.calls = append(r.calls, "Run")
	if !p.IsFinalInstance() {
		return errFail("Run observed IsFinalInstance() == false")
	}
	return nil
}

type stringError string

func errFail(s string) error { return stringError(s) }

func (e stringError) Error() string { return string(e) }

func TestRitualOrderingNonDaemonMode(t *testing.T) {
	r := &recordingRunner{}
	p := New(r)
	r.proc = p

	if err := p.Execute(); err != nil {
		t.Fatal(err)
	}

	want := "Before,Between,After,Run"
	got := strings.Join(r.calls, ",")
	if got != want {
		t.Fatalf("call order = %q, want %q", got, want)
	}
	if !p.IsFinalInstance() {
		t.Fatal("expected IsFinalInstance() == true after Execute in non-daemon mode")
	}
}

func TestExecuteTwiceFails(t *testing.T) {
	r := &recordingRunner{}
	p := New(r)
	r.proc = p

	if err := p.Execute(); err != nil {
		t.Fatal(err)
	}
	if err := p.Execute(); err != ErrAlreadyExecuted {
		t.Fatalf("second Execute() = %v, want ErrAlreadyExecuted", err)
	}
}

func TestPIDFileLifecycle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "x.pid")

	r := &recordingRunner{}
	p := New(r)
	r.proc = p
	if err := p.Set(PropPIDFile, path); err != nil {
		t.Fatal(err)
	}

	if err := p.Execute(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed after Execute, stat err = %v", err)
	}
}

func TestPreflightBusyError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.pid")
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		t.Fatal(err)
	}

	r := &recordingRunner{}
	p := New(r)
	r.proc = p
	if err := p.Set(PropPIDFile, path); err != nil {
		t.Fatal(err)
	}

	err := p.Execute()
	if err == nil {
		t.Fatal("expected error from preflight collision")
	}
}

func TestPreflightStalePIDFileProceeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.pid")
	// A PID that is very unlikely to exist.
	if err := os.WriteFile(path, []byte("999999"), 0644); err != nil {
		t.Fatal(err)
	}

	r := &recordingRunner{}
	p := New(r)
	r.proc = p
	if err := p.Set(PropPIDFile, path); err != nil {
		t.Fatal(err)
	}

	if err := p.Execute(); err != nil {
		t.Fatalf("expected stale pid file to not block execution: %v", err)
	}
}

func TestProcSelfSkip(t *testing.T) {
	if err := checkProcCollision(filepath.Base(os.Args[0])); err != nil {
		t.Fatalf("self-scan should never flag the caller's own pid: %v", err)
	}
}

func TestSetUnknownUserFails(t *testing.T) {
	p := New(&recordingRunner{})
	if err := p.Set(PropUser, "no-such-user-should-exist-xyz"); err == nil {
		t.Fatal("expected error for unknown user")
	}
}

func TestStateStringUnknown(t *testing.T) {
	if got := State(999).String(); got == "" {
		t.Fatal("expected non-empty string for out-of-range state")
	}
}

func TestStatusUnsupportedProperty(t *testing.T) {
	p := New(&recordingRunner{})
	if _, err := p.Status(PropPIDFile); err == nil {
		t.Fatal("expected error: pid_file does not support Status")
	}
}
