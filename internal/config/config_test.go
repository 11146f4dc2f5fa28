package config

import (
	"testing"

	"github.com/kahiteam/runner/internal/daemon"
)

const sampleTOML = `
description = "sample"
daemon = false
user = ""
group = ""
working_directory = "/"
pid_file = ""
syslog = "DMN"
cgroup = false
trace = true

[observability]
metrics_listen = "127.0.0.1:9100"
log_level = "debug"
log_format = "text"
`

func TestLoadBytes(t *testing.T) {
	f, warnings, err := LoadBytes([]byte(sampleTOML), "sample.toml")
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if f.Description != "sample" {
		t.Fatalf("description = %q, want %q", f.Description, "sample")
	}
	if !f.Trace {
		t.Fatal("expected trace = true")
	}
	if f.Observability.LogLevel != "debug" {
		t.Fatalf("log_level = %q, want %q", f.Observability.LogLevel, "debug")
	}
}

func TestLoadAppliesObservabilityDefaults(t *testing.T) {
	f, _, err := LoadBytes([]byte(`description = "x"`), "sample.toml")
	if err != nil {
		t.Fatal(err)
	}
	if f.Observability.LogLevel != "info" {
		t.Fatalf("log_level default = %q, want %q", f.Observability.LogLevel, "info")
	}
	if f.Observability.LogFormat != "json" {
		t.Fatalf("log_format default = %q, want %q", f.Observability.LogFormat, "json")
	}
}

func TestLoadUnknownKeyWarns(t *testing.T) {
	_, warnings, err := LoadBytes([]byte(`nonexistent_key = "x"`), "sample.toml")
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
}

func TestApplyToMatchesDirectSetCalls(t *testing.T) {
	f := &File{
		Description:      "svc",
		WorkingDirectory: "/tmp",
		Syslog:           "SVC",
		Trace:            true,
	}

	p1 := daemon.New(noopRunner{})
	if err := ApplyTo(p1, f); err != nil {
		t.Fatal(err)
	}

	p2 := daemon.New(noopRunner{})
	if err := p2.Set(daemon.PropSyslog, "SVC"); err != nil {
		t.Fatal(err)
	}
	if err := p2.Enable(daemon.PropSyslog); err != nil {
		t.Fatal(err)
	}
	if err := p2.Enable(daemon.PropTrace); err != nil {
		t.Fatal(err)
	}
	if err := p2.Set(daemon.PropDescription, "svc"); err != nil {
		t.Fatal(err)
	}
	if err := p2.Set(daemon.PropWorkingDirectory, "/tmp"); err != nil {
		t.Fatal(err)
	}

	d1, _ := p1.Get(daemon.PropDescription)
	d2, _ := p2.Get(daemon.PropDescription)
	if d1 != d2 {
		t.Fatalf("description = %q, want %q", d1, d2)
	}
	w1, _ := p1.Get(daemon.PropWorkingDirectory)
	w2, _ := p2.Get(daemon.PropWorkingDirectory)
	if w1 != w2 {
		t.Fatalf("working_directory = %q, want %q", w1, w2)
	}
}

type noopRunner struct{}

func (noopRunner) Before(*daemon.Process) error  { return nil }
func (noopRunner) Between(*daemon.Process) error { return nil }
func (noopRunner) After(*daemon.Process) error   { return nil }
func (noopRunner) Run(*daemon.Process) error     { return nil }
