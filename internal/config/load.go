package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/kahiteam/runner/internal/daemon"
)

// Load reads and parses a TOML config file, applying observability
// defaults. Unknown keys are returned as warnings, not errors.
func Load(path string) (*File, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read config: %s: %w", path, err)
	}
	return LoadBytes(data, path)
}

// LoadBytes parses TOML from raw bytes. path is used only for error
// messages.
func LoadBytes(data []byte, path string) (*File, []string, error) {
	var f File
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, nil, fmt.Errorf("config parse error in %s: %w", path, err)
	}

	var warnings []string
	for _, key := range md.Undecoded() {
		warnings = append(warnings, fmt.Sprintf("unknown config key: %s", strings.Join(key, ".")))
	}

	ApplyDefaults(&f)
	return &f, warnings, nil
}

// ApplyTo drives proc's Set/Enable calls from the populated fields of
// f, in the order the ritual itself expects to see them: syslog and
// trace first (so every subsequent Set is trace-logged), then
// description, then the identity/path properties, then the daemon
// and cgroup flags last.
func ApplyTo(proc *daemon.Process, f *File) error {
	if f.Syslog != "" {
		if err := proc.Set(daemon.PropSyslog, f.Syslog); err != nil {
			return fmt.Errorf("syslog: %w", err)
		}
		if err := proc.Enable(daemon.PropSyslog); err != nil {
			return fmt.Errorf("syslog: %w", err)
		}
	}
	if f.Trace {
		if err := proc.Enable(daemon.PropTrace); err != nil {
			return fmt.Errorf("trace: %w", err)
		}
	}
	if f.Description != "" {
		if err := proc.Set(daemon.PropDescription, f.Description); err != nil {
			return fmt.Errorf("description: %w", err)
		}
	}
	if f.User != "" {
		if err := proc.Set(daemon.PropUser, f.User); err != nil {
			return fmt.Errorf("user: %w", err)
		}
	}
	if f.Group != "" {
		if err := proc.Set(daemon.PropGroup, f.Group); err != nil {
			return fmt.Errorf("group: %w", err)
		}
	}
	if f.WorkingDirectory != "" {
		if err := proc.Set(daemon.PropWorkingDirectory, f.WorkingDirectory); err != nil {
			return fmt.Errorf("working_directory: %w", err)
		}
	}
	if f.PIDFile != "" {
		if err := proc.Set(daemon.PropPIDFile, f.PIDFile); err != nil {
			return fmt.Errorf("pid_file: %w", err)
		}
	}
	if f.Daemon {
		if err := proc.Enable(daemon.PropDaemon); err != nil {
			return fmt.Errorf("daemon: %w", err)
		}
	}
	if f.Cgroup {
		if err := proc.Enable(daemon.PropCgroup); err != nil {
			return fmt.Errorf("cgroup: %w", err)
		}
	}
	return nil
}
