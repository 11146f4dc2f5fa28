// Package daemon implements the double-fork daemonization ritual: a
// preflight-checked, capability-aware privilege drop coupled to a
// 16-step lifecycle with four caller-supplied hook points. See
// Process.Execute for the full sequence.
//
// The /proc-based collision probe in the preflight step matches the
// program's own base name as a substring of another process's
// cmdline; this can false-positive against an unrelated process whose
// command line happens to contain the same text. That tradeoff is
// kept as-is — operators who name daemons ambiguously should expect
// it.
package daemon

import (
	"sync"

	"github.com/kahiteam/runner/internal/credentials"
	"github.com/kahiteam/runner/internal/env"
	"github.com/kahiteam/runner/internal/logging"
	"github.com/syndtr/gocapability/capability"
)

// Process is the daemonizer's configuration and runtime state. A
// Process returned by New is ready to configure via Set/Enable and
// then run once via Execute.
type Process struct {
	mu sync.Mutex

	state State

	description string

	daemonEnabled bool

	hasUser   bool
	userName  string
	targetUID int

	hasGroup  bool
	groupName string
	targetGID int

	hasWorkingDirectory bool
	workingDirectory    string

	hasPIDFile bool
	pidFile    string

	syslogEnabled bool
	syslogLabel   string

	cgroupEnabled bool
	traceEnabled  bool

	executed      bool
	finalInstance bool

	runner Runner
	env    env.Snapshot
	log    *logging.DaemonLog
	caps   capability.Capabilities
}

// New returns a Process ready for configuration. r supplies the four
// lifecycle hooks invoked by Execute.
func New(r Runner) *Process {
	return &Process{
		state:       StateNew,
		runner:      r,
		env:         env.System(),
		syslogLabel: "DMN",
	}
}

// State returns the current ritual step, for logging and tests.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Process) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// IsFinalInstance reports whether this process is the grand-child
// that survived both forks (or the only process, in non-daemon mode).
func (p *Process) IsFinalInstance() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finalInstance
}

// Set assigns a string-valued property: description, user, group,
// working_directory, pid_file, or syslog's label.
func (p *Process) Set(prop Property, value string) error {
	switch prop {
	case PropDescription:
		p.description = value
	case PropUser:
		uid, err := credentials.NameToUID(value)
		if err != nil {
			return err
		}
		p.userName, p.targetUID, p.hasUser = value, uid, true
	case PropGroup:
		gid, err := credentials.NameToGID(value)
		if err != nil {
			return err
		}
		p.groupName, p.targetGID, p.hasGroup = value, gid, true
	case PropWorkingDirectory:
		p.workingDirectory, p.hasWorkingDirectory = value, true
	case PropPIDFile:
		p.pidFile, p.hasPIDFile = value, value != ""
	case PropSyslog:
		p.syslogLabel, p.syslogEnabled = value, true
	default:
		return &InvalidPropertyError{Prop: prop, Op: "Set"}
	}
	return nil
}

// Enable turns on a bool-valued property: daemon, syslog (with the
// label currently set), cgroup, or trace. Enabling syslog after
// Execute has run reopens a connection that Disable closed.
func (p *Process) Enable(prop Property) error {
	switch prop {
	case PropDaemon:
		p.daemonEnabled = true
	case PropSyslog:
		p.syslogEnabled = true
		p.mu.Lock()
		executed := p.executed
		p.mu.Unlock()
		if executed && p.log == nil {
			l, err := logging.OpenDaemonLog(p.syslogLabel, p.traceEnabled)
			if err != nil {
				return err
			}
			p.log = l
		}
	case PropCgroup:
		p.cgroupEnabled = true
	case PropTrace:
		p.traceEnabled = true
	default:
		return &InvalidPropertyError{Prop: prop, Op: "Enable"}
	}
	return nil
}

// Disable turns off a bool-valued property. Disabling syslog while it
// is open closes the connection.
func (p *Process) Disable(prop Property) error {
	switch prop {
	case PropDaemon:
		p.daemonEnabled = false
	case PropSyslog:
		p.syslogEnabled = false
		if p.log != nil {
			_ = p.log.Close()
			p.log = nil
		}
	case PropCgroup:
		p.cgroupEnabled = false
	case PropTrace:
		p.traceEnabled = false
	default:
		return &InvalidPropertyError{Prop: prop, Op: "Disable"}
	}
	return nil
}

// Toggle flips a bool-valued property and returns its new state.
func (p *Process) Toggle(prop Property) (bool, error) {
	cur, err := p.Status(prop)
	if err != nil {
		return false, err
	}
	if cur {
		return false, p.Disable(prop)
	}
	return true, p.Enable(prop)
}

// Status reports whether a bool-valued property is currently enabled.
func (p *Process) Status(prop Property) (bool, error) {
	switch prop {
	case PropDaemon:
		return p.daemonEnabled, nil
	case PropSyslog:
		return p.syslogEnabled, nil
	case PropCgroup:
		return p.cgroupEnabled, nil
	case PropTrace:
		return p.traceEnabled, nil
	default:
		return false, &InvalidPropertyError{Prop: prop, Op: "Status"}
	}
}

// Get reads back a string-valued property.
func (p *Process) Get(prop Property) (string, error) {
	switch prop {
	case PropDescription:
		return p.description, nil
	case PropUser:
		return p.userName, nil
	case PropGroup:
		return p.groupName, nil
	case PropWorkingDirectory:
		return p.workingDirectory, nil
	case PropPIDFile:
		return p.pidFile, nil
	case PropSyslog:
		return p.syslogLabel, nil
	default:
		return "", &InvalidPropertyError{Prop: prop, Op: "Get"}
	}
}

// InvalidPropertyError reports a Set/Enable/Disable/Status/Get call
// against a property that does not support that operation.
type InvalidPropertyError struct {
	Prop Property
	Op   string
}

func (e *InvalidPropertyError) Error() string {
	return "daemon: " + e.Op + ": property " + e.Prop.String() + " does not support this operation"
}
