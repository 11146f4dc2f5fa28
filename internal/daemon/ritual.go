package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/kahiteam/runner/internal/credentials"
	"github.com/kahiteam/runner/internal/logging"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Execute runs the full daemonization ritual exactly once. In
// non-daemon mode it returns after Run() completes in the calling
// process. In daemon mode, the original calling process (after
// Before) and the first child (after Between) both return early with
// IsFinalInstance()==false; only the grand-child runs After/Run and
// becomes the final instance.
func (p *Process) Execute() error {
	p.mu.Lock()
	if p.executed {
		p.mu.Unlock()
		return ErrAlreadyExecuted
	}
	p.executed = true
	p.mu.Unlock()

	// Step 1: syslog open.
	if p.syslogEnabled {
		l, err := logging.OpenDaemonLog(p.syslogLabel, p.traceEnabled)
		if err != nil {
			return fmt.Errorf("syslog open: %w", err)
		}
		p.log = l
	}
	p.setState(Configured)
	p.log.Trace("daemon: configured, daemon=%v pid_file=%q", p.daemonEnabled, p.pidFile)

	// Step 2: preflight.
	if err := p.isServiceUp(); err != nil {
		p.log.Collision("daemon: preflight failed: %v", err)
		return fmt.Errorf("preflight: %w", err)
	}
	p.setState(PreflightOK)

	// Step 3: PID directory.
	if p.hasPIDFile {
		dir := filepath.Dir(p.pidFile)
		if err := credentials.CreateDirectory(dir, pidDirUID(p), pidDirGID(p)); err != nil {
			return fmt.Errorf("pid directory: %w", err)
		}
	}

	// Step 4: Before().
	if err := p.runner.Before(p); err != nil {
		return fmt.Errorf("Before: %w", err)
	}

	// Step 5: capabilities (best-effort, never aborts).
	p.setCapabilities()

	// Step 6: credential switch.
	if err := p.setCredentials(); err != nil {
		return fmt.Errorf("setCredentials: %w", err)
	}
	p.setState(IdentitySet)

	// Step 7: chdir.
	if p.hasWorkingDirectory {
		if err := os.Chdir(p.workingDirectory); err != nil {
			p.log.Warn("daemon: chdir(%q) failed: %v, falling back to /", p.workingDirectory, err)
			if err := os.Chdir("/"); err != nil {
				return &SyscallError{Op: "chdir", Err: err}
			}
		}
	}

	// Step 8: first fork.
	if p.daemonEnabled {
		isParent, err := fork()
		if err != nil {
			return fmt.Errorf("first fork: %w", err)
		}
		if isParent {
			p.setState(Fork1Parent)
			return nil
		}
		p.setState(Fork1Child)
	}

	// Step 9: detach terminal.
	if p.daemonEnabled {
		if err := p.detachTerminal(); err != nil {
			return fmt.Errorf("detach terminal: %w", err)
		}
		p.setState(Detached)
	}

	// Step 10: in-between.
	applyUmask(0077)
	if _, err := p.env.SetIfUnset("IFS", " \t\n"); err != nil {
		return &SyscallError{Op: "setenv IFS", Err: err}
	}
	if _, err := p.env.SetIfUnset("PATH", "/usr/local/sbin:/sbin:/bin:/usr/sbin:/usr/bin"); err != nil {
		return &SyscallError{Op: "setenv PATH", Err: err}
	}

	// Step 11: Between().
	if err := p.runner.Between(p); err != nil {
		return fmt.Errorf("Between: %w", err)
	}

	// Step 12: second fork.
	if p.daemonEnabled {
		isParent, err := fork()
		if err != nil {
			return fmt.Errorf("second fork: %w", err)
		}
		if isParent {
			p.setState(Fork2Parent)
			return nil
		}
		p.setState(Fork2Child)
	}

	// Step 13: write PID.
	if p.hasPIDFile {
		if err := p.writePIDFile(); err != nil {
			p.log.Fatal("daemon: write pid file: %v", err)
			return fmt.Errorf("write pid file: %w", err)
		}
	}

	// Step 14: After().
	p.mu.Lock()
	p.finalInstance = true
	p.mu.Unlock()
	if err := p.runner.After(p); err != nil {
		return fmt.Errorf("After: %w", err)
	}

	// Step 15: Run().
	p.setState(Running)
	runErr := p.runner.Run(p)

	// Step 16: remove PID (best-effort).
	if p.hasPIDFile {
		_ = os.Remove(p.pidFile)
	}
	p.setState(Done)

	if runErr != nil {
		return fmt.Errorf("Run: %w", runErr)
	}
	return nil
}

func pidDirUID(p *Process) int {
	if p.hasUser {
		return p.targetUID
	}
	return os.Getuid()
}

func pidDirGID(p *Process) int {
	if p.hasGroup {
		return p.targetGID
	}
	return os.Getgid()
}

// detachTerminal reopens fd 0 (read-only) and fds 1-2 (write-only)
// against /dev/null, closes every
// descriptor at or above 3 up to the process's file descriptor limit,
// and starts a new session.
func (p *Process) detachTerminal() error {
	if p.traceEnabled && p.syslogEnabled {
		p.log.Trace("daemon: fd 0 is a terminal: %v", term.IsTerminal(0))
	}

	devNullR, err := os.OpenFile(os.DevNull, os.O_RDONLY, 0)
	if err != nil {
		return &SyscallError{Op: "open /dev/null", Err: err}
	}
	defer devNullR.Close()
	devNullW, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		return &SyscallError{Op: "open /dev/null", Err: err}
	}
	defer devNullW.Close()

	if err := sysDup2(int(devNullR.Fd()), 0); err != nil {
		return &SyscallError{Op: "dup2 stdin", Err: err}
	}
	fd := int(devNullW.Fd())
	if err := sysDup2(fd, 1); err != nil {
		return &SyscallError{Op: "dup2 stdout", Err: err}
	}
	if err := sysDup2(fd, 2); err != nil {
		return &SyscallError{Op: "dup2 stderr", Err: err}
	}

	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err == nil {
		limit := int(rlim.Cur)
		if limit > 65536 {
			limit = 65536
		}
		for fd := 3; fd < limit; fd++ {
			syscall.Close(fd)
		}
	}

	if _, err := syscall.Setsid(); err != nil {
		return &SyscallError{Op: "setsid", Err: err}
	}
	return nil
}

// writePIDFile truncates and writes the current PID in decimal.
func (p *Process) writePIDFile() error {
	f, err := os.OpenFile(p.pidFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return &SyscallError{Op: "open pid file", Err: err}
	}
	defer f.Close()

	if _, err := f.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		return &SyscallError{Op: "write pid file", Err: err}
	}
	return nil
}

// applyUmask sets the process umask, discarding the previous value —
// the ritual has no caller that needs it back.
func applyUmask(mask int) {
	syscall.Umask(mask)
}
