package daemon

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// isServiceUp runs the two independent preflight checks: a live PID
// file, and a /proc cmdline collision against another running
// instance of this program.
func (p *Process) isServiceUp() error {
	if p.hasPIDFile {
		if err := checkPIDFile(p.pidFile); err != nil {
			return err
		}
	}
	return checkProcCollision(filepath.Base(os.Args[0]))
}

// checkPIDFile reads up to 64 bytes from path, parses a decimal PID,
// and probes it with signal 0. A live PID is a fatal BusyError; a
// missing file is not an error; any other read/parse failure is
// fatal.
func checkPIDFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &SyscallError{Op: "open pid file", Err: err}
	}
	defer f.Close()

	buf := make([]byte, 64)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return &SyscallError{Op: "read pid file", Err: err}
	}

	text := strings.TrimSpace(string(buf[:n]))
	pid, err := strconv.Atoi(text)
	if err != nil {
		return &SyscallError{Op: "parse pid file", Err: err}
	}

	if err := syscall.Kill(pid, 0); err == nil {
		return &BusyError{Reason: "pid file points at a live process", PID: pid}
	} else if err != syscall.ESRCH {
		return &SyscallError{Op: "kill(pid,0)", Err: err}
	}
	return nil
}

// checkProcCollision scans /proc/<pid>/cmdline for every process
// except self, looking for selfName as a substring of its first 512
// bytes. First match wins.
func checkProcCollision(selfName string) error {
	if selfName == "" {
		return nil
	}
	self := os.Getpid()

	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil
	}

	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid == self {
			continue
		}

		data, err := os.ReadFile(filepath.Join("/proc", e.Name(), "cmdline"))
		if err != nil {
			continue
		}
		if len(data) > 512 {
			data = data[:512]
		}
		data = bytes.ReplaceAll(data, []byte{0}, []byte{' '})
		if strings.Contains(string(data), selfName) {
			return &BusyError{Reason: "another instance is already running", PID: pid}
		}
	}
	return nil
}
