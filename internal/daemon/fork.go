package daemon

import (
	"syscall"

	"github.com/kahiteam/runner/internal/signalctl"
)

// fork runs the guarded fork protocol: block all signals, arm a
// no-op SIGCHLD handler so waitpid cannot see it as ignored-and-reaped,
// unblock SIGCHLD, then raw-fork. The parent harvests immediate exit
// status non-blockingly and returns true; the child returns false.
// Any failure unwinds the signal state before returning.
func fork() (isParent bool, err error) {
	sc := signalctl.Instance()

	if err := sc.Block(); err != nil {
		return false, &SyscallError{Op: "fork: block", Err: err}
	}

	sigchld := int(syscall.SIGCHLD)
	if err := sc.Install(&signalctl.Handler{Sig: sigchld, Fn: func(int) {}}); err != nil {
		_ = sc.Unblock()
		return false, &SyscallError{Op: "fork: install SIGCHLD", Err: err}
	}
	if err := sc.UnblockOne(sigchld); err != nil {
		sc.Uninstall(sigchld)
		_ = sc.Unblock()
		return false, &SyscallError{Op: "fork: unblock SIGCHLD", Err: err}
	}

	pid, errno := sysFork()
	if errno != 0 {
		sc.Uninstall(sigchld)
		_ = sc.Unblock()
		return false, &SyscallError{Op: "fork", Err: errno}
	}

	if pid > 0 {
		var ws syscall.WaitStatus
		_, _ = syscall.Wait4(int(pid), &ws, syscall.WUNTRACED|syscall.WNOHANG, nil)
		sc.Uninstall(sigchld)
		_ = sc.Unblock()
		return true, nil
	}

	sc.Uninstall(sigchld)
	_ = sc.Unblock()
	return false, nil
}
