package daemon

import (
	"os"
	"os/user"
	"strconv"
	"syscall"

	"github.com/kahiteam/runner/internal/credentials"
	"github.com/syndtr/gocapability/capability"
)

// setCapabilities is best-effort: it clears the bounding and
// inheritable sets and arms CAP_SETUID/CAP_SETGID on the effective
// and permitted sets, so the identity switch below can run without
// full root. Any failure is logged and swallowed — capabilities are
// cleared and the switch falls through to the traditional root path.
// This step must never abort the ritual.
func (p *Process) setCapabilities() {
	caps, err := capability.NewPid2(0)
	if err != nil {
		p.log.Warn("setCapabilities: NewPid2: %v", err)
		return
	}
	if err := caps.Load(); err != nil {
		p.log.Warn("setCapabilities: Load: %v", err)
		return
	}

	caps.Clear(capability.BOUNDING)
	caps.Clear(capability.INHERITABLE)
	caps.Set(capability.EFFECTIVE|capability.PERMITTED, capability.CAP_SETUID, capability.CAP_SETGID)

	if err := caps.Apply(capability.CAPS); err != nil {
		p.log.Warn("setCapabilities: Apply: %v", err)
		caps.Clear(capability.CAPS)
		_ = caps.Apply(capability.CAPS)
		return
	}
	p.caps = caps
}

func (p *Process) hasSetuidCapability() bool {
	if p.caps == nil {
		return false
	}
	return p.caps.Get(capability.EFFECTIVE, capability.CAP_SETUID)
}

// setCredentials performs the identity switch requested via
// PropUser/PropGroup. A no-op if neither was requested or the target
// is already the effective identity.
func (p *Process) setCredentials() error {
	if !p.hasUser && !p.hasGroup {
		return nil
	}

	targetUID, targetGID := p.targetUID, p.targetGID
	if os.Geteuid() == targetUID {
		p.log.Trace("setCredentials: already uid %d, skipping", targetUID)
		return nil
	}

	privileged := os.Geteuid() == 0
	if !privileged && !p.hasSetuidCapability() {
		p.log.Warn("setCredentials: unprivileged and lacking CAP_SETUID, skipping identity switch")
		return nil
	}

	if p.hasSetuidCapability() {
		if err := p.setCredentialsCapabilityPreserving(targetUID, targetGID); err != nil {
			if p.caps != nil {
				p.caps.Clear(capability.CAPS)
				_ = p.caps.Apply(capability.CAPS)
			}
			return err
		}
	} else {
		if err := p.setCredentialsTraditional(targetUID, targetGID); err != nil {
			return err
		}
	}

	home, _ := credentials.HomeDir(targetUID)
	uname, _ := credentials.UIDToName(targetUID)
	_ = p.env.Set("USER", uname)
	_ = p.env.Set("LOGNAME", uname)
	if home != "" {
		_ = p.env.Set("HOME", home)
	}
	return nil
}

// setCredentialsCapabilityPreserving re-arms SETUID/SETGID, drops
// supplementary groups, then switches identity while holding the
// relevant capabilities rather than relying on root.
func (p *Process) setCredentialsCapabilityPreserving(uid, gid int) error {
	p.caps.Set(capability.EFFECTIVE|capability.PERMITTED, capability.CAP_SETUID, capability.CAP_SETGID)
	if err := p.caps.Apply(capability.CAPS); err != nil {
		return &SyscallError{Op: "capability.Apply", Err: err}
	}

	if err := syscall.Setgroups(nil); err != nil {
		return &SyscallError{Op: "setgroups", Err: err}
	}
	if err := syscall.Setregid(-1, gid); err != nil {
		return &SyscallError{Op: "setregid", Err: err}
	}
	if err := syscall.Setreuid(-1, uid); err != nil {
		return &SyscallError{Op: "setreuid", Err: err}
	}
	return nil
}

// setCredentialsTraditional follows the classic root sequence:
// setgid, initgroups, setegid, setuid, seteuid. Go's standard library
// has no initgroups(3) wrapper, so supplementary groups are looked up
// via os/user and applied with syscall.Setgroups.
func (p *Process) setCredentialsTraditional(uid, gid int) error {
	if syscall.Getgid() == 0 {
		if err := syscall.Setgid(gid); err != nil {
			return &SyscallError{Op: "setgid", Err: err}
		}
		if err := initgroups(p.userName, gid); err != nil {
			return &SyscallError{Op: "initgroups", Err: err}
		}
		if err := syscall.Setegid(gid); err != nil {
			return &SyscallError{Op: "setegid", Err: err}
		}
	}

	if syscall.Getuid() == 0 {
		if err := syscall.Setuid(uid); err != nil {
			return &SyscallError{Op: "setuid", Err: err}
		}
		if err := syscall.Seteuid(uid); err != nil {
			return &SyscallError{Op: "seteuid", Err: err}
		}
	}
	return nil
}

// initgroups sets the supplementary group list for username to its
// password-database groups plus gid, mirroring initgroups(3).
func initgroups(username string, gid int) error {
	u, err := user.Lookup(username)
	if err != nil {
		return err
	}
	gids, err := u.GroupIds()
	if err != nil {
		return err
	}

	groups := make([]int, 0, len(gids)+1)
	seen := map[int]bool{gid: true}
	groups = append(groups, gid)
	for _, g := range gids {
		n, err := strconv.Atoi(g)
		if err != nil {
			continue
		}
		if !seen[n] {
			seen[n] = true
			groups = append(groups, n)
		}
	}
	return syscall.Setgroups(groups)
}
