// Package signalctl provides a process-wide signal dispatch table: at
// most one handler per signal number, replace-disposes-of-prior
// semantics, and per-signal call/error counters.
//
// Go's runtime owns raw signal delivery, so there is no C-style
// sigaction trampoline to hook into. The controller instead keeps a
// single relay goroutine fed by os/signal.Notify that demultiplexes
// into the handler table — the idiomatic substitute for the original
// trampoline, serializing handler invocations the same way a
// single-threaded C dispatcher naturally would.
package signalctl

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Count mirrors NSIG on Linux: valid signal numbers are [0, Count).
const Count = 65

// Policy is advisory metadata describing a signal's default action,
// carried alongside a Handler but not enforced by the controller.
type Policy int

const (
	PolicyTerminate Policy = iota
	PolicyIgnore
	PolicyCoreDump
	PolicyStop
	PolicyContinue
)

// Func is the callback invoked by the relay goroutine when its signal
// is delivered. It should be short and non-blocking: the relay
// processes one signal at a time, so a slow handler delays the next.
type Func func(sig int)

// Handler is an installable signal handler.
type Handler struct {
	Sig    int
	Flags  int
	Policy Policy
	Fn     Func
}

type stat struct {
	callCount  uint64
	errorCount uint64
}

// Error reports a failing signal operation together with the
// underlying errno, mirroring the original's "operation + errno"
// fatal-error shape.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// InvalidSignalError reports an out-of-range signal number or a nil
// handler passed to Install.
type InvalidSignalError struct {
	Sig int
	Msg string
}

func (e *InvalidSignalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("invalid signal code %d: max is %d", e.Sig, Count-1)
}

// controller is the process-wide singleton.
type controller struct {
	mu       sync.Mutex
	handlers [Count]*Handler
	stats    [Count]stat
	ch       chan os.Signal
	running  bool
	stopCh   chan struct{}
}

var (
	instanceOnce sync.Once
	instanceVal  *controller
)

// Instance returns the process-wide signal controller.
func Instance() *controller {
	instanceOnce.Do(func() {
		instanceVal = &controller{}
	})
	return instanceVal
}

// resetForTest tears down the singleton's table and relay so tests do
// not observe state left behind by earlier test cases.
func resetForTest() {
	c := Instance()
	c.mu.Lock()
	for i := range c.handlers {
		c.handlers[i] = nil
		c.stats[i] = stat{}
	}
	running := c.running
	ch := c.ch
	stopCh := c.stopCh
	c.running = false
	c.mu.Unlock()

	if running {
		signal.Stop(ch)
		close(stopCh)
	}
}

// Install registers h for its signal, disposing of any prior handler
// for the same signal number first.
func (c *controller) Install(h *Handler) error {
	if h == nil {
		return &InvalidSignalError{Msg: "nil handler"}
	}
	if h.Sig < 0 || h.Sig >= Count {
		return &InvalidSignalError{Sig: h.Sig}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers[h.Sig] = h
	c.recomputeInterestLocked()
	return nil
}

// Uninstall removes the handler for sig, if any. Idempotent.
func (c *controller) Uninstall(sig int) {
	if sig < 0 || sig >= Count {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handlers[sig] == nil {
		return
	}
	c.handlers[sig] = nil
	c.recomputeInterestLocked()
}

// recomputeInterestLocked restarts the relay with the current set of
// installed signals. Callers must hold c.mu.
func (c *controller) recomputeInterestLocked() {
	var sigs []os.Signal
	for i, h := range c.handlers {
		if h != nil {
			sigs = append(sigs, syscall.Signal(i))
		}
	}

	if len(sigs) == 0 {
		if c.running {
			signal.Stop(c.ch)
			close(c.stopCh)
			c.running = false
		}
		return
	}

	if !c.running {
		c.ch = make(chan os.Signal, 16)
		c.stopCh = make(chan struct{})
		c.running = true
		go c.relay(c.ch, c.stopCh)
	} else {
		signal.Stop(c.ch)
	}
	signal.Notify(c.ch, sigs...)
}

func (c *controller) relay(ch chan os.Signal, stop chan struct{}) {
	for {
		select {
		case s := <-ch:
			c.dispatch(int(s.(syscall.Signal)))
		case <-stop:
			return
		}
	}
}

func (c *controller) dispatch(sig int) {
	if sig < 0 || sig >= Count {
		return
	}

	c.mu.Lock()
	h := c.handlers[sig]
	c.mu.Unlock()

	if h == nil {
		atomic.AddUint64(&c.stats[sig].errorCount, 1)
		return
	}
	atomic.AddUint64(&c.stats[sig].callCount, 1)
	h.Fn(sig)
}

// Stat returns the call and error counters for sig.
func (c *controller) Stat(sig int) (callCount, errorCount uint64, err error) {
	if sig < 0 || sig >= Count {
		return 0, 0, &InvalidSignalError{Sig: sig}
	}
	return atomic.LoadUint64(&c.stats[sig].callCount),
		atomic.LoadUint64(&c.stats[sig].errorCount),
		nil
}

// Block masks every signal on the calling thread.
func (c *controller) Block() error {
	return maskAll(unix.SIG_BLOCK)
}

// Unblock unmasks every signal on the calling thread.
func (c *controller) Unblock() error {
	return maskAll(unix.SIG_UNBLOCK)
}

func maskAll(how int) error {
	var set unix.Sigset_t
	for i := range set.Val {
		set.Val[i] = ^set.Val[i]
	}
	if err := unix.PthreadSigmask(how, &set, nil); err != nil {
		op := "sigprocmask(block)"
		if how == unix.SIG_UNBLOCK {
			op = "sigprocmask(unblock)"
		}
		return &Error{Op: op, Err: err}
	}
	return nil
}

// BlockOne masks a single signal on the calling thread.
func (c *controller) BlockOne(sig int) error {
	return maskOne(unix.SIG_BLOCK, sig)
}

// UnblockOne unmasks a single signal on the calling thread.
func (c *controller) UnblockOne(sig int) error {
	return maskOne(unix.SIG_UNBLOCK, sig)
}

func maskOne(how, sig int) error {
	if sig < 0 || sig >= Count {
		return &InvalidSignalError{Sig: sig}
	}
	if sig == 0 {
		return &Error{Op: fmt.Sprintf("sigaddset(%d)", sig), Err: unix.EINVAL}
	}
	var set unix.Sigset_t
	width := int(unsafe.Sizeof(set.Val[0])) * 8
	set.Val[(sig-1)/width] |= 1 << uint((sig-1)%width)
	if err := unix.PthreadSigmask(how, &set, nil); err != nil {
		return &Error{Op: fmt.Sprintf("sigprocmask(%d)", sig), Err: err}
	}
	return nil
}
