package logging

import (
	"fmt"
	"log/syslog"
)

// DaemonLog is a trace-gated syslog handle used by the daemon ritual:
// milestone/warning/fatal lines are emitted whenever syslog is open,
// but debug-level trace lines only when the caller has also enabled
// the trace property.
//
// Go's log/syslog has no equivalent of the C library's LOG_CONS,
// LOG_NDELAY, or LOG_PERROR openlog(3) flags — those control local
// fallback and console mirroring the stdlib package does not
// implement. Only the facility (LOG_DAEMON) and per-call severity
// carry over.
//
// The zero value is a disabled log: every method is a silent no-op,
// matching the "syslog off" configuration.
type DaemonLog struct {
	writer *syslog.Writer
	trace  bool
}

// OpenDaemonLog connects to syslog under tag with facility
// LOG_DAEMON. trace controls whether Trace lines are forwarded.
func OpenDaemonLog(tag string, trace bool) (*DaemonLog, error) {
	w, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, tag)
	if err != nil {
		return nil, fmt.Errorf("logging: cannot connect to syslog: %w", err)
	}
	return &DaemonLog{writer: w, trace: trace}, nil
}

// Close closes the underlying syslog connection. Safe on a disabled log.
func (l *DaemonLog) Close() error {
	if l == nil || l.writer == nil {
		return nil
	}
	return l.writer.Close()
}

// Trace emits a debug-level line, forwarded only when both syslog and
// the trace property are enabled.
func (l *DaemonLog) Trace(format string, args ...any) {
	if l == nil || l.writer == nil || !l.trace {
		return
	}
	_ = l.writer.Debug(fmt.Sprintf(format, args...))
}

// Milestone emits an info-level line marking a ritual step boundary.
func (l *DaemonLog) Milestone(format string, args ...any) {
	if l == nil || l.writer == nil {
		return
	}
	_ = l.writer.Info(fmt.Sprintf(format, args...))
}

// Warn emits a warning-level line for a soft, non-fatal skip.
func (l *DaemonLog) Warn(format string, args ...any) {
	if l == nil || l.writer == nil {
		return
	}
	_ = l.writer.Warning(fmt.Sprintf(format, args...))
}

// Fatal emits an error-level line for a caught fatal condition, prior
// to it propagating to the caller.
func (l *DaemonLog) Fatal(format string, args ...any) {
	if l == nil || l.writer == nil {
		return
	}
	_ = l.writer.Err(fmt.Sprintf(format, args...))
}

// Collision emits an alert-level line for an instance collision
// detected during preflight.
func (l *DaemonLog) Collision(format string, args ...any) {
	if l == nil || l.writer == nil {
		return
	}
	_ = l.writer.Alert(fmt.Sprintf(format, args...))
}
