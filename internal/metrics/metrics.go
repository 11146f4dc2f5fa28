// Package metrics exposes the daemonizer's signal and lifecycle
// counters as Prometheus metrics. It is additive: the core ritual
// runs unaffected if no caller ever registers a Collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the daemon's Prometheus metrics, registered on a
// caller-supplied registry rather than the global default — the core
// never starts its own HTTP server.
type Collector struct {
	SignalCalls   *prometheus.GaugeVec
	SignalErrors  *prometheus.GaugeVec
	State         prometheus.Gauge
	FinalInstance prometheus.Gauge
}

// New creates and registers the daemon's metrics on reg.
func New(reg *prometheus.Registry) *Collector {
	c := &Collector{
		SignalCalls: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "daemon_signal_calls_total",
				Help: "Number of times each installed signal handler has run.",
			},
			[]string{"signal"},
		),
		SignalErrors: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "daemon_signal_errors_total",
				Help: "Number of times a signal arrived with no handler installed.",
			},
			[]string{"signal"},
		),
		State: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "daemon_state",
				Help: "Current ritual state code of the daemon.Process.",
			},
		),
		FinalInstance: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "daemon_final_instance",
				Help: "1 once the running process is the final, post-fork instance.",
			},
		),
	}

	reg.MustRegister(c.SignalCalls, c.SignalErrors, c.State, c.FinalInstance)
	return c
}

// SetSignalStat records the call/error counters read from
// signalctl.Instance().Stat, labelled with the signal's name (for
// example "SIGTERM").
func (c *Collector) SetSignalStat(signal string, calls, errs uint64) {
	c.SignalCalls.WithLabelValues(signal).Set(float64(calls))
	c.SignalErrors.WithLabelValues(signal).Set(float64(errs))
}

// SetState records the daemon.Process's current ritual state.
func (c *Collector) SetState(code int) {
	c.State.Set(float64(code))
}

// SetFinalInstance records whether the process has become the final
// post-fork instance.
func (c *Collector) SetFinalInstance(final bool) {
	if final {
		c.FinalInstance.Set(1)
		return
	}
	c.FinalInstance.Set(0)
}
