package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/kahiteam/runner/internal/config"
	"github.com/kahiteam/runner/internal/daemon"
	"github.com/kahiteam/runner/internal/logging"
	"github.com/kahiteam/runner/internal/metrics"
	"github.com/kahiteam/runner/internal/signalctl"
)

var configPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load a config file and execute the daemonization ritual",
	RunE:  runRitual,
}

func init() {
	runCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")
	_ = runCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(runCmd)
}

func runRitual(cmd *cobra.Command, args []string) error {
	file, warnings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.New(logging.LogConfig{
		Level:  file.Observability.LogLevel,
		Format: file.Observability.LogFormat,
	})
	for _, w := range warnings {
		logger.Warn("config", "msg", w)
	}

	r := &sampleRunner{log: logger}
	proc := daemon.New(r)
	r.proc = proc

	if err := config.ApplyTo(proc, file); err != nil {
		return fmt.Errorf("apply config: %w", err)
	}

	if file.Observability.MetricsListen != "" {
		reg := prometheus.NewRegistry()
		r.metrics = metrics.New(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		logger.Info("metrics listening", "addr", file.Observability.MetricsListen)
		go func() {
			if err := http.ListenAndServe(file.Observability.MetricsListen, mux); err != nil {
				logger.Error("metrics server exited", "err", err)
			}
		}()
	}

	logger.Info("executing daemonization ritual", "daemon", file.Daemon, "pid_file", file.PIDFile)
	return proc.Execute()
}

// sampleRunner implements daemon.Runner with a main loop that exits
// on SIGTERM/SIGINT, demonstrating signalctl alongside the ritual.
type sampleRunner struct {
	proc    *daemon.Process
	metrics *metrics.Collector
	log     *slog.Logger
}

func (r *sampleRunner) Before(p *daemon.Process) error  { return nil }
func (r *sampleRunner) Between(p *daemon.Process) error { return nil }
func (r *sampleRunner) After(p *daemon.Process) error   { return nil }

func (r *sampleRunner) Run(p *daemon.Process) error {
	done := make(chan struct{})
	stop := func(sig int) { close(done) }

	sc := signalctl.Instance()
	if err := sc.Install(&signalctl.Handler{Sig: int(syscall.SIGTERM), Policy: signalctl.PolicyTerminate, Fn: stop}); err != nil {
		return err
	}
	if err := sc.Install(&signalctl.Handler{Sig: int(syscall.SIGINT), Policy: signalctl.PolicyTerminate, Fn: stop}); err != nil {
		return err
	}

	<-done
	r.log.Info("signal received, shutting down")

	if r.metrics != nil {
		calls, errs, _ := sc.Stat(int(syscall.SIGTERM))
		r.metrics.SetSignalStat("SIGTERM", calls, errs)
	}
	return nil
}
