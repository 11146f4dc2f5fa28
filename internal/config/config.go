// Package config loads the TOML file that drives a daemon.Process:
// one field per daemon.Property, plus an observability table the
// sample CLI uses to configure its own logger and metrics listener.
package config

// File is the top-level configuration file shape, decoded with
// github.com/BurntSushi/toml.
type File struct {
	Description      string              `toml:"description"`
	Daemon           bool                `toml:"daemon"`
	User             string              `toml:"user"`
	Group            string              `toml:"group"`
	WorkingDirectory string              `toml:"working_directory"`
	PIDFile          string              `toml:"pid_file"`
	Syslog           string              `toml:"syslog"`
	Cgroup           bool                `toml:"cgroup"`
	Trace            bool                `toml:"trace"`
	Observability    ObservabilityConfig `toml:"observability"`
}

// ObservabilityConfig configures the sample CLI's own logger and
// metrics listener; the core daemon package never reads it.
type ObservabilityConfig struct {
	MetricsListen string `toml:"metrics_listen"`
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
}
