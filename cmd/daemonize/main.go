// Command daemonize is a sample program demonstrating internal/daemon
// end to end: it loads a TOML config, implements daemon.Runner with a
// trivial signal-driven main loop, and runs the full ritual.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "daemonize",
	Short:         "Run a program through the double-fork daemonization ritual",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
