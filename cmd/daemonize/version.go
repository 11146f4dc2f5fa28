package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kahiteam/runner/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("daemonize %s (commit %s, built %s, %s)\n",
			version.Version, version.Commit, version.Date, version.GoVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
