// Package main is the entry point for the vitalboard CLI.
//
// vitalboard can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	vitalboard serve -c config.yaml    # Start the dashboard
//	vitalboard validate -c config.yaml # Validate configuration
//	vitalboard version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "vitalboard",
	Short: "A build times and Core Web Vitals dashboard",
	Long: `vitalboard is a dashboard for site build times and Core Web Vitals.

It fetches build and real-user metric records month by month from HTTP
APIs or Postgres, derives means, ratings, distributions and histograms,
and serves them to a web UI with live updates.

Quick start:
  1. Create a config file (vitalboard.yaml)
  2. Run: vitalboard serve -c vitalboard.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  poll_interval: 15m
  feeds:
    - name: builds
      kind: builds
      url: https://api.example.com/builds
      periods_url: https://api.example.com/builds/months
      decoder: builds`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this vitalboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "vitalboard %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
