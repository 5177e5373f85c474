package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/vitalboard/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a vitalboard configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. Postgres feeds are not connected. It's useful for CI/CD
pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  vitalboard validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	directFeeds := len(cfg.Feeds)
	postgresFeeds := 0
	for _, f := range cfg.Feeds {
		if f.Postgres != nil {
			postgresFeeds++
		}
	}
	gridFeeds := 0
	for _, g := range cfg.Grids {
		size := 1
		for _, vals := range g.Dimensions {
			size *= len(vals)
		}
		gridFeeds += size
	}

	dispatch := cfg.Dispatch
	if dispatch == "" {
		dispatch = "breadth-first"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:          %d\n", cfg.Port)
	fmt.Fprintf(out, "  Poll interval: %s\n", cfg.PollInterval.Duration())
	fmt.Fprintf(out, "  Dispatch:      %s\n", dispatch)
	fmt.Fprintf(out, "  Feeds:         %d direct (%d postgres) + %d from grids = %d total\n",
		directFeeds, postgresFeeds, gridFeeds, directFeeds+gridFeeds)

	return nil
}
