package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taxwise-hq/sentinel/pkg/cli"
	"taxwise-hq/sentinel/pkg/config"
)

var (
	// Global flags
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Sentinel - authentication telemetry and audit runtime",
	Long: `Sentinel instruments the TaxWise authentication service.

It provides:
  - Per-operation latency statistics with outlier alerts
  - Error aggregation by signature with frequency alerts
  - A PII-redacted security audit trail with retention
  - Health, readiness and Prometheus endpoints`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "sentinel.yaml", "config file path (missing file means defaults)")
}

// loadConfig loads the configuration file with environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	return cfg, nil
}

func outputFormatter(format string) (cli.Formatter, error) {
	f, err := cli.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return cli.NewFormatter(f), nil
}
