package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const redacted = "[REDACTED]"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration file with defaults and SENTINEL_* environment
overrides applied, and report every validation error.

Examples:
  sentinel config validate --config /etc/sentinel/sentinel.yaml`,
	RunE: validateConfig,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults and environment overrides, as
YAML. The audit salt and token secret are redacted.`,
	RunE: showConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd, configShowCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration valid: %s\n", cfgFile)
	return nil
}

func showConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	shown := *cfg
	if shown.Audit.Salt != "" {
		shown.Audit.Salt = redacted
	}
	if shown.Telemetry.Health.TokenSecret != "" {
		shown.Telemetry.Health.TokenSecret = redacted
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(&shown); err != nil {
		return err
	}
	return enc.Close()
}
