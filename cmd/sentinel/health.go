package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taxwise-hq/sentinel/pkg/cli"
	"taxwise-hq/sentinel/pkg/telemetry"
	"taxwise-hq/sentinel/pkg/telemetry/health"
)

var healthFlags struct {
	url     string
	timeout time.Duration
	format  string
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run the health probes",
	Long: `Run Sentinel's health probes once and print the report.

Without --url the probes run in this process against the configured
dependencies. With --url the readiness endpoint of a running server is
queried instead.

The command exits with status 3 when the overall status is not healthy.

Examples:
  # Probe locally
  sentinel health

  # Query a running server
  sentinel health --url http://127.0.0.1:9090 --format json`,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)

	healthCmd.Flags().StringVar(&healthFlags.url, "url", "", "base URL of a running sentinel server")
	healthCmd.Flags().DurationVar(&healthFlags.timeout, "timeout", 10*time.Second, "overall timeout")
	healthCmd.Flags().StringVar(&healthFlags.format, "format", "text", "output format: text, json")
}

// healthTable renders a report as one row per probe.
type healthTable health.Report

func (t healthTable) Header() []string { return []string{"CHECK", "STATUS", "ERROR"} }

func (t healthTable) Rows() [][]string {
	names := make([]string, 0, len(t.Checks))
	for name := range t.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names)+1)
	for _, name := range names {
		r := t.Checks[name]
		rows = append(rows, []string{name, string(r.Status), r.Error})
	}
	return append(rows, []string{"overall", string(t.Status), ""})
}

func runHealth(cmd *cobra.Command, args []string) error {
	out, err := outputFormatter(healthFlags.format)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), healthFlags.timeout)
	defer cancel()

	var report health.Report
	if healthFlags.url != "" {
		report, err = remoteHealth(ctx, healthFlags.url)
	} else {
		report, err = localHealth(ctx)
	}
	if err != nil {
		return err
	}

	if healthFlags.format == string(cli.FormatJSON) {
		err = out.FormatTo(cmd.OutOrStdout(), report)
	} else {
		err = out.FormatTo(cmd.OutOrStdout(), healthTable(report))
	}
	if err != nil {
		return err
	}

	if report.Status != health.StatusHealthy {
		return &cli.UnhealthyError{Status: string(report.Status)}
	}
	return nil
}

func localHealth(ctx context.Context) (health.Report, error) {
	cfg, err := loadConfig()
	if err != nil {
		return health.Report{}, err
	}

	tel, err := telemetry.New(cfg, buildInfo(),
		telemetry.WithoutGlobal(), telemetry.WithoutRuntimeMetrics(), telemetry.WithLogWriter(io.Discard))
	if err != nil {
		return health.Report{}, cli.NewCommandError("health", err)
	}
	defer tel.Shutdown(context.Background())

	return tel.Health().PerformHealthCheck(ctx), nil
}

func remoteHealth(ctx context.Context, baseURL string) (health.Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(baseURL, "/")+"/ready", nil)
	if err != nil {
		return health.Report{}, cli.NewCommandError("health", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return health.Report{}, cli.NewCommandError("health", err)
	}
	defer resp.Body.Close()

	var report health.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return health.Report{}, cli.NewCommandError("health", fmt.Errorf("decode readiness response (HTTP %d): %w", resp.StatusCode, err))
	}
	return report, nil
}
