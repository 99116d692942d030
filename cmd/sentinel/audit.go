package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taxwise-hq/sentinel/pkg/audit"
	"taxwise-hq/sentinel/pkg/audit/export"
	"taxwise-hq/sentinel/pkg/audit/retention"
	"taxwise-hq/sentinel/pkg/cli"
	"taxwise-hq/sentinel/pkg/telemetry"
)

var auditFlags struct {
	timeRange     string
	event         string
	severity      string
	user          string
	correlationID string
	limit         int
	offset        int
	order         string
	format        string
	pretty        bool
	output        string

	days       int
	maxEntries int64
	archive    string
	dryRun     bool
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Work with the persisted audit trail",
	Long: `Export and prune the security audit trail persisted by the configured
storage backend (audit.storage.backend must be "memory" or "sqlite"; the
memory backend only lives as long as the process, so these commands are
useful with "sqlite").

Subcommands:
  export  - Write audit entries as JSON or CSV
  prune   - Apply the retention policy now`,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit entries",
	Long: `Export audit entries matching the given filters.

Time Range Format:
  RFC3339 interval format: "start/end"
  Example: "2025-11-19T00:00:00Z/2025-11-20T00:00:00Z"

Examples:
  # All login failures as CSV
  sentinel audit export --event LOGIN_FAILURE --format csv --output failures.csv

  # One user's entries in a time range
  sentinel audit export --user u-123 --time-range "2025-11-19T00:00:00Z/2025-11-20T00:00:00Z"`,
	RunE: exportAudit,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply audit retention now",
	Long: `Delete audit entries older than the retention period, then the oldest
entries above the configured maximum. Flags override the configuration.

Examples:
  # Use audit.retention from the config file
  sentinel audit prune

  # Keep 30 days, archiving pruned entries first
  sentinel audit prune --days 30 --archive /var/lib/sentinel/archive

  # Show what would be deleted
  sentinel audit prune --dry-run`,
	RunE: pruneAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditExportCmd, auditPruneCmd)

	auditExportCmd.Flags().StringVar(&auditFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
	auditExportCmd.Flags().StringVar(&auditFlags.event, "event", "", "filter by event (LOGIN_SUCCESS, LOGIN_FAILURE, REGISTRATION, TOKEN_REFRESH)")
	auditExportCmd.Flags().StringVar(&auditFlags.severity, "severity", "", "filter by severity (INFO, WARNING)")
	auditExportCmd.Flags().StringVar(&auditFlags.user, "user", "", "filter by user ID")
	auditExportCmd.Flags().StringVar(&auditFlags.correlationID, "correlation-id", "", "filter by correlation ID")
	auditExportCmd.Flags().IntVar(&auditFlags.limit, "limit", 0, "max results (0 = all)")
	auditExportCmd.Flags().IntVar(&auditFlags.offset, "offset", 0, "pagination offset")
	auditExportCmd.Flags().StringVar(&auditFlags.order, "order", "asc", "sort by timestamp: asc, desc")
	auditExportCmd.Flags().StringVar(&auditFlags.format, "format", "json", "output format: json, csv")
	auditExportCmd.Flags().BoolVar(&auditFlags.pretty, "pretty", false, "indent JSON output")
	auditExportCmd.Flags().StringVarP(&auditFlags.output, "output", "o", "", "output file (default: stdout)")

	auditPruneCmd.Flags().IntVar(&auditFlags.days, "days", -1, "retention in days (0 = forever; default from config)")
	auditPruneCmd.Flags().Int64Var(&auditFlags.maxEntries, "max-entries", -1, "maximum entries to keep (0 = unlimited; default from config)")
	auditPruneCmd.Flags().StringVar(&auditFlags.archive, "archive", "", "directory to archive pruned entries to (default from config)")
	auditPruneCmd.Flags().BoolVar(&auditFlags.dryRun, "dry-run", false, "count entries older than the retention period without deleting")
}

// openAuditStore opens the configured backend, failing when none is set.
func openAuditStore() (audit.Storage, *retention.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := telemetry.OpenAuditStorage(&cfg.Audit.Storage)
	if err != nil {
		return nil, nil, cli.NewCommandError("audit", err)
	}
	if store == nil {
		return nil, nil, cli.NewConfigError("audit.storage.backend", `audit storage is disabled ("none")`)
	}
	return store, telemetry.RetentionConfig(&cfg.Audit.Retention), nil
}

func exportAudit(cmd *cobra.Command, args []string) error {
	exporter, ok := export.ForFormat(auditFlags.format, auditFlags.pretty)
	if !ok {
		return fmt.Errorf("unsupported export format %q (supported: json, csv)", auditFlags.format)
	}

	query, err := buildAuditQuery()
	if err != nil {
		return err
	}

	store, _, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Query(cmd.Context(), query)
	if err != nil {
		return cli.NewCommandError("audit export", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if auditFlags.output != "" {
		f, err := os.Create(auditFlags.output)
		if err != nil {
			return cli.NewCommandError("audit export", err)
		}
		defer f.Close()
		w = f
	}

	if err := exporter.Export(cmd.Context(), entries, w); err != nil {
		return cli.NewCommandError("audit export", err)
	}
	if auditFlags.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d entries to %s\n", len(entries), auditFlags.output)
	}
	return nil
}

func buildAuditQuery() (*audit.Query, error) {
	query := &audit.Query{
		Kind:          audit.EventKind(auditFlags.event),
		Severity:      audit.Severity(strings.ToUpper(auditFlags.severity)),
		UserID:        auditFlags.user,
		CorrelationID: auditFlags.correlationID,
		Limit:         auditFlags.limit,
		Offset:        auditFlags.offset,
		SortOrder:     auditFlags.order,
	}
	if query.Kind != "" && !query.Kind.Valid() {
		return nil, fmt.Errorf("%w: %s", audit.ErrUnknownEvent, query.Kind)
	}

	if auditFlags.timeRange != "" {
		start, end, ok := strings.Cut(auditFlags.timeRange, "/")
		if !ok {
			return nil, fmt.Errorf("invalid time range format (expected: start/end)")
		}
		startTime, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return nil, fmt.Errorf("invalid start time: %w", err)
		}
		endTime, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return nil, fmt.Errorf("invalid end time: %w", err)
		}
		query.StartTime = &startTime
		query.EndTime = &endTime
	}
	return query, nil
}

// pruneResult is printed by audit prune.
type pruneResult struct {
	Deleted       int64  `json:"deleted"`
	Remaining     int64  `json:"remaining"`
	RetentionDays int    `json:"retention_days"`
	MaxEntries    int64  `json:"max_entries"`
	DryRun        bool   `json:"dry_run"`
	ArchivePath   string `json:"archive_path,omitempty"`
}

func (r pruneResult) String() string {
	verb := "Deleted"
	if r.DryRun {
		verb = "Would delete"
	}
	return fmt.Sprintf("%s %d entries (%d remaining)", verb, r.Deleted, r.Remaining)
}

func pruneAudit(cmd *cobra.Command, args []string) error {
	store, rc, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if auditFlags.days >= 0 {
		rc.RetentionDays = auditFlags.days
	}
	if auditFlags.maxEntries >= 0 {
		rc.MaxEntries = auditFlags.maxEntries
	}
	if auditFlags.archive != "" {
		rc.ArchivePath = auditFlags.archive
	}

	ctx := cmd.Context()
	result := pruneResult{
		RetentionDays: rc.RetentionDays,
		MaxEntries:    rc.MaxEntries,
		DryRun:        auditFlags.dryRun,
		ArchivePath:   rc.ArchivePath,
	}

	if auditFlags.dryRun {
		if rc.RetentionDays > 0 {
			cutoff := time.Now().AddDate(0, 0, -rc.RetentionDays)
			if result.Deleted, err = store.Count(ctx, &audit.Query{EndTime: &cutoff}); err != nil {
				return cli.NewCommandError("audit prune", err)
			}
		}
	} else {
		if result.Deleted, err = retention.NewPruner(store, rc).Prune(ctx); err != nil {
			return cli.NewCommandError("audit prune", err)
		}
	}

	if result.Remaining, err = store.Count(ctx, &audit.Query{}); err != nil {
		return cli.NewCommandError("audit prune", err)
	}
	if result.DryRun {
		result.Remaining -= result.Deleted
	}

	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}
