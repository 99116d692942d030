package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"taxwise-hq/sentinel/pkg/audit"
	"taxwise-hq/sentinel/pkg/audit/export"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain entries.
	// 0 means keep entries forever.
	RetentionDays int

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string

	// ArchivePath is the directory pruned entries are exported to before
	// deletion. Empty disables archiving.
	ArchivePath string

	// MaxEntries is the maximum number of entries to keep.
	// 0 means unlimited.
	MaxEntries int64
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
	}
}

// Pruner enforces retention policies on audit entries.
type Pruner struct {
	storage   audit.Storage
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
	now       func() time.Time
}

// NewPruner creates a new retention pruner.
func NewPruner(storage audit.Storage, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "audit.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Prune deletes entries older than the retention period, then the oldest
// entries above MaxEntries. Returns the total number of entries deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
	}

	if p.config.MaxEntries > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
	}

	if totalDeleted == 0 {
		p.logger.Debug("no entries pruned",
			"retention_days", p.config.RetentionDays,
			"max_entries", p.config.MaxEntries,
		)
	} else {
		p.logger.Info("audit pruning completed",
			"total_deleted", totalDeleted,
			"retention_days", p.config.RetentionDays,
			"max_entries", p.config.MaxEntries,
		)
	}

	return totalDeleted, nil
}

// pruneByAge deletes entries older than the retention period.
func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)
	query := &audit.Query{EndTime: &cutoff}

	if p.config.ArchivePath != "" {
		entries, err := p.storage.Query(ctx, &audit.Query{EndTime: &cutoff, SortOrder: "asc"})
		if err != nil {
			return 0, audit.NewRetentionError(p.config.RetentionDays, err)
		}
		if err := p.archive(ctx, "age", entries); err != nil {
			return 0, audit.NewRetentionError(p.config.RetentionDays, err)
		}
	}

	deleted, err := p.storage.Delete(ctx, query)
	if err != nil {
		return 0, audit.NewRetentionError(p.config.RetentionDays, err)
	}
	return deleted, nil
}

// pruneByCount deletes the oldest entries if the total exceeds MaxEntries.
// Entries sharing the cutoff timestamp are deleted together.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &audit.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	if count <= p.config.MaxEntries {
		return 0, nil
	}

	toDelete := count - p.config.MaxEntries
	oldest, err := p.storage.Query(ctx, &audit.Query{SortOrder: "asc", Limit: int(toDelete)})
	if err != nil {
		return 0, fmt.Errorf("failed to query entries: %w", err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	if p.config.ArchivePath != "" {
		if err := p.archive(ctx, "count", oldest); err != nil {
			return 0, fmt.Errorf("archive failed: %w", err)
		}
	}

	cutoff := oldest[len(oldest)-1].Timestamp
	deleted, err := p.storage.Delete(ctx, &audit.Query{EndTime: &cutoff})
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}
	return deleted, nil
}

// archive exports entries to a JSON file under ArchivePath.
func (p *Pruner) archive(ctx context.Context, reason string, entries []*audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := fmt.Sprintf("audit-%s-%s.json", reason, p.now().UTC().Format("2006-01-02-150405"))
	path := filepath.Join(p.config.ArchivePath, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer f.Close()

	if err := export.NewJSONExporter(true).Export(ctx, entries, f); err != nil {
		return fmt.Errorf("failed to export entries to archive: %w", err)
	}

	p.logger.Info("audit entries archived",
		"archive_file", path,
		"entry_count", len(entries),
	)
	return nil
}

// Start starts the automatic pruning scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic pruning scheduler.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
