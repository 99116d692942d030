// Package retention enforces how long audit entries are kept.
//
// A Pruner deletes entries older than the retention period and, when a
// maximum entry count is configured, the oldest entries above that count.
// Pruned entries can be archived as JSON first. A Scheduler runs the pruner
// on a cron schedule.
package retention
