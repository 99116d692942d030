package errtrack

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Sweeper runs Aggregator.Prune on a cron schedule.
type Sweeper struct {
	agg      *Aggregator
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewSweeper creates a sweeper for agg. The schedule accepts standard cron
// expressions and descriptors such as "@every 1m".
func NewSweeper(agg *Aggregator, schedule string) (*Sweeper, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return &Sweeper{
		agg:      agg,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "errtrack.sweeper"),
	}, nil
}

// Start schedules the sweep. It is a no-op when the aggregator has no TTL.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || s.agg.ttl <= 0 {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}
	s.cron.Start()
	s.running = true

	s.logger.Info("error signature sweeper started",
		"schedule", s.schedule,
		"ttl", s.agg.ttl.String(),
	)
	return nil
}

func (s *Sweeper) sweep() {
	if removed := s.agg.Prune(s.agg.now()); removed > 0 {
		s.logger.Info("pruned idle error signatures", "removed", removed, "retained", s.agg.Len())
	}
}

// Stop stops the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
	}
}

// IsRunning reports whether the sweep is scheduled.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
