package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Status is the health of one check or of the whole system.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// rank orders statuses by severity.
func (s Status) rank() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Result is the outcome of a single probe.
type Result struct {
	Status  Status         `json:"status"`
	Latency time.Duration  `json:"-"`
	Error   string         `json:"error,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// MarshalJSON renders Latency in milliseconds.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		LatencyMS float64 `json:"latency_ms,omitempty"`
	}{plain(r), float64(r.Latency) / float64(time.Millisecond)})
}

// Healthy returns a healthy Result.
func Healthy() Result { return Result{Status: StatusHealthy} }

// Unhealthy returns an unhealthy Result carrying err.
func Unhealthy(err error) Result {
	return Result{Status: StatusUnhealthy, Error: err.Error()}
}

// Report is the aggregate outcome of PerformHealthCheck. Checks always
// holds one entry per registered probe.
type Report struct {
	Status    Status            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]Result `json:"checks"`
}

// Probe checks one dependency or subsystem.
type Probe func(ctx context.Context) Result

// Observer receives every probe result, typically to update metrics.
type Observer interface {
	ObserveHealthCheck(name string, status Status, latency time.Duration)
}

// Options configures a Checker.
type Options struct {
	// Timeout bounds each probe (default 5s).
	Timeout time.Duration

	// Observer optionally receives probe results.
	Observer Observer

	// Now returns the current time (default time.Now).
	Now func() time.Time
}

// DefaultTimeout bounds a probe when Options.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// Checker runs registered probes. It is safe for concurrent use.
type Checker struct {
	mu     sync.RWMutex
	probes map[string]Probe

	timeout  time.Duration
	observer Observer
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a Checker with no probes.
func New(opts Options) *Checker {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Checker{
		probes:   make(map[string]Probe),
		timeout:  opts.Timeout,
		observer: opts.Observer,
		now:      opts.Now,
		logger:   slog.Default().With("component", "health"),
	}
}

// Register adds or replaces the probe for name.
func (c *Checker) Register(name string, probe Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = probe
}

// Unregister removes the probe for name.
func (c *Checker) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.probes, name)
}

// Names returns the registered probe names in sorted order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.probes))
	for name := range c.probes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PerformHealthCheck runs every probe concurrently and reduces the results:
// any unhealthy check makes the report unhealthy, otherwise any degraded
// check makes it degraded. A probe that panics or exceeds the timeout is
// reported unhealthy.
func (c *Checker) PerformHealthCheck(ctx context.Context) Report {
	c.mu.RLock()
	probes := make(map[string]Probe, len(c.probes))
	for name, p := range c.probes {
		probes[name] = p
	}
	c.mu.RUnlock()

	results := make(map[string]Result, len(probes))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, probe := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := c.run(ctx, name, probe)

			mu.Lock()
			results[name] = res
			mu.Unlock()

			if c.observer != nil {
				c.observer.ObserveHealthCheck(name, res.Status, res.Latency)
			}
		}()
	}
	wg.Wait()

	return Report{
		Status:    Reduce(results),
		Timestamp: c.now().UTC(),
		Checks:    results,
	}
}

// Reduce returns the most severe status in results, or healthy when empty.
func Reduce(results map[string]Result) Status {
	overall := StatusHealthy
	for _, r := range results {
		if r.Status.rank() > overall.rank() {
			overall = r.Status
		}
	}
	return overall
}

// run executes one probe with a timeout and panic recovery.
func (c *Checker) run(ctx context.Context, name string, probe Probe) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("health probe panicked", "check", name, "panic", r)
				done <- Result{Status: StatusUnhealthy, Error: fmt.Sprintf("probe panicked: %v", r)}
			}
		}()
		done <- probe(ctx)
	}()

	var res Result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = Result{Status: StatusUnhealthy, Error: fmt.Sprintf("health check timeout: %v", ctx.Err())}
	}

	switch res.Status {
	case StatusHealthy, StatusDegraded, StatusUnhealthy:
	default:
		res.Status = StatusUnhealthy
		if res.Error == "" {
			res.Error = "probe returned no status"
		}
	}
	if res.Latency == 0 {
		res.Latency = time.Since(start)
	}
	return res
}
