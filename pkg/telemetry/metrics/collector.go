package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"taxwise-hq/sentinel/pkg/audit"
	"taxwise-hq/sentinel/pkg/config"
	"taxwise-hq/sentinel/pkg/telemetry/health"
)

// OverflowLabel replaces operation names beyond the cardinality limit.
const OverflowLabel = "other"

// Collector records Sentinel metrics into its own registry.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	operations *OperationMetrics
	errors     *ErrorMetrics
	audit      *AuditMetrics
	health     *HealthMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector and registers every metric with
// registry. A nil registry gets a fresh one.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = config.DefaultDurationBuckets
	}
	if cfg.MaxOperations <= 0 {
		cfg.MaxOperations = config.DefaultMaxOperations
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		operations:         NewOperationMetrics(cfg, registry),
		errors:             NewErrorMetrics(cfg, registry),
		audit:              NewAuditMetrics(cfg, registry),
		health:             NewHealthMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(cfg.MaxOperations),
	}
}

// operation returns op, or OverflowLabel once the limit is reached.
func (c *Collector) operation(op string) string {
	if c.cardinalityLimiter.Allow(op) {
		return op
	}
	return OverflowLabel
}

// ObserveOperation counts one wrapped invocation.
func (c *Collector) ObserveOperation(op, status string) {
	if !c.config.Enabled {
		return
	}
	c.operations.total.WithLabelValues(c.operation(op), status).Inc()
}

// ObserveDuration records an operation latency.
func (c *Collector) ObserveDuration(op string, d time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.operations.duration.WithLabelValues(c.operation(op)).Observe(d.Seconds())
}

// ObservePerformanceAlert counts a latency outlier alert.
func (c *Collector) ObservePerformanceAlert(op string) {
	if !c.config.Enabled {
		return
	}
	c.operations.alerts.WithLabelValues(c.operation(op)).Inc()
}

// ObserveError counts a tracked error.
func (c *Collector) ObserveError(op string) {
	if !c.config.Enabled {
		return
	}
	c.errors.total.WithLabelValues(c.operation(op)).Inc()
}

// ObserveFrequencyAlert counts an error frequency alert.
func (c *Collector) ObserveFrequencyAlert(op string) {
	if !c.config.Enabled {
		return
	}
	c.errors.alerts.WithLabelValues(c.operation(op)).Inc()
}

// ObserveSignatures sets the number of retained error signatures.
func (c *Collector) ObserveSignatures(n int) {
	if !c.config.Enabled {
		return
	}
	c.errors.signatures.Set(float64(n))
}

// ObserveAuditEvent counts an audit entry.
func (c *Collector) ObserveAuditEvent(kind audit.EventKind, severity audit.Severity) {
	if !c.config.Enabled {
		return
	}
	c.audit.events.WithLabelValues(string(kind), string(severity)).Inc()
}

// ObserveSecurityAlert counts a security alert.
func (c *Collector) ObserveSecurityAlert(kind audit.EventKind) {
	if !c.config.Enabled {
		return
	}
	c.audit.alerts.WithLabelValues(string(kind)).Inc()
}

// ObserveHealthCheck records a probe result.
func (c *Collector) ObserveHealthCheck(name string, status health.Status, latency time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.health.status.WithLabelValues(name).Set(statusValue(status))
	c.health.duration.WithLabelValues(name).Observe(latency.Seconds())
}

func statusValue(s health.Status) float64 {
	switch s {
	case health.StatusHealthy:
		return 1
	case health.StatusDegraded:
		return 0.5
	}
	return 0
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter caps the number of distinct label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter admitting at most maxCardinality
// distinct values.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value is already known or still fits under the
// limit, remembering it in the latter case.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	_, exists := cl.current[value]
	cl.mu.RUnlock()
	if exists {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
