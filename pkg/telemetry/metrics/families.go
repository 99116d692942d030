package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"taxwise-hq/sentinel/pkg/config"
)

// OperationMetrics tracks wrapped operations.
type OperationMetrics struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	alerts   *prometheus.CounterVec
}

// NewOperationMetrics creates and registers operation metrics.
func NewOperationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *OperationMetrics {
	m := &OperationMetrics{
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "operations_total",
				Help:      "Total number of monitored operations by outcome",
			},
			[]string{"operation", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "operation_duration_seconds",
				Help:      "Duration of monitored operations in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"operation"},
		),
		alerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "performance_alerts_total",
				Help:      "Total number of latency outlier alerts",
			},
			[]string{"operation"},
		),
	}
	registry.MustRegister(m.total, m.duration, m.alerts)
	return m
}

// ErrorMetrics tracks aggregated errors.
type ErrorMetrics struct {
	total      *prometheus.CounterVec
	alerts     *prometheus.CounterVec
	signatures prometheus.Gauge
}

// NewErrorMetrics creates and registers error metrics.
func NewErrorMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ErrorMetrics {
	m := &ErrorMetrics{
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "errors_total",
				Help:      "Total number of tracked errors",
			},
			[]string{"operation"},
		),
		alerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "error_frequency_alerts_total",
				Help:      "Total number of recurring-error alerts",
			},
			[]string{"operation"},
		),
		signatures: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "error_signatures",
				Help:      "Number of distinct error signatures currently retained",
			},
		),
	}
	registry.MustRegister(m.total, m.alerts, m.signatures)
	return m
}

// AuditMetrics tracks security audit events.
type AuditMetrics struct {
	events *prometheus.CounterVec
	alerts *prometheus.CounterVec
}

// NewAuditMetrics creates and registers audit metrics.
func NewAuditMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuditMetrics {
	m := &AuditMetrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_events_total",
				Help:      "Total number of audited authentication events",
			},
			[]string{"event", "severity"},
		),
		alerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "security_alerts_total",
				Help:      "Total number of security alerts raised",
			},
			[]string{"event"},
		),
	}
	registry.MustRegister(m.events, m.alerts)
	return m
}

// HealthMetrics tracks probe results.
type HealthMetrics struct {
	status   *prometheus.GaugeVec
	duration *prometheus.HistogramVec
}

// NewHealthMetrics creates and registers health metrics.
func NewHealthMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *HealthMetrics {
	m := &HealthMetrics{
		status: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "health_check_status",
				Help:      "Last health check status (1 healthy, 0.5 degraded, 0 unhealthy)",
			},
			[]string{"check"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "health_check_duration_seconds",
				Help:      "Duration of health probes in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"check"},
		),
	}
	registry.MustRegister(m.status, m.duration)
	return m
}
