// Package metrics exposes Sentinel's Prometheus metrics.
//
// A Collector owns a private prometheus.Registry and implements the
// observer interfaces of the performance recorder, the error aggregator,
// the audit logger, the health checker and the monitoring wrapper, so each
// component feeds it without depending on Prometheus directly.
//
// Metrics (namespace and subsystem are configurable, default
// sentinel_auth_):
//
//	operations_total{operation,status}          wrapped invocations
//	operation_duration_seconds{operation}       invocation latency
//	performance_alerts_total{operation}         latency outlier alerts
//	errors_total{operation}                     tracked errors
//	error_frequency_alerts_total{operation}     recurring-error alerts
//	error_signatures                            distinct retained signatures
//	audit_events_total{event,severity}          audit entries
//	security_alerts_total{event}                security alerts
//	health_check_status{check}                  1 healthy, 0.5 degraded, 0 unhealthy
//	health_check_duration_seconds{check}        probe latency
//
// Operation names are capped by MaxOperations; names beyond the cap are
// reported as "other".
package metrics
