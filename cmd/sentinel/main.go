// Sentinel is the telemetry and audit runtime for the TaxWise authentication
// service.
//
// It records per-operation latency windows, groups recurring errors by
// signature, keeps a PII-redacted audit trail of authentication events and
// serves health, readiness, metrics and telemetry snapshots.
//
// Usage:
//
//	# Start the operational server with default configuration
//	sentinel serve
//
//	# Start with a configuration file and hot reload
//	sentinel serve --config /etc/sentinel/sentinel.yaml --watch
//
//	# Run the health probes once
//	sentinel health
//
//	# Export the audit trail as CSV
//	sentinel audit export --format csv --output audit.csv
//
//	# Apply retention now
//	sentinel audit prune
//
//	# Validate a configuration file
//	sentinel config validate --config sentinel.yaml
package main

func main() {
	Execute()
}
