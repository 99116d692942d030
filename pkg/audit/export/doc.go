// Package export writes audit entries to JSON or CSV for offline review.
package export
