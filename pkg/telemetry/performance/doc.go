// Package performance keeps a bounded sliding window of recent durations per
// operation name and derives latency statistics from it.
//
// Every Record call appends one sample, evicting the oldest once the window
// is full, recomputes the window's 95th percentile and emits a
// performance.alert record when the new sample exceeds OutlierFactor times
// that percentile. Percentiles are exact: the window is copied and sorted on
// each call, which is cheap at the default capacity of 100 but is not meant
// for large windows.
package performance
