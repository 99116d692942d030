package performance

import (
	"math"
	"slices"
)

// Stats summarizes one operation's window. Durations are milliseconds.
type Stats struct {
	Count int     `json:"count"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Max   float64 `json:"max"`
}

// Percentile returns the p-th percentile of values using the nearest-rank
// method: the values are sorted ascending and the element at index
// ceil(p/100 * n) - 1, clamped to [0, n-1], is returned. values is not
// modified. An empty input yields 0.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	// p*n/100 rather than p/100*n keeps integer inputs exact
	idx := int(math.Ceil(p*float64(n)/100)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

// Summarize computes Stats for a set of samples.
func Summarize(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	return Stats{
		Count: len(sorted),
		Avg:   sum / float64(len(sorted)),
		P50:   percentileSorted(sorted, 50),
		P95:   percentileSorted(sorted, 95),
		P99:   percentileSorted(sorted, 99),
		Max:   sorted[len(sorted)-1],
	}
}
