package metrics

import "math"

// Percentile returns the nearest-rank percentile p (0-100) of an ascending
// slice: index = ceil(p/100*n) - 1, clamped to [0, n-1]. No interpolation.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil((p/100)*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

// ComputeLatencyStats summarizes an ascending slice of latencies in
// milliseconds. An empty slice yields all zeros. Stddev is the population
// standard deviation.
func ComputeLatencyStats(sorted []float64) LatencyStats {
	n := len(sorted)
	if n == 0 {
		return LatencyStats{}
	}

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	var squared float64
	for _, v := range sorted {
		d := v - mean
		squared += d * d
	}
	stddev := math.Sqrt(squared / float64(n))

	p50 := Percentile(sorted, 50)
	return LatencyStats{
		Min:    sorted[0],
		Max:    sorted[n-1],
		Mean:   mean,
		Median: p50,
		StdDev: stddev,
		P50:    p50,
		P75:    Percentile(sorted, 75),
		P90:    Percentile(sorted, 90),
		P95:    Percentile(sorted, 95),
		P99:    Percentile(sorted, 99),
		P999:   Percentile(sorted, 99.9),
	}
}
