package metrics_test

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/torosent/burl/internal/metrics"
)

func TestPercentileNearestRank(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{1, 10},
		{50, 50},
		{75, 80},
		{90, 90},
		{95, 100},
		{99.9, 100},
		{100, 100},
	}
	for _, tt := range tests {
		near(t, "Percentile", metrics.Percentile(sorted, tt.p), tt.want, 1e-9)
	}
}

func TestPercentileEdgeCases(t *testing.T) {
	if got := metrics.Percentile(nil, 50); got != 0 {
		t.Errorf("Percentile(nil) = %v, want 0", got)
	}
	near(t, "Percentile p99 single", metrics.Percentile([]float64{7}, 99), 7, 1e-9)
	near(t, "Percentile p1 single", metrics.Percentile([]float64{7}, 1), 7, 1e-9)
}

func TestPercentileMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, n := range []int{1, 2, 7, 100, 1001} {
		sorted := make([]float64, n)
		for i := range sorted {
			sorted[i] = rng.ExpFloat64() * 50
		}
		sort.Float64s(sorted)

		prev := math.Inf(-1)
		for p := 0.0; p <= 100; p += 0.1 {
			got := metrics.Percentile(sorted, p)
			if got < prev {
				t.Fatalf("n=%d: Percentile(p%.1f) = %v, below previous %v", n, p, got, prev)
			}
			if got < sorted[0] || got > sorted[n-1] {
				t.Fatalf("n=%d: Percentile(p%.1f) = %v, outside [%v, %v]", n, p, got, sorted[0], sorted[n-1])
			}
			prev = got
		}
		if got := metrics.Percentile(sorted, 100); got != sorted[n-1] {
			t.Errorf("n=%d: Percentile(p100) = %v, want max %v", n, got, sorted[n-1])
		}
	}
}

func TestComputeLatencyStatsSingleSample(t *testing.T) {
	stats := metrics.ComputeLatencyStats([]float64{42})
	near(t, "Min", stats.Min, 42, 1e-9)
	near(t, "Max", stats.Max, 42, 1e-9)
	near(t, "Mean", stats.Mean, 42, 1e-9)
	if stats.StdDev != 0 {
		t.Errorf("StdDev = %v, want 0", stats.StdDev)
	}
	near(t, "P999", stats.P999, 42, 1e-9)
}

func TestComputeLatencyStatsPopulationStdDev(t *testing.T) {
	stats := metrics.ComputeLatencyStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	near(t, "Mean", stats.Mean, 5, 1e-9)
	near(t, "StdDev", stats.StdDev, 2, 1e-9)
	if math.IsNaN(stats.StdDev) {
		t.Error("StdDev is NaN")
	}
}
