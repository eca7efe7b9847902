package metrics

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// correctedHistogram back-fills samples a stalled connection would have
// issued, so percentiles reflect the configured arrival rate instead of the
// service's own pace.
type correctedHistogram struct {
	hist       *hdrhistogram.Histogram
	expectedUS int64
}

func newCorrectedHistogram(expected time.Duration) *correctedHistogram {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return &correctedHistogram{
		hist:       hdrhistogram.New(1, 60_000_000, 3),
		expectedUS: max(expected.Microseconds(), 1),
	}
}

func (h *correctedHistogram) record(latency time.Duration) {
	us := latency.Microseconds()
	if us < h.hist.LowestTrackableValue() {
		us = h.hist.LowestTrackableValue()
	}
	if us > h.hist.HighestTrackableValue() {
		us = h.hist.HighestTrackableValue()
	}
	_ = h.hist.RecordCorrectedValue(us, h.expectedUS)
}

func (h *correctedHistogram) stats() LatencyStats {
	if h.hist.TotalCount() == 0 {
		return LatencyStats{}
	}
	ms := func(us int64) float64 { return float64(us) / 1000 }
	p50 := ms(h.hist.ValueAtQuantile(50))
	return LatencyStats{
		Min:    ms(h.hist.Min()),
		Max:    ms(h.hist.Max()),
		Mean:   h.hist.Mean() / 1000,
		Median: p50,
		StdDev: h.hist.StdDev() / 1000,
		P50:    p50,
		P75:    ms(h.hist.ValueAtQuantile(75)),
		P90:    ms(h.hist.ValueAtQuantile(90)),
		P95:    ms(h.hist.ValueAtQuantile(95)),
		P99:    ms(h.hist.ValueAtQuantile(99)),
		P999:   ms(h.hist.ValueAtQuantile(99.9)),
	}
}
