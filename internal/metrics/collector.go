package metrics

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultSampleInterval is the wall-clock cadence of time-series samples.
const DefaultSampleInterval = time.Second

// ErrFinalized is returned when Finalize is called more than once.
var ErrFinalized = errors.New("metrics: collector already finalized")

// Collector aggregates request outcomes for a single run. Record and Snapshot
// may be called concurrently; Finalize must only be called once all writers
// have stopped. A Collector is never reused across runs.
type Collector struct {
	mu  sync.Mutex
	now func() time.Time

	start time.Time

	total      int64
	successes  int64
	failures   int64
	totalBytes int64

	latencies   []float64
	recent      *window
	statusCodes map[int]int64
	errors      map[ErrorKind]int64

	sampleInterval  time.Duration
	lastSample      time.Time
	lastSampleTotal int64
	timeSeries      []TimeSeriesPoint

	corrected *correctedHistogram
	finalized bool
}

// Option customizes a Collector.
type Option func(*Collector)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// WithWindowSize sets the capacity of the recent-latency window.
func WithWindowSize(size int) Option {
	return func(c *Collector) {
		c.recent = newWindow(size)
	}
}

// WithSampleInterval sets the time-series cadence.
func WithSampleInterval(interval time.Duration) Option {
	return func(c *Collector) {
		if interval > 0 {
			c.sampleInterval = interval
		}
	}
}

// WithCorrectedHistogram enables coordinated-omission correction against the
// expected interval between requests of a single connection.
func WithCorrectedHistogram(expectedInterval time.Duration) Option {
	return func(c *Collector) {
		if expectedInterval > 0 {
			c.corrected = newCorrectedHistogram(expectedInterval)
		}
	}
}

// NewCollector creates a collector whose clock starts immediately.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		now:            time.Now,
		recent:         newWindow(DefaultWindowSize),
		statusCodes:    make(map[int]int64),
		errors:         make(map[ErrorKind]int64),
		sampleInterval: DefaultSampleInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.start = c.now()
	c.lastSample = c.start
	return c
}

// Record ingests one outcome. Outcomes recorded after Finalize are dropped.
func (c *Collector) Record(o Outcome) {
	latency := o.LatencyMs()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finalized {
		return
	}

	c.total++
	if o.Success {
		c.successes++
		if o.HasStatus() {
			c.statusCodes[o.StatusCode]++
		}
	} else {
		c.failures++
		if o.Error != "" {
			c.errors[o.Error]++
		}
		if o.HasStatus() {
			c.statusCodes[o.StatusCode]++
		}
	}

	c.latencies = append(c.latencies, latency)
	c.recent.push(latency)
	if o.Bytes > 0 {
		c.totalBytes += o.Bytes
	}
	if c.corrected != nil {
		c.corrected.record(o.Latency)
	}

	now := c.now()
	if now.Sub(c.lastSample) >= c.sampleInterval {
		c.captureSampleLocked(now)
	}
}

func (c *Collector) captureSampleLocked(now time.Time) {
	elapsed := now.Sub(c.lastSample).Seconds()
	var rps float64
	if elapsed > 0 {
		rps = float64(c.total-c.lastSampleTotal) / elapsed
	}
	sorted := c.recent.sortedCopy()
	c.timeSeries = append(c.timeSeries, TimeSeriesPoint{
		Timestamp:  now,
		RPS:        rps,
		LatencyP50: Percentile(sorted, 50),
		LatencyP99: Percentile(sorted, 99),
		ErrorCount: c.failures,
	})
	c.lastSample = now
	c.lastSampleTotal = c.total
}

// Total returns the number of recorded outcomes.
func (c *Collector) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Snapshot returns current counters, rates and live percentiles. It only
// copies the recent window under the lock; sorting happens outside it.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	now := c.now()
	snap := Snapshot{
		Total:     c.total,
		Successes: c.successes,
		Failures:  c.failures,
	}
	bytes := c.totalBytes
	recent := make([]float64, c.recent.len())
	copy(recent, c.recent.values[:c.recent.len()])
	c.mu.Unlock()

	elapsedMs := float64(now.Sub(c.start)) / float64(time.Millisecond)
	snap.ElapsedMs = elapsedMs
	if elapsedMs > 0 {
		snap.CurrentRPS = float64(snap.Total) / elapsedMs * 1000
		snap.BytesPerSecond = float64(bytes) / elapsedMs * 1000
	}

	sort.Float64s(recent)
	snap.P50 = Percentile(recent, 50)
	snap.P99 = Percentile(recent, 99)
	return snap
}

// Finalize computes the final result over the whole run and retires the
// collector. A second call returns ErrFinalized.
func (c *Collector) Finalize(info RunInfo) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finalized {
		return Result{}, ErrFinalized
	}
	c.finalized = true

	durationMs := float64(c.now().Sub(c.start)) / float64(time.Millisecond)
	sort.Float64s(c.latencies)

	res := Result{
		RunID:              ulid.Make().String(),
		URL:                info.URL,
		Method:             info.Method,
		Connections:        info.Connections,
		StartedAt:          c.start,
		DurationMs:         durationMs,
		TotalRequests:      c.total,
		SuccessfulRequests: c.successes,
		FailedRequests:     c.failures,
		TotalBytes:         c.totalBytes,
		Latency:            ComputeLatencyStats(c.latencies),
		StatusCodes:        make(map[int]int64, len(c.statusCodes)),
		Errors:             make(map[ErrorKind]int64, len(c.errors)),
		TimeSeries:         append([]TimeSeriesPoint(nil), c.timeSeries...),
	}
	if durationMs > 0 {
		res.RequestsPerSecond = float64(c.total) / durationMs * 1000
		res.BytesPerSecond = float64(c.totalBytes) / durationMs * 1000
	}
	for code, count := range c.statusCodes {
		res.StatusCodes[code] = count
	}
	for kind, count := range c.errors {
		res.Errors[kind] = count
	}
	if c.corrected != nil && c.total > 0 {
		stats := c.corrected.stats()
		res.CorrectedLatency = &stats
	}

	c.latencies = nil
	return res, nil
}
