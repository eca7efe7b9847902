package metrics

import "time"

// LatencyStats holds latency statistics in milliseconds.
type LatencyStats struct {
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	Mean   float64 `json:"mean" yaml:"mean"`
	Median float64 `json:"median" yaml:"median"`
	StdDev float64 `json:"stddev" yaml:"stddev"`
	P50    float64 `json:"p50" yaml:"p50"`
	P75    float64 `json:"p75" yaml:"p75"`
	P90    float64 `json:"p90" yaml:"p90"`
	P95    float64 `json:"p95" yaml:"p95"`
	P99    float64 `json:"p99" yaml:"p99"`
	P999   float64 `json:"p999" yaml:"p999"`
}

// Snapshot is a point-in-time view of a running collector. P50 and P99 come
// from the recent window only.
type Snapshot struct {
	Total          int64   `json:"total_requests"`
	Successes      int64   `json:"successful_requests"`
	Failures       int64   `json:"failed_requests"`
	CurrentRPS     float64 `json:"current_rps"`
	BytesPerSecond float64 `json:"bytes_per_second"`
	P50            float64 `json:"latency_p50"`
	P99            float64 `json:"latency_p99"`
	ElapsedMs      float64 `json:"elapsed_ms"`
}

// TimeSeriesPoint is one coarse sample taken on the collector's sample cadence.
type TimeSeriesPoint struct {
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
	RPS        float64   `json:"rps" yaml:"rps"`
	LatencyP50 float64   `json:"latency_p50" yaml:"latency_p50"`
	LatencyP99 float64   `json:"latency_p99" yaml:"latency_p99"`
	ErrorCount int64     `json:"error_count" yaml:"error_count"`
}

// RunInfo is the run metadata copied into the final result.
type RunInfo struct {
	URL         string
	Method      string
	Connections int
}

// Result is the final, immutable summary of one run.
type Result struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	URL         string    `json:"url" yaml:"url"`
	Method      string    `json:"method" yaml:"method"`
	Connections int       `json:"connections" yaml:"connections"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	DurationMs  float64   `json:"duration_ms" yaml:"duration_ms"`

	TotalRequests      int64 `json:"total_requests" yaml:"total_requests"`
	SuccessfulRequests int64 `json:"successful_requests" yaml:"successful_requests"`
	FailedRequests     int64 `json:"failed_requests" yaml:"failed_requests"`

	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	BytesPerSecond    float64 `json:"bytes_per_second" yaml:"bytes_per_second"`
	TotalBytes        int64   `json:"total_bytes" yaml:"total_bytes"`

	Latency          LatencyStats  `json:"latency" yaml:"latency"`
	CorrectedLatency *LatencyStats `json:"corrected_latency,omitempty" yaml:"corrected_latency,omitempty"`

	StatusCodes map[int]int64       `json:"status_codes" yaml:"status_codes"`
	Errors      map[ErrorKind]int64 `json:"errors" yaml:"errors"`

	TimeSeries []TimeSeriesPoint `json:"time_series" yaml:"time_series"`
}

// Duration returns the run duration as a time.Duration.
func (r Result) Duration() time.Duration {
	return time.Duration(r.DurationMs * float64(time.Millisecond))
}

// SuccessRate returns successes/total, or 0 for an empty run.
func (r Result) SuccessRate() float64 {
	if r.TotalRequests == 0 {
		return 0
	}
	return float64(r.SuccessfulRequests) / float64(r.TotalRequests)
}
