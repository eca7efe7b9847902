package metrics

import "time"

// Outcome is the result of exactly one issued request.
type Outcome struct {
	Success    bool
	StatusCode int // 0 when no HTTP response was received
	Latency    time.Duration
	Bytes      int64
	Error      ErrorKind // empty unless the request failed at the transport level
	Timestamp  time.Time
}

// HasStatus reports whether the outcome carries an HTTP status code.
func (o Outcome) HasStatus() bool {
	return o.StatusCode > 0
}

// LatencyMs returns the latency in fractional milliseconds.
func (o Outcome) LatencyMs() float64 {
	if o.Latency <= 0 {
		return 0
	}
	return float64(o.Latency) / float64(time.Millisecond)
}
