package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/torosent/burl/internal/metrics"
)

// DefaultProgressInterval is the cadence of progress callbacks.
const DefaultProgressInterval = 100 * time.Millisecond

// Requester abstracts executing a single request. Implementations must
// convert every failure into a classified outcome instead of returning an error.
type Requester interface {
	Do(ctx context.Context) metrics.Outcome
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func(ctx context.Context) metrics.Outcome

func (f RequesterFunc) Do(ctx context.Context) metrics.Outcome {
	return f(ctx)
}

// Observer receives every measured outcome after it has been recorded.
// Warmup outcomes are not observed.
type Observer interface {
	Observe(metrics.Outcome)
}

// ProgressFunc receives a live snapshot and a progress ratio in [0, 1].
type ProgressFunc func(snap metrics.Snapshot, progress float64)

// ArrivalModel selects how the QPS cap is enforced.
type ArrivalModel string

const (
	// ArrivalModelFixed makes every worker sleep connections/qps seconds before each request.
	ArrivalModelFixed ArrivalModel = "fixed"
	// ArrivalModelUniform shares one token bucket at the QPS cap across workers.
	ArrivalModelUniform ArrivalModel = "uniform"
	// ArrivalModelPoisson samples exponential inter-arrival times per worker.
	ArrivalModelPoisson ArrivalModel = "poisson"
)

// Valid reports whether m is a known arrival model.
func (m ArrivalModel) Valid() bool {
	switch m {
	case ArrivalModelFixed, ArrivalModelUniform, ArrivalModelPoisson:
		return true
	}
	return false
}

// Options configure the Runner.
type Options struct {
	Connections   int           // number of concurrent workers
	TotalRequests int           // stop after this many requests (0 means no count limit)
	Duration      time.Duration // stop after this long (0 means no time limit)
	QPS           float64       // aggregate requests per second cap (0 means unlimited)
	Warmup        int           // requests issued and discarded before measuring

	ArrivalModel ArrivalModel
	Requester    Requester // request executor (required)

	// Run metadata copied into the result.
	URL    string
	Method string

	// LatencyCorrection enables the coordinated-omission corrected histogram
	// when a QPS cap is set.
	LatencyCorrection bool

	Observer         Observer
	OnProgress       ProgressFunc
	ProgressInterval time.Duration
	Logger           *zap.Logger

	LimiterFactory   func(qps float64) *rate.Limiter // optional injection for tests
	PoissonSampler   func() float64                  // optional injection for tests
	RandomSeed       int64
	CollectorOptions []metrics.Option
}

// OptionsError reports an invalid option detected before any request is issued.
type OptionsError struct {
	Field  string
	Reason string
}

func (e *OptionsError) Error() string {
	return fmt.Sprintf("runner: invalid %s: %s", e.Field, e.Reason)
}

func (o *Options) normalize() {
	if o.Connections == 0 {
		o.Connections = 1
	}
	if o.ArrivalModel == "" {
		o.ArrivalModel = ArrivalModelFixed
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = DefaultProgressInterval
	}
	if o.RandomSeed == 0 {
		o.RandomSeed = time.Now().UnixNano()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(qps float64) *rate.Limiter {
			if qps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst of one keeps arrivals evenly spaced under concurrency.
			return rate.NewLimiter(rate.Limit(qps), 1)
		}
	}
}

func (o Options) validate() error {
	switch {
	case o.Requester == nil:
		return &OptionsError{Field: "requester", Reason: "must not be nil"}
	case o.Connections < 1:
		return &OptionsError{Field: "connections", Reason: "must be at least 1"}
	case o.TotalRequests < 0:
		return &OptionsError{Field: "total requests", Reason: "must not be negative"}
	case o.Duration < 0:
		return &OptionsError{Field: "duration", Reason: "must not be negative"}
	case o.TotalRequests > 0 && o.Duration > 0:
		return &OptionsError{Field: "stop condition", Reason: "total requests and duration are mutually exclusive"}
	case o.QPS < 0:
		return &OptionsError{Field: "qps", Reason: "must not be negative"}
	case o.Warmup < 0:
		return &OptionsError{Field: "warmup", Reason: "must not be negative"}
	case !o.ArrivalModel.Valid():
		return &OptionsError{Field: "arrival model", Reason: fmt.Sprintf("unknown model %q", o.ArrivalModel)}
	}
	return nil
}

// workerShare is the per-worker request quota, ceil(total/connections).
func (o Options) workerShare() int {
	if o.TotalRequests <= 0 {
		return 0
	}
	return (o.TotalRequests + o.Connections - 1) / o.Connections
}

// expectedInterval is the pause one worker takes between requests at the QPS cap.
func (o Options) expectedInterval() time.Duration {
	if o.QPS <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) * float64(o.Connections) / o.QPS)
}
