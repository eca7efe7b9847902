// Package runner provides the benchmark execution engine for burl.
//
// The runner package orchestrates concurrent request execution with support for:
//   - A fixed pool of workers, one per connection
//   - An optional warmup phase whose outcomes are discarded
//   - Count-based and duration-based termination, or manual stop only
//   - An aggregate QPS cap with fixed, uniform or Poisson arrivals
//   - Periodic progress snapshots
//
// # Basic Usage
//
// Create a runner with options and a requester implementation:
//
//	r := runner.New(runner.Options{
//		Connections:   10,
//		TotalRequests: 1000,
//		QPS:           200,
//		Requester:     executor,
//	})
//	r.OnProgress(func(snap metrics.Snapshot, progress float64) { ... })
//	result, err := r.Run(ctx)
//
// # Requester Interface
//
// The [Requester] interface defines what a runner executes:
//
//	type Requester interface {
//		Do(ctx context.Context) metrics.Outcome
//	}
//
// Requesters report failures as classified outcomes. A panic inside Do is
// recovered and recorded as [metrics.ErrorUnknown].
//
// # Request Count Limit
//
// With TotalRequests set, each worker issues at most ceil(total/connections)
// requests and exits early once the shared collector has reached the total.
// The aggregate can therefore exceed the target by up to connections-1.
//
// # Stopping
//
// [Runner.Stop] is cooperative: workers finish their in-flight request and
// exit before issuing the next one. A Duration limit calls Stop when it
// elapses. Cancelling the context passed to [Runner.Run] also aborts requests
// that are in flight.
//
// # Arrival Models
//
//   - [ArrivalModelFixed]: every worker sleeps connections/qps seconds before each request
//   - [ArrivalModelUniform]: workers share a token bucket at the QPS cap
//   - [ArrivalModelPoisson]: exponential inter-arrival times per worker
//
// # Middleware
//
//   - [WithLogging]: log failed outcomes
//   - [Observers]: fan outcomes out to several [Observer]s
package runner
