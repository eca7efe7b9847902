package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/torosent/burl/internal/metrics"
)

// ErrAlreadyRunning is returned when Run is called while a run is in progress.
var ErrAlreadyRunning = errors.New("runner: run already in progress")

// State is the lifecycle phase of a Runner.
type State int32

const (
	StateIdle State = iota
	StateWarmup
	StateRunning
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWarmup:
		return "warmup"
	case StateRunning:
		return "running"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// runControl carries the stop signal of one run. Its context is cancelled on
// Stop so that pacing sleeps end promptly; in-flight requests use the caller's
// context and are never cancelled by Stop.
type runControl struct {
	stopped atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func newRunControl(parent context.Context) *runControl {
	ctx, cancel := context.WithCancel(parent)
	return &runControl{ctx: ctx, cancel: cancel}
}

func (c *runControl) stop() {
	c.stopped.Store(true)
	c.cancel()
}

func (c *runControl) done() bool {
	return c.stopped.Load()
}

// Runner coordinates concurrent request execution for one benchmark at a time.
type Runner struct {
	opt     Options
	arrival arrivalController
	logger  *zap.Logger

	state   atomic.Int32
	running atomic.Bool

	mu          sync.Mutex
	control     *runControl
	pendingStop bool // Stop arrived before Run installed its control
	onProgress  ProgressFunc
}

func New(opt Options) *Runner {
	opt.normalize()
	r := &Runner{
		opt:        opt,
		arrival:    newArrivalController(opt),
		logger:     opt.Logger,
		onProgress: opt.OnProgress,
	}
	return r
}

// OnProgress registers the progress callback, replacing any previous one.
func (r *Runner) OnProgress(fn ProgressFunc) {
	r.mu.Lock()
	r.onProgress = fn
	r.mu.Unlock()
}

// State returns the current lifecycle phase.
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Stop asks the workers of the current run to exit before their next request.
// It returns immediately; requests already in flight complete and are recorded.
// A Stop that lands before Run has started its workers is held and applied
// to that run.
func (r *Runner) Stop() {
	r.mu.Lock()
	ctl := r.control
	if ctl == nil {
		r.pendingStop = true
	}
	r.mu.Unlock()
	r.logger.Debug("stop requested")
	if ctl != nil {
		ctl.stop()
	}
}

// Run executes the benchmark and blocks until every worker has exited.
// Cancelling ctx aborts in-flight requests and ends the run early.
func (r *Runner) Run(ctx context.Context) (metrics.Result, error) {
	if err := r.opt.validate(); err != nil {
		return metrics.Result{}, err
	}
	if !r.running.CompareAndSwap(false, true) {
		return metrics.Result{}, ErrAlreadyRunning
	}
	defer r.running.Store(false)

	ctl := newRunControl(ctx)
	defer ctl.cancel()
	r.mu.Lock()
	r.control = ctl
	if r.pendingStop {
		r.pendingStop = false
		ctl.stop()
	}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.control = nil
		r.pendingStop = false
		r.mu.Unlock()
	}()

	if r.opt.Warmup > 0 {
		r.state.Store(int32(StateWarmup))
		r.logger.Debug("warmup started", zap.Int("requests", r.opt.Warmup), zap.Int("connections", r.opt.Connections))
		r.warmup(ctx, ctl)
	}

	// Warmup outcomes never reach the measuring collector.
	collector := metrics.NewCollector(r.collectorOptions()...)
	r.state.Store(int32(StateRunning))

	if r.opt.Duration > 0 {
		timer := time.AfterFunc(r.opt.Duration, ctl.stop)
		defer timer.Stop()
	}

	progressDone := make(chan struct{})
	progressFinished := make(chan struct{})
	go r.reportProgress(collector, progressDone, progressFinished)

	r.logger.Debug("workers started",
		zap.Int("connections", r.opt.Connections),
		zap.Int("total", r.opt.TotalRequests),
		zap.Duration("duration", r.opt.Duration),
		zap.Float64("qps", r.opt.QPS),
	)

	share := r.opt.workerShare()
	var wg sync.WaitGroup
	wg.Add(r.opt.Connections)
	for i := 0; i < r.opt.Connections; i++ {
		go func() {
			defer wg.Done()
			r.work(ctx, ctl, collector, share)
		}()
	}
	wg.Wait()

	close(progressDone)
	<-progressFinished

	res, err := collector.Finalize(metrics.RunInfo{
		URL:         r.opt.URL,
		Method:      r.opt.Method,
		Connections: r.opt.Connections,
	})
	r.state.Store(int32(StateComplete))
	if err != nil {
		return metrics.Result{}, fmt.Errorf("finalize collector: %w", err)
	}

	r.logger.Debug("run complete",
		zap.Int64("total", res.TotalRequests),
		zap.Int64("failed", res.FailedRequests),
		zap.Float64("duration_ms", res.DurationMs),
	)
	return res, nil
}

func (r *Runner) collectorOptions() []metrics.Option {
	opts := append([]metrics.Option(nil), r.opt.CollectorOptions...)
	if r.opt.LatencyCorrection && r.opt.QPS > 0 {
		opts = append(opts, metrics.WithCorrectedHistogram(r.opt.expectedInterval()))
	}
	return opts
}

// warmup issues requests in batches of Connections and discards the outcomes.
func (r *Runner) warmup(ctx context.Context, ctl *runControl) {
	remaining := r.opt.Warmup
	for remaining > 0 {
		if ctl.done() || ctx.Err() != nil {
			return
		}
		batch := min(remaining, r.opt.Connections)
		var g errgroup.Group
		for i := 0; i < batch; i++ {
			g.Go(func() error {
				_ = r.execute(ctx)
				return nil
			})
		}
		_ = g.Wait()
		remaining -= batch
	}
}

func (r *Runner) work(ctx context.Context, ctl *runControl, collector *metrics.Collector, share int) {
	total := int64(r.opt.TotalRequests)
	issued := 0
	for {
		if ctl.done() || ctx.Err() != nil {
			return
		}
		if total > 0 && collector.Total() >= total {
			return
		}
		if r.arrival != nil {
			if err := r.arrival.Wait(ctl.ctx); err != nil {
				return
			}
			if ctl.done() {
				return
			}
		}

		outcome := r.execute(ctx)
		collector.Record(outcome)
		if r.opt.Observer != nil {
			r.opt.Observer.Observe(outcome)
		}

		if share > 0 {
			issued++
			if issued >= share {
				return
			}
		}
	}
}

// execute runs the requester once, turning a panic into an unknown_error outcome.
func (r *Runner) execute(ctx context.Context) (out metrics.Outcome) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("requester panicked", zap.Any("panic", rec))
			out = metrics.Outcome{
				Error:     metrics.ErrorUnknown,
				Latency:   time.Since(start),
				Timestamp: start,
			}
		}
	}()

	out = r.opt.Requester.Do(ctx)
	if out.Timestamp.IsZero() {
		out.Timestamp = start
	}
	return out
}

func (r *Runner) reportProgress(collector *metrics.Collector, done <-chan struct{}, finished chan<- struct{}) {
	defer close(finished)

	ticker := time.NewTicker(r.opt.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			r.mu.Lock()
			fn := r.onProgress
			r.mu.Unlock()
			if fn == nil {
				continue
			}
			snap := collector.Snapshot()
			fn(snap, r.progress(snap))
		}
	}
}

func (r *Runner) progress(snap metrics.Snapshot) float64 {
	switch {
	case r.opt.TotalRequests > 0:
		return min(1, float64(snap.Total)/float64(r.opt.TotalRequests))
	case r.opt.Duration > 0:
		durationMs := float64(r.opt.Duration) / float64(time.Millisecond)
		return min(1, snap.ElapsedMs/durationMs)
	default:
		return 0
	}
}
