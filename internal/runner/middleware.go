package runner

import (
	"context"

	"go.uber.org/zap"

	"github.com/torosent/burl/internal/metrics"
)

// loggingRequester wraps a Requester with failure logging.
type loggingRequester struct {
	inner  Requester
	logger *zap.Logger
}

// WithLogging wraps a Requester to log failed outcomes at warn level.
func WithLogging(req Requester, logger *zap.Logger) Requester {
	if logger == nil {
		return req
	}
	return &loggingRequester{
		inner:  req,
		logger: logger,
	}
}

func (l *loggingRequester) Do(ctx context.Context) metrics.Outcome {
	out := l.inner.Do(ctx)
	if !out.Success {
		fields := []zap.Field{zap.Float64("latency_ms", out.LatencyMs())}
		if out.HasStatus() {
			fields = append(fields, zap.Int("status", out.StatusCode))
		}
		if out.Error != "" {
			fields = append(fields, zap.String("error", string(out.Error)))
		}
		l.logger.Warn("request failed", fields...)
	}
	return out
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(metrics.Outcome)

func (f ObserverFunc) Observe(o metrics.Outcome) {
	f(o)
}

type multiObserver []Observer

func (m multiObserver) Observe(o metrics.Outcome) {
	for _, obs := range m {
		obs.Observe(o)
	}
}

// Observers fans an outcome out to every non-nil observer.
func Observers(obs ...Observer) Observer {
	var out multiObserver
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}
