package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/burl/internal/metrics"
	"github.com/torosent/burl/internal/tracing"
)

// Executor issues one request per Do call and reports its outcome. It never
// retries. It satisfies runner.Requester.
type Executor struct {
	client    *http.Client
	builder   *RequestBuilder
	tracer    trace.Tracer
	propagate bool
	now       func() time.Time
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithTracer wraps every request in a client span. When propagate is set the
// W3C trace context is injected into the outgoing headers.
func WithTracer(tracer trace.Tracer, propagate bool) ExecutorOption {
	return func(e *Executor) {
		e.tracer = tracer
		e.propagate = propagate
	}
}

// WithClock overrides the time source used for timestamps and latency.
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewExecutor binds a client to a request template.
func NewExecutor(client *http.Client, builder *RequestBuilder, opts ...ExecutorOption) *Executor {
	if client == nil {
		client = http.DefaultClient
	}
	e := &Executor{client: client, builder: builder, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Do builds and sends the request and drains the response body. Latency spans
// from before the request is built, so auth header injection counts, until the
// body is fully read.
func (e *Executor) Do(ctx context.Context) metrics.Outcome {
	if ctx == nil {
		ctx = context.Background()
	}

	var span trace.Span
	if e.tracer != nil {
		ctx, span = tracing.StartRequestSpan(ctx, e.tracer, e.builder.Method(), e.builder.Target())
	}

	start := e.now()
	outcome, err := e.do(ctx, start)

	if span != nil {
		var attrs []attribute.KeyValue
		if outcome.HasStatus() {
			attrs = append(attrs, tracing.StatusCode(outcome.StatusCode))
		}
		if outcome.Error != "" {
			attrs = append(attrs, tracing.ErrorType(string(outcome.Error)))
		}
		if err == nil && !outcome.Success {
			err = fmt.Errorf("unexpected status %d", outcome.StatusCode)
		}
		tracing.EndSpan(span, err, attrs...)
	}
	return outcome
}

func (e *Executor) do(ctx context.Context, start time.Time) (metrics.Outcome, error) {
	outcome := metrics.Outcome{Timestamp: start}

	req, err := e.builder.Build(ctx)
	if err != nil {
		outcome.Latency = e.now().Sub(start)
		outcome.Error = Classify(err)
		return outcome, err
	}
	if e.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		outcome.Latency = e.now().Sub(start)
		outcome.Error = Classify(err)
		return outcome, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)
	outcome.Latency = e.now().Sub(start)
	if err != nil {
		// The response started but the body was cut off.
		outcome.Error = Classify(err)
		return outcome, err
	}

	outcome.StatusCode = resp.StatusCode
	outcome.Bytes = n
	outcome.Success = resp.StatusCode >= 200 && resp.StatusCode < 300
	return outcome, nil
}
