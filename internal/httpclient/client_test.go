package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/torosent/burl/internal/auth"
	"github.com/torosent/burl/internal/config"
	"github.com/torosent/burl/internal/metrics"
)

func TestBuildRequestWithHeaders(t *testing.T) {
	cfg := &config.Config{
		Method:    "post",
		TargetURL: "http://example.com/api",
		Headers: map[string]string{
			"content-type": "application/json",
			"X-Trace-Id":   "12345",
		},
		Body: `{"hello":"world"}`,
	}

	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("expected builder, got error: %v", err)
	}

	req, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("expected request, got error: %v", err)
	}

	if req.Method != http.MethodPost {
		t.Fatalf("expected method POST, got %s", req.Method)
	}
	if req.URL.String() != cfg.TargetURL {
		t.Fatalf("expected URL %s, got %s", cfg.TargetURL, req.URL.String())
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("expected canonical Content-Type header, got %q", req.Header.Get("Content-Type"))
	}
	if req.Header.Get("X-Trace-Id") != "12345" {
		t.Fatalf("expected X-Trace-Id header, got %q", req.Header.Get("X-Trace-Id"))
	}

	bodyBytes, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}
	if string(bodyBytes) != cfg.Body {
		t.Fatalf("expected body %q, got %q", cfg.Body, string(bodyBytes))
	}
	if req.ContentLength != int64(len(cfg.Body)) {
		t.Fatalf("expected content length %d, got %d", len(cfg.Body), req.ContentLength)
	}

	if req.GetBody == nil {
		t.Fatalf("expected request to support body replay")
	}
	replay, err := req.GetBody()
	if err != nil {
		t.Fatalf("expected replay body, got error: %v", err)
	}
	replayBytes, _ := io.ReadAll(replay)
	if string(replayBytes) != cfg.Body {
		t.Fatalf("expected replay body %q, got %q", cfg.Body, string(replayBytes))
	}
}

func TestRequestBuilder_BodyOmittedForGetAndHead(t *testing.T) {
	for _, method := range []string{"get", http.MethodHead} {
		t.Run(method, func(t *testing.T) {
			cfg := &config.Config{Method: method, TargetURL: "http://example.com", Body: "ignored"}
			builder, err := NewRequestBuilder(cfg)
			if err != nil {
				t.Fatalf("NewRequestBuilder error = %v", err)
			}
			req, err := builder.Build(context.Background())
			if err != nil {
				t.Fatalf("Build error = %v", err)
			}
			if req.Body != nil && req.Body != http.NoBody {
				t.Fatalf("expected no body for %s", method)
			}
			if req.ContentLength != 0 {
				t.Fatalf("expected zero content length, got %d", req.ContentLength)
			}
		})
	}
}

func TestRequestBuilder_GetIgnoresMissingBodyFile(t *testing.T) {
	cfg := &config.Config{Method: "GET", TargetURL: "http://example.com", BodyFile: "/nonexistent/body"}
	if _, err := NewRequestBuilder(cfg); err != nil {
		t.Fatalf("GET should not read the body file, got %v", err)
	}
}

func TestRequestBuilder_InvalidHeaders(t *testing.T) {
	tests := map[string]map[string]string{
		"empty key":          {"": "value"},
		"key with newline":   {"Bad\nKey": "value"},
		"value with newline": {"X-Test": "bad\rvalue"},
	}
	for name, headers := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := &config.Config{Method: "GET", TargetURL: "http://example.com", Headers: headers}
			if _, err := NewRequestBuilder(cfg); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestRequestBuilder_MethodFallbackAndVerbs(t *testing.T) {
	t.Run("fallback to GET when method empty", func(t *testing.T) {
		builder, err := NewRequestBuilder(&config.Config{TargetURL: "http://example.com"})
		if err != nil {
			t.Fatalf("NewRequestBuilder error = %v", err)
		}
		if builder.Method() != http.MethodGet {
			t.Fatalf("expected method GET, got %s", builder.Method())
		}
	})

	verbs := []string{http.MethodPost, http.MethodPut, http.MethodDelete, "patch"}
	for _, verb := range verbs {
		t.Run(verb, func(t *testing.T) {
			builder, err := NewRequestBuilder(&config.Config{Method: verb, TargetURL: "http://example.com"})
			if err != nil {
				t.Fatalf("NewRequestBuilder error = %v", err)
			}
			req, err := builder.Build(context.Background())
			if err != nil {
				t.Fatalf("Build error = %v", err)
			}
			if req.Method != strings.ToUpper(verb) {
				t.Fatalf("expected method %s, got %s", strings.ToUpper(verb), req.Method)
			}
		})
	}
}

func TestRequestBuilder_RequiresTarget(t *testing.T) {
	if _, err := NewRequestBuilder(&config.Config{}); err == nil {
		t.Fatal("expected error for missing target")
	}
	if _, err := NewRequestBuilder(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestRequestBuilderWithAuthProvider(t *testing.T) {
	provider, err := auth.Parse("basic:user:pass")
	if err != nil {
		t.Fatalf("auth.Parse() error = %v", err)
	}

	builder, err := NewRequestBuilderWithAuth(&config.Config{TargetURL: "https://api.example.com/data"}, provider)
	if err != nil {
		t.Fatalf("NewRequestBuilderWithAuth() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		req, err := builder.Build(context.Background())
		if err != nil {
			t.Fatalf("Build() request %d error = %v", i, err)
		}
		if got := req.Header.Get("Authorization"); got != "Basic dXNlcjpwYXNz" {
			t.Errorf("request %d Authorization header = %q", i, got)
		}
	}
}

func TestRequestBuilderAuthFailure(t *testing.T) {
	builder, err := NewRequestBuilderWithAuth(&config.Config{TargetURL: "http://example.com"}, failingProvider{})
	if err != nil {
		t.Fatalf("NewRequestBuilderWithAuth() error = %v", err)
	}
	if _, err := builder.Build(context.Background()); err == nil {
		t.Fatal("expected inject error to surface from Build")
	}
}

type failingProvider struct{}

func (failingProvider) Token(context.Context) (string, error) { return "", errors.New("no token") }
func (failingProvider) InjectHeader(context.Context, *http.Request) error {
	return errors.New("no token")
}
func (failingProvider) Close() error { return nil }

func TestNewClientOptions(t *testing.T) {
	client := NewClient(ClientOptions{Timeout: 5 * time.Second, Insecure: true, MaxConnsPerHost: 64})
	defer client.CloseIdleConnections()

	if client.Timeout != 5*time.Second {
		t.Fatalf("expected client timeout 5s, got %s", client.Timeout)
	}
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if transport.MaxConnsPerHost != 64 || transport.MaxIdleConnsPerHost != 64 {
		t.Fatalf("expected per-host pool of 64, got max=%d idle=%d", transport.MaxConnsPerHost, transport.MaxIdleConnsPerHost)
	}
	if transport.TLSClientConfig == nil || !transport.TLSClientConfig.InsecureSkipVerify {
		t.Fatal("expected certificate verification to be disabled")
	}
	if transport.IdleConnTimeout == 0 {
		t.Fatal("expected transport to set idle connection timeout")
	}
}

func TestNewClientHTTPVersion(t *testing.T) {
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	server.EnableHTTP2 = true
	server.StartTLS()
	defer server.Close()

	tests := []struct {
		version   config.HTTPVersion
		wantMajor int
	}{
		{config.HTTPVersion1, 1},
		{config.HTTPVersion2, 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.version), func(t *testing.T) {
			client := NewClient(ClientOptions{Timeout: 5 * time.Second, Insecure: true, HTTPVersion: tt.version})
			defer client.CloseIdleConnections()

			resp, err := client.Get(server.URL)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			resp.Body.Close()
			if resp.ProtoMajor != tt.wantMajor {
				t.Fatalf("expected HTTP/%d, got %s", tt.wantMajor, resp.Proto)
			}
		})
	}
}

func newTestExecutor(t *testing.T, cfg *config.Config, timeout time.Duration) *Executor {
	t.Helper()
	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}
	client := NewClient(ClientOptions{Timeout: timeout})
	t.Cleanup(client.CloseIdleConnections)
	return NewExecutor(client, builder)
}

func TestExecutorSuccess(t *testing.T) {
	var gotBody atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody.Store(string(data))
		_, _ = w.Write([]byte("hello, world"))
	}))
	defer server.Close()

	exec := newTestExecutor(t, &config.Config{Method: "POST", TargetURL: server.URL, Body: "payload"}, 5*time.Second)
	outcome := exec.Do(context.Background())

	if !outcome.Success {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if outcome.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", outcome.StatusCode)
	}
	if outcome.Bytes != int64(len("hello, world")) {
		t.Fatalf("expected 12 bytes, got %d", outcome.Bytes)
	}
	if outcome.Error != "" {
		t.Fatalf("expected no error kind, got %q", outcome.Error)
	}
	if outcome.Timestamp.IsZero() || outcome.Latency <= 0 {
		t.Fatalf("expected timestamp and latency, got %+v", outcome)
	}
	if gotBody.Load() != "payload" {
		t.Fatalf("server saw body %v", gotBody.Load())
	}
}

func TestExecutorErrorStatusKeepsCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	outcome := newTestExecutor(t, &config.Config{TargetURL: server.URL}, 5*time.Second).Do(context.Background())

	if outcome.Success {
		t.Fatal("expected 503 to be unsuccessful")
	}
	if outcome.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", outcome.StatusCode)
	}
	if outcome.Error != "" {
		t.Fatalf("HTTP errors carry no transport error kind, got %q", outcome.Error)
	}
}

func TestExecutorLatencyIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		time.Sleep(60 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	}))
	defer server.Close()

	outcome := newTestExecutor(t, &config.Config{TargetURL: server.URL}, 5*time.Second).Do(context.Background())

	if outcome.Latency < 60*time.Millisecond {
		t.Fatalf("expected latency to cover body transfer, got %s", outcome.Latency)
	}
	if outcome.Bytes != 4 {
		t.Fatalf("expected 4 bytes, got %d", outcome.Bytes)
	}
}

func TestExecutorLatencyIncludesRequestBuild(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	builder, err := NewRequestBuilderWithAuth(&config.Config{TargetURL: server.URL}, slowProvider{delay: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewRequestBuilderWithAuth() error = %v", err)
	}
	executor := NewExecutor(NewClient(ClientOptions{Timeout: 5 * time.Second}), builder)

	outcome := executor.Do(context.Background())
	if !outcome.Success {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if outcome.Latency < 50*time.Millisecond {
		t.Fatalf("expected latency to cover header injection, got %s", outcome.Latency)
	}
}

type slowProvider struct{ delay time.Duration }

func (p slowProvider) Token(context.Context) (string, error) { return "t", nil }
func (p slowProvider) InjectHeader(_ context.Context, req *http.Request) error {
	time.Sleep(p.delay)
	req.Header.Set("Authorization", "Bearer t")
	return nil
}
func (slowProvider) Close() error { return nil }

func TestExecutorTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	start := time.Now()
	outcome := newTestExecutor(t, &config.Config{TargetURL: server.URL}, 50*time.Millisecond).Do(context.Background())

	if outcome.Success || outcome.HasStatus() || outcome.Bytes != 0 {
		t.Fatalf("expected bare failure, got %+v", outcome)
	}
	if outcome.Error != metrics.ErrorTimeout {
		t.Fatalf("expected timeout, got %q", outcome.Error)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("timeout not enforced, took %s", elapsed)
	}
}

func TestExecutorConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL
	server.Close()

	outcome := newTestExecutor(t, &config.Config{TargetURL: target}, 2*time.Second).Do(context.Background())

	if outcome.Success {
		t.Fatal("expected failure")
	}
	if outcome.Error != metrics.ErrorConnectionRefused {
		t.Fatalf("expected connection_refused, got %q", outcome.Error)
	}
}

func TestExecutorCanceledContext(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := newTestExecutor(t, &config.Config{TargetURL: server.URL}, 2*time.Second).Do(ctx)
	if outcome.Success || outcome.Error == "" {
		t.Fatalf("expected classified failure, got %+v", outcome)
	}
}
