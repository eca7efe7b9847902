package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/torosent/burl/internal/config"
	"github.com/torosent/burl/internal/metrics"
	"github.com/torosent/burl/internal/output"
	"github.com/torosent/burl/internal/runner"
)

func isolateHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
}

func newCountingServer(t *testing.T, status int) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRunHelp(t *testing.T) {
	isolateHome(t)
	if _, _, err := runCLI(t, "--help"); err != nil {
		t.Fatalf("run(--help) error = %v", err)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	isolateHome(t)
	_, _, err := runCLI(t, "-c", "0", "http://localhost")
	if err == nil {
		t.Fatal("expected validation error")
	}
	var vErr config.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %T, want config.ValidationError", err)
	}
	if got := exitCode(err); got != 1 {
		t.Errorf("exitCode = %d, want 1", got)
	}
}

func TestRunTextReport(t *testing.T) {
	isolateHome(t)
	srv, hits := newCountingServer(t, http.StatusOK)

	stdout, _, err := runCLI(t, "-n", "20", "-c", "2", srv.URL)
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if got := hits.Load(); got != 20 {
		t.Errorf("server hits = %d, want 20", got)
	}
	if !strings.Contains(stdout, "200") {
		t.Errorf("report does not mention status 200:\n%s", stdout)
	}
}

func TestRunJSONToFile(t *testing.T) {
	isolateHome(t)
	srv, _ := newCountingServer(t, http.StatusOK)
	path := filepath.Join(t.TempDir(), "result.json")

	stdout, _, err := runCLI(t, "-n", "10", "-c", "1", "-f", "json", "-o", path, srv.URL)
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if !strings.Contains(stdout, "Results written to "+path) {
		t.Errorf("stdout = %q, want write confirmation", stdout)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var result metrics.Result
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if result.TotalRequests != 10 || result.SuccessfulRequests != 10 {
		t.Errorf("totals = %d/%d, want 10/10", result.SuccessfulRequests, result.TotalRequests)
	}
	if result.StatusCodes[200] != 10 {
		t.Errorf("status 200 count = %d, want 10", result.StatusCodes[200])
	}
}

func TestRunQuietSuppressesConfirmation(t *testing.T) {
	isolateHome(t)
	srv, _ := newCountingServer(t, http.StatusOK)
	path := filepath.Join(t.TempDir(), "result.csv")

	stdout, _, err := runCLI(t, "-n", "2", "-c", "1", "-f", "csv", "-o", path, "--quiet", srv.URL)
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want empty", stdout)
	}
}

func TestRunFailedRequestsExitOne(t *testing.T) {
	isolateHome(t)
	srv, _ := newCountingServer(t, http.StatusInternalServerError)

	_, _, err := runCLI(t, "-n", "4", "-c", "2", "-f", "json", srv.URL)
	if !errors.Is(err, errRequestsFailed) {
		t.Fatalf("error = %v, want errRequestsFailed", err)
	}
	if got := exitCode(err); got != 1 {
		t.Errorf("exitCode = %d, want 1", got)
	}
}

func TestRunThresholdFailureExitTwo(t *testing.T) {
	isolateHome(t)
	srv, _ := newCountingServer(t, http.StatusOK)

	_, stderr, err := runCLI(t, "-n", "5", "-c", "1", "-f", "json", "--threshold", "http_req_duration:p95 < 0", srv.URL)
	if !errors.Is(err, errThresholdsFailed) {
		t.Fatalf("error = %v, want errThresholdsFailed", err)
	}
	if got := exitCode(err); got != 2 {
		t.Errorf("exitCode = %d, want 2", got)
	}
	if !strings.Contains(stderr, "http_req_duration:p95 < 0") {
		t.Errorf("threshold summary missing from stderr:\n%s", stderr)
	}
}

func TestRunThresholdPass(t *testing.T) {
	isolateHome(t)
	srv, _ := newCountingServer(t, http.StatusOK)

	stdout, _, err := runCLI(t, "-n", "5", "-c", "1", "--threshold", "http_req_failed:count == 0", srv.URL)
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if !strings.Contains(stdout, "http_req_failed:count == 0") {
		t.Errorf("threshold summary missing from stdout:\n%s", stdout)
	}
}

func TestRunAppendsHistory(t *testing.T) {
	isolateHome(t)
	srv, _ := newCountingServer(t, http.StatusOK)
	path := filepath.Join(t.TempDir(), "history.jsonl")

	for i := 0; i < 2; i++ {
		if _, _, err := runCLI(t, "-n", "3", "-c", "1", "-f", "json", "--history-file", path, srv.URL); err != nil {
			t.Fatalf("run %d error = %v", i, err)
		}
	}

	entries, err := output.ReadHistory(path)
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("history entries = %d, want 2", len(entries))
	}
	if entries[0].RunID == entries[1].RunID {
		t.Error("history entries share a run id")
	}
}

func TestRunWithMetricsEndpoint(t *testing.T) {
	isolateHome(t)
	srv, hits := newCountingServer(t, http.StatusOK)

	if _, _, err := runCLI(t, "-n", "6", "-c", "2", "-f", "json", "--metrics-addr", "127.0.0.1:0", srv.URL); err != nil {
		t.Fatalf("run error = %v", err)
	}
	if got := hits.Load(); got != 6 {
		t.Errorf("server hits = %d, want 6", got)
	}
}

func TestRunLogErrors(t *testing.T) {
	isolateHome(t)
	srv, _ := newCountingServer(t, http.StatusServiceUnavailable)

	_, stderr, err := runCLI(t, "-n", "2", "-c", "1", "-f", "json", "--log-errors", srv.URL)
	if !errors.Is(err, errRequestsFailed) {
		t.Fatalf("error = %v, want errRequestsFailed", err)
	}
	if !strings.Contains(stderr, "request failed") || !strings.Contains(stderr, "503") {
		t.Errorf("stderr does not log failures:\n%s", stderr)
	}
}

func TestRunSendsAuthHeader(t *testing.T) {
	isolateHome(t)
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	if _, _, err := runCLI(t, "-n", "1", "-c", "1", "-f", "json", "-a", "bearer:abc123", srv.URL); err != nil {
		t.Fatalf("run error = %v", err)
	}
	if header, _ := got.Load().(string); header != "Bearer abc123" {
		t.Errorf("Authorization = %q, want %q", header, "Bearer abc123")
	}
}

func TestRunDiagnose(t *testing.T) {
	isolateHome(t)
	srv, hits := newCountingServer(t, http.StatusOK)

	stdout, _, err := runCLI(t, "--diagnose", srv.URL)
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hits = %d, want 2 (cold and warm)", got)
	}
	if !strings.Contains(stdout, "Connection Diagnostics") {
		t.Errorf("diagnostics missing:\n%s", stdout)
	}
}

func TestRunLLMMarkdown(t *testing.T) {
	isolateHome(t)
	srv, _ := newCountingServer(t, http.StatusOK)

	stdout, _, err := runCLI(t, "-n", "3", "-c", "1", "--llm", "markdown", srv.URL)
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(stdout), "#") {
		t.Errorf("stdout is not markdown:\n%s", stdout)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"startup", errors.New("boom"), 1},
		{"failures", &failureError{failed: 3}, 1},
		{"thresholds", errThresholdsFailed, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFanOutProgress(t *testing.T) {
	if fanOutProgress(nil) != nil {
		t.Error("fanOutProgress(nil) should be nil")
	}

	var calls []float64
	record := func(_ metrics.Snapshot, p float64) { calls = append(calls, p) }
	fn := fanOutProgress([]runner.ProgressFunc{record, record})
	fn(metrics.Snapshot{}, 0.5)
	if len(calls) != 2 || calls[0] != 0.5 {
		t.Errorf("calls = %v, want two calls with 0.5", calls)
	}
}

func TestShowProgressOffForBuffers(t *testing.T) {
	cfg := &config.Config{Format: config.FormatText}
	if showProgress(cfg, &bytes.Buffer{}) {
		t.Error("progress enabled for a non-terminal writer")
	}
	cfg.LLM = config.LLMJSON
	if showProgress(cfg, os.Stdout) {
		t.Error("progress enabled for LLM output")
	}
}
