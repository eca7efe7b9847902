package clientmetrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/burl/internal/metrics"
)

func TestObserveCountsOutcomes(t *testing.T) {
	m := New()

	m.Observe(metrics.Outcome{Success: true, StatusCode: 200, Latency: 10 * time.Millisecond, Bytes: 128})
	m.Observe(metrics.Outcome{Success: true, StatusCode: 200, Latency: 20 * time.Millisecond, Bytes: 64})
	m.Observe(metrics.Outcome{Success: false, StatusCode: 503, Latency: 5 * time.Millisecond})
	m.Observe(metrics.Outcome{Success: false, Error: metrics.ErrorTimeout, Latency: time.Second})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("success", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("failure", "503")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("failure", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("timeout")))
	assert.Equal(t, 192.0, testutil.ToFloat64(m.bytes))
	assert.Equal(t, 1, testutil.CollectAndCount(m.latency))
}

func TestProgressSetsGauges(t *testing.T) {
	m := New()
	m.Progress(metrics.Snapshot{CurrentRPS: 42.5}, 0.25)

	assert.Equal(t, 0.25, testutil.ToFloat64(m.progress))
	assert.Equal(t, 42.5, testutil.ToFloat64(m.rps))
}

func TestNewWithRegistryRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewWithRegistry(reg, reg)

	assert.Panics(t, func() { NewWithRegistry(reg, reg) })
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.Observe(metrics.Outcome{Success: true, StatusCode: 204, Latency: time.Millisecond})

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `burl_requests_total{code="204",outcome="success"} 1`)
	assert.Contains(t, text, "burl_request_duration_seconds_count 1")
}

func TestServerServesUntilCanceled(t *testing.T) {
	m := New()
	srv, err := m.Listen("127.0.0.1:0", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + srv.Addr() + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && strings.Contains(string(body), "burl_run_progress_ratio")
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestListenRejectsBadAddress(t *testing.T) {
	_, err := New().Listen("not-an-address", nil)
	assert.Error(t, err)
}
