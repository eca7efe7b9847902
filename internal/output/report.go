package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/torosent/burl/internal/diagnose"
	"github.com/torosent/burl/internal/metrics"
	"github.com/torosent/burl/internal/threshold"
)

const ruleWidth = 60

// PrintHeader announces the target before the run starts.
func PrintHeader(w io.Writer, url, method string, connections int) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Target:      %s %s\n", method, url)
	fmt.Fprintf(w, "Connections: %d\n", connections)
	fmt.Fprintln(w)
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, result metrics.Result) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("═", ruleWidth))
	fmt.Fprintln(w, "  burl - HTTP Benchmark Results")
	fmt.Fprintln(w, strings.Repeat("═", ruleWidth))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  Target")
	fmt.Fprintf(w, "    URL:         %s\n", result.URL)
	fmt.Fprintf(w, "    Method:      %s\n", result.Method)
	fmt.Fprintf(w, "    Connections: %d\n", result.Connections)
	fmt.Fprintf(w, "    Duration:    %s\n", FormatDuration(result.DurationMs))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  Summary")
	fmt.Fprintf(w, "    Total Requests:  %s\n", FormatCount(result.TotalRequests))
	fmt.Fprintf(w, "    Successful:      %s\n", FormatCount(result.SuccessfulRequests))
	if result.FailedRequests > 0 {
		fmt.Fprintf(w, "    Failed:          %s\n", FormatCount(result.FailedRequests))
	}
	fmt.Fprintf(w, "    Requests/sec:    %.2f\n", result.RequestsPerSecond)
	fmt.Fprintf(w, "    Throughput:      %s\n", FormatThroughput(result.BytesPerSecond))
	fmt.Fprintf(w, "    Total Data:      %s\n", FormatBytes(result.TotalBytes))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  Latency")
	writeLatency(w, result.Latency)
	if result.CorrectedLatency != nil {
		fmt.Fprintln(w, "  Latency (coordinated-omission corrected)")
		writeLatency(w, *result.CorrectedLatency)
	}

	if rows := metrics.SortedStatusCodes(result.StatusCodes); len(rows) > 0 {
		fmt.Fprintln(w, "  Status Codes")
		for _, row := range rows {
			fmt.Fprintf(w, "    %d: %s (%.2f%%)\n", row.Code, FormatCount(row.Count), percentOf(row.Count, result.TotalRequests))
		}
		fmt.Fprintln(w)
	}

	if rows := metrics.SortedErrors(result.Errors); len(rows) > 0 {
		fmt.Fprintln(w, "  Errors")
		for _, row := range rows {
			fmt.Fprintf(w, "    %s: %s\n", row.Kind.Label(), FormatCount(row.Count))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("─", ruleWidth))
}

func writeLatency(w io.Writer, l metrics.LatencyStats) {
	fmt.Fprintf(w, "    Min:    %s\n", FormatLatency(l.Min))
	fmt.Fprintf(w, "    Max:    %s\n", FormatLatency(l.Max))
	fmt.Fprintf(w, "    Mean:   %s\n", FormatLatency(l.Mean))
	fmt.Fprintf(w, "    StdDev: %s\n", FormatLatency(l.StdDev))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "    P50:    %s\n", FormatLatency(l.P50))
	fmt.Fprintf(w, "    P75:    %s\n", FormatLatency(l.P75))
	fmt.Fprintf(w, "    P90:    %s\n", FormatLatency(l.P90))
	fmt.Fprintf(w, "    P95:    %s\n", FormatLatency(l.P95))
	fmt.Fprintf(w, "    P99:    %s\n", FormatLatency(l.P99))
	fmt.Fprintf(w, "    P99.9:  %s\n", FormatLatency(l.P999))
	fmt.Fprintln(w)
}

// PrintThresholds lists each assertion with its verdict.
func PrintThresholds(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	passed := 0
	for _, r := range results {
		if r.Pass {
			passed++
		}
	}
	fmt.Fprintf(w, "\nThresholds: %d/%d passed\n", passed, len(results))
	for _, r := range results {
		fmt.Fprintf(w, "  %s\n", r.Message)
	}
}

// PrintDiagnostics renders the cold and warm timing breakdowns side by side
// with the connection details.
func PrintDiagnostics(w io.Writer, res diagnose.Result) {
	maxPhase := maxDuration(
		res.Cold.DNS, res.Cold.Connect, res.Cold.TLS, res.Cold.TTFB, res.Cold.Transfer,
		res.Warm.TTFB, res.Warm.Transfer,
	)

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("═", ruleWidth))
	fmt.Fprintln(w, "  burl - Connection Diagnostics")
	fmt.Fprintln(w, strings.Repeat("═", ruleWidth))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Target: %s %s\n\n", res.Method, res.URL)

	writeTiming(w, "Cold Connection (first request)", res.Cold, maxPhase)
	writeTiming(w, "Warm Connection (reused)", res.Warm, maxPhase)

	d := res.Details
	fmt.Fprintln(w, "  Connection Details")
	fmt.Fprintf(w, "    Remote Address:   %s\n", d.RemoteAddr)
	fmt.Fprintf(w, "    Protocol:         %s\n", d.Protocol)
	if d.TLSVersion != "" {
		fmt.Fprintf(w, "    TLS:              %s\n", d.TLSVersion)
	}
	if d.Server != "" {
		fmt.Fprintf(w, "    Server:           %s\n", d.Server)
	}
	fmt.Fprintf(w, "    Status:           %d\n", res.StatusCode)
	fmt.Fprintf(w, "    Response Size:    %s\n", FormatBytes(res.ResponseSize))
	if d.ContentType != "" {
		fmt.Fprintf(w, "    Content-Type:     %s\n", d.ContentType)
	}
	fmt.Fprintln(w)
}

func writeTiming(w io.Writer, title string, t diagnose.Timing, maxPhase time.Duration) {
	fmt.Fprintf(w, "  ┌─ %s\n", title)
	writePhase(w, "DNS Lookup", t.DNS, maxPhase)
	writePhase(w, "TCP Connect", t.Connect, maxPhase)
	writePhase(w, "TLS Handshake", t.TLS, maxPhase)
	writePhase(w, "TTFB", t.TTFB, maxPhase)
	writePhase(w, "Transfer", t.Transfer, maxPhase)
	fmt.Fprintf(w, "  │  %-14s %s %10s\n", "Total", strings.Repeat(" ", progressBarWidth+2), FormatLatency(durationMs(t.Total)))
	fmt.Fprintf(w, "  └%s\n\n", strings.Repeat("─", ruleWidth-2))
}

func writePhase(w io.Writer, label string, d, maxPhase time.Duration) {
	ratio := 0.0
	if maxPhase > 0 {
		ratio = float64(d) / float64(maxPhase)
	}
	fmt.Fprintf(w, "  │  %-14s %s %10s\n", label, progressBar(ratio), FormatLatency(durationMs(d)))
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func maxDuration(values ...time.Duration) time.Duration {
	var m time.Duration
	for _, v := range values {
		m = max(m, v)
	}
	return m
}
