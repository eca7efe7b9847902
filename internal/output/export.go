package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/torosent/burl/internal/config"
	"github.com/torosent/burl/internal/metrics"
)

// Export writes result in the requested format. Text falls through to PrintReport.
func Export(w io.Writer, result metrics.Result, format config.Format) error {
	switch format {
	case "", config.FormatText:
		PrintReport(w, result)
		return nil
	case config.FormatJSON:
		return PrintJSONReport(w, result)
	case config.FormatCSV:
		return writeCSV(w, result)
	case config.FormatMarkdown:
		_, err := io.WriteString(w, markdownReport(result))
		return err
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, result metrics.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func writeCSV(w io.Writer, r metrics.Result) error {
	f3 := func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
	f2 := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	i := func(v int64) string { return strconv.FormatInt(v, 10) }

	rows := [][]string{
		{"metric", "value"},
		{"url", r.URL},
		{"method", r.Method},
		{"connections", strconv.Itoa(r.Connections)},
		{"duration_ms", f3(r.DurationMs)},
		{"total_requests", i(r.TotalRequests)},
		{"successful_requests", i(r.SuccessfulRequests)},
		{"failed_requests", i(r.FailedRequests)},
		{"requests_per_second", f2(r.RequestsPerSecond)},
		{"bytes_per_second", f2(r.BytesPerSecond)},
		{"total_bytes", i(r.TotalBytes)},
		{"latency_min_ms", f3(r.Latency.Min)},
		{"latency_max_ms", f3(r.Latency.Max)},
		{"latency_mean_ms", f3(r.Latency.Mean)},
		{"latency_median_ms", f3(r.Latency.Median)},
		{"latency_stddev_ms", f3(r.Latency.StdDev)},
		{"latency_p50_ms", f3(r.Latency.P50)},
		{"latency_p75_ms", f3(r.Latency.P75)},
		{"latency_p90_ms", f3(r.Latency.P90)},
		{"latency_p95_ms", f3(r.Latency.P95)},
		{"latency_p99_ms", f3(r.Latency.P99)},
		{"latency_p999_ms", f3(r.Latency.P999)},
	}
	for _, row := range metrics.SortedStatusCodes(r.StatusCodes) {
		rows = append(rows, []string{"status_" + strconv.Itoa(row.Code), i(row.Count)})
	}
	for _, row := range metrics.SortedErrors(r.Errors) {
		rows = append(rows, []string{"error_" + string(row.Kind), i(row.Count)})
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func markdownReport(r metrics.Result) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("# HTTP Benchmark Results")
	line("")
	line("## Target")
	line("- **URL**: %s", r.URL)
	line("- **Method**: %s", r.Method)
	line("- **Connections**: %d", r.Connections)
	line("- **Duration**: %s", FormatDuration(r.DurationMs))
	line("")

	line("## Summary")
	line("| Metric | Value |")
	line("|--------|-------|")
	line("| Total Requests | %s |", FormatCount(r.TotalRequests))
	line("| Successful | %s |", FormatCount(r.SuccessfulRequests))
	line("| Failed | %s |", FormatCount(r.FailedRequests))
	line("| Success Rate | %.2f%% |", r.SuccessRate()*100)
	line("| Requests/sec | %.2f |", r.RequestsPerSecond)
	line("| Throughput | %s |", FormatThroughput(r.BytesPerSecond))
	line("| Total Data | %s |", FormatBytes(r.TotalBytes))
	line("")

	line("## Latency")
	line("| Percentile | Value |")
	line("|------------|-------|")
	line("| Min | %s |", FormatLatency(r.Latency.Min))
	line("| P50 (Median) | %s |", FormatLatency(r.Latency.P50))
	line("| P75 | %s |", FormatLatency(r.Latency.P75))
	line("| P90 | %s |", FormatLatency(r.Latency.P90))
	line("| P95 | %s |", FormatLatency(r.Latency.P95))
	line("| P99 | %s |", FormatLatency(r.Latency.P99))
	line("| P99.9 | %s |", FormatLatency(r.Latency.P999))
	line("| Max | %s |", FormatLatency(r.Latency.Max))
	line("| Mean | %s |", FormatLatency(r.Latency.Mean))
	line("| StdDev | %s |", FormatLatency(r.Latency.StdDev))
	line("")

	if rows := metrics.SortedStatusCodes(r.StatusCodes); len(rows) > 0 {
		line("## Status Codes")
		line("| Code | Count | Percentage |")
		line("|------|-------|------------|")
		for _, row := range rows {
			line("| %d | %s | %.2f%% |", row.Code, FormatCount(row.Count), percentOf(row.Count, r.TotalRequests))
		}
		line("")
	}

	if rows := metrics.SortedErrors(r.Errors); len(rows) > 0 {
		line("## Errors")
		line("| Type | Count |")
		line("|------|-------|")
		for _, row := range rows {
			line("| %s | %s |", row.Kind, FormatCount(row.Count))
		}
		line("")
	}

	return b.String()
}
