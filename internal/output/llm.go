package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/torosent/burl/internal/config"
	"github.com/torosent/burl/internal/metrics"
)

// Version is stamped into machine-readable reports. Overridden at build time
// with -ldflags "-X github.com/torosent/burl/internal/output.Version=...".
var Version = "dev"

const llmSchemaURL = "https://burl.dev/schema/v1/result.json"

// Performance is the coarse grade given to a run in LLM reports.
type Performance string

const (
	PerformanceExcellent Performance = "excellent"
	PerformanceGood      Performance = "good"
	PerformanceFair      Performance = "fair"
	PerformancePoor      Performance = "poor"
)

type llmReport struct {
	Schema         string            `json:"$schema"`
	Version        string            `json:"version"`
	Benchmark      llmBenchmark      `json:"benchmark"`
	Summary        llmSummary        `json:"summary"`
	LatencyMs      llmLatency        `json:"latency_ms"`
	StatusCodes    map[string]int64  `json:"status_codes"`
	Errors         map[string]int64  `json:"errors"`
	Interpretation llmInterpretation `json:"interpretation"`
}

type llmBenchmark struct {
	URL             string  `json:"url"`
	Method          string  `json:"method"`
	Connections     int     `json:"connections"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type llmSummary struct {
	TotalRequests      int64   `json:"total_requests"`
	SuccessfulRequests int64   `json:"successful_requests"`
	FailedRequests     int64   `json:"failed_requests"`
	RequestsPerSecond  float64 `json:"requests_per_second"`
	BytesPerSecond     float64 `json:"bytes_per_second"`
	SuccessRate        float64 `json:"success_rate"`
}

type llmLatency struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
	P50    float64 `json:"p50"`
	P75    float64 `json:"p75"`
	P90    float64 `json:"p90"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
	P999   float64 `json:"p999"`
}

type llmInterpretation struct {
	Performance     Performance `json:"performance"`
	Issues          []string    `json:"issues"`
	Recommendations []string    `json:"recommendations"`
}

// ExportLLM writes a report shaped for language-model consumption.
func ExportLLM(w io.Writer, result metrics.Result, kind config.LLMFormat) error {
	switch kind {
	case config.LLMJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(buildLLMReport(result))
	case config.LLMMarkdown:
		_, err := io.WriteString(w, llmMarkdown(result))
		return err
	default:
		return fmt.Errorf("unsupported llm format %q", kind)
	}
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func buildLLMReport(r metrics.Result) llmReport {
	issues, recommendations := Analyze(r)

	statusCodes := make(map[string]int64, len(r.StatusCodes))
	for code, count := range r.StatusCodes {
		statusCodes[strconv.Itoa(code)] = count
	}
	errs := make(map[string]int64, len(r.Errors))
	for kind, count := range r.Errors {
		errs[string(kind)] = count
	}

	l := r.Latency
	return llmReport{
		Schema:  llmSchemaURL,
		Version: Version,
		Benchmark: llmBenchmark{
			URL:             r.URL,
			Method:          r.Method,
			Connections:     r.Connections,
			DurationSeconds: r.DurationMs / 1000,
		},
		Summary: llmSummary{
			TotalRequests:      r.TotalRequests,
			SuccessfulRequests: r.SuccessfulRequests,
			FailedRequests:     r.FailedRequests,
			RequestsPerSecond:  roundTo(r.RequestsPerSecond, 2),
			BytesPerSecond:     math.Round(r.BytesPerSecond),
			SuccessRate:        roundTo(r.SuccessRate(), 4),
		},
		LatencyMs: llmLatency{
			Min:    roundTo(l.Min, 3),
			Max:    roundTo(l.Max, 3),
			Mean:   roundTo(l.Mean, 3),
			Median: roundTo(l.Median, 3),
			StdDev: roundTo(l.StdDev, 3),
			P50:    roundTo(l.P50, 3),
			P75:    roundTo(l.P75, 3),
			P90:    roundTo(l.P90, 3),
			P95:    roundTo(l.P95, 3),
			P99:    roundTo(l.P99, 3),
			P999:   roundTo(l.P999, 3),
		},
		StatusCodes: statusCodes,
		Errors:      errs,
		Interpretation: llmInterpretation{
			Performance:     Grade(r),
			Issues:          issues,
			Recommendations: recommendations,
		},
	}
}

// Grade rates a run by success rate first and p99 latency second.
func Grade(r metrics.Result) Performance {
	rate := r.SuccessRate()
	switch {
	case rate < 0.95:
		return PerformancePoor
	case rate < 0.99:
		return PerformanceFair
	}

	switch p99 := r.Latency.P99; {
	case p99 < 100:
		return PerformanceExcellent
	case p99 < 500:
		return PerformanceGood
	case p99 < 2000:
		return PerformanceFair
	default:
		return PerformancePoor
	}
}

// Analyze lists detected issues and follow-up recommendations. Both slices
// are non-nil so they encode as empty JSON arrays.
func Analyze(r metrics.Result) (issues, recommendations []string) {
	issues = []string{}
	recommendations = []string{}

	if r.TotalRequests > 0 {
		errorRate := float64(r.FailedRequests) / float64(r.TotalRequests)
		if errorRate > 0.01 {
			issues = append(issues, fmt.Sprintf("%d requests failed (%.2f%% error rate)", r.FailedRequests, errorRate*100))
		}
	}

	var tailRatio float64
	if r.Latency.P50 > 0 {
		tailRatio = r.Latency.P99 / r.Latency.P50
	}
	if tailRatio > 5 {
		issues = append(issues, fmt.Sprintf(
			"p99 latency (%.1fms) is %.1fx higher than median (%.1fms), indicating tail latency issues",
			r.Latency.P99, tailRatio, r.Latency.P50,
		))
	}

	if serverErrors := metrics.ServerErrors(r.StatusCodes); serverErrors > 0 {
		issues = append(issues, fmt.Sprintf("%d server errors (5xx) detected (%.2f%%)", serverErrors, percentOf(serverErrors, r.TotalRequests)))
		recommendations = append(recommendations, "Investigate server logs for 5xx error root cause")
	}
	if r.Errors[metrics.ErrorTimeout] > 0 {
		recommendations = append(recommendations, "Consider increasing timeout or investigating server response time")
	}
	if r.Errors[metrics.ErrorConnectionRefused] > 0 {
		recommendations = append(recommendations, "Server may be overloaded or not accepting connections")
	}
	if tailRatio > 3 {
		recommendations = append(recommendations, "Consider connection pooling or load balancing to reduce tail latency")
	}
	if r.Latency.P50 > 1000 {
		recommendations = append(recommendations, "Median latency exceeds 1 second - investigate server performance")
	}
	return issues, recommendations
}

func llmMarkdown(r metrics.Result) string {
	issues, recommendations := Analyze(r)

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
	line("- **Duration**: %s", FormatDuration(r.DurationMs))
	line("- **Concurrency**: %d connections", r.Connections)
	line("")

	line("## Summary")
	line("| Metric | Value |")
	line("|--------|-------|")
	line("| Total Requests | %s |", FormatCount(r.TotalRequests))
	line("| Success Rate | %.2f%% |", r.SuccessRate()*100)
	line("| Requests/sec | %.2f |", r.RequestsPerSecond)
	line("| Throughput | %s |", FormatThroughput(r.BytesPerSecond))
	line("")

	line("## Latency (milliseconds)")
	line("| Percentile | Value |")
	line("|------------|-------|")
	line("| Min | %.2f |", r.Latency.Min)
	line("| p50 (Median) | %.2f |", r.Latency.P50)
	line("| p90 | %.2f |", r.Latency.P90)
	line("| p95 | %.2f |", r.Latency.P95)
	line("| p99 | %.2f |", r.Latency.P99)
	line("| Max | %.2f |", r.Latency.Max)
	line("")

	if rows := metrics.SortedStatusCodes(r.StatusCodes); len(rows) > 0 {
		line("## Status Codes")
		for _, row := range rows {
			label := strconv.Itoa(row.Code)
			if text := http.StatusText(row.Code); text != "" {
				label += " " + text
			}
			line("- `%s`: %s (%.2f%%)", label, FormatCount(row.Count), percentOf(row.Count, r.TotalRequests))
		}
		line("")
	}

	if len(issues) > 0 {
		line("## Issues Detected")
		for i, issue := range issues {
			line("%d. %s", i+1, issue)
		}
		line("")
	}

	if len(recommendations) > 0 {
		line("## Recommendations")
		for i, rec := range recommendations {
			line("%d. %s", i+1, rec)
		}
		line("")
	}

	return b.String()
}
