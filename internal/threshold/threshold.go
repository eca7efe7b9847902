// Package threshold evaluates pass/fail assertions against a finished run.
package threshold

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/torosent/burl/internal/metrics"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // e.g., "http_req_duration", "http_req_failed"
	Aggregate string  // e.g., "p95", "p99", "avg", "max", "rate"
	Operator  string  // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 // The threshold value to compare against
	Raw       string  // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against a benchmark result.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// AllPassed reports whether every result passed. An empty slice passes.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

// Evaluate checks all thresholds against the result. Metric values are looked
// up by path in the result's JSON encoding.
func (e *Evaluator) Evaluate(result metrics.Result) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	doc, err := json.Marshal(result)
	if err != nil {
		results := make([]Result, 0, len(e.thresholds))
		for _, t := range e.thresholds {
			results = append(results, failed(t, fmt.Errorf("encode result: %w", err)))
		}
		return results
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, doc))
	}
	return results
}

func failed(t Threshold, err error) Result {
	return Result{
		Threshold: t,
		Pass:      false,
		Message:   fmt.Sprintf("error: %v", err),
	}
}

func evaluateOne(t Threshold, doc []byte) Result {
	actual, err := extractMetricValue(t, doc)
	if err != nil {
		return failed(t, err)
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

var thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// paths maps metric and aggregate onto a gjson path into the encoded result.
// Failure rate is derived and handled separately.
var paths = map[string]map[string]string{
	"http_req_duration": {
		"p50":    "latency.p50",
		"p75":    "latency.p75",
		"p90":    "latency.p90",
		"p95":    "latency.p95",
		"p99":    "latency.p99",
		"p999":   "latency.p999",
		"avg":    "latency.mean",
		"mean":   "latency.mean",
		"med":    "latency.median",
		"min":    "latency.min",
		"max":    "latency.max",
		"stddev": "latency.stddev",
	},
	"http_req_failed": {
		"count": "failed_requests",
		"rate":  "",
	},
	"http_requests": {
		"count": "total_requests",
		"rate":  "requests_per_second",
	},
	"data_received": {
		"count": "total_bytes",
		"rate":  "bytes_per_second",
	},
}

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
// - "http_req_duration:p95 < 500"     (latency percentile in ms)
// - "http_req_duration:avg < 200"     (average latency in ms)
// - "http_req_failed:rate < 0.01"     (failure rate as decimal)
// - "http_req_failed:count < 10"      (failure count)
// - "http_requests:rate > 100"        (requests per second)
// - "data_received:rate > 1048576"    (bytes per second)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'http_req_duration:p95 < 500')", s)
	}

	metric, aggregate, operator, valueStr := matches[1], matches[2], matches[3], matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	aggregates, ok := paths[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: http_req_duration, http_req_failed, http_requests, data_received)", metric)
	}
	if _, ok := aggregates[aggregate]; !ok {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s", aggregate, metric)
	}
	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errors []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errors = append(errors, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errors, "; "))
	}

	return result, nil
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func extractMetricValue(t Threshold, doc []byte) (float64, error) {
	if t.Metric == "http_req_failed" && t.Aggregate == "rate" {
		values := gjson.GetManyBytes(doc, "failed_requests", "total_requests")
		total := values[1].Float()
		if total == 0 {
			return 0, nil
		}
		return values[0].Float() / total, nil
	}

	path, ok := paths[t.Metric][t.Aggregate]
	if !ok || path == "" {
		return 0, fmt.Errorf("unsupported aggregate %q for %s", t.Aggregate, t.Metric)
	}
	value := gjson.GetBytes(doc, path)
	if !value.Exists() {
		return 0, fmt.Errorf("metric %s not present in result", path)
	}
	return value.Float(), nil
}

func compareValues(actual float64, operator string, expected float64) bool {
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
