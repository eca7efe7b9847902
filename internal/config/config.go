package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/torosent/burl/internal/auth"
	"github.com/torosent/burl/internal/runner"
	"github.com/torosent/burl/internal/threshold"
)

const (
	DefaultConnections = 10
	DefaultDuration    = 10 * time.Second
	DefaultTimeout     = 30 * time.Second
)

type HTTPVersion string

const (
	HTTPVersionAuto HTTPVersion = "auto"
	HTTPVersion1    HTTPVersion = "1.1"
	HTTPVersion2    HTTPVersion = "2"
	HTTPVersion3    HTTPVersion = "3"
)

type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatYAML     Format = "yaml"
)

type LLMFormat string

const (
	LLMNone     LLMFormat = ""
	LLMJSON     LLMFormat = "json"
	LLMMarkdown LLMFormat = "markdown"
)

type Config struct {
	TargetURL   string            `mapstructure:"url"`
	Method      string            `mapstructure:"method"`
	Headers     map[string]string `mapstructure:"headers"`
	Body        string            `mapstructure:"body"`
	BodyFile    string            `mapstructure:"body_file"`
	ContentType string            `mapstructure:"content_type"`

	Connections int           `mapstructure:"connections"`
	Duration    time.Duration `mapstructure:"duration"`
	Requests    int           `mapstructure:"requests"`
	QPS         float64       `mapstructure:"qps"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Warmup      int           `mapstructure:"warmup"`

	HTTPVersion HTTPVersion `mapstructure:"-"`
	Auth        string      `mapstructure:"auth"`
	Insecure    bool        `mapstructure:"insecure"`

	LLM        LLMFormat `mapstructure:"llm"`
	Output     string    `mapstructure:"output"`
	Format     Format    `mapstructure:"format"`
	NoProgress bool      `mapstructure:"no_progress"`
	Verbose    bool      `mapstructure:"verbose"`
	Quiet      bool      `mapstructure:"quiet"`
	LogErrors  bool      `mapstructure:"log_errors"`

	LatencyCorrection bool                `mapstructure:"latency_correction"`
	ArrivalModel      runner.ArrivalModel `mapstructure:"arrival_model"`
	Thresholds        []string            `mapstructure:"thresholds"`
	Diagnose          bool                `mapstructure:"diagnose"`
	MetricsAddr       string              `mapstructure:"metrics_addr"`
	HistoryFile       string              `mapstructure:"history_file"`
	Tracing           TracingConfig       `mapstructure:"tracing"`

	ConfigFile string `mapstructure:"-"`
	Profile    string `mapstructure:"-"`
}

// TracingConfig configures OpenTelemetry export of per-request client spans.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   *bool   `mapstructure:"propagate"` // nil means propagate when enabled
}

// Enabled reports whether an OTLP endpoint is configured, directly or via environment.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate reports whether W3C trace headers should be injected into requests.
func (t TracingConfig) ShouldPropagate() bool {
	if !t.Enabled() {
		return false
	}
	return t.Propagate == nil || *t.Propagate
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	target := strings.TrimSpace(c.TargetURL)
	if target == "" {
		issues = append(issues, "url is required (use --help for usage information)")
	} else if u, err := url.Parse(target); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		issues = append(issues, fmt.Sprintf("url %q must be an absolute http or https URL", target))
	}

	if c.QPS > 10000 {
		fmt.Fprintf(os.Stderr, "WARNING: High QPS configured (%g). Ensure you have authorization to test the target system.\n", c.QPS)
	}
	if c.Connections > 1000 {
		fmt.Fprintf(os.Stderr, "WARNING: High connection count configured (%d). Ensure you have authorization to test the target system.\n", c.Connections)
	}

	if c.Connections < 1 {
		issues = append(issues, "connections must be >= 1")
	}
	if c.QPS < 0 {
		issues = append(issues, "qps must be >= 0")
	}
	if c.Requests < 0 {
		issues = append(issues, "requests must be >= 0")
	}
	if c.Warmup < 0 {
		issues = append(issues, "warmup must be >= 0")
	}
	if c.Duration < 0 {
		issues = append(issues, "duration must be >= 0")
	}
	if c.Timeout <= 0 {
		issues = append(issues, "timeout must be > 0")
	}
	if c.Requests > 0 && c.Duration > 0 {
		issues = append(issues, "requests and duration are mutually exclusive")
	}
	if c.Body != "" && strings.TrimSpace(c.BodyFile) != "" {
		issues = append(issues, "body and bodyFile are mutually exclusive")
	}
	if c.Verbose && c.Quiet {
		issues = append(issues, "verbose and quiet are mutually exclusive")
	}

	switch c.HTTPVersion {
	case "", HTTPVersionAuto, HTTPVersion1, HTTPVersion2:
	case HTTPVersion3:
		issues = append(issues, "http3 is not supported by this client")
	default:
		issues = append(issues, fmt.Sprintf("unknown http version %q", c.HTTPVersion))
	}

	switch c.Format {
	case "", FormatText, FormatJSON, FormatCSV, FormatMarkdown, FormatYAML:
	default:
		issues = append(issues, fmt.Sprintf("format must be one of text, json, csv, markdown, yaml (got %q)", c.Format))
	}
	switch c.LLM {
	case LLMNone, LLMJSON, LLMMarkdown:
	default:
		issues = append(issues, fmt.Sprintf("llm must be json or markdown (got %q)", c.LLM))
	}
	if c.ArrivalModel != "" && !c.ArrivalModel.Valid() {
		issues = append(issues, fmt.Sprintf("arrival model must be fixed, uniform or poisson (got %q)", c.ArrivalModel))
	}

	if strings.TrimSpace(c.Auth) != "" {
		if _, err := auth.Parse(c.Auth); err != nil {
			issues = append(issues, fmt.Sprintf("auth: %v", err))
		}
	}
	if _, err := threshold.ParseMultiple(c.Thresholds); err != nil {
		issues = append(issues, err.Error())
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing sample rate must be between 0 and 1 (got %g)", c.Tracing.SampleRate))
	}
	switch strings.ToLower(c.Tracing.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing protocol must be grpc or http (got %q)", c.Tracing.Protocol))
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// RunnerOptions maps the load settings onto engine options.
func (c Config) RunnerOptions(req runner.Requester) runner.Options {
	return runner.Options{
		Connections:       c.Connections,
		TotalRequests:     c.Requests,
		Duration:          c.Duration,
		QPS:               c.QPS,
		Warmup:            c.Warmup,
		ArrivalModel:      c.ArrivalModel,
		Requester:         req,
		URL:               c.TargetURL,
		Method:            c.Method,
		LatencyCorrection: c.LatencyCorrection,
	}
}
