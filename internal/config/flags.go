package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "burl <url>",
		Short:         "HTTP load testing from the command line",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Request flags
	flags.StringP("method", "m", "GET", "HTTP method")
	flags.StringArrayP("header", "H", nil, "Custom header in \"Key: Value\" form (repeatable)")
	flags.StringP("body", "b", "", "Request body")
	flags.StringP("body-file", "B", "", "Request body from file")
	flags.StringP("content-type", "T", "", "Content-Type header")

	// Load control flags
	flags.IntP("connections", "c", DefaultConnections, "Number of concurrent connections")
	flags.StringP("duration", "d", "10s", "Test duration (e.g. 10s, 1m, 5m30s)")
	flags.IntP("requests", "n", 0, "Total number of requests (overrides --duration)")
	flags.Float64P("qps", "q", 0, "Rate limit in queries per second (0 means unlimited)")
	flags.StringP("timeout", "t", "30s", "Request timeout")
	flags.IntP("warmup", "w", 0, "Number of warmup requests")
	flags.String("arrival-model", "fixed", "Pacing under --qps: fixed, uniform or poisson")
	flags.Bool("latency-correction", false, "Report coordinated-omission corrected latency (requires --qps)")

	// Protocol flags
	flags.Bool("http1", false, "Force HTTP/1.1")
	flags.Bool("http2", false, "Force HTTP/2")
	flags.Bool("http3", false, "Force HTTP/3 (not supported)")
	flags.StringP("auth", "a", "", "Auth: basic:user:pass or bearer:token")
	flags.BoolP("insecure", "k", false, "Skip TLS verification")

	// Output flags
	flags.String("llm", "", "LLM-optimized output: json or markdown")
	flags.StringP("output", "o", "", "Output file")
	flags.StringP("format", "f", "text", "Output format: text, json, csv, markdown, yaml")
	flags.Bool("no-progress", false, "Disable the live progress line")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.Bool("quiet", false, "Minimal output")
	flags.Bool("log-errors", false, "Log each failed request to stderr")
	flags.String("history-file", "", "Append a JSON line per run to this file")

	// Diagnostics and assertions
	flags.Bool("diagnose", false, "Run connection diagnostics instead of a benchmark")
	flags.StringArray("threshold", nil, "Performance thresholds (repeatable, e.g. 'http_req_duration:p95 < 500')")
	flags.String("metrics-addr", "", "Serve live Prometheus metrics on this address (e.g. :9090)")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP endpoint for request spans")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of requests traced (0.0 to 1.0)")
	flags.Bool("tracing-propagate", true, "Inject W3C trace headers into requests")

	// Config file flags
	flags.String("config", "", "Path to configuration file (JSON or YAML, default ./.burlrc or ~/.burlrc)")
	flags.String("profile", "", "Named profile from the configuration file")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// parseHeader splits a "Key: Value" header. Values may contain colons.
func parseHeader(entry string) (string, string, error) {
	idx := strings.Index(entry, ":")
	if idx == -1 {
		return "", "", fmt.Errorf("header must be in \"Key: Value\" format: %s", entry)
	}
	key := http.CanonicalHeaderKey(strings.TrimSpace(entry[:idx]))
	if key == "" {
		return "", "", fmt.Errorf("header key cannot be empty")
	}
	return key, strings.TrimSpace(entry[idx+1:]), nil
}

func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("method") {
		val, err := fs.GetString("method")
		if err != nil {
			return err
		}
		cfg.Method = val
	}
	if fs.Changed("body") {
		val, err := fs.GetString("body")
		if err != nil {
			return err
		}
		cfg.Body = val
		cfg.BodyFile = ""
	}
	if fs.Changed("body-file") {
		val, err := fs.GetString("body-file")
		if err != nil {
			return err
		}
		cfg.BodyFile = val
		cfg.Body = ""
	}
	if fs.Changed("content-type") {
		val, err := fs.GetString("content-type")
		if err != nil {
			return err
		}
		cfg.ContentType = strings.TrimSpace(val)
	}
	if fs.Changed("connections") {
		val, err := fs.GetInt("connections")
		if err != nil {
			return err
		}
		cfg.Connections = val
	}
	if fs.Changed("duration") {
		val, err := fs.GetString("duration")
		if err != nil {
			return err
		}
		dur, err := ParseDuration(val)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = dur
	}
	if fs.Changed("requests") {
		val, err := fs.GetInt("requests")
		if err != nil {
			return err
		}
		cfg.Requests = val
	}
	if fs.Changed("qps") {
		val, err := fs.GetFloat64("qps")
		if err != nil {
			return err
		}
		cfg.QPS = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetString("timeout")
		if err != nil {
			return err
		}
		dur, err := ParseDuration(val)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}
	if fs.Changed("warmup") {
		val, err := fs.GetInt("warmup")
		if err != nil {
			return err
		}
		cfg.Warmup = val
	}
	if fs.Changed("arrival-model") {
		val, err := fs.GetString("arrival-model")
		if err != nil {
			return err
		}
		cfg.ArrivalModel = parseArrivalModel(val)
	}
	if fs.Changed("latency-correction") {
		val, err := fs.GetBool("latency-correction")
		if err != nil {
			return err
		}
		cfg.LatencyCorrection = val
	}

	// Last explicit version flag wins in the order http1, http2, http3.
	for _, version := range []struct {
		flag  string
		value HTTPVersion
	}{{"http1", HTTPVersion1}, {"http2", HTTPVersion2}, {"http3", HTTPVersion3}} {
		if !fs.Changed(version.flag) {
			continue
		}
		val, err := fs.GetBool(version.flag)
		if err != nil {
			return err
		}
		if val {
			cfg.HTTPVersion = version.value
		}
	}

	if fs.Changed("auth") {
		val, err := fs.GetString("auth")
		if err != nil {
			return err
		}
		cfg.Auth = val
	}
	if fs.Changed("insecure") {
		val, err := fs.GetBool("insecure")
		if err != nil {
			return err
		}
		cfg.Insecure = val
	}
	if fs.Changed("llm") {
		val, err := fs.GetString("llm")
		if err != nil {
			return err
		}
		cfg.LLM = LLMFormat(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output = strings.TrimSpace(val)
	}
	if fs.Changed("format") {
		val, err := fs.GetString("format")
		if err != nil {
			return err
		}
		cfg.Format = Format(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("no-progress") {
		val, err := fs.GetBool("no-progress")
		if err != nil {
			return err
		}
		cfg.NoProgress = val
	}
	if fs.Changed("verbose") {
		val, err := fs.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = val
	}
	if fs.Changed("quiet") {
		val, err := fs.GetBool("quiet")
		if err != nil {
			return err
		}
		cfg.Quiet = val
	}
	if fs.Changed("log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}
	if fs.Changed("history-file") {
		val, err := fs.GetString("history-file")
		if err != nil {
			return err
		}
		cfg.HistoryFile = strings.TrimSpace(val)
	}
	if fs.Changed("diagnose") {
		val, err := fs.GetBool("diagnose")
		if err != nil {
			return err
		}
		cfg.Diagnose = val
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringArray("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}
	if fs.Changed("metrics-addr") {
		val, err := fs.GetString("metrics-addr")
		if err != nil {
			return err
		}
		cfg.MetricsAddr = strings.TrimSpace(val)
	}

	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = &val
	}

	vals, err := fs.GetStringArray("header")
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for _, entry := range vals {
			key, value, err := parseHeader(entry)
			if err != nil {
				return err
			}
			cfg.Headers[key] = value
		}
	}

	return nil
}
