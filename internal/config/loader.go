package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/torosent/burl/internal/runner"
)

// DefaultConfigName is the file looked up in the working and home directories.
const DefaultConfigName = ".burlrc"

// Loader handles loading configuration from files and command-line arguments.
type Loader struct {
	// SearchPaths are tried in order when --config is not given.
	SearchPaths []string
}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a Loader that searches ./.burlrc and then ~/.burlrc.
func NewLoader() *Loader {
	paths := []string{DefaultConfigName}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, DefaultConfigName))
	}
	return &Loader{SearchPaths: paths}
}

// Load parses command-line arguments and configuration files to produce a Config.
// Precedence, lowest first: defaults, config file, profile, explicitly set flags.
func (l Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	if len(args) == 0 {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}
	if flagSet.NArg() > 1 {
		return nil, fmt.Errorf("expected a single url argument, got %d", flagSet.NArg())
	}

	configPath := flagSet.Lookup("config").Value.String()
	profile := strings.TrimSpace(flagSet.Lookup("profile").Value.String())

	settings, usedPath, err := l.readSettings(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Method:       "GET",
		Headers:      map[string]string{},
		Connections:  DefaultConnections,
		Duration:     DefaultDuration,
		Timeout:      DefaultTimeout,
		HTTPVersion:  HTTPVersionAuto,
		Format:       FormatText,
		ArrivalModel: runner.ArrivalModelFixed,
		Tracing:      TracingConfig{Protocol: "grpc", SampleRate: 1.0},
		ConfigFile:   usedPath,
		Profile:      profile,
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if profile != "" {
		profileSettings, err := lookupProfile(settings, profile)
		if err != nil {
			return nil, err
		}
		if err := applyConfigSettings(cfg, profileSettings); err != nil {
			return nil, fmt.Errorf("profile %q: %w", profile, err)
		}
	}

	if flagSet.NArg() == 1 {
		cfg.TargetURL = flagSet.Arg(0)
	}
	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)
	cfg.BodyFile = strings.TrimSpace(cfg.BodyFile)
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	if cfg.ContentType != "" {
		cfg.Headers["Content-Type"] = cfg.ContentType
	}
	// A request count replaces the default or configured duration.
	if cfg.Requests > 0 {
		cfg.Duration = 0
	}

	return cfg, nil
}

// readSettings loads the explicit config file, or the first search path that exists.
func (l Loader) readSettings(explicit string) (fileSettings, string, error) {
	path := strings.TrimSpace(explicit)
	if path == "" {
		for _, candidate := range l.SearchPaths {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				path = candidate
				break
			}
		}
	}
	if path == "" {
		return fileSettings{}, "", nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" || filepath.Base(path) == DefaultConfigName {
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, "", fmt.Errorf("config file %s: %w", path, err)
	}
	settings, err := newFileSettings(v.AllSettings())
	if err != nil {
		return nil, "", fmt.Errorf("config file %s: %w", path, err)
	}
	return settings, path, nil
}

// lookupProfile returns the profiles.<name> section of the config file.
func lookupProfile(settings fileSettings, name string) (fileSettings, error) {
	profiles, ok := newDecoder(settings).Section("profiles")
	if !ok {
		return nil, fmt.Errorf("profile %q not found: config has no profiles", name)
	}
	entry, ok := profiles.Section(name)
	if err := profiles.Err(); err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("profile %q not found", name)
	}
	return entry.values, nil
}

// applyConfigSettings copies the fields present in one settings level onto cfg.
// Absent keys leave cfg untouched so a profile only overrides what it names.
func applyConfigSettings(cfg *Config, settings fileSettings) error {
	if len(settings) == 0 {
		return nil
	}
	d := newDecoder(settings)

	if v, ok := d.String("url", "target"); ok {
		cfg.TargetURL = v
	}
	if v, ok := d.String("method"); ok && v != "" {
		cfg.Method = v
	}
	if hdrs, ok := d.Headers("headers"); ok {
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for k, v := range hdrs {
			cfg.Headers[http.CanonicalHeaderKey(strings.TrimSpace(k))] = v
		}
	}
	if v, ok := d.RawString("body"); ok {
		cfg.Body = v
		cfg.BodyFile = ""
	}
	if v, ok := d.String("body_file"); ok {
		cfg.BodyFile = v
	}
	if v, ok := d.String("content_type"); ok {
		cfg.ContentType = v
	}

	if v, ok := d.Int("connections"); ok {
		cfg.Connections = v
	}
	if v, ok := d.Duration("duration"); ok {
		cfg.Duration = v
	}
	if v, ok := d.Int("requests"); ok {
		cfg.Requests = v
	}
	if v, ok := d.Float("qps"); ok {
		cfg.QPS = v
	}
	if v, ok := d.Duration("timeout"); ok {
		cfg.Timeout = v
	}
	if v, ok := d.Int("warmup"); ok {
		cfg.Warmup = v
	}

	for _, version := range []struct {
		key   string
		value HTTPVersion
	}{{"http1", HTTPVersion1}, {"http2", HTTPVersion2}, {"http3", HTTPVersion3}} {
		if on, ok := d.Bool(version.key); ok && on {
			cfg.HTTPVersion = version.value
		}
	}
	if v, ok := d.String("auth"); ok {
		cfg.Auth = v
	}
	if v, ok := d.Bool("insecure"); ok {
		cfg.Insecure = v
	}

	if v, ok := d.String("llm"); ok {
		cfg.LLM = LLMFormat(strings.ToLower(v))
	}
	if v, ok := d.String("output"); ok {
		cfg.Output = v
	}
	if v, ok := d.String("format"); ok && v != "" {
		cfg.Format = Format(strings.ToLower(v))
	}
	if v, ok := d.Bool("no_progress", "no_tui"); ok {
		cfg.NoProgress = v
	}
	if v, ok := d.Bool("verbose"); ok {
		cfg.Verbose = v
	}
	if v, ok := d.Bool("quiet"); ok {
		cfg.Quiet = v
	}
	if v, ok := d.Bool("log_errors"); ok {
		cfg.LogErrors = v
	}

	if v, ok := d.Bool("latency_correction"); ok {
		cfg.LatencyCorrection = v
	}
	if v, ok := d.String("arrival_model"); ok && v != "" {
		cfg.ArrivalModel = parseArrivalModel(v)
	}
	if v, ok := d.Strings("thresholds"); ok {
		cfg.Thresholds = v
	}
	if v, ok := d.Bool("diagnose"); ok {
		cfg.Diagnose = v
	}
	if v, ok := d.String("metrics_addr"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := d.String("history_file"); ok {
		cfg.HistoryFile = v
	}

	if tracing, ok := d.Section("tracing"); ok {
		applyTracingSettings(&cfg.Tracing, tracing)
	}

	return d.Err()
}

func applyTracingSettings(tc *TracingConfig, d *decoder) {
	if v, ok := d.String("endpoint"); ok {
		tc.Endpoint = v
	}
	if v, ok := d.String("protocol"); ok {
		tc.Protocol = strings.ToLower(v)
	}
	if v, ok := d.String("service_name"); ok {
		tc.ServiceName = v
	}
	if v, ok := d.Float("sample_rate"); ok {
		tc.SampleRate = v
	}
	if v, ok := d.Bool("insecure"); ok {
		tc.Insecure = v
	}
	if v, ok := d.Bool("propagate"); ok {
		tc.Propagate = &v
	}
}

func parseArrivalModel(value string) runner.ArrivalModel {
	return runner.ArrivalModel(strings.ToLower(strings.TrimSpace(value)))
}
