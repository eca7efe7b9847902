package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/torosent/burl/internal/auth"
	"github.com/torosent/burl/internal/clientmetrics"
	"github.com/torosent/burl/internal/config"
	"github.com/torosent/burl/internal/diagnose"
	"github.com/torosent/burl/internal/httpclient"
	"github.com/torosent/burl/internal/logging"
	"github.com/torosent/burl/internal/metrics"
	"github.com/torosent/burl/internal/output"
	"github.com/torosent/burl/internal/runner"
	"github.com/torosent/burl/internal/threshold"
	"github.com/torosent/burl/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

var (
	errRequestsFailed   = errors.New("requests failed")
	errThresholdsFailed = errors.New("thresholds failed")
)

// failureError reports failed requests without being treated as a startup error.
type failureError struct {
	failed int64
}

func (e *failureError) Error() string {
	return fmt.Sprintf("%d requests failed", e.failed)
}

func (e *failureError) Unwrap() error { return errRequestsFailed }

func main() {
	err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	if err != nil && !errors.Is(err, errThresholdsFailed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errThresholdsFailed):
		return 2
	default:
		return 1
	}
}

func run(parent context.Context, args []string, stdout, stderr io.Writer) (runErr error) {
	cfg, err := config.NewLoader().Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(logging.Options{Verbose: cfg.Verbose, Quiet: cfg.Quiet, Output: stderr})
	defer func() { _ = logger.Sync() }()
	if cfg.ConfigFile != "" {
		logger.Debug("config file loaded", zap.String("path", cfg.ConfigFile), zap.String("profile", cfg.Profile))
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	builder, err := newRequestBuilder(cfg)
	if err != nil {
		return err
	}
	client := httpclient.NewClient(httpclient.ClientOptionsFromConfig(cfg))
	defer client.CloseIdleConnections()

	if cfg.Diagnose {
		res, err := diagnose.Run(ctx, client, builder)
		if err != nil {
			return err
		}
		output.PrintDiagnostics(stdout, res)
		return nil
	}

	if provider.Enabled() {
		runCtx, runSpan := tracing.StartRunSpan(ctx, provider.Tracer(), cfg.TargetURL, cfg.Connections)
		ctx = runCtx
		defer func() { tracing.EndSpan(runSpan, runErr) }()
	}

	var execOpts []httpclient.ExecutorOption
	if provider.Enabled() {
		execOpts = append(execOpts, httpclient.WithTracer(provider.Tracer(), provider.ShouldPropagate()))
	}
	var requester runner.Requester = httpclient.NewExecutor(client, builder, execOpts...)
	if cfg.LogErrors {
		requester = runner.WithLogging(requester, logger)
	}

	opts := cfg.RunnerOptions(requester)
	opts.Logger = logger

	var progressFuncs []runner.ProgressFunc
	if cfg.MetricsAddr != "" {
		exporter := clientmetrics.New()
		srv, err := exporter.Listen(cfg.MetricsAddr, logger)
		if err != nil {
			return fmt.Errorf("metrics endpoint: %w", err)
		}
		metricsCtx, stopMetrics := context.WithCancel(context.Background())
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Serve(metricsCtx); err != nil {
				logger.Warn("metrics endpoint stopped", zap.Error(err))
			}
		}()
		defer func() {
			stopMetrics()
			wg.Wait()
		}()
		opts.Observer = exporter
		progressFuncs = append(progressFuncs, exporter.Progress)
	}

	var reporter *output.ProgressReporter
	if showProgress(cfg, stdout) {
		output.PrintHeader(stdout, cfg.TargetURL, cfg.Method, cfg.Connections)
		reporter = output.NewProgressReporter(stdout)
		progressFuncs = append(progressFuncs, reporter.Update)
	}
	opts.OnProgress = fanOutProgress(progressFuncs)

	r := runner.New(opts)
	stopSignals := handleSignals(r, cancel, logger)
	result, err := r.Run(ctx)
	stopSignals()
	if reporter != nil {
		reporter.Finish()
	}
	if err != nil {
		return err
	}

	if err := writeResult(cfg, result, stdout); err != nil {
		return err
	}

	if cfg.HistoryFile != "" {
		if err := output.AppendHistory(cfg.HistoryFile, result); err != nil {
			logger.Warn("history append failed", zap.String("path", cfg.HistoryFile), zap.Error(err))
		}
	}

	if len(cfg.Thresholds) > 0 {
		thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
		if err != nil {
			return err
		}
		results := threshold.NewEvaluator(thresholds).Evaluate(result)
		output.PrintThresholds(summaryWriter(cfg, stdout, stderr), results)
		if !threshold.AllPassed(results) {
			return errThresholdsFailed
		}
	}

	if result.FailedRequests > 0 {
		return &failureError{failed: result.FailedRequests}
	}
	return nil
}

func newRequestBuilder(cfg *config.Config) (*httpclient.RequestBuilder, error) {
	if cfg.Auth == "" {
		return httpclient.NewRequestBuilder(cfg)
	}
	provider, err := auth.Parse(cfg.Auth)
	if err != nil {
		return nil, err
	}
	return httpclient.NewRequestBuilderWithAuth(cfg, provider)
}

// handleSignals stops the run cooperatively on the first interrupt and
// cancels in-flight requests on the second.
func handleSignals(r *runner.Runner, cancel context.CancelFunc, logger *zap.Logger) func() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		interrupts := 0
		for {
			select {
			case <-done:
				return
			case sig := <-sigCh:
				interrupts++
				if interrupts == 1 {
					logger.Info("stopping after in-flight requests", zap.String("signal", sig.String()))
					r.Stop()
					continue
				}
				logger.Info("aborting in-flight requests", zap.String("signal", sig.String()))
				cancel()
			}
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

func fanOutProgress(fns []runner.ProgressFunc) runner.ProgressFunc {
	switch len(fns) {
	case 0:
		return nil
	case 1:
		return fns[0]
	}
	return func(snap metrics.Snapshot, progress float64) {
		for _, fn := range fns {
			fn(snap, progress)
		}
	}
}

// showProgress draws the live line only on an interactive terminal and never
// for LLM output, which is meant to be piped.
func showProgress(cfg *config.Config, stdout io.Writer) bool {
	if cfg.NoProgress || cfg.Quiet || cfg.LLM != config.LLMNone {
		return false
	}
	return isTerminal(stdout)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// summaryWriter keeps machine-readable stdout clean of the threshold summary.
func summaryWriter(cfg *config.Config, stdout, stderr io.Writer) io.Writer {
	if cfg.Output == "" && (cfg.LLM != config.LLMNone || cfg.Format != config.FormatText) {
		return stderr
	}
	return stdout
}

func writeResult(cfg *config.Config, result metrics.Result, stdout io.Writer) (err error) {
	if cfg.Output == "" {
		return render(stdout, cfg, result)
	}

	f, err := os.Create(cfg.Output)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := render(f, cfg, result); err != nil {
		return err
	}
	if !cfg.Quiet {
		fmt.Fprintf(stdout, "Results written to %s\n", cfg.Output)
	}
	return nil
}

func render(w io.Writer, cfg *config.Config, result metrics.Result) error {
	if cfg.LLM != config.LLMNone {
		return output.ExportLLM(w, result, cfg.LLM)
	}
	return output.Export(w, result, cfg.Format)
}
