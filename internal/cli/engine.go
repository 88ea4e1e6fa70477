package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/harun/agentpress/internal/config"
	"github.com/harun/agentpress/internal/logger"
	"github.com/harun/agentpress/internal/metrics"
	"github.com/harun/agentpress/internal/tracing"
	"github.com/harun/agentpress/pkg/coretools"
	"github.com/harun/agentpress/pkg/modes"
	"github.com/harun/agentpress/pkg/toolexecutor"
)

// engine bundles everything a command needs to execute batches
type engine struct {
	cfg        *config.Config
	logger     *logger.Logger
	metrics    *metrics.Metrics
	registry   *toolexecutor.Registry
	dispatcher *toolexecutor.Dispatcher
	modes      *modes.Store

	metricsServer *http.Server
}

// newEngine loads configuration and wires logging, tracing, metrics and the tool engine
func newEngine(ctx context.Context, cmd *cobra.Command) (*engine, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	lg, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		Output:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
	}); err != nil {
		lg.Close()
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	registry := toolexecutor.NewRegistry()
	if err := coretools.RegisterCoreTools(registry); err != nil {
		lg.Close()
		return nil, err
	}

	m := metrics.NewMetrics()
	invoker := toolexecutor.NewInvoker(registry,
		toolexecutor.WithDefaultTimeout(time.Duration(cfg.Engine.ToolTimeoutMs)*time.Millisecond),
		toolexecutor.WithMaxOutputSize(cfg.Engine.MaxOutputBytes),
		toolexecutor.WithRecorder(m),
	)

	e := &engine{
		cfg:        cfg,
		logger:     lg,
		metrics:    m,
		registry:   registry,
		dispatcher: toolexecutor.NewDispatcher(invoker, toolexecutor.WithMaxConcurrency(cfg.Engine.MaxConcurrency)),
		modes:      modes.Configure(cfg.Modes.Path),
	}

	log.Debug().
		Str("strategy", cfg.Engine.Strategy).
		Int("tools", registry.Count()).
		Str("modes", cfg.Modes.Path).
		Msg("Engine ready")

	return e, nil
}

// startMetricsServer serves /metrics when enabled in config
func (e *engine) startMetricsServer() {
	if !e.cfg.Metrics.Enabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", e.metrics.Handler())

	e.metricsServer = &http.Server{
		Addr:              e.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", e.cfg.Metrics.Addr).Msg("Metrics server listening")
		if err := e.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
}

// withMode attaches the tool policy of the named custom mode to ctx
func (e *engine) withMode(ctx context.Context, slug string) (context.Context, error) {
	if slug == "" {
		return ctx, nil
	}

	mode, ok := e.modes.Get(slug)
	if !ok {
		return nil, fmt.Errorf("custom mode not found: %s", slug)
	}

	ctx = tracing.WithMode(ctx, mode.Slug)
	return toolexecutor.ContextWithPolicy(ctx, mode.Policy()), nil
}

// resolveStrategy picks the first non-empty strategy of flag, file and config
func (e *engine) resolveStrategy(candidates ...string) string {
	for _, s := range candidates {
		if s != "" {
			return s
		}
	}
	return e.cfg.Engine.Strategy
}

func (e *engine) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if e.metricsServer != nil {
		if err := e.metricsServer.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}
	if err := tracing.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Tracer shutdown failed")
	}
	if err := e.logger.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
	}
}
