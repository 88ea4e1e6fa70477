package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/harun/agentpress/internal/tracing"
	"github.com/harun/agentpress/pkg/toolexecutor"
)

// maxRequestLine bounds one NDJSON batch request
const maxRequestLine = 4 * 1024 * 1024

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Execute batches read line by line from stdin",
	Long: `Read one JSON batch document per line from stdin, execute it and write one
JSON response per line to stdout, in request order. This is how an agent loop
drives the engine as a subprocess. The metrics endpoint and the custom modes
watcher run for the lifetime of the process when enabled in config.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// serveResponse is written once per request line
type serveResponse struct {
	Line    int                           `json:"line"`
	TraceID string                        `json:"trace_id,omitempty"`
	Results toolexecutor.ExecutionOutcome `json:"results,omitempty"`
	Error   string                        `json:"error,omitempty"`
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	e.startMetricsServer()

	if e.cfg.Modes.Watch {
		if err := e.modes.Watch(ctx); err != nil {
			log.Warn().Err(err).Msg("Custom modes watcher not started")
		}
	}

	log.Info().Msg("Serving batches from stdin")

	return e.serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}

// serve handles requests until in is exhausted or ctx is done
func (e *engine) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxRequestLine)
	enc := json.NewEncoder(out)

	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}

		resp := e.handleRequest(ctx, line, scanner.Bytes())
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}

		if ctx.Err() != nil {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read requests: %w", err)
	}
	return nil
}

func (e *engine) handleRequest(ctx context.Context, line int, data []byte) serveResponse {
	ctx = tracing.NewRequestContext(ctx)
	resp := serveResponse{Line: line, TraceID: tracing.GetTraceID(ctx)}
	logger := tracing.LoggerFromContext(ctx, log.Logger)

	file, err := toolexecutor.ParseBatch(data)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}

	ctx, err = e.withMode(ctx, file.Mode)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}

	outcome, err := e.dispatcher.Execute(ctx, file.Batch(), e.resolveStrategy(file.Strategy))
	if err != nil {
		logger.Error().Err(err).Int("line", line).Msg("Batch request failed")
		resp.Error = err.Error()
		return resp
	}

	resp.Results = outcome
	return resp
}
