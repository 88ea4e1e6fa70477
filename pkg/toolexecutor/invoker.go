package toolexecutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/harun/agentpress/internal/tracing"
)

const (
	tracerName = "agentpress/toolexecutor"

	// DefaultMaxOutputSize caps the rendered size of a successful tool output.
	DefaultMaxOutputSize = 10 * 1024
)

// Recorder receives execution measurements. internal/metrics provides the
// Prometheus implementation.
type Recorder interface {
	RecordToolCall(tool string, duration time.Duration, success bool)
	RecordBatch(strategy string, size int, duration time.Duration, failed int)
}

type noopRecorder struct{}

func (noopRecorder) RecordToolCall(string, time.Duration, bool) {}
func (noopRecorder) RecordBatch(string, int, time.Duration, int) {}

// InvokerOption configures an Invoker
type InvokerOption func(*Invoker)

// WithDefaultTimeout bounds calls to tools that declare no timeout of their own.
// Zero leaves such calls unbounded.
//
// When the timeout fires the invoker returns a failure result at once, but Go
// cannot stop the tool's goroutine: a tool that ignores its context keeps
// running in the background, and under the sequential strategy it may still
// be running while the next call starts. Tools with side effects should honor
// ctx.Done().
func WithDefaultTimeout(d time.Duration) InvokerOption {
	return func(inv *Invoker) { inv.defaultTimeout = d }
}

// WithMaxOutputSize sets the truncation limit in bytes; zero disables truncation.
func WithMaxOutputSize(n int) InvokerOption {
	return func(inv *Invoker) { inv.maxOutputSize = n }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) InvokerOption {
	return func(inv *Invoker) {
		if r != nil {
			inv.recorder = r
		}
	}
}

// Invoker executes a single tool call and always converts the outcome into a ToolResult.
// It holds no per-call state and is safe for concurrent use.
type Invoker struct {
	registry       *Registry
	defaultTimeout time.Duration
	maxOutputSize  int
	recorder       Recorder
}

// NewInvoker creates an invoker that resolves tools from registry
func NewInvoker(registry *Registry, opts ...InvokerOption) *Invoker {
	if registry == nil {
		registry = NewRegistry()
	}

	inv := &Invoker{
		registry:      registry,
		maxOutputSize: DefaultMaxOutputSize,
		recorder:      noopRecorder{},
	}
	for _, opt := range opts {
		opt(inv)
	}

	return inv
}

// Registry returns the registry the invoker resolves tools from
func (inv *Invoker) Registry() *Registry {
	return inv.registry
}

// Invoke executes one call. It never returns an error; every failure is a failure ToolResult.
func (inv *Invoker) Invoke(ctx context.Context, call ToolCall) ToolResult {
	if ctx == nil {
		ctx = context.Background()
	}

	startTime := time.Now()

	ctx, span := tracing.StartSpan(ctx, tracerName, "tool.invoke",
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.ID),
	)
	defer span.End()

	result := inv.invoke(ctx, call, startTime)

	duration := time.Since(startTime)
	inv.recorder.RecordToolCall(call.Name, duration, result.Success)

	span.SetAttributes(attribute.Bool("tool.success", result.Success))
	if !result.Success {
		span.SetStatus(codes.Error, result.Error)
	}

	return result
}

func (inv *Invoker) invoke(ctx context.Context, call ToolCall, startTime time.Time) ToolResult {
	logger := log.With().
		Str("tool", call.Name).
		Str("call_id", call.ID).
		Str("batch_id", BatchIDFromContext(ctx)).
		Logger()

	metadata := func() map[string]interface{} {
		return map[string]interface{}{
			"call_id":     call.ID,
			"duration_ms": time.Since(startTime).Milliseconds(),
		}
	}

	if policy := PolicyFromContext(ctx); !policy.IsToolAllowed(call.Name) {
		logger.Warn().Msg("Tool execution blocked by policy")
		md := metadata()
		md["policy_violation"] = true
		return failureResult(fmt.Sprintf("tool '%s' is not allowed by mode policy", call.Name), md)
	}

	entry, ok := inv.registry.lookup(call.Name)
	if !ok {
		logger.Error().Msg("Tool not found")
		return failureResult(fmt.Sprintf("%v: %s", ErrToolNotFound, call.Name), metadata())
	}

	if err := validateArguments(entry.schema, call.Arguments); err != nil {
		logger.Error().Err(err).Msg("Parameter validation failed")
		return failureResult(fmt.Sprintf("parameter validation failed: %v", err), metadata())
	}

	timeout := inv.defaultTimeout
	if tt, ok := entry.tool.(timeoutTool); ok && tt.Timeout() > 0 {
		timeout = tt.Timeout()
	}

	logger.Debug().Dur("timeout", timeout).Msg("Executing tool")

	output, err := runTool(contextWithCall(ctx, call), entry.tool, call.Arguments, timeout)
	if err != nil {
		logger.Error().
			Dur("duration", time.Since(startTime)).
			Err(err).
			Msg("Tool execution failed")
		return failureResult(err.Error(), metadata())
	}

	output, truncated := truncateOutput(output, inv.maxOutputSize)

	logger.Debug().
		Dur("duration", time.Since(startTime)).
		Bool("truncated", truncated).
		Msg("Tool execution completed")

	return successResult(output, truncated, metadata())
}

// toolOutcome carries the tool's error already rendered to a message, so
// nothing outside the recovering goroutine ever calls the tool's Error method.
type toolOutcome struct {
	output interface{}
	err    error
}

// runTool executes the tool in its own goroutine so a timeout or cancellation
// returns promptly even when the tool ignores its context.
func runTool(ctx context.Context, tool Tool, args map[string]interface{}, timeout time.Duration) (interface{}, error) {
	execCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if args == nil {
		args = map[string]interface{}{}
	}

	done := make(chan toolOutcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("tool", tool.Name()).
					Interface("panic", r).
					Bytes("stack", debug.Stack()).
					Msg("Tool panicked")
				done <- toolOutcome{err: fmt.Errorf("tool panicked: %v", r)}
			}
		}()

		output, err := tool.Execute(execCtx, args)
		if err != nil {
			// Error may panic (typed nil pointers); the deferred recover handles it
			done <- toolOutcome{err: errors.New(err.Error())}
			return
		}
		done <- toolOutcome{output: output}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("tool execution cancelled: %w", out.err)
			}
			if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("tool execution timeout after %v: %w", timeout, out.err)
			}
		}
		return out.output, out.err

	case <-execCtx.Done():
		if ctx.Err() != nil {
			return nil, fmt.Errorf("tool execution cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("tool execution timeout after %v", timeout)
	}
}

// truncateOutput truncates output if its rendered form exceeds maxSize.
// Non-string output is rendered as JSON; the cut never splits a UTF-8 sequence.
func truncateOutput(output interface{}, maxSize int) (interface{}, bool) {
	if maxSize <= 0 || output == nil {
		return output, false
	}

	str, ok := output.(string)
	if !ok {
		data, err := json.Marshal(output)
		if err != nil {
			str = fmt.Sprintf("%v", output)
		} else {
			str = string(data)
		}
	}

	if len(str) <= maxSize {
		return output, false
	}

	cut := maxSize
	for cut > 0 && !utf8.RuneStart(str[cut]) {
		cut--
	}

	log.Warn().
		Int("original", len(str)).
		Int("truncated", cut).
		Msg("Output truncated")

	return str[:cut] + "\n... [output truncated]", true
}
