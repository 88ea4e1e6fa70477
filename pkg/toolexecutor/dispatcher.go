package toolexecutor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/harun/agentpress/internal/tracing"
)

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithMaxConcurrency bounds the number of calls in flight under the parallel
// strategy. Zero or a negative value means one goroutine per call.
func WithMaxConcurrency(n int) DispatcherOption {
	return func(d *Dispatcher) { d.maxConcurrency = n }
}

// Dispatcher executes batches of tool calls under a chosen strategy and
// returns outcomes in batch order.
type Dispatcher struct {
	invoker        *Invoker
	maxConcurrency int
}

// NewDispatcher creates a dispatcher around invoker
func NewDispatcher(invoker *Invoker, opts ...DispatcherOption) *Dispatcher {
	if invoker == nil {
		invoker = NewInvoker(nil)
	}

	d := &Dispatcher{invoker: invoker}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute runs batch under the named strategy. An unknown strategy fails before
// any call is invoked. Per-call failures are reported inside the outcome; the
// returned error is reserved for batch-level problems.
func (d *Dispatcher) Execute(ctx context.Context, batch ExecutionBatch, strategy string) (ExecutionOutcome, error) {
	s, err := ParseStrategy(strategy)
	if err != nil {
		return nil, err
	}
	return d.ExecuteStrategy(ctx, batch, s)
}

// ExecuteStrategy is Execute with an already parsed strategy
func (d *Dispatcher) ExecuteStrategy(ctx context.Context, batch ExecutionBatch, strategy Strategy) (ExecutionOutcome, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if len(batch) == 0 {
		return ExecutionOutcome{}, nil
	}

	batchID := uuid.New().String()
	ctx = contextWithBatchID(ctx, batchID)

	ctx, span := tracing.StartSpan(ctx, tracerName, "tool.batch",
		attribute.String("batch.id", batchID),
		attribute.String("batch.strategy", string(strategy)),
		attribute.Int("batch.size", len(batch)),
	)
	defer span.End()

	logger := log.With().
		Str("batch_id", batchID).
		Str("strategy", string(strategy)).
		Int("calls", len(batch)).
		Logger()

	warnDuplicateIDs(logger, batch)

	logger.Debug().Msg("Executing tool batch")
	startTime := time.Now()

	corr := newCorrelator(batch)
	var execErr error
	switch strategy {
	case StrategySequential:
		execErr = d.executeSequential(ctx, batch, corr)
	case StrategyParallel:
		execErr = d.executeParallel(ctx, batch, corr)
	}
	if execErr != nil {
		return nil, d.batchFailed(span, logger, execErr)
	}

	outcome, err := corr.outcome()
	if err != nil {
		return nil, d.batchFailed(span, logger, err)
	}

	duration := time.Since(startTime)
	failed := len(outcome.Failures())
	d.invoker.recorder.RecordBatch(string(strategy), len(batch), duration, failed)

	span.SetAttributes(attribute.Int("batch.failed", failed))

	logger.Info().
		Dur("duration", duration).
		Int("failed", failed).
		Msg("Tool batch completed")

	return outcome, nil
}

// executeSequential starts call N only after call N-1's result is placed
func (d *Dispatcher) executeSequential(ctx context.Context, batch ExecutionBatch, corr *correlator) error {
	for i, call := range batch {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("batch cancelled before call %d: %w", i, err)
		}

		result := d.invoker.Invoke(ctx, call)
		if err := corr.place(i, result); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("batch cancelled: %w", err)
	}
	return nil
}

// executeParallel fans out one goroutine per call and fans back in. Each
// goroutine writes only its own slot.
func (d *Dispatcher) executeParallel(ctx context.Context, batch ExecutionBatch, corr *correlator) error {
	var sem chan struct{}
	if d.maxConcurrency > 0 && d.maxConcurrency < len(batch) {
		sem = make(chan struct{}, d.maxConcurrency)
	}

	placeErrs := make([]error, len(batch))
	var wg sync.WaitGroup

	for i, call := range batch {
		wg.Add(1)
		go func(index int, call ToolCall) {
			defer wg.Done()

			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					placeErrs[index] = corr.place(index, failureResult(
						fmt.Sprintf("tool execution cancelled: %v", ctx.Err()),
						map[string]interface{}{"call_id": call.ID},
					))
					return
				}
			}

			placeErrs[index] = corr.place(index, d.invoker.Invoke(ctx, call))
		}(i, call)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("batch cancelled: %w", err)
	}
	return errors.Join(placeErrs...)
}

func (d *Dispatcher) batchFailed(span trace.Span, logger zerolog.Logger, err error) error {
	span.SetStatus(codes.Error, err.Error())
	logger.Error().Err(err).Msg("Tool batch failed")
	return err
}

func warnDuplicateIDs(logger zerolog.Logger, batch ExecutionBatch) {
	seen := make(map[string]int, len(batch))
	for i, call := range batch {
		if call.ID == "" {
			continue
		}
		if first, ok := seen[call.ID]; ok {
			logger.Warn().
				Str("call_id", call.ID).
				Int("first_index", first).
				Int("index", i).
				Msg("Duplicate call ID in batch")
			continue
		}
		seen[call.ID] = i
	}
}
