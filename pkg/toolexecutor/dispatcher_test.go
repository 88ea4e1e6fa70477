package toolexecutor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sleepDefinition(name string) ToolDefinition {
	return ToolDefinition{
		Name:        name,
		Description: "Sleeps for ms milliseconds",
		Parameters: []ToolParameter{
			{Name: "ms", Type: "number", Description: "Milliseconds", Required: true},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			d := time.Duration(params["ms"].(float64)) * time.Millisecond
			select {
			case <-time.After(d):
				return fmt.Sprintf("slept %v", d), nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
}

func newTestDispatcher(t *testing.T, opts ...DispatcherOption) (*Dispatcher, *recordingRecorder) {
	t.Helper()

	reg := NewRegistry()
	require.NoError(t, reg.RegisterFunc(echoDefinition("echo")))
	require.NoError(t, reg.RegisterFunc(sleepDefinition("sleep")))
	require.NoError(t, reg.RegisterFunc(ToolDefinition{
		Name:        "fail",
		Description: "Always fails",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return nil, errors.New("boom")
		},
	}))

	rec := &recordingRecorder{}
	return NewDispatcher(NewInvoker(reg, WithRecorder(rec)), opts...), rec
}

func sleepBatch(n int, ms float64) ExecutionBatch {
	batch := make(ExecutionBatch, n)
	for i := range batch {
		batch[i] = ToolCall{
			ID:        fmt.Sprintf("call_%d", i),
			Name:      "sleep",
			Arguments: map[string]interface{}{"ms": ms},
		}
	}
	return batch
}

var strategies = []string{"sequential", "parallel"}

func TestDispatcher_OutcomeAlignedWithBatch(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			d, _ := newTestDispatcher(t)

			// later calls finish first under parallel
			batch := ExecutionBatch{
				{ID: "a", Name: "sleep", Arguments: map[string]interface{}{"ms": 60.0}},
				{ID: "b", Name: "echo", Arguments: map[string]interface{}{"message": "fast"}},
				{ID: "c", Name: "fail"},
				{ID: "d", Name: "sleep", Arguments: map[string]interface{}{"ms": 20.0}},
			}

			outcome, err := d.Execute(context.Background(), batch, strategy)
			require.NoError(t, err)
			require.Len(t, outcome, len(batch))

			for i := range batch {
				assert.Equal(t, batch[i], outcome[i].Call, "entry %d", i)
				assertWellFormed(t, outcome[i].Result)
			}

			assert.Equal(t, "slept 60ms", outcome[0].Result.Output)
			assert.Equal(t, "fast", outcome[1].Result.Output)
			assert.Equal(t, "boom", outcome[2].Result.Error)
			assert.Equal(t, "slept 20ms", outcome[3].Result.Output)
		})
	}
}

func TestDispatcher_UnregisteredToolDoesNotAbortBatch(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			d, _ := newTestDispatcher(t)

			batch := ExecutionBatch{
				{ID: "1", Name: "ghost", Arguments: map[string]interface{}{}},
				{ID: "2", Name: "echo", Arguments: map[string]interface{}{"message": "hi"}},
			}

			outcome, err := d.Execute(context.Background(), batch, strategy)
			require.NoError(t, err)
			require.Len(t, outcome, 2)

			assert.False(t, outcome[0].Result.Success)
			assert.Contains(t, outcome[0].Result.Error, "not found")
			assert.True(t, outcome[1].Result.Success)
			assert.Equal(t, "hi", outcome[1].Result.Output)
		})
	}
}

func TestDispatcher_InvalidStrategy(t *testing.T) {
	d, rec := newTestDispatcher(t)
	var invoked atomic.Int32

	reg := d.invoker.Registry()
	require.NoError(t, reg.RegisterFunc(ToolDefinition{
		Name:        "count",
		Description: "Counts invocations",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			invoked.Add(1)
			return nil, nil
		},
	}))

	for _, batch := range []ExecutionBatch{nil, {{ID: "1", Name: "count"}}} {
		outcome, err := d.Execute(context.Background(), batch, "bogus")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidStrategy)
		assert.Nil(t, outcome)
	}

	assert.Zero(t, invoked.Load())
	assert.Empty(t, rec.batches)
}

func TestDispatcher_EmptyBatch(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			d, _ := newTestDispatcher(t)

			outcome, err := d.Execute(context.Background(), ExecutionBatch{}, strategy)
			require.NoError(t, err)
			assert.NotNil(t, outcome)
			assert.Empty(t, outcome)
		})
	}
}

func TestDispatcher_SequentialOrdering(t *testing.T) {
	reg := NewRegistry()

	var mu sync.Mutex
	var order []string
	require.NoError(t, reg.RegisterFunc(ToolDefinition{
		Name:        "echo",
		Description: "Echo and record",
		Parameters:  []ToolParameter{{Name: "x", Type: "any", Required: true}},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			call, _ := CallFromContext(ctx)
			mu.Lock()
			order = append(order, call.ID+":start")
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			order = append(order, call.ID+":end")
			mu.Unlock()
			return params["x"], nil
		},
	}))

	batch := ExecutionBatch{
		{ID: "c1", Name: "echo", Arguments: map[string]interface{}{"x": 1.0}},
		{ID: "c2", Name: "echo", Arguments: map[string]interface{}{"x": 2.0}},
	}

	outcome, err := NewDispatcher(NewInvoker(reg)).Execute(context.Background(), batch, "sequential")
	require.NoError(t, err)
	require.Len(t, outcome, 2)

	assert.Equal(t, "c1", outcome[0].Call.ID)
	assert.Equal(t, 1.0, outcome[0].Result.Output)
	assert.Equal(t, "c2", outcome[1].Call.ID)
	assert.Equal(t, 2.0, outcome[1].Result.Output)

	assert.Equal(t, []string{"c1:start", "c1:end", "c2:start", "c2:end"}, order)
}

func TestDispatcher_SequentialIsRepeatable(t *testing.T) {
	d, _ := newTestDispatcher(t)

	batch := ExecutionBatch{
		{ID: "1", Name: "echo", Arguments: map[string]interface{}{"message": "a"}},
		{ID: "2", Name: "fail"},
		{ID: "3", Name: "echo", Arguments: map[string]interface{}{"message": "c"}},
	}

	first, err := d.Execute(context.Background(), batch, "sequential")
	require.NoError(t, err)
	second, err := d.Execute(context.Background(), batch, "sequential")
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Call, second[i].Call)
		assert.Equal(t, first[i].Result.Success, second[i].Result.Success)
		assert.Equal(t, first[i].Result.Output, second[i].Result.Output)
		assert.Equal(t, first[i].Result.Error, second[i].Result.Error)
	}
}

func TestDispatcher_ParallelFasterThanSequential(t *testing.T) {
	d, _ := newTestDispatcher(t)
	batch := sleepBatch(5, 100)

	start := time.Now()
	seq, err := d.Execute(context.Background(), batch, "sequential")
	require.NoError(t, err)
	seqElapsed := time.Since(start)

	start = time.Now()
	par, err := d.Execute(context.Background(), batch, "parallel")
	require.NoError(t, err)
	parElapsed := time.Since(start)

	assert.True(t, seq.Succeeded())
	assert.True(t, par.Succeeded())

	assert.GreaterOrEqual(t, seqElapsed, 500*time.Millisecond)
	assert.Less(t, parElapsed, 300*time.Millisecond)
}

func TestDispatcher_MaxConcurrency(t *testing.T) {
	reg := NewRegistry()

	var inFlight, peak atomic.Int32
	require.NoError(t, reg.RegisterFunc(ToolDefinition{
		Name:        "track",
		Description: "Tracks concurrency",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			return nil, nil
		},
	}))

	batch := make(ExecutionBatch, 8)
	for i := range batch {
		batch[i] = ToolCall{ID: fmt.Sprintf("t%d", i), Name: "track"}
	}

	d := NewDispatcher(NewInvoker(reg), WithMaxConcurrency(2))
	outcome, err := d.Execute(context.Background(), batch, "parallel")
	require.NoError(t, err)

	assert.True(t, outcome.Succeeded())
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestDispatcher_Cancellation(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			d, _ := newTestDispatcher(t, WithMaxConcurrency(1))

			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				time.Sleep(30 * time.Millisecond)
				cancel()
			}()

			start := time.Now()
			outcome, err := d.Execute(ctx, sleepBatch(4, 1000), strategy)

			require.Error(t, err)
			assert.ErrorIs(t, err, context.Canceled)
			assert.Nil(t, outcome)
			assert.Less(t, time.Since(start), time.Second)
		})
	}
}

func TestDispatcher_AlreadyCancelledSequential(t *testing.T) {
	reg := NewRegistry()
	var invoked atomic.Int32
	require.NoError(t, reg.RegisterFunc(ToolDefinition{
		Name:        "count",
		Description: "Counts invocations",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			invoked.Add(1)
			return nil, nil
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDispatcher(NewInvoker(reg)).Execute(ctx, ExecutionBatch{{ID: "1", Name: "count"}}, "sequential")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, invoked.Load())
}

func TestDispatcher_HandlersSeeBatchID(t *testing.T) {
	reg := NewRegistry()

	var mu sync.Mutex
	ids := map[string]bool{}
	require.NoError(t, reg.RegisterFunc(ToolDefinition{
		Name:        "batch_id",
		Description: "Reports the batch id",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			mu.Lock()
			ids[BatchIDFromContext(ctx)] = true
			mu.Unlock()
			return nil, nil
		},
	}))

	batch := ExecutionBatch{{ID: "1", Name: "batch_id"}, {ID: "2", Name: "batch_id"}}
	_, err := NewDispatcher(NewInvoker(reg)).Execute(context.Background(), batch, "parallel")
	require.NoError(t, err)

	require.Len(t, ids, 1)
	for id := range ids {
		assert.NotEmpty(t, id)
	}
}

func TestDispatcher_DuplicateCallIDsStillCorrelate(t *testing.T) {
	d, _ := newTestDispatcher(t)

	batch := ExecutionBatch{
		{ID: "dup", Name: "echo", Arguments: map[string]interface{}{"message": "first"}},
		{ID: "dup", Name: "echo", Arguments: map[string]interface{}{"message": "second"}},
	}

	outcome, err := d.Execute(context.Background(), batch, "parallel")
	require.NoError(t, err)
	require.Len(t, outcome, 2)
	assert.Equal(t, "first", outcome[0].Result.Output)
	assert.Equal(t, "second", outcome[1].Result.Output)
}

func TestDispatcher_RecordsBatch(t *testing.T) {
	d, rec := newTestDispatcher(t)

	_, err := d.Execute(context.Background(), sleepBatch(2, 1), "parallel")
	require.NoError(t, err)
	_, err = d.ExecuteStrategy(context.Background(), sleepBatch(1, 1), StrategySequential)
	require.NoError(t, err)

	assert.Equal(t, []string{"parallel", "sequential"}, rec.batches)
}

func TestNewDispatcher_NilInvoker(t *testing.T) {
	d := NewDispatcher(nil)

	outcome, err := d.Execute(context.Background(), ExecutionBatch{{ID: "1", Name: "echo"}}, "sequential")
	require.NoError(t, err)
	require.Len(t, outcome, 1)
	assert.False(t, outcome[0].Result.Success)
}
