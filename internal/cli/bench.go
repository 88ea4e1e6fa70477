package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/harun/agentpress/internal/tracing"
	"github.com/harun/agentpress/pkg/toolexecutor"
)

var (
	benchCalls      int
	benchSeconds    float64
	benchMinSpeedup float64
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Compare sequential and parallel execution",
	Long: `Run the same batch of wait calls sequentially and then in parallel,
and report both durations and the speedup. Fails when the parallel run is not
at least --min-speedup times faster.`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntVarP(&benchCalls, "calls", "n", 3, "number of wait calls in the batch")
	benchCmd.Flags().Float64Var(&benchSeconds, "seconds", 1, "seconds each wait call sleeps")
	benchCmd.Flags().Float64Var(&benchMinSpeedup, "min-speedup", 1.5, "minimum acceptable parallel speedup")
	rootCmd.AddCommand(benchCmd)
}

// benchResult is the timing of one strategy over the benchmark batch
type benchResult struct {
	Strategy toolexecutor.Strategy
	Duration time.Duration
	Failed   int
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchCalls < 1 {
		return fmt.Errorf("--calls must be at least 1")
	}

	ctx := tracing.NewRequestContext(cmd.Context())

	e, err := newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	batch := waitBatch(benchCalls, benchSeconds)

	var results []benchResult
	for _, strategy := range []toolexecutor.Strategy{toolexecutor.StrategySequential, toolexecutor.StrategyParallel} {
		res, err := timeStrategy(ctx, e.dispatcher, batch, strategy)
		if err != nil {
			return err
		}
		if res.Failed > 0 {
			return fmt.Errorf("%s run had %d failed calls", strategy, res.Failed)
		}
		results = append(results, res)
	}

	seq, par := results[0], results[1]
	speedup := float64(seq.Duration) / float64(par.Duration)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Calls:      %d x wait(%gs)\n", benchCalls, benchSeconds)
	fmt.Fprintf(out, "Sequential: %s\n", seq.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "Parallel:   %s\n", par.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "Speedup:    %.2fx\n", speedup)

	log.Info().
		Dur("sequential", seq.Duration).
		Dur("parallel", par.Duration).
		Float64("speedup", speedup).
		Msg("Benchmark completed")

	if speedup < benchMinSpeedup {
		return fmt.Errorf("parallel speedup %.2fx is below the minimum %.2fx", speedup, benchMinSpeedup)
	}
	return nil
}

func waitBatch(n int, seconds float64) toolexecutor.ExecutionBatch {
	batch := make(toolexecutor.ExecutionBatch, n)
	for i := range batch {
		batch[i] = toolexecutor.NewToolCall("wait", map[string]interface{}{
			"seconds": seconds,
			"message": fmt.Sprintf("wait %d done", i+1),
		})
	}
	return batch
}

func timeStrategy(ctx context.Context, d *toolexecutor.Dispatcher, batch toolexecutor.ExecutionBatch, strategy toolexecutor.Strategy) (benchResult, error) {
	start := time.Now()
	outcome, err := d.ExecuteStrategy(ctx, batch, strategy)
	if err != nil {
		return benchResult{}, fmt.Errorf("%s run failed: %w", strategy, err)
	}

	return benchResult{
		Strategy: strategy,
		Duration: time.Since(start),
		Failed:   len(outcome.Failures()),
	}, nil
}
