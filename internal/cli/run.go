package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harun/agentpress/internal/tracing"
	"github.com/harun/agentpress/pkg/toolexecutor"
)

var (
	runStrategy string
	runMode     string
	runOutput   string
	runStrict   bool
)

var runCmd = &cobra.Command{
	Use:   "run <batch-file>",
	Short: "Execute a batch of tool calls",
	Long: `Execute a batch file (JSON or YAML) and print the ordered results.
Use "-" to read the batch from stdin. The strategy is taken from --strategy,
then from the batch file, then from the config.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runStrategy, "strategy", "", "execution strategy (sequential, parallel)")
	runCmd.Flags().StringVar(&runMode, "mode", "", "custom mode slug whose tool policy applies")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "json", "output format (json, text)")
	runCmd.Flags().BoolVar(&runStrict, "strict", false, "exit with an error if any call failed")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if runOutput != "json" && runOutput != "text" {
		return fmt.Errorf("invalid output format %q (must be json or text)", runOutput)
	}

	file, err := readBatch(cmd, args[0])
	if err != nil {
		return err
	}

	ctx := tracing.NewRequestContext(cmd.Context())

	e, err := newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	mode := runMode
	if mode == "" {
		mode = file.Mode
	}
	ctx, err = e.withMode(ctx, mode)
	if err != nil {
		return err
	}

	outcome, err := e.dispatcher.Execute(ctx, file.Batch(), e.resolveStrategy(runStrategy, file.Strategy))
	if err != nil {
		return err
	}

	if err := writeOutcome(cmd.OutOrStdout(), outcome, runOutput); err != nil {
		return err
	}

	if runStrict && !outcome.Succeeded() {
		return fmt.Errorf("%d of %d calls failed", len(outcome.Failures()), len(outcome))
	}
	return nil
}

func readBatch(cmd *cobra.Command, path string) (*toolexecutor.BatchFile, error) {
	if path != "-" {
		return toolexecutor.LoadBatchFile(path)
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("failed to read batch from stdin: %w", err)
	}
	return toolexecutor.ParseBatch(data)
}

func writeOutcome(w io.Writer, outcome toolexecutor.ExecutionOutcome, format string) error {
	if format == "text" {
		for i, entry := range outcome {
			if entry.Result.Success {
				fmt.Fprintf(w, "[%d] %s %s: ok %v\n", i, entry.Call.ID, entry.Call.Name, entry.Result.Output)
			} else {
				fmt.Fprintf(w, "[%d] %s %s: error %s\n", i, entry.Call.ID, entry.Call.Name, entry.Result.Error)
			}
		}
		return nil
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcome); err != nil {
		return fmt.Errorf("failed to encode outcome: %w", err)
	}
	return nil
}
