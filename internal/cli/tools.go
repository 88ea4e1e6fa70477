package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List registered tools",
	Args:  cobra.NoArgs,
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	e, err := newEngine(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer e.close()

	out := cmd.OutOrStdout()
	for _, name := range e.registry.List() {
		tool, ok := e.registry.Resolve(name)
		if !ok {
			continue
		}

		fmt.Fprintf(out, "%s - %s\n", name, tool.Description())
		for _, p := range tool.Parameters() {
			suffix := ""
			if p.Required {
				suffix = " (required)"
			}
			fmt.Fprintf(out, "    %s %s%s: %s\n", p.Name, p.Type, suffix, p.Description)
		}
	}

	return nil
}
