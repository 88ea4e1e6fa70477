package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "Inspect custom modes",
}

var modesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List custom modes and their tool policies",
	Args:  cobra.NoArgs,
	RunE:  runModesList,
}

var modesShowCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Print the full definition of a custom mode",
	Args:  cobra.ExactArgs(1),
	RunE:  runModesShow,
}

func init() {
	modesCmd.AddCommand(modesListCmd)
	modesCmd.AddCommand(modesShowCmd)
	rootCmd.AddCommand(modesCmd)
}

func runModesList(cmd *cobra.Command, args []string) error {
	e, err := newEngine(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer e.close()

	out := cmd.OutOrStdout()
	all := e.modes.All()
	if len(all) == 0 {
		fmt.Fprintf(out, "No custom modes in %s\n", e.modes.Path())
		return nil
	}

	for _, mode := range all {
		tools := "all tools"
		if policy := mode.Policy(); policy != nil {
			tools = "allow: " + strings.Join(policy.Allow, ", ")
			if len(policy.Deny) > 0 {
				tools += "; deny: " + strings.Join(policy.Deny, ", ")
			}
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", mode.Slug, mode.Name, tools)
	}

	return nil
}

func runModesShow(cmd *cobra.Command, args []string) error {
	e, err := newEngine(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer e.close()

	mode, ok := e.modes.Get(args[0])
	if !ok {
		return fmt.Errorf("custom mode not found: %s", args[0])
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(mode.Details())
}
