// ABOUTME: CLI command to delete the configured collection
// ABOUTME: Removes every indexed point so the next index starts clean
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewWipeCmd creates the wipe command
func NewWipeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wipe",
		Short: "Delete the vector collection",
		Long:  `Drop the configured collection and all of its points. Deleting a missing collection is not an error.`,
		Args:  cobra.NoArgs,
		RunE:  runWipe,
	}
}

func runWipe(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	name := a.Config.Collection
	if err := a.Store.DeleteCollection(cmd.Context(), name); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return writeJSON(out, map[string]any{"collection": name, "deleted": true})
	}
	if !quiet {
		fmt.Fprintf(out, "Collection %s deleted\n", name)
	}
	return nil
}
