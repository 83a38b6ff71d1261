// ABOUTME: CLI command to show the context retrieved for the prompt file
// ABOUTME: Builds the request from prompt file and git history, then retrieves top-k chunks
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/repoagent/internal/core"
)

var analyzeK int

// NewAnalyzeCmd creates the analyze command
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Show the repository context for the current request",
		Long: `Read the request from the prompt file, append recent commits and list
the indexed chunks most similar to it. Nothing is planned or changed.`,
		Args: cobra.NoArgs,
		RunE: runAnalyze,
	}

	cmd.Flags().IntVar(&analyzeK, "k", core.DefaultTopK, "Number of chunks to retrieve")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(analyzeK, "k"); err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pipeline := a.Pipeline()
	request, err := pipeline.Request(cmd.Context())
	if err != nil {
		return err
	}

	matches, err := pipeline.Analyze(cmd.Context(), request, analyzeK)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return writeJSON(out, matches)
	}
	if len(matches) == 0 {
		fmt.Fprintln(out, "No context found. Try re-indexing or broadening the request.")
		return nil
	}
	heading(out, "Top context:")
	writeMatches(out, matches, verbose)
	return nil
}
