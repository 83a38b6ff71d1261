// ABOUTME: CLI command to plan and apply edits for the current request
// ABOUTME: Retrieves context, asks the model for a plan, patches files and runs checks
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/repoagent/internal/core"
)

var (
	applyK          int
	applyDryRun     bool
	applySkipChecks bool
)

// NewApplyCmd creates the apply command
func NewApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Plan and apply edits for the current request",
		Long: `Read the request from the prompt file, retrieve the relevant chunks, ask
the language model for an edit plan and apply its literal before/after
patches. Afterwards the repository's type-check, lint and test commands run.

Snippets that are not found are reported and skipped; a failing check is
reported but does not fail the command.`,
		Example: `  repoagent apply --dry-run
  repoagent apply --skip-checks`,
		Args: cobra.NoArgs,
		RunE: runApply,
	}

	cmd.Flags().IntVar(&applyK, "k", core.DefaultTopK, "Number of chunks to retrieve")
	cmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Report changes without writing files")
	cmd.Flags().BoolVar(&applySkipChecks, "skip-checks", false, "Do not run type-check, lint and tests")

	return cmd
}

func runApply(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(applyK, "k"); err != nil {
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

	result, err := pipeline.Apply(cmd.Context(), request, core.ApplyOptions{
		K:          applyK,
		DryRun:     applyDryRun || a.Config.DryRun,
		SkipChecks: applySkipChecks,
	})
	if err != nil {
		return fmt.Errorf("apply failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return writeJSON(out, result)
	}

	if verbose {
		heading(out, "Top context:")
		writeMatches(out, result.Matches, true)
	}
	heading(out, "Plan:")
	writeOutcomes(out, result.Outcomes)
	if len(result.Feedback) > 0 {
		heading(out, "Feedback results:")
		writeFeedback(out, result.Feedback)
	}
	return nil
}
