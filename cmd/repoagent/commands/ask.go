// ABOUTME: CLI command to answer a question about the indexed repository
// ABOUTME: Uses the question argument or the prompt file, grounded only on retrieved chunks
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/repoagent/internal/core"
)

var askK int

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question from the indexed code",
		Long: `Retrieve the chunks most similar to the question and ask the language
model to answer using only that context, citing files and line ranges.

Without a question argument the text after "prompt: >" in the prompt file
is used.`,
		Example: `  repoagent ask "where are sessions invalidated?"
  repoagent ask --k 20 "how is the cache keyed"`,
		RunE: runAsk,
	}

	cmd.Flags().IntVar(&askK, "k", core.AskTopK, "Number of chunks to retrieve")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(askK, "k"); err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	query, err := core.AskQuery(args, a.Config.PromptFile)
	if err != nil {
		return err
	}

	cfg := a.Config
	answer, err := a.Answerer().Ask(cmd.Context(), cfg.Collection, cfg.EmbedModel, cfg.LLMModel, query, askK)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return writeJSON(out, answer)
	}

	heading(out, "Query:")
	fmt.Fprintln(out, answer.Query)
	if len(answer.Matches) == 0 {
		fmt.Fprintln(out, "\nNo results from vector search. Try re-indexing or broadening the query.")
		return nil
	}
	heading(out, "Top matches:")
	writeMatches(out, answer.Matches, true)
	heading(out, "Answer:")
	fmt.Fprintln(out, strings.TrimSpace(answer.Text))
	return nil
}
