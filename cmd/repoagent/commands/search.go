// ABOUTME: CLI command to search the indexed repository
// ABOUTME: Embeds a free-text query and prints the nearest chunks
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/repoagent/internal/util"
)

var searchLimit int

// NewSearchCmd creates search command
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed chunks",
		Long: `Embed the query and list the most similar indexed chunks with their
file, line range and similarity score.`,
		Example: `  repoagent search "redis connection pool"
  repoagent search --limit 10 "retry with backoff"
  repoagent search --format json "feature flags"`,
		Args: cobra.ExactArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().IntVar(&searchLimit, "limit", 5, "Maximum results to return")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(searchLimit, "limit"); err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	query := args[0]
	results, err := a.Retriever().Retrieve(cmd.Context(), a.Config.Collection, a.Config.EmbedModel, query, searchLimit)
	if err != nil {
		return fmt.Errorf("searching chunks: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return writeJSON(out, results)
	}

	if len(results) == 0 {
		if !quiet {
			fmt.Fprintf(out, "No chunks found for query: %s\n", query)
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SCORE\tFILE\tLINES\tPREVIEW\n")
	fmt.Fprintf(w, "-----\t----\t-----\t-------\n")
	for _, r := range results {
		fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\n",
			r.Score,
			truncate(r.Path, 50),
			r.Range(),
			truncate(util.FirstLine(r.Preview, previewWidth), 60))
	}
	w.Flush()

	if !quiet {
		fmt.Fprintf(out, "\nFound %d result(s)\n", len(results))
	}
	return nil
}
