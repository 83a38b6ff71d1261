// ABOUTME: CLI command to index the repository into the vector store
// ABOUTME: Chunks matching files, embeds them and upserts the points in batches
package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var indexFresh bool

// NewIndexCmd creates the index command
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the repository into the vector store",
		Long: `Walk the repository, split every matching file into overlapping line
windows, embed each window and upsert it into the collection.

Re-indexing overwrites points with the same file and line range. Use
--fresh to drop the collection first so deleted files disappear too.`,
		Example: `  repoagent index
  repoagent index --fresh
  repoagent --repo ../service index --collection service_chunks`,
		Args: cobra.NoArgs,
		RunE: runIndex,
	}

	cmd.Flags().BoolVar(&indexFresh, "fresh", false, "Drop the collection before indexing")

	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ix, err := a.Indexer()
	if err != nil {
		return err
	}

	stats, err := ix.Run(cmd.Context(), indexFresh)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return writeJSON(out, stats)
	}
	if !quiet {
		fmt.Fprintf(out, "%s %d file(s), %d chunk(s) in %d batch(es), %d skipped (%s)\n",
			okStyle.Render("Index complete:"),
			stats.Files, stats.Chunks, stats.Batches, stats.Skipped, stats.Duration.Round(time.Millisecond))
	}
	return nil
}
