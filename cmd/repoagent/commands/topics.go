// ABOUTME: CLI command to locate files related to a topic
// ABOUTME: Runs a vocabulary of queries and ranks files by how many queries hit them
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/repoagent/internal/core"
	"github.com/harper/repoagent/internal/util"
)

var (
	topicTerms []string
	topicK     int
)

// NewTopicsCmd creates the topics command
func NewTopicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics [vocabulary]",
		Short: "Rank files related to a topic",
		Long: fmt.Sprintf(`Run one search per term of a topic vocabulary and rank files by how many
searches returned one of their chunks.

Built-in vocabularies: %s. Pass --term (repeatable) to search
your own terms instead.`, strings.Join(core.VocabularyNames(), ", ")),
		Example: `  repoagent topics caching
  repoagent topics --term "feature flag" --term rollout`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTopics,
	}

	cmd.Flags().StringArrayVar(&topicTerms, "term", nil, "Custom search term (repeatable)")
	cmd.Flags().IntVar(&topicK, "k", 0, "Results per term (default: vocabulary default)")

	return cmd
}

func runTopics(cmd *cobra.Command, args []string) error {
	vocab, err := resolveVocabulary(args, topicTerms)
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	hits, err := a.Aggregator().Aggregate(cmd.Context(), vocab, topicK)
	if err != nil {
		return fmt.Errorf("topic search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return writeJSON(out, hits)
	}
	if len(hits) == 0 {
		fmt.Fprintf(out, "No likely %s files found. Consider re-indexing or expanding include globs.\n", vocab.Name)
		return nil
	}

	heading(out, fmt.Sprintf("Likely %s-related files:", vocab.Name))
	for _, h := range hits {
		fmt.Fprintf(out, "- %s  %s\n", pathStyle.Render(h.Path), dimStyle.Render(fmt.Sprintf("(signals: %d)", h.Count)))
		for _, s := range h.Samples {
			fmt.Fprintf(out, "    [%s] %s\n", s.Range(), util.FirstLine(s.Preview, previewWidth))
		}
	}
	return nil
}

// resolveVocabulary picks custom terms over a named vocabulary, defaulting to caching
func resolveVocabulary(args, terms []string) (core.Vocabulary, error) {
	if len(terms) > 0 {
		if len(args) > 0 {
			return core.Vocabulary{}, fmt.Errorf("use either a vocabulary name or --term, not both")
		}
		v := core.CustomVocabulary(terms)
		if len(v.Terms) == 0 {
			return core.Vocabulary{}, fmt.Errorf("--term values are empty")
		}
		return v, nil
	}

	name := "caching"
	if len(args) > 0 {
		name = args[0]
	}
	v, ok := core.LookupVocabulary(name)
	if !ok {
		return core.Vocabulary{}, fmt.Errorf("unknown vocabulary %q (known: %s)", name, strings.Join(core.VocabularyNames(), ", "))
	}
	return v, nil
}
