// ABOUTME: Shared rendering helpers for command output
// ABOUTME: JSON when --format json, lipgloss-styled text otherwise
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/harper/repoagent/internal/models"
	"github.com/harper/repoagent/internal/util"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func jsonOutput() bool {
	return outputFormat == "json"
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func heading(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", headingStyle.Render(title))
}

// writeMatches prints one line per match with its first preview line
func writeMatches(w io.Writer, matches []models.RetrievedMatch, withScore bool) {
	for _, m := range matches {
		line := fmt.Sprintf("- %s [%s]", pathStyle.Render(m.Path), m.Range())
		if withScore {
			line += dimStyle.Render(fmt.Sprintf("  (score: %.3f)", m.Score))
		}
		fmt.Fprintln(w, line)
		if first := strings.TrimSpace(util.FirstLine(m.Preview, previewWidth)); first != "" {
			fmt.Fprintf(w, "    %s\n", dimStyle.Render(first))
		}
	}
}

func writeOutcomes(w io.Writer, outcomes []models.PatchOutcome) {
	if len(outcomes) == 0 {
		fmt.Fprintln(w, "No actionable plan.")
		return
	}
	for _, o := range outcomes {
		switch o.State {
		case models.PatchApplied:
			fmt.Fprintf(w, "%s %s (%d patch(es))\n", okStyle.Render("Applied →"), o.File, o.Applied)
		case models.PatchDryRunReported:
			fmt.Fprintf(w, "%s %s (%d patch(es))\n", okStyle.Render("Would change:"), o.File, o.Applied)
		case models.PatchPointerOnly:
			fmt.Fprintf(w, "Pointer → %s\n  %s\n", o.File, o.Rationale)
		case models.PatchSkippedMissing:
			fmt.Fprintf(w, "%s not found: %s\n", warnStyle.Render("(skip)"), o.File)
		case models.PatchSkippedNoMatch:
			fmt.Fprintf(w, "%s no snippet matched: %s\n", warnStyle.Render("(skip)"), o.File)
		case models.PatchWriteFailed:
			fmt.Fprintf(w, "%s write failed: %s\n", failStyle.Render("(fail)"), o.File)
		}
		for _, warning := range o.Warnings {
			fmt.Fprintf(w, "  %s %s\n", warnStyle.Render("(warn)"), warning)
		}
	}
}

func writeFeedback(w io.Writer, results []models.FeedbackResult) {
	for _, r := range results {
		status := okStyle.Render("OK")
		switch {
		case r.Skipped:
			status = dimStyle.Render("SKIPPED")
		case !r.OK:
			status = failStyle.Render("FAIL")
		}
		fmt.Fprintf(w, "- %s: %s\n", r.Name, status)
		if !r.OK && verbose && r.Output != "" {
			fmt.Fprintf(w, "%s\n", dimStyle.Render(r.Output))
		}
	}
}
