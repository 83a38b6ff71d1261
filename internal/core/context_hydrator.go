// ABOUTME: ContextHydrator assembles the operator request from prompt.txt and git history
// ABOUTME: Extracts an optional "prompt: >" block and appends recent commit subjects
package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harper/repoagent/internal/util"
)

// MaxQueryChars caps a question read from the prompt file
const MaxQueryChars = 8000

// ErrNoQuery means neither an argument nor the prompt file supplied a question
var ErrNoQuery = errors.New("no query provided: pass it as an argument or put it under `prompt:` in the prompt file")

var promptBlock = regexp.MustCompile(`prompt:\s*>\s*([\s\S]*)$`)

// ContextHydrator builds request text for the planner and the answerer
type ContextHydrator struct {
	runner CommandRunner
	logger *log.Logger
}

// NewContextHydrator creates a ContextHydrator. git runs through runner.
func NewContextHydrator(runner CommandRunner, logger *log.Logger) *ContextHydrator {
	if runner == nil {
		runner = ShellRunner{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ContextHydrator{runner: runner, logger: logger}
}

// LoadPromptFile returns the raw contents of the prompt file
func LoadPromptFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file: %w", err)
	}
	return string(data), nil
}

// ExtractQuery prefers the text after a "prompt: >" marker, falling back to
// the whole file, trimmed and capped at MaxQueryChars runes
func ExtractQuery(raw string) string {
	query := ""
	if m := promptBlock.FindStringSubmatch(raw); m != nil {
		query = strings.TrimSpace(m[1])
	}
	if query == "" {
		query = strings.TrimSpace(raw)
	}
	return util.TruncateRunes(query, MaxQueryChars)
}

// RecentCommits returns "<hash> <date> <subject>" lines for the last n
// commits of repo. Any git failure yields an empty string.
func (h *ContextHydrator) RecentCommits(ctx context.Context, repo string, n int) string {
	if n <= 0 {
		return ""
	}
	cmd := fmt.Sprintf("git log -n %d --pretty=format:'%%h %%ad %%s' --date=short", n)
	out, err := h.runner.Run(ctx, repo, cmd)
	if err != nil {
		h.logger.Debug("git log unavailable", "repo", repo, "err", err)
		return ""
	}
	return strings.TrimRight(out, "\n")
}

// UserRequest reads the prompt file verbatim and appends the recent commits footer
func (h *ContextHydrator) UserRequest(ctx context.Context, promptFile, repo string, commits int) (string, error) {
	prompt, err := LoadPromptFile(promptFile)
	if err != nil {
		return "", err
	}
	return ComposeRequest(prompt, h.RecentCommits(ctx, repo, commits)), nil
}

// ComposeRequest joins a prompt with a git history footer
func ComposeRequest(prompt, commits string) string {
	return prompt + "\n\n---\nRecent commits:\n" + commits
}

// AskQuery returns the question for ask: the joined arguments when given,
// otherwise the prompt block of promptFile.
func AskQuery(args []string, promptFile string) (string, error) {
	if q := strings.TrimSpace(strings.Join(args, " ")); q != "" {
		return q, nil
	}
	raw, err := LoadPromptFile(promptFile)
	if err != nil || strings.TrimSpace(raw) == "" {
		return "", ErrNoQuery
	}
	return ExtractQuery(raw), nil
}
