// ABOUTME: Planner asks the chat model for a bounded JSON edit plan
// ABOUTME: Malformed model output degrades to an empty plan, transport errors do not
package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harper/repoagent/internal/llm"
	"github.com/harper/repoagent/internal/models"
	"github.com/harper/repoagent/internal/util"
)

const plannerSystemPrompt = "You are a terse, surgical code editor. Output valid JSON only."

// contextSeparator sits between retrieved chunks in the planning prompt
const contextSeparator = "\n\n====\n\n"

// Planner turns a request plus retrieved context into an EditPlan
type Planner struct {
	chat   llm.ChatClient
	logger *log.Logger
}

// NewPlanner creates a Planner
func NewPlanner(chat llm.ChatClient, logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.Default()
	}
	return &Planner{chat: chat, logger: logger}
}

// Plan sends one chat request and parses the reply. A reply that is not a
// JSON array yields an empty plan and no error.
func (p *Planner) Plan(ctx context.Context, model, userPrompt string, matches []models.RetrievedMatch) (models.EditPlan, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: plannerSystemPrompt},
		{Role: llm.RoleUser, Content: BuildPlanPrompt(userPrompt, matches)},
	}

	reply, err := p.chat.Chat(ctx, model, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to request plan: %w", err)
	}

	plan, warnings, err := models.ParseEditPlan(reply)
	if err != nil {
		p.logger.Warn("model reply is not a usable plan, doing nothing", "err", err, "reply", util.TruncateRunes(reply, 200))
		return models.EditPlan{}, nil
	}
	for _, w := range warnings {
		p.logger.Warn("plan adjusted", "detail", w)
	}
	p.logger.Debug("plan parsed", "files", len(plan))
	return plan, nil
}

// BuildPlanPrompt renders the user message of the planning request
func BuildPlanPrompt(userPrompt string, matches []models.RetrievedMatch) string {
	chunks := make([]string, 0, len(matches))
	for _, m := range matches {
		chunks = append(chunks, fmt.Sprintf("FILE:%s [%s]\n%s", m.Path, m.Range(), m.Preview))
	}

	var b strings.Builder
	b.WriteString("User prompt (from prompt.txt):\n")
	b.WriteString(userPrompt)
	b.WriteString("\n\nYou have relevant repo chunks:\n")
	b.WriteString(strings.Join(chunks, contextSeparator))
	b.WriteString("\n\nReturn JSON array ONLY like:\n")
	b.WriteString(`[` + "\n" + `  {"file":"relative/path.ts","rationale":"...","patch":[{"before":"EXACT OLD","after":"NEW"}]}` + "\n" + `]` + "\n")
	fmt.Fprintf(&b, "- Up to %d files, up to %d patches/file\n", models.MaxPlanFiles, models.MaxPatchesPerFile)
	b.WriteString(`- If change is big or risky, omit "patch" and only give rationale with file pointer.`)
	return b.String()
}

