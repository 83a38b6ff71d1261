// ABOUTME: Answerer retrieves context for a question and asks the chat model
// ABOUTME: The model is told to answer only from the retrieved chunks
package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harper/repoagent/internal/llm"
	"github.com/harper/repoagent/internal/models"
)

const answerSystemPrompt = "Answer only from the provided context. Be concise and structured. If unsure, say what's missing."

// Answer is the result of one ask
type Answer struct {
	Query   string                  `json:"query"`
	Matches []models.RetrievedMatch `json:"matches"`
	Text    string                  `json:"answer"`
}

// Answerer answers questions about the indexed repository
type Answerer struct {
	searcher Searcher
	chat     llm.ChatClient
	logger   *log.Logger
}

// NewAnswerer creates an Answerer
func NewAnswerer(searcher Searcher, chat llm.ChatClient, logger *log.Logger) *Answerer {
	if logger == nil {
		logger = log.Default()
	}
	return &Answerer{searcher: searcher, chat: chat, logger: logger}
}

// Ask retrieves k chunks and asks the model. With no matches the model is
// not called and Answer.Text is empty.
func (a *Answerer) Ask(ctx context.Context, collection, embedModel, chatModel, query string, k int) (Answer, error) {
	ans := Answer{Query: query}

	matches, err := a.searcher.Retrieve(ctx, collection, embedModel, query, k)
	if err != nil {
		return ans, err
	}
	ans.Matches = matches
	if len(matches) == 0 {
		a.logger.Info("no results from vector search", "collection", collection)
		return ans, nil
	}

	reply, err := a.chat.Chat(ctx, chatModel, []llm.Message{
		{Role: llm.RoleSystem, Content: answerSystemPrompt},
		{Role: llm.RoleUser, Content: BuildAnswerPrompt(query, matches)},
	})
	if err != nil {
		return ans, fmt.Errorf("failed to get answer: %w", err)
	}
	ans.Text = strings.TrimSpace(reply)
	return ans, nil
}

// BuildAnswerPrompt renders the user message of an ask request
func BuildAnswerPrompt(query string, matches []models.RetrievedMatch) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, fmt.Sprintf("FILE: %s [%s]\n%s", m.Path, m.Range(), m.Preview))
	}
	return "User question:\n" + query +
		"\n\nContext (use ONLY this):\n" + strings.Join(parts, "\n\n----\n\n") +
		"\n\nAnswer with:\n" +
		"- A concise explanation\n" +
		"- If listing items (e.g., webhooks), use a short bullet list\n" +
		"- Include file paths and line ranges when referencing code\n" +
		"- If something is missing in the repo, say it plainly."
}
