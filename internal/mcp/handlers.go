// ABOUTME: MCP tool handler implementations for the repoagent server
// ABOUTME: Tool failures are returned as error results, never as protocol errors
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harper/repoagent/internal/config"
	"github.com/harper/repoagent/internal/core"
	"github.com/harper/repoagent/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// maxK bounds k arguments from clients
const maxK = 100

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	cfg      *config.Config
	searcher core.Searcher
	planner  *core.Planner
	logger   *log.Logger
}

// NewHandlers creates Handlers over the given collaborators
func NewHandlers(cfg *config.Config, searcher core.Searcher, planner *core.Planner, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.Default()
	}
	return &Handlers{cfg: cfg, searcher: searcher, planner: planner, logger: logger}
}

// RetrieveContext handles the retrieve_context tool
func (h *Handlers) RetrieveContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || query == "" {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	k := clampK(request.GetInt("k", core.DefaultTopK))

	matches, err := h.searcher.Retrieve(ctx, h.cfg.Collection, h.cfg.EmbedModel, query, k)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("retrieval failed: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"query":   query,
		"count":   len(matches),
		"matches": nonNil(matches),
	})
}

// FindTopicFiles handles the find_topic_files tool
func (h *Handlers) FindTopicFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var vocab core.Vocabulary

	terms := stringArray(request, "terms")
	if len(terms) > 0 {
		vocab = core.CustomVocabulary(terms)
	} else {
		name := request.GetString("vocabulary", "caching")
		v, ok := core.LookupVocabulary(name)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown vocabulary %q", name)), nil
		}
		vocab = v
	}

	agg := core.NewAggregator(h.searcher, h.cfg.Collection, h.cfg.EmbedModel, h.logger)
	hits, err := agg.Aggregate(ctx, vocab, 0)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("topic search failed: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"vocabulary": vocab.Name,
		"queries":    len(vocab.Terms),
		"files":      nonNil(hits),
	})
}

// PlanEdits handles the plan_edits tool
func (h *Handlers) PlanEdits(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := request.RequireString("request")
	if err != nil || req == "" {
		return mcp.NewToolResultError("request argument is required and must be a string"), nil
	}
	k := clampK(request.GetInt("k", core.DefaultTopK))

	matches, err := h.searcher.Retrieve(ctx, h.cfg.Collection, h.cfg.EmbedModel, req, k)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("retrieval failed: %v", err)), nil
	}
	plan, err := h.planner.Plan(ctx, h.cfg.LLMModel, req, matches)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("planning failed: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"plan_id": uuid.New().String(),
		"context": len(matches),
		"plan":    nonNil(plan),
	})
}

// PreviewPatch handles the preview_patch tool
func (h *Handlers) PreviewPatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("plan")
	if err != nil {
		return mcp.NewToolResultError("plan argument is required and must be a JSON string"), nil
	}
	plan, warnings, err := models.ParseEditPlan(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid plan: %v", err)), nil
	}

	root, err := h.cfg.RepoRoot()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outcomes := core.NewPatcher(root, true, h.logger).Apply(plan)

	return jsonResult(map[string]interface{}{
		"dry_run":  true,
		"warnings": nonNil(warnings),
		"outcomes": nonNil(outcomes),
	})
}

func jsonResult(response any) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

// stringArray extracts a string array argument, ignoring non-string items
func stringArray(request mcp.CallToolRequest, key string) []string {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return nil
	}
	items, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func clampK(k int) int {
	if k <= 0 {
		return core.DefaultTopK
	}
	if k > maxK {
		return maxK
	}
	return k
}

// nonNil keeps empty lists as [] rather than null in responses
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
