// ABOUTME: MCP tool definitions and registration for the repoagent server
// ABOUTME: Exposes retrieval, topic search, planning and dry-run patch preview
package mcp

import (
	"github.com/charmbracelet/log"
	"github.com/harper/repoagent/internal/config"
	"github.com/harper/repoagent/internal/core"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// NewServer creates an MCP server with every repoagent tool registered
func NewServer(version string, cfg *config.Config, searcher core.Searcher, planner *core.Planner, logger *log.Logger) *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer("repoagent", version, mcpserver.WithToolCapabilities(false))
	RegisterTools(server, cfg, searcher, planner, logger)
	return server
}

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, cfg *config.Config, searcher core.Searcher, planner *core.Planner, logger *log.Logger) *Handlers {
	handlers := NewHandlers(cfg, searcher, planner, logger)

	// 1. retrieve_context - nearest chunks for a query
	server.AddTool(mcp.Tool{
		Name:        "retrieve_context",
		Description: "Retrieve the repository chunks most similar to a natural-language query, with file paths and line ranges.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "What to look for in the indexed repository",
				},
				"k": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of chunks to return (default: 12)",
					"default":     core.DefaultTopK,
				},
			},
			Required: []string{"query"},
		},
	}, handlers.RetrieveContext)

	// 2. find_topic_files - rank files by a battery of topic queries
	server.AddTool(mcp.Tool{
		Name:        "find_topic_files",
		Description: "Rank files by how many topic queries surface them. Use a built-in vocabulary (caching, auth, logging, database) or your own terms.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"vocabulary": map[string]interface{}{
					"type":        "string",
					"description": "Built-in vocabulary name (default: caching)",
					"enum":        core.VocabularyNames(),
				},
				"terms": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Custom topic phrases; overrides vocabulary when given",
				},
			},
		},
	}, handlers.FindTopicFiles)

	// 3. plan_edits - ask the chat model for a bounded edit plan
	server.AddTool(mcp.Tool{
		Name:        "plan_edits",
		Description: "Retrieve context for a change request and return a JSON edit plan (up to 5 files, up to 3 literal patches per file). Nothing is written.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"request": map[string]interface{}{
					"type":        "string",
					"description": "The change to plan",
				},
				"k": map[string]interface{}{
					"type":        "number",
					"description": "Number of context chunks to retrieve (default: 12)",
					"default":     core.DefaultTopK,
				},
			},
			Required: []string{"request"},
		},
	}, handlers.PlanEdits)

	// 4. preview_patch - dry-run a plan against the working tree
	server.AddTool(mcp.Tool{
		Name:        "preview_patch",
		Description: "Dry-run an edit plan against the repository and report what each file edit would do. Files are never written.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"plan": map[string]interface{}{
					"type":        "string",
					"description": `Plan as a JSON array of {"file","rationale","patch":[{"before","after"}]}`,
				},
			},
			Required: []string{"plan"},
		},
	}, handlers.PreviewPatch)

	return handlers
}
