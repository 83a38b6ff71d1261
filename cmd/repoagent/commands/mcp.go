// ABOUTME: MCP command starts the Model Context Protocol server on stdio
// ABOUTME: Lets LLM agents retrieve context, rank topic files and preview plans
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/repoagent/internal/core"
	"github.com/harper/repoagent/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs repoagent as an MCP (Model Context Protocol) server on stdio. Agents
get retrieve_context, find_topic_files, plan_edits and preview_patch.
Files are never written through MCP.`,
		Args: cobra.NoArgs,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by the agent host)
  repoagent mcp

  # Configure in the host's config file:
  # {
  #   "mcpServers": {
  #     "repoagent": {
  #       "command": "repoagent",
  #       "args": ["mcp", "--repo", "/path/to/repo"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server and stops on signal or server error
func runMCP(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("error closing store", "err", err)
		}
	}()

	server := mcp.NewServer(versionInfo.Version, a.Config, a.Retriever(), core.NewPlanner(a.Chat, logger), logger)

	logger.Info("MCP server starting on stdio", "collection", a.Config.Collection, "backend", a.Config.VectorBackend)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-cmd.Context().Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}
	return nil
}
