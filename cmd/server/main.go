// ABOUTME: Standalone MCP server for repoagent with stdio transport
// ABOUTME: Reads config from agent.config.json and the environment, no CLI flags
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/repoagent/internal/app"
	"github.com/harper/repoagent/internal/config"
	"github.com/harper/repoagent/internal/core"
	"github.com/harper/repoagent/internal/mcp"
)

var version = "dev"

func main() {
	// stdout carries the protocol, so logs go to stderr
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "repoagent-mcp"})

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found", "err", err)
	}

	cfg, err := config.Load(os.Getenv("REPOAGENT_CONFIG"))
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize", "err", err)
	}
	defer a.Close()

	server := mcp.NewServer(version, cfg, a.Retriever(), core.NewPlanner(a.Chat, logger), logger)

	logger.Info("MCP server starting on stdio", "collection", cfg.Collection)
	if err := mcpserver.ServeStdio(server); err != nil {
		logger.Error("server error", "err", err)
		_ = a.Close()
		os.Exit(1)
	}
}
