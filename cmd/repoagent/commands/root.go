// ABOUTME: Root CLI command with global flags and shared setup
// ABOUTME: Loads .env and the agent config, configures logging, wires subcommands
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/repoagent/internal/app"
	"github.com/harper/repoagent/internal/config"
)

var (
	configPath   string
	repoPath     string
	collection   string
	verbose      bool
	quiet        bool
	outputFormat string

	logger = log.Default()
)

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repoagent",
		Short: "Retrieval-augmented code edits for a local repository",
		Long: `
 ██████  ███████ ██████   ██████   █████   ██████  ███████ ███    ██ ████████
 ██   ██ ██      ██   ██ ██    ██ ██   ██ ██       ██      ████   ██    ██
 ██████  █████   ██████  ██    ██ ███████ ██   ███ █████   ██ ██  ██    ██
 ██   ██ ██      ██      ██    ██ ██   ██ ██    ██ ██      ██  ██ ██    ██
 ██   ██ ███████ ██       ██████  ██   ██  ██████  ███████ ██   ████    ██

Index a repository into a vector store, retrieve the chunks relevant to a
request, ask a language model for a literal edit plan and apply it.

Configuration is read from agent.config.json (or --config), then from the
environment (.env is loaded when present), then from flags.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the agent config file (default: ./agent.config.json)")
	cmd.PersistentFlags().StringVar(&repoPath, "repo", "", "Repository root (overrides codebasePath)")
	cmd.PersistentFlags().StringVar(&collection, "collection", "", "Vector collection name (overrides collection)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, json or text")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		NewIndexCmd(),
		NewAnalyzeCmd(),
		NewApplyCmd(),
		NewAskCmd(),
		NewSearchCmd(),
		NewTopicsCmd(),
		NewWipeCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command, cancelling on SIGINT/SIGTERM
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, args []string) error {
	switch outputFormat {
	case "auto", "json", "text":
	default:
		return fmt.Errorf("--format must be auto, json or text, got %q", outputFormat)
	}

	// .env is optional
	_ = godotenv.Load()

	logger = newLogger(cmd.ErrOrStderr())
	return nil
}

func newLogger(w io.Writer) *log.Logger {
	l := log.NewWithOptions(w, log.Options{Prefix: "repoagent"})
	switch {
	case verbose:
		l.SetLevel(log.DebugLevel)
	case quiet:
		l.SetLevel(log.WarnLevel)
	default:
		l.SetLevel(log.InfoLevel)
	}
	return l
}

// loadConfig layers flag overrides on top of file and environment
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if repoPath != "" {
		cfg.CodebasePath = repoPath
	}
	if collection != "" {
		cfg.Collection = collection
	}
	return cfg, nil
}

// openApp loads the config and connects every collaborator
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return a, nil
}
