// ABOUTME: Pipeline wires retrieval, planning, patching and verification for analyze/apply
// ABOUTME: Per-file patch failures and failing checks are reported, never fatal
package core

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/harper/repoagent/internal/config"
	"github.com/harper/repoagent/internal/llm"
	"github.com/harper/repoagent/internal/models"
)

// ApplyOptions tune one apply run
type ApplyOptions struct {
	K          int
	DryRun     bool
	SkipChecks bool
}

// ApplyResult collects everything an apply run produced
type ApplyResult struct {
	Matches  []models.RetrievedMatch `json:"matches"`
	Plan     models.EditPlan         `json:"plan"`
	Outcomes []models.PatchOutcome   `json:"outcomes"`
	Feedback []models.FeedbackResult `json:"feedback,omitempty"`
}

// Pipeline is the request-time half of the system
type Pipeline struct {
	cfg      *config.Config
	searcher Searcher
	hydrator *ContextHydrator
	planner  *Planner
	feedback *FeedbackRunner
	logger   *log.Logger
}

// NewPipeline creates a Pipeline. runner executes git and the verification checks.
func NewPipeline(cfg *config.Config, searcher Searcher, chat llm.ChatClient, runner CommandRunner, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		cfg:      cfg,
		searcher: searcher,
		hydrator: NewContextHydrator(runner, logger),
		planner:  NewPlanner(chat, logger),
		feedback: NewFeedbackRunner(runner, cfg.CheckTimeout, logger),
		logger:   logger,
	}
}

// Request builds the user request from the configured prompt file and git history
func (p *Pipeline) Request(ctx context.Context) (string, error) {
	root, err := p.cfg.RepoRoot()
	if err != nil {
		return "", err
	}
	return p.hydrator.UserRequest(ctx, p.cfg.PromptFile, root, p.cfg.GitCommits)
}

// Analyze returns the top-k chunks for request
func (p *Pipeline) Analyze(ctx context.Context, request string, k int) ([]models.RetrievedMatch, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	return p.searcher.Retrieve(ctx, p.cfg.Collection, p.cfg.EmbedModel, request, k)
}

// Apply retrieves context, asks for a plan, applies it and runs the checks
func (p *Pipeline) Apply(ctx context.Context, request string, opts ApplyOptions) (*ApplyResult, error) {
	root, err := p.cfg.RepoRoot()
	if err != nil {
		return nil, err
	}

	matches, err := p.Analyze(ctx, request, opts.K)
	if err != nil {
		return nil, err
	}
	result := &ApplyResult{Matches: matches}

	plan, err := p.planner.Plan(ctx, p.cfg.LLMModel, request, matches)
	if err != nil {
		return result, err
	}
	result.Plan = plan

	result.Outcomes = NewPatcher(root, opts.DryRun, p.logger).Apply(plan)

	if !opts.SkipChecks {
		result.Feedback = p.feedback.Run(ctx, root)
	}
	return result, nil
}
