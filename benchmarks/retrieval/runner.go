// ABOUTME: Test runner for retrieval benchmarks - executes scenarios and collects results
// ABOUTME: Queries the index through the retriever or the topic aggregator and scores the files
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harper/repoagent/internal/core"
)

// BenchmarkRunner executes retrieval scenarios against one collection
type BenchmarkRunner struct {
	searcher   core.Searcher
	collection string
	model      string
	metrics    *MetricsCalculator
	logger     *log.Logger
	out        io.Writer
	verbose    bool
}

// NewBenchmarkRunner creates a runner. Progress goes to out when verbose.
func NewBenchmarkRunner(searcher core.Searcher, collection, model string, out io.Writer, verbose bool, logger *log.Logger) *BenchmarkRunner {
	if logger == nil {
		logger = log.Default()
	}
	return &BenchmarkRunner{
		searcher:   searcher,
		collection: collection,
		model:      model,
		metrics:    NewMetricsCalculator(),
		logger:     logger,
		out:        out,
		verbose:    verbose,
	}
}

// RunTest executes a single scenario
func (r *BenchmarkRunner) RunTest(ctx context.Context, scenario TestScenario) (TestResult, error) {
	if r.verbose {
		fmt.Fprintf(r.out, "\nRUNNING: %s\n", scenario.Name)
		if scenario.Description != "" {
			fmt.Fprintf(r.out, "Description: %s\n", scenario.Description)
		}
	}

	started := time.Now()
	retrieved, err := r.retrieve(ctx, scenario)
	if err != nil {
		return TestResult{}, err
	}

	result := r.metrics.EvaluateTest(scenario, retrieved)
	result.Details["duration_ms"] = time.Since(started).Milliseconds()

	if r.verbose {
		fmt.Fprintf(r.out, "Retrieved: %v\n", distinct(retrieved))
		fmt.Fprintf(r.out, "Context Recall: %.2f  Precision@%d: %.2f  Status: %s\n",
			result.ContextRecallScore, scenario.K, result.PrecisionScore, result.Status)
	}
	return result, nil
}

// retrieve returns the ordered file paths the scenario's query surfaces
func (r *BenchmarkRunner) retrieve(ctx context.Context, scenario TestScenario) ([]string, error) {
	k := scenario.K
	if k <= 0 {
		k = core.DefaultTopK
	}

	if scenario.Vocabulary != "" {
		v, ok := core.LookupVocabulary(scenario.Vocabulary)
		if !ok {
			return nil, fmt.Errorf("unknown vocabulary %q", scenario.Vocabulary)
		}
		hits, err := core.NewAggregator(r.searcher, r.collection, r.model, r.logger).Aggregate(ctx, v, k)
		if err != nil {
			return nil, err
		}
		paths := make([]string, 0, len(hits))
		for _, h := range hits {
			paths = append(paths, h.Path)
		}
		return paths, nil
	}

	matches, err := r.searcher.Retrieve(ctx, r.collection, r.model, scenario.Query, k)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, m.Path)
	}
	return paths, nil
}

// RunAllTests executes every scenario. A scenario whose retrieval fails is
// recorded as FAIL with its error and the run continues.
func (r *BenchmarkRunner) RunAllTests(ctx context.Context, scenarios []TestScenario) []TestResult {
	results := make([]TestResult, 0, len(scenarios))
	for _, scenario := range scenarios {
		result, err := r.RunTest(ctx, scenario)
		if err != nil {
			r.logger.Error("scenario failed", "id", scenario.ID, "err", err)
			result = TestResult{
				TestID:       scenario.ID,
				TestName:     scenario.Name,
				Status:       "FAIL",
				ErrorMessage: err.Error(),
			}
		}
		results = append(results, result)
	}
	return results
}

// ExportResults writes a JSON summary of results to outputPath
func (r *BenchmarkRunner) ExportResults(results []TestResult, outputPath string) error {
	passed := 0
	for _, result := range results {
		if result.Status == "PASS" {
			passed++
		}
	}
	summary := map[string]any{
		"timestamp":   time.Now().Format(time.RFC3339),
		"collection":  r.collection,
		"model":       r.model,
		"total_tests": len(results),
		"passed":      passed,
		"failed":      len(results) - passed,
		"results":     results,
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}

// WriteFixture materialises FixtureRepo under dir
func WriteFixture(dir string) error {
	for rel, content := range FixtureRepo() {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create fixture dir: %w", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write fixture %s: %w", rel, err)
		}
	}
	return nil
}
