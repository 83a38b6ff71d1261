// ABOUTME: Command-line benchmark runner for retrieval quality
// ABOUTME: Indexes a fixture repo (or uses an existing index) and reports recall and precision
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/harper/repoagent/benchmarks/retrieval"
	"github.com/harper/repoagent/internal/app"
	"github.com/harper/repoagent/internal/config"
)

func main() {
	configPath := flag.String("config", "", "Agent config file (default: ./agent.config.json if present)")
	scenariosPath := flag.String("scenarios", "", "YAML scenarios for the configured repository. If empty, a fixture repository is indexed.")
	testID := flag.String("test", "", "Run a single scenario by id. If empty, runs all.")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON results")
	keep := flag.Bool("keep", false, "Keep the fixture collection after the run")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "benchmark"})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found (continuing anyway)", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *scenariosPath, *testID, *outputPath, *keep, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *log.Logger, configPath, scenariosPath, testID, outputPath string, keep, verbose bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	scenarios := retrieval.GetAllTests()
	fixture := scenariosPath == ""
	if !fixture {
		if scenarios, err = retrieval.LoadScenarios(scenariosPath); err != nil {
			return err
		}
	}
	if testID != "" {
		scenarios = selectScenario(scenarios, testID)
		if len(scenarios) == 0 {
			return fmt.Errorf("unknown test id: %s", testID)
		}
	}

	if fixture {
		dir, err := os.MkdirTemp("", "repoagent_bench_")
		if err != nil {
			return fmt.Errorf("failed to create fixture dir: %w", err)
		}
		defer func() { _ = os.RemoveAll(dir) }()
		if err := retrieval.WriteFixture(dir); err != nil {
			return err
		}
		cfg.CodebasePath = dir
		cfg.Collection = fmt.Sprintf("repoagent_bench_%d", time.Now().UnixNano())
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	fmt.Println("========================================")
	fmt.Println("repoagent Retrieval Benchmarks")
	fmt.Println("========================================")

	if fixture {
		ix, err := a.Indexer()
		if err != nil {
			return err
		}
		stats, err := ix.Run(ctx, true)
		if err != nil {
			return fmt.Errorf("failed to index fixture: %w", err)
		}
		fmt.Printf("Indexed fixture: %d files, %d chunks\n", stats.Files, stats.Chunks)
		if !keep {
			defer func() {
				if err := a.Store.DeleteCollection(context.WithoutCancel(ctx), cfg.Collection); err != nil {
					logger.Warn("failed to drop fixture collection", "collection", cfg.Collection, "err", err)
				}
			}()
		}
	}

	runner := retrieval.NewBenchmarkRunner(a.Retriever(), cfg.Collection, cfg.EmbedModel, os.Stdout, verbose, logger)
	results := runner.RunAllTests(ctx, scenarios)

	fmt.Println("\n========================================")
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println("========================================")

	failed := 0
	for _, result := range results {
		fmt.Printf("\n%s: %s\n", result.TestID, result.TestName)
		fmt.Printf("  Context Recall: %.2f\n", result.ContextRecallScore)
		fmt.Printf("  Precision@k:    %.2f\n", result.PrecisionScore)
		fmt.Printf("  Overall:        %.2f\n", result.OverallScore)
		fmt.Printf("  Status: %s\n", result.Status)
		if result.ErrorMessage != "" {
			fmt.Printf("  Error: %s\n", result.ErrorMessage)
		}
		if result.Status != "PASS" {
			failed++
		}
	}

	fmt.Println("\n========================================")
	fmt.Printf("Total Tests: %d\n", len(results))
	fmt.Printf("Passed: %d\n", len(results)-failed)
	fmt.Printf("Failed: %d\n", failed)
	fmt.Println("========================================")

	if err := runner.ExportResults(results, outputPath); err != nil {
		return err
	}
	fmt.Printf("Results exported to: %s\n", outputPath)

	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(results))
	}
	return nil
}

func selectScenario(scenarios []retrieval.TestScenario, id string) []retrieval.TestScenario {
	for _, s := range scenarios {
		if s.ID == id {
			return []retrieval.TestScenario{s}
		}
	}
	return nil
}
