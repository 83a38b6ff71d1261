// ABOUTME: FeedbackRunner runs the type-check, lint and test commands of a repository
// ABOUTME: Detects npm scripts or a Go module and reports every check, skipped or not
package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/repoagent/internal/models"
)

// Check names, always reported in this order
const (
	CheckTypeCheck = "TypeCheck"
	CheckLint      = "Lint"
	CheckUnitTests = "UnitTests"
)

// DefaultCheckTimeout bounds each verification command
const DefaultCheckTimeout = 5 * time.Minute

// Check is one verification step
type Check struct {
	Name    string
	Command string
	Enabled bool
}

// CommandRunner executes a shell command in dir and returns its combined output
type CommandRunner interface {
	Run(ctx context.Context, dir, command string) (string, error)
}

// shellWaitDelay bounds how long Run waits for output after the command is killed
const shellWaitDelay = 2 * time.Second

// ShellRunner runs commands through sh -c. On cancellation the whole process
// group is killed so children of the shell cannot outlive the deadline.
type ShellRunner struct{}

// Run implements CommandRunner
func (ShellRunner) Run(ctx context.Context, dir, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	killProcessGroup(cmd)
	cmd.WaitDelay = shellWaitDelay
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// FeedbackRunner executes the detected checks
type FeedbackRunner struct {
	runner  CommandRunner
	timeout time.Duration
	logger  *log.Logger
}

// NewFeedbackRunner creates a FeedbackRunner. A nil runner uses ShellRunner.
func NewFeedbackRunner(runner CommandRunner, timeout time.Duration, logger *log.Logger) *FeedbackRunner {
	if runner == nil {
		runner = ShellRunner{}
	}
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &FeedbackRunner{runner: runner, timeout: timeout, logger: logger}
}

// Run executes every check for root in order
func (f *FeedbackRunner) Run(ctx context.Context, root string) []models.FeedbackResult {
	checks := DetectChecks(root)
	results := make([]models.FeedbackResult, 0, len(checks))

	for _, c := range checks {
		if !c.Enabled {
			results = append(results, models.FeedbackResult{Name: c.Name, OK: true, Skipped: true})
			continue
		}
		results = append(results, f.runCheck(ctx, root, c))
	}
	return results
}

func (f *FeedbackRunner) runCheck(ctx context.Context, root string, c Check) models.FeedbackResult {
	checkCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	started := time.Now()
	out, err := f.runner.Run(checkCtx, root, c.Command)
	result := models.FeedbackResult{Name: c.Name, OK: err == nil, Output: out}

	if err != nil {
		if errors.Is(checkCtx.Err(), context.DeadlineExceeded) {
			result.Output = strings.TrimSpace(out + fmt.Sprintf("\n(timed out after %s)", f.timeout))
		} else if strings.TrimSpace(out) == "" {
			result.Output = err.Error()
		}
	}
	f.logger.Debug("check finished", "check", c.Name, "ok", result.OK, "duration", time.Since(started).Round(time.Millisecond))
	return result
}

// DetectChecks decides which commands apply to root. A package.json selects
// the npm commands (the type-check is always attempted); otherwise a go.mod
// selects the Go toolchain; with neither, only the type-check is attempted.
func DetectChecks(root string) []Check {
	scripts, hasPackage := packageScripts(root)
	if !hasPackage && fileExists(filepath.Join(root, "go.mod")) {
		return []Check{
			{Name: CheckTypeCheck, Command: "go vet ./...", Enabled: true},
			{Name: CheckLint, Command: `test -z "$(gofmt -l .)"`, Enabled: true},
			{Name: CheckUnitTests, Command: "go test ./...", Enabled: true},
		}
	}
	return []Check{
		{Name: CheckTypeCheck, Command: "npx tsc --noEmit", Enabled: true},
		{Name: CheckLint, Command: "npx eslint . --max-warnings=0", Enabled: scripts["lint"] != ""},
		{Name: CheckUnitTests, Command: "npm test --silent", Enabled: scripts["test"] != ""},
	}
}

// packageScripts reads the scripts table of root/package.json
func packageScripts(root string) (map[string]string, bool) {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return nil, false
	}
	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, true
	}
	return pkg.Scripts, true
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
