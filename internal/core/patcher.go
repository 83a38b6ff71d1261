// ABOUTME: Patcher applies literal first-occurrence edits from an EditPlan
// ABOUTME: Each file is either left untouched or written once with all matched ops
package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harper/repoagent/internal/models"
)

// Patcher applies plans to files under a repository root
type Patcher struct {
	root   string
	dryRun bool
	logger *log.Logger
	write  func(path string, data []byte, perm os.FileMode) error
}

// NewPatcher creates a Patcher for root. In dry-run mode nothing is written.
func NewPatcher(root string, dryRun bool, logger *log.Logger) *Patcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Patcher{root: root, dryRun: dryRun, logger: logger, write: writeFileAtomic}
}

// Apply runs every FileEdit in order. Failures are per file and never stop
// the remaining edits.
func (p *Patcher) Apply(plan models.EditPlan) []models.PatchOutcome {
	if len(plan) == 0 {
		p.logger.Info("no actionable plan")
		return nil
	}
	outcomes := make([]models.PatchOutcome, 0, len(plan))
	for _, edit := range plan {
		outcomes = append(outcomes, p.ApplyEdit(edit))
	}
	return outcomes
}

// ApplyEdit drives one FileEdit to its terminal state
func (p *Patcher) ApplyEdit(edit models.FileEdit) models.PatchOutcome {
	out := models.PatchOutcome{File: edit.File, Rationale: edit.Rationale}

	path, err := p.resolve(edit.File)
	if err != nil {
		out.State = models.PatchSkippedMissing
		out.Warnings = append(out.Warnings, err.Error())
		p.logger.Warn("skip", "file", edit.File, "err", err)
		return out
	}

	info, err := os.Stat(path)
	var original []byte
	if err == nil && info.Mode().IsRegular() {
		original, err = os.ReadFile(path)
	} else if err == nil {
		err = fmt.Errorf("%s is not a regular file", edit.File)
	}
	if err != nil {
		out.State = models.PatchSkippedMissing
		out.Warnings = append(out.Warnings, "not found: "+edit.File)
		p.logger.Warn("skip, not found", "file", edit.File)
		return out
	}

	if edit.IsPointer() {
		out.State = models.PatchPointerOnly
		p.logger.Info("pointer", "file", edit.File, "rationale", edit.Rationale)
		return out
	}

	text := string(original)
	updated, applied, missed := ApplyPatchOps(text, edit.Patch)
	out.Applied = applied
	for _, i := range missed {
		out.Warnings = append(out.Warnings, fmt.Sprintf("before-snippet %d not found in %s", i+1, edit.File))
		p.logger.Warn("before-snippet not found", "file", edit.File, "patch", i+1)
	}

	// nothing changed: report like a pointer so the rationale still surfaces
	if applied == 0 || updated == text {
		out.State = models.PatchPointerOnly
		if applied == 0 {
			out.State = models.PatchSkippedNoMatch
		}
		p.logger.Info("pointer", "file", edit.File, "rationale", edit.Rationale)
		return out
	}

	if p.dryRun {
		out.State = models.PatchDryRunReported
		p.logger.Info("would change", "file", edit.File, "patches", applied)
		return out
	}

	if err := p.write(path, []byte(updated), info.Mode().Perm()); err != nil {
		out.State = models.PatchWriteFailed
		out.Applied = 0
		out.Warnings = append(out.Warnings, "write failed: "+err.Error())
		p.logger.Error("write failed", "file", edit.File, "err", err)
		return out
	}
	out.State = models.PatchApplied
	p.logger.Info("applied", "file", edit.File, "patches", applied)
	return out
}

// resolve maps a plan path onto the root, following symlinks, and refuses
// paths whose real location leaves the root. A missing file resolves to its
// joined path so the caller reports it as not found.
func (p *Patcher) resolve(file string) (string, error) {
	if file == "" || filepath.IsAbs(file) {
		return "", fmt.Errorf("path %q must be relative to the repository", file)
	}
	path := filepath.Join(p.root, filepath.FromSlash(file))
	if !within(p.root, path) {
		return "", fmt.Errorf("path %q escapes the repository", file)
	}

	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path, nil
	}
	root, err := filepath.EvalSymlinks(p.root)
	if err != nil {
		root = p.root
	}
	if !within(root, target) {
		return "", fmt.Errorf("path %q links outside the repository", file)
	}
	return target, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ApplyPatchOps replaces the first occurrence of each op's Before in order,
// each op seeing the result of the previous ones. It returns the new text,
// the number of ops applied and the indexes of ops whose Before was absent.
func ApplyPatchOps(text string, ops []models.PatchOp) (string, int, []int) {
	applied := 0
	var missed []int
	for i, op := range ops {
		if op.Before == "" || !strings.Contains(text, op.Before) {
			missed = append(missed, i)
			continue
		}
		text = strings.Replace(text, op.Before, op.After, 1)
		applied++
	}
	return text, applied, missed
}

// writeFileAtomic writes through a temporary sibling and renames it over path
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set mode on %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(name, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
