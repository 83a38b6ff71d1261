// ABOUTME: EditPlan is the validated form of a model-proposed set of file edits
// ABOUTME: ParseEditPlan rejects malformed entries and truncates oversized plans
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	MaxPlanFiles      = 5
	MaxPatchesPerFile = 3
)

// PatchOp is one literal before/after replacement
type PatchOp struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// FileEdit groups the replacements proposed for one file.
// An entry without patches is pointer-only.
type FileEdit struct {
	File      string    `json:"file"`
	Rationale string    `json:"rationale"`
	Patch     []PatchOp `json:"patch,omitempty"`
}

// IsPointer reports whether the edit carries no replacements
func (f FileEdit) IsPointer() bool {
	return len(f.Patch) == 0
}

// EditPlan is an ordered list of file edits
type EditPlan []FileEdit

// ErrPlanSyntax is returned when the model output is not a JSON array
var ErrPlanSyntax = errors.New("plan is not a JSON array")

type rawPatchOp struct {
	Before *string `json:"before"`
	After  *string `json:"after"`
}

type rawFileEdit struct {
	File      *string      `json:"file"`
	Rationale *string      `json:"rationale"`
	Patch     []rawPatchOp `json:"patch"`
}

// ParseEditPlan decodes model output into a bounded EditPlan.
// Entries missing a file or a rationale, or carrying a patch op without
// before/after, are dropped; a patch op with an empty before is dropped with its entry since it
// would match anywhere. Plans over MaxPlanFiles and edits over
// MaxPatchesPerFile are truncated. Every adjustment is described in warnings.
func ParseEditPlan(raw string) (EditPlan, []string, error) {
	body := StripCodeFence(raw)
	var entries []rawFileEdit
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		return EditPlan{}, nil, fmt.Errorf("%w: %v", ErrPlanSyntax, err)
	}

	var warnings []string
	plan := make(EditPlan, 0, len(entries))
	for i, e := range entries {
		if e.File == nil || strings.TrimSpace(*e.File) == "" {
			warnings = append(warnings, fmt.Sprintf("entry %d: missing file, dropped", i))
			continue
		}
		file := strings.TrimSpace(*e.File)
		if e.Rationale == nil {
			warnings = append(warnings, fmt.Sprintf("entry %d (%s): missing rationale, dropped", i, file))
			continue
		}
		edit := FileEdit{File: file, Rationale: *e.Rationale}
		valid := true
		for j, op := range e.Patch {
			if op.Before == nil || *op.Before == "" || op.After == nil {
				warnings = append(warnings, fmt.Sprintf("entry %d (%s): patch %d lacks before/after, dropped", i, edit.File, j))
				valid = false
				break
			}
			edit.Patch = append(edit.Patch, PatchOp{Before: *op.Before, After: *op.After})
		}
		if !valid {
			continue
		}
		if len(edit.Patch) > MaxPatchesPerFile {
			warnings = append(warnings, fmt.Sprintf("%s: %d patches truncated to %d", edit.File, len(edit.Patch), MaxPatchesPerFile))
			edit.Patch = edit.Patch[:MaxPatchesPerFile]
		}
		plan = append(plan, edit)
	}

	if len(plan) > MaxPlanFiles {
		warnings = append(warnings, fmt.Sprintf("plan of %d files truncated to %d", len(plan), MaxPlanFiles))
		plan = plan[:MaxPlanFiles]
	}
	return plan, warnings, nil
}

// StripCodeFence removes a surrounding Markdown code fence, if any
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the info string, e.g. ```json
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
