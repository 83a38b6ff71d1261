// ABOUTME: Results produced by the verification checks and the patch engine
// ABOUTME: FeedbackResult, PatchOutcome and their states
package models

// FeedbackResult is the outcome of one verification check
type FeedbackResult struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Output  string `json:"output"`
	Skipped bool   `json:"skipped,omitempty"`
}

// PatchState is the terminal state of one FileEdit
type PatchState string

const (
	PatchApplied        PatchState = "applied"
	PatchDryRunReported PatchState = "dry-run-reported"
	PatchSkippedNoMatch PatchState = "skipped-no-match"
	PatchSkippedMissing PatchState = "skipped-missing-file"
	PatchPointerOnly    PatchState = "pointer-only"
	PatchWriteFailed    PatchState = "write-failed"
)

// PatchOutcome reports what the patch engine did with one FileEdit
type PatchOutcome struct {
	File      string     `json:"file"`
	Rationale string     `json:"rationale"`
	State     PatchState `json:"state"`
	Applied   int        `json:"applied"`
	Warnings  []string   `json:"warnings,omitempty"`
}

// Changed reports whether the outcome represents a (possibly simulated) write
func (o PatchOutcome) Changed() bool {
	return o.State == PatchApplied || o.State == PatchDryRunReported
}
