// ABOUTME: Retrieval metrics: context recall and precision@k over labelled files
// ABOUTME: Deterministic evaluation against each scenario's ground truth
package retrieval

import (
	"fmt"
	"slices"
)

// PassThreshold is the minimum recall a scenario needs to pass
const PassThreshold = 0.9

// MetricsCalculator computes retrieval scores for benchmark scenarios
type MetricsCalculator struct{}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// CalculateContextRecall is the share of expected files present in retrieved
func (m *MetricsCalculator) CalculateContextRecall(retrieved, expected []string) (float64, string) {
	if len(expected) == 0 {
		return 1.0, "No context retrieval required"
	}

	var missing []string
	for _, want := range expected {
		if !slices.Contains(retrieved, want) {
			missing = append(missing, want)
		}
	}

	recall := float64(len(expected)-len(missing)) / float64(len(expected))
	if len(missing) == 0 {
		return recall, "Perfect context recall - all expected files retrieved"
	}
	return recall, fmt.Sprintf("Partial context recall (%.2f) - missing files: %v", recall, missing)
}

// CalculatePrecisionAtK is the share of the first k distinct retrieved files
// that are expected. Forbidden files found in the window are reported.
func (m *MetricsCalculator) CalculatePrecisionAtK(retrieved, expected, forbidden []string, k int) (float64, string) {
	window := distinct(retrieved)
	if k > 0 && len(window) > k {
		window = window[:k]
	}
	if len(window) == 0 {
		return 0, "Nothing retrieved"
	}

	relevant := 0
	var forbiddenFound []string
	for _, path := range window {
		if slices.Contains(expected, path) {
			relevant++
		}
		if slices.Contains(forbidden, path) {
			forbiddenFound = append(forbiddenFound, path)
		}
	}

	precision := float64(relevant) / float64(len(window))
	if len(forbiddenFound) > 0 {
		return precision, fmt.Sprintf("Precision %.2f - forbidden files retrieved: %v", precision, forbiddenFound)
	}
	return precision, fmt.Sprintf("Precision %.2f over %d file(s)", precision, len(window))
}

// EvaluateTest scores one scenario from the ordered retrieved file paths.
// A scenario passes on recall alone unless a forbidden file was retrieved.
func (m *MetricsCalculator) EvaluateTest(scenario TestScenario, retrieved []string) TestResult {
	gt := scenario.GroundTruth
	recall, recallDetail := m.CalculateContextRecall(retrieved, gt.ExpectedFiles)
	precision, precisionDetail := m.CalculatePrecisionAtK(retrieved, gt.ExpectedFiles, gt.ForbiddenFiles, scenario.K)

	status := "FAIL"
	if recall >= PassThreshold && !containsAny(retrieved, gt.ForbiddenFiles, scenario.K) {
		status = "PASS"
	}

	return TestResult{
		TestID:             scenario.ID,
		TestName:           scenario.Name,
		ContextRecallScore: recall,
		PrecisionScore:     precision,
		OverallScore:       (recall + precision) / 2.0,
		Status:             status,
		Details: map[string]any{
			"recall_detail":    recallDetail,
			"precision_detail": precisionDetail,
			"retrieved_files":  distinct(retrieved),
		},
	}
}

func distinct(paths []string) []string {
	var out []string
	for _, p := range paths {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// containsAny reports whether one of the first k distinct paths is in set
func containsAny(paths, set []string, k int) bool {
	window := distinct(paths)
	if k > 0 && len(window) > k {
		window = window[:k]
	}
	for _, p := range window {
		if slices.Contains(set, p) {
			return true
		}
	}
	return false
}
