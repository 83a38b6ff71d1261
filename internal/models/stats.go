// ABOUTME: Summary types reported by indexing and topic aggregation runs
// ABOUTME: IndexStats for indexing runs and TopicHit for topic aggregation
package models

import "time"

// IndexStats summarises one indexing run
type IndexStats struct {
	Files    int           `json:"files"`
	Skipped  int           `json:"skipped"`
	Chunks   int           `json:"chunks"`
	Batches  int           `json:"batches"`
	Duration time.Duration `json:"duration"`
}

// TopicHit is one file's hit count across a vocabulary of queries
type TopicHit struct {
	Path    string           `json:"path"`
	Count   int              `json:"count"`
	Samples []RetrievedMatch `json:"samples"`
}
