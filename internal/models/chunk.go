// ABOUTME: Chunk represents a contiguous line window of a source file
// ABOUTME: Ranges are 1-indexed and inclusive on both ends
package models

import "unicode/utf8"

// PreviewBytes bounds the text stored alongside each indexed point.
const PreviewBytes = 600

// Chunk is one overlapping window produced by the line chunker
type Chunk struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Text    string `json:"text"`
	Preview string `json:"preview"`
}

// Lines returns the number of source lines covered by the chunk
func (c Chunk) Lines() int {
	return c.End - c.Start + 1
}

// Preview returns at most n bytes of text without splitting a UTF-8 sequence.
func Preview(text string, n int) string {
	if len(text) <= n {
		return text
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
