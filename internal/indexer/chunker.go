package indexer

import (
	"fmt"
	"strings"

	"smartnotex/internal/service"
)

// sentenceEnders are the boundary patterns the chunker prefers to cut at,
// checked in order. Each is a sentence terminator followed by whitespace.
var sentenceEnders = []string{". ", ".\n", "! ", "!\n", "? ", "?\n"}

// Chunker splits corpus text into overlapping, sentence-boundary-aware
// segments sized for the embedding model. Sizes are measured in runes.
type Chunker struct {
	maxSize int
	overlap int
}

// NewChunker creates a chunker with the given maximum chunk size and overlap
// window, both in runes. overlap >= maxSize would never advance the window,
// so it is rejected as a configuration error.
func NewChunker(maxSize, overlap int) (*Chunker, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: chunk max size must be positive, got %d", service.ErrConfiguration, maxSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", service.ErrConfiguration, overlap)
	}
	if overlap >= maxSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than max size %d", service.ErrConfiguration, overlap, maxSize)
	}
	return &Chunker{maxSize: maxSize, overlap: overlap}, nil
}

// Split splits text into chunks of at most maxSize runes. Before cutting a
// window it scans backward for the nearest sentence boundary and cuts there
// instead, so complete sentences survive wherever possible. Consecutive
// chunks share up to overlap runes. Chunks that are empty after trimming are
// dropped. The input is never mutated.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) <= c.maxSize {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.maxSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			// Prefer the last sentence boundary inside the window.
			window := string(runes[start:end])
			for _, punct := range sentenceEnders {
				if i := strings.LastIndex(window, punct); i != -1 {
					// Cut just after the terminator rune.
					end = start + len([]rune(window[:i])) + 1
					break
				}
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}
		// Carry the overlap window back, but always advance: a boundary cut
		// very close to start could otherwise move the window backward.
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// MaxSize returns the configured maximum chunk size in runes.
func (c *Chunker) MaxSize() int {
	return c.maxSize
}

// Overlap returns the configured overlap window in runes.
func (c *Chunker) Overlap() int {
	return c.overlap
}
