package app

import (
	"errors"
	"strings"
)

const (
	defaultChunkSize    = 500
	defaultChunkOverlap = 50

	// Sentence and line boundaries are only honored past this fraction of
	// the window, so chunks do not collapse to fragments; paragraph breaks
	// are strong enough to honor wherever they fall.
	minBoundaryFraction = 0.5
)

var ErrChunkerConfig = errors.New("chunk overlap must be smaller than chunk size")

// SplitText splits text into overlapping chunks of at most chunkSize runes,
// preferring to cut at a paragraph break, then a sentence end, then a line
// break. Each chunk is trimmed of surrounding whitespace; empty chunks are
// dropped. The function is pure: identical input and parameters always
// produce identical output.
func SplitText(text string, chunkSize, chunkOverlap int) ([]string, error) {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = defaultChunkOverlap
	}
	if chunkOverlap >= chunkSize {
		return nil, ErrChunkerConfig
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	minWeak := int(float64(chunkSize) * minBoundaryFraction)

	var chunks []string
	prevEnd := 0
	for start := 0; start < len(runes); {
		end := start + chunkSize
		sepLen := 0
		boundary := false
		if end >= len(runes) {
			end = len(runes)
		} else {
			window := string(runes[start:end])
			// A boundary must move past the previous chunk's end, or the
			// same break would be cut again after backing up by the overlap.
			if cut, sl, ok := boundaryCut(window, minWeak); ok && start+cut > prevEnd {
				end = start + cut
				sepLen = sl
				boundary = true
			}
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
		prevEnd = end

		var next int
		if boundary {
			next = end + sepLen - chunkOverlap
		} else {
			next = start + chunkSize - chunkOverlap
		}
		if next <= start {
			next = end + sepLen
		}
		start = next
	}
	return chunks, nil
}

// boundaryCut finds the rightmost natural boundary in window and returns the
// rune offset to cut at plus the rune length of the boundary marker.
// Paragraph breaks qualify anywhere; sentence ends and line breaks only past
// minWeak.
func boundaryCut(window string, minWeak int) (cut, sepLen int, ok bool) {
	if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
		return runeLen(window[:idx]), 2, true
	}
	if idx := strings.LastIndex(window, ". "); idx >= 0 {
		// The period stays with the chunk; only the space is skipped.
		if c := runeLen(window[:idx]) + 1; c > minWeak {
			return c, 1, true
		}
	}
	if idx := strings.LastIndex(window, "\n"); idx >= 0 {
		if c := runeLen(window[:idx]); c > minWeak {
			return c, 1, true
		}
	}
	return 0, 0, false
}

func runeLen(s string) int {
	return len([]rune(s))
}
