package loader

import (
	"fmt"
	"strings"
)

var (
	paragraphBreak = []rune("\n\n")
	sentenceBreak  = []rune(". ")
	lineBreak      = []rune("\n")
)

// ChunkText splits text into overlapping chunks of at most chunkSize
// characters. Cuts prefer a paragraph break, then a sentence end, then a
// newline, as long as the break lies in the second half of the window.
// Each chunk is trimmed and empty chunks are dropped.
func ChunkText(text string, chunkSize, overlap int) ([]string, error) {
	if err := validate(chunkSize, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}, nil
		}
		return nil, nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := min(start+chunkSize, len(runes))
		if end < len(runes) {
			end = smartBoundary(runes, start, end)
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		// Stop at the window that reaches the end instead of looping until
		// start passes it. One more pass would emit a chunk holding nothing
		// but the overlap of this one.
		if end == len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks, nil
}

// smartBoundary returns the cut position for the window [start, end).
func smartBoundary(runes []rune, start, end int) int {
	window := runes[start:end]
	half := len(window) / 2

	for _, sep := range [][]rune{paragraphBreak, sentenceBreak, lineBreak} {
		if i := lastIndex(window, sep); i > half {
			return start + i + len(sep)
		}
	}
	return end
}

// lastIndex returns the rune offset of the last occurrence of sep in s, or -1.
func lastIndex(s, sep []rune) int {
	for i := len(s) - len(sep); i >= 0; i-- {
		match := true
		for j := range sep {
			if s[i+j] != sep[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func validate(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunking, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidChunking, overlap, chunkSize)
	}
	return nil
}
