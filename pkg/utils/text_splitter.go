package utils

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 200
)

// TextSpan is one chunk of a larger text. Start and End are rune offsets into
// the original text, End exclusive.
type TextSpan struct {
	Index int
	Text  string
	Start int
	End   int
}

// SplitText splits text into chunks of at most chunkSize characters (runes).
// Consecutive chunks share 'overlap' characters to preserve context at
// boundaries. The split is purely positional, so the same input and settings
// always produce the same boundaries.
func SplitText(text string, chunkSize int, overlap int) []TextSpan {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	chunkSize, overlap = normalizeSplitConfig(chunkSize, overlap)

	runes := []rune(text)
	totalLen := len(runes)
	step := chunkSize - overlap

	spans := make([]TextSpan, 0, totalLen/step+1)
	for i := 0; i < totalLen; i += step {
		end := i + chunkSize
		if end > totalLen {
			end = totalLen
		}

		// Strict character slicing; breaking on whitespace would make offsets
		// depend on content and lose characters at the edges.
		spans = append(spans, TextSpan{
			Index: len(spans),
			Text:  string(runes[i:end]),
			Start: i,
			End:   end,
		})

		if end == totalLen {
			break
		}
	}

	return spans
}

func normalizeSplitConfig(chunkSize, overlap int) (int, int) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	// Ensure overlap doesn't exceed chunk size
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return chunkSize, overlap
}

// EstimateTokens approximates the token count of text (~4 characters/token).
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
