package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// sentencePartRe splits text into sentence-shaped parts, each keeping its
// terminal punctuation run. A trailing fragment without punctuation still
// matches.
var sentencePartRe = regexp.MustCompile(`[^.!?]+[.!?]*`)

// Plan splits an utterance into at most maxChunks chunks for synthesis.
// Text under minChars is never split. Sentence parts are packed
// greedily up to targetChars; the final chunk absorbs whatever remains once
// the chunk ceiling is reached. Chunk order is the text order, never
// rearranged. Any degenerate outcome falls back to the single whole-text
// chunk.
func Plan(text string, minChars, targetChars, maxChunks int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if maxChunks < 1 {
		maxChunks = 1
	}
	if maxChunks == 1 || utf8.RuneCountInString(trimmed) < minChars {
		return []string{trimmed}
	}

	parts := sentencePartRe.FindAllString(trimmed, -1)
	if len(parts) <= 1 {
		return []string{trimmed}
	}

	var chunks []string
	var current string
	for _, part := range parts {
		// A new chunk opens only while the ceiling leaves room for the
		// remainder to land in a final chunk.
		if current != "" &&
			utf8.RuneCountInString(current)+utf8.RuneCountInString(part) > targetChars &&
			len(chunks) < maxChunks-1 {
			chunks = append(chunks, strings.TrimSpace(current))
			current = part
			continue
		}
		current += part
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	if len(chunks) <= 1 || len(chunks) > maxChunks {
		return []string{trimmed}
	}
	return chunks
}
