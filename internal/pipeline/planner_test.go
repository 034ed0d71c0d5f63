package pipeline

import (
	"strings"
	"testing"
)

func TestPlanShortTextNeverSplit(t *testing.T) {
	text := "This is short. It has two sentences!"
	chunks := Plan(text, 120, 90, 3)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != text {
		t.Errorf("short text must pass through unchanged, got %q", chunks[0])
	}
}

func TestPlanEmptyText(t *testing.T) {
	if chunks := Plan("   ", 120, 90, 3); chunks != nil {
		t.Errorf("expected nil for blank text, got %v", chunks)
	}
}

func TestPlanLongTextSplitsInOrder(t *testing.T) {
	sentence := "The quick brown fox jumps over the lazy dog near the river." // 60 chars
	text := strings.Repeat(sentence+" ", 5)                                  // ~300 chars
	chunks := Plan(text, 120, 90, 3)

	if len(chunks) < 2 || len(chunks) > 3 {
		t.Fatalf("expected 2 or 3 chunks, got %d", len(chunks))
	}
	joined := strings.Join(chunks, " ")
	if strings.Count(joined, "fox") != 5 {
		t.Errorf("chunking dropped text: %q", joined)
	}
	// Chunks follow text order: each must prefix what remains of the original
	rest := strings.TrimSpace(text)
	for i, c := range chunks {
		if !strings.HasPrefix(rest, c) {
			t.Fatalf("chunk %d out of order: %q does not continue %q", i, c, rest[:40])
		}
		rest = strings.TrimSpace(rest[len(c):])
	}
}

func TestPlanSplitsAtExactMinimum(t *testing.T) {
	first := "A" + strings.Repeat("a", 57) + "."
	second := strings.Repeat("b", 59) + "."
	text := first + " " + second
	if n := len(text); n != 120 {
		t.Fatalf("fixture must be exactly 120 chars, got %d", n)
	}

	chunks := Plan(text, 120, 90, 3)
	if len(chunks) != 2 {
		t.Fatalf("text at the split threshold must split, got %d chunks: %v", len(chunks), chunks)
	}
	if chunks[0] != first || chunks[1] != second {
		t.Errorf("unexpected chunk boundaries: %v", chunks)
	}
}

func TestPlanRespectsChunkCeiling(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 12; i++ {
		b.WriteString("A fairly long sentence that stands completely on its own here. ")
	}
	chunks := Plan(b.String(), 120, 90, 3)
	if len(chunks) > 3 {
		t.Fatalf("expected at most 3 chunks, got %d", len(chunks))
	}
	joined := strings.Join(chunks, " ")
	if strings.Count(joined, "sentence") != 12 {
		t.Errorf("overflow merge dropped sentences: got %d of 12", strings.Count(joined, "sentence"))
	}
}

func TestPlanTextWithoutPunctuation(t *testing.T) {
	text := strings.Repeat("word ", 40) // 200 chars, no sentence breaks
	chunks := Plan(text, 120, 90, 3)
	if len(chunks) != 1 {
		t.Fatalf("unpunctuated text must stay one chunk, got %d", len(chunks))
	}
}
