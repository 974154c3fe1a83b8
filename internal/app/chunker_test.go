package app

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitTextEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\n\t "} {
		chunks, err := SplitText(input, 100, 10)
		if err != nil {
			t.Fatalf("SplitText(%q) returned error: %v", input, err)
		}
		if chunks != nil {
			t.Fatalf("SplitText(%q) = %v, want nil", input, chunks)
		}
	}
}

func TestSplitTextConfigError(t *testing.T) {
	if _, err := SplitText("some text", 100, 100); !errors.Is(err, ErrChunkerConfig) {
		t.Fatalf("overlap == size: got %v, want ErrChunkerConfig", err)
	}
	if _, err := SplitText("some text", 50, 80); !errors.Is(err, ErrChunkerConfig) {
		t.Fatalf("overlap > size: got %v, want ErrChunkerConfig", err)
	}
}

func TestSplitTextShortInput(t *testing.T) {
	chunks, err := SplitText("  a short note\n", 500, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 || chunks[0] != "a short note" {
		t.Fatalf("got %v, want single trimmed chunk", chunks)
	}
}

func TestSplitTextParagraphBoundary(t *testing.T) {
	text := "Paragraph one.\n\nParagraph two is longer and continues for a while to exceed the chunk size limit that we set."
	chunks, err := SplitText(text, 60, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != "Paragraph one." {
		t.Fatalf("first chunk = %q, want cut at the paragraph break", chunks[0])
	}
	// The second chunk backs up by at most the overlap from the break.
	if !strings.Contains(text, chunks[1][:1]) {
		t.Fatalf("second chunk %q not found in source", chunks[1])
	}
	idx := strings.Index(text, chunks[1])
	if idx < 0 {
		t.Fatalf("second chunk %q is not a substring of the source", chunks[1])
	}
	boundary := strings.Index(text, "\n\n")
	if boundary-idx > 10 {
		t.Fatalf("second chunk starts %d runes before the break, overlap is 10", boundary-idx)
	}
}

func TestSplitTextSentenceBoundary(t *testing.T) {
	text := strings.Repeat("x", 69) + ". " + strings.Repeat("y", 200)
	chunks, err := SplitText(text, 100, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Repeat("x", 69) + "."
	if chunks[0] != want {
		t.Fatalf("first chunk = %q (len %d), want the sentence including its period", chunks[0], len(chunks[0]))
	}
}

func TestSplitTextHardCutCoverage(t *testing.T) {
	// No natural boundaries anywhere: every cut is hard, consecutive
	// chunks overlap by exactly the configured amount.
	text := strings.Repeat("a", 250)
	chunks, err := SplitText(text, 100, 20)
	if err != nil {
		t.Fatal(err)
	}
	wantLens := []int{100, 100, 90}
	if len(chunks) != len(wantLens) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(wantLens))
	}
	total := 0
	for i, c := range chunks {
		if len(c) != wantLens[i] {
			t.Errorf("chunk %d length = %d, want %d", i, len(c), wantLens[i])
		}
		total += len(c)
	}
	// 250 characters plus 2 overlaps of 20.
	if total != 290 {
		t.Fatalf("covered %d characters, want 290", total)
	}
}

func TestSplitTextMultibyteRunes(t *testing.T) {
	text := strings.Repeat("界", 250)
	chunks, err := SplitText(text, 100, 20)
	if err != nil {
		t.Fatal(err)
	}
	wantLens := []int{100, 100, 90}
	if len(chunks) != len(wantLens) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(wantLens))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n != wantLens[i] {
			t.Errorf("chunk %d rune length = %d, want %d", i, n, wantLens[i])
		}
	}
}

func TestSplitTextDeterministic(t *testing.T) {
	text := "First paragraph with some words.\n\nSecond paragraph, also with words. And a second sentence that keeps going for a bit longer."
	a, err := SplitText(text, 50, 10)
	if err != nil {
		t.Fatal(err)
	}
	b, err := SplitText(text, 50, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs: %q vs %q", i, a[i], b[i])
		}
	}
}
