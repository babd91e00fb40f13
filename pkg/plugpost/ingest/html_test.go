package ingest

import (
	"strings"
	"testing"
)

func TestStripHTMLPlainTextPassthrough(t *testing.T) {
	in := "no markup here"
	if got := StripHTML(in); got != in {
		t.Errorf("Plain text should pass through, got %q", got)
	}
}

func TestStripHTMLRemovesTags(t *testing.T) {
	got := StripHTML(`<div>My <a href="x">car</a> needs<br>repair</div>`)

	for _, word := range []string{"car", "needs", "repair"} {
		if !strings.Contains(got, word) {
			t.Errorf("Expected %q in stripped text, got %q", word, got)
		}
	}
	if strings.Contains(got, "<") || strings.Contains(got, "href") {
		t.Errorf("Markup should be gone, got %q", got)
	}
}

func TestStripHTMLKeepsWordBoundaries(t *testing.T) {
	got := StripHTML("<p>brake</p><p>pads</p>")

	if strings.Contains(got, "brakepads") {
		t.Errorf("Adjacent elements must not merge words, got %q", got)
	}
}
