// Package ingest turns raw social-post text into the normalized keyword set
// the scorer matches templates against.
package ingest

import (
	"strings"
	"unicode"
)

// MinTokenLength is the shortest token kept after normalization.
const MinTokenLength = 3

// Extractor tokenizes post content into lowercased, deduplicated keywords,
// dropping stopwords and short tokens. Extraction is pure: no state is
// mutated by Extract, so a single Extractor is safe to share.
type Extractor struct {
	stopwords map[string]struct{}
	minLength int
}

// NewExtractor creates an extractor with the given stopword list. Pass
// DefaultStopwords for the shipped English list.
func NewExtractor(stopwords []string) *Extractor {
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stops[strings.ToLower(w)] = struct{}{}
	}
	return &Extractor{stopwords: stops, minLength: MinTokenLength}
}

// Extract splits text into normalized keywords. Order is first occurrence;
// duplicates, stopwords, bare URLs and tokens shorter than the minimum
// length are dropped. Mentions and hashtags keep their word body. Empty or
// whitespace input yields an empty set, never an error.
func (e *Extractor) Extract(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	text = StripHTML(text)

	var keywords []string
	seen := make(map[string]struct{})
	for _, field := range strings.Fields(text) {
		if isURL(field) {
			continue
		}
		for _, token := range splitWords(field) {
			word := e.processToken(token)
			if word == "" {
				continue
			}
			if _, ok := seen[word]; ok {
				continue
			}
			seen[word] = struct{}{}
			keywords = append(keywords, word)
		}
	}
	return keywords
}

// splitWords breaks one whitespace-delimited field into word tokens,
// keeping letters, digits and inner hyphens/apostrophes. The leading
// @ or # of mentions and hashtags falls away here, keeping the body.
func splitWords(field string) []string {
	var tokens []string
	var current strings.Builder
	for _, r := range field {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' || r == '\'' {
			current.WriteRune(unicode.ToLower(r))
		} else if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

func (e *Extractor) processToken(token string) string {
	word := strings.Trim(token, "-'")
	for strings.Contains(word, "--") {
		word = strings.ReplaceAll(word, "--", "-")
	}
	if len(word) < e.minLength {
		return ""
	}
	if isNumericOnly(word) {
		return ""
	}
	if _, ok := e.stopwords[word]; ok {
		return ""
	}
	return word
}

// isNumericOnly reports whether the token carries only digits and hyphens.
// Mixed tokens like "4x4" or "gpt-4" are kept.
func isNumericOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}

func isURL(field string) bool {
	lower := strings.ToLower(field)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "www.")
}

// AddStopword adds a word to the stopword list.
func (e *Extractor) AddStopword(word string) {
	e.stopwords[strings.ToLower(word)] = struct{}{}
}

// RemoveStopword removes a word from the stopword list.
func (e *Extractor) RemoveStopword(word string) {
	delete(e.stopwords, strings.ToLower(word))
}
