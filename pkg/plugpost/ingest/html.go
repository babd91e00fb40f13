package ingest

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML flattens an HTML fragment to its text content. Post bodies
// scraped from a feed DOM often arrive with markup; plain text passes
// through unchanged. Falls back to the input if parsing fails.
func StripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}
