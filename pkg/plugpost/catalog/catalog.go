package catalog

import (
	"errors"
	"strings"
)

// NegationPrefix marks a keyword as negative: its presence in post content
// disqualifies the template instead of matching it.
const NegationPrefix = "-"

// Placeholders documents the placeholder syntax carried in suggestion text.
// Template bodies may contain `{url}` (and other `{name}` tokens); they are
// emitted unresolved and substituted by the consuming UI layer.
const Placeholders = "{url}"

// Template is a unit of suggestable text with its matching metadata.
type Template struct {
	ID         string   `yaml:"id"`
	Label      string   `yaml:"label"`
	Category   string   `yaml:"category"`
	Verticals  []string `yaml:"verticals"`
	Keywords   []string `yaml:"keywords"`
	Body       string   `yaml:"template"`
	Variants   []string `yaml:"variants"`
	IsPrebuilt bool     `yaml:"prebuilt"`
	UsageCount int64    `yaml:"-"`
}

// Normalize applies defaults and canonical casing once at the load boundary
// so downstream scoring never re-checks optional fields. Keywords, category
// and verticals are lowercased; empty entries are dropped.
func (t *Template) Normalize() {
	t.ID = strings.TrimSpace(t.ID)
	t.Label = strings.TrimSpace(t.Label)
	t.Category = strings.ToLower(strings.TrimSpace(t.Category))

	verticals := t.Verticals[:0]
	for _, v := range t.Verticals {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			verticals = append(verticals, v)
		}
	}
	t.Verticals = verticals
	if t.Verticals == nil {
		t.Verticals = []string{}
	}

	keywords := t.Keywords[:0]
	for _, k := range t.Keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || k == NegationPrefix {
			continue
		}
		keywords = append(keywords, k)
	}
	t.Keywords = keywords

	variants := t.Variants[:0]
	for _, v := range t.Variants {
		if strings.TrimSpace(v) != "" {
			variants = append(variants, v)
		}
	}
	t.Variants = variants
	if t.Variants == nil {
		t.Variants = []string{}
	}
}

// Validate checks the fields a template needs to be matchable.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("template ID is required")
	}
	if strings.TrimSpace(t.Body) == "" {
		return errors.New("template body is required")
	}
	if len(t.PositiveKeywords()) == 0 {
		return errors.New("template needs at least one positive keyword")
	}
	return nil
}

// PositiveKeywords returns the keywords that count toward overlap, in
// catalog order.
func (t *Template) PositiveKeywords() []string {
	var out []string
	for _, k := range t.Keywords {
		if !strings.HasPrefix(k, NegationPrefix) {
			out = append(out, k)
		}
	}
	return out
}

// NegativeKeywords returns the disqualifying keywords with the negation
// prefix stripped.
func (t *Template) NegativeKeywords() []string {
	var out []string
	for _, k := range t.Keywords {
		if strings.HasPrefix(k, NegationPrefix) {
			body := strings.TrimPrefix(k, NegationPrefix)
			if body != "" {
				out = append(out, body)
			}
		}
	}
	return out
}

// HasVariants reports whether variant selection applies to this template.
func (t *Template) HasVariants() bool {
	return len(t.Variants) > 0
}

// Tags returns the identity set used for diversity comparisons:
// category, verticals and positive keywords.
func (t *Template) Tags() map[string]struct{} {
	tags := make(map[string]struct{}, 1+len(t.Verticals)+len(t.Keywords))
	if t.Category != "" {
		tags[t.Category] = struct{}{}
	}
	for _, v := range t.Verticals {
		tags[v] = struct{}{}
	}
	for _, k := range t.PositiveKeywords() {
		tags[k] = struct{}{}
	}
	return tags
}

// MatchesVertical reports whether tag equals the template's category or any
// of its verticals.
func (t *Template) MatchesVertical(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return false
	}
	if tag == t.Category {
		return true
	}
	for _, v := range t.Verticals {
		if v == tag {
			return true
		}
	}
	return false
}
