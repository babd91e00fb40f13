// Package match scores catalog templates against extracted post keywords.
package match

import (
	"strings"

	"github.com/plugpost/plugpost/pkg/plugpost/catalog"
)

// Weights defines the scoring weights.
type Weights struct {
	Keyword            float64 // weight per exact keyword match
	PartialKeyword     float64 // weight per substring (partial) match
	VerticalBonus      float64 // category/vertical agreement bonus
	MinEffectiveness   float64 // learned score below this triggers down-weighting
	EffectivenessFloor float64 // minimum retained weight factor for a down-weighted keyword
}

// DefaultWeights returns the default scoring weights. The vertical bonus is
// kept below a full keyword match so tag agreement nudges ranking without
// dominating it. Down-weighted keywords keep at least the floor factor;
// only explicit removal silences a keyword entirely.
func DefaultWeights() Weights {
	return Weights{
		Keyword:            1.0,
		PartialKeyword:     0.5,
		VerticalBonus:      0.25,
		MinEffectiveness:   0.1,
		EffectivenessFloor: 0.25,
	}
}

// Post is the scoring view of one piece of post content.
type Post struct {
	RawText           string   // original text, used for negative-keyword substring checks
	Keywords          []string // normalized keywords from ingest.Extractor
	PreferredCategory string   // user-selected category context, may be empty
}

// EffectivenessFunc looks up the learned effectiveness score for a keyword.
// The second return is false when no learned signal exists.
type EffectivenessFunc func(keyword string) (float64, bool)

// Breakdown explains one template's score.
type Breakdown struct {
	Rejected   bool     // a negative keyword matched the post
	RejectedBy string   // the negative keyword that matched
	Matched    []string // positive keywords that matched
	Overlap    float64  // normalized keyword-overlap component
	Bonus      float64  // vertical/category bonus component
	Total      float64
}

// Candidate pairs a template with its score for downstream filtering.
type Candidate struct {
	Template  catalog.Template
	Score     float64
	Breakdown Breakdown
}

// Scorer computes template relevance scores.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weights.
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Score computes the relevance of a template for a post.
//
// score = Σ(keyword match weight · effectiveness factor) / |positive keywords| + vertical bonus
//
// Any negative-keyword hit rejects the template outright (score 0), so a
// conflicted template can never outrank a conflict-free one. The division
// by positive keyword count keeps keyword-heavy templates from winning on
// volume alone; the result stays within [0, 1 + VerticalBonus].
func (s *Scorer) Score(t catalog.Template, post Post, eff EffectivenessFunc) float64 {
	return s.ScoreWithBreakdown(t, post, eff).Total
}

// ScoreWithBreakdown computes the score with its component breakdown.
func (s *Scorer) ScoreWithBreakdown(t catalog.Template, post Post, eff EffectivenessFunc) Breakdown {
	rawLower := strings.ToLower(post.RawText)

	if neg, hit := s.negativeHit(t, rawLower, post.Keywords); hit {
		return Breakdown{Rejected: true, RejectedBy: neg}
	}

	positives := t.PositiveKeywords()
	if len(positives) == 0 {
		return Breakdown{}
	}

	var breakdown Breakdown
	sum := 0.0
	for _, kw := range positives {
		weight := s.matchWeight(kw, rawLower, post.Keywords)
		if weight == 0 {
			continue
		}
		if eff != nil {
			weight *= s.effectivenessFactor(kw, eff)
		}
		sum += weight
		breakdown.Matched = append(breakdown.Matched, kw)
	}
	breakdown.Overlap = sum / float64(len(positives))

	if s.verticalHit(t, post) {
		breakdown.Bonus = s.weights.VerticalBonus
	}

	breakdown.Total = breakdown.Overlap + breakdown.Bonus
	return breakdown
}

// negativeHit checks the template's negative keywords against the raw text
// (substring, case-insensitive) and the extracted keyword set.
func (s *Scorer) negativeHit(t catalog.Template, rawLower string, keywords []string) (string, bool) {
	for _, neg := range t.NegativeKeywords() {
		if strings.Contains(rawLower, neg) {
			return neg, true
		}
		for _, kw := range keywords {
			if kw == neg {
				return neg, true
			}
		}
	}
	return "", false
}

// matchWeight returns the weight a positive keyword earns against the post:
// full weight for an exact keyword (or multi-word phrase) hit, partial
// weight for a substring overlap, zero otherwise.
func (s *Scorer) matchWeight(kw, rawLower string, keywords []string) float64 {
	// Multi-word keywords never appear in the tokenized set; match them
	// against the raw text.
	if strings.ContainsRune(kw, ' ') {
		if strings.Contains(rawLower, kw) {
			return s.weights.Keyword
		}
		return 0
	}

	partial := false
	for _, extracted := range keywords {
		if extracted == kw {
			return s.weights.Keyword
		}
		if len(kw) >= 4 && (strings.Contains(extracted, kw) || strings.Contains(kw, extracted)) {
			partial = true
		}
	}
	if partial {
		return s.weights.PartialKeyword
	}
	return 0
}

// effectivenessFactor down-weights keywords the learning store has marked
// as poor performers. The factor never drops below the floor: a learned
// signal biases scoring but cannot silence a keyword.
func (s *Scorer) effectivenessFactor(kw string, eff EffectivenessFunc) float64 {
	score, ok := eff(kw)
	if !ok || score >= s.weights.MinEffectiveness {
		return 1.0
	}
	factor := score / s.weights.MinEffectiveness
	if factor < s.weights.EffectivenessFloor {
		factor = s.weights.EffectivenessFloor
	}
	return factor
}

// verticalHit reports whether the post context agrees with the template's
// category or verticals, either via the caller-selected category or a
// category tag appearing directly in the extracted keywords.
func (s *Scorer) verticalHit(t catalog.Template, post Post) bool {
	if t.MatchesVertical(post.PreferredCategory) {
		return true
	}
	for _, kw := range post.Keywords {
		if t.MatchesVertical(kw) {
			return true
		}
	}
	return false
}
