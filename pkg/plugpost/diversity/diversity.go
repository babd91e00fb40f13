// Package diversity selects the final suggestion set so near-duplicate
// templates do not crowd out distinct ones.
package diversity

import (
	"github.com/plugpost/plugpost/pkg/plugpost/match"
)

// DefaultThreshold is the similarity above which two templates count as
// near-duplicates.
const DefaultThreshold = 0.5

// Diversify greedily picks up to maxResults candidates from a score-sorted
// list, skipping candidates too similar to an already-selected one. The
// highest-scoring candidate is always selected first. If the threshold
// leaves slots unfilled, the remaining highest scorers backfill regardless
// of similarity, so the result never shrinks below
// min(maxResults, len(candidates)).
func Diversify(candidates []match.Candidate, maxResults int, threshold float64) []match.Candidate {
	if maxResults <= 0 || len(candidates) == 0 {
		return nil
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	tags := make([]map[string]struct{}, len(candidates))
	for i, c := range candidates {
		tags[i] = c.Template.Tags()
	}

	selected := make([]match.Candidate, 0, maxResults)
	taken := make([]bool, len(candidates))
	var selectedTags []map[string]struct{}

	for i, c := range candidates {
		if len(selected) >= maxResults {
			break
		}
		if tooSimilar(tags[i], selectedTags, threshold) {
			continue
		}
		selected = append(selected, c)
		selectedTags = append(selectedTags, tags[i])
		taken[i] = true
	}

	// Backfill with the next-highest scorers regardless of similarity.
	for i, c := range candidates {
		if len(selected) >= maxResults {
			break
		}
		if !taken[i] {
			selected = append(selected, c)
			taken[i] = true
		}
	}

	return selected
}

func tooSimilar(tags map[string]struct{}, selected []map[string]struct{}, threshold float64) bool {
	for _, other := range selected {
		if Similarity(tags, other) >= threshold {
			return true
		}
	}
	return false
}

// Similarity is the Jaccard overlap between two tag sets
// ({category} ∪ verticals ∪ positive keywords). Two empty sets count as
// identical.
func Similarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}

	intersection := 0
	for tag := range a {
		if _, ok := b[tag]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
