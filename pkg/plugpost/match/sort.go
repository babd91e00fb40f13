package match

import "sort"

// SortCandidates orders candidates for ranking: score descending, then
// usage count ascending (prefer less-used templates), with input order
// preserved for full ties. Deterministic for identical inputs.
func SortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Template.UsageCount < candidates[j].Template.UsageCount
	})
}
