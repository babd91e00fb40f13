// Package learning tracks per-category keyword effectiveness from user
// behavior: how often a keyword helped surface a suggestion, and how often
// that suggestion was accepted or ignored.
package learning

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/plugpost/plugpost/pkg/plugpost/catalog"
	"github.com/plugpost/plugpost/pkg/plugpost/store"
)

// Defaults for SuggestedRemovals: a keyword needs this much evidence before
// it can be flagged, and must perform at or below this score.
const (
	DefaultMinMatches = 20
	DefaultMaxScore   = 0.1
)

// Store is the persistence surface the tracker needs. store.Store
// satisfies it.
type Store interface {
	GetKeywordStat(ctx context.Context, categoryID, keyword string) (store.KeywordStat, bool, error)
	SaveKeywordStat(ctx context.Context, s store.KeywordStat) error
	AllKeywordStats(ctx context.Context) ([]store.KeywordStat, error)
	DeleteKeywordStatsByCategory(ctx context.Context, categoryID string) (int, error)
}

// Tracker owns the keyword-stat table.
type Tracker struct {
	store Store
	now   func() time.Time
}

// NewTracker creates a tracker persisting through the given store.
func NewTracker(s Store) *Tracker {
	return &Tracker{store: s, now: time.Now}
}

// RecordMatch increments the match counter for every positive keyword in
// the set. Called when a suggestion built from these keywords is shown.
func (t *Tracker) RecordMatch(ctx context.Context, categoryID string, keywords []string) error {
	return t.bump(ctx, categoryID, keywords, func(s *store.KeywordStat) { s.Matches++ })
}

// RecordSelection increments the chosen counter for every positive keyword
// in the set. Called when the user accepts a suggestion.
func (t *Tracker) RecordSelection(ctx context.Context, categoryID string, keywords []string) error {
	return t.bump(ctx, categoryID, keywords, func(s *store.KeywordStat) { s.Chosen++ })
}

// RecordIgnore increments the ignored counter for every positive keyword in
// the set. Called by the UI boundary's timeout logic, never by this package.
func (t *Tracker) RecordIgnore(ctx context.Context, categoryID string, keywords []string) error {
	return t.bump(ctx, categoryID, keywords, func(s *store.KeywordStat) { s.Ignored++ })
}

// bump applies one counter mutation to each positive keyword, recalculating
// the derived score before persisting. Stats are created lazily on first
// touch. Negative keywords are never tracked.
func (t *Tracker) bump(ctx context.Context, categoryID string, keywords []string, mutate func(*store.KeywordStat)) error {
	categoryID = strings.ToLower(strings.TrimSpace(categoryID))
	if categoryID == "" {
		return nil
	}

	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || strings.HasPrefix(kw, catalog.NegationPrefix) {
			continue
		}

		stat, found, err := t.store.GetKeywordStat(ctx, categoryID, kw)
		if err != nil {
			return fmt.Errorf("load stat %s/%s: %w", categoryID, kw, err)
		}
		if !found {
			stat = store.KeywordStat{CategoryID: categoryID, Keyword: kw}
		}

		mutate(&stat)
		stat.Recalculate()
		stat.LastUpdated = t.now()

		if err := t.store.SaveKeywordStat(ctx, stat); err != nil {
			return fmt.Errorf("save stat %s/%s: %w", categoryID, kw, err)
		}
	}
	return nil
}

// Effectiveness returns the learned scores for a category, keyed by
// keyword, for the scorer's behavioral adjustment.
func (t *Tracker) Effectiveness(ctx context.Context, categoryID string) (map[string]float64, error) {
	categoryID = strings.ToLower(strings.TrimSpace(categoryID))
	stats, err := t.store.AllKeywordStats(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for _, s := range stats {
		if s.CategoryID != categoryID {
			continue
		}
		if s.Matches == 0 {
			continue
		}
		out[s.Keyword] = s.Score
	}
	return out, nil
}

// EffectivenessByCategory returns learned scores for every category in one
// read, keyed category → keyword → score. Keywords without any recorded
// match are omitted.
func (t *Tracker) EffectivenessByCategory(ctx context.Context) (map[string]map[string]float64, error) {
	stats, err := t.store.AllKeywordStats(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string]float64)
	for _, s := range stats {
		if s.Matches == 0 {
			continue
		}
		byKeyword, ok := out[s.CategoryID]
		if !ok {
			byKeyword = make(map[string]float64)
			out[s.CategoryID] = byKeyword
		}
		byKeyword[s.Keyword] = s.Score
	}
	return out, nil
}

// Removal is a keyword flagged for removal from its category.
type Removal struct {
	CategoryID string
	Keyword    string
	Score      float64
	Matches    int64
}

// SuggestedRemovals returns keywords with enough accumulated evidence
// (matches >= minMatches) that still perform poorly (score <= maxScore),
// sorted ascending by score. Pass zero to use the defaults.
func (t *Tracker) SuggestedRemovals(ctx context.Context, minMatches int64, maxScore float64) ([]Removal, error) {
	if minMatches <= 0 {
		minMatches = DefaultMinMatches
	}
	if maxScore <= 0 {
		maxScore = DefaultMaxScore
	}

	stats, err := t.store.AllKeywordStats(ctx)
	if err != nil {
		return nil, err
	}

	var removals []Removal
	for _, s := range stats {
		if s.Matches >= minMatches && s.Score <= maxScore {
			removals = append(removals, Removal{
				CategoryID: s.CategoryID,
				Keyword:    s.Keyword,
				Score:      s.Score,
				Matches:    s.Matches,
			})
		}
	}

	sort.SliceStable(removals, func(i, j int) bool {
		return removals[i].Score < removals[j].Score
	})
	return removals, nil
}

// CleanupOrphans removes stats belonging to categories no longer in the
// valid set and returns how many entries were dropped.
func (t *Tracker) CleanupOrphans(ctx context.Context, validCategoryIDs []string) (int, error) {
	valid := make(map[string]struct{}, len(validCategoryIDs))
	for _, id := range validCategoryIDs {
		valid[strings.ToLower(strings.TrimSpace(id))] = struct{}{}
	}

	stats, err := t.store.AllKeywordStats(ctx)
	if err != nil {
		return 0, err
	}

	orphaned := make(map[string]struct{})
	for _, s := range stats {
		if _, ok := valid[s.CategoryID]; !ok {
			orphaned[s.CategoryID] = struct{}{}
		}
	}

	removed := 0
	for categoryID := range orphaned {
		n, err := t.store.DeleteKeywordStatsByCategory(ctx, categoryID)
		if err != nil {
			return removed, fmt.Errorf("cleanup category %s: %w", categoryID, err)
		}
		removed += n
	}
	return removed, nil
}
