// Package plugpost suggests promotional text snippets for social-media
// posts. It matches a template catalog against extracted post keywords,
// enforces a per-group usage cooldown, rotates template variants and keeps
// the final suggestion set diverse. A secondary learning store adjusts
// keyword effectiveness from selection/ignore feedback.
package plugpost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/plugpost/plugpost/pkg/plugpost/catalog"
	"github.com/plugpost/plugpost/pkg/plugpost/diversity"
	"github.com/plugpost/plugpost/pkg/plugpost/ingest"
	"github.com/plugpost/plugpost/pkg/plugpost/internalerr"
	"github.com/plugpost/plugpost/pkg/plugpost/learning"
	"github.com/plugpost/plugpost/pkg/plugpost/match"
	"github.com/plugpost/plugpost/pkg/plugpost/rotation"
	"github.com/plugpost/plugpost/pkg/plugpost/store"
)

// Confidence is the coarse UI bucket for a suggestion's score.
type Confidence string

// Confidence buckets, monotonic in score.
const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceVeryLow Confidence = "very_low"
)

// Suggestion is one ranked suggestion. Text carries unresolved placeholder
// tokens (catalog.Placeholders); the UI layer substitutes them before
// display.
type Suggestion struct {
	TemplateID   string
	Category     string
	Text         string
	Score        float64
	Rank         int
	Confidence   Confidence
	VariantIndex int // store.MainVariant when the main body was used
	IsMainText   bool
}

// Config tunes the engine.
type Config struct {
	MaxResults         int
	MinScore           float64
	Cooldown           time.Duration
	DiversityThreshold float64
	IgnoreTimeout      time.Duration
	CatalogCacheSize   int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		MaxResults:         3,
		MinScore:           0.15,
		Cooldown:           rotation.DefaultCooldown,
		DiversityThreshold: diversity.DefaultThreshold,
		IgnoreTimeout:      learning.DefaultIgnoreTimeout,
		CatalogCacheSize:   32,
	}
}

// Options configures an Engine.
type Options struct {
	Store     store.Store
	Extractor *ingest.Extractor
	Scorer    *match.Scorer
	Config    Config
	Logger    *slog.Logger
}

// Engine is the suggestion orchestrator: extraction, scoring, rotation,
// diversity and variant selection composed behind one entry point.
type Engine struct {
	store     store.Store
	extractor *ingest.Extractor
	scorer    *match.Scorer
	tracker   *learning.Tracker
	cache     *catalog.Cache
	cfg       Config
	log       *slog.Logger

	mu      sync.Mutex
	watches map[string]*learning.Watch
}

// New creates an Engine. Store is required; extractor, scorer, config and
// logger default when omitted.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("engine: %w: store is required", internalerr.ErrInvalidConfig)
	}
	if opts.Extractor == nil {
		opts.Extractor = ingest.NewExtractor(ingest.DefaultStopwords)
	}
	if opts.Scorer == nil {
		opts.Scorer = match.NewScorer(match.DefaultWeights())
	}
	if opts.Config == (Config{}) {
		opts.Config = DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cache, err := catalog.NewCache(catalogSource{opts.Store}, opts.Config.CatalogCacheSize)
	if err != nil {
		return nil, fmt.Errorf("engine: catalog cache: %w", err)
	}

	return &Engine{
		store:     opts.Store,
		extractor: opts.Extractor,
		scorer:    opts.Scorer,
		tracker:   learning.NewTracker(opts.Store),
		cache:     cache,
		cfg:       opts.Config,
		log:       opts.Logger,
		watches:   make(map[string]*learning.Watch),
	}, nil
}

// Close shuts down the engine and its store.
func (e *Engine) Close() error {
	e.mu.Lock()
	for groupID, w := range e.watches {
		w.Cancel()
		delete(e.watches, groupID)
	}
	e.mu.Unlock()
	return e.store.Close()
}

// Tracker exposes the keyword-learning store for maintenance operations
// (removal suggestions, orphan cleanup).
func (e *Engine) Tracker() *learning.Tracker {
	return e.tracker
}

// InvalidateCatalog drops cached catalog reads. Call after template writes
// performed outside the engine.
func (e *Engine) InvalidateCatalog(category string) {
	if category == "" {
		e.cache.Reset()
		return
	}
	e.cache.Invalidate(category)
}

// SuggestOptions tunes a single GetSuggestions call.
type SuggestOptions struct {
	MaxResults        int
	PreferredCategory string
	Now               time.Time // zero means time.Now(); settable for tests
}

// GetSuggestions returns ranked suggestions for a post within a group.
//
// Empty post content yields an empty result without error. A missing
// groupID is rejected with internalerr.ErrInvalidInput: group-scoped
// rotation is the engine's core safety guarantee, so running without a
// group context would silently disable spam protection.
func (e *Engine) GetSuggestions(ctx context.Context, postContent, groupID string, opts SuggestOptions) ([]Suggestion, error) {
	if strings.TrimSpace(groupID) == "" {
		return nil, fmt.Errorf("get suggestions: %w: groupID is required", internalerr.ErrInvalidInput)
	}
	if strings.TrimSpace(postContent) == "" {
		return []Suggestion{}, nil
	}

	keywords := e.extractor.Extract(postContent)
	if len(keywords) == 0 {
		return []Suggestion{}, nil
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = e.cfg.MaxResults
	}

	templates, err := e.cache.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("get suggestions: load catalog: %w", err)
	}
	if len(templates) == 0 {
		return []Suggestion{}, nil
	}

	// Learned effectiveness biases scoring but is never load-bearing.
	effectiveness, err := e.tracker.EffectivenessByCategory(ctx)
	if err != nil {
		e.log.Warn("keyword stats unavailable, scoring without learning signal", "error", err)
		effectiveness = nil
	}

	post := match.Post{
		RawText:           postContent,
		Keywords:          keywords,
		PreferredCategory: opts.PreferredCategory,
	}

	candidates := e.scoreCatalog(templates, post, effectiveness)
	if len(candidates) == 0 {
		return []Suggestion{}, nil
	}
	match.SortCandidates(candidates)

	filtered := rotation.Filter(ctx, candidates, groupID, e.cfg.Cooldown, opts.Now, e.store)
	if filtered.LookupErrors > 0 {
		e.log.Warn("usage history lookups failed, rotation degraded to fail-open",
			"group", groupID, "failures", filtered.LookupErrors)
	}
	if filtered.Relaxed {
		e.log.Warn("all candidates cooling down, falling back to oldest-used-first", "group", groupID)
	}

	selected := diversity.Diversify(filtered.Kept, maxResults, e.cfg.DiversityThreshold)

	suggestions := make([]Suggestion, 0, len(selected))
	for rank, c := range selected {
		sel, err := rotation.SelectVariant(ctx, c.Template, groupID, e.store)
		if err != nil {
			e.log.Warn("variant history lookup failed, defaulting to first variant",
				"template", c.Template.ID, "group", groupID, "error", err)
		}
		suggestions = append(suggestions, Suggestion{
			TemplateID:   c.Template.ID,
			Category:     c.Template.Category,
			Text:         sel.Text,
			Score:        c.Score,
			Rank:         rank + 1,
			Confidence:   confidenceBucket(c.Score),
			VariantIndex: sel.VariantIndex,
			IsMainText:   sel.IsMainText,
		})
	}

	// Best-effort learning signal: shown suggestions count as matches.
	for _, c := range selected {
		if err := e.tracker.RecordMatch(ctx, c.Template.Category, c.Breakdown.Matched); err != nil {
			e.log.Warn("record match failed", "template", c.Template.ID, "error", err)
		}
	}

	return suggestions, nil
}

// scoreCatalog scores every template, containing per-template faults: a
// malformed entry is skipped, never aborting the whole catalog.
func (e *Engine) scoreCatalog(templates []catalog.Template, post match.Post, effectiveness map[string]map[string]float64) []match.Candidate {
	var candidates []match.Candidate
	for i := range templates {
		t := templates[i]
		if err := t.Validate(); err != nil {
			e.log.Warn("skipping malformed template", "template", t.ID, "error", err)
			continue
		}

		var eff match.EffectivenessFunc
		if byKeyword, ok := effectiveness[t.Category]; ok {
			eff = func(kw string) (float64, bool) {
				score, ok := byKeyword[kw]
				return score, ok
			}
		}

		breakdown := e.scorer.ScoreWithBreakdown(t, post, eff)
		if breakdown.Rejected {
			continue
		}
		if breakdown.Total < e.cfg.MinScore {
			continue
		}
		candidates = append(candidates, match.Candidate{
			Template:  t,
			Score:     breakdown.Total,
			Breakdown: breakdown,
		})
	}
	return candidates
}

// OnSuggestionSelected records that the user accepted a suggestion: the
// usage record starts the template's cooldown for the group, the advisory
// usage counter is bumped, the learning store counts a selection, and any
// pending ignore watch for the group is cancelled so the acceptance is
// never double-counted as an ignore.
func (e *Engine) OnSuggestionSelected(ctx context.Context, templateID string, variantIndex int, groupID string) error {
	if strings.TrimSpace(groupID) == "" || strings.TrimSpace(templateID) == "" {
		return fmt.Errorf("on selected: %w: templateID and groupID are required", internalerr.ErrInvalidInput)
	}

	e.cancelWatch(groupID)

	if _, err := e.store.RecordUsage(ctx, groupID, templateID, variantIndex); err != nil {
		return fmt.Errorf("on selected: record usage: %w", err)
	}

	t, found, err := e.store.GetTemplate(ctx, templateID)
	if err != nil || !found {
		e.log.Warn("selected template not found, skipping feedback", "template", templateID, "error", err)
		return nil
	}

	if err := e.store.IncrementUsageCount(ctx, templateID); err != nil && !errors.Is(err, internalerr.ErrNotFound) {
		e.log.Warn("increment usage count failed", "template", templateID, "error", err)
	}
	e.cache.Invalidate(t.Category)

	if err := e.tracker.RecordSelection(ctx, t.Category, t.PositiveKeywords()); err != nil {
		e.log.Warn("record selection failed", "template", templateID, "error", err)
	}

	return nil
}

// OnSuggestionsIgnored records that a shown suggestion set timed out with
// no selection. Invoked by the boundary's timeout logic (or the engine's
// own ignore watch); the engine never runs the timer inline. When
// categoryID is empty, each template's own category is used.
func (e *Engine) OnSuggestionsIgnored(ctx context.Context, templateIDs []string, categoryID string) error {
	for _, id := range templateIDs {
		t, found, err := e.store.GetTemplate(ctx, id)
		if err != nil || !found {
			e.log.Warn("ignored template not found, skipping", "template", id, "error", err)
			continue
		}
		category := categoryID
		if category == "" {
			category = t.Category
		}
		if err := e.tracker.RecordIgnore(ctx, category, t.PositiveKeywords()); err != nil {
			e.log.Warn("record ignore failed", "template", id, "error", err)
		}
	}
	return nil
}

// WatchIgnores starts the cancellable ignore timer for a suggestion set.
// If the user selects a suggestion for the group before the timeout,
// OnSuggestionSelected cancels the watch and no ignore is recorded.
// Starting a new watch for a group supersedes any previous one.
func (e *Engine) WatchIgnores(groupID string, suggestions []Suggestion, categoryID string) *learning.Watch {
	templateIDs := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		templateIDs = append(templateIDs, s.TemplateID)
	}

	watch := learning.NewWatch(e.cfg.IgnoreTimeout, func() {
		e.forgetWatch(groupID)
		if err := e.OnSuggestionsIgnored(context.Background(), templateIDs, categoryID); err != nil {
			e.log.Warn("ignore watch callback failed", "group", groupID, "error", err)
		}
	})

	e.mu.Lock()
	if prev, ok := e.watches[groupID]; ok {
		prev.Cancel()
	}
	e.watches[groupID] = watch
	e.mu.Unlock()

	return watch
}

func (e *Engine) cancelWatch(groupID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w, ok := e.watches[groupID]; ok {
		w.Cancel()
		delete(e.watches, groupID)
	}
}

func (e *Engine) forgetWatch(groupID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.watches, groupID)
}

// confidenceBucket maps a numeric score to its UI bucket. Thresholds are
// tuned against the normalized score range and must stay monotonic.
func confidenceBucket(score float64) Confidence {
	switch {
	case score >= 0.7:
		return ConfidenceHigh
	case score >= 0.4:
		return ConfidenceMedium
	case score >= 0.2:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// catalogSource adapts store.Store to the catalog cache.
type catalogSource struct {
	store store.Store
}

func (s catalogSource) TemplatesByCategory(ctx context.Context, category string) ([]catalog.Template, error) {
	return s.store.GetTemplates(ctx, store.TemplateFilter{Category: category})
}
