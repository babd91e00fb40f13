// Package memstore is an in-memory implementation of store.Store for tests
// and single-session embedding.
package memstore

import (
	"context"
	"crypto/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/plugpost/plugpost/pkg/plugpost/catalog"
	"github.com/plugpost/plugpost/pkg/plugpost/internalerr"
	"github.com/plugpost/plugpost/pkg/plugpost/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu        sync.RWMutex
	templates map[string]catalog.Template
	usage     []store.UsageRecord
	stats     map[string]store.KeywordStat
	entropy   *ulid.MonotonicEntropy
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		templates: make(map[string]catalog.Template),
		stats:     make(map[string]store.KeywordStat),
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertTemplate inserts or replaces a template, keyed by ID.
func (s *Store) UpsertTemplate(ctx context.Context, t catalog.Template) error {
	if strings.TrimSpace(t.ID) == "" {
		return internalerr.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = copyTemplate(t)
	return nil
}

// GetTemplate returns a template by ID.
func (s *Store) GetTemplate(ctx context.Context, id string) (catalog.Template, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.templates[id]; ok {
		return copyTemplate(t), true, nil
	}
	return catalog.Template{}, false, nil
}

// GetTemplates returns the catalog, optionally filtered, in stable ID order.
func (s *Store) GetTemplates(ctx context.Context, f store.TemplateFilter) ([]catalog.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []catalog.Template
	for _, t := range s.templates {
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.Keyword != "" && !hasKeyword(t, f.Keyword) {
			continue
		}
		out = append(out, copyTemplate(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteTemplate removes a template by ID.
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[id]; !ok {
		return internalerr.ErrNotFound
	}
	delete(s.templates, id)
	return nil
}

// IncrementUsageCount bumps a template's advisory usage counter.
func (s *Store) IncrementUsageCount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return internalerr.ErrNotFound
	}
	t.UsageCount++
	s.templates[id] = t
	return nil
}

// RecordUsage appends a usage record for (group, template, variant).
func (s *Store) RecordUsage(ctx context.Context, groupID, templateID string, variantIndex int) (store.UsageRecord, error) {
	if groupID == "" || templateID == "" {
		return store.UsageRecord{}, internalerr.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := store.UsageRecord{
		ID:           ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String(),
		GroupID:      groupID,
		TemplateID:   templateID,
		VariantIndex: variantIndex,
		CreatedAt:    time.Now(),
	}
	s.usage = append(s.usage, rec)
	return rec, nil
}

// LastUsage returns the most recent record for (template, group).
func (s *Store) LastUsage(ctx context.Context, templateID, groupID string) (store.UsageRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.usage) - 1; i >= 0; i-- {
		rec := s.usage[i]
		if rec.TemplateID == templateID && rec.GroupID == groupID {
			return rec, true, nil
		}
	}
	return store.UsageRecord{}, false, nil
}

// GroupHistory returns up to limit records for a group, newest first.
func (s *Store) GroupHistory(ctx context.Context, groupID string, limit int) ([]store.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}

	var out []store.UsageRecord
	for i := len(s.usage) - 1; i >= 0 && len(out) < limit; i-- {
		if s.usage[i].GroupID == groupID {
			out = append(out, s.usage[i])
		}
	}
	return out, nil
}

// PruneUsageBefore drops records older than the cutoff.
func (s *Store) PruneUsageBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.usage[:0]
	removed := 0
	for _, rec := range s.usage {
		if rec.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	s.usage = kept
	return removed, nil
}

// GetKeywordStat returns the stat for a (category, keyword) pair.
func (s *Store) GetKeywordStat(ctx context.Context, categoryID, keyword string) (store.KeywordStat, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if stat, ok := s.stats[statKey(categoryID, keyword)]; ok {
		return stat, true, nil
	}
	return store.KeywordStat{}, false, nil
}

// SaveKeywordStat inserts or replaces a stat.
func (s *Store) SaveKeywordStat(ctx context.Context, stat store.KeywordStat) error {
	if stat.CategoryID == "" || stat.Keyword == "" {
		return internalerr.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[statKey(stat.CategoryID, stat.Keyword)] = stat
	return nil
}

// AllKeywordStats returns every stat in stable key order.
func (s *Store) AllKeywordStats(ctx context.Context) ([]store.KeywordStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.stats))
	for k := range s.stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]store.KeywordStat, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.stats[k])
	}
	return out, nil
}

// DeleteKeywordStatsByCategory removes all stats for a category.
func (s *Store) DeleteKeywordStatsByCategory(ctx context.Context, categoryID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	prefix := categoryID + "\x00"
	for k := range s.stats {
		if strings.HasPrefix(k, prefix) {
			delete(s.stats, k)
			removed++
		}
	}
	return removed, nil
}

func statKey(categoryID, keyword string) string {
	return categoryID + "\x00" + keyword
}

func hasKeyword(t catalog.Template, keyword string) bool {
	for _, k := range t.Keywords {
		if strings.TrimPrefix(k, catalog.NegationPrefix) == keyword {
			return true
		}
	}
	return false
}

func copyTemplate(t catalog.Template) catalog.Template {
	out := t
	out.Verticals = append([]string(nil), t.Verticals...)
	out.Keywords = append([]string(nil), t.Keywords...)
	out.Variants = append([]string(nil), t.Variants...)
	return out
}
