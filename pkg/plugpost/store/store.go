// Package store defines the persistence interface for templates, usage
// history and keyword statistics.
package store

import (
	"context"
	"time"

	"github.com/plugpost/plugpost/pkg/plugpost/catalog"
)

// MainVariant is the variant index recorded when the main template body was
// used rather than one of its variants.
const MainVariant = -1

// Store is the main interface for persisting and querying engine data.
type Store interface {
	Close() error

	// Templates
	UpsertTemplate(ctx context.Context, t catalog.Template) error
	GetTemplate(ctx context.Context, id string) (catalog.Template, bool, error)
	GetTemplates(ctx context.Context, f TemplateFilter) ([]catalog.Template, error)
	DeleteTemplate(ctx context.Context, id string) error
	IncrementUsageCount(ctx context.Context, id string) error

	// Usage history
	RecordUsage(ctx context.Context, groupID, templateID string, variantIndex int) (UsageRecord, error)
	LastUsage(ctx context.Context, templateID, groupID string) (UsageRecord, bool, error)
	GroupHistory(ctx context.Context, groupID string, limit int) ([]UsageRecord, error)
	PruneUsageBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Keyword stats
	GetKeywordStat(ctx context.Context, categoryID, keyword string) (KeywordStat, bool, error)
	SaveKeywordStat(ctx context.Context, s KeywordStat) error
	AllKeywordStats(ctx context.Context) ([]KeywordStat, error)
	DeleteKeywordStatsByCategory(ctx context.Context, categoryID string) (int, error)
}

// TemplateFilter narrows a catalog read. Zero value means the full catalog.
type TemplateFilter struct {
	Category string // match template category exactly
	Keyword  string // match any template keyword exactly (negation prefix ignored)
}

// UsageRecord is one instance of a template having been used in a group.
// Records are append-only; retention pruning is the only removal path.
type UsageRecord struct {
	ID           string
	GroupID      string
	TemplateID   string
	VariantIndex int // MainVariant when the main body was used
	CreatedAt    time.Time
}

// KeywordStat is the behavioral counter for one (category, keyword) pair.
type KeywordStat struct {
	CategoryID  string
	Keyword     string
	Matches     int64
	Chosen      int64
	Ignored     int64
	Score       float64 // chosen/matches, zero while matches == 0
	LastUpdated time.Time
}

// Recalculate derives the effectiveness score from the counters.
func (s *KeywordStat) Recalculate() {
	if s.Matches > 0 {
		s.Score = float64(s.Chosen) / float64(s.Matches)
	} else {
		s.Score = 0
	}
}
