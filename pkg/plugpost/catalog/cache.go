package catalog

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// allCategories is the cache key for an unfiltered catalog read.
const allCategories = "*"

// Source supplies templates for a category; the empty category means the
// whole catalog.
type Source interface {
	TemplatesByCategory(ctx context.Context, category string) ([]Template, error)
}

// Cache is an explicit, injectable read-through cache over a template
// Source, keyed by category. Storage writes must call Invalidate (or Reset)
// so stale catalog slices are never served after a template changes.
type Cache struct {
	source Source
	lru    *lru.Cache[string, []Template]
}

// NewCache creates a cache holding up to size category entries.
func NewCache(source Source, size int) (*Cache, error) {
	if size <= 0 {
		size = 32
	}
	inner, err := lru.New[string, []Template](size)
	if err != nil {
		return nil, err
	}
	return &Cache{source: source, lru: inner}, nil
}

// Get returns the templates for a category, reading through to the source
// on a miss. The returned slice is shared; callers must not mutate it.
func (c *Cache) Get(ctx context.Context, category string) ([]Template, error) {
	key := category
	if key == "" {
		key = allCategories
	}
	if templates, ok := c.lru.Get(key); ok {
		return templates, nil
	}

	templates, err := c.source.TemplatesByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, templates)
	return templates, nil
}

// Invalidate drops the cached entry for a category and the unfiltered
// entry, which always contains that category's templates too.
func (c *Cache) Invalidate(category string) {
	if category != "" {
		c.lru.Remove(category)
	}
	c.lru.Remove(allCategories)
}

// Reset drops every cached entry. Used after bulk catalog writes.
func (c *Cache) Reset() {
	c.lru.Purge()
}
