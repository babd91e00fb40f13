// Package sqlite implements store.Store on SQLite via modernc.org/sqlite.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/plugpost/plugpost/pkg/plugpost/catalog"
	"github.com/plugpost/plugpost/pkg/plugpost/internalerr"
	"github.com/plugpost/plugpost/pkg/plugpost/store"
)

// DefaultRetention is how long usage records are kept before pruning.
const DefaultRetention = 30 * 24 * time.Hour

type sqliteStore struct {
	db        *sql.DB
	entropy   *ulid.MonotonicEntropy
	retention time.Duration
}

// Open opens a SQLite database with WAL mode enabled and initializes the
// schema. An optional retention window controls usage-record pruning;
// if omitted, DefaultRetention is used.
func Open(ctx context.Context, path string, retention ...time.Duration) (store.Store, error) {
	r := DefaultRetention
	if len(retention) > 0 && retention[0] > 0 {
		r = retention[0]
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{
		db:        db,
		entropy:   ulid.Monotonic(rand.Reader, 0),
		retention: r,
	}, nil
}

// Close closes the database connection.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist.
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS templates (
	id TEXT PRIMARY KEY,
	label TEXT,
	category TEXT,
	body TEXT NOT NULL,
	prebuilt INTEGER DEFAULT 0,
	usage_count INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS template_verticals (
	template_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	vertical TEXT NOT NULL,
	UNIQUE(template_id, vertical),
	FOREIGN KEY(template_id) REFERENCES templates(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS template_keywords (
	template_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	keyword TEXT NOT NULL,
	UNIQUE(template_id, position),
	FOREIGN KEY(template_id) REFERENCES templates(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS template_variants (
	template_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	text TEXT NOT NULL,
	UNIQUE(template_id, position),
	FOREIGN KEY(template_id) REFERENCES templates(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS usage_records (
	id TEXT PRIMARY KEY,
	group_id TEXT NOT NULL,
	template_id TEXT NOT NULL,
	variant_index INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_lookup
	ON usage_records(template_id, group_id, created_at);

CREATE INDEX IF NOT EXISTS idx_usage_group
	ON usage_records(group_id, created_at);

CREATE TABLE IF NOT EXISTS keyword_stats (
	category_id TEXT NOT NULL,
	keyword TEXT NOT NULL,
	matches INTEGER NOT NULL DEFAULT 0,
	chosen INTEGER NOT NULL DEFAULT 0,
	ignored INTEGER NOT NULL DEFAULT 0,
	score REAL NOT NULL DEFAULT 0,
	last_updated TEXT,
	PRIMARY KEY(category_id, keyword)
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertTemplate inserts or updates a template and its keyword/vertical/
// variant rows.
func (s *sqliteStore) UpsertTemplate(ctx context.Context, t catalog.Template) error {
	if t.ID == "" {
		return internalerr.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const stmt = `
INSERT INTO templates (id, label, category, body, prebuilt, usage_count)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	label=excluded.label,
	category=excluded.category,
	body=excluded.body,
	prebuilt=excluded.prebuilt;
`
	if _, err := tx.ExecContext(ctx, stmt, t.ID, t.Label, t.Category, t.Body, boolToInt(t.IsPrebuilt), t.UsageCount); err != nil {
		return err
	}

	if err := replaceOrdered(ctx, tx, "template_verticals", "vertical", t.ID, t.Verticals); err != nil {
		return err
	}
	if err := replaceOrdered(ctx, tx, "template_keywords", "keyword", t.ID, t.Keywords); err != nil {
		return err
	}
	if err := replaceOrdered(ctx, tx, "template_variants", "text", t.ID, t.Variants); err != nil {
		return err
	}

	return tx.Commit()
}

func replaceOrdered(ctx context.Context, tx *sql.Tx, table, column, templateID string, values []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE template_id=?`, templateID); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (template_id, position, `+column+`) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, v := range values {
		if v == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, templateID, i, v); err != nil {
			return err
		}
	}
	return nil
}

// GetTemplate returns a template by ID.
func (s *sqliteStore) GetTemplate(ctx context.Context, id string) (catalog.Template, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, label, category, body, prebuilt, usage_count FROM templates WHERE id=?`, id)

	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return catalog.Template{}, false, nil
	}
	if err != nil {
		return catalog.Template{}, false, err
	}
	if err := s.loadTemplateLists(ctx, &t); err != nil {
		return catalog.Template{}, false, err
	}
	return t, true, nil
}

// GetTemplates returns the catalog in ID order, optionally filtered by
// category or keyword.
func (s *sqliteStore) GetTemplates(ctx context.Context, f store.TemplateFilter) ([]catalog.Template, error) {
	query := `SELECT id, label, category, body, prebuilt, usage_count FROM templates`
	var args []any
	switch {
	case f.Category != "":
		query += ` WHERE category=?`
		args = append(args, f.Category)
	case f.Keyword != "":
		query += ` WHERE id IN (SELECT template_id FROM template_keywords WHERE keyword=? OR keyword=?)`
		args = append(args, f.Keyword, catalog.NegationPrefix+f.Keyword)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []catalog.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range templates {
		if err := s.loadTemplateLists(ctx, &templates[i]); err != nil {
			return nil, err
		}
	}
	return templates, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (catalog.Template, error) {
	var t catalog.Template
	var prebuilt int
	err := row.Scan(&t.ID, &t.Label, &t.Category, &t.Body, &prebuilt, &t.UsageCount)
	if err != nil {
		return catalog.Template{}, err
	}
	t.IsPrebuilt = prebuilt != 0
	return t, nil
}

func (s *sqliteStore) loadTemplateLists(ctx context.Context, t *catalog.Template) error {
	var err error
	if t.Verticals, err = s.readOrdered(ctx, "template_verticals", "vertical", t.ID); err != nil {
		return err
	}
	if t.Keywords, err = s.readOrdered(ctx, "template_keywords", "keyword", t.ID); err != nil {
		return err
	}
	if t.Variants, err = s.readOrdered(ctx, "template_variants", "text", t.ID); err != nil {
		return err
	}
	return nil
}

func (s *sqliteStore) readOrdered(ctx context.Context, table, column, templateID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+column+` FROM `+table+` WHERE template_id=? ORDER BY position`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// DeleteTemplate removes a template; keyword/vertical/variant rows cascade.
func (s *sqliteStore) DeleteTemplate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return internalerr.ErrNotFound
	}
	return nil
}

// IncrementUsageCount bumps a template's advisory usage counter.
func (s *sqliteStore) IncrementUsageCount(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE templates SET usage_count = usage_count + 1 WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return internalerr.ErrNotFound
	}
	return nil
}

// RecordUsage appends a usage record and opportunistically prunes records
// past the retention window.
func (s *sqliteStore) RecordUsage(ctx context.Context, groupID, templateID string, variantIndex int) (store.UsageRecord, error) {
	if groupID == "" || templateID == "" {
		return store.UsageRecord{}, internalerr.ErrInvalidInput
	}

	now := time.Now()
	rec := store.UsageRecord{
		ID:           ulid.MustNew(ulid.Timestamp(now), s.entropy).String(),
		GroupID:      groupID,
		TemplateID:   templateID,
		VariantIndex: variantIndex,
		CreatedAt:    now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_records (id, group_id, template_id, variant_index, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.GroupID, rec.TemplateID, rec.VariantIndex, rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return store.UsageRecord{}, err
	}

	// Retention is best-effort; a failed prune never fails the write.
	_, _ = s.PruneUsageBefore(ctx, now.Add(-s.retention))

	return rec, nil
}

// LastUsage returns the most recent record for (template, group).
func (s *sqliteStore) LastUsage(ctx context.Context, templateID, groupID string) (store.UsageRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, group_id, template_id, variant_index, created_at
FROM usage_records
WHERE template_id=? AND group_id=?
ORDER BY created_at DESC
LIMIT 1`, templateID, groupID)

	rec, err := scanUsage(row)
	if err == sql.ErrNoRows {
		return store.UsageRecord{}, false, nil
	}
	if err != nil {
		return store.UsageRecord{}, false, err
	}
	return rec, true, nil
}

// GroupHistory returns up to limit records for a group, newest first.
func (s *sqliteStore) GroupHistory(ctx context.Context, groupID string, limit int) ([]store.UsageRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, group_id, template_id, variant_index, created_at
FROM usage_records
WHERE group_id=?
ORDER BY created_at DESC
LIMIT ?`, groupID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []store.UsageRecord
	for rows.Next() {
		rec, err := scanUsage(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PruneUsageBefore drops records older than the cutoff.
func (s *sqliteStore) PruneUsageBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM usage_records WHERE created_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanUsage(row rowScanner) (store.UsageRecord, error) {
	var rec store.UsageRecord
	var created string
	if err := row.Scan(&rec.ID, &rec.GroupID, &rec.TemplateID, &rec.VariantIndex, &created); err != nil {
		return store.UsageRecord{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return store.UsageRecord{}, fmt.Errorf("parse usage timestamp: %w", err)
	}
	rec.CreatedAt = ts
	return rec, nil
}

// GetKeywordStat returns the stat for a (category, keyword) pair.
func (s *sqliteStore) GetKeywordStat(ctx context.Context, categoryID, keyword string) (store.KeywordStat, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT category_id, keyword, matches, chosen, ignored, score, last_updated
FROM keyword_stats
WHERE category_id=? AND keyword=?`, categoryID, keyword)

	stat, err := scanStat(row)
	if err == sql.ErrNoRows {
		return store.KeywordStat{}, false, nil
	}
	if err != nil {
		return store.KeywordStat{}, false, err
	}
	return stat, true, nil
}

// SaveKeywordStat inserts or replaces a stat.
func (s *sqliteStore) SaveKeywordStat(ctx context.Context, stat store.KeywordStat) error {
	if stat.CategoryID == "" || stat.Keyword == "" {
		return internalerr.ErrInvalidInput
	}
	var updated string
	if !stat.LastUpdated.IsZero() {
		updated = stat.LastUpdated.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO keyword_stats (category_id, keyword, matches, chosen, ignored, score, last_updated)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(category_id, keyword) DO UPDATE SET
	matches=excluded.matches,
	chosen=excluded.chosen,
	ignored=excluded.ignored,
	score=excluded.score,
	last_updated=excluded.last_updated`,
		stat.CategoryID, stat.Keyword, stat.Matches, stat.Chosen, stat.Ignored, stat.Score, updated)
	return err
}

// AllKeywordStats returns every stat in key order.
func (s *sqliteStore) AllKeywordStats(ctx context.Context) ([]store.KeywordStat, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT category_id, keyword, matches, chosen, ignored, score, last_updated
FROM keyword_stats
ORDER BY category_id, keyword`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []store.KeywordStat
	for rows.Next() {
		stat, err := scanStat(rows)
		if err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// DeleteKeywordStatsByCategory removes all stats for a category.
func (s *sqliteStore) DeleteKeywordStatsByCategory(ctx context.Context, categoryID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM keyword_stats WHERE category_id=?`, categoryID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanStat(row rowScanner) (store.KeywordStat, error) {
	var stat store.KeywordStat
	var updated sql.NullString
	if err := row.Scan(&stat.CategoryID, &stat.Keyword, &stat.Matches, &stat.Chosen, &stat.Ignored, &stat.Score, &updated); err != nil {
		return store.KeywordStat{}, err
	}
	if updated.Valid && updated.String != "" {
		ts, err := time.Parse(time.RFC3339Nano, updated.String)
		if err != nil {
			return store.KeywordStat{}, fmt.Errorf("parse stat timestamp: %w", err)
		}
		stat.LastUpdated = ts
	}
	return stat, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
