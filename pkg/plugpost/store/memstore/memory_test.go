package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plugpost/plugpost/pkg/plugpost/catalog"
	"github.com/plugpost/plugpost/pkg/plugpost/internalerr"
	"github.com/plugpost/plugpost/pkg/plugpost/store"
)

func sampleTemplate(id, category string, keywords ...string) catalog.Template {
	return catalog.Template{
		ID:       id,
		Category: category,
		Keywords: keywords,
		Body:     "body {url}",
	}
}

func TestTemplateCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	tmpl := sampleTemplate("t1", "automotive", "car", "repair")
	if err := s.UpsertTemplate(ctx, tmpl); err != nil {
		t.Fatalf("UpsertTemplate failed: %v", err)
	}

	got, found, err := s.GetTemplate(ctx, "t1")
	if err != nil || !found {
		t.Fatalf("GetTemplate failed: %v found=%v", err, found)
	}
	if got.Category != "automotive" || len(got.Keywords) != 2 {
		t.Errorf("Unexpected template: %+v", got)
	}

	// Stored copy must be isolated from caller mutation.
	tmpl.Keywords[0] = "mutated"
	got, _, _ = s.GetTemplate(ctx, "t1")
	if got.Keywords[0] != "car" {
		t.Error("Store must copy slices on write")
	}

	if err := s.DeleteTemplate(ctx, "t1"); err != nil {
		t.Fatalf("DeleteTemplate failed: %v", err)
	}
	if _, found, _ := s.GetTemplate(ctx, "t1"); found {
		t.Error("Template should be gone after delete")
	}
	if err := s.DeleteTemplate(ctx, "t1"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestGetTemplatesFilter(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.UpsertTemplate(ctx, sampleTemplate("t1", "automotive", "car", "-diy"))
	s.UpsertTemplate(ctx, sampleTemplate("t2", "retail", "sale"))
	s.UpsertTemplate(ctx, sampleTemplate("t3", "automotive", "engine"))

	all, err := s.GetTemplates(ctx, store.TemplateFilter{})
	if err != nil {
		t.Fatalf("GetTemplates failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 templates, got %d", len(all))
	}
	if all[0].ID != "t1" || all[1].ID != "t2" || all[2].ID != "t3" {
		t.Errorf("Templates should come back in ID order: %v", []string{all[0].ID, all[1].ID, all[2].ID})
	}

	auto, _ := s.GetTemplates(ctx, store.TemplateFilter{Category: "automotive"})
	if len(auto) != 2 {
		t.Errorf("Expected 2 automotive templates, got %d", len(auto))
	}

	byKeyword, _ := s.GetTemplates(ctx, store.TemplateFilter{Keyword: "diy"})
	if len(byKeyword) != 1 || byKeyword[0].ID != "t1" {
		t.Errorf("Keyword filter should match negated keywords too, got %d", len(byKeyword))
	}
}

func TestIncrementUsageCount(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.UpsertTemplate(ctx, sampleTemplate("t1", "automotive", "car"))

	s.IncrementUsageCount(ctx, "t1")
	s.IncrementUsageCount(ctx, "t1")

	got, _, _ := s.GetTemplate(ctx, "t1")
	if got.UsageCount != 2 {
		t.Errorf("Expected usage count 2, got %d", got.UsageCount)
	}

	if err := s.IncrementUsageCount(ctx, "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUsageRecording(t *testing.T) {
	ctx := context.Background()
	s := New()

	rec, err := s.RecordUsage(ctx, "g1", "t1", store.MainVariant)
	if err != nil {
		t.Fatalf("RecordUsage failed: %v", err)
	}
	if rec.ID == "" {
		t.Error("Record should get an ID")
	}

	s.RecordUsage(ctx, "g1", "t1", 1)

	last, found, err := s.LastUsage(ctx, "t1", "g1")
	if err != nil || !found {
		t.Fatalf("LastUsage failed: %v found=%v", err, found)
	}
	if last.VariantIndex != 1 {
		t.Errorf("Expected the most recent record, got %+v", last)
	}

	if _, found, _ := s.LastUsage(ctx, "t1", "g2"); found {
		t.Error("Usage must be group-scoped")
	}

	if _, err := s.RecordUsage(ctx, "", "t1", 0); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestGroupHistory(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.RecordUsage(ctx, "g1", "t1", 0)
	s.RecordUsage(ctx, "g1", "t2", 0)
	s.RecordUsage(ctx, "g2", "t3", 0)

	history, err := s.GroupHistory(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("GroupHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(history))
	}
	if history[0].TemplateID != "t2" {
		t.Errorf("History should be newest first, got %s", history[0].TemplateID)
	}

	limited, _ := s.GroupHistory(ctx, "g1", 1)
	if len(limited) != 1 {
		t.Errorf("Limit should apply, got %d", len(limited))
	}
}

func TestPruneUsageBefore(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.RecordUsage(ctx, "g1", "t1", 0)
	s.RecordUsage(ctx, "g1", "t2", 0)

	removed, err := s.PruneUsageBefore(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("PruneUsageBefore failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 pruned records, got %d", removed)
	}
	if _, found, _ := s.LastUsage(ctx, "t1", "g1"); found {
		t.Error("Pruned records should be gone")
	}
}

func TestKeywordStats(t *testing.T) {
	ctx := context.Background()
	s := New()

	stat := store.KeywordStat{CategoryID: "retail", Keyword: "sale", Matches: 3, Chosen: 1}
	stat.Recalculate()
	if err := s.SaveKeywordStat(ctx, stat); err != nil {
		t.Fatalf("SaveKeywordStat failed: %v", err)
	}

	got, found, err := s.GetKeywordStat(ctx, "retail", "sale")
	if err != nil || !found {
		t.Fatalf("GetKeywordStat failed: %v found=%v", err, found)
	}
	if got.Score <= 0.33 || got.Score >= 0.34 {
		t.Errorf("Expected score ~1/3, got %f", got.Score)
	}

	s.SaveKeywordStat(ctx, store.KeywordStat{CategoryID: "automotive", Keyword: "car", Matches: 1})
	all, _ := s.AllKeywordStats(ctx)
	if len(all) != 2 {
		t.Fatalf("Expected 2 stats, got %d", len(all))
	}
	if all[0].CategoryID != "automotive" {
		t.Errorf("Stats should come back in key order, got %s first", all[0].CategoryID)
	}

	removed, _ := s.DeleteKeywordStatsByCategory(ctx, "retail")
	if removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}
	if _, found, _ := s.GetKeywordStat(ctx, "retail", "sale"); found {
		t.Error("Deleted stat should be gone")
	}
}
