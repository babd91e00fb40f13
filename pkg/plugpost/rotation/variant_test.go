package rotation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plugpost/plugpost/pkg/plugpost/catalog"
	"github.com/plugpost/plugpost/pkg/plugpost/store"
)

func variantTemplate(variants ...string) catalog.Template {
	return catalog.Template{
		ID:       "t1",
		Body:     "main {url}",
		Keywords: []string{"car"},
		Variants: variants,
	}
}

func TestSelectVariantNoVariants(t *testing.T) {
	history := &fakeHistory{records: map[string]store.UsageRecord{}}

	sel, err := SelectVariant(context.Background(), variantTemplate(), "g1", history)
	if err != nil {
		t.Fatalf("SelectVariant failed: %v", err)
	}
	if !sel.IsMainText || sel.VariantIndex != store.MainVariant {
		t.Errorf("Expected main text selection, got %+v", sel)
	}
	if sel.Text != "main {url}" {
		t.Errorf("Expected main body, got %q", sel.Text)
	}
}

func TestSelectVariantFirstUse(t *testing.T) {
	history := &fakeHistory{records: map[string]store.UsageRecord{}}

	sel, err := SelectVariant(context.Background(), variantTemplate("A", "B", "C"), "g1", history)
	if err != nil {
		t.Fatalf("SelectVariant failed: %v", err)
	}
	if sel.VariantIndex != 0 || sel.Text != "A" {
		t.Errorf("Fresh group should start at variant 0, got %+v", sel)
	}
	if sel.IsMainText {
		t.Error("Variant selection should not be flagged as main text")
	}
}

func TestSelectVariantNeverRepeatsLast(t *testing.T) {
	tmpl := variantTemplate("A", "B", "C")

	for last := 0; last < 3; last++ {
		history := &fakeHistory{records: map[string]store.UsageRecord{
			"t1|g1": {TemplateID: "t1", GroupID: "g1", VariantIndex: last, CreatedAt: time.Now()},
		}}

		sel, err := SelectVariant(context.Background(), tmpl, "g1", history)
		if err != nil {
			t.Fatalf("SelectVariant failed: %v", err)
		}
		if sel.VariantIndex == last {
			t.Errorf("Variant %d repeated immediately", last)
		}
		if want := (last + 1) % 3; sel.VariantIndex != want {
			t.Errorf("Round-robin after %d should pick %d, got %d", last, want, sel.VariantIndex)
		}
	}
}

func TestSelectVariantTwoVariantsAlternate(t *testing.T) {
	tmpl := variantTemplate("A", "B")
	history := &fakeHistory{records: map[string]store.UsageRecord{
		"t1|g1": {TemplateID: "t1", GroupID: "g1", VariantIndex: 1},
	}}

	sel, _ := SelectVariant(context.Background(), tmpl, "g1", history)
	if sel.VariantIndex != 0 {
		t.Errorf("Two variants must alternate, got %d after 1", sel.VariantIndex)
	}
}

func TestSelectVariantAfterMainBodyUse(t *testing.T) {
	tmpl := variantTemplate("A", "B")
	history := &fakeHistory{records: map[string]store.UsageRecord{
		"t1|g1": {TemplateID: "t1", GroupID: "g1", VariantIndex: store.MainVariant},
	}}

	sel, err := SelectVariant(context.Background(), tmpl, "g1", history)
	if err != nil {
		t.Fatalf("SelectVariant failed: %v", err)
	}
	if sel.VariantIndex != 0 {
		t.Errorf("After a main-body use, rotation starts at 0, got %d", sel.VariantIndex)
	}
}

func TestSelectVariantGroupScoped(t *testing.T) {
	tmpl := variantTemplate("A", "B")
	history := &fakeHistory{records: map[string]store.UsageRecord{
		"t1|g1": {TemplateID: "t1", GroupID: "g1", VariantIndex: 0},
	}}

	sel, _ := SelectVariant(context.Background(), tmpl, "g2", history)
	if sel.VariantIndex != 0 {
		t.Errorf("History from another group must not rotate, got %d", sel.VariantIndex)
	}
}

func TestSelectVariantLookupFailure(t *testing.T) {
	history := &fakeHistory{err: errors.New("store down")}

	sel, err := SelectVariant(context.Background(), variantTemplate("A", "B"), "g1", history)
	if err == nil {
		t.Error("Lookup failure should be surfaced")
	}
	if sel.Text != "A" || sel.VariantIndex != 0 {
		t.Errorf("Fail-open selection should return variant 0, got %+v", sel)
	}
}
