package rotation

import (
	"context"

	"github.com/plugpost/plugpost/pkg/plugpost/catalog"
	"github.com/plugpost/plugpost/pkg/plugpost/store"
)

// Selection is the resolved text for a chosen template.
type Selection struct {
	Text         string
	VariantIndex int // store.MainVariant when the main body is used
	IsMainText   bool
}

// SelectVariant picks the phrasing for a template within a group. Templates
// without variants always resolve to the main body. With variants present,
// the pick round-robins from the last recorded variant index for the group,
// so the same phrasing is never returned twice in a row when more than one
// variant exists. First use in a group starts at variant 0.
//
// History lookup failure is fail-open: variant 0 is returned along with the
// error so the caller can log it without losing the suggestion.
func SelectVariant(ctx context.Context, t catalog.Template, groupID string, history History) (Selection, error) {
	if !t.HasVariants() {
		return Selection{Text: t.Body, VariantIndex: store.MainVariant, IsMainText: true}, nil
	}

	rec, found, err := history.LastUsage(ctx, t.ID, groupID)
	if err != nil {
		return Selection{Text: t.Variants[0], VariantIndex: 0}, err
	}

	next := 0
	if found && rec.VariantIndex >= 0 {
		next = (rec.VariantIndex + 1) % len(t.Variants)
	} else if found && rec.VariantIndex == store.MainVariant && len(t.Variants) > 0 {
		// Last use was the main body (variants added since); start rotation.
		next = 0
	}

	return Selection{Text: t.Variants[next], VariantIndex: next}, nil
}
