// Package rotation enforces the per-group template cooldown and rotates
// template variants so a group never sees back-to-back repeats.
package rotation

import (
	"context"
	"sort"
	"time"

	"github.com/plugpost/plugpost/pkg/plugpost/match"
	"github.com/plugpost/plugpost/pkg/plugpost/store"
)

// DefaultCooldown is the minimum elapsed time before a used template
// becomes eligible again for the same group.
const DefaultCooldown = 24 * time.Hour

// History provides usage-history lookups. store.Store satisfies it.
type History interface {
	LastUsage(ctx context.Context, templateID, groupID string) (store.UsageRecord, bool, error)
}

// Result is the outcome of a cooldown filter pass.
type Result struct {
	Kept []match.Candidate
	// Relaxed is set when every candidate was cooling down and the filter
	// fell back to the full list ordered oldest-use-first. Callers should
	// log this degraded path.
	Relaxed bool
	// LookupErrors counts history lookups that failed. Failed lookups are
	// fail-open (candidate treated as never used) so a flaky store degrades
	// spam protection, not availability.
	LookupErrors int
}

// Filter drops candidates whose template was used for the group within the
// cooldown window, preserving the input order of survivors. Eligibility is
// recomputed from stored timestamps on every call; absence of a record
// means never used, eligible.
//
// If filtering would remove every candidate, the original list is returned
// ordered by oldest use first so the caller always has something to offer.
//
// A zero now means time.Now().
func Filter(ctx context.Context, candidates []match.Candidate, groupID string, cooldown time.Duration, now time.Time, history History) Result {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if now.IsZero() {
		now = time.Now()
	}

	var res Result

	type cooled struct {
		candidate match.Candidate
		lastUsed  time.Time
	}
	var coolingDown []cooled

	for _, c := range candidates {
		rec, found, err := history.LastUsage(ctx, c.Template.ID, groupID)
		if err != nil {
			res.LookupErrors++
			res.Kept = append(res.Kept, c)
			continue
		}
		if found && now.Sub(rec.CreatedAt) < cooldown {
			coolingDown = append(coolingDown, cooled{candidate: c, lastUsed: rec.CreatedAt})
			continue
		}
		res.Kept = append(res.Kept, c)
	}

	if len(res.Kept) == 0 && len(coolingDown) > 0 {
		sort.SliceStable(coolingDown, func(i, j int) bool {
			return coolingDown[i].lastUsed.Before(coolingDown[j].lastUsed)
		})
		res.Kept = make([]match.Candidate, len(coolingDown))
		for i, c := range coolingDown {
			res.Kept[i] = c.candidate
		}
		res.Relaxed = true
	}

	return res
}
