package match

import (
	"testing"

	"github.com/plugpost/plugpost/pkg/plugpost/catalog"
)

func autoTemplate(keywords ...string) catalog.Template {
	if len(keywords) == 0 {
		keywords = []string{"car", "repair"}
	}
	return catalog.Template{
		ID:       "auto-repair",
		Category: "automotive",
		Keywords: keywords,
		Body:     "Certified mechanics: {url}",
	}
}

func TestScoreBasicMatch(t *testing.T) {
	scorer := NewScorer(DefaultWeights())
	post := Post{
		RawText:  "My car needs repair",
		Keywords: []string{"car", "needs", "repair"},
	}

	score := scorer.Score(autoTemplate(), post, nil)
	if score <= 0 {
		t.Errorf("Score should be positive, got %f", score)
	}
	if score > 1+DefaultWeights().VerticalBonus {
		t.Errorf("Score should stay bounded, got %f", score)
	}
}

func TestScoreFullOverlapIsOne(t *testing.T) {
	scorer := NewScorer(DefaultWeights())
	post := Post{RawText: "car repair", Keywords: []string{"car", "repair"}}

	score := scorer.Score(autoTemplate(), post, nil)
	if score != 1.0 {
		t.Errorf("Full exact overlap without bonus should score 1.0, got %f", score)
	}
}

func TestScoreZeroWithoutOverlap(t *testing.T) {
	scorer := NewScorer(DefaultWeights())
	post := Post{RawText: "great weather today", Keywords: []string{"great", "weather", "today"}}

	if score := scorer.Score(autoTemplate(), post, nil); score != 0 {
		t.Errorf("No overlap and no bonus should score exactly 0, got %f", score)
	}
}

func TestScoreNegativeKeywordRejects(t *testing.T) {
	scorer := NewScorer(DefaultWeights())
	post := Post{
		RawText:  "DIY car repair tips",
		Keywords: []string{"diy", "car", "repair", "tips"},
	}

	clean := autoTemplate("car", "repair")
	conflicted := autoTemplate("car", "repair", "-diy")

	cleanScore := scorer.Score(clean, post, nil)
	b := scorer.ScoreWithBreakdown(conflicted, post, nil)

	if !b.Rejected || b.Total != 0 {
		t.Errorf("Negative keyword must hard-reject: %+v", b)
	}
	if b.RejectedBy != "diy" {
		t.Errorf("Expected rejection by 'diy', got %q", b.RejectedBy)
	}
	if b.Total >= cleanScore {
		t.Error("Conflicted template must never rank at or above the clean one")
	}
}

func TestScoreNegativeKeywordSubstringOfRawText(t *testing.T) {
	scorer := NewScorer(DefaultWeights())
	// "diy" survives only in the raw text here ("DIY-ing" tokenizes away).
	post := Post{RawText: "I'm DIY-ing this", Keywords: []string{"this"}}

	b := scorer.ScoreWithBreakdown(autoTemplate("this", "-diy"), post, nil)
	if !b.Rejected {
		t.Error("Negative keyword in raw text should reject")
	}
}

func TestScorePartialMatch(t *testing.T) {
	w := DefaultWeights()
	scorer := NewScorer(w)
	post := Post{RawText: "new brakes installed", Keywords: []string{"brakes", "installed"}}

	tmpl := autoTemplate("brake")
	b := scorer.ScoreWithBreakdown(tmpl, post, nil)

	if b.Overlap != w.PartialKeyword {
		t.Errorf("Expected partial weight %f, got %f", w.PartialKeyword, b.Overlap)
	}
	if len(b.Matched) != 1 || b.Matched[0] != "brake" {
		t.Errorf("Expected matched [brake], got %v", b.Matched)
	}
}

func TestScoreMultiWordKeyword(t *testing.T) {
	scorer := NewScorer(DefaultWeights())
	post := Post{RawText: "looking for an oil change nearby", Keywords: []string{"looking", "oil", "change", "nearby"}}

	b := scorer.ScoreWithBreakdown(autoTemplate("oil change"), post, nil)
	if b.Overlap != 1.0 {
		t.Errorf("Multi-word phrase should match the raw text at full weight, got %f", b.Overlap)
	}
}

func TestScoreVerticalBonus(t *testing.T) {
	w := DefaultWeights()
	scorer := NewScorer(w)
	post := Post{
		RawText:           "car trouble",
		Keywords:          []string{"car", "trouble"},
		PreferredCategory: "automotive",
	}

	b := scorer.ScoreWithBreakdown(autoTemplate("car"), post, nil)
	if b.Bonus != w.VerticalBonus {
		t.Errorf("Expected vertical bonus %f, got %f", w.VerticalBonus, b.Bonus)
	}

	post.PreferredCategory = "retail"
	b = scorer.ScoreWithBreakdown(autoTemplate("car"), post, nil)
	if b.Bonus != 0 {
		t.Errorf("No bonus expected for unrelated category, got %f", b.Bonus)
	}
}

func TestScoreInferredCategoryBonus(t *testing.T) {
	w := DefaultWeights()
	scorer := NewScorer(w)
	// The category tag itself appears in the post keywords.
	post := Post{RawText: "automotive question", Keywords: []string{"automotive", "question"}}

	b := scorer.ScoreWithBreakdown(autoTemplate("car"), post, nil)
	if b.Bonus != w.VerticalBonus {
		t.Errorf("Category tag in keywords should earn the bonus, got %f", b.Bonus)
	}
}

func TestScoreNormalizedByKeywordCount(t *testing.T) {
	scorer := NewScorer(DefaultWeights())
	post := Post{RawText: "car repair", Keywords: []string{"car", "repair"}}

	small := autoTemplate("car", "repair")
	padded := autoTemplate("car", "repair", "brake", "engine", "tire", "oil")

	if scorer.Score(small, post, nil) <= scorer.Score(padded, post, nil) {
		t.Error("Keyword-stuffed templates must not be favored by count alone")
	}
}

func TestScoreEffectivenessDownWeight(t *testing.T) {
	w := DefaultWeights()
	scorer := NewScorer(w)
	post := Post{RawText: "cheap car", Keywords: []string{"cheap", "car"}}
	tmpl := autoTemplate("cheap")

	plain := scorer.Score(tmpl, post, nil)
	weak := scorer.Score(tmpl, post, func(kw string) (float64, bool) {
		return 0.05, true // below MinEffectiveness
	})
	floor := scorer.Score(tmpl, post, func(kw string) (float64, bool) {
		return 0.0, true
	})

	if weak >= plain {
		t.Errorf("Low effectiveness should down-weight: plain=%f weak=%f", plain, weak)
	}
	if floor < plain*w.EffectivenessFloor {
		t.Errorf("Down-weighting must respect the floor: plain=%f floor=%f", plain, floor)
	}
	if floor == 0 {
		t.Error("Learning signal must never fully silence a keyword")
	}
}

func TestScoreEffectivenessHealthyKeywordUntouched(t *testing.T) {
	scorer := NewScorer(DefaultWeights())
	post := Post{RawText: "car", Keywords: []string{"car"}}
	tmpl := autoTemplate("car")

	plain := scorer.Score(tmpl, post, nil)
	healthy := scorer.Score(tmpl, post, func(kw string) (float64, bool) {
		return 0.8, true
	})

	if plain != healthy {
		t.Errorf("Healthy keywords should keep full weight: %f vs %f", plain, healthy)
	}
}

func TestSortCandidatesDeterministic(t *testing.T) {
	a := Candidate{Template: catalog.Template{ID: "a", UsageCount: 5}, Score: 0.9}
	b := Candidate{Template: catalog.Template{ID: "b", UsageCount: 1}, Score: 0.9}
	c := Candidate{Template: catalog.Template{ID: "c"}, Score: 1.2}

	candidates := []Candidate{a, b, c}
	SortCandidates(candidates)

	if candidates[0].Template.ID != "c" {
		t.Errorf("Highest score first, got %s", candidates[0].Template.ID)
	}
	if candidates[1].Template.ID != "b" {
		t.Errorf("Score tie should prefer less-used template, got %s", candidates[1].Template.ID)
	}

	// Full tie keeps input order.
	d := Candidate{Template: catalog.Template{ID: "d", UsageCount: 1}, Score: 0.9}
	e := Candidate{Template: catalog.Template{ID: "e", UsageCount: 1}, Score: 0.9}
	tied := []Candidate{d, e}
	SortCandidates(tied)
	if tied[0].Template.ID != "d" || tied[1].Template.ID != "e" {
		t.Errorf("Stable sort expected, got %s %s", tied[0].Template.ID, tied[1].Template.ID)
	}
}
