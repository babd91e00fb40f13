// Command suggest-cli runs the suggestion engine against a SQLite catalog
// and prints ranked suggestions for a post.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/plugpost/plugpost/pkg/plugpost"
	"github.com/plugpost/plugpost/pkg/plugpost/config"
	"github.com/plugpost/plugpost/pkg/plugpost/match"
	"github.com/plugpost/plugpost/pkg/plugpost/store/sqlite"
)

func main() {
	var (
		dbPath       = flag.String("db", "", "Database path (required)")
		text         = flag.String("text", "", "Post content (required)")
		group        = flag.String("group", "", "Group ID (required)")
		category     = flag.String("category", "", "Preferred category (optional)")
		maxResults   = flag.Int("max", 0, "Maximum suggestions (0 = engine default)")
		stoplistPath = flag.String("stoplist", "", "Extra stopword YAML file (optional)")
		settingsPath = flag.String("settings", "", "Engine settings YAML file (optional)")
		selectFirst  = flag.Bool("select", false, "Record a selection of the top suggestion")
	)
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("--db required")
	}
	if *text == "" {
		log.Fatal("--text required")
	}
	if *group == "" {
		log.Fatal("--group required")
	}

	ctx := context.Background()

	loader := config.Loader{StoplistPath: *stoplistPath, SettingsPath: *settingsPath}
	comp, err := loader.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	st, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	engine, err := plugpost.New(plugpost.Options{
		Store:     st,
		Extractor: comp.Extractor,
		Scorer:    match.NewScorer(comp.Weights),
		Config:    engineConfig(comp.Settings),
	})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	suggestions, err := engine.GetSuggestions(ctx, *text, *group, plugpost.SuggestOptions{
		MaxResults:        *maxResults,
		PreferredCategory: *category,
	})
	if err != nil {
		log.Fatalf("Suggestion run failed: %v", err)
	}

	if len(suggestions) == 0 {
		fmt.Println("No suggestions.")
		return
	}

	for _, s := range suggestions {
		fmt.Printf("%d. [%s %.3f] %s\n   %s\n", s.Rank, s.Confidence, s.Score, s.TemplateID, s.Text)
	}

	if *selectFirst {
		top := suggestions[0]
		if err := engine.OnSuggestionSelected(ctx, top.TemplateID, top.VariantIndex, *group); err != nil {
			log.Fatalf("Failed to record selection: %v", err)
		}
		log.Printf("Recorded selection of %s for group %s", top.TemplateID, *group)
	}
}

// engineConfig maps YAML settings onto the engine config, keeping defaults
// for zero values.
func engineConfig(s config.Settings) plugpost.Config {
	cfg := plugpost.DefaultConfig()
	if s.MaxResults > 0 {
		cfg.MaxResults = s.MaxResults
	}
	if s.MinScore > 0 {
		cfg.MinScore = s.MinScore
	}
	if s.CooldownHours > 0 {
		cfg.Cooldown = time.Duration(s.CooldownHours * float64(time.Hour))
	}
	if s.DiversityThreshold > 0 {
		cfg.DiversityThreshold = s.DiversityThreshold
	}
	if s.IgnoreTimeoutSeconds > 0 {
		cfg.IgnoreTimeout = time.Duration(s.IgnoreTimeoutSeconds * float64(time.Second))
	}
	return cfg
}
