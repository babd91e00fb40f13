package config

import (
	"fmt"

	"github.com/plugpost/plugpost/pkg/plugpost/ingest"
	"github.com/plugpost/plugpost/pkg/plugpost/match"
)

// Loader loads configuration files and constructs engine components.
// Empty paths fall back to shipped defaults.
type Loader struct {
	StoplistPath string
	SettingsPath string
}

// Components holds the loaded configuration components.
type Components struct {
	Extractor *ingest.Extractor
	Weights   match.Weights
	Settings  Settings
}

// Load reads the configuration files and returns initialized components.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{Weights: match.DefaultWeights()}

	stopwords := ingest.DefaultStopwords
	if l.StoplistPath != "" {
		stoplist, err := LoadStoplist(l.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		stopwords = append(stopwords, stoplist.Terms...)
	}
	comp.Extractor = ingest.NewExtractor(stopwords)

	if l.SettingsPath != "" {
		settings, err := LoadSettings(l.SettingsPath)
		if err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}
		comp.Settings = *settings
		applyWeights(&comp.Weights, settings.Weights)
	}

	return comp, nil
}

// applyWeights overrides defaults with any non-zero configured weight.
func applyWeights(w *match.Weights, s WeightSettings) {
	if s.Keyword > 0 {
		w.Keyword = s.Keyword
	}
	if s.PartialKeyword > 0 {
		w.PartialKeyword = s.PartialKeyword
	}
	if s.VerticalBonus > 0 {
		w.VerticalBonus = s.VerticalBonus
	}
	if s.MinEffectiveness > 0 {
		w.MinEffectiveness = s.MinEffectiveness
	}
	if s.EffectivenessFloor > 0 {
		w.EffectivenessFloor = s.EffectivenessFloor
	}
}
