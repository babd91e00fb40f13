// Package config loads engine settings and stopword lists from YAML files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Stoplist is the stopword list configuration.
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file.
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}

	return &sl, nil
}

// Settings is the engine tuning file.
type Settings struct {
	MaxResults           int     `yaml:"max_results"`
	MinScore             float64 `yaml:"min_score"`
	CooldownHours        float64 `yaml:"cooldown_hours"`
	DiversityThreshold   float64 `yaml:"diversity_threshold"`
	IgnoreTimeoutSeconds float64 `yaml:"ignore_timeout_seconds"`

	Weights WeightSettings `yaml:"weights"`
}

// WeightSettings tunes the template scorer.
type WeightSettings struct {
	Keyword            float64 `yaml:"keyword"`
	PartialKeyword     float64 `yaml:"partial_keyword"`
	VerticalBonus      float64 `yaml:"vertical_bonus"`
	MinEffectiveness   float64 `yaml:"min_effectiveness"`
	EffectivenessFloor float64 `yaml:"effectiveness_floor"`
}

// LoadSettings loads engine settings from a YAML file. Zero-valued fields
// fall back to defaults when applied by the Loader.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}

	return &s, nil
}
