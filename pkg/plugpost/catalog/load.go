package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk catalog format.
type File struct {
	Templates []Template `yaml:"templates"`
}

// LoadCatalog loads templates from a YAML file, normalizing each entry.
// Templates that fail validation are skipped with their index reported in
// the returned slice of problems; one bad entry never fails the whole load.
func LoadCatalog(path string) ([]Template, []error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses catalog YAML bytes. See LoadCatalog.
func ParseCatalog(data []byte) ([]Template, []error, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("parse catalog: %w", err)
	}

	templates := make([]Template, 0, len(file.Templates))
	var problems []error
	for i := range file.Templates {
		t := file.Templates[i]
		t.Normalize()
		if err := t.Validate(); err != nil {
			problems = append(problems, fmt.Errorf("template %d (%s): %w", i, t.ID, err))
			continue
		}
		templates = append(templates, t)
	}
	return templates, problems, nil
}
