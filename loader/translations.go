package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseTranslations parses a flat YAML mapping of source text to
// replacement text.
func ParseTranslations(data []byte) (map[string]string, error) {
	table := map[string]string{}
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing translations: %w", err)
	}
	return table, nil
}

// LoadTranslations reads a translations file. An empty path yields an
// empty table.
func LoadTranslations(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading translations: %w", err)
	}
	return ParseTranslations(data)
}
