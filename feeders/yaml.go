// Package feeders provides small, composable config sources that populate a
// struct in sequence — the same "feeder chain" idiom as the reference
// application framework this module grew out of, pared down to what this
// domain's config actually needs: a YAML file followed by environment
// overrides.
package feeders

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YamlFeeder reads a YAML file into the target structure.
type YamlFeeder struct {
	Path string
}

func NewYamlFeeder(path string) *YamlFeeder {
	return &YamlFeeder{Path: path}
}

func (f *YamlFeeder) Feed(target any) error {
	content, err := os.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("read yaml config %q: %w", f.Path, err)
	}
	if err := yaml.Unmarshal(content, target); err != nil {
		return fmt.Errorf("parse yaml config %q: %w", f.Path, err)
	}
	return nil
}
