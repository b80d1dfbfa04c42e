package main

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/lootweight/internal/game/subject"
)

// subjectFile is the YAML form of a subject plus the effect templates that
// apply to it.
type subjectFile struct {
	ID      string             `yaml:"id"`
	Tags    []string           `yaml:"tags"`
	Stats   map[string]float64 `yaml:"stats"`
	Vars    map[string]string  `yaml:"vars"`
	Effects []string           `yaml:"effects"`
}

// loadSubject reads path. An empty path yields an anonymous subject.
func loadSubject(path string) (*subject.Context, []string, error) {
	if path == "" {
		return subject.New("anonymous"), nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading subject %s: %w", path, err)
	}
	var f subjectFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parsing subject %s: %w", path, err)
	}
	if f.ID == "" {
		f.ID = "anonymous"
	}
	s := subject.New(f.ID).WithTags(f.Tags...)
	for _, k := range sortedKeys(f.Stats) {
		s = s.WithStat(k, f.Stats[k])
	}
	for _, k := range sortedKeys(f.Vars) {
		s = s.WithVar(k, f.Vars[k])
	}
	return s, f.Effects, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
