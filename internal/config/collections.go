package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PayloadFields names the vector payload keys of one collection. Empty
// entries fall back to the adapter defaults.
type PayloadFields struct {
	ID            string `yaml:"id"`
	Content       string `yaml:"content"`
	Title         string `yaml:"title"`
	HierarchyPath string `yaml:"hierarchy_path"`
	URL           string `yaml:"url"`
	ParentID      string `yaml:"parent_id"`
}

type Collection struct {
	Name   string        `yaml:"name"`
	Fields PayloadFields `yaml:"fields"`
}

type collectionsFile struct {
	Collections []Collection `yaml:"collections"`
}

// LoadCollections reads the collections file at path. Without a path the
// names from LAW_COLLECTIONS are used with default payload fields.
func LoadCollections(path string, fallback []string) ([]Collection, error) {
	if strings.TrimSpace(path) == "" {
		out := make([]Collection, 0, len(fallback))
		for _, name := range fallback {
			out = append(out, Collection{Name: name})
		}
		return out, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read collections file: %w", err)
	}
	return parseCollections(raw)
}

func parseCollections(raw []byte) ([]Collection, error) {
	var file collectionsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse collections file: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Collections))
	out := make([]Collection, 0, len(file.Collections))
	for i, c := range file.Collections {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			return nil, fmt.Errorf("collections[%d]: name is required", i)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("collections[%d]: duplicate name %q", i, c.Name)
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, errors.New("collections file lists no collections")
	}
	return out, nil
}

func CollectionNames(collections []Collection) []string {
	out := make([]string, 0, len(collections))
	for _, c := range collections {
		out = append(out, c.Name)
	}
	return out
}
