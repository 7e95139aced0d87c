package storage

import (
	"fmt"
	"os"

	"github.com/artpar/searchtable/core/selection"
	"gopkg.in/yaml.v3"
)

// ReadSeed reads rows from a YAML or JSON file holding either a list of
// records or a document with a "rows" list.
func ReadSeed(path string) ([]selection.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed parses seed rows.
func ParseSeed(data []byte) ([]selection.Record, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	if root.Kind == yaml.MappingNode {
		var doc struct {
			Rows []selection.Record `yaml:"rows"`
		}
		if err := root.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse seed: %w", err)
		}
		return doc.Rows, nil
	}

	var rows []selection.Record
	if err := root.Decode(&rows); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return rows, nil
}
