package field

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// document is the on-disk form of a field list.
type document struct {
	Fields []Descriptor `yaml:"fields" json:"fields"`
}

// ParseFile parses a field list from a YAML or JSON file.
func ParseFile(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(data)
	}
	return Parse(data)
}

// Parse parses a field list from YAML. Both a bare list and a document with
// a top-level "fields" key are accepted.
func Parse(data []byte) ([]Descriptor, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(root.Content) == 0 {
		return []Descriptor{}, nil
	}

	node := root.Content[0]
	var fields []Descriptor
	switch node.Kind {
	case yaml.SequenceNode:
		if err := node.Decode(&fields); err != nil {
			return nil, fmt.Errorf("parse fields: %w", err)
		}
	case yaml.MappingNode:
		var doc document
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse fields: %w", err)
		}
		fields = doc.Fields
	default:
		return nil, fmt.Errorf("parse fields: expected a list or a mapping, got %s", kindName(node.Kind))
	}

	if fields == nil {
		fields = []Descriptor{}
	}
	return fields, nil
}

// ParseJSON parses a field list from JSON, bare list or {"fields": [...]}.
func ParseJSON(data []byte) ([]Descriptor, error) {
	trimmed := strings.TrimSpace(string(data))
	var fields []Descriptor
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	} else {
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		fields = doc.Fields
	}
	if fields == nil {
		fields = []Descriptor{}
	}
	return fields, nil
}

// Validate reports problems that Normalize would degrade silently, plus
// keys that collide within a partition. It is advisory: nothing it reports
// stops a field list from being used.
func Validate(fields []Descriptor) []Diagnostic {
	_, diags := Normalize(fields)

	tableKeys := make(map[string]int)
	searchKeys := make(map[string]int)
	dialogKeys := make(map[string]int)

	for i, f := range fields {
		if f.Key == "" && !f.Table.Disabled() {
			diags = append(diags, Diagnostic{Index: i, Surface: "table", Message: "column has no key"})
		}
		if f.Key != "" {
			if prev, ok := tableKeys[f.Key]; ok {
				diags = append(diags, Diagnostic{Index: i, Key: f.Key, Surface: "table",
					Message: fmt.Sprintf("duplicate key, first used by field #%d", prev)})
			} else {
				tableKeys[f.Key] = i
			}
		}

		if f.Search.Enabled() {
			key := firstNonEmpty(f.Search.Override().Key, f.Key)
			if prev, ok := searchKeys[key]; ok && key != "" {
				diags = append(diags, Diagnostic{Index: i, Key: key, Surface: "search",
					Message: fmt.Sprintf("duplicate key, first used by field #%d", prev)})
			} else if key != "" {
				searchKeys[key] = i
			}
		}

		if f.Dialog.Enabled() {
			key := firstNonEmpty(f.Dialog.Override().Key, f.Key)
			if prev, ok := dialogKeys[key]; ok && key != "" {
				diags = append(diags, Diagnostic{Index: i, Key: key, Surface: "dialog",
					Message: fmt.Sprintf("duplicate key, first used by field #%d", prev)})
			} else if key != "" {
				dialogKeys[key] = i
			}
		}

		order := f.DefaultSortsValue
		if o := f.Table.Override().DefaultSortsValue; o != "" {
			order = o
		}
		if order != "" && !order.IsValid() {
			diags = append(diags, Diagnostic{Index: i, Key: f.Key, Surface: "table",
				Message: fmt.Sprintf("default sort %q must be %q or %q", order, Ascend, Descend)})
		}
	}

	return diags
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	default:
		return "unknown"
	}
}
