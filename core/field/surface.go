package field

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// surfaceMode records which shorthand a surface override was written in.
type surfaceMode uint8

const (
	surfaceUnset surfaceMode = iota
	surfaceOn
	surfaceOff
	surfaceCustom
)

// Surface is the per-surface override of a descriptor. It is written either
// as a boolean shorthand or as an override object:
//
//	search: true                 # participate with defaults
//	table: false                 # hide the column
//	dialog: { required: true }   # participate with overrides
//
// The zero value is "unset".
type Surface[T any] struct {
	mode     surfaceMode
	override T
}

// On returns a surface enabled with default settings.
func On[T any]() Surface[T] {
	return Surface[T]{mode: surfaceOn}
}

// Off returns an explicitly disabled surface.
func Off[T any]() Surface[T] {
	return Surface[T]{mode: surfaceOff}
}

// With returns a surface enabled with the given overrides.
func With[T any](override T) Surface[T] {
	return Surface[T]{mode: surfaceCustom, override: override}
}

// Enabled reports whether the surface was written as true or as an object.
func (s Surface[T]) Enabled() bool {
	return s.mode == surfaceOn || s.mode == surfaceCustom
}

// Disabled reports whether the surface was written as exactly false.
func (s Surface[T]) Disabled() bool {
	return s.mode == surfaceOff
}

// IsSet reports whether the surface was written at all.
func (s Surface[T]) IsSet() bool {
	return s.mode != surfaceUnset
}

// IsZero reports whether the surface is unset, so omitempty drops it.
func (s Surface[T]) IsZero() bool {
	return s.mode == surfaceUnset
}

// Override returns the override object. Shorthand surfaces return the zero value.
func (s Surface[T]) Override() T {
	return s.override
}

// UnmarshalYAML accepts a boolean scalar, null, or a mapping.
func (s *Surface[T]) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*s = Surface[T]{}
			return nil
		}
		var b bool
		if err := value.Decode(&b); err != nil {
			return fmt.Errorf("line %d: surface must be a boolean or an object", value.Line)
		}
		s.setBool(b)
		return nil
	case yaml.MappingNode:
		var override T
		if err := value.Decode(&override); err != nil {
			return err
		}
		*s = With(override)
		return nil
	default:
		return fmt.Errorf("line %d: surface must be a boolean or an object", value.Line)
	}
}

// MarshalYAML writes the surface back in the shorthand it was read from.
func (s Surface[T]) MarshalYAML() (any, error) {
	switch s.mode {
	case surfaceOn:
		return true, nil
	case surfaceOff:
		return false, nil
	case surfaceCustom:
		return s.override, nil
	default:
		return nil, nil
	}
}

// UnmarshalJSON accepts true, false, null, or an object.
func (s *Surface[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = Surface[T]{}
		return nil
	case bytes.Equal(data, []byte("true")):
		s.setBool(true)
		return nil
	case bytes.Equal(data, []byte("false")):
		s.setBool(false)
		return nil
	case len(data) > 0 && data[0] == '{':
		var override T
		if err := json.Unmarshal(data, &override); err != nil {
			return err
		}
		*s = With(override)
		return nil
	default:
		return fmt.Errorf("surface must be a boolean or an object, got %s", data)
	}
}

// MarshalJSON writes the surface back in the shorthand it was read from.
func (s Surface[T]) MarshalJSON() ([]byte, error) {
	v, _ := s.MarshalYAML()
	return json.Marshal(v)
}

func (s *Surface[T]) setBool(b bool) {
	if b {
		*s = On[T]()
	} else {
		*s = Off[T]()
	}
}
