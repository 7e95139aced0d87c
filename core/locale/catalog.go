// Package locale translates field titles and carries the built-in UI labels.
package locale

import (
	"fmt"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// Catalog maps locale -> title key -> translation.
//
//	de:
//	  Name: Name
//	  Status: Zustand
//	zh-CN:
//	  Name: 名称
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]map[string]string
}

// NewCatalog returns a catalog holding entries.
func NewCatalog(entries map[string]map[string]string) *Catalog {
	c := &Catalog{entries: map[string]map[string]string{}}
	for loc, m := range entries {
		c.entries[loc] = clone(m)
	}
	return c
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var entries map[string]map[string]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewCatalog(entries), nil
}

// Translate returns the translation of key for locale, trying the full tag,
// then its language, then the ConfigError label for the built-in title, and
// finally key itself.
func (c *Catalog) Translate(locale, key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if v, ok := c.entries[locale][key]; ok {
		return v
	}
	if v, ok := c.entries[base(locale)][key]; ok {
		return v
	}
	if key == ForLocale("").ConfigError {
		return ForLocale(locale).ConfigError
	}
	return key
}

// Merge adds or replaces the entries of other.
func (c *Catalog) Merge(other *Catalog) {
	if other == nil || other == c {
		return
	}
	other.mu.RLock()
	defer other.mu.RUnlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	for loc, m := range other.entries {
		if c.entries[loc] == nil {
			c.entries[loc] = map[string]string{}
		}
		for k, v := range m {
			c.entries[loc][k] = v
		}
	}
}

// Locales returns the locales the catalog has entries for, sorted.
func (c *Catalog) Locales() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for loc := range c.entries {
		out = append(out, loc)
	}
	slices.Sort(out)
	return out
}

func clone(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
