// Package selection tracks the rows a user has chosen in a table, including
// rows that are no longer on the loaded page.
package selection

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Record is one table row.
type Record map[string]any

// Mode is the selection policy.
type Mode string

const (
	// Checkbox allows any number of selected rows.
	Checkbox Mode = "checkbox"
	// Radio allows at most one selected row.
	Radio Mode = "radio"
)

// ParseMode maps a configuration string to a Mode. Anything other than
// "radio" selects multiple rows.
func ParseMode(s string) Mode {
	if Mode(s) == Radio {
		return Radio
	}
	return Checkbox
}

// Snapshot is an immutable copy of a selection. Keys are in selection order
// and every key has exactly one record.
type Snapshot struct {
	Keys    []string          `json:"keys"`
	Records map[string]Record `json:"records"`
}

// Rows returns the selected records in selection order.
func (s Snapshot) Rows() []Record {
	rows := make([]Record, 0, len(s.Keys))
	for _, k := range s.Keys {
		rows = append(rows, s.Records[k])
	}
	return rows
}

// Len returns the number of selected rows.
func (s Snapshot) Len() int {
	return len(s.Keys)
}

// Has reports whether key is selected.
func (s Snapshot) Has(key string) bool {
	_, ok := s.Records[key]
	return ok
}

// Summary describes the selection for a footer message. When showKey is set,
// each row is listed by that attribute instead of by its key.
func (s Snapshot) Summary(showKey string) string {
	if len(s.Keys) == 0 {
		return "no rows selected"
	}
	labels := make([]string, 0, len(s.Keys))
	for _, k := range s.Keys {
		label := k
		if showKey != "" {
			if v, ok := s.Records[k][showKey]; ok && v != nil {
				label = fmt.Sprint(v)
			}
		}
		labels = append(labels, label)
	}
	return fmt.Sprintf("%d selected: %s", len(labels), strings.Join(labels, ", "))
}

// ChangeFunc receives the full selection after every mutating call.
type ChangeFunc func(Snapshot)

// Coordinator owns a selection. All mutations go through it, and each
// mutating call notifies the change callback exactly once, after the state
// transition is complete.
type Coordinator struct {
	mu       sync.Mutex
	rowKey   string
	mode     Mode
	keys     []string
	records  map[string]Record
	onChange ChangeFunc
}

// New creates a coordinator that identifies rows by the rowKey attribute.
func New(rowKey string, mode Mode, onChange ChangeFunc) *Coordinator {
	if mode != Radio {
		mode = Checkbox
	}
	return &Coordinator{
		rowKey:   rowKey,
		mode:     mode,
		records:  make(map[string]Record),
		onChange: onChange,
	}
}

// RowKey returns the attribute rows are identified by.
func (c *Coordinator) RowKey() string {
	return c.rowKey
}

// Mode returns the selection policy.
func (c *Coordinator) Mode() Mode {
	return c.mode
}

// KeyOf returns the key of a record, and false when it has none.
func (c *Coordinator) KeyOf(r Record) (string, bool) {
	return KeyOf(r, c.rowKey)
}

// Add selects records. A record whose key is already selected replaces the
// stored copy. In radio mode the existing selection is cleared first and
// only the last keyed record is kept.
func (c *Coordinator) Add(records ...Record) {
	c.mu.Lock()
	if c.mode == Radio {
		c.resetLocked()
		if last, ok := c.lastKeyed(records); ok {
			c.putLocked(last)
		}
	} else {
		for _, r := range records {
			c.putLocked(r)
		}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// Remove deselects the given keys. Unknown keys are ignored.
func (c *Coordinator) Remove(keys ...string) {
	c.mu.Lock()
	for _, k := range keys {
		if _, ok := c.records[k]; !ok {
			continue
		}
		delete(c.records, k)
		if i := slices.Index(c.keys, k); i >= 0 {
			c.keys = slices.Delete(c.keys, i, i+1)
		}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// Replace overwrites the selection with records.
func (c *Coordinator) Replace(records ...Record) {
	c.mu.Lock()
	c.resetLocked()
	if c.mode == Radio {
		if last, ok := c.lastKeyed(records); ok {
			c.putLocked(last)
		}
	} else {
		for _, r := range records {
			c.putLocked(r)
		}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// Clear empties the selection.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	c.resetLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// Snapshot returns a copy of the current selection.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Len returns the number of selected rows.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}

// Has reports whether key is selected.
func (c *Coordinator) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.records[key]
	return ok
}

func (c *Coordinator) putLocked(r Record) {
	k, ok := KeyOf(r, c.rowKey)
	if !ok {
		return
	}
	if _, exists := c.records[k]; !exists {
		c.keys = append(c.keys, k)
	}
	c.records[k] = maps.Clone(r)
}

func (c *Coordinator) resetLocked() {
	c.keys = nil
	c.records = make(map[string]Record)
}

func (c *Coordinator) lastKeyed(records []Record) (Record, bool) {
	for i := len(records) - 1; i >= 0; i-- {
		if _, ok := KeyOf(records[i], c.rowKey); ok {
			return records[i], true
		}
	}
	return nil, false
}

func (c *Coordinator) snapshotLocked() Snapshot {
	snap := Snapshot{
		Keys:    make([]string, len(c.keys)),
		Records: make(map[string]Record, len(c.records)),
	}
	copy(snap.Keys, c.keys)
	for k, r := range c.records {
		snap.Records[k] = maps.Clone(r)
	}
	return snap
}

func (c *Coordinator) notify(snap Snapshot) {
	if c.onChange != nil {
		c.onChange(snap)
	}
}

// KeyOf returns the string form of r[rowKey], and false when r has no such
// attribute.
func KeyOf(r Record, rowKey string) (string, bool) {
	if r == nil {
		return "", false
	}
	v, ok := r[rowKey]
	if !ok || v == nil {
		return "", false
	}
	switch k := v.(type) {
	case string:
		return k, k != ""
	case float64:
		// JSON numbers decode as float64; keep integral ids free of a ".0" suffix.
		if k == float64(int64(k)) {
			return fmt.Sprintf("%d", int64(k)), true
		}
	}
	return fmt.Sprint(v), true
}
