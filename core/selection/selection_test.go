package selection

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func row(id any, name string) Record {
	return Record{"id": id, "name": name}
}

// checkPairing asserts every key has a record and every record a key.
func checkPairing(t *testing.T, s Snapshot) {
	t.Helper()
	if len(s.Keys) != len(s.Records) {
		t.Fatalf("len(Keys) = %d, len(Records) = %d", len(s.Keys), len(s.Records))
	}
	seen := map[string]bool{}
	for _, k := range s.Keys {
		if seen[k] {
			t.Fatalf("duplicate key %q", k)
		}
		seen[k] = true
		if _, ok := s.Records[k]; !ok {
			t.Fatalf("key %q has no record", k)
		}
	}
}

func TestAddRemoveReplaceClear(t *testing.T) {
	var calls []Snapshot
	c := New("id", Checkbox, func(s Snapshot) { calls = append(calls, s) })

	c.Add(row("1", "a"), row("2", "b"))
	c.Add(row("2", "b2"), row("3", "c"))
	snap := c.Snapshot()
	checkPairing(t, snap)
	if diff := cmp.Diff([]string{"1", "2", "3"}, snap.Keys); diff != "" {
		t.Errorf("keys after add (-want +got):\n%s", diff)
	}
	if snap.Records["2"]["name"] != "b2" {
		t.Errorf("duplicate add should overwrite record, got %v", snap.Records["2"])
	}

	c.Remove("1", "missing")
	checkPairing(t, c.Snapshot())
	if diff := cmp.Diff([]string{"2", "3"}, c.Snapshot().Keys); diff != "" {
		t.Errorf("keys after remove (-want +got):\n%s", diff)
	}

	c.Replace(row("9", "z"))
	if diff := cmp.Diff([]string{"9"}, c.Snapshot().Keys); diff != "" {
		t.Errorf("keys after replace (-want +got):\n%s", diff)
	}

	c.Clear()
	checkPairing(t, c.Snapshot())
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear", c.Len())
	}

	if len(calls) != 5 {
		t.Fatalf("notifications = %d, want one per call (5)", len(calls))
	}
	if got := calls[1].Len(); got != 3 {
		t.Errorf("second notification saw %d rows, want the completed state (3)", got)
	}
}

func TestRadioExclusive(t *testing.T) {
	c := New("id", Radio, nil)

	c.Add(row("1", "a"))
	c.Add(row("2", "b"), row("3", "c"))
	snap := c.Snapshot()
	if snap.Len() != 1 || !snap.Has("3") {
		t.Errorf("radio selection = %v, want only 3", snap.Keys)
	}

	c.Replace(row("4", "d"), row("5", "e"))
	if c.Len() != 1 || !c.Has("5") {
		t.Errorf("radio replace = %v, want only 5", c.Snapshot().Keys)
	}

	c.Add(Record{"name": "keyless"})
	if c.Len() != 0 {
		t.Errorf("radio add of keyless row should still clear, got %v", c.Snapshot().Keys)
	}
}

func TestRadioInvariantOverSequence(t *testing.T) {
	c := New("id", Radio, func(s Snapshot) {
		if s.Len() > 1 {
			t.Errorf("radio notification with %d rows", s.Len())
		}
	})
	for i := 0; i < 20; i++ {
		c.Add(row(i, "x"), row(i+100, "y"))
		checkPairing(t, c.Snapshot())
	}
}

func TestKeylessRecordsIgnored(t *testing.T) {
	c := New("id", Checkbox, nil)
	c.Add(Record{"name": "no id"}, Record{"id": nil}, Record{"id": ""}, nil)
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c := New("id", Checkbox, nil)
	r := row("1", "a")
	c.Add(r)

	r["name"] = "mutated"
	snap := c.Snapshot()
	snap.Records["1"]["name"] = "also mutated"
	snap.Keys[0] = "x"

	again := c.Snapshot()
	if again.Records["1"]["name"] != "a" || again.Keys[0] != "1" {
		t.Errorf("selection aliased caller data: %+v", again)
	}
}

func TestKeyOf(t *testing.T) {
	tests := []struct {
		name string
		r    Record
		want string
		ok   bool
	}{
		{"string", Record{"id": "a"}, "a", true},
		{"int", Record{"id": 7}, "7", true},
		{"json number", Record{"id": float64(1e6)}, "1000000", true},
		{"fraction", Record{"id": 1.5}, "1.5", true},
		{"missing", Record{}, "", false},
		{"nil", Record{"id": nil}, "", false},
		{"empty", Record{"id": ""}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := KeyOf(tt.r, "id")
			if got != tt.want || ok != tt.ok {
				t.Errorf("KeyOf = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	c := New("id", Checkbox, nil)
	if got := c.Snapshot().Summary(""); got != "no rows selected" {
		t.Errorf("empty Summary = %q", got)
	}
	c.Add(row("1", "alpha"), row("2", "beta"))
	if got := c.Snapshot().Summary("name"); got != "2 selected: alpha, beta" {
		t.Errorf("Summary(name) = %q", got)
	}
	if got := c.Snapshot().Summary(""); got != "2 selected: 1, 2" {
		t.Errorf("Summary() = %q", got)
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode("radio") != Radio || ParseMode("checkbox") != Checkbox || ParseMode("") != Checkbox {
		t.Error("ParseMode mapping wrong")
	}
	if New("id", "bogus", nil).Mode() != Checkbox {
		t.Error("unknown mode should fall back to checkbox")
	}
}
