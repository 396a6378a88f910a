package journal

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDefaultState(t *testing.T) {
	s := DefaultState()

	if len(s.Rules) != 3 {
		t.Errorf("expected 3 default rules, got %d", len(s.Rules))
	}
	if s.Strict {
		t.Error("default state should not be strict")
	}
	if s.MorningEntries == nil || s.ReviewEntries == nil || s.Habits == nil || s.HabitEntries == nil {
		t.Error("default state must have non-nil slices")
	}
}

func TestStateJSONFieldNames(t *testing.T) {
	// The field names are the wire format shared with the web app and
	// must not drift.
	s := DefaultState()
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"morningEntries", "reviewEntries", "habits", "habitEntries", "rules", "limits", "strict"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("serialized state missing field %q", key)
		}
	}
}

func TestNormalize(t *testing.T) {
	var s State
	s.Normalize()

	data, err := json.Marshal(&s)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for _, fragment := range []string{`"morningEntries":[]`, `"habits":[]`, `"rules":[]`} {
		if !strings.Contains(string(data), fragment) {
			t.Errorf("normalized state should serialize %s, got %s", fragment, data)
		}
	}
}

func TestHabitDayFor(t *testing.T) {
	s := DefaultState()

	entry := s.HabitDayFor("2025-06-15")
	if entry.Date != "2025-06-15" {
		t.Errorf("unexpected date %q", entry.Date)
	}
	if len(s.HabitEntries) != 1 {
		t.Fatalf("expected entry to be appended, have %d", len(s.HabitEntries))
	}

	// Second lookup returns the same entry, not a duplicate.
	again := s.HabitDayFor("2025-06-15")
	again.MarkHabit("journal")
	if len(s.HabitEntries) != 1 {
		t.Errorf("lookup created a duplicate entry")
	}
	if len(s.HabitEntries[0].Completed) != 1 {
		t.Errorf("mutation through returned pointer was lost")
	}
}

func TestMarkHabitUnique(t *testing.T) {
	h := HabitDay{Date: "2025-06-15"}
	h.MarkHabit("journal")
	h.MarkHabit("journal")
	h.MarkHabit("exercise")

	if len(h.Completed) != 2 {
		t.Errorf("completed list should be unique, got %v", h.Completed)
	}
}
