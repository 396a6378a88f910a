package store

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tpal-app/tpal/internal/journal"
)

// openTestStore creates a store backed by a temp file.
func openTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestLoadStateFresh(t *testing.T) {
	st := openTestStore(t)

	state, err := st.LoadState()
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if len(state.Rules) != 3 {
		t.Errorf("fresh store should yield default state, got %d rules", len(state.Rules))
	}
}

func TestSaveAndLoadState(t *testing.T) {
	st := openTestStore(t)

	state := journal.DefaultState()
	state.Habits = []string{"Pre-Market Review", "Daily Journal"}
	state.MorningEntries = append(state.MorningEntries, journal.MorningEntry{
		ID:        "m1",
		Date:      time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC),
		Checklist: journal.Checklist{Plan: true, Risk: true, Calm: false},
	})

	if err := st.SaveState(state); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	loaded, err := st.LoadState()
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if len(loaded.Habits) != 2 {
		t.Errorf("habits = %v, want 2 entries", loaded.Habits)
	}
	if len(loaded.MorningEntries) != 1 {
		t.Fatalf("morning entries = %d, want 1", len(loaded.MorningEntries))
	}
	if !loaded.MorningEntries[0].Checklist.Plan {
		t.Error("checklist lost on round trip")
	}
}

func TestStoredDocumentHasNoSyncMarker(t *testing.T) {
	st := openTestStore(t)

	if err := st.SaveState(journal.DefaultState()); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}
	if err := st.SetLastSyncedAt(time.Now()); err != nil {
		t.Fatalf("SetLastSyncedAt failed: %v", err)
	}

	raw, err := st.get(keyJournal)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if strings.Contains(raw, "__updatedAt") {
		t.Errorf("stored document must not carry the sync marker: %s", raw)
	}
}

func TestLastSyncedAt(t *testing.T) {
	st := openTestStore(t)

	ts, err := st.LastSyncedAt()
	if err != nil {
		t.Fatalf("LastSyncedAt failed: %v", err)
	}
	if !ts.IsZero() {
		t.Errorf("fresh store should report zero time, got %v", ts)
	}

	want := time.Date(2025, 6, 15, 12, 30, 45, 0, time.UTC)
	if err := st.SetLastSyncedAt(want); err != nil {
		t.Fatalf("SetLastSyncedAt failed: %v", err)
	}

	got, err := st.LastSyncedAt()
	if err != nil {
		t.Fatalf("LastSyncedAt failed: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("LastSyncedAt = %v, want %v", got, want)
	}
}

func TestReplace(t *testing.T) {
	st := openTestStore(t)

	local := journal.DefaultState()
	local.Habits = []string{"old"}
	if err := st.SaveState(local); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	remote := journal.DefaultState()
	remote.Habits = []string{"new-a", "new-b"}
	syncedAt := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	if err := st.Replace(remote, syncedAt); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	loaded, err := st.LoadState()
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if len(loaded.Habits) != 2 || loaded.Habits[0] != "new-a" {
		t.Errorf("replace did not take effect: %v", loaded.Habits)
	}

	ts, err := st.LastSyncedAt()
	if err != nil {
		t.Fatalf("LastSyncedAt failed: %v", err)
	}
	if !ts.Equal(syncedAt) {
		t.Errorf("LastSyncedAt = %v, want %v", ts, syncedAt)
	}
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	state := journal.DefaultState()
	state.Strict = true
	if err := st.SaveState(state); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	st2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer st2.Close()

	loaded, err := st2.LoadState()
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if !loaded.Strict {
		t.Error("state did not survive reopen")
	}
}
