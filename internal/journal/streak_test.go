package journal

import (
	"testing"
	"time"
)

// day returns a timestamp n days before the reference date.
func day(t *testing.T, n int) time.Time {
	t.Helper()
	ref := time.Date(2025, 6, 15, 8, 30, 0, 0, time.UTC)
	return ref.AddDate(0, 0, -n)
}

func morningOn(t *testing.T, n int) MorningEntry {
	t.Helper()
	return MorningEntry{ID: "m", Date: day(t, n), Checklist: Checklist{Plan: true, Risk: true, Calm: true}}
}

func TestMorningStreak(t *testing.T) {
	tests := []struct {
		name    string
		daysAgo []int
		want    int
	}{
		{
			name:    "empty",
			daysAgo: nil,
			want:    0,
		},
		{
			name:    "single entry",
			daysAgo: []int{0},
			want:    1,
		},
		{
			name:    "three consecutive days",
			daysAgo: []int{0, 1, 2},
			want:    3,
		},
		{
			name:    "gap breaks streak",
			daysAgo: []int{0, 1, 4, 5},
			want:    2,
		},
		{
			name:    "unsorted input",
			daysAgo: []int{2, 0, 1},
			want:    3,
		},
		{
			name:    "old history does not extend streak",
			daysAgo: []int{0, 10, 11, 12},
			want:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var entries []MorningEntry
			for _, n := range tt.daysAgo {
				entries = append(entries, morningOn(t, n))
			}
			if got := MorningStreak(entries); got != tt.want {
				t.Errorf("MorningStreak() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWeekStats(t *testing.T) {
	now := time.Date(2025, 6, 15, 20, 0, 0, 0, time.UTC)

	state := &State{
		MorningEntries: []MorningEntry{
			{Date: now.AddDate(0, 0, -1)},
			{Date: now.AddDate(0, 0, -3)},
			{Date: now.AddDate(0, 0, -10)}, // outside the window
		},
		ReviewEntries: []ReviewEntry{
			{Date: now.AddDate(0, 0, -1), Trades: 3, PnL: 120.5},
			{Date: now.AddDate(0, 0, -2), Trades: 2, PnL: -40},
			{Date: now.AddDate(0, 0, -9), Trades: 8, PnL: 999}, // outside
		},
	}

	stats := WeekStats(state, now)
	if stats.Trades != 5 {
		t.Errorf("Trades = %d, want 5", stats.Trades)
	}
	if stats.PnL != 80.5 {
		t.Errorf("PnL = %v, want 80.5", stats.PnL)
	}
	if stats.Sessions != 2 {
		t.Errorf("Sessions = %d, want 2", stats.Sessions)
	}
}

func TestHabitStreaks(t *testing.T) {
	habits := []string{"journal", "exercise"}
	all := []string{"journal", "exercise"}
	partial := []string{"journal"}

	tests := []struct {
		name    string
		habits  []string
		entries []HabitDay
		today   string
		want    HabitStreakResult
	}{
		{
			name:   "no habits defined",
			habits: nil,
			entries: []HabitDay{
				{Date: "2025-06-14", Completed: all},
			},
			today: "2025-06-15",
			want:  HabitStreakResult{},
		},
		{
			name:   "current and longest equal",
			habits: habits,
			entries: []HabitDay{
				{Date: "2025-06-13", Completed: all},
				{Date: "2025-06-14", Completed: all},
				{Date: "2025-06-15", Completed: all},
			},
			today: "2025-06-15",
			want:  HabitStreakResult{Current: 3, Longest: 3},
		},
		{
			name:   "partial day breaks current streak",
			habits: habits,
			entries: []HabitDay{
				{Date: "2025-06-11", Completed: all},
				{Date: "2025-06-12", Completed: all},
				{Date: "2025-06-13", Completed: all},
				{Date: "2025-06-14", Completed: partial},
				{Date: "2025-06-15", Completed: all},
			},
			today: "2025-06-15",
			want:  HabitStreakResult{Current: 1, Longest: 3},
		},
		{
			name:   "future entries are skipped for current streak",
			habits: habits,
			entries: []HabitDay{
				{Date: "2025-06-14", Completed: all},
				{Date: "2025-06-15", Completed: all},
				{Date: "2025-06-20", Completed: partial},
			},
			today: "2025-06-15",
			want:  HabitStreakResult{Current: 2, Longest: 2},
		},
		{
			name:   "unsorted entries",
			habits: habits,
			entries: []HabitDay{
				{Date: "2025-06-15", Completed: all},
				{Date: "2025-06-13", Completed: all},
				{Date: "2025-06-14", Completed: all},
			},
			today: "2025-06-15",
			want:  HabitStreakResult{Current: 3, Longest: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &State{Habits: tt.habits, HabitEntries: tt.entries}
			got := HabitStreaks(state, tt.today)
			if got != tt.want {
				t.Errorf("HabitStreaks() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
