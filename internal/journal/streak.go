package journal

import (
	"sort"
	"time"
)

// maxGap is the largest spacing between consecutive morning entries that
// still counts as an unbroken streak. 36 hours tolerates uneven entry
// times across days without letting a skipped day through.
const maxGap = 36 * time.Hour

// MorningStreak returns the number of consecutive days, ending at the most
// recent entry, on which the morning routine was completed.
func MorningStreak(entries []MorningEntry) int {
	if len(entries) == 0 {
		return 0
	}

	dates := make([]time.Time, len(entries))
	for i, e := range entries {
		dates[i] = e.Date
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })

	streak := 1
	for i := 1; i < len(dates); i++ {
		if dates[i-1].Sub(dates[i]) <= maxGap {
			streak++
		} else {
			break
		}
	}
	return streak
}

// WeeklyStats summarizes the trailing seven days of journal activity.
type WeeklyStats struct {
	Trades   int
	PnL      float64
	Sessions int
}

// WeekStats computes trade count, net PnL and morning session count over
// the seven days before now.
func WeekStats(s *State, now time.Time) WeeklyStats {
	cutoff := now.Add(-7 * 24 * time.Hour)

	var stats WeeklyStats
	for _, r := range s.ReviewEntries {
		if !r.Date.Before(cutoff) {
			stats.Trades += r.Trades
			stats.PnL += r.PnL
		}
	}
	for _, e := range s.MorningEntries {
		if !e.Date.Before(cutoff) {
			stats.Sessions++
		}
	}
	return stats
}

// HabitStreakResult holds the current and all-time longest streaks of
// days on which every defined habit was completed.
type HabitStreakResult struct {
	Current int
	Longest int
}

// HabitStreaks computes full-completion habit streaks. A day counts only
// when every habit in s.Habits was completed. today is a YYYY-MM-DD day;
// entries dated after it are ignored for the current streak.
func HabitStreaks(s *State, today string) HabitStreakResult {
	total := len(s.Habits)
	if total == 0 {
		return HabitStreakResult{}
	}

	entries := make([]HabitDay, len(s.HabitEntries))
	copy(entries, s.HabitEntries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date < entries[j].Date })

	var res HabitStreakResult

	// Current streak: walk backwards from the most recent entry.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Date > today {
			continue
		}
		if len(e.Completed) == total {
			res.Current++
		} else {
			break
		}
	}

	// Longest streak across the whole history.
	streak := 0
	for _, e := range entries {
		if len(e.Completed) == total {
			streak++
			if streak > res.Longest {
				res.Longest = streak
			}
		} else {
			streak = 0
		}
	}
	return res
}
