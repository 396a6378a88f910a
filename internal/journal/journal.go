// Package journal defines the trading journal document and the analytics
// derived from it.
//
// The entire journal is a single JSON-serializable document (State). The
// JSON field names are fixed: they are the wire and at-rest format shared
// with the Trading Pal web app, so one account can sync across both.
//
// The sync layer treats State as opaque; only this package and the CLI
// interpret entry contents.
package journal

import "time"

// Checklist records the three morning routine checks.
type Checklist struct {
	Plan bool `json:"plan"`
	Risk bool `json:"risk"`
	Calm bool `json:"calm"`
}

// MorningEntry is one completed morning routine.
type MorningEntry struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Checklist Checklist `json:"checklist"`
}

// ReviewEntry is one evening trade review.
type ReviewEntry struct {
	ID       string    `json:"id"`
	Date     time.Time `json:"date"`
	Trades   int       `json:"trades"`
	PnL      float64   `json:"pnl"`
	Followed bool      `json:"followed"`
	// RuleBreak names the broken rule when Followed is false ("Risk",
	// "FOMO", "Overtrading", ...). Empty when the plan was followed.
	RuleBreak string `json:"ruleBreak,omitempty"`
	Note      string `json:"note,omitempty"`
}

// HabitDay records which habits were completed on a given date.
// Date is a bare YYYY-MM-DD day, not a timestamp.
type HabitDay struct {
	Date      string   `json:"date"`
	Completed []string `json:"completed"`
}

// Limits holds the user's self-imposed daily trading limits.
// Values are kept as strings (possibly empty) to match the web app.
type Limits struct {
	MaxTrades string `json:"maxTrades"`
	MaxLoss   string `json:"maxLoss"`
}

// State is the complete journal document.
type State struct {
	MorningEntries []MorningEntry `json:"morningEntries"`
	ReviewEntries  []ReviewEntry  `json:"reviewEntries"`
	Habits         []string       `json:"habits"`
	HabitEntries   []HabitDay     `json:"habitEntries"`
	Rules          []string       `json:"rules"`
	Limits         Limits         `json:"limits"`
	Strict         bool           `json:"strict"`
}

// DefaultState returns the document a fresh install starts from.
func DefaultState() *State {
	return &State{
		MorningEntries: []MorningEntry{},
		ReviewEntries:  []ReviewEntry{},
		Habits:         []string{},
		HabitEntries:   []HabitDay{},
		Rules: []string{
			"Follow the plan",
			"Never revenge trade",
			"Stick to risk limits",
		},
	}
}

// Normalize replaces nil slices with empty ones so the serialized document
// always carries the full set of fields.
func (s *State) Normalize() {
	if s.MorningEntries == nil {
		s.MorningEntries = []MorningEntry{}
	}
	if s.ReviewEntries == nil {
		s.ReviewEntries = []ReviewEntry{}
	}
	if s.Habits == nil {
		s.Habits = []string{}
	}
	if s.HabitEntries == nil {
		s.HabitEntries = []HabitDay{}
	}
	if s.Rules == nil {
		s.Rules = []string{}
	}
}

// HabitDayFor returns the habit entry for the given day, creating and
// appending one if it doesn't exist yet.
func (s *State) HabitDayFor(day string) *HabitDay {
	for i := range s.HabitEntries {
		if s.HabitEntries[i].Date == day {
			return &s.HabitEntries[i]
		}
	}
	s.HabitEntries = append(s.HabitEntries, HabitDay{Date: day, Completed: []string{}})
	return &s.HabitEntries[len(s.HabitEntries)-1]
}

// MarkHabit records habit completion for the day. The completed list is
// kept strictly unique so toggling always works.
func (h *HabitDay) MarkHabit(name string) {
	for _, c := range h.Completed {
		if c == name {
			return
		}
	}
	h.Completed = append(h.Completed, name)
}
