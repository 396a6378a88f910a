package engine

import "time"

// Clock abstracts wall-clock time and timer scheduling so the debounce
// window and echo suppression can be driven deterministically in tests.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time

	// AfterFunc schedules f to run after d. The returned Timer can cancel
	// the call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancelable scheduled call.
type Timer interface {
	// Stop cancels the timer. It reports whether the call was prevented.
	Stop() bool
}

// realClock is the production Clock backed by package time.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// NewClock returns the production clock.
func NewClock() Clock {
	return realClock{}
}
