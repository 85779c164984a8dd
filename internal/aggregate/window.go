package aggregate

import (
	"fmt"
	"time"
)

// Window is an inclusive range of UTC days.
type Window struct {
	Start time.Time // UTC midnight of the first day
	End   time.Time // UTC midnight of the last day
}

// NewWindow builds a window from two instants, truncated to UTC days and
// reordered if needed.
func NewWindow(a, b time.Time) Window {
	start := DayOf(a)
	end := DayOf(b)
	if end.Before(start) {
		start, end = end, start
	}
	return Window{Start: start, End: end}
}

// WindowForDay is the single-day window containing t.
func WindowForDay(t time.Time) Window {
	day := DayOf(t)
	return Window{Start: day, End: day}
}

// DayOf truncates an instant to its UTC day.
func DayOf(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// Contains reports whether the UTC day of t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	day := DayOf(t)
	return !day.Before(w.Start) && !day.After(w.End)
}

// Days returns the number of days spanned.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start)/(24*time.Hour)) + 1
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s]", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}
