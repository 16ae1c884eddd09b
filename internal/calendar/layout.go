package calendar

import (
	"sort"

	"github.com/tgienger/pulse/internal/models"
)

// Interval is a timed task on one day, in minutes after midnight, end exclusive
type Interval struct {
	ID         string
	Start, End int
}

func (a Interval) overlaps(b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// Slot is the horizontal place of a task inside its day column, in percent
type Slot struct {
	Index int
	Width float64
	Left  float64
}

// Intervals returns the timed tasks due on date
func Intervals(tasks []models.Task, date string) []Interval {
	var out []Interval
	for _, t := range tasks {
		if t.DueDate == nil || *t.DueDate != date {
			continue
		}
		start, duration, ok := t.Span()
		if !ok {
			continue
		}
		out = append(out, Interval{ID: t.ID, Start: start, End: start + duration})
	}
	return out
}

// Layout places each task beside the tasks it overlaps. A task's group is
// itself plus every task intersecting it, ordered by ID; the group shares the
// column in equal widths.
func Layout(events []Interval) map[string]Slot {
	out := make(map[string]Slot, len(events))
	for _, e := range events {
		group := []string{e.ID}
		for _, o := range events {
			if o.ID != e.ID && e.overlaps(o) {
				group = append(group, o.ID)
			}
		}
		sort.Strings(group)
		idx := sort.SearchStrings(group, e.ID)
		width := 100 / float64(len(group))
		out[e.ID] = Slot{Index: idx, Width: width, Left: float64(idx) * width}
	}
	return out
}
