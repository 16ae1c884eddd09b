package calendar

import (
	"math"
	"time"

	"github.com/tgienger/pulse/internal/models"
)

const (
	snapMinutes  = 15
	dropMinutes  = 30
	minDuration  = 15
	lastMinute   = models.MinutesPerDay - 1
	slotDuration = models.DefaultMinutes
)

func snap(minutes float64, step int) int {
	return int(math.Round(minutes/float64(step))) * step
}

// MoveSchedule is where a task dragged by (to - from) lands.
//
// Releasing over the all-day row makes the task all-day on the column under
// the pointer. A timed task keeps its duration, moves by whole days
// horizontally and by 15 minute steps vertically, and is clamped into the
// day. Any other task starts at the 15 minute slot under the pointer for an hour.
func (g Geometry) MoveSchedule(t models.Task, from, to Point) models.Schedule {
	dx, dy := to.X-from.X, to.Y-from.Y
	offset := 0
	if g.ColumnWidth > 0 {
		offset = int(math.Round(dx / g.ColumnWidth))
	}
	day := g.shiftDay(t, to, offset)

	if g.InAllDayRow(to) {
		return models.AllDaySchedule(day)
	}

	start, duration, ok := t.Span()
	if !ok {
		slot := g.MinuteAt(to.Y) / snapMinutes * snapMinutes
		return models.TimedSchedule(day, min(slot, models.MinutesPerDay-slotDuration), slotDuration)
	}
	start += snap(dy/g.PixelsPerMinute(), snapMinutes)
	start = min(max(start, 0), models.MinutesPerDay-duration)
	return models.TimedSchedule(day, start, duration)
}

// shiftDay picks the target date. A timed task moves by the column offset of
// the drag; anything else lands on the column under the pointer. Both fall
// back to the other rule outside the visible columns.
func (g Geometry) shiftDay(t models.Task, to Point, offset int) string {
	under, overColumn := g.DateAt(to.X)
	if t.DueDate != nil && (t.IsTimed() || !overColumn) {
		if d, err := models.AddDays(*t.DueDate, offset); err == nil {
			return d
		}
	}
	if overColumn {
		return under
	}
	if len(g.Days) > 0 {
		return g.Days[0]
	}
	return models.FormatDate(time.Now())
}

// ResizeSchedule is the schedule of a timed task whose bottom edge was dragged
// by dy. The duration follows the pointer to the minute, never drops below
// 15, and the end stays on the start day no later than 23:59. Only the end
// fields change.
func (g Geometry) ResizeSchedule(t models.Task, dy float64) (models.Schedule, bool) {
	start, duration, ok := t.Span()
	if !ok {
		return models.Schedule{}, false
	}
	duration = max(minDuration, duration+int(math.Round(dy/g.PixelsPerMinute())))
	end := min(start+duration, lastMinute)
	s := t.Schedule()
	s.EndDate = models.Ptr(*t.DueDate)
	s.EndTime = models.Ptr(models.FormatClock(end))
	return s, true
}

// DropSchedule is where a task dragged in from outside the grid lands: the
// all-day row makes it all-day, the grid snaps to the nearest half hour.
// It reports false outside both.
func (g Geometry) DropSchedule(t models.Task, at Point) (models.Schedule, bool) {
	day, ok := g.DateAt(at.X)
	if !ok {
		return models.Schedule{}, false
	}
	if g.InAllDayRow(at) {
		return models.AllDaySchedule(day), true
	}
	if !g.InGrid(at) {
		return models.Schedule{}, false
	}
	duration := models.DefaultMinutes
	if _, d, ok := t.Span(); ok {
		duration = d
	}
	exact := float64(g.StartHour*60) + (at.Y-g.Origin.Y)/g.PixelsPerMinute()
	start := min(max(snap(exact, dropMinutes), 0), models.MinutesPerDay-duration)
	return models.TimedSchedule(day, start, duration), true
}

// SlotAt returns the date and hour of the empty cell under p
func (g Geometry) SlotAt(p Point) (date string, hour int, ok bool) {
	if !g.InGrid(p) {
		return "", 0, false
	}
	date, ok = g.DateAt(p.X)
	return date, g.MinuteAt(p.Y) / 60, ok
}
