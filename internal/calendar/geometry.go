// Package calendar turns pointer and touch gestures on the day/hour grid into
// scheduling changes. It reads tasks but never writes them: every change is
// returned to the caller as an Effect.
package calendar

import (
	"math"
	"time"

	"github.com/tgienger/pulse/internal/models"
	"github.com/tgienger/pulse/internal/prefs"
)

// Mode is the number of day columns shown
type Mode int

const (
	Day      Mode = 1
	ThreeDay Mode = 3
	Week     Mode = 7
)

func (m Mode) String() string {
	switch m {
	case ThreeDay:
		return "3 days"
	case Week:
		return "week"
	default:
		return "day"
	}
}

// Point is a position in grid units
type Point struct {
	X, Y float64
}

// Rect is an axis aligned box
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether p lies inside r
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// DaysFor returns the dates shown in mode around anchor. A week starts on Monday.
func DaysFor(mode Mode, anchor time.Time) []string {
	start := anchor
	n := int(mode)
	switch mode {
	case Week:
		offset := (int(anchor.Weekday()) + 6) % 7
		start = anchor.AddDate(0, 0, -offset)
	case ThreeDay:
	default:
		n = 1
	}
	days := make([]string, n)
	for i := range days {
		days[i] = models.FormatDate(start.AddDate(0, 0, i))
	}
	return days
}

// Geometry places the grid on screen. Origin is the top-left corner of the
// first visible hour of the first day column.
type Geometry struct {
	Days          []string
	Origin        Point
	ColumnWidth   float64
	AllDay        Rect
	PixelsPerHour float64
	StartHour     int
	EndHour       int
}

// NewGeometry lays out days with the hour window and zoom from p
func NewGeometry(p prefs.Prefs, days []string, origin Point, columnWidth float64, allDay Rect) Geometry {
	p = p.Normalize()
	from, to := p.VisibleHours()
	return Geometry{
		Days:          days,
		Origin:        origin,
		ColumnWidth:   columnWidth,
		AllDay:        allDay,
		PixelsPerHour: p.PixelsPerHour,
		StartHour:     from,
		EndHour:       to,
	}
}

// PixelsPerMinute is the vertical scale of the grid
func (g Geometry) PixelsPerMinute() float64 {
	return g.PixelsPerHour / 60
}

// Height is the height of the visible hour window
func (g Geometry) Height() float64 {
	return float64(g.EndHour-g.StartHour) * g.PixelsPerHour
}

// Grid is the hour grid rectangle
func (g Geometry) Grid() Rect {
	return Rect{X: g.Origin.X, Y: g.Origin.Y, W: g.ColumnWidth * float64(len(g.Days)), H: g.Height()}
}

// InGrid reports whether p is over the hour grid
func (g Geometry) InGrid(p Point) bool {
	return g.Grid().Contains(p)
}

// InAllDayRow reports whether p is over the all-day row
func (g Geometry) InAllDayRow(p Point) bool {
	return g.AllDay.Contains(p)
}

// DayAt returns the column under x
func (g Geometry) DayAt(x float64) (int, bool) {
	if g.ColumnWidth <= 0 || len(g.Days) == 0 {
		return 0, false
	}
	i := int(math.Floor((x - g.Origin.X) / g.ColumnWidth))
	if i < 0 || i >= len(g.Days) {
		return 0, false
	}
	return i, true
}

// DateAt returns the date of the column under x
func (g Geometry) DateAt(x float64) (string, bool) {
	i, ok := g.DayAt(x)
	if !ok {
		return "", false
	}
	return g.Days[i], true
}

// MinuteAt returns the minute of the day at y, clamped to the day
func (g Geometry) MinuteAt(y float64) int {
	m := g.StartHour*60 + int(math.Floor((y-g.Origin.Y)/g.PixelsPerMinute()))
	return min(max(m, 0), models.MinutesPerDay-1)
}

// YFor returns the y of a minute of the day
func (g Geometry) YFor(minute int) float64 {
	return g.Origin.Y + float64(minute-g.StartHour*60)*g.PixelsPerMinute()
}

// XFor returns the left edge of column i
func (g Geometry) XFor(i int) float64 {
	return g.Origin.X + float64(i)*g.ColumnWidth
}
