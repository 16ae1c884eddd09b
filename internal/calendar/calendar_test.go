package calendar

import (
	"reflect"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/tgienger/pulse/internal/models"
	"github.com/tgienger/pulse/internal/prefs"
)

type taskMap map[string]models.Task

func (m taskMap) Task(id string) (models.Task, bool) {
	t, ok := m[id]
	return t, ok
}

func timed(id, date string, start, duration int) models.Task {
	s := models.TimedSchedule(date, start, duration)
	return models.Task{ID: id, Title: id, DueDate: s.DueDate, DueTime: s.DueTime, EndDate: s.EndDate, EndTime: s.EndTime}
}

func allDay(id, date string) models.Task {
	return models.Task{ID: id, Title: id, DueDate: models.Ptr(date), EndDate: models.Ptr(date)}
}

// three 20 wide columns below a 20 high all-day row, 60 units per hour
func testGeometry() Geometry {
	return NewGeometry(
		prefs.Default(),
		[]string{"2026-10-16", "2026-10-17", "2026-10-18"},
		Point{X: 10, Y: 40},
		20,
		Rect{X: 10, Y: 20, W: 60, H: 20},
	)
}

func clock(t *testing.T, s *string) int {
	t.Helper()
	if s == nil {
		t.Fatal("nil time")
	}
	m, err := models.ParseClock(*s)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestDaysFor(t *testing.T) {
	friday := time.Date(2026, 10, 16, 15, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		mode   Mode
		anchor time.Time
		want   []string
	}{
		{Day, friday, []string{"2026-10-16"}},
		{ThreeDay, friday, []string{"2026-10-16", "2026-10-17", "2026-10-18"}},
		{Week, friday, []string{"2026-10-12", "2026-10-13", "2026-10-14", "2026-10-15", "2026-10-16", "2026-10-17", "2026-10-18"}},
		{Week, sunday, []string{"2026-10-12", "2026-10-13", "2026-10-14", "2026-10-15", "2026-10-16", "2026-10-17", "2026-10-18"}},
	}
	for _, c := range cases {
		if got := DaysFor(c.mode, c.anchor); !reflect.DeepEqual(got, c.want) {
			t.Errorf("DaysFor(%s, %s) = %v", c.mode, c.anchor.Format(time.DateOnly), got)
		}
	}
}

func TestGeometry(t *testing.T) {
	g := testGeometry()
	if m := g.MinuteAt(40); m != 0 {
		t.Fatalf("MinuteAt(top) = %d", m)
	}
	if m := g.MinuteAt(40 + 9*60); m != 540 {
		t.Fatalf("MinuteAt(9h) = %d", m)
	}
	if y := g.YFor(540); y != 580 {
		t.Fatalf("YFor(540) = %v", y)
	}
	for x, want := range map[float64]int{10: 0, 29.9: 0, 30: 1, 69: 2} {
		if i, ok := g.DayAt(x); !ok || i != want {
			t.Errorf("DayAt(%v) = %d, %v", x, i, ok)
		}
	}
	for _, x := range []float64{9, 70} {
		if _, ok := g.DayAt(x); ok {
			t.Errorf("DayAt(%v) inside", x)
		}
	}
	if !g.InAllDayRow(Point{X: 15, Y: 25}) || g.InAllDayRow(Point{X: 15, Y: 45}) {
		t.Fatal("all-day row bounds")
	}

	hidden := prefs.Default()
	hidden.HideNightHours = true
	g = NewGeometry(hidden, g.Days, g.Origin, 20, g.AllDay)
	if g.StartHour != 9 || g.EndHour != 18 {
		t.Fatalf("window %d-%d", g.StartHour, g.EndHour)
	}
	if m := g.MinuteAt(40); m != 540 {
		t.Fatalf("MinuteAt(top) with hidden nights = %d", m)
	}
}

func TestMoveStaysInsideDay(t *testing.T) {
	g := testGeometry()
	g.AllDay = Rect{}
	for _, duration := range []int{15, 60, 240, 600} {
		for start := 0; start+duration <= models.MinutesPerDay; start += 45 {
			task := timed("a", "2026-10-17", start, duration)
			for dy := -2000.0; dy <= 2000; dy += 37 {
				s := g.MoveSchedule(task, Point{X: 35, Y: 100}, Point{X: 35, Y: 100 + dy})
				got := clock(t, s.DueTime)
				if got < 0 || got > models.MinutesPerDay-duration {
					t.Fatalf("start %d duration %d dy %v: new start %d", start, duration, dy, got)
				}
				if got%15 != 0 && start%15 == 0 {
					t.Fatalf("start %d not on a 15 minute step", got)
				}
			}
		}
	}
}

func TestMoveSnapsAndShiftsDays(t *testing.T) {
	g := testGeometry()
	task := timed("a", "2026-10-16", 9*60, 60)
	from := Point{X: 15, Y: g.YFor(9*60 + 10)}

	cases := []struct {
		dx, dy float64
		date   string
		start  string
		end    string
	}{
		{0, 7, "2026-10-16", "09:00", "10:00"},
		{0, 8, "2026-10-16", "09:15", "10:15"},
		{20, 30, "2026-10-17", "09:30", "10:30"},
		{49, -60, "2026-10-18", "08:00", "09:00"},
		{-20, 0, "2026-10-15", "09:00", "10:00"},
	}
	for _, c := range cases {
		s := g.MoveSchedule(task, from, Point{X: from.X + c.dx, Y: from.Y + c.dy})
		if *s.DueDate != c.date || *s.DueTime != c.start || *s.EndTime != c.end || *s.EndDate != c.date {
			t.Errorf("dx %v dy %v: got %s %s-%s", c.dx, c.dy, *s.DueDate, *s.DueTime, *s.EndTime)
		}
	}
}

func TestMoveToAllDayRow(t *testing.T) {
	g := testGeometry()
	task := timed("a", "2026-10-16", 9*60, 60)
	s := g.MoveSchedule(task, Point{X: 15, Y: g.YFor(540)}, Point{X: 16, Y: 30})
	if s.DueTime != nil || s.EndTime != nil {
		t.Fatalf("times kept: %+v", s)
	}
	if *s.DueDate != "2026-10-16" || *s.EndDate != "2026-10-16" {
		t.Fatalf("dates %s %s", *s.DueDate, *s.EndDate)
	}
}

func TestAllDayIntoGrid(t *testing.T) {
	g := testGeometry()
	task := allDay("a", "2026-10-16")
	s := g.MoveSchedule(task, Point{X: 15, Y: 30}, Point{X: 35, Y: g.YFor(14*60 + 20)})
	if *s.DueDate != "2026-10-17" || *s.DueTime != "14:15" || *s.EndTime != "15:15" {
		t.Fatalf("got %s %s-%s", *s.DueDate, *s.DueTime, *s.EndTime)
	}
}

func TestResizeBounds(t *testing.T) {
	g := testGeometry()
	for start := 0; start < models.MinutesPerDay-15; start += 45 {
		task := timed("a", "2026-10-16", start, 60)
		for dy := -3000.0; dy <= 3000; dy += 41 {
			s, ok := g.ResizeSchedule(task, dy)
			if !ok {
				t.Fatal("timed task not resizable")
			}
			end := clock(t, s.EndTime)
			if end/60 > 23 {
				t.Fatalf("end hour %d", end/60)
			}
			if end-start < 15 {
				t.Fatalf("start %d dy %v: duration %d", start, dy, end-start)
			}
			if *s.DueTime != *task.DueTime || *s.DueDate != *task.DueDate || *s.EndDate != *task.DueDate {
				t.Fatalf("start changed: %+v", s)
			}
		}
	}
	if _, ok := g.ResizeSchedule(allDay("b", "2026-10-16"), 60); ok {
		t.Fatal("all-day task resized")
	}
}

func TestResizeFollowsPointer(t *testing.T) {
	g := testGeometry()
	task := timed("a", "2026-10-16", 9*60, 60)
	cases := []struct {
		dy  float64
		end string
	}{
		{7, "10:07"},
		{20, "10:20"},
		{-20, "09:40"},
		{-50, "09:15"},
		{900, "23:59"},
	}
	for _, c := range cases {
		s, _ := g.ResizeSchedule(task, c.dy)
		if *s.EndTime != c.end {
			t.Errorf("dy %v: end %s, want %s", c.dy, *s.EndTime, c.end)
		}
	}
}

func TestMoveToEndOfDayKeepsDuration(t *testing.T) {
	g := testGeometry()
	task := timed("a", "2026-10-16", 22*60, 60)
	from := Point{X: 15, Y: g.YFor(22 * 60)}
	for i := 0; i < 3; i++ {
		s := g.MoveSchedule(task, from, Point{X: from.X, Y: from.Y + 120})
		if *s.DueTime != "23:00" || *s.EndDate != "2026-10-17" || *s.EndTime != "00:00" {
			t.Fatalf("move %d: %s-%s %s", i, *s.DueTime, *s.EndTime, *s.EndDate)
		}
		task.DueDate, task.DueTime, task.EndDate, task.EndTime = s.DueDate, s.DueTime, s.EndDate, s.EndTime
		if _, d, _ := task.Span(); d != 60 {
			t.Fatalf("move %d: duration %d", i, d)
		}
	}
}

func TestDropOntoGrid(t *testing.T) {
	g := testGeometry()
	inbox := models.Task{ID: "a", Title: "a"}

	s, ok := g.DropSchedule(inbox, Point{X: 35, Y: g.YFor(14 * 60)})
	if !ok {
		t.Fatal("drop rejected")
	}
	if s.DueDate == nil || *s.DueDate != "2026-10-17" || *s.DueTime != "14:00" || *s.EndTime != "15:00" {
		t.Fatalf("got %+v", s)
	}
	for minute, want := range map[int]string{14*60 + 14: "14:00", 14*60 + 16: "14:30", 14*60 + 50: "15:00"} {
		s, _ := g.DropSchedule(inbox, Point{X: 35, Y: g.YFor(minute)})
		if *s.DueTime != want {
			t.Errorf("drop at %s = %s, want %s", models.FormatClock(minute), *s.DueTime, want)
		}
	}
	s, ok = g.DropSchedule(inbox, Point{X: 55, Y: 25})
	if !ok || !(models.Task{DueDate: s.DueDate, DueTime: s.DueTime}).IsAllDay() || *s.DueDate != "2026-10-18" {
		t.Fatalf("all-day drop %+v", s)
	}
	if _, ok := g.DropSchedule(inbox, Point{X: 200, Y: 100}); ok {
		t.Fatal("drop outside accepted")
	}
}

func TestLayout(t *testing.T) {
	slots := Layout([]Interval{{ID: "b", Start: 570, End: 630}, {ID: "a", Start: 540, End: 600}})
	if slots["a"] != (Slot{Index: 0, Width: 50, Left: 0}) || slots["b"] != (Slot{Index: 1, Width: 50, Left: 50}) {
		t.Fatalf("overlap %+v", slots)
	}

	slots = Layout([]Interval{{ID: "a", Start: 540, End: 600}, {ID: "b", Start: 600, End: 660}})
	for id, s := range slots {
		if s.Width != 100 || s.Left != 0 {
			t.Fatalf("%s shares its column: %+v", id, s)
		}
	}

	tasks := []models.Task{
		timed("a", "2026-10-16", 540, 60),
		timed("b", "2026-10-16", 570, 60),
		timed("c", "2026-10-17", 540, 60),
		allDay("d", "2026-10-16"),
	}
	if got := Intervals(tasks, "2026-10-16"); len(got) != 2 {
		t.Fatalf("intervals %+v", got)
	}
}

func TestZoom(t *testing.T) {
	z := Zoom{PixelsPerHour: 60}
	if z.Wheel(1, false) || z.PixelsPerHour != 60 {
		t.Fatal("wheel without modifier zoomed")
	}
	if !z.Wheel(1, true) || z.PixelsPerHour < 65.9 || z.PixelsPerHour > 66.1 {
		t.Fatalf("one notch: %v", z.PixelsPerHour)
	}
	z.Wheel(100, true)
	if z.PixelsPerHour != prefs.MaxPixelsPerHour {
		t.Fatalf("max: %v", z.PixelsPerHour)
	}
	if z.Wheel(1, true) {
		t.Fatal("zoomed past max")
	}

	z = Zoom{PixelsPerHour: 60}
	z.StartPinch()
	z.Pinch(100, 50)
	if z.PixelsPerHour != 30 {
		t.Fatalf("pinch: %v", z.PixelsPerHour)
	}
	z.Pinch(100, 10)
	if z.PixelsPerHour != prefs.MinPixelsPerHour {
		t.Fatalf("min: %v", z.PixelsPerHour)
	}
}

func newEngine(tasks taskMap) (*Engine, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return New(tasks, testGeometry(), logger), hook
}

var t0 = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func TestTapSelectsAndDoubleTapOpens(t *testing.T) {
	e, _ := newEngine(taskMap{"a": timed("a", "2026-10-16", 540, 60)})
	at := Point{X: 15, Y: e.Geometry().YFor(550)}

	tapTask := func(when time.Time) []Effect {
		e.Handle(Event{Kind: Down, Pos: at, At: when, TaskID: "a"})
		return e.Handle(Event{Kind: Up, Pos: at, At: when})
	}
	if got := tapTask(t0); !reflect.DeepEqual(got, []Effect{Select{TaskID: "a"}}) {
		t.Fatalf("first tap %v", got)
	}
	if got := tapTask(t0.Add(200 * time.Millisecond)); !reflect.DeepEqual(got, []Effect{Open{TaskID: "a"}}) {
		t.Fatalf("second tap %v", got)
	}
	if got := tapTask(t0.Add(time.Second)); !reflect.DeepEqual(got, []Effect{Select{TaskID: "a"}}) {
		t.Fatalf("late tap %v", got)
	}
	if got := tapTask(t0.Add(time.Second + 400*time.Millisecond)); !reflect.DeepEqual(got, []Effect{Select{TaskID: "a"}}) {
		t.Fatalf("slow double tap %v", got)
	}
	if e.Selected() != "a" {
		t.Fatal("not selected")
	}

	bg := Point{X: 200, Y: 200}
	e.Handle(Event{Kind: Down, Pos: bg, At: t0.Add(2 * time.Second)})
	got := e.Handle(Event{Kind: Up, Pos: bg, At: t0.Add(2 * time.Second)})
	if !reflect.DeepEqual(got, []Effect{ClearSelection{}}) || e.Selected() != "" {
		t.Fatalf("background tap %v", got)
	}
}

func TestDoubleTapSlotPromptsCreate(t *testing.T) {
	e, _ := newEngine(taskMap{})
	g := e.Geometry()
	cell := Point{X: 35, Y: g.YFor(14*60 + 5)}
	sameHour := Point{X: 36, Y: g.YFor(14*60 + 40)}

	e.Handle(Event{Kind: Down, Pos: cell, At: t0})
	e.Handle(Event{Kind: Up, Pos: cell, At: t0})
	e.Handle(Event{Kind: Down, Pos: sameHour, At: t0.Add(250 * time.Millisecond)})
	got := e.Handle(Event{Kind: Up, Pos: sameHour, At: t0.Add(250 * time.Millisecond)})
	want := []Effect{ClearSelection{}, PromptCreate{Date: "2026-10-17", Hour: 14}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v", got)
	}

	other := Point{X: 35, Y: g.YFor(15 * 60)}
	e.Handle(Event{Kind: Down, Pos: cell, At: t0.Add(time.Second)})
	e.Handle(Event{Kind: Up, Pos: cell, At: t0.Add(time.Second)})
	e.Handle(Event{Kind: Down, Pos: other, At: t0.Add(time.Second + 100*time.Millisecond)})
	got = e.Handle(Event{Kind: Up, Pos: other, At: t0.Add(time.Second + 100*time.Millisecond)})
	if len(got) != 1 {
		t.Fatalf("different cell prompted: %v", got)
	}
}

func TestMouseDragCommitsOnce(t *testing.T) {
	tasks := taskMap{"a": timed("a", "2026-10-16", 540, 60)}
	e, hook := newEngine(tasks)
	g := e.Geometry()
	start := Point{X: 15, Y: g.YFor(550)}

	e.Handle(Event{Kind: Down, Pos: start, TaskID: "a"})
	if e.State(0) != Pressed {
		t.Fatalf("state %s", e.State(0))
	}
	got := e.Handle(Event{Kind: Move, Pos: Point{X: 35, Y: start.Y + 60}})
	if len(got) != 1 || e.State(0) != Dragging {
		t.Fatalf("drag start %v %s", got, e.State(0))
	}
	if _, ok := got[0].(Preview); !ok {
		t.Fatalf("effect %T", got[0])
	}
	got = e.Handle(Event{Kind: Up, Pos: Point{X: 35, Y: start.Y + 60}})
	want := Reschedule{TaskID: "a", Schedule: models.TimedSchedule("2026-10-17", 600, 60)}
	if len(got) != 2 || !reflect.DeepEqual(got[1], want) {
		t.Fatalf("release %v", got)
	}
	if e.State(0) != Idle || !e.Busy("a", MoveGesture) {
		t.Fatal("move should be committing")
	}

	// a second move of the same task waits for the write
	e.Handle(Event{Kind: Down, Pointer: 1, Pos: start, TaskID: "a"})
	if e.State(1) != Idle {
		t.Fatalf("second gesture started: %s", e.State(1))
	}
	e.Handle(Event{Kind: Committed, TaskID: "a", Gesture: MoveGesture})
	if e.Busy("a", MoveGesture) {
		t.Fatal("lock kept after commit")
	}
	e.Handle(Event{Kind: Down, Pointer: 1, Pos: start, TaskID: "a"})
	if e.State(1) != Pressed {
		t.Fatalf("gesture after commit: %s", e.State(1))
	}

	var logged int
	for _, entry := range hook.AllEntries() {
		if entry.Message == "calendar.transition" {
			logged++
		}
	}
	if logged == 0 {
		t.Fatal("transitions not logged")
	}
}

func TestDragToAllDayRow(t *testing.T) {
	e, _ := newEngine(taskMap{"a": timed("a", "2026-10-16", 540, 60)})
	start := Point{X: 15, Y: e.Geometry().YFor(550)}

	e.Handle(Event{Kind: Down, Pos: start, TaskID: "a"})
	e.Handle(Event{Kind: Move, Pos: Point{X: 15, Y: 30}})
	got := e.Handle(Event{Kind: Up, Pos: Point{X: 15, Y: 30}})
	want := Reschedule{TaskID: "a", Schedule: models.AllDaySchedule("2026-10-16")}
	if len(got) != 2 || !reflect.DeepEqual(got[1], want) {
		t.Fatalf("got %v", got)
	}
}

func TestTouchNeedsLongPress(t *testing.T) {
	e, _ := newEngine(taskMap{"a": timed("a", "2026-10-16", 540, 60)})
	start := Point{X: 15, Y: e.Geometry().YFor(550)}

	got := e.Handle(Event{Kind: Down, Pos: start, TaskID: "a", Touch: true})
	arm, ok := got[0].(ArmLongPress)
	if !ok || arm.After != LongPressDelay {
		t.Fatalf("got %v", got)
	}
	if got := e.Handle(Event{Kind: LongPress, Token: arm.Token + 1}); got != nil || e.State(0) != Pressed {
		t.Fatal("stale long press accepted")
	}
	got = e.Handle(Event{Kind: LongPress, Token: arm.Token})
	if !reflect.DeepEqual(got, []Effect{Select{TaskID: "a"}}) || e.State(0) != Dragging {
		t.Fatalf("long press %v %s", got, e.State(0))
	}
	e.Handle(Event{Kind: Cancel})
	if e.State(0) != Idle || e.Busy("a", MoveGesture) {
		t.Fatal("cancel left the gesture running")
	}

	// moving before the timer fires is a scroll
	got = e.Handle(Event{Kind: Down, Pos: start, TaskID: "a", Touch: true})
	token := got[0].(ArmLongPress).Token
	e.Handle(Event{Kind: Move, Pos: Point{X: start.X, Y: start.Y + 30}})
	if e.State(0) != Idle {
		t.Fatalf("state %s", e.State(0))
	}
	if got := e.Handle(Event{Kind: LongPress, Token: token}); got != nil {
		t.Fatalf("interrupted long press fired: %v", got)
	}
}

func TestConcurrentGesturesOnDifferentTasks(t *testing.T) {
	e, _ := newEngine(taskMap{
		"a": timed("a", "2026-10-16", 540, 60),
		"b": timed("b", "2026-10-17", 600, 60),
	})
	g := e.Geometry()
	e.Handle(Event{Kind: Down, Pointer: 1, Pos: Point{X: 15, Y: g.YFor(550)}, TaskID: "a"})
	e.Handle(Event{Kind: Down, Pointer: 2, Pos: Point{X: 35, Y: g.YFor(610)}, TaskID: "b"})
	e.Handle(Event{Kind: Move, Pointer: 1, Pos: Point{X: 15, Y: g.YFor(600)}})
	e.Handle(Event{Kind: Move, Pointer: 2, Pos: Point{X: 55, Y: g.YFor(610)}})
	if e.State(1) != Dragging || e.State(2) != Dragging {
		t.Fatalf("states %s %s", e.State(1), e.State(2))
	}
	a := e.Handle(Event{Kind: Up, Pointer: 1, Pos: Point{X: 15, Y: g.YFor(600)}})
	b := e.Handle(Event{Kind: Up, Pointer: 2, Pos: Point{X: 55, Y: g.YFor(610)}})
	if a[1].(Reschedule).TaskID != "a" || b[1].(Reschedule).TaskID != "b" {
		t.Fatalf("effects %v %v", a, b)
	}
	if got := *b[1].(Reschedule).Schedule.DueDate; got != "2026-10-18" {
		t.Fatalf("b moved to %s", got)
	}
}

func TestResizeNeedsSelection(t *testing.T) {
	e, _ := newEngine(taskMap{"a": timed("a", "2026-10-16", 540, 60)})
	g := e.Geometry()
	handle := Point{X: 15, Y: g.YFor(599)}

	e.Handle(Event{Kind: Down, Pos: handle, TaskID: "a", Handle: true})
	if e.State(0) != Pressed {
		t.Fatalf("unselected handle: %s", e.State(0))
	}
	e.Handle(Event{Kind: Up, Pos: handle})

	e.Handle(Event{Kind: Down, Pos: handle, TaskID: "a", Handle: true})
	if e.State(0) != Resizing {
		t.Fatalf("selected handle: %s", e.State(0))
	}
	got := e.Handle(Event{Kind: Move, Pos: Point{X: 15, Y: handle.Y + 90}})
	if p := got[0].(Preview); *p.Schedule.EndTime != "11:30" {
		t.Fatalf("preview %+v", p.Schedule)
	}
	got = e.Handle(Event{Kind: Up, Pos: Point{X: 15, Y: handle.Y - 1000}})
	r, ok := got[1].(Resize)
	if !ok || *r.Schedule.EndTime != "09:15" || *r.Schedule.DueTime != "09:00" {
		t.Fatalf("resize %v", got)
	}
	if !e.Busy("a", ResizeGesture) || e.Busy("a", MoveGesture) {
		t.Fatal("wrong lock")
	}
	e.Handle(Event{Kind: Committed, TaskID: "a", Gesture: ResizeGesture})
	if e.Busy("a", ResizeGesture) {
		t.Fatal("resize lock kept")
	}
}

func TestExternalDrop(t *testing.T) {
	e, _ := newEngine(taskMap{"a": {ID: "a", Title: "a"}})
	g := e.Geometry()

	if got := e.Handle(Event{Kind: Drop, TaskID: "a", Pos: Point{X: 200, Y: 0}}); got != nil {
		t.Fatalf("outside drop %v", got)
	}
	got := e.Handle(Event{Kind: Drop, TaskID: "a", Pos: Point{X: 15, Y: g.YFor(8 * 60)}})
	want := []Effect{Reschedule{TaskID: "a", Schedule: models.TimedSchedule("2026-10-16", 480, 60)}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v", got)
	}
	if !e.Busy("a", MoveGesture) {
		t.Fatal("drop not committing")
	}
}

func TestEngineWheel(t *testing.T) {
	e, _ := newEngine(taskMap{})
	if got := e.Wheel(-1, false); got != nil {
		t.Fatalf("scroll zoomed: %v", got)
	}
	got := e.Wheel(-1, true)
	z, ok := got[0].(SetZoom)
	if !ok || z.PixelsPerHour >= 60 || e.Geometry().PixelsPerHour != z.PixelsPerHour {
		t.Fatalf("zoom %v", got)
	}
}
