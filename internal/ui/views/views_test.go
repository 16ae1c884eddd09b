package views

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/tgienger/pulse/internal/board"
	"github.com/tgienger/pulse/internal/calendar"
	"github.com/tgienger/pulse/internal/models"
	"github.com/tgienger/pulse/internal/prefs"
	"github.com/tgienger/pulse/internal/remote"
	"github.com/tgienger/pulse/internal/store"
)

var today = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

// rows serves fixed tasks and lists. Writes change nothing, and the first
// failUpdates updates fail.
type rows struct {
	tasks       []models.Task
	lists       []models.List
	failUpdates int
	updates     int
}

func (r *rows) Select(_ context.Context, _ string, _ remote.Query, out any) error {
	switch o := out.(type) {
	case *[]models.Task:
		*o = append([]models.Task(nil), r.tasks...)
	case *[]models.List:
		*o = append([]models.List(nil), r.lists...)
	}
	return nil
}

func (r *rows) Insert(context.Context, string, any, any) error          { return nil }
func (r *rows) Delete(context.Context, string, ...remote.Filter) error { return nil }

func (r *rows) Update(context.Context, string, any, ...remote.Filter) error {
	r.updates++
	if r.updates <= r.failUpdates {
		return errors.New("update rejected")
	}
	return nil
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, _ := newStoreWith(t, 0)
	return s
}

func newStoreWith(t *testing.T, failUpdates int) (*store.Store, *rows) {
	t.Helper()
	meeting := models.Task{ID: "m", Title: "Standup", Status: models.StatusTodo, OrderIndex: 0, CreatedAt: today}
	sched := models.TimedSchedule("2026-10-16", 9*60, 60)
	meeting.DueDate, meeting.DueTime, meeting.EndDate, meeting.EndTime = sched.DueDate, sched.DueTime, sched.EndDate, sched.EndTime
	r := &rows{
		tasks: []models.Task{
			meeting,
			{ID: "u", Title: "Read", Status: models.StatusTodo, OrderIndex: 1, CreatedAt: today},
		},
		lists:       []models.List{{ID: "work", Name: "Work"}},
		failUpdates: failUpdates,
	}
	logger, _ := test.NewNullLogger()
	s := store.New(r, logger)
	s.Now = func() time.Time { return today }
	if err := s.FetchAll(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	return s, r
}

type memPrefs struct {
	p prefs.Prefs
}

func (m *memPrefs) Prefs() prefs.Prefs { return m.p }

func (m *memPrefs) Set(_ context.Context, p prefs.Prefs) prefs.Prefs {
	m.p = p.Normalize()
	return m.p
}

// newCalendar shows one day at 60 units per hour, three rows per hour,
// scrolled so 09:00 is the first grid row
func newCalendar(t *testing.T) (*CalendarView, *store.Store) {
	s := newStore(t)
	logger, _ := test.NewNullLogger()
	v := NewCalendarView(s, &memPrefs{p: prefs.Default()}, logger)
	v.now = func() time.Time { return today }
	v.anchor = today
	v.mode = calendar.Day
	v.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return v, s
}

func TestEditorSchedule(t *testing.T) {
	s := newStore(t)
	cases := []struct {
		name             string
		date, start, end string
		wantStart        string
		wantEnd          string
		allDay           bool
		err              bool
	}{
		{name: "date only", date: "2026-10-20", allDay: true},
		{name: "start and end", date: "2026-10-20", start: "09:00", end: "10:30", wantStart: "09:00", wantEnd: "10:30"},
		{name: "no end", date: "2026-10-20", start: "09:00", wantStart: "09:00", wantEnd: "10:00"},
		{name: "end before start", date: "2026-10-20", start: "09:00", end: "08:00", wantStart: "09:00", wantEnd: "10:00"},
		{name: "time without date", start: "09:00", err: true},
		{name: "bad date", date: "20 Oct", err: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e := NewTaskEditor(s)
			e.OpenNew(store.NewTask{})
			e.date.SetValue(c.date)
			e.start.SetValue(c.start)
			e.end.SetValue(c.end)
			got, err := e.Schedule()
			if c.err {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if c.allDay {
				if got.DueDate == nil || got.DueTime != nil {
					t.Fatalf("not all-day: %+v", got)
				}
				return
			}
			if *got.DueTime != c.wantStart || *got.EndTime != c.wantEnd {
				t.Fatalf("got %s-%s", *got.DueTime, *got.EndTime)
			}
		})
	}
}

func TestCommitContinuesAfterFailure(t *testing.T) {
	s, r := newStoreWith(t, 1)
	title := "Renamed"
	cmd := commit(
		s.UpdateTask("m", store.TaskPatch{Title: &title}),
		s.Reschedule("m", models.TimedSchedule("2026-10-17", 14*60, 60)),
	)
	if task, _ := s.Task("m"); task.Title != title || *task.DueDate != "2026-10-17" {
		t.Fatalf("not applied locally: %+v", task)
	}

	done, ok := cmd().(CommitDone)
	if !ok || done.Err == nil {
		t.Fatalf("failure not reported: %+v", done)
	}
	if r.updates != 2 {
		t.Fatalf("sent %d updates, want 2", r.updates)
	}

	// the server kept the old row, so the refetch after the writes wins
	task, _ := s.Task("m")
	if task.Title != "Standup" || *task.DueDate != "2026-10-16" || *task.DueTime != "09:00" {
		t.Fatalf("stale local row kept: %s %s %s", task.Title, *task.DueDate, *task.DueTime)
	}
}

func TestBoardTargets(t *testing.T) {
	s := newStore(t)
	v := NewBoardView(s, nil)
	v.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	cases := []struct {
		name string
		x, y int
		kind board.TargetKind
		id   string
	}{
		{"header", 40, 0, board.Nothing, ""},
		{"inbox", 5, headerLines + 1, board.SidebarInbox, ""},
		{"lists heading", 5, headerLines + 4, board.SidebarRoot, ""},
		{"list", 5, headerLines + 5, board.SidebarList, "work"},
		{"first row", 40, headerLines, board.Row, "m"},
		{"second row gap", 40, headerLines + 2*rowLines - 1, board.Row, "u"},
		{"below the rows", 40, headerLines + 2*rowLines, board.Background, ""},
	}
	for _, c := range cases {
		got := v.targetAt(c.x, c.y)
		if got.Kind != c.kind || got.ID != c.id {
			t.Errorf("%s: got %v %q", c.name, got.Kind, got.ID)
		}
	}
}

func TestCalendarTaskAt(t *testing.T) {
	v, _ := newCalendar(t)
	cases := []struct {
		y      int
		id     string
		handle bool
	}{
		{calGridTop, "m", false},
		{calGridTop + 1, "m", false},
		{calGridTop + 2, "m", true},
		{calGridTop + 3, "", false},
	}
	for _, c := range cases {
		id, handle := v.taskAt(10, c.y)
		if id != c.id || handle != c.handle {
			t.Errorf("row %d: got %q handle=%v", c.y, id, handle)
		}
	}
}

func mouse(x, y int, action tea.MouseAction) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: action, Button: tea.MouseButtonLeft}
}

func TestCalendarDragReschedules(t *testing.T) {
	v, s := newCalendar(t)

	v.Update(mouse(10, calGridTop, tea.MouseActionPress))
	v.Update(mouse(10, calGridTop+3, tea.MouseActionMotion))
	if _, ok := v.preview["m"]; !ok {
		t.Fatal("no preview while dragging")
	}
	_, cmd := v.Update(mouse(10, calGridTop+3, tea.MouseActionRelease))
	if len(v.preview) != 0 {
		t.Fatal("preview left behind")
	}
	task, _ := s.Task("m")
	if *task.DueTime != "10:00" || *task.EndTime != "11:00" {
		t.Fatalf("got %s-%s", *task.DueTime, *task.EndTime)
	}
	if !v.engine.Busy("m", calendar.MoveGesture) {
		t.Fatal("gesture released before the write finished")
	}

	done, ok := cmd().(calCommitted)
	if !ok || done.err != nil {
		t.Fatalf("commit: %+v", done)
	}
	v.Update(done)
	if v.engine.Busy("m", calendar.MoveGesture) {
		t.Fatal("gesture still held after the write")
	}
}

func TestCalendarTrayDrop(t *testing.T) {
	v, s := newCalendar(t)

	v.Update(mouse(v.bodyWidth()+2, calAllDay, tea.MouseActionPress))
	if v.trayDrag != "u" {
		t.Fatalf("tray drag %q", v.trayDrag)
	}
	v.Update(mouse(10, calGridTop, tea.MouseActionRelease))
	task, _ := s.Task("u")
	if task.DueTime == nil || *task.DueTime != "09:00" {
		t.Fatalf("dropped at %v", task.DueTime)
	}
}

func TestCalendarZoomNeedsModifier(t *testing.T) {
	v, _ := newCalendar(t)
	before := v.prefs.Prefs().PixelsPerHour

	v.Update(tea.MouseMsg{X: 10, Y: 10, Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
	if got := v.prefs.Prefs().PixelsPerHour; got != before {
		t.Fatalf("plain wheel zoomed to %v", got)
	}
	v.Update(tea.MouseMsg{X: 10, Y: 10, Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress, Ctrl: true})
	if got := v.prefs.Prefs().PixelsPerHour; got <= before {
		t.Fatalf("ctrl+wheel did not zoom in: %v", got)
	}
	if got := v.engine.Geometry().PixelsPerHour; got != v.prefs.Prefs().PixelsPerHour {
		t.Fatalf("geometry at %v", got)
	}
}
