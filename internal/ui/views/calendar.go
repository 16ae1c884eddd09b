package views

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"

	"github.com/tgienger/pulse/internal/calendar"
	"github.com/tgienger/pulse/internal/models"
	"github.com/tgienger/pulse/internal/prefs"
	"github.com/tgienger/pulse/internal/store"
	"github.com/tgienger/pulse/internal/ui/keys"
	"github.com/tgienger/pulse/internal/ui/styles"
)

const (
	// calUnit is the number of grid units per terminal row; the zoom is
	// in grid units per hour, so a row spans 60*calUnit/pph minutes
	calUnit = 20.0

	calGutter  = 6
	calTray    = 24
	calAllDay  = 2 // line of the all-day row
	calGridTop = 3
)

// PrefsStore holds the calendar preferences
type PrefsStore interface {
	Prefs() prefs.Prefs
	Set(ctx context.Context, p prefs.Prefs) prefs.Prefs
}

type calLongPress struct {
	pointer, token int
}

type calCommitted struct {
	taskID string
	kind   calendar.GestureKind
	op     string
	err    error
}

type cell struct {
	ch    rune
	style *lipgloss.Style
}

// CalendarView is the day, three day and week grid
type CalendarView struct {
	store  *store.Store
	prefs  PrefsStore
	engine *calendar.Engine
	log    log.FieldLogger
	styles *styles.Styles
	keys   keys.KeyMap

	// now is replaceable in tests
	now func() time.Time

	width  int
	height int

	mode    calendar.Mode
	anchor  time.Time
	scroll  int
	placed  bool
	preview map[string]models.Schedule

	trayFocus  bool
	trayCursor int
	trayDrag   string
}

func NewCalendarView(s *store.Store, p PrefsStore, logger log.FieldLogger) *CalendarView {
	if logger == nil {
		logger = log.StandardLogger()
	}
	v := &CalendarView{
		store:   s,
		prefs:   p,
		log:     logger,
		styles:  styles.NewStyles(),
		keys:    keys.DefaultKeyMap(),
		now:     time.Now,
		mode:    calendar.Week,
		preview: map[string]models.Schedule{},
	}
	v.anchor = v.now()
	v.engine = calendar.New(s, calendar.Geometry{}, logger)
	v.layout()
	return v
}

func (v *CalendarView) Init() tea.Cmd {
	v.layout()
	return nil
}

// Engine exposes the gesture engine, mainly for tests
func (v *CalendarView) Engine() *calendar.Engine {
	return v.engine
}

func (v *CalendarView) gridRows() int {
	return max(v.height-calGridTop-footerLines, 1)
}

func (v *CalendarView) columnWidth(days int) float64 {
	return float64(max((v.width-calGutter-calTray)/max(days, 1), 6))
}

// layout recomputes the grid placement from the window, the zoom and the scroll
func (v *CalendarView) layout() {
	p := v.prefs.Prefs().Normalize()
	days := calendar.DaysFor(v.mode, v.anchor)
	colW := v.columnWidth(len(days))

	from, to := p.VisibleHours()
	rowsPerHour := p.PixelsPerHour / calUnit
	total := int(math.Ceil(float64(to-from) * rowsPerHour))
	if !v.placed && v.height > 0 {
		v.scroll = int(float64(max(p.WorkStartHour-from, 0)) * rowsPerHour)
		v.placed = true
	}
	v.scroll = clamp(v.scroll, 0, max(total-v.gridRows(), 0))

	origin := calendar.Point{X: calGutter, Y: float64(calGridTop-v.scroll) * calUnit}
	allDay := calendar.Rect{X: calGutter, Y: calAllDay * calUnit, W: colW * float64(len(days)), H: calUnit}
	v.engine.SetGeometry(calendar.NewGeometry(p, days, origin, colW, allDay))
}

func (v *CalendarView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.layout()
		return v, nil

	case calLongPress:
		return v, v.apply(v.engine.Handle(calendar.Event{Kind: calendar.LongPress, Pointer: msg.pointer, Token: msg.token}))

	case calCommitted:
		v.engine.Handle(calendar.Event{Kind: calendar.Committed, TaskID: msg.taskID, Gesture: msg.kind})
		return v, send(CommitDone{Op: msg.op, Err: msg.err})

	case tea.MouseMsg:
		return v, v.updateMouse(msg)

	case tea.KeyMsg:
		return v, v.updateKeys(msg)
	}
	return v, nil
}

func (v *CalendarView) apply(effects []calendar.Effect) tea.Cmd {
	var cmds []tea.Cmd
	for _, eff := range effects {
		switch e := eff.(type) {
		case calendar.Open:
			cmds = append(cmds, send(OpenTask{TaskID: e.TaskID}))
		case calendar.ArmLongPress:
			cmds = append(cmds, tea.Tick(e.After, func(time.Time) tea.Msg {
				return calLongPress{pointer: e.Pointer, token: e.Token}
			}))
		case calendar.Preview:
			v.preview[e.TaskID] = e.Schedule
		case calendar.ClearPreview:
			delete(v.preview, e.TaskID)
		case calendar.Reschedule:
			cmds = append(cmds, v.commitGesture(v.store.Reschedule(e.TaskID, e.Schedule), e.TaskID, calendar.MoveGesture))
		case calendar.Resize:
			var p *store.Pending
			if e.Schedule.EndDate != nil && e.Schedule.EndTime != nil {
				p = v.store.ResizeTask(e.TaskID, *e.Schedule.EndDate, *e.Schedule.EndTime)
			}
			cmds = append(cmds, v.commitGesture(p, e.TaskID, calendar.ResizeGesture))
		case calendar.PromptCreate:
			cmds = append(cmds, send(NewTask{Defaults: store.NewTask{
				Schedule: models.TimedSchedule(e.Date, e.Hour*60, models.DefaultMinutes),
			}}))
		case calendar.SetZoom:
			p := v.prefs.Prefs()
			p.PixelsPerHour = e.PixelsPerHour
			v.prefs.Set(context.Background(), p)
			v.layout()
		}
	}
	return tea.Batch(cmds...)
}

// commitGesture sends p and then releases the gesture. A change the store
// rejected releases it right away.
func (v *CalendarView) commitGesture(p *store.Pending, id string, kind calendar.GestureKind) tea.Cmd {
	if p == nil {
		v.engine.Handle(calendar.Event{Kind: calendar.Committed, TaskID: id, Gesture: kind})
		return nil
	}
	return func() tea.Msg {
		err := p.Commit(context.Background())
		return calCommitted{taskID: id, kind: kind, op: p.Op(), err: err}
	}
}

func (v *CalendarView) bodyWidth() int {
	g := v.engine.Geometry()
	return calGutter + int(g.ColumnWidth)*len(g.Days)
}

func (v *CalendarView) updateMouse(msg tea.MouseMsg) tea.Cmd {
	pos := calendar.Point{X: float64(msg.X) + 0.5, Y: (float64(msg.Y) + 0.5) * calUnit}

	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		notches := 1.0
		if msg.Button == tea.MouseButtonWheelDown {
			notches = -1
		}
		if effects := v.engine.Wheel(notches, msg.Ctrl || msg.Alt); effects != nil {
			return v.apply(effects)
		}
		v.scroll -= int(notches)
		v.layout()
		return nil
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || msg.Y < calAllDay {
			return nil
		}
		if msg.X >= v.bodyWidth() {
			if i := msg.Y - calAllDay; i >= 0 {
				if tray := v.store.Unscheduled(); i < len(tray) {
					v.trayDrag = tray[i].ID
					v.trayCursor = i
				}
			}
			return nil
		}
		id, handle := v.taskAt(msg.X, msg.Y)
		return v.apply(v.engine.Handle(calendar.Event{Kind: calendar.Down, Pos: pos, At: v.now(), TaskID: id, Handle: handle}))

	case tea.MouseActionMotion:
		if v.trayDrag != "" {
			return nil
		}
		return v.apply(v.engine.Handle(calendar.Event{Kind: calendar.Move, Pos: pos, At: v.now()}))

	case tea.MouseActionRelease:
		if id := v.trayDrag; id != "" {
			v.trayDrag = ""
			return v.apply(v.engine.Handle(calendar.Event{Kind: calendar.Drop, Pos: pos, At: v.now(), TaskID: id}))
		}
		return v.apply(v.engine.Handle(calendar.Event{Kind: calendar.Up, Pos: pos, At: v.now()}))
	}
	return nil
}

// rowSpan returns the minutes covered by grid row r counted from the top of
// the visible window
func (v *CalendarView) rowSpan(g calendar.Geometry, r int) (from, to float64) {
	perRow := 60 * calUnit / g.PixelsPerHour
	from = float64(g.StartHour*60) + float64(r+v.scroll)*perRow
	return from, from + perRow
}

func overlapsRow(iv calendar.Interval, from, to float64) bool {
	return float64(iv.Start) < to && float64(iv.End) > from
}

// lastRow reports whether the row holds the end of iv, where the resize handle sits
func lastRow(iv calendar.Interval, from, to float64) bool {
	return float64(iv.End) > from && float64(iv.End) <= to
}

// taskAt finds the task drawn at a terminal cell and whether the cell is its resize handle
func (v *CalendarView) taskAt(x, y int) (string, bool) {
	g := v.engine.Geometry()
	px := float64(x) + 0.5
	i, ok := g.DayAt(px)
	if !ok {
		return "", false
	}
	date := g.Days[i]
	inner := g.ColumnWidth - 1
	frac := (px - g.XFor(i) - 1) / inner

	tasks := v.store.Scheduled(date, date)
	if y == calAllDay {
		var allDay []models.Task
		for _, t := range tasks {
			if t.IsAllDay() {
				allDay = append(allDay, t)
			}
		}
		if len(allDay) == 0 || frac < 0 {
			return "", false
		}
		return allDay[min(int(frac*float64(len(allDay))), len(allDay)-1)].ID, false
	}
	if y < calGridTop {
		return "", false
	}
	from, to := v.rowSpan(g, y-calGridTop)
	events := calendar.Intervals(tasks, date)
	slots := calendar.Layout(events)
	for _, iv := range events {
		if !overlapsRow(iv, from, to) {
			continue
		}
		s := slots[iv.ID]
		if pct := frac * 100; pct >= s.Left && pct < s.Left+s.Width {
			return iv.ID, lastRow(iv, from, to)
		}
	}
	return "", false
}

func (v *CalendarView) shift(days int) {
	v.anchor = v.anchor.AddDate(0, 0, days)
	v.layout()
}

func (v *CalendarView) updateKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Quit):
		return send(Quit{})

	case key.Matches(msg, v.keys.Board), key.Matches(msg, v.keys.Back):
		return send(Navigate{To: PageBoard})

	case key.Matches(msg, v.keys.Tab):
		v.trayFocus = !v.trayFocus

	case key.Matches(msg, v.keys.Mode):
		switch v.mode {
		case calendar.Day:
			v.mode = calendar.ThreeDay
		case calendar.ThreeDay:
			v.mode = calendar.Week
		default:
			v.mode = calendar.Day
		}
		v.layout()

	case key.Matches(msg, v.keys.Left):
		v.shift(-int(v.mode))

	case key.Matches(msg, v.keys.Right):
		v.shift(int(v.mode))

	case key.Matches(msg, v.keys.Today):
		v.anchor = v.now()
		v.layout()

	case key.Matches(msg, v.keys.ZoomIn):
		return v.apply(v.engine.Wheel(1, true))

	case key.Matches(msg, v.keys.ZoomOut):
		return v.apply(v.engine.Wheel(-1, true))

	case key.Matches(msg, v.keys.Night):
		p := v.prefs.Prefs()
		p.HideNightHours = !p.HideNightHours
		v.prefs.Set(context.Background(), p)
		v.placed = false
		v.layout()

	case key.Matches(msg, v.keys.Up):
		if v.trayFocus {
			v.trayCursor = max(v.trayCursor-1, 0)
			return nil
		}
		v.scroll--
		v.layout()

	case key.Matches(msg, v.keys.Down):
		if v.trayFocus {
			v.trayCursor = min(v.trayCursor+1, max(len(v.store.Unscheduled())-1, 0))
			return nil
		}
		v.scroll++
		v.layout()

	case key.Matches(msg, v.keys.Schedule):
		tray := v.store.Unscheduled()
		if !v.trayFocus || v.trayCursor >= len(tray) {
			return nil
		}
		start := v.prefs.Prefs().Normalize().WorkStartHour * 60
		sched := models.TimedSchedule(models.FormatDate(v.anchor), start, models.DefaultMinutes)
		return commit(v.store.Reschedule(tray[v.trayCursor].ID, sched))

	case key.Matches(msg, v.keys.New):
		p := v.prefs.Prefs().Normalize()
		return v.apply([]calendar.Effect{calendar.PromptCreate{Date: models.FormatDate(v.anchor), Hour: p.WorkStartHour}})

	case key.Matches(msg, v.keys.Enter), key.Matches(msg, v.keys.Edit):
		if v.trayFocus {
			if tray := v.store.Unscheduled(); v.trayCursor < len(tray) {
				return send(OpenTask{TaskID: tray[v.trayCursor].ID})
			}
			return nil
		}
		if id := v.engine.Selected(); id != "" {
			return send(OpenTask{TaskID: id})
		}
	}
	return nil
}

// shown returns the tasks in range with live previews in place of their
// stored schedule
func (v *CalendarView) shown(g calendar.Geometry) ([]models.Task, map[string]bool) {
	previewed := map[string]bool{}
	if len(g.Days) == 0 {
		return nil, previewed
	}
	tasks := v.store.Scheduled(g.Days[0], g.Days[len(g.Days)-1])
	for id, sched := range v.preview {
		t, ok := v.store.Task(id)
		if !ok {
			continue
		}
		t.DueDate, t.DueTime, t.EndDate, t.EndTime = sched.DueDate, sched.DueTime, sched.EndDate, sched.EndTime
		previewed[id] = true
		replaced := false
		for i := range tasks {
			if tasks[i].ID == id {
				tasks[i], replaced = t, true
			}
		}
		if !replaced {
			tasks = append(tasks, t)
		}
	}
	return tasks, previewed
}

// View renders the view
func (v *CalendarView) View() string {
	g := v.engine.Geometry()
	tasks, previewed := v.shown(g)

	lines := []string{v.renderTitle(g), v.renderDayHeaders(g), v.renderAllDay(g, tasks, previewed)}
	for r := 0; r < v.gridRows(); r++ {
		lines = append(lines, v.renderRow(g, r, tasks, previewed))
	}
	body := lipgloss.NewStyle().Width(v.bodyWidth()).Render(strings.Join(lines, "\n"))

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, body, v.renderTray()),
		v.renderHelp(),
	)
}

func (v *CalendarView) renderTitle(g calendar.Geometry) string {
	s := v.styles
	if len(g.Days) == 0 {
		return ""
	}
	first, _ := models.ParseDate(g.Days[0])
	last, _ := models.ParseDate(g.Days[len(g.Days)-1])
	span := first.Format("Mon Jan 2")
	if len(g.Days) > 1 {
		span += " - " + last.Format("Mon Jan 2")
	}
	return " " + s.Title.Render(span+", "+last.Format("2006")) +
		s.TitleMuted.Render(fmt.Sprintf("  %s · %.0f/h", v.mode, g.PixelsPerHour))
}

func (v *CalendarView) renderDayHeaders(g calendar.Geometry) string {
	s := v.styles
	today := models.FormatDate(v.now())
	colW := int(g.ColumnWidth)
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", calGutter))
	for _, date := range g.Days {
		d, _ := models.ParseDate(date)
		label := truncate(" "+d.Format("Mon 2"), colW)
		style := s.DayHeader
		if date == today {
			style = s.DayToday
		}
		b.WriteString(style.Width(colW).Render(label))
	}
	return b.String()
}

func (v *CalendarView) eventStyle(id string, previewed map[string]bool) *lipgloss.Style {
	switch {
	case previewed[id]:
		return &v.styles.EventPreview
	case id == v.engine.Selected():
		return &v.styles.EventSelected
	default:
		return &v.styles.Event
	}
}

func (v *CalendarView) renderAllDay(g calendar.Geometry, tasks []models.Task, previewed map[string]bool) string {
	s := v.styles
	colW := int(g.ColumnWidth)
	var b strings.Builder
	b.WriteString(s.HourLabel.Width(calGutter).Render("all"))
	for _, date := range g.Days {
		var day []models.Task
		for _, t := range tasks {
			if t.IsAllDay() && *t.DueDate == date {
				day = append(day, t)
			}
		}
		cells := blankColumn(colW, &s.GridLine)
		if n := len(day); n > 0 {
			w := max((colW-1)/n, 1)
			for k, t := range day {
				fill(cells, 1+k*w, w, " "+t.Title, v.eventStyle(t.ID, previewed))
			}
		}
		b.WriteString(renderCells(cells))
	}
	return b.String()
}

func (v *CalendarView) renderRow(g calendar.Geometry, r int, tasks []models.Task, previewed map[string]bool) string {
	s := v.styles
	from, to := v.rowSpan(g, r)
	if from >= float64(g.EndHour*60) {
		return ""
	}

	// label the row holding the top of an hour
	label := ""
	if hour := math.Ceil(from/60) * 60; hour < to {
		label = models.FormatClock(int(hour))
	}

	colW := int(g.ColumnWidth)
	var b strings.Builder
	b.WriteString(s.HourLabel.Width(calGutter).Render(label))
	for _, date := range g.Days {
		cells := blankColumn(colW, &s.GridLine)
		events := calendar.Intervals(tasks, date)
		slots := calendar.Layout(events)
		for _, iv := range events {
			if !overlapsRow(iv, from, to) {
				continue
			}
			slot := slots[iv.ID]
			left := 1 + int(slot.Left/100*float64(colW-1))
			width := max(int(slot.Width/100*float64(colW-1)), 1)
			text := ""
			switch {
			case float64(iv.Start) >= from:
				text = " " + models.FormatClock(iv.Start) + " " + titleOf(tasks, iv.ID)
			case lastRow(iv, from, to) && iv.ID == v.engine.Selected():
				text = strings.Repeat("═", width)
			}
			fill(cells, left, width, text, v.eventStyle(iv.ID, previewed))
		}
		b.WriteString(renderCells(cells))
	}
	return b.String()
}

func titleOf(tasks []models.Task, id string) string {
	for _, t := range tasks {
		if t.ID == id {
			return t.Title
		}
	}
	return ""
}

// blankColumn is an empty day column with its left rule
func blankColumn(width int, rule *lipgloss.Style) []cell {
	cells := make([]cell, width)
	for i := range cells {
		cells[i] = cell{ch: ' '}
	}
	if width > 0 {
		cells[0] = cell{ch: '│', style: rule}
	}
	return cells
}

// fill writes text into cells[left:left+width], padding with spaces
func fill(cells []cell, left, width int, text string, style *lipgloss.Style) {
	r := []rune(truncate(text, width))
	for i := 0; i < width && left+i < len(cells); i++ {
		ch := ' '
		if i < len(r) {
			ch = r[i]
		}
		cells[left+i] = cell{ch: ch, style: style}
	}
}

// renderCells joins runs of equally styled cells
func renderCells(cells []cell) string {
	var b strings.Builder
	for i := 0; i < len(cells); {
		j := i
		var run []rune
		for j < len(cells) && cells[j].style == cells[i].style {
			run = append(run, cells[j].ch)
			j++
		}
		if cells[i].style == nil {
			b.WriteString(string(run))
		} else {
			b.WriteString(cells[i].style.Render(string(run)))
		}
		i = j
	}
	return b.String()
}

func (v *CalendarView) renderTray() string {
	s := v.styles
	lines := []string{s.SidebarHeading.Render("Unscheduled"), ""}
	for i, t := range v.store.Unscheduled() {
		if i >= v.gridRows()+1 {
			break
		}
		style := s.SidebarItem
		switch {
		case t.ID == v.trayDrag:
			style = s.DropTarget.Padding(0, 1)
		case v.trayFocus && i == v.trayCursor:
			style = s.SidebarSelected
		}
		lines = append(lines, style.Width(calTray).Render(truncate(t.Title, calTray-2)))
	}
	return strings.Join(lines, "\n")
}

func (v *CalendarView) renderHelp() string {
	s := v.styles
	if v.width > 0 && v.width < 60 {
		return s.Help.Render(s.HelpKey.Render("B") + " board")
	}
	if v.trayFocus {
		return s.Help.Render(fmt.Sprintf("%s schedule • %s open • %s grid • drag a task onto the grid",
			s.HelpKey.Render("s"), s.HelpKey.Render("↵"), s.HelpKey.Render("tab")))
	}
	return s.Help.Render(fmt.Sprintf("%s days • %s move • %s today • %s zoom • %s work hours • %s new • %s tray • %s board • %s quit",
		s.HelpKey.Render("v"), s.HelpKey.Render("←→"), s.HelpKey.Render("."), s.HelpKey.Render("+/-"),
		s.HelpKey.Render("w"), s.HelpKey.Render("n"), s.HelpKey.Render("tab"), s.HelpKey.Render("B"),
		s.HelpKey.Render("q")))
}
