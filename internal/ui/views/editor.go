package views

import (
	"errors"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/pulse/internal/models"
	"github.com/tgienger/pulse/internal/store"
	"github.com/tgienger/pulse/internal/ui/keys"
	"github.com/tgienger/pulse/internal/ui/styles"
)

const (
	fieldTitle = iota
	fieldDesc
	fieldPriority
	fieldDate
	fieldStart
	fieldEnd
	fieldTags
	fieldSave
	fieldCount
)

var priorities = []models.Priority{models.PriorityLow, models.PriorityMedium, models.PriorityHigh}

// TaskEditor is the create and edit form shared by the board and the calendar
type TaskEditor struct {
	store  *store.Store
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	active   bool
	original models.Task // zero when creating
	defaults store.NewTask

	title    textinput.Model
	desc     textarea.Model
	priority models.Priority
	date     textinput.Model
	start    textinput.Model
	end      textinput.Model

	tags      []models.Tag
	selected  []string
	tagCursor int
	focusIdx  int
	err       string
}

func NewTaskEditor(s *store.Store) *TaskEditor {
	title := textinput.New()
	title.Placeholder = "Task title"
	title.CharLimit = 200

	desc := textarea.New()
	desc.Placeholder = "Description"
	desc.CharLimit = 2000
	desc.SetWidth(50)
	desc.SetHeight(3)
	desc.ShowLineNumbers = false

	date := textinput.New()
	date.Placeholder = "YYYY-MM-DD"
	date.CharLimit = 10

	start := textinput.New()
	start.Placeholder = "HH:MM"
	start.CharLimit = 5

	end := textinput.New()
	end.Placeholder = "HH:MM"
	end.CharLimit = 5

	return &TaskEditor{
		store:  s,
		styles: styles.NewStyles(),
		keys:   keys.DefaultKeyMap(),
		title:  title,
		desc:   desc,
		date:   date,
		start:  start,
		end:    end,
	}
}

// Active reports whether the form is showing
func (e *TaskEditor) Active() bool {
	return e.active
}

// Open starts editing an existing task
func (e *TaskEditor) Open(id string) bool {
	t, ok := e.store.Task(id)
	if !ok {
		return false
	}
	e.reset()
	e.original = t
	e.title.SetValue(t.Title)
	if t.Description != nil {
		e.desc.SetValue(*t.Description)
	}
	e.priority = t.Priority
	if t.DueDate != nil {
		e.date.SetValue(*t.DueDate)
	}
	e.start.SetValue(clock(t.DueTime))
	e.end.SetValue(clock(t.EndTime))
	for _, tag := range t.Tags {
		e.selected = append(e.selected, tag.ID)
	}
	return true
}

// OpenNew starts a new task with the given defaults
func (e *TaskEditor) OpenNew(d store.NewTask) {
	e.reset()
	e.defaults = d
	e.title.SetValue(d.Title)
	e.priority = d.Priority
	if d.Schedule.DueDate != nil {
		e.date.SetValue(*d.Schedule.DueDate)
	}
	e.start.SetValue(clock(d.Schedule.DueTime))
	e.end.SetValue(clock(d.Schedule.EndTime))
}

func (e *TaskEditor) reset() {
	e.active = true
	e.original = models.Task{}
	e.defaults = store.NewTask{}
	e.title.Reset()
	e.desc.Reset()
	e.date.Reset()
	e.start.Reset()
	e.end.Reset()
	e.priority = models.PriorityMedium
	e.tags = e.store.Tags()
	e.selected = nil
	e.tagCursor = 0
	e.focusIdx = fieldTitle
	e.err = ""
	e.updateFocus()
}

// clock renders a stored time as HH:MM
func clock(s *string) string {
	if s == nil {
		return ""
	}
	m, err := models.ParseClock(*s)
	if err != nil {
		return *s
	}
	return models.FormatClock(m)
}

func (e *TaskEditor) Init() tea.Cmd {
	return textinput.Blink
}

func (e *TaskEditor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		e.width = msg.Width
		e.height = msg.Height
		inputWidth := clamp(styles.ContentWidth(e.width)-10, 20, 50)
		e.desc.SetWidth(inputWidth)
		return e, nil

	case tea.KeyMsg:
		if !e.active {
			return e, nil
		}
		return e.updateKeys(msg)
	}
	return e, nil
}

func (e *TaskEditor) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, e.keys.Back):
		e.active = false
		return e, send(EditorClosed{})

	case msg.String() == "ctrl+s":
		return e, e.save()

	case key.Matches(msg, e.keys.Tab):
		e.focusIdx = (e.focusIdx + 1) % fieldCount
		e.updateFocus()
		return e, nil

	case msg.String() == "shift+tab":
		e.focusIdx = (e.focusIdx + fieldCount - 1) % fieldCount
		e.updateFocus()
		return e, nil
	}

	switch e.focusIdx {
	case fieldPriority:
		switch msg.String() {
		case "left", "h":
			e.cyclePriority(-1)
		case "right", "l", " ", "enter":
			e.cyclePriority(1)
		}
		return e, nil

	case fieldTags:
		switch {
		case key.Matches(msg, e.keys.Up):
			e.tagCursor = max(e.tagCursor-1, 0)
		case key.Matches(msg, e.keys.Down):
			e.tagCursor = min(e.tagCursor+1, max(len(e.tags)-1, 0))
		case msg.String() == " ", key.Matches(msg, e.keys.Enter):
			e.toggleTag()
		}
		return e, nil

	case fieldSave:
		if key.Matches(msg, e.keys.Enter) {
			return e, e.save()
		}
		return e, nil
	}

	// Enter on single line fields moves to the next one; the description keeps its newlines
	if key.Matches(msg, e.keys.Enter) && e.focusIdx != fieldDesc {
		e.focusIdx++
		e.updateFocus()
		return e, nil
	}

	var cmd tea.Cmd
	switch e.focusIdx {
	case fieldTitle:
		e.title, cmd = e.title.Update(msg)
	case fieldDesc:
		e.desc, cmd = e.desc.Update(msg)
	case fieldDate:
		e.date, cmd = e.date.Update(msg)
	case fieldStart:
		e.start, cmd = e.start.Update(msg)
	case fieldEnd:
		e.end, cmd = e.end.Update(msg)
	}
	return e, cmd
}

func (e *TaskEditor) cyclePriority(dir int) {
	i := slices.Index(priorities, e.priority)
	if i < 0 {
		i = 1
	}
	e.priority = priorities[(i+dir+len(priorities))%len(priorities)]
}

func (e *TaskEditor) toggleTag() {
	if e.tagCursor >= len(e.tags) {
		return
	}
	id := e.tags[e.tagCursor].ID
	if i := slices.Index(e.selected, id); i >= 0 {
		e.selected = slices.Delete(e.selected, i, i+1)
		return
	}
	e.selected = append(e.selected, id)
}

func (e *TaskEditor) updateFocus() {
	e.title.Blur()
	e.desc.Blur()
	e.date.Blur()
	e.start.Blur()
	e.end.Blur()

	switch e.focusIdx {
	case fieldTitle:
		e.title.Focus()
	case fieldDesc:
		e.desc.Focus()
	case fieldDate:
		e.date.Focus()
	case fieldStart:
		e.start.Focus()
	case fieldEnd:
		e.end.Focus()
	}
}

// Schedule reads the date and time fields. A date alone is all-day; a start
// without an end, or an end before the start, lasts an hour.
func (e *TaskEditor) Schedule() (models.Schedule, error) {
	date := strings.TrimSpace(e.date.Value())
	start := strings.TrimSpace(e.start.Value())
	end := strings.TrimSpace(e.end.Value())
	if date == "" {
		if start != "" || end != "" {
			return models.Schedule{}, errors.New("A time needs a date.")
		}
		return models.Schedule{}, nil
	}
	if _, err := models.ParseDate(date); err != nil {
		return models.Schedule{}, errors.New("Dates look like 2026-10-16.")
	}
	if start == "" {
		return models.AllDaySchedule(date), nil
	}
	from, err := models.ParseClock(start)
	if err != nil {
		return models.Schedule{}, errors.New("Times look like 09:30.")
	}
	duration := models.DefaultMinutes
	if end != "" {
		to, err := models.ParseClock(end)
		if err != nil {
			return models.Schedule{}, errors.New("Times look like 09:30.")
		}
		if to > from {
			duration = to - from
		}
	}
	return models.TimedSchedule(date, from, duration), nil
}

func (e *TaskEditor) save() tea.Cmd {
	title := strings.TrimSpace(e.title.Value())
	if title == "" {
		e.err = "Give the task a title."
		return nil
	}
	sched, err := e.Schedule()
	if err != nil {
		e.err = err.Error()
		return nil
	}
	desc := strings.TrimSpace(e.desc.Value())

	var pending []*store.Pending
	if e.original.ID == "" {
		in := e.defaults
		in.Title, in.Description, in.Priority, in.Schedule = title, desc, e.priority, sched
		t, p := e.store.CreateTask(in)
		pending = append(pending, p)
		if p != nil && len(e.selected) > 0 {
			pending = append(pending, e.store.SetTaskTags(t.ID, e.selected))
		}
	} else {
		id := e.original.ID
		var patch store.TaskPatch
		if title != e.original.Title {
			patch.Title = &title
		}
		if old := e.original.Description; (old == nil && desc != "") || (old != nil && *old != desc) {
			patch.Description = &desc
		}
		if e.priority != e.original.Priority {
			patch.Priority = &e.priority
		}
		pending = append(pending,
			e.store.UpdateTask(id, patch),
			e.store.Reschedule(id, sched),
			e.store.SetTaskTags(id, e.selected),
		)
	}
	e.active = false
	return tea.Batch(commit(pending...), send(EditorClosed{}))
}

func (e *TaskEditor) View() string {
	s := e.styles
	contentWidth := styles.ContentWidth(e.width)

	formTitle := "New Task"
	if e.original.ID != "" {
		formTitle = "Edit Task"
	}

	fieldStyle := func(i int) lipgloss.Style {
		if e.focusIdx == i {
			return s.InputFocused
		}
		return s.Input
	}
	btnStyle := s.Button
	if e.focusIdx == fieldSave {
		btnStyle = s.ButtonFocused
	}

	inputWidth := clamp(contentWidth-6, 20, 50)

	prio := lipgloss.NewStyle().Foreground(styles.PriorityColor(e.priority)).Render(string(e.priority))
	when := lipgloss.JoinHorizontal(lipgloss.Top,
		fieldStyle(fieldDate).Width(14).Render(e.date.View()), " ",
		fieldStyle(fieldStart).Width(9).Render(e.start.View()), " ",
		fieldStyle(fieldEnd).Width(9).Render(e.end.View()),
	)

	errLine := ""
	if e.err != "" {
		errLine = lipgloss.NewStyle().Foreground(styles.Current.Error).Render(e.err)
	}

	form := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(formTitle),
		"",
		"Title:",
		fieldStyle(fieldTitle).Width(inputWidth).Render(e.title.View()),
		"",
		"Description:",
		fieldStyle(fieldDesc).Render(e.desc.View()),
		"",
		"Priority:",
		fieldStyle(fieldPriority).Width(14).Render("◂ "+prio+" ▸"),
		"",
		"Date / start / end:",
		when,
		"",
		"Tags:",
		e.renderTagSelector(fieldStyle(fieldTags), inputWidth),
		"",
		btnStyle.Render(" Save "),
		errLine,
		s.TitleMuted.Render("Tab: next • ←→: priority • Space: toggle tag • Ctrl+S: save • Esc: cancel"),
	)

	centered := lipgloss.Place(contentWidth, e.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, e.width, e.height)
}

func (e *TaskEditor) renderTagSelector(containerStyle lipgloss.Style, width int) string {
	s := e.styles
	if len(e.tags) == 0 {
		return containerStyle.Width(width).Render(s.TitleMuted.Render("No tags yet"))
	}

	var items []string
	for i, tag := range e.tags {
		checkbox := "[ ]"
		if slices.Contains(e.selected, tag.ID) {
			checkbox = "[x]"
		}
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color(tag.Color)).Render("●")
		text := checkbox + " " + dot + " " + tag.Name
		if e.focusIdx == fieldTags && i == e.tagCursor {
			items = append(items, s.ListSelected.Render(text))
		} else {
			items = append(items, s.ListItem.Render(text))
		}
	}
	return containerStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, items...))
}
