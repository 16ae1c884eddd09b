package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"

	"github.com/tgienger/pulse/internal/board"
	"github.com/tgienger/pulse/internal/models"
	"github.com/tgienger/pulse/internal/store"
	"github.com/tgienger/pulse/internal/ui/keys"
	"github.com/tgienger/pulse/internal/ui/styles"
)

const (
	// boardUnit is the number of engine units per terminal cell
	boardUnit = 10.0

	headerLines = 2
	rowLines    = 3 // title, details, gap
	footerLines = 1
)

var tagPalette = []string{"#7aa2f7", "#bb9af7", "#9ece6a", "#e0af68", "#f7768e", "#7dcfff"}

// FocusArea represents which part of the board has focus
type FocusArea int

const (
	FocusTaskList FocusArea = iota
	FocusSidebar
	FocusSearchInput
)

type entryKind int

const (
	entryView entryKind = iota
	entryInbox
	entryLists // the root of the list tree; lists dropped here leave their folder
	entryFolder
	entryList
	entryLabel
	entryTag
)

type sidebarEntry struct {
	kind  entryKind
	label string
	id    string
	view  store.View
	depth int
}

type boardMode int

const (
	modeNormal boardMode = iota
	modeHelp
	modeConfirm
	modeMove
	modeTags
	modeName
)

type boardLongPress struct {
	pointer, token int
}

// BoardView is the sidebar of lists and folders beside the task list
type BoardView struct {
	store  *store.Store
	engine *board.Engine
	log    log.FieldLogger
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	focus   FocusArea
	mode    boardMode
	rows    []store.VisibleTask
	entries []sidebarEntry
	cursor  int
	scroll  int
	side    int
	search  textinput.Model

	// Mouse drag state
	hover   *board.Hover
	swipe   map[string]float64
	pressed int // sidebar entry under the last press, -1 for none
	dragged bool

	// Dialogs
	confirm    sidebarEntry // entryView names a task
	pickCursor int
	name       textinput.Model
	naming     sidebarEntry // id set when renaming
}

func NewBoardView(s *store.Store, logger log.FieldLogger) *BoardView {
	if logger == nil {
		logger = log.StandardLogger()
	}
	search := textinput.New()
	search.Placeholder = "Search..."
	search.CharLimit = 100
	search.Prompt = "/ "

	name := textinput.New()
	name.CharLimit = 100

	return &BoardView{
		store:   s,
		engine:  board.New(s, logger),
		log:     logger,
		styles:  styles.NewStyles(),
		keys:    keys.DefaultKeyMap(),
		search:  search,
		name:    name,
		swipe:   map[string]float64{},
		pressed: -1,
	}
}

func (v *BoardView) Init() tea.Cmd {
	v.refresh()
	return nil
}

// Capturing reports whether keys are going into a text field
func (v *BoardView) Capturing() bool {
	return v.focus == FocusSearchInput || v.mode == modeName
}

// refresh rereads the rows and the sidebar from the store
func (v *BoardView) refresh() {
	v.rows = v.store.VisibleTasks()
	v.cursor = clamp(v.cursor, 0, max(len(v.rows)-1, 0))
	v.entries = v.sidebar()
	v.side = clamp(v.side, 0, max(len(v.entries)-1, 0))
	v.ensureVisible()
}

func (v *BoardView) sidebar() []sidebarEntry {
	out := []sidebarEntry{
		{kind: entryView, label: "All", view: store.View{Kind: store.ViewAll}},
		{kind: entryInbox, label: "Inbox", view: store.View{Kind: store.ViewInbox}},
		{kind: entryView, label: "Today", view: store.View{Kind: store.ViewToday}},
		{kind: entryView, label: "Upcoming", view: store.View{Kind: store.ViewUpcoming}},
		{kind: entryLists, label: "Lists"},
	}
	lists := v.store.Lists()
	for _, f := range v.store.Folders() {
		out = append(out, sidebarEntry{kind: entryFolder, label: f.Name, id: f.ID, view: store.View{Kind: store.ViewFolder, ID: f.ID}})
		for _, l := range lists {
			if l.FolderID != nil && *l.FolderID == f.ID {
				out = append(out, sidebarEntry{kind: entryList, label: l.Name, id: l.ID, view: store.View{Kind: store.ViewList, ID: l.ID}, depth: 1})
			}
		}
	}
	for _, l := range lists {
		if l.FolderID == nil {
			out = append(out, sidebarEntry{kind: entryList, label: l.Name, id: l.ID, view: store.View{Kind: store.ViewList, ID: l.ID}})
		}
	}
	if tags := v.store.Tags(); len(tags) > 0 {
		out = append(out, sidebarEntry{kind: entryLabel, label: "Tags"})
		for _, t := range tags {
			out = append(out, sidebarEntry{kind: entryTag, label: t.Name, id: t.ID, view: store.View{Kind: store.ViewTag, ID: t.ID}})
		}
	}
	return out
}

func (v *BoardView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	v.refresh()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.ensureVisible()
		return v, nil

	case boardLongPress:
		return v, v.apply(v.engine.Handle(board.Event{Kind: board.LongPress, Pointer: msg.pointer, Token: msg.token}))

	case tea.MouseMsg:
		if v.mode != modeNormal {
			return v, nil
		}
		return v, v.updateMouse(msg)

	case tea.KeyMsg:
		switch v.mode {
		case modeHelp:
			v.mode = modeNormal
			return v, nil
		case modeConfirm:
			return v, v.updateConfirm(msg)
		case modeMove:
			return v, v.updateMove(msg)
		case modeTags:
			return v, v.updateTags(msg)
		case modeName:
			return v, v.updateName(msg)
		}
		switch v.focus {
		case FocusSearchInput:
			return v, v.updateSearch(msg)
		case FocusSidebar:
			return v, v.updateSidebar(msg)
		}
		return v, v.updateTasks(msg)
	}
	return v, nil
}

func (v *BoardView) current() (store.VisibleTask, bool) {
	if v.cursor < 0 || v.cursor >= len(v.rows) {
		return store.VisibleTask{}, false
	}
	return v.rows[v.cursor], true
}

func (v *BoardView) rowIndex(id string) int {
	for i, r := range v.rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// apply performs the effects of a gesture or a key. Store changes go
// through board.Apply and are committed in the background.
func (v *BoardView) apply(effects []board.Effect) tea.Cmd {
	var cmds []tea.Cmd
	for _, eff := range effects {
		switch e := eff.(type) {
		case board.Select:
			if i := v.rowIndex(e.TaskID); i >= 0 {
				v.cursor = i
				v.focus = FocusTaskList
			}
		case board.ArmLongPress:
			cmds = append(cmds, tea.Tick(e.After, func(time.Time) tea.Msg {
				return boardLongPress{pointer: e.Pointer, token: e.Token}
			}))
		case board.Hover:
			v.hover = &e
			v.dragged = true
		case board.ClearHover:
			v.hover = nil
		case board.SwipeOffset:
			v.swipe[e.TaskID] = e.DX
		case board.Revert:
			delete(v.swipe, e.TaskID)
		case board.ConfirmDelete:
			if t, ok := v.store.Task(e.TaskID); ok {
				v.confirm = sidebarEntry{kind: entryView, id: t.ID, label: t.Title}
				v.mode = modeConfirm
			}
		default:
			title := ""
			if t, ok := v.store.Task(taskOf(eff)); ok {
				title = t.Title
			}
			p, completed := board.Apply(v.store, eff)
			if p == nil {
				continue
			}
			v.log.WithField("op", p.Op()).Debug("board.apply")
			cmds = append(cmds, commit(p))
			if completed {
				cmds = append(cmds, send(Celebrate{Title: title}))
			}
		}
	}
	v.refresh()
	return tea.Batch(cmds...)
}

func taskOf(eff board.Effect) string {
	if e, ok := eff.(board.ToggleDone); ok {
		return e.TaskID
	}
	return ""
}

func (v *BoardView) updateMouse(msg tea.MouseMsg) tea.Cmd {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		v.scroll = max(v.scroll-1, 0)
		return nil
	case tea.MouseButtonWheelDown:
		v.scroll = clamp(v.scroll+1, 0, max(len(v.rows)-v.visibleRows(), 0))
		return nil
	}

	pos := board.Point{X: (float64(msg.X) + 0.5) * boardUnit, Y: (float64(msg.Y) + 0.5) * boardUnit}
	over := v.targetAt(msg.X, msg.Y)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return nil
		}
		v.pressed, v.dragged = v.entryAt(msg.X, msg.Y), false
		ev := board.Event{Kind: board.Down, Pos: pos, Over: over}
		switch over.Kind {
		case board.Row:
			ev.Item, ev.ID = board.TaskItem, over.ID
		case board.SidebarList:
			ev.Item, ev.ID = board.ListItem, over.ID
		case board.SidebarFolder:
			ev.Item, ev.ID = board.FolderItem, over.ID
		}
		return v.apply(v.engine.Handle(ev))

	case tea.MouseActionMotion:
		return v.apply(v.engine.Handle(board.Event{Kind: board.Move, Pos: pos, Over: over}))

	case tea.MouseActionRelease:
		effects := v.engine.Handle(board.Event{Kind: board.Up, Pos: pos, Over: over})
		if v.pressed >= 0 && !v.dragged {
			v.side = v.pressed
			v.selectEntry(v.entries[v.pressed])
		}
		v.pressed = -1
		return v.apply(effects)
	}
	return nil
}

func (v *BoardView) entryAt(x, y int) int {
	i := y - headerLines
	if x > styles.SidebarWidth || i < 0 || i >= len(v.entries) {
		return -1
	}
	return i
}

// targetAt maps a terminal cell onto what a drag would drop on
func (v *BoardView) targetAt(x, y int) board.Target {
	if y < headerLines || y >= v.height-footerLines {
		return board.Target{}
	}
	if x <= styles.SidebarWidth {
		i := v.entryAt(x, y)
		if i < 0 {
			return board.Target{}
		}
		e := v.entries[i]
		t := board.Target{ID: e.id, Top: float64(y) * boardUnit, Height: boardUnit}
		switch e.kind {
		case entryInbox:
			t.Kind = board.SidebarInbox
		case entryLists:
			t.Kind = board.SidebarRoot
		case entryFolder:
			t.Kind = board.SidebarFolder
		case entryList:
			t.Kind = board.SidebarList
		default:
			return board.Target{}
		}
		return t
	}
	i := (y-headerLines)/rowLines + v.scroll
	if i < len(v.rows) {
		top := headerLines + (i-v.scroll)*rowLines
		return board.Target{Kind: board.Row, ID: v.rows[i].ID, Top: float64(top) * boardUnit, Height: rowLines * boardUnit}
	}
	return board.Target{Kind: board.Background}
}

func (v *BoardView) updateTasks(msg tea.KeyMsg) tea.Cmd {
	row, ok := v.current()

	switch {
	case key.Matches(msg, v.keys.Quit):
		return send(Quit{})

	case key.Matches(msg, v.keys.Help):
		v.mode = modeHelp

	case key.Matches(msg, v.keys.Tab), msg.String() == "left":
		v.focus = FocusSidebar

	case key.Matches(msg, v.keys.Calendar):
		return send(Navigate{To: PageCalendar})

	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.rows)-1 {
			v.cursor++
			v.ensureVisible()
		}

	case key.Matches(msg, v.keys.Search):
		v.focus = FocusSearchInput
		v.search.Focus()
		return textinput.Blink

	case key.Matches(msg, v.keys.Back):
		if v.search.Value() != "" {
			v.search.Reset()
			v.setSearch("")
		}

	case key.Matches(msg, v.keys.ShowDone):
		view := v.store.View()
		view.ShowDone = !view.ShowDone
		v.store.SetView(view)
		v.cursor, v.scroll = 0, 0
		v.refresh()

	case key.Matches(msg, v.keys.New):
		return send(NewTask{Defaults: v.defaults()})

	case key.Matches(msg, v.keys.NewSub) && ok:
		parent := row.ID
		if row.ParentID != nil {
			parent = *row.ParentID
		}
		return send(NewTask{Defaults: store.NewTask{ParentID: models.Ptr(parent)}})

	case !ok:
		return nil

	case key.Matches(msg, v.keys.Enter), key.Matches(msg, v.keys.Edit):
		return send(OpenTask{TaskID: row.ID})

	case key.Matches(msg, v.keys.Done):
		return v.apply([]board.Effect{board.ToggleDone{TaskID: row.ID}})

	case key.Matches(msg, v.keys.Delete):
		return v.apply([]board.Effect{board.ConfirmDelete{TaskID: row.ID}})

	case key.Matches(msg, v.keys.MoveUp):
		if target, ok := v.sibling(-1); ok {
			cmd := v.apply([]board.Effect{board.Reorder{TaskID: row.ID, TargetID: target, Position: store.Before}})
			v.follow(row.ID)
			return cmd
		}

	case key.Matches(msg, v.keys.MoveDown):
		if target, ok := v.sibling(1); ok {
			cmd := v.apply([]board.Effect{board.Reorder{TaskID: row.ID, TargetID: target, Position: store.After}})
			v.follow(row.ID)
			return cmd
		}

	case key.Matches(msg, v.keys.Indent):
		for i := v.cursor - 1; i >= 0; i-- {
			if v.rows[i].ParentID == nil {
				return v.apply([]board.Effect{board.Reparent{TaskID: row.ID, ParentID: v.rows[i].ID}})
			}
		}

	case key.Matches(msg, v.keys.Outdent):
		return v.apply([]board.Effect{board.RemoveParent{TaskID: row.ID}})

	case key.Matches(msg, v.keys.Move):
		v.mode, v.pickCursor = modeMove, 0

	case key.Matches(msg, v.keys.Tags):
		v.mode, v.pickCursor = modeTags, 0
	}
	return nil
}

// sibling finds the nearest row in dir that shares the current row's parent
func (v *BoardView) sibling(dir int) (string, bool) {
	row, ok := v.current()
	if !ok {
		return "", false
	}
	for i := v.cursor + dir; i >= 0 && i < len(v.rows); i += dir {
		if models.StrEq(v.rows[i].ParentID, row.ParentID) {
			return v.rows[i].ID, true
		}
	}
	return "", false
}

func (v *BoardView) follow(id string) {
	if i := v.rowIndex(id); i >= 0 {
		v.cursor = i
		v.ensureVisible()
	}
}

// defaults fills a new task from the current view
func (v *BoardView) defaults() store.NewTask {
	var in store.NewTask
	view := v.store.View()
	switch view.Kind {
	case store.ViewList:
		in.ListID = models.Ptr(view.ID)
	case store.ViewToday:
		in.Schedule = models.AllDaySchedule(models.FormatDate(v.store.Now()))
	}
	return in
}

func (v *BoardView) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.search.Reset()
		v.search.Blur()
		v.focus = FocusTaskList
		v.setSearch("")
		return nil
	case key.Matches(msg, v.keys.Enter):
		v.search.Blur()
		v.focus = FocusTaskList
		return nil
	}
	var cmd tea.Cmd
	v.search, cmd = v.search.Update(msg)
	v.setSearch(v.search.Value())
	return cmd
}

func (v *BoardView) setSearch(q string) {
	view := v.store.View()
	view.Search = q
	v.store.SetView(view)
	v.cursor, v.scroll = 0, 0
	v.refresh()
}

func (v *BoardView) selectEntry(e sidebarEntry) {
	switch e.kind {
	case entryLists, entryLabel:
		return
	}
	view := v.store.View()
	e.view.ShowDone, e.view.Search = view.ShowDone, view.Search
	v.store.SetView(e.view)
	v.cursor, v.scroll = 0, 0
	v.refresh()
}

func (v *BoardView) updateSidebar(msg tea.KeyMsg) tea.Cmd {
	if len(v.entries) == 0 {
		return nil
	}
	e := v.entries[v.side]

	switch {
	case key.Matches(msg, v.keys.Quit):
		return send(Quit{})

	case key.Matches(msg, v.keys.Help):
		v.mode = modeHelp

	case key.Matches(msg, v.keys.Tab), key.Matches(msg, v.keys.Back), msg.String() == "right":
		v.focus = FocusTaskList

	case key.Matches(msg, v.keys.Calendar):
		return send(Navigate{To: PageCalendar})

	case key.Matches(msg, v.keys.Up):
		v.side = max(v.side-1, 0)

	case key.Matches(msg, v.keys.Down):
		v.side = min(v.side+1, len(v.entries)-1)

	case key.Matches(msg, v.keys.Enter):
		v.selectEntry(e)
		v.focus = FocusTaskList

	case key.Matches(msg, v.keys.New):
		in := sidebarEntry{kind: entryList}
		switch {
		case e.kind == entryFolder:
			in.view.ID = e.id
		case e.kind == entryList && e.depth > 0:
			if l, ok := v.store.List(e.id); ok && l.FolderID != nil {
				in.view.ID = *l.FolderID
			}
		}
		return v.startNaming(in, "")

	case msg.String() == "f":
		return v.startNaming(sidebarEntry{kind: entryFolder}, "")

	case msg.String() == "#":
		return v.startNaming(sidebarEntry{kind: entryTag}, "")

	case msg.String() == "r":
		switch e.kind {
		case entryFolder, entryList, entryTag:
			return v.startNaming(e, e.label)
		}

	case key.Matches(msg, v.keys.Delete):
		switch e.kind {
		case entryFolder, entryList, entryTag:
			v.confirm = e
			v.mode = modeConfirm
		}

	case key.Matches(msg, v.keys.MoveUp), key.Matches(msg, v.keys.MoveDown):
		pos, dir := store.Before, -1
		if key.Matches(msg, v.keys.MoveDown) {
			pos, dir = store.After, 1
		}
		for i := v.side + dir; i >= 0 && i < len(v.entries); i += dir {
			if v.entries[i].kind != e.kind {
				continue
			}
			var eff board.Effect
			switch e.kind {
			case entryList:
				eff = board.ReorderLists{ListID: e.id, TargetID: v.entries[i].id, Position: pos}
			case entryFolder:
				eff = board.ReorderFolders{FolderID: e.id, TargetID: v.entries[i].id, Position: pos}
			default:
				return nil
			}
			cmd := v.apply([]board.Effect{eff})
			for j, moved := range v.entries {
				if moved.id == e.id {
					v.side = j
				}
			}
			return cmd
		}
	}
	return nil
}

func (v *BoardView) startNaming(e sidebarEntry, value string) tea.Cmd {
	v.naming = e
	v.mode = modeName
	v.name.Reset()
	v.name.SetValue(value)
	switch e.kind {
	case entryFolder:
		v.name.Placeholder = "Folder name"
	case entryTag:
		v.name.Placeholder = "Tag name"
	default:
		v.name.Placeholder = "List name"
	}
	v.name.Focus()
	return textinput.Blink
}

func (v *BoardView) updateName(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.mode = modeNormal
		v.name.Blur()
		return nil
	case key.Matches(msg, v.keys.Enter):
		v.mode = modeNormal
		v.name.Blur()
		return v.saveName(strings.TrimSpace(v.name.Value()))
	}
	var cmd tea.Cmd
	v.name, cmd = v.name.Update(msg)
	return cmd
}

func (v *BoardView) saveName(name string) tea.Cmd {
	if name == "" {
		return nil
	}
	e := v.naming
	var p *store.Pending
	switch {
	case e.kind == entryList && e.id == "":
		var folder *string
		if e.view.ID != "" {
			folder = models.Ptr(e.view.ID)
		}
		_, p = v.store.CreateList(name, folder)
	case e.kind == entryList:
		p = v.store.RenameList(e.id, name)
	case e.kind == entryFolder && e.id == "":
		_, p = v.store.CreateFolder(name)
	case e.kind == entryFolder:
		p = v.store.RenameFolder(e.id, name)
	case e.kind == entryTag && e.id == "":
		_, p = v.store.CreateTag(name, tagPalette[len(v.store.Tags())%len(tagPalette)])
	case e.kind == entryTag:
		color := tagPalette[0]
		for _, t := range v.store.Tags() {
			if t.ID == e.id {
				color = t.Color
			}
		}
		p = v.store.UpdateTag(e.id, name, color)
	}
	v.refresh()
	return commit(p)
}

func (v *BoardView) updateConfirm(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		v.mode = modeNormal
		e := v.confirm
		switch e.kind {
		case entryFolder:
			return v.commitAndRefresh(v.store.DeleteFolder(e.id))
		case entryList:
			view := v.store.View()
			if view.Kind == store.ViewList && view.ID == e.id {
				v.store.SetView(store.View{Kind: store.ViewAll})
			}
			return v.commitAndRefresh(v.store.DeleteList(e.id))
		case entryTag:
			return v.commitAndRefresh(v.store.DeleteTag(e.id))
		default:
			return v.apply([]board.Effect{board.Delete{TaskID: e.id}})
		}
	case "n", "N", "esc":
		v.mode = modeNormal
	}
	return nil
}

func (v *BoardView) commitAndRefresh(p *store.Pending) tea.Cmd {
	v.refresh()
	return commit(p)
}

// updateMove picks a destination list, the first entry being the inbox
func (v *BoardView) updateMove(msg tea.KeyMsg) tea.Cmd {
	lists := v.store.Lists()
	switch {
	case key.Matches(msg, v.keys.Back):
		v.mode = modeNormal
	case key.Matches(msg, v.keys.Up):
		v.pickCursor = max(v.pickCursor-1, 0)
	case key.Matches(msg, v.keys.Down):
		v.pickCursor = min(v.pickCursor+1, len(lists))
	case key.Matches(msg, v.keys.Enter):
		v.mode = modeNormal
		row, ok := v.current()
		if !ok {
			return nil
		}
		var dest *string
		if v.pickCursor > 0 {
			dest = models.Ptr(lists[v.pickCursor-1].ID)
		}
		return v.apply([]board.Effect{board.MoveToList{TaskID: row.ID, ListID: dest}})
	}
	return nil
}

// updateTags toggles tags on the current task as they are picked
func (v *BoardView) updateTags(msg tea.KeyMsg) tea.Cmd {
	tags := v.store.Tags()
	switch {
	case key.Matches(msg, v.keys.Back):
		v.mode = modeNormal
	case key.Matches(msg, v.keys.Up):
		v.pickCursor = max(v.pickCursor-1, 0)
	case key.Matches(msg, v.keys.Down):
		v.pickCursor = min(v.pickCursor+1, max(len(tags)-1, 0))
	case key.Matches(msg, v.keys.Enter), msg.String() == " ":
		row, ok := v.current()
		if !ok || v.pickCursor >= len(tags) {
			return nil
		}
		toggled := tags[v.pickCursor].ID
		var ids []string
		found := false
		for _, t := range row.Tags {
			if t.ID == toggled {
				found = true
				continue
			}
			ids = append(ids, t.ID)
		}
		if !found {
			ids = append(ids, toggled)
		}
		return v.commitAndRefresh(v.store.SetTaskTags(row.ID, ids))
	}
	return nil
}

func (v *BoardView) visibleRows() int {
	return max((v.height-headerLines-footerLines)/rowLines, 1)
}

func (v *BoardView) ensureVisible() {
	visible := v.visibleRows()
	if v.cursor < v.scroll {
		v.scroll = v.cursor
	} else if v.cursor >= v.scroll+visible {
		v.scroll = v.cursor - visible + 1
	}
	v.scroll = clamp(v.scroll, 0, max(len(v.rows)-visible, 0))
}

// View renders the view
func (v *BoardView) View() string {
	switch v.mode {
	case modeHelp:
		return v.renderHelpPopup()
	case modeConfirm:
		return v.renderDeleteConfirm()
	case modeMove:
		return v.renderMovePicker()
	case modeTags:
		return v.renderTagPicker()
	case modeName:
		return v.renderNaming()
	}

	bodyHeight := max(v.height-headerLines-footerLines, 1)
	sidebar := v.styles.Sidebar.Height(bodyHeight).Render(v.renderSidebar(bodyHeight))
	main := v.renderTaskList(bodyHeight)

	return lipgloss.JoinVertical(lipgloss.Left,
		v.renderHeader(),
		lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main),
		v.renderHelp(),
	)
}

func (v *BoardView) viewTitle() string {
	view := v.store.View()
	switch view.Kind {
	case store.ViewList:
		if l, ok := v.store.List(view.ID); ok {
			return l.Name
		}
	case store.ViewFolder:
		if f, ok := v.store.Folder(view.ID); ok {
			return f.Name
		}
	case store.ViewTag:
		for _, t := range v.store.Tags() {
			if t.ID == view.ID {
				return "#" + t.Name
			}
		}
	}
	return view.Kind.String()
}

// renderHeader draws exactly headerLines lines: the title and the gap above
// the first row, which doubles as its drop line
func (v *BoardView) renderHeader() string {
	s := v.styles
	title := s.Title.Render(v.viewTitle())
	if v.store.View().ShowDone {
		title += s.TitleMuted.Render(" (with completed)")
	}
	if v.store.Loading() {
		title += s.TitleMuted.Render("  loading…")
	}
	if v.focus == FocusSearchInput || v.search.Value() != "" {
		title += "   " + v.search.View()
	}
	gap := ""
	if v.dropAfter() == -1 {
		gap = strings.Repeat(" ", styles.SidebarWidth+1) + s.DropLine.Render(strings.Repeat("─", 24))
	}
	return lipgloss.JoinVertical(lipgloss.Left, " "+title, gap)
}

// dropAfter returns the row whose gap shows the insertion line: -1 for the
// header, -2 for none
func (v *BoardView) dropAfter() int {
	if v.hover == nil || v.hover.Over.Kind != board.Row {
		return -2
	}
	i := v.rowIndex(v.hover.Over.ID)
	switch {
	case i < 0:
		return -2
	case v.hover.Zone == board.ZoneBefore:
		return i - 1
	case v.hover.Zone == board.ZoneAfter:
		return i
	}
	return -2
}

func (v *BoardView) renderSidebar(height int) string {
	s := v.styles
	current := v.store.View()
	var lines []string
	for i, e := range v.entries {
		if i >= height {
			break
		}
		label := truncate(strings.Repeat("  ", e.depth)+e.label, styles.SidebarWidth-2)
		style := s.SidebarItem
		switch {
		case e.kind == entryLists || e.kind == entryLabel:
			style = s.SidebarHeading
		case v.focus == FocusSidebar && i == v.side:
			style = s.SidebarSelected
		case e.view.Kind == current.Kind && e.view.ID == current.ID:
			style = s.ListSelected.Padding(0, 1)
		}
		if v.hover != nil && v.hover.Over.Kind != board.Row && v.hover.Over.Kind != board.Background &&
			v.hover.Over.Top == float64(i+headerLines)*boardUnit {
			style = s.DropTarget.Padding(0, 1)
		}
		lines = append(lines, style.Width(styles.SidebarWidth).Render(label))
	}
	return strings.Join(lines, "\n")
}

func (v *BoardView) renderTaskList(height int) string {
	s := v.styles
	if len(v.rows) == 0 {
		msg := "No tasks. Press 'n' to create one."
		if !v.store.Loaded() {
			msg = "Loading..."
		}
		return s.TitleMuted.Padding(0, 2).Render(msg)
	}

	width := max(v.width-styles.SidebarWidth-2, 20)
	drop := v.dropAfter()
	var lines []string
	end := min(v.scroll+v.visibleRows(), len(v.rows))
	for i := v.scroll; i < end; i++ {
		lines = append(lines, v.renderTaskItem(v.rows[i], i, width)...)
		gap := ""
		if drop == i {
			gap = s.DropLine.Render(strings.Repeat("─", min(width, 40)))
		}
		lines = append(lines, gap)
	}
	return strings.Join(lines[:min(len(lines), height)], "\n")
}

// renderTaskItem returns the title and detail lines of a row
func (v *BoardView) renderTaskItem(t store.VisibleTask, i, width int) []string {
	s := v.styles
	indent := strings.Repeat("  ", t.Depth)

	check := "○"
	if t.Status == models.StatusDone {
		check = "●"
	}
	prio := lipgloss.NewStyle().Foreground(styles.PriorityColor(t.Priority)).Render("▍")
	title := t.Title
	if t.IsProject {
		title += " ▸"
	}
	if t.Status == models.StatusDone {
		title = s.TaskDone.Render(title)
	}
	if dx := v.swipe[t.ID]; dx != 0 {
		mark := lipgloss.NewStyle().Foreground(styles.Current.Success).Render(" ✓ done")
		if dx < 0 {
			mark = lipgloss.NewStyle().Foreground(styles.Current.Error).Render(" ✗ delete")
		}
		title += mark
	}
	line := indent + prio + check + " " + title

	var meta []string
	if t.DueDate != nil {
		due := *t.DueDate
		if t.DueTime != nil {
			due += " " + clock(t.DueTime)
		}
		meta = append(meta, due)
	}
	if view := v.store.View(); view.Kind != store.ViewList && t.ListID != nil {
		if l, ok := v.store.List(*t.ListID); ok {
			meta = append(meta, l.Name)
		}
	}
	for _, tag := range t.Tags {
		meta = append(meta, lipgloss.NewStyle().Foreground(lipgloss.Color(tag.Color)).Render("#"+tag.Name))
	}
	detail := indent + "   " + s.TitleMuted.Render(strings.Join(meta, " · "))

	style := s.ListItem
	switch {
	case v.hover != nil && v.hover.Zone == board.ZoneNest && v.hover.Over.Kind == board.Row && v.hover.Over.ID == t.ID:
		style = s.DropTarget
	case i == v.cursor && v.focus == FocusTaskList:
		style = s.ListSelected
	}
	return []string{style.Width(width).Render(line), style.Width(width).Render(detail)}
}

func (v *BoardView) renderHelp() string {
	s := v.styles
	if v.width > 0 && v.width < 60 {
		return s.Help.Render(s.HelpKey.Render("?") + " help")
	}
	if v.focus == FocusSidebar {
		return s.Help.Render(fmt.Sprintf("%s open • %s list • %s folder • %s tag • %s rename • %s del • %s move • %s tasks",
			s.HelpKey.Render("↵"), s.HelpKey.Render("n"), s.HelpKey.Render("f"), s.HelpKey.Render("#"),
			s.HelpKey.Render("r"), s.HelpKey.Render("d"), s.HelpKey.Render("J/K"), s.HelpKey.Render("tab")))
	}
	return s.Help.Render(fmt.Sprintf("%s open • %s new • %s done • %s del • %s move • %s nest • %s search • %s calendar • %s help",
		s.HelpKey.Render("↵"), s.HelpKey.Render("n"), s.HelpKey.Render("space"), s.HelpKey.Render("d"),
		s.HelpKey.Render("J/K"), s.HelpKey.Render("<>"), s.HelpKey.Render("/"), s.HelpKey.Render("C"),
		s.HelpKey.Render("?")))
}

func (v *BoardView) renderHelpPopup() string {
	s := v.styles
	row := func(k, desc string) string {
		return s.HelpKey.Render(fmt.Sprintf("%-8s", k)) + desc
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Keyboard Shortcuts"),
		"",
		row("↵/e", "edit task"),
		row("n", "new task"),
		row("N", "new subtask"),
		row("space", "toggle done"),
		row("d", "delete"),
		row("J/K", "move down / up"),
		row(">", "nest under the task above"),
		row("<", "move out of its parent"),
		row("m", "move to list"),
		row("t", "assign tags"),
		row("/", "search"),
		row("c", "show completed"),
		row("tab", "sidebar"),
		row("C", "calendar"),
		row("ctrl+r", "refresh"),
		row("ctrl+o", "sign out"),
		row("q", "quit"),
		"",
		s.TitleMuted.Render("Drag rows with the mouse: top or bottom edge reorders, middle nests."),
		s.TitleMuted.Render("Press any key to close"),
	)
	return styles.Dialog(s, content, v.width, v.height)
}

func (v *BoardView) renderDeleteConfirm() string {
	s := v.styles
	what := "Task"
	switch v.confirm.kind {
	case entryFolder:
		what = "Folder"
	case entryList:
		what = "List"
	case entryTag:
		what = "Tag"
	}
	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Delete "+what+"?"),
		"",
		s.TitleMuted.Render(truncate(v.confirm.label, 40)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)
	return styles.Dialog(s, content, v.width, v.height)
}

func (v *BoardView) renderMovePicker() string {
	s := v.styles
	items := []string{"Inbox"}
	for _, l := range v.store.Lists() {
		items = append(items, l.Name)
	}
	var lines []string
	for i, name := range items {
		style := s.ListItem
		if i == v.pickCursor {
			style = s.ListSelected
		}
		lines = append(lines, style.Render(name))
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Move to"),
		"",
		lipgloss.JoinVertical(lipgloss.Left, lines...),
		"",
		s.TitleMuted.Render("↵: move • Esc: cancel"),
	)
	return styles.Dialog(s, content, v.width, v.height)
}

func (v *BoardView) renderTagPicker() string {
	s := v.styles
	row, ok := v.current()
	if !ok {
		return ""
	}
	tags := v.store.Tags()
	if len(tags) == 0 {
		return styles.Dialog(s, s.TitleMuted.Render("No tags yet. Press # in the sidebar to create one."), v.width, v.height)
	}
	has := map[string]bool{}
	for _, t := range row.Tags {
		has[t.ID] = true
	}
	var lines []string
	for i, tag := range tags {
		style := s.ListItem
		if i == v.pickCursor {
			style = s.ListSelected
		}
		checkbox := "[ ]"
		if has[tag.ID] {
			checkbox = "[x]"
		}
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color(tag.Color)).Render("●")
		lines = append(lines, style.Render(checkbox+" "+dot+" "+tag.Name))
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Assign Tags to: "+truncate(row.Title, 40)),
		"",
		lipgloss.JoinVertical(lipgloss.Left, lines...),
		"",
		s.TitleMuted.Render("Enter/Space: toggle • Esc: done"),
	)
	return styles.Dialog(s, content, v.width, v.height)
}

func (v *BoardView) renderNaming() string {
	s := v.styles
	title := "New " + v.name.Placeholder
	if v.naming.id != "" {
		title = "Rename"
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(title),
		"",
		s.InputFocused.Width(clamp(styles.ContentWidth(v.width)-10, 20, 40)).Render(v.name.View()),
		"",
		s.TitleMuted.Render("↵: save • Esc: cancel"),
	)
	return styles.Dialog(s, content, v.width, v.height)
}
