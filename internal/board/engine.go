// Package board turns drags and swipes on the task list and the sidebar into
// hierarchy and order changes. Like the calendar engine it only reads tasks;
// the changes are returned as effects and applied by Apply.
package board

import (
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tgienger/pulse/internal/models"
	"github.com/tgienger/pulse/internal/store"
)

const (
	SwipeThreshold = 100.0
	LongPressDelay = 400 * time.Millisecond

	dragSlop  = 1.0
	swipeSlop = 10.0
)

// State is where a gesture is in its life
type State int

const (
	Idle State = iota
	Pressed
	Dragging
	Swiping
)

func (s State) String() string {
	return [...]string{"idle", "pressed", "dragging", "swiping"}[s]
}

// EventKind is what happened to a pointer
type EventKind int

const (
	Down EventKind = iota
	Move
	Up
	LongPress
	Cancel
)

func (k EventKind) String() string {
	return [...]string{"down", "move", "up", "long_press", "cancel"}[k]
}

// Item is the kind of thing being dragged
type Item int

const (
	TaskItem Item = iota
	ListItem
	FolderItem
)

// TargetKind is the kind of thing under the pointer
type TargetKind int

const (
	Nothing TargetKind = iota
	Row
	Background
	SidebarList
	SidebarInbox
	SidebarFolder
	SidebarRoot
)

// Target is what the pointer is over. Top and Height bound the hovered
// row or sidebar entry and pick the drop zone.
type Target struct {
	Kind   TargetKind
	ID     string
	Top    float64
	Height float64
}

// Zone is where a drop lands relative to the hovered row
type Zone int

const (
	ZoneBefore Zone = iota
	ZoneAfter
	ZoneNest
)

func (z Zone) String() string {
	return [...]string{"before", "after", "nest"}[z]
}

// RowZone splits a task row: the top quarter drops before it, the bottom
// quarter after it and the middle nests under it.
func RowZone(y float64, t Target) Zone {
	if t.Height <= 0 {
		return ZoneNest
	}
	switch f := (y - t.Top) / t.Height; {
	case f < 0.25:
		return ZoneBefore
	case f >= 0.75:
		return ZoneAfter
	default:
		return ZoneNest
	}
}

// sidebarSide splits a sidebar entry in halves
func sidebarSide(y float64, t Target) store.Position {
	if t.Height > 0 && (y-t.Top)/t.Height >= 0.5 {
		return store.After
	}
	return store.Before
}

// Point is a pointer position
type Point struct {
	X, Y float64
}

// Event is one input to the engine. Item and ID name what was pressed on
// Down; Over is what the pointer is over on Move and Up.
type Event struct {
	Kind    EventKind
	Pointer int
	Pos     Point
	Touch   bool
	Item    Item
	ID      string
	Over    Target
	Token   int
}

// Effect is something the caller must do
type Effect interface {
	effect()
}

type (
	Select       struct{ TaskID string }
	ArmLongPress struct {
		Pointer int
		Token   int
		After   time.Duration
	}
	// Hover shows the drop indicator
	Hover struct {
		Over Target
		Zone Zone
	}
	ClearHover  struct{}
	SwipeOffset struct {
		TaskID string
		DX     float64
	}
	// Revert snaps a swiped row back without a change
	Revert        struct{ TaskID string }
	ConfirmDelete struct{ TaskID string }

	Reorder struct {
		TaskID, TargetID string
		Position         store.Position
	}
	Reparent         struct{ TaskID, ParentID string }
	RemoveParent     struct{ TaskID string }
	MoveToList       struct {
		TaskID string
		ListID *string
	}
	MoveListToFolder struct {
		ListID   string
		FolderID *string
	}
	ReorderLists struct {
		ListID, TargetID string
		Position         store.Position
	}
	ReorderFolders struct {
		FolderID, TargetID string
		Position           store.Position
	}
	ToggleDone struct{ TaskID string }
	Delete     struct{ TaskID string }
)

func (Select) effect()           {}
func (ArmLongPress) effect()     {}
func (Hover) effect()            {}
func (ClearHover) effect()       {}
func (SwipeOffset) effect()      {}
func (Revert) effect()           {}
func (ConfirmDelete) effect()    {}
func (Reorder) effect()          {}
func (Reparent) effect()         {}
func (RemoveParent) effect()     {}
func (MoveToList) effect()       {}
func (MoveListToFolder) effect() {}
func (ReorderLists) effect()     {}
func (ReorderFolders) effect()   {}
func (ToggleDone) effect()       {}
func (Delete) effect()           {}

// TaskSource reads tasks
type TaskSource interface {
	Task(id string) (models.Task, bool)
}

type gesture struct {
	state   State
	pointer int
	item    Item
	id      string
	from    Point
	touch   bool
	token   int
}

type transition struct {
	state State
	event EventKind
}

type handler func(e *Engine, g *gesture, ev Event) []Effect

var transitions = map[transition]handler{
	{Idle, Down}:         (*Engine).press,
	{Pressed, Move}:      (*Engine).pressedMove,
	{Pressed, LongPress}: (*Engine).longPress,
	{Pressed, Up}:        (*Engine).pressedUp,
	{Pressed, Cancel}:    (*Engine).cancel,
	{Dragging, Move}:     (*Engine).dragMove,
	{Dragging, Up}:       (*Engine).drop,
	{Dragging, Cancel}:   (*Engine).cancel,
	{Swiping, Move}:      (*Engine).swipeMove,
	{Swiping, Up}:        (*Engine).swipeEnd,
	{Swiping, Cancel}:    (*Engine).swipeCancel,
}

// Engine interprets gestures on the board, one gesture per pointer.
// It is not safe for concurrent use.
type Engine struct {
	tasks    TaskSource
	log      log.FieldLogger
	gestures map[int]*gesture
	token    int
}

// New creates an engine reading tasks from tasks
func New(tasks TaskSource, logger log.FieldLogger) *Engine {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Engine{tasks: tasks, log: logger, gestures: map[int]*gesture{}}
}

// State returns the state of pointer's gesture
func (e *Engine) State(pointer int) State {
	if g, ok := e.gestures[pointer]; ok {
		return g.state
	}
	return Idle
}

// Handle feeds one event through the transition table
func (e *Engine) Handle(ev Event) []Effect {
	g, ok := e.gestures[ev.Pointer]
	if !ok {
		g = &gesture{pointer: ev.Pointer}
	}
	h, ok := transitions[transition{g.state, ev.Kind}]
	if !ok {
		return nil
	}
	from := g.state
	effects := h(e, g, ev)
	if g.state == Idle {
		delete(e.gestures, g.pointer)
	} else {
		e.gestures[g.pointer] = g
	}
	if from != g.state {
		e.log.WithFields(log.Fields{
			"pointer": g.pointer,
			"id":      g.id,
			"event":   ev.Kind.String(),
			"from":    from.String(),
			"to":      g.state.String(),
		}).Debug("board.transition")
	}
	return effects
}

func (e *Engine) press(g *gesture, ev Event) []Effect {
	if ev.ID == "" {
		return nil
	}
	g.item, g.id, g.from, g.touch = ev.Item, ev.ID, ev.Pos, ev.Touch
	g.state = Pressed
	if !g.touch {
		return nil
	}
	e.token++
	g.token = e.token
	return []Effect{ArmLongPress{Pointer: g.pointer, Token: g.token, After: LongPressDelay}}
}

func (e *Engine) pressedMove(g *gesture, ev Event) []Effect {
	dx, dy := ev.Pos.X-g.from.X, ev.Pos.Y-g.from.Y
	if !g.touch {
		if math.Hypot(dx, dy) < dragSlop {
			return nil
		}
		g.state = Dragging
		return e.dragMove(g, ev)
	}
	if g.item == TaskItem && math.Abs(dx) >= swipeSlop && math.Abs(dx) > math.Abs(dy) {
		g.state = Swiping
		return []Effect{SwipeOffset{TaskID: g.id, DX: dx}}
	}
	// vertical movement before the long press scrolls the list
	if math.Abs(dy) >= dragSlop {
		g.state = Idle
	}
	return nil
}

func (e *Engine) longPress(g *gesture, ev Event) []Effect {
	if ev.Token != g.token {
		return nil
	}
	g.state = Dragging
	return nil
}

func (e *Engine) pressedUp(g *gesture, _ Event) []Effect {
	g.state = Idle
	if g.item != TaskItem {
		return nil
	}
	return []Effect{Select{TaskID: g.id}}
}

func (e *Engine) cancel(g *gesture, _ Event) []Effect {
	dragging := g.state == Dragging
	g.state = Idle
	if dragging {
		return []Effect{ClearHover{}}
	}
	return nil
}

func (e *Engine) dragMove(g *gesture, ev Event) []Effect {
	zone := RowZone(ev.Pos.Y, ev.Over)
	if ev.Over.Kind != Row {
		zone = ZoneNest
	}
	return []Effect{Hover{Over: ev.Over, Zone: zone}}
}

func (e *Engine) drop(g *gesture, ev Event) []Effect {
	g.state = Idle
	out := []Effect{ClearHover{}}
	var change Effect
	switch g.item {
	case TaskItem:
		change = e.dropTask(g.id, ev)
	case ListItem:
		change = dropList(g.id, ev)
	case FolderItem:
		if ev.Over.Kind == SidebarFolder && ev.Over.ID != g.id {
			change = ReorderFolders{FolderID: g.id, TargetID: ev.Over.ID, Position: sidebarSide(ev.Pos.Y, ev.Over)}
		}
	}
	if change != nil {
		out = append(out, change)
	}
	return out
}

func (e *Engine) dropTask(id string, ev Event) Effect {
	over := ev.Over
	switch over.Kind {
	case Row:
		if over.ID == id {
			return nil
		}
		switch RowZone(ev.Pos.Y, over) {
		case ZoneBefore:
			return Reorder{TaskID: id, TargetID: over.ID, Position: store.Before}
		case ZoneAfter:
			return Reorder{TaskID: id, TargetID: over.ID, Position: store.After}
		}
		target, ok := e.tasks.Task(over.ID)
		if !ok || target.ParentID != nil {
			return nil
		}
		return Reparent{TaskID: id, ParentID: over.ID}
	case Background:
		return RemoveParent{TaskID: id}
	case SidebarList:
		return MoveToList{TaskID: id, ListID: models.Ptr(over.ID)}
	case SidebarInbox:
		return MoveToList{TaskID: id}
	}
	return nil
}

func dropList(id string, ev Event) Effect {
	over := ev.Over
	switch over.Kind {
	case SidebarFolder:
		return MoveListToFolder{ListID: id, FolderID: models.Ptr(over.ID)}
	case SidebarRoot:
		return MoveListToFolder{ListID: id}
	case SidebarList:
		if over.ID != id {
			return ReorderLists{ListID: id, TargetID: over.ID, Position: sidebarSide(ev.Pos.Y, over)}
		}
	}
	return nil
}

func (e *Engine) swipeMove(g *gesture, ev Event) []Effect {
	return []Effect{SwipeOffset{TaskID: g.id, DX: ev.Pos.X - g.from.X}}
}

// swipeEnd completes to the right and asks to delete to the left once past
// the threshold; a shorter swipe snaps back
func (e *Engine) swipeEnd(g *gesture, ev Event) []Effect {
	g.state = Idle
	switch dx := ev.Pos.X - g.from.X; {
	case dx >= SwipeThreshold:
		return []Effect{Revert{TaskID: g.id}, ToggleDone{TaskID: g.id}}
	case dx <= -SwipeThreshold:
		return []Effect{Revert{TaskID: g.id}, ConfirmDelete{TaskID: g.id}}
	default:
		return []Effect{Revert{TaskID: g.id}}
	}
}

func (e *Engine) swipeCancel(g *gesture, _ Event) []Effect {
	g.state = Idle
	return []Effect{Revert{TaskID: g.id}}
}
