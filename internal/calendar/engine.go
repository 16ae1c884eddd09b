package calendar

import (
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tgienger/pulse/internal/models"
)

const (
	LongPressDelay  = 400 * time.Millisecond
	DoubleTapWindow = 300 * time.Millisecond

	// dragSlop is how far a pressed pointer travels before a mouse press turns into a drag
	dragSlop = 1.0
)

// State is where a gesture is in its life
type State int

const (
	Idle State = iota
	Pressed
	Dragging
	Resizing
	Committing
)

func (s State) String() string {
	return [...]string{"idle", "pressed", "dragging", "resizing", "committing"}[s]
}

// EventKind is what happened to a pointer
type EventKind int

const (
	Down EventKind = iota
	Move
	Up
	LongPress
	Cancel
	Committed
	Drop
)

func (k EventKind) String() string {
	return [...]string{"down", "move", "up", "long_press", "cancel", "committed", "drop"}[k]
}

// GestureKind tells a move from a resize
type GestureKind int

const (
	MoveGesture GestureKind = iota
	ResizeGesture
)

// Event is one input to the engine.
//
// TaskID and Handle describe what was under the pointer on Down, and which
// task is being dropped on Drop. Token answers an ArmLongPress. Committed
// names the finished write with TaskID and Gesture.
type Event struct {
	Kind    EventKind
	Pointer int
	Pos     Point
	At      time.Time
	Touch   bool
	TaskID  string
	Handle  bool
	Token   int
	Gesture GestureKind
}

// Effect is something the caller must do
type Effect interface {
	effect()
}

type (
	Select         struct{ TaskID string }
	Open           struct{ TaskID string }
	ClearSelection struct{}
	// ArmLongPress asks for a LongPress event with Token after the delay
	ArmLongPress struct {
		Pointer int
		Token   int
		After   time.Duration
	}
	// Preview shows where the dragged task would land
	Preview struct {
		TaskID   string
		Schedule models.Schedule
	}
	ClearPreview struct{ TaskID string }
	Reschedule   struct {
		TaskID   string
		Schedule models.Schedule
	}
	// Resize carries the new end; the start fields are unchanged
	Resize struct {
		TaskID   string
		Schedule models.Schedule
	}
	PromptCreate struct {
		Date string
		Hour int
	}
	SetZoom struct{ PixelsPerHour float64 }
)

func (Select) effect()         {}
func (Open) effect()           {}
func (ClearSelection) effect() {}
func (ArmLongPress) effect()   {}
func (Preview) effect()        {}
func (ClearPreview) effect()   {}
func (Reschedule) effect()     {}
func (Resize) effect()         {}
func (PromptCreate) effect()   {}
func (SetZoom) effect()        {}

// TaskSource reads tasks
type TaskSource interface {
	Task(id string) (models.Task, bool)
}

type target int

const (
	onSlot target = iota
	onTask
)

type gesture struct {
	state   State
	pointer int
	target  target
	kind    GestureKind
	task    models.Task
	from    Point
	touch   bool
	token   int
}

type lock struct {
	taskID string
	kind   GestureKind
}

type tap struct {
	taskID string
	slot   string
	at     time.Time
}

type transition struct {
	state State
	event EventKind
}

type handler func(e *Engine, g *gesture, ev Event) []Effect

// Pairs missing from the table are ignored.
var transitions = map[transition]handler{
	{Idle, Down}:            (*Engine).press,
	{Idle, Drop}:            (*Engine).drop,
	{Pressed, Move}:         (*Engine).pressedMove,
	{Pressed, LongPress}:    (*Engine).longPress,
	{Pressed, Up}:           (*Engine).pressedUp,
	{Pressed, Cancel}:       (*Engine).cancel,
	{Dragging, Move}:        (*Engine).dragMove,
	{Dragging, Up}:          (*Engine).dragEnd,
	{Dragging, Cancel}:      (*Engine).cancel,
	{Resizing, Move}:        (*Engine).resizeMove,
	{Resizing, Up}:          (*Engine).resizeEnd,
	{Resizing, Cancel}:      (*Engine).cancel,
	{Committing, Committed}: (*Engine).committed,
}

// Engine interprets gestures on the calendar grid. Each pointer runs its own
// gesture; a task has at most one gesture of each kind running or committing.
// It is not safe for concurrent use.
type Engine struct {
	tasks TaskSource
	log   log.FieldLogger
	geom  Geometry
	zoom  Zoom

	gestures map[int]*gesture
	locks    map[lock]*gesture
	selected string
	lastTap  tap
	token    int
}

// New creates an engine reading tasks from tasks
func New(tasks TaskSource, g Geometry, logger log.FieldLogger) *Engine {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Engine{
		tasks:    tasks,
		log:      logger,
		geom:     g,
		zoom:     Zoom{PixelsPerHour: g.PixelsPerHour},
		gestures: map[int]*gesture{},
		locks:    map[lock]*gesture{},
	}
}

// Geometry returns the current grid placement
func (e *Engine) Geometry() Geometry {
	return e.geom
}

// SetGeometry replaces the grid placement, for example after a resize of the window
func (e *Engine) SetGeometry(g Geometry) {
	e.geom = g
	e.zoom.PixelsPerHour = g.PixelsPerHour
}

// Selected returns the selected task ID or ""
func (e *Engine) Selected() string {
	return e.selected
}

// State returns the state of pointer's gesture
func (e *Engine) State(pointer int) State {
	if g, ok := e.gestures[pointer]; ok {
		return g.state
	}
	return Idle
}

// Busy reports whether a gesture of kind holds taskID
func (e *Engine) Busy(taskID string, kind GestureKind) bool {
	_, ok := e.locks[lock{taskID, kind}]
	return ok
}

// Handle feeds one event through the transition table
func (e *Engine) Handle(ev Event) []Effect {
	var g *gesture
	if ev.Kind == Committed {
		g = e.locks[lock{ev.TaskID, ev.Gesture}]
	} else {
		g = e.gestures[ev.Pointer]
	}
	if g == nil {
		g = &gesture{pointer: ev.Pointer}
	}
	h, ok := transitions[transition{g.state, ev.Kind}]
	if !ok {
		return nil
	}
	from := g.state
	effects := h(e, g, ev)
	e.track(g)
	if from != g.state {
		e.log.WithFields(log.Fields{
			"pointer": g.pointer,
			"task":    g.task.ID,
			"event":   ev.Kind.String(),
			"from":    from.String(),
			"to":      g.state.String(),
		}).Debug("calendar.transition")
	}
	return effects
}

// track files g under its pointer while active and under its lock while committing
func (e *Engine) track(g *gesture) {
	switch g.state {
	case Idle:
		if e.gestures[g.pointer] == g {
			delete(e.gestures, g.pointer)
		}
		e.release(g)
	case Committing:
		if e.gestures[g.pointer] == g {
			delete(e.gestures, g.pointer)
		}
	default:
		e.gestures[g.pointer] = g
	}
}

func (e *Engine) acquire(g *gesture) bool {
	k := lock{g.task.ID, g.kind}
	if owner, ok := e.locks[k]; ok && owner != g {
		return false
	}
	e.locks[k] = g
	return true
}

func (e *Engine) release(g *gesture) {
	k := lock{g.task.ID, g.kind}
	if e.locks[k] == g {
		delete(e.locks, k)
	}
}

// Wheel zooms with the modifier key held
func (e *Engine) Wheel(notches float64, modifier bool) []Effect {
	if !e.zoom.Wheel(notches, modifier) {
		return nil
	}
	e.geom.PixelsPerHour = e.zoom.PixelsPerHour
	return []Effect{SetZoom{PixelsPerHour: e.zoom.PixelsPerHour}}
}

// StartPinch begins a two finger zoom
func (e *Engine) StartPinch() {
	e.zoom.StartPinch()
}

// Pinch zooms in proportion to the finger distance
func (e *Engine) Pinch(startDist, dist float64) []Effect {
	if !e.zoom.Pinch(startDist, dist) {
		return nil
	}
	e.geom.PixelsPerHour = e.zoom.PixelsPerHour
	return []Effect{SetZoom{PixelsPerHour: e.zoom.PixelsPerHour}}
}

func (e *Engine) press(g *gesture, ev Event) []Effect {
	g.from, g.touch = ev.Pos, ev.Touch
	if ev.TaskID == "" {
		g.target = onSlot
		g.state = Pressed
		return nil
	}
	t, ok := e.tasks.Task(ev.TaskID)
	if !ok {
		return nil
	}
	g.target, g.task = onTask, t

	if ev.Handle && e.selected == t.ID && t.IsTimed() {
		g.kind = ResizeGesture
		if !e.acquire(g) {
			return nil
		}
		g.state = Resizing
		return nil
	}

	g.kind = MoveGesture
	if e.Busy(t.ID, MoveGesture) {
		return nil
	}
	g.state = Pressed
	if !g.touch {
		return nil
	}
	e.token++
	g.token = e.token
	return []Effect{ArmLongPress{Pointer: g.pointer, Token: g.token, After: LongPressDelay}}
}

func (e *Engine) pressedMove(g *gesture, ev Event) []Effect {
	if math.Hypot(ev.Pos.X-g.from.X, ev.Pos.Y-g.from.Y) < dragSlop {
		return nil
	}
	// a touch that moves before the long press is a scroll
	if g.target == onSlot || g.touch || !e.acquire(g) {
		g.state = Idle
		return nil
	}
	g.state = Dragging
	return []Effect{Preview{TaskID: g.task.ID, Schedule: e.geom.MoveSchedule(g.task, g.from, ev.Pos)}}
}

func (e *Engine) longPress(g *gesture, ev Event) []Effect {
	if g.target != onTask || ev.Token != g.token {
		return nil
	}
	if !e.acquire(g) {
		g.state = Idle
		return nil
	}
	g.state = Dragging
	e.selected = g.task.ID
	return []Effect{Select{TaskID: g.task.ID}}
}

func (e *Engine) pressedUp(g *gesture, ev Event) []Effect {
	g.state = Idle
	if g.target == onTask {
		return e.tapTask(g.task.ID, ev.At)
	}
	return e.tapSlot(ev.Pos, ev.At)
}

func (e *Engine) tapTask(id string, at time.Time) []Effect {
	if e.lastTap.taskID == id && at.Sub(e.lastTap.at) <= DoubleTapWindow {
		e.lastTap = tap{}
		return []Effect{Open{TaskID: id}}
	}
	e.lastTap = tap{taskID: id, at: at}
	e.selected = id
	return []Effect{Select{TaskID: id}}
}

func (e *Engine) tapSlot(p Point, at time.Time) []Effect {
	e.selected = ""
	effects := []Effect{ClearSelection{}}
	date, hour, ok := e.geom.SlotAt(p)
	if !ok {
		e.lastTap = tap{}
		return effects
	}
	slot := date + "@" + models.FormatClock(hour*60)
	if e.lastTap.slot == slot && at.Sub(e.lastTap.at) <= DoubleTapWindow {
		e.lastTap = tap{}
		return append(effects, PromptCreate{Date: date, Hour: hour})
	}
	e.lastTap = tap{slot: slot, at: at}
	return effects
}

func (e *Engine) cancel(g *gesture, _ Event) []Effect {
	active := g.state == Dragging || g.state == Resizing
	g.state = Idle
	if active {
		return []Effect{ClearPreview{TaskID: g.task.ID}}
	}
	return nil
}

func (e *Engine) dragMove(g *gesture, ev Event) []Effect {
	return []Effect{Preview{TaskID: g.task.ID, Schedule: e.geom.MoveSchedule(g.task, g.from, ev.Pos)}}
}

// dragEnd always commits: a release away from any column still lands somewhere
func (e *Engine) dragEnd(g *gesture, ev Event) []Effect {
	g.state = Committing
	return []Effect{
		ClearPreview{TaskID: g.task.ID},
		Reschedule{TaskID: g.task.ID, Schedule: e.geom.MoveSchedule(g.task, g.from, ev.Pos)},
	}
}

func (e *Engine) resizeMove(g *gesture, ev Event) []Effect {
	s, ok := e.geom.ResizeSchedule(g.task, ev.Pos.Y-g.from.Y)
	if !ok {
		return nil
	}
	return []Effect{Preview{TaskID: g.task.ID, Schedule: s}}
}

func (e *Engine) resizeEnd(g *gesture, ev Event) []Effect {
	s, ok := e.geom.ResizeSchedule(g.task, ev.Pos.Y-g.from.Y)
	if !ok {
		g.state = Idle
		return []Effect{ClearPreview{TaskID: g.task.ID}}
	}
	g.state = Committing
	return []Effect{ClearPreview{TaskID: g.task.ID}, Resize{TaskID: g.task.ID, Schedule: s}}
}

func (e *Engine) committed(g *gesture, _ Event) []Effect {
	g.state = Idle
	return nil
}

func (e *Engine) drop(g *gesture, ev Event) []Effect {
	t, ok := e.tasks.Task(ev.TaskID)
	if !ok {
		return nil
	}
	s, ok := e.geom.DropSchedule(t, ev.Pos)
	if !ok {
		return nil
	}
	g.target, g.task, g.kind = onTask, t, MoveGesture
	if !e.acquire(g) {
		return nil
	}
	g.state = Committing
	return []Effect{Reschedule{TaskID: t.ID, Schedule: s}}
}
