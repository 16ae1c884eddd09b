package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds every binding the views share
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Enter    key.Binding
	Back     key.Binding
	Tab      key.Binding
	Quit     key.Binding
	Help     key.Binding
	New      key.Binding
	NewSub   key.Binding
	Edit     key.Binding
	Delete   key.Binding
	Done     key.Binding
	Search   key.Binding
	ShowDone key.Binding
	Tags     key.Binding
	Move     key.Binding
	MoveUp   key.Binding
	MoveDown key.Binding
	Indent   key.Binding
	Outdent  key.Binding
	Calendar key.Binding
	Board    key.Binding
	Refresh  key.Binding
	SignOut  key.Binding

	// Calendar
	Mode     key.Binding
	Today    key.Binding
	ZoomIn   key.Binding
	ZoomOut  key.Binding
	Night    key.Binding
	Schedule key.Binding
}

// DefaultKeyMap returns the default bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next")),
		Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("↵", "open")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch focus")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		New:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		NewSub:   key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "new subtask")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Done:     key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "done")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		ShowDone: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "completed")),
		Tags:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tags")),
		Move:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "move to list")),
		MoveUp:   key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up")),
		MoveDown: key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down")),
		Indent:   key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "nest")),
		Outdent:  key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "unnest")),
		Calendar: key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "calendar")),
		Board:    key.NewBinding(key.WithKeys("B"), key.WithHelp("B", "board")),
		Refresh:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh")),
		SignOut:  key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "sign out")),

		Mode:     key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "1/3/7 days")),
		Today:    key.NewBinding(key.WithKeys("."), key.WithHelp(".", "today")),
		ZoomIn:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "zoom out")),
		Night:    key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "work hours")),
		Schedule: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "schedule")),
	}
}
