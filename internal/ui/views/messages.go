package views

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/pulse/internal/remote"
	"github.com/tgienger/pulse/internal/store"
)

// Page is a top-level screen the App can show
type Page int

const (
	PageBoard Page = iota
	PageCalendar
)

// Navigate asks the App to switch pages
type Navigate struct {
	To Page
}

// SignedIn reports a successful sign in from the auth view
type SignedIn struct {
	Session *remote.Session
}

// OpenTask asks the App to open the editor on an existing task
type OpenTask struct {
	TaskID string
}

// NewTask asks the App to open the editor for a new task
type NewTask struct {
	Defaults store.NewTask
}

// EditorClosed is sent when the editor saves or cancels
type EditorClosed struct{}

// Celebrate is sent when a task moves into done
type Celebrate struct {
	Title string
}

// CommitDone reports the outcome of sending a change
type CommitDone struct {
	Op  string
	Err error
}

// Quit asks the App to flush and exit
type Quit struct{}

func send(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// commit sends every change in order and reports the first failure. A failed
// change does not stop the ones after it.
func commit(pending ...*store.Pending) tea.Cmd {
	var live []*store.Pending
	for _, p := range pending {
		if p != nil {
			live = append(live, p)
		}
	}
	if len(live) == 0 {
		return nil
	}
	return func() tea.Msg {
		ctx := context.Background()
		done := CommitDone{Op: live[len(live)-1].Op()}
		for _, p := range live {
			if err := p.Commit(ctx); err != nil && done.Err == nil {
				done = CommitDone{Op: p.Op(), Err: err}
			}
		}
		return done
	}
}

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// truncate cuts s to width runes, marking the cut with an ellipsis
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 {
		return ""
	}
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
