package store

import (
	"strings"

	"github.com/tgienger/pulse/internal/models"
)

// ViewKind selects which tasks the board shows
type ViewKind int

const (
	ViewAll ViewKind = iota
	ViewInbox
	ViewToday
	ViewUpcoming
	ViewList
	ViewFolder
	ViewTag
)

// upcomingDays is how far ahead ViewUpcoming looks
const upcomingDays = 7

func (k ViewKind) String() string {
	switch k {
	case ViewInbox:
		return "Inbox"
	case ViewToday:
		return "Today"
	case ViewUpcoming:
		return "Upcoming"
	case ViewList:
		return "List"
	case ViewFolder:
		return "Folder"
	case ViewTag:
		return "Tag"
	default:
		return "All"
	}
}

// View is the current board selection. ID names the list, folder or tag for
// the kinds that need one.
type View struct {
	Kind     ViewKind
	ID       string
	ShowDone bool
	Search   string
}

// VisibleTask is a row of the board with its nesting depth
type VisibleTask struct {
	models.Task
	Depth int
}

// View returns the current selection
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// SetView changes the current selection
func (s *Store) SetView(v View) {
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
}

// VisibleTasks returns the tasks the current view shows. Subtasks follow
// their parent directly; a subtask whose parent is hidden is shown at the
// top level. Archived tasks never show, done tasks only with ShowDone.
func (s *Store) VisibleTasks() []VisibleTask {
	s.mu.RLock()
	defer s.mu.RUnlock()

	today := models.FormatDate(s.Now())
	horizon := models.FormatDate(s.Now().AddDate(0, 0, upcomingDays))
	search := strings.ToLower(strings.TrimSpace(s.view.Search))

	shown := map[string]models.Task{}
	for _, t := range s.tasks {
		if s.matches(t, today, horizon, search) {
			shown[t.ID] = t
		}
	}

	var top []models.Task
	children := map[string][]models.Task{}
	for _, t := range shown {
		if t.ParentID != nil {
			if _, ok := shown[*t.ParentID]; ok {
				children[*t.ParentID] = append(children[*t.ParentID], t)
				continue
			}
		}
		top = append(top, t)
	}
	sortTasks(top)

	out := make([]VisibleTask, 0, len(shown))
	for _, t := range top {
		out = append(out, VisibleTask{Task: s.withTags(t)})
		kids := children[t.ID]
		sortTasks(kids)
		for _, c := range kids {
			out = append(out, VisibleTask{Task: s.withTags(c), Depth: 1})
		}
	}
	return out
}

// Children returns the subtasks of id in display order
func (s *Store) Children(id string) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Task
	for _, t := range s.tasks {
		if t.ParentID != nil && *t.ParentID == id {
			out = append(out, s.withTags(t))
		}
	}
	sortTasks(out)
	return out
}

// Scheduled returns the tasks due within [from, to] as "YYYY-MM-DD" dates,
// excluding archived ones
func (s *Store) Scheduled(from, to string) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Task
	for _, t := range s.tasks {
		if t.DueDate == nil || t.Status == models.StatusArchived {
			continue
		}
		if *t.DueDate >= from && *t.DueDate <= to {
			out = append(out, s.withTags(t))
		}
	}
	sortTasks(out)
	return out
}

// Unscheduled returns open tasks without a due date, for the calendar side list
func (s *Store) Unscheduled() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Task
	for _, t := range s.tasks {
		if t.DueDate == nil && t.Status != models.StatusDone && t.Status != models.StatusArchived {
			out = append(out, s.withTags(t))
		}
	}
	sortTasks(out)
	return out
}

// matches reports whether t belongs in the current view. Caller holds mu.
func (s *Store) matches(t models.Task, today, horizon, search string) bool {
	if t.Status == models.StatusArchived {
		return false
	}
	if t.Status == models.StatusDone && !s.view.ShowDone {
		return false
	}
	if search != "" && !matchesSearch(t, search) {
		return false
	}

	switch s.view.Kind {
	case ViewInbox:
		return t.ListID == nil
	case ViewToday:
		return t.DueDate != nil && *t.DueDate <= today
	case ViewUpcoming:
		return t.DueDate != nil && *t.DueDate > today && *t.DueDate <= horizon
	case ViewList:
		return t.ListID != nil && *t.ListID == s.view.ID
	case ViewFolder:
		if t.ListID == nil {
			return false
		}
		l, ok := s.lists[*t.ListID]
		return ok && l.FolderID != nil && *l.FolderID == s.view.ID
	case ViewTag:
		for _, id := range s.taskTags[t.ID] {
			if id == s.view.ID {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func matchesSearch(t models.Task, q string) bool {
	if strings.Contains(strings.ToLower(t.Title), q) {
		return true
	}
	return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), q)
}
