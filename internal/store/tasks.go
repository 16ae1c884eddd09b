package store

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/tgienger/pulse/internal/models"
	"github.com/tgienger/pulse/internal/remote"
)

// NewTask describes a task to create
type NewTask struct {
	Title       string
	Description string
	Priority    models.Priority
	ListID      *string
	ParentID    *string
	Schedule    models.Schedule
	IsProject   bool
}

// TaskPatch changes the descriptive fields of a task; nil fields are kept.
// An empty Description clears it.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *models.Priority
	IsProject   *bool
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func updateRow(collection, id string, patch map[string]any) write {
	return func(ctx context.Context, r Remote) error {
		return r.Update(ctx, collection, patch, remote.Eq("id", id))
	}
}

func insertRow(collection string, row map[string]any) write {
	return func(ctx context.Context, r Remote) error {
		return r.Insert(ctx, collection, []map[string]any{row}, nil)
	}
}

func deleteRow(collection, id string) write {
	return func(ctx context.Context, r Remote) error {
		return r.Delete(ctx, collection, remote.Eq("id", id))
	}
}

// siblings returns the tasks sharing list and parent, in display order. Caller holds mu.
func (s *Store) siblings(listID, parentID *string) []models.Task {
	var out []models.Task
	for _, t := range s.tasks {
		if models.StrEq(t.ListID, listID) && models.StrEq(t.ParentID, parentID) {
			out = append(out, t)
		}
	}
	sortTasks(out)
	return out
}

func (s *Store) nextTaskIndex(listID, parentID *string) int {
	next := 0
	for _, t := range s.siblings(listID, parentID) {
		next = max(next, t.OrderIndex+1)
	}
	return next
}

// CreateTask adds a task at the end of its siblings
func (s *Store) CreateTask(in NewTask) (models.Task, *Pending) {
	var created models.Task
	p := s.change("create_task", "Couldn't create the task", func(p *plan) bool {
		title := strings.TrimSpace(in.Title)
		if title == "" {
			return false
		}
		if in.ParentID != nil {
			parent, ok := s.tasks[*in.ParentID]
			if !ok || parent.ParentID != nil {
				return false
			}
			in.ListID = clone(parent.ListID)
		}
		now := s.Now()
		t := models.Task{
			ID:         s.NewID(),
			Title:      title,
			Status:     models.StatusTodo,
			Priority:   in.Priority,
			DueDate:    clone(in.Schedule.DueDate),
			DueTime:    clone(in.Schedule.DueTime),
			EndDate:    clone(in.Schedule.EndDate),
			EndTime:    clone(in.Schedule.EndTime),
			ListID:     clone(in.ListID),
			ParentID:   clone(in.ParentID),
			OrderIndex: s.nextTaskIndex(in.ListID, in.ParentID),
			IsProject:  in.IsProject,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if t.Priority == "" {
			t.Priority = models.PriorityMedium
		}
		if d := strings.TrimSpace(in.Description); d != "" {
			t.Description = &d
		}
		s.tasks[t.ID] = t
		created = t.Clone()

		p.add(key(kindTask, t.ID), insertRow(remote.Tasks, map[string]any{
			"id":          t.ID,
			"title":       t.Title,
			"description": nullable(t.Description),
			"status":      string(t.Status),
			"priority":    string(t.Priority),
			"due_date":    nullable(t.DueDate),
			"due_time":    nullable(t.DueTime),
			"end_date":    nullable(t.EndDate),
			"end_time":    nullable(t.EndTime),
			"list_id":     nullable(t.ListID),
			"parent_id":   nullable(t.ParentID),
			"order_index": t.OrderIndex,
			"is_project":  t.IsProject,
			"created_at":  stamp(now),
			"updated_at":  stamp(now),
		}))
		return true
	})
	return created, p
}

// UpdateTask applies a descriptive patch
func (s *Store) UpdateTask(id string, patch TaskPatch) *Pending {
	return s.change("update_task", "Couldn't save the task", func(p *plan) bool {
		t, ok := s.tasks[id]
		if !ok {
			return false
		}
		fields := map[string]any{}
		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return false
			}
			t.Title = title
			fields["title"] = title
		}
		if patch.Description != nil {
			d := strings.TrimSpace(*patch.Description)
			if d == "" {
				t.Description = nil
			} else {
				t.Description = &d
			}
			fields["description"] = nullable(t.Description)
		}
		if patch.Priority != nil {
			t.Priority = *patch.Priority
			fields["priority"] = string(t.Priority)
		}
		if patch.IsProject != nil {
			t.IsProject = *patch.IsProject
			fields["is_project"] = t.IsProject
		}
		if len(fields) == 0 {
			return false
		}
		s.touchTask(t, fields)
		p.add(key(kindTask, id), updateRow(remote.Tasks, id, fields))
		return true
	})
}

// touchTask stores t with a fresh updated_at. Caller holds mu.
func (s *Store) touchTask(t models.Task, fields map[string]any) {
	t.UpdatedAt = s.Now()
	fields["updated_at"] = stamp(t.UpdatedAt)
	s.tasks[t.ID] = t
}

// ToggleDone flips a task between done and todo. completed reports a
// transition into done.
func (s *Store) ToggleDone(id string) (p *Pending, completed bool) {
	p = s.change("toggle_done", "Couldn't update the task", func(p *plan) bool {
		t, ok := s.tasks[id]
		if !ok {
			return false
		}
		if t.Status == models.StatusDone {
			t.Status = models.StatusTodo
		} else {
			t.Status = models.StatusDone
			completed = true
		}
		fields := map[string]any{"status": string(t.Status)}
		s.touchTask(t, fields)
		p.add(key(kindTask, id), updateRow(remote.Tasks, id, fields))
		return true
	})
	return p, completed
}

// SetStatus moves a task to status
func (s *Store) SetStatus(id string, status models.Status) *Pending {
	return s.change("set_status", "Couldn't update the task", func(p *plan) bool {
		t, ok := s.tasks[id]
		if !ok || t.Status == status {
			return false
		}
		t.Status = status
		fields := map[string]any{"status": string(status)}
		s.touchTask(t, fields)
		p.add(key(kindTask, id), updateRow(remote.Tasks, id, fields))
		return true
	})
}

// DeleteTask removes a task. Its subtasks lose their parent and its tag
// links go with it, mirroring what the service does.
func (s *Store) DeleteTask(id string) *Pending {
	return s.change("delete_task", "Couldn't delete the task", func(p *plan) bool {
		if _, ok := s.tasks[id]; !ok {
			return false
		}
		delete(s.tasks, id)
		for _, t := range s.tasks {
			if t.ParentID != nil && *t.ParentID == id {
				t.ParentID = nil
				s.tasks[t.ID] = t
				p.add(key(kindTask, t.ID), nil)
			}
		}
		delete(s.taskTags, id)
		p.add(key(kindTaskTags, id), nil)
		p.add(key(kindTask, id), deleteRow(remote.Tasks, id))
		return true
	})
}

// Reschedule replaces all four scheduling fields
func (s *Store) Reschedule(id string, sched models.Schedule) *Pending {
	return s.change("reschedule", "Couldn't reschedule the task", func(p *plan) bool {
		t, ok := s.tasks[id]
		if !ok || scheduleEq(t.Schedule(), sched) {
			return false
		}
		t.DueDate, t.DueTime = clone(sched.DueDate), clone(sched.DueTime)
		t.EndDate, t.EndTime = clone(sched.EndDate), clone(sched.EndTime)
		fields := map[string]any{
			"due_date": nullable(t.DueDate),
			"due_time": nullable(t.DueTime),
			"end_date": nullable(t.EndDate),
			"end_time": nullable(t.EndTime),
		}
		s.touchTask(t, fields)
		p.add(key(kindTask, id), updateRow(remote.Tasks, id, fields))
		return true
	})
}

// ResizeTask changes only the end of a task
func (s *Store) ResizeTask(id string, endDate, endTime string) *Pending {
	return s.change("resize", "Couldn't resize the task", func(p *plan) bool {
		t, ok := s.tasks[id]
		if !ok || !t.IsTimed() {
			return false
		}
		if models.StrEq(t.EndDate, &endDate) && models.StrEq(t.EndTime, &endTime) {
			return false
		}
		t.EndDate, t.EndTime = models.Ptr(endDate), models.Ptr(endTime)
		fields := map[string]any{"end_date": endDate, "end_time": endTime}
		s.touchTask(t, fields)
		p.add(key(kindTask, id), updateRow(remote.Tasks, id, fields))
		return true
	})
}

func scheduleEq(a, b models.Schedule) bool {
	return models.StrEq(a.DueDate, b.DueDate) && models.StrEq(a.DueTime, b.DueTime) &&
		models.StrEq(a.EndDate, b.EndDate) && models.StrEq(a.EndTime, b.EndTime)
}

// Reparent nests dragged under target. It is rejected when either is
// unknown, they are the same task, target is itself a subtask, or dragged
// already sits under target.
func (s *Store) Reparent(dragged, target string) *Pending {
	return s.change("reparent", "Couldn't move the task", func(p *plan) bool {
		if dragged == target {
			return false
		}
		d, ok1 := s.tasks[dragged]
		t, ok2 := s.tasks[target]
		if !ok1 || !ok2 || t.ParentID != nil {
			return false
		}
		if d.ParentID != nil && *d.ParentID == target {
			return false
		}
		d.ParentID = models.Ptr(target)
		d.ListID = clone(t.ListID)
		d.OrderIndex = s.nextTaskIndex(d.ListID, d.ParentID)
		fields := map[string]any{
			"parent_id":   target,
			"list_id":     nullable(d.ListID),
			"order_index": d.OrderIndex,
		}
		s.touchTask(d, fields)
		p.add(key(kindTask, dragged), updateRow(remote.Tasks, dragged, fields))
		return true
	})
}

// RemoveParent lifts a subtask to the top level of its list
func (s *Store) RemoveParent(id string) *Pending {
	return s.change("remove_parent", "Couldn't move the task", func(p *plan) bool {
		t, ok := s.tasks[id]
		if !ok || t.ParentID == nil {
			return false
		}
		t.ParentID = nil
		t.OrderIndex = s.nextTaskIndex(t.ListID, nil)
		fields := map[string]any{"parent_id": nil, "order_index": t.OrderIndex}
		s.touchTask(t, fields)
		p.add(key(kindTask, id), updateRow(remote.Tasks, id, fields))
		return true
	})
}

// MoveTaskToList moves a task, and its subtasks, into listID (nil for the inbox).
// A subtask moved away from its parent's list becomes a top-level task.
func (s *Store) MoveTaskToList(id string, listID *string) *Pending {
	return s.change("move_to_list", "Couldn't move the task", func(p *plan) bool {
		t, ok := s.tasks[id]
		if !ok || models.StrEq(t.ListID, listID) {
			return false
		}
		if listID != nil {
			if _, ok := s.lists[*listID]; !ok {
				return false
			}
		}
		t.ListID = clone(listID)
		fields := map[string]any{"list_id": nullable(listID)}
		if t.ParentID != nil {
			t.ParentID = nil
			fields["parent_id"] = nil
		}
		t.OrderIndex = s.nextTaskIndex(listID, nil)
		fields["order_index"] = t.OrderIndex
		s.touchTask(t, fields)
		p.add(key(kindTask, id), updateRow(remote.Tasks, id, fields))

		for _, c := range s.tasks {
			if c.ParentID == nil || *c.ParentID != id {
				continue
			}
			c.ListID = clone(listID)
			cf := map[string]any{"list_id": nullable(listID)}
			s.touchTask(c, cf)
			p.add(key(kindTask, c.ID), updateRow(remote.Tasks, c.ID, cf))
		}
		return true
	})
}

// ReorderTasks places dragged before or after target among target's siblings,
// adopting target's list and parent. Every sibling gets a dense index and only
// rows whose values changed are written, one request at a time.
func (s *Store) ReorderTasks(dragged, target string, pos Position) *Pending {
	return s.change("reorder_tasks", "Couldn't reorder the tasks", func(p *plan) bool {
		if dragged == target {
			return false
		}
		d, ok1 := s.tasks[dragged]
		t, ok2 := s.tasks[target]
		if !ok1 || !ok2 {
			return false
		}
		regroup := !models.StrEq(d.ListID, t.ListID) || !models.StrEq(d.ParentID, t.ParentID)
		if regroup && t.ParentID != nil {
			// dragged would become a subtask; it must not have its own
			for _, c := range s.tasks {
				if c.ParentID != nil && *c.ParentID == dragged {
					return false
				}
			}
		}

		sibs := s.siblings(t.ListID, t.ParentID)
		ids := make([]string, 0, len(sibs)+1)
		for _, sib := range sibs {
			ids = append(ids, sib.ID)
		}
		if regroup {
			ids = append(ids, dragged)
			d.ListID, d.ParentID = clone(t.ListID), clone(t.ParentID)
			s.tasks[dragged] = d
		}

		for i, id := range Reorder(ids, dragged, target, pos) {
			row := s.tasks[id]
			fields := map[string]any{}
			if row.OrderIndex != i {
				row.OrderIndex = i
				fields["order_index"] = i
			}
			if id == dragged && regroup {
				fields["list_id"] = nullable(row.ListID)
				fields["parent_id"] = nullable(row.ParentID)
			}
			if len(fields) == 0 {
				continue
			}
			s.touchTask(row, fields)
			p.add(key(kindTask, id), updateRow(remote.Tasks, id, fields))
		}
		return true
	})
}

// SetTaskTags replaces the tags of a task
func (s *Store) SetTaskTags(taskID string, tagIDs []string) *Pending {
	return s.change("set_tags", "Couldn't update the tags", func(p *plan) bool {
		if _, ok := s.tasks[taskID]; !ok {
			return false
		}
		want := make([]string, 0, len(tagIDs))
		for _, id := range tagIDs {
			if _, ok := s.tags[id]; ok && !slices.Contains(want, id) {
				want = append(want, id)
			}
		}
		have := s.taskTags[taskID]
		var added, removed []string
		for _, id := range want {
			if !slices.Contains(have, id) {
				added = append(added, id)
			}
		}
		for _, id := range have {
			if !slices.Contains(want, id) {
				removed = append(removed, id)
			}
		}
		if len(added) == 0 && len(removed) == 0 {
			return false
		}
		if len(want) == 0 {
			delete(s.taskTags, taskID)
		} else {
			s.taskTags[taskID] = want
		}

		p.add(key(kindTaskTags, taskID), nil)
		if len(removed) > 0 {
			p.writes = append(p.writes, func(ctx context.Context, r Remote) error {
				return r.Delete(ctx, remote.TaskTags, remote.Eq("task_id", taskID), remote.In("tag_id", removed...))
			})
		}
		if len(added) > 0 {
			rows := make([]map[string]any, len(added))
			for i, id := range added {
				rows[i] = map[string]any{"task_id": taskID, "tag_id": id}
			}
			p.writes = append(p.writes, func(ctx context.Context, r Remote) error {
				return r.Insert(ctx, remote.TaskTags, rows, nil)
			})
		}
		return true
	})
}
