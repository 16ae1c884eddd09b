package models

import "time"

// Status is the workflow state of a task
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusArchived   Status = "archived"
)

// Priority ranks a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Folder groups lists
type Folder struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id,omitempty"`
	Name       string    `json:"name"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
}

// List owns tasks and optionally belongs to a folder
type List struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id,omitempty"`
	Name       string    `json:"name"`
	FolderID   *string   `json:"folder_id"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
}

// Tag represents a tag that can be applied to tasks
type Tag struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskTag is a row of the task/tag join table
type TaskTag struct {
	TaskID string `json:"task_id"`
	TagID  string `json:"tag_id"`
	UserID string `json:"user_id,omitempty"`
}

// Task represents a single task.
//
// Scheduling fields are independent: a task with DueDate and no DueTime is
// all-day, with both it is timed. An end boundary without a start is tolerated.
type Task struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	DueDate     *string   `json:"due_date"`
	DueTime     *string   `json:"due_time"`
	EndDate     *string   `json:"end_date"`
	EndTime     *string   `json:"end_time"`
	ListID      *string   `json:"list_id"`
	ParentID    *string   `json:"parent_id"`
	OrderIndex  int       `json:"order_index"`
	IsProject   bool      `json:"is_project"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Tags        []Tag     `json:"-"` // populated from task_tags after a fetch
}

// Settings is the remote mirror of the calendar preferences
type Settings struct {
	UserID         string  `json:"user_id"`
	PixelsPerHour  float64 `json:"pixels_per_hour"`
	WorkStartHour  int     `json:"work_start_hour"`
	WorkEndHour    int     `json:"work_end_hour"`
	HideNightHours bool    `json:"hide_night_hours"`
}

// Schedule is the scheduling slice of a task, written as one unit
type Schedule struct {
	DueDate *string `json:"due_date"`
	DueTime *string `json:"due_time"`
	EndDate *string `json:"end_date"`
	EndTime *string `json:"end_time"`
}

// Schedule returns the task's current scheduling fields
func (t Task) Schedule() Schedule {
	return Schedule{DueDate: t.DueDate, DueTime: t.DueTime, EndDate: t.EndDate, EndTime: t.EndTime}
}

// IsAllDay reports whether the task has a date but no time of day
func (t Task) IsAllDay() bool {
	return t.DueDate != nil && t.DueTime == nil
}

// IsTimed reports whether the task has both a date and a time of day
func (t Task) IsTimed() bool {
	return t.DueDate != nil && t.DueTime != nil
}

// IsScheduled reports whether the task shows up on the calendar at all
func (t Task) IsScheduled() bool {
	return t.DueDate != nil
}

// Clone returns a copy that shares no pointers with t
func (t Task) Clone() Task {
	c := t
	c.Description = cloneString(t.Description)
	c.DueDate = cloneString(t.DueDate)
	c.DueTime = cloneString(t.DueTime)
	c.EndDate = cloneString(t.EndDate)
	c.EndTime = cloneString(t.EndTime)
	c.ListID = cloneString(t.ListID)
	c.ParentID = cloneString(t.ParentID)
	if t.Tags != nil {
		c.Tags = append([]Tag(nil), t.Tags...)
	}
	return c
}

// Ptr returns a pointer to s
func Ptr(s string) *string {
	return &s
}

// StrEq compares two optional strings
func StrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
