package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/tgienger/pulse/internal/models"
	"github.com/tgienger/pulse/internal/remote"
)

type call struct {
	verb       string
	collection string
	body       any
	filters    []remote.Filter
}

// stubRemote serves fixed rows and records writes without applying them.
// onWrite lets a test change the served rows when a write lands.
type stubRemote struct {
	mu       sync.Mutex
	tasks    []models.Task
	lists    []models.List
	folders  []models.Folder
	tags     []models.Tag
	links    []models.TaskTag
	calls    []call
	writeErr error
	readErr  error
	onSelect func(collection string)
	onWrite  func(c call)
}

func (s *stubRemote) Select(ctx context.Context, collection string, _ remote.Query, out any) error {
	s.mu.Lock()
	err := s.readErr
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	var tasks []models.Task
	for _, t := range s.tasks {
		tasks = append(tasks, t.Clone())
	}
	lists := append([]models.List(nil), s.lists...)
	folders := append([]models.Folder(nil), s.folders...)
	tags := append([]models.Tag(nil), s.tags...)
	links := append([]models.TaskTag(nil), s.links...)
	hook := s.onSelect
	s.mu.Unlock()

	// rows are captured before the hook so a blocked select answers stale data
	if hook != nil {
		hook(collection)
	}
	if err != nil {
		return err
	}
	switch o := out.(type) {
	case *[]models.Task:
		*o = tasks
	case *[]models.List:
		*o = lists
	case *[]models.Folder:
		*o = folders
	case *[]models.Tag:
		*o = tags
	case *[]models.TaskTag:
		*o = links
	default:
		return fmt.Errorf("unexpected out %T", out)
	}
	return nil
}

func (s *stubRemote) record(c call) error {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	err, hook := s.writeErr, s.onWrite
	s.mu.Unlock()
	if err == nil && hook != nil {
		hook(c)
	}
	return err
}

func (s *stubRemote) Insert(_ context.Context, collection string, rows any, _ any) error {
	return s.record(call{verb: "insert", collection: collection, body: rows})
}

func (s *stubRemote) Update(_ context.Context, collection string, patch any, filters ...remote.Filter) error {
	return s.record(call{verb: "update", collection: collection, body: patch, filters: filters})
}

func (s *stubRemote) Delete(_ context.Context, collection string, filters ...remote.Filter) error {
	return s.record(call{verb: "delete", collection: collection, filters: filters})
}

func (s *stubRemote) writes() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

func (s *stubRemote) reset() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func task(id string, index int) models.Task {
	return models.Task{
		ID:         id,
		Title:      "task " + id,
		Status:     models.StatusTodo,
		Priority:   models.PriorityMedium,
		OrderIndex: index,
		CreatedAt:  testNow,
		UpdatedAt:  testNow,
	}
}

func newTestStore(t *testing.T, rem *stubRemote) (*Store, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	s := New(rem, logger)
	s.Now = func() time.Time { return testNow }
	n := 0
	s.NewID = func() string {
		n++
		return fmt.Sprintf("new-%d", n)
	}
	if err := s.FetchAll(context.Background(), false); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	rem.reset()
	return s, hook
}

func orderOf(s *Store) []string {
	var ids []string
	for _, t := range s.Tasks() {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestReorder(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	cases := []struct {
		name           string
		dragged, other string
		pos            Position
		want           []string
	}{
		{"down after", "a", "c", After, []string{"b", "c", "a", "d"}},
		{"down before", "a", "c", Before, []string{"b", "a", "c", "d"}},
		{"up before", "d", "a", Before, []string{"d", "a", "b", "c"}},
		{"up after", "d", "b", After, []string{"a", "b", "d", "c"}},
		{"own position", "b", "a", After, []string{"a", "b", "c", "d"}},
		{"onto itself", "b", "b", Before, []string{"a", "b", "c", "d"}},
		{"unknown target", "a", "x", Before, []string{"a", "b", "c", "d"}},
		{"unknown dragged", "x", "a", Before, []string{"a", "b", "c", "d"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Reorder(ids, c.dragged, c.other, c.pos)
			if !reflect.DeepEqual(got, c.want) {
				t.Fatalf("got %v want %v", got, c.want)
			}
			if !reflect.DeepEqual(ids, []string{"a", "b", "c", "d"}) {
				t.Fatalf("input modified: %v", ids)
			}
		})
	}
}

func TestReorderTasksDense(t *testing.T) {
	rem := &stubRemote{tasks: []models.Task{task("a", 0), task("b", 1), task("c", 2), task("d", 3)}}
	s, _ := newTestStore(t, rem)

	p := s.ReorderTasks("a", "c", After)
	if p == nil {
		t.Fatal("reorder rejected")
	}
	if got := orderOf(s); !reflect.DeepEqual(got, []string{"b", "c", "a", "d"}) {
		t.Fatalf("order %v", got)
	}
	for i, tk := range s.Tasks() {
		if tk.OrderIndex != i {
			t.Fatalf("%s has index %d, want %d", tk.ID, tk.OrderIndex, i)
		}
	}
	if err := p.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}
	var updated []string
	for _, c := range rem.writes() {
		if c.verb != "update" || c.collection != remote.Tasks {
			t.Fatalf("unexpected call %+v", c)
		}
		updated = append(updated, c.filters[0].Value)
	}
	// d kept index 3
	if !reflect.DeepEqual(updated, []string{"b", "c", "a"}) {
		t.Fatalf("updated %v", updated)
	}
}

func TestReorderOntoOwnPositionWritesNothing(t *testing.T) {
	rem := &stubRemote{tasks: []models.Task{task("a", 0), task("b", 1), task("c", 2)}}
	s, _ := newTestStore(t, rem)

	p := s.ReorderTasks("b", "a", After)
	if err := p.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(rem.writes()); n != 0 {
		t.Fatalf("%d writes", n)
	}
	if got := orderOf(s); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("order %v", got)
	}
	if s.guard.size() != 0 {
		t.Fatalf("guard still tracks %d rows", s.guard.size())
	}
}

func TestReorderAdoptsTargetGroup(t *testing.T) {
	a, b := task("a", 0), task("b", 1)
	x := task("x", 0)
	x.ListID = models.Ptr("work")
	rem := &stubRemote{
		lists: []models.List{{ID: "work", Name: "Work"}},
		tasks: []models.Task{a, b, x},
	}
	s, _ := newTestStore(t, rem)

	if p := s.ReorderTasks("a", "x", Before); p == nil {
		t.Fatal("reorder rejected")
	}
	got, _ := s.Task("a")
	if !models.StrEq(got.ListID, models.Ptr("work")) || got.OrderIndex != 0 {
		t.Fatalf("a = list %v index %d", got.ListID, got.OrderIndex)
	}
	moved, _ := s.Task("x")
	if moved.OrderIndex != 1 {
		t.Fatalf("x index %d", moved.OrderIndex)
	}
}

func TestReparentGuards(t *testing.T) {
	parent := task("p", 0)
	child := task("c", 0)
	child.ParentID = models.Ptr("p")
	other := task("o", 1)
	rem := &stubRemote{tasks: []models.Task{parent, child, other}}
	s, _ := newTestStore(t, rem)
	before := s.Tasks()

	cases := []struct{ dragged, target string }{
		{"o", "c"}, // target is a subtask
		{"o", "o"}, // same task
		{"c", "p"}, // already there
		{"x", "p"}, // unknown
		{"o", "x"},
	}
	for _, c := range cases {
		if p := s.Reparent(c.dragged, c.target); p != nil {
			t.Fatalf("Reparent(%s, %s) accepted", c.dragged, c.target)
		}
	}
	if !reflect.DeepEqual(s.Tasks(), before) {
		t.Fatal("rejected reparent changed the store")
	}

	p := s.Reparent("o", "p")
	if p == nil {
		t.Fatal("Reparent(o, p) rejected")
	}
	got, _ := s.Task("o")
	if !models.StrEq(got.ParentID, models.Ptr("p")) || got.OrderIndex != 1 {
		t.Fatalf("o parent %v index %d", got.ParentID, got.OrderIndex)
	}
	if err := p.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}

	if p := s.RemoveParent("c"); p == nil {
		t.Fatal("RemoveParent rejected")
	}
	got, _ = s.Task("c")
	if got.ParentID != nil {
		t.Fatal("parent not cleared")
	}
}

func TestCreateThenSchedule(t *testing.T) {
	rem := &stubRemote{}
	s, _ := newTestStore(t, rem)

	created, p := s.CreateTask(NewTask{Title: "  Write report "})
	if p == nil {
		t.Fatal("create rejected")
	}
	if created.Title != "Write report" || created.DueDate != nil || created.DueTime != nil {
		t.Fatalf("created %+v", created)
	}
	if created.Status != models.StatusTodo || created.Priority != models.PriorityMedium {
		t.Fatalf("defaults %s %s", created.Status, created.Priority)
	}
	if len(p.writes) != 1 || len(p.keys) != 1 {
		t.Fatalf("pending writes %d keys %d", len(p.writes), len(p.keys))
	}

	if _, p := s.CreateTask(NewTask{Title: "   "}); p != nil {
		t.Fatal("empty title accepted")
	}

	if p := s.Reschedule(created.ID, models.TimedSchedule("2026-10-20", 14*60, models.DefaultMinutes)); p == nil {
		t.Fatal("reschedule rejected")
	}
	got, _ := s.Task(created.ID)
	if *got.DueDate != "2026-10-20" || *got.DueTime != "14:00" || *got.EndDate != "2026-10-20" || *got.EndTime != "15:00" {
		t.Fatalf("schedule %+v", got.Schedule())
	}

	if p := s.Reschedule(created.ID, models.AllDaySchedule("2026-10-20")); p == nil {
		t.Fatal("all-day rejected")
	}
	got, _ = s.Task(created.ID)
	if !got.IsAllDay() || got.EndTime != nil || *got.EndDate != "2026-10-20" {
		t.Fatalf("all-day %+v", got.Schedule())
	}
	if p := s.ResizeTask(created.ID, "2026-10-20", "16:00"); p != nil {
		t.Fatal("resize of all-day task accepted")
	}
}

func TestCreateSubtaskInheritsList(t *testing.T) {
	parent := task("p", 0)
	parent.ListID = models.Ptr("work")
	child := task("c", 0)
	child.ParentID = models.Ptr("p")
	child.ListID = models.Ptr("work")
	rem := &stubRemote{lists: []models.List{{ID: "work"}}, tasks: []models.Task{parent, child}}
	s, _ := newTestStore(t, rem)

	sub, p := s.CreateTask(NewTask{Title: "sub", ParentID: models.Ptr("p")})
	if p == nil {
		t.Fatal("rejected")
	}
	if !models.StrEq(sub.ListID, models.Ptr("work")) || sub.OrderIndex != 1 {
		t.Fatalf("sub list %v index %d", sub.ListID, sub.OrderIndex)
	}
	if _, p := s.CreateTask(NewTask{Title: "deep", ParentID: models.Ptr("c")}); p != nil {
		t.Fatal("nested subtask accepted")
	}
}

func TestToggleDone(t *testing.T) {
	rem := &stubRemote{tasks: []models.Task{task("a", 0)}}
	s, _ := newTestStore(t, rem)

	p, completed := s.ToggleDone("a")
	if p == nil || !completed {
		t.Fatalf("first toggle: pending %v completed %v", p != nil, completed)
	}
	if got, _ := s.Task("a"); got.Status != models.StatusDone {
		t.Fatalf("status %s", got.Status)
	}
	_, completed = s.ToggleDone("a")
	if completed {
		t.Fatal("reopening reported completion")
	}
	if got, _ := s.Task("a"); got.Status != models.StatusTodo {
		t.Fatalf("status %s", got.Status)
	}
	if p, _ := s.ToggleDone("missing"); p != nil {
		t.Fatal("unknown task toggled")
	}
}

func TestDeleteTaskOrphansChildren(t *testing.T) {
	parent := task("p", 0)
	child := task("c", 0)
	child.ParentID = models.Ptr("p")
	rem := &stubRemote{
		tasks: []models.Task{parent, child},
		tags:  []models.Tag{{ID: "t1", Name: "home"}},
		links: []models.TaskTag{{TaskID: "p", TagID: "t1"}},
	}
	s, _ := newTestStore(t, rem)

	p := s.DeleteTask("p")
	if p == nil {
		t.Fatal("rejected")
	}
	if _, ok := s.Task("p"); ok {
		t.Fatal("task still visible")
	}
	if got, _ := s.Task("c"); got.ParentID != nil {
		t.Fatal("child keeps parent")
	}
	if err := p.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}
	c := rem.writes()
	if len(c) != 1 || c[0].verb != "delete" || c[0].filters[0].Value != "p" {
		t.Fatalf("calls %+v", c)
	}
}

func TestFetchFailureKeepsState(t *testing.T) {
	rem := &stubRemote{tasks: []models.Task{task("a", 0)}}
	s, hook := newTestStore(t, rem)

	var notices []Notice
	unsubscribe := s.OnNotice(func(n Notice) { notices = append(notices, n) })
	defer unsubscribe()

	rem.mu.Lock()
	rem.tasks = nil
	rem.readErr = errors.New("offline")
	rem.mu.Unlock()

	if err := s.FetchAll(context.Background(), true); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := s.Task("a"); !ok {
		t.Fatal("cached task dropped")
	}
	if len(notices) != 1 || notices[0].Level != Error {
		t.Fatalf("notices %+v", notices)
	}
	if e := hook.LastEntry(); e == nil || e.Message != "store.fetch.failed" {
		t.Fatalf("last log %+v", e)
	}
}

func TestFetchCanceledIsQuiet(t *testing.T) {
	rem := &stubRemote{}
	s, _ := newTestStore(t, rem)
	rem.readErr = context.Canceled

	quiet := true
	s.OnNotice(func(Notice) { quiet = false })
	if err := s.FetchAll(context.Background(), true); !errors.Is(err, context.Canceled) {
		t.Fatalf("err %v", err)
	}
	if !quiet {
		t.Fatal("cancellation was surfaced")
	}
}

func TestBackgroundFetchDoesNotShowLoading(t *testing.T) {
	rem := &stubRemote{}
	s, _ := newTestStore(t, rem)

	var mu sync.Mutex
	var seen []bool
	rem.onSelect = func(string) {
		mu.Lock()
		seen = append(seen, s.Loading())
		mu.Unlock()
	}

	if err := s.FetchAll(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	for _, l := range seen {
		if l {
			t.Fatal("background fetch raised loading")
		}
	}
	seen = nil
	if err := s.FetchAll(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	for _, l := range seen {
		if !l {
			t.Fatal("foreground fetch did not raise loading")
		}
	}
	if s.Loading() {
		t.Fatal("loading left raised")
	}
}

func setTitle(rem *stubRemote, id, title string) {
	rem.mu.Lock()
	defer rem.mu.Unlock()
	for i := range rem.tasks {
		if rem.tasks[i].ID == id {
			rem.tasks[i].Title = title
		}
	}
}

func TestStaleFetchKeepsSettledChange(t *testing.T) {
	rem := &stubRemote{tasks: []models.Task{task("a", 0)}}
	s, _ := newTestStore(t, rem)
	rem.onWrite = func(call) { setTitle(rem, "a", "renamed") }

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	rem.onSelect = func(collection string) {
		if collection != remote.Tasks {
			return
		}
		blocked := false
		once.Do(func() { blocked = true })
		if blocked {
			close(started)
			<-release
		}
	}

	done := make(chan error)
	go func() { done <- s.FetchAll(context.Background(), true) }()
	<-started

	title := "renamed"
	p := s.UpdateTask("a", TaskPatch{Title: &title})
	if err := p.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Task("a"); got.Title != "renamed" {
		t.Fatalf("stale fetch reverted the change: %q", got.Title)
	}
	if s.guard.size() != 0 {
		t.Fatalf("guard still tracks %d rows", s.guard.size())
	}
}

func TestFetchKeepsUnsentChange(t *testing.T) {
	rem := &stubRemote{tasks: []models.Task{task("a", 0)}}
	s, _ := newTestStore(t, rem)

	title := "local"
	s.UpdateTask("a", TaskPatch{Title: &title})
	if err := s.FetchAll(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Task("a"); got.Title != "local" {
		t.Fatalf("fetch overwrote in-flight change: %q", got.Title)
	}

	created, _ := s.CreateTask(NewTask{Title: "fresh"})
	if err := s.FetchAll(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Task(created.ID); !ok {
		t.Fatal("fetch dropped an unsent insert")
	}
}

func TestFailedWriteNotifiesAndRefetches(t *testing.T) {
	rem := &stubRemote{tasks: []models.Task{task("a", 0)}}
	s, hook := newTestStore(t, rem)
	rem.writeErr = errors.New("boom")

	var notices []Notice
	s.OnNotice(func(n Notice) { notices = append(notices, n) })

	title := "lost"
	p := s.UpdateTask("a", TaskPatch{Title: &title})
	if got, _ := s.Task("a"); got.Title != "lost" {
		t.Fatal("change not applied optimistically")
	}
	if err := p.Commit(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(notices) != 1 || notices[0].Text != "Couldn't save the task" {
		t.Fatalf("notices %+v", notices)
	}
	if got, _ := s.Task("a"); got.Title != "task a" {
		t.Fatalf("refetch did not correct the row: %q", got.Title)
	}
	var failed bool
	for _, e := range hook.AllEntries() {
		if e.Message == "store.commit.failed" && e.Data["op"] == "update_task" {
			failed = true
		}
	}
	if !failed {
		t.Fatal("failure not logged")
	}
}

func TestRefetchOutlivesCommitContext(t *testing.T) {
	rem := &stubRemote{tasks: []models.Task{task("a", 0)}}
	s, _ := newTestStore(t, rem)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rem.onWrite = func(call) {
		rem.mu.Lock()
		rem.tasks[0].Title = "server title"
		rem.mu.Unlock()
		cancel()
	}
	var notices []Notice
	s.OnNotice(func(n Notice) { notices = append(notices, n) })

	title := "local title"
	if err := s.UpdateTask("a", TaskPatch{Title: &title}).Commit(ctx); err != nil {
		t.Fatal(err)
	}
	if len(notices) != 0 {
		t.Fatalf("notices %+v", notices)
	}
	if got, _ := s.Task("a"); got.Title != "server title" {
		t.Fatalf("refetch skipped: %q", got.Title)
	}
}

func TestTagsJoin(t *testing.T) {
	rem := &stubRemote{
		tasks: []models.Task{task("a", 0)},
		tags:  []models.Tag{{ID: "t2", Name: "work"}, {ID: "t1", Name: "home"}, {ID: "t3", Name: "misc"}},
		links: []models.TaskTag{{TaskID: "a", TagID: "t2"}, {TaskID: "a", TagID: "t1"}},
	}
	s, _ := newTestStore(t, rem)

	got, _ := s.Task("a")
	if len(got.Tags) != 2 || got.Tags[0].Name != "home" || got.Tags[1].Name != "work" {
		t.Fatalf("tags %+v", got.Tags)
	}

	p := s.SetTaskTags("a", []string{"t1", "t3", "unknown"})
	if p == nil {
		t.Fatal("rejected")
	}
	if err := p.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}
	calls := rem.writes()
	if len(calls) != 2 || calls[0].verb != "delete" || calls[1].verb != "insert" {
		t.Fatalf("calls %+v", calls)
	}
	if f := calls[0].filters; len(f) != 2 || f[1].Op != "in" || f[1].Value != "(t2)" {
		t.Fatalf("delete filters %+v", f)
	}
	// the refetch restored the service's links
	if p := s.SetTaskTags("a", []string{"t1", "t2"}); p != nil {
		t.Fatal("unchanged tags accepted")
	}
}

func TestVisibleTasks(t *testing.T) {
	work := "work"
	parent := task("p", 0)
	parent.ListID = &work
	child := task("c", 0)
	child.ListID = &work
	child.ParentID = models.Ptr("p")
	inbox := task("i", 1)
	inbox.Description = models.Ptr("call the bank")
	done := task("d", 2)
	done.Status = models.StatusDone
	archived := task("z", 3)
	archived.Status = models.StatusArchived
	due := task("u", 4)
	due.DueDate = models.Ptr("2026-10-19")
	overdue := task("o", 5)
	overdue.DueDate = models.Ptr("2026-10-10")

	rem := &stubRemote{
		folders: []models.Folder{{ID: "f"}},
		lists:   []models.List{{ID: "work", FolderID: models.Ptr("f")}},
		tags:    []models.Tag{{ID: "t", Name: "x"}},
		links:   []models.TaskTag{{TaskID: "u", TagID: "t"}},
		tasks:   []models.Task{parent, child, inbox, done, archived, due, overdue},
	}
	s, _ := newTestStore(t, rem)

	ids := func() []string {
		var out []string
		for _, v := range s.VisibleTasks() {
			out = append(out, fmt.Sprintf("%s%d", v.ID, v.Depth))
		}
		return out
	}
	cases := []struct {
		view View
		want []string
	}{
		{View{Kind: ViewAll}, []string{"p0", "c1", "i0", "u0", "o0"}},
		{View{Kind: ViewAll, ShowDone: true}, []string{"p0", "c1", "i0", "d0", "u0", "o0"}},
		{View{Kind: ViewInbox}, []string{"i0", "u0", "o0"}},
		{View{Kind: ViewList, ID: "work"}, []string{"p0", "c1"}},
		{View{Kind: ViewFolder, ID: "f"}, []string{"p0", "c1"}},
		{View{Kind: ViewTag, ID: "t"}, []string{"u0"}},
		{View{Kind: ViewToday}, []string{"o0"}},
		{View{Kind: ViewUpcoming}, []string{"u0"}},
		{View{Kind: ViewAll, Search: "BANK"}, []string{"i0"}},
		{View{Kind: ViewAll, Search: "task c"}, []string{"c0"}},
	}
	for _, c := range cases {
		s.SetView(c.view)
		if got := ids(); !reflect.DeepEqual(got, c.want) {
			t.Errorf("%s %+v: got %v want %v", c.view.Kind, c.view, got, c.want)
		}
	}
}

func TestListsAndFolders(t *testing.T) {
	rem := &stubRemote{tasks: []models.Task{task("a", 0)}}
	s, _ := newTestStore(t, rem)

	f1, _ := s.CreateFolder("Personal")
	f2, _ := s.CreateFolder("Work")
	l, p := s.CreateList("Groceries", &f1.ID)
	if p == nil || !models.StrEq(l.FolderID, &f1.ID) {
		t.Fatalf("list %+v", l)
	}
	if _, p := s.CreateList("bad", models.Ptr("nope")); p != nil {
		t.Fatal("list in unknown folder accepted")
	}

	if p := s.MoveTaskToList("a", &l.ID); p == nil {
		t.Fatal("move rejected")
	}
	s.SetView(View{Kind: ViewList, ID: l.ID})

	if p := s.ReorderFolders(f2.ID, f1.ID, Before); p == nil {
		t.Fatal("reorder rejected")
	}
	folders := s.Folders()
	if folders[0].ID != f2.ID || folders[0].OrderIndex != 0 || folders[1].OrderIndex != 1 {
		t.Fatalf("folders %+v", folders)
	}

	if p := s.MoveListToFolder(l.ID, &f2.ID); p == nil {
		t.Fatal("move list rejected")
	}
	if p := s.DeleteFolder(f2.ID); p == nil {
		t.Fatal("delete folder rejected")
	}
	if got, _ := s.List(l.ID); got.FolderID != nil {
		t.Fatal("list kept deleted folder")
	}

	if p := s.DeleteList(l.ID); p == nil {
		t.Fatal("delete list rejected")
	}
	if got, _ := s.Task("a"); got.ListID != nil {
		t.Fatal("task kept deleted list")
	}
	if v := s.View(); v.Kind != ViewAll {
		t.Fatalf("view %+v", v)
	}
}

func TestReorderListsAcrossFolders(t *testing.T) {
	rem := &stubRemote{
		folders: []models.Folder{{ID: "f"}},
		lists: []models.List{
			{ID: "a", OrderIndex: 0},
			{ID: "b", FolderID: models.Ptr("f"), OrderIndex: 0},
			{ID: "c", FolderID: models.Ptr("f"), OrderIndex: 1},
		},
	}
	s, _ := newTestStore(t, rem)

	p := s.ReorderLists("a", "c", Before)
	if p == nil {
		t.Fatal("rejected")
	}
	got, _ := s.List("a")
	if !models.StrEq(got.FolderID, models.Ptr("f")) || got.OrderIndex != 1 {
		t.Fatalf("a = %+v", got)
	}
	if c, _ := s.List("c"); c.OrderIndex != 2 {
		t.Fatalf("c index %d", c.OrderIndex)
	}
	if err := p.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(rem.writes()); n != 2 {
		t.Fatalf("%d writes", n)
	}
}

func TestTagLifecycle(t *testing.T) {
	rem := &stubRemote{tasks: []models.Task{task("a", 0)}}
	s, _ := newTestStore(t, rem)

	tag, p := s.CreateTag("urgent", "")
	if p == nil || tag.Color != defaultTagColor {
		t.Fatalf("tag %+v", tag)
	}
	s.SetTaskTags("a", []string{tag.ID})
	if p := s.UpdateTag(tag.ID, "", ""); p != nil {
		t.Fatal("empty update accepted")
	}
	s.UpdateTag(tag.ID, "now", "#ff0000")
	if got, _ := s.Task("a"); len(got.Tags) != 1 || got.Tags[0].Name != "now" {
		t.Fatalf("tags %+v", got.Tags)
	}
	s.SetView(View{Kind: ViewTag, ID: tag.ID})
	s.DeleteTag(tag.ID)
	if got, _ := s.Task("a"); len(got.Tags) != 0 {
		t.Fatal("link survived tag delete")
	}
	if s.View().Kind != ViewAll {
		t.Fatal("view not reset")
	}
}

func TestNilPendingCommit(t *testing.T) {
	var p *Pending
	if err := p.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.Op() != "" {
		t.Fatal("nil op")
	}
}
