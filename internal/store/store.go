// Package store is the client's single in-memory copy of the user's tasks,
// lists, folders and tags. Every write goes through a Store method: the change
// is applied locally first and the returned Pending sends it to the service.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/tgienger/pulse/internal/models"
	"github.com/tgienger/pulse/internal/remote"
)

var ErrNotFound = errors.New("not found")

// Remote is the collection API the store reads and writes
type Remote interface {
	Select(ctx context.Context, collection string, q remote.Query, out any) error
	Insert(ctx context.Context, collection string, rows any, out any) error
	Update(ctx context.Context, collection string, patch any, filters ...remote.Filter) error
	Delete(ctx context.Context, collection string, filters ...remote.Filter) error
}

// Level classifies a Notice
type Level int

const (
	Info Level = iota
	Error
)

// Notice is a short message for the user
type Notice struct {
	Level Level
	Text  string
	At    time.Time
}

// Store owns the cached collections
type Store struct {
	remote Remote
	log    log.FieldLogger

	// Now and NewID are replaceable in tests
	Now   func() time.Time
	NewID func() string

	mu       sync.RWMutex
	tasks    map[string]models.Task
	lists    map[string]models.List
	folders  map[string]models.Folder
	tags     map[string]models.Tag
	taskTags map[string][]string
	view     View
	loading  int
	loaded   bool
	guard    *guard

	noticeMu  sync.Mutex
	listeners map[int]func(Notice)
	nextID    int
}

// New creates an empty store
func New(rem Remote, logger log.FieldLogger) *Store {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Store{
		remote:    rem,
		log:       logger,
		Now:       time.Now,
		NewID:     uuid.NewString,
		tasks:     map[string]models.Task{},
		lists:     map[string]models.List{},
		folders:   map[string]models.Folder{},
		tags:      map[string]models.Tag{},
		taskTags:  map[string][]string{},
		view:      View{Kind: ViewAll},
		guard:     newGuard(),
		listeners: map[int]func(Notice){},
	}
}

// OnNotice registers cb for user-facing messages. The returned func unregisters it.
func (s *Store) OnNotice(cb func(Notice)) func() {
	s.noticeMu.Lock()
	defer s.noticeMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = cb
	return func() {
		s.noticeMu.Lock()
		delete(s.listeners, id)
		s.noticeMu.Unlock()
	}
}

func (s *Store) notify(level Level, text string) {
	n := Notice{Level: level, Text: text, At: s.Now()}
	s.noticeMu.Lock()
	cbs := make([]func(Notice), 0, len(s.listeners))
	for _, cb := range s.listeners {
		cbs = append(cbs, cb)
	}
	s.noticeMu.Unlock()
	for _, cb := range cbs {
		cb(n)
	}
}

// Loading reports whether a foreground fetch is running
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// Loaded reports whether at least one fetch succeeded
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Reset forgets everything, used on sign out
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = map[string]models.Task{}
	s.lists = map[string]models.List{}
	s.folders = map[string]models.Folder{}
	s.tags = map[string]models.Tag{}
	s.taskTags = map[string][]string{}
	s.view = View{Kind: ViewAll}
	s.loaded = false
	s.guard = newGuard()
}

type fetched struct {
	tags     []models.Tag
	lists    []models.List
	folders  []models.Folder
	tasks    []models.Task
	taskTags []models.TaskTag
}

// FetchAll reloads every collection concurrently. On failure the cached state
// is left untouched. Background fetches do not raise the loading flag.
func (s *Store) FetchAll(ctx context.Context, background bool) error {
	s.mu.Lock()
	start := s.guard.begin()
	if !background {
		s.loading++
	}
	s.mu.Unlock()

	var (
		f    fetched
		wg   sync.WaitGroup
		errs = make([]error, 5)
	)
	byOrder := remote.Query{Order: []remote.Order{{Column: "order_index"}}}
	selects := []func() error{
		func() error {
			return s.remote.Select(ctx, remote.Tags, remote.Query{Order: []remote.Order{{Column: "name"}}}, &f.tags)
		},
		func() error { return s.remote.Select(ctx, remote.Lists, byOrder, &f.lists) },
		func() error { return s.remote.Select(ctx, remote.Folders, byOrder, &f.folders) },
		func() error { return s.remote.Select(ctx, remote.Tasks, byOrder, &f.tasks) },
		func() error { return s.remote.Select(ctx, remote.TaskTags, remote.Query{}, &f.taskTags) },
	}
	for i, sel := range selects {
		i, sel := i, sel
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = sel()
		}()
	}
	wg.Wait()
	err := errors.Join(errs...)

	s.mu.Lock()
	if !background {
		s.loading--
	}
	if err == nil {
		s.apply(f, start)
		s.loaded = true
	}
	s.guard.end(start)
	s.mu.Unlock()

	if err != nil {
		s.log.WithError(err).WithField("background", background).Warn("store.fetch.failed")
		if !errors.Is(err, context.Canceled) {
			s.notify(Error, "Couldn't refresh your tasks")
		}
		return err
	}
	s.log.WithFields(log.Fields{"tasks": len(f.tasks), "lists": len(f.lists), "background": background}).Debug("store.fetch.done")
	return nil
}

// apply replaces the collections with fetched rows, keeping local rows that
// changed after the fetch began. Caller holds mu.
func (s *Store) apply(f fetched, start uint64) {
	s.tags = reconcile(s.guard, kindTag, start, f.tags, func(t models.Tag) string { return t.ID }, s.tags)
	s.lists = reconcile(s.guard, kindList, start, f.lists, func(l models.List) string { return l.ID }, s.lists)
	s.folders = reconcile(s.guard, kindFolder, start, f.folders, func(fo models.Folder) string { return fo.ID }, s.folders)
	for i := range f.tasks {
		f.tasks[i].Tags = nil
	}
	s.tasks = reconcile(s.guard, kindTask, start, f.tasks, func(t models.Task) string { return t.ID }, s.tasks)

	links := make(map[string][]string, len(f.taskTags))
	for _, tt := range f.taskTags {
		links[tt.TaskID] = append(links[tt.TaskID], tt.TagID)
	}
	for id := range s.guard.protected(kindTaskTags, start) {
		if local, ok := s.taskTags[id]; ok {
			links[id] = local
		} else {
			delete(links, id)
		}
	}
	s.taskTags = links
}

func reconcile[T any](g *guard, kind string, start uint64, rows []T, id func(T) string, local map[string]T) map[string]T {
	out := make(map[string]T, len(rows))
	for _, r := range rows {
		out[id(r)] = r
	}
	for rowID := range g.protected(kind, start) {
		if v, ok := local[rowID]; ok {
			out[rowID] = v
		} else {
			delete(out, rowID)
		}
	}
	return out
}

// Task returns a task by ID with its tags
func (s *Store) Task(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return s.withTags(t), true
}

// Tasks returns every task in display order
func (s *Store) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, s.withTags(t))
	}
	sortTasks(out)
	return out
}

// Lists returns every list by order_index
func (s *Store) Lists() []models.List {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.List, 0, len(s.lists))
	for _, l := range s.lists {
		l.FolderID = clone(l.FolderID)
		out = append(out, l)
	}
	sortByIndex(out, func(l models.List) (int, string) { return l.OrderIndex, l.ID })
	return out
}

// List returns a list by ID
func (s *Store) List(id string) (models.List, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lists[id]
	l.FolderID = clone(l.FolderID)
	return l, ok
}

// Folders returns every folder by order_index
func (s *Store) Folders() []models.Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Folder, 0, len(s.folders))
	for _, f := range s.folders {
		out = append(out, f)
	}
	sortByIndex(out, func(f models.Folder) (int, string) { return f.OrderIndex, f.ID })
	return out
}

// Folder returns a folder by ID
func (s *Store) Folder(id string) (models.Folder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.folders[id]
	return f, ok
}

// Tags returns every tag by name
func (s *Store) Tags() []models.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Tag, 0, len(s.tags))
	for _, t := range s.tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !strings.EqualFold(out[i].Name, out[j].Name) {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// withTags returns a deep copy of t with its tags attached. Caller holds mu.
func (s *Store) withTags(t models.Task) models.Task {
	c := t.Clone()
	c.Tags = nil
	for _, id := range s.taskTags[t.ID] {
		if tag, ok := s.tags[id]; ok {
			c.Tags = append(c.Tags, tag)
		}
	}
	sort.Slice(c.Tags, func(i, j int) bool { return c.Tags[i].Name < c.Tags[j].Name })
	return c
}

// sortTasks orders by order_index, then creation time, then ID
func sortTasks(ts []models.Task) {
	sort.Slice(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		if a.OrderIndex != b.OrderIndex {
			return a.OrderIndex < b.OrderIndex
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func clone(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
