package store

import (
	"cmp"
	"slices"
	"strings"

	"github.com/tgienger/pulse/internal/models"
	"github.com/tgienger/pulse/internal/remote"
)

const defaultTagColor = "#7aa2f7"

// listsIn returns the lists of folderID in order. Caller holds mu.
func (s *Store) listsIn(folderID *string) []models.List {
	var out []models.List
	for _, l := range s.lists {
		if models.StrEq(l.FolderID, folderID) {
			out = append(out, l)
		}
	}
	sortByIndex(out, func(l models.List) (int, string) { return l.OrderIndex, l.ID })
	return out
}

func sortByIndex[T any](rows []T, k func(T) (int, string)) {
	slices.SortFunc(rows, func(a, b T) int {
		ai, aid := k(a)
		bi, bid := k(b)
		if c := cmp.Compare(ai, bi); c != 0 {
			return c
		}
		return strings.Compare(aid, bid)
	})
}

// CreateList adds a list at the end of folderID (nil for the root)
func (s *Store) CreateList(name string, folderID *string) (models.List, *Pending) {
	var created models.List
	p := s.change("create_list", "Couldn't create the list", func(p *plan) bool {
		name = strings.TrimSpace(name)
		if name == "" {
			return false
		}
		if folderID != nil {
			if _, ok := s.folders[*folderID]; !ok {
				return false
			}
		}
		next := 0
		for _, l := range s.listsIn(folderID) {
			next = max(next, l.OrderIndex+1)
		}
		l := models.List{ID: s.NewID(), Name: name, FolderID: clone(folderID), OrderIndex: next, CreatedAt: s.Now()}
		s.lists[l.ID] = l
		created = l
		p.add(key(kindList, l.ID), insertRow(remote.Lists, map[string]any{
			"id":          l.ID,
			"name":        l.Name,
			"folder_id":   nullable(l.FolderID),
			"order_index": l.OrderIndex,
			"created_at":  stamp(l.CreatedAt),
		}))
		return true
	})
	return created, p
}

// RenameList changes a list's name
func (s *Store) RenameList(id, name string) *Pending {
	return s.change("rename_list", "Couldn't rename the list", func(p *plan) bool {
		l, ok := s.lists[id]
		name = strings.TrimSpace(name)
		if !ok || name == "" || name == l.Name {
			return false
		}
		l.Name = name
		s.lists[id] = l
		p.add(key(kindList, id), updateRow(remote.Lists, id, map[string]any{"name": name}))
		return true
	})
}

// DeleteList removes a list; its tasks move to the inbox
func (s *Store) DeleteList(id string) *Pending {
	return s.change("delete_list", "Couldn't delete the list", func(p *plan) bool {
		if _, ok := s.lists[id]; !ok {
			return false
		}
		delete(s.lists, id)
		for _, t := range s.tasks {
			if t.ListID != nil && *t.ListID == id {
				t.ListID = nil
				s.tasks[t.ID] = t
				p.add(key(kindTask, t.ID), nil)
			}
		}
		if s.view.Kind == ViewList && s.view.ID == id {
			s.view = View{Kind: ViewAll, ShowDone: s.view.ShowDone}
		}
		p.add(key(kindList, id), deleteRow(remote.Lists, id))
		return true
	})
}

// MoveListToFolder moves a list to the end of folderID (nil for the root)
func (s *Store) MoveListToFolder(id string, folderID *string) *Pending {
	return s.change("move_list", "Couldn't move the list", func(p *plan) bool {
		l, ok := s.lists[id]
		if !ok || models.StrEq(l.FolderID, folderID) {
			return false
		}
		if folderID != nil {
			if _, ok := s.folders[*folderID]; !ok {
				return false
			}
		}
		next := 0
		for _, other := range s.listsIn(folderID) {
			next = max(next, other.OrderIndex+1)
		}
		l.FolderID = clone(folderID)
		l.OrderIndex = next
		s.lists[id] = l
		p.add(key(kindList, id), updateRow(remote.Lists, id, map[string]any{
			"folder_id":   nullable(folderID),
			"order_index": next,
		}))
		return true
	})
}

// ReorderLists places dragged before or after target within target's folder
func (s *Store) ReorderLists(dragged, target string, pos Position) *Pending {
	return s.change("reorder_lists", "Couldn't reorder the lists", func(p *plan) bool {
		if dragged == target {
			return false
		}
		d, ok1 := s.lists[dragged]
		t, ok2 := s.lists[target]
		if !ok1 || !ok2 {
			return false
		}
		regroup := !models.StrEq(d.FolderID, t.FolderID)
		var ids []string
		for _, l := range s.listsIn(t.FolderID) {
			ids = append(ids, l.ID)
		}
		if regroup {
			ids = append(ids, dragged)
			d.FolderID = clone(t.FolderID)
			s.lists[dragged] = d
		}
		for i, id := range Reorder(ids, dragged, target, pos) {
			l := s.lists[id]
			fields := map[string]any{}
			if l.OrderIndex != i {
				l.OrderIndex = i
				fields["order_index"] = i
			}
			if id == dragged && regroup {
				fields["folder_id"] = nullable(l.FolderID)
			}
			if len(fields) == 0 {
				continue
			}
			s.lists[id] = l
			p.add(key(kindList, id), updateRow(remote.Lists, id, fields))
		}
		return true
	})
}

// CreateFolder adds a folder at the end
func (s *Store) CreateFolder(name string) (models.Folder, *Pending) {
	var created models.Folder
	p := s.change("create_folder", "Couldn't create the folder", func(p *plan) bool {
		name = strings.TrimSpace(name)
		if name == "" {
			return false
		}
		next := 0
		for _, f := range s.folders {
			next = max(next, f.OrderIndex+1)
		}
		f := models.Folder{ID: s.NewID(), Name: name, OrderIndex: next, CreatedAt: s.Now()}
		s.folders[f.ID] = f
		created = f
		p.add(key(kindFolder, f.ID), insertRow(remote.Folders, map[string]any{
			"id":          f.ID,
			"name":        f.Name,
			"order_index": f.OrderIndex,
			"created_at":  stamp(f.CreatedAt),
		}))
		return true
	})
	return created, p
}

// RenameFolder changes a folder's name
func (s *Store) RenameFolder(id, name string) *Pending {
	return s.change("rename_folder", "Couldn't rename the folder", func(p *plan) bool {
		f, ok := s.folders[id]
		name = strings.TrimSpace(name)
		if !ok || name == "" || name == f.Name {
			return false
		}
		f.Name = name
		s.folders[id] = f
		p.add(key(kindFolder, id), updateRow(remote.Folders, id, map[string]any{"name": name}))
		return true
	})
}

// DeleteFolder removes a folder; its lists move to the root
func (s *Store) DeleteFolder(id string) *Pending {
	return s.change("delete_folder", "Couldn't delete the folder", func(p *plan) bool {
		if _, ok := s.folders[id]; !ok {
			return false
		}
		delete(s.folders, id)
		for _, l := range s.lists {
			if l.FolderID != nil && *l.FolderID == id {
				l.FolderID = nil
				s.lists[l.ID] = l
				p.add(key(kindList, l.ID), nil)
			}
		}
		if s.view.Kind == ViewFolder && s.view.ID == id {
			s.view = View{Kind: ViewAll, ShowDone: s.view.ShowDone}
		}
		p.add(key(kindFolder, id), deleteRow(remote.Folders, id))
		return true
	})
}

// ReorderFolders places dragged before or after target
func (s *Store) ReorderFolders(dragged, target string, pos Position) *Pending {
	return s.change("reorder_folders", "Couldn't reorder the folders", func(p *plan) bool {
		if dragged == target {
			return false
		}
		if _, ok := s.folders[dragged]; !ok {
			return false
		}
		if _, ok := s.folders[target]; !ok {
			return false
		}
		all := make([]models.Folder, 0, len(s.folders))
		for _, f := range s.folders {
			all = append(all, f)
		}
		sortByIndex(all, func(f models.Folder) (int, string) { return f.OrderIndex, f.ID })
		ids := make([]string, len(all))
		for i, f := range all {
			ids[i] = f.ID
		}
		for i, id := range Reorder(ids, dragged, target, pos) {
			f := s.folders[id]
			if f.OrderIndex == i {
				continue
			}
			f.OrderIndex = i
			s.folders[id] = f
			p.add(key(kindFolder, id), updateRow(remote.Folders, id, map[string]any{"order_index": i}))
		}
		return true
	})
}

// CreateTag adds a tag; an empty color gets the default
func (s *Store) CreateTag(name, color string) (models.Tag, *Pending) {
	var created models.Tag
	p := s.change("create_tag", "Couldn't create the tag", func(p *plan) bool {
		name = strings.TrimSpace(name)
		if name == "" {
			return false
		}
		if color == "" {
			color = defaultTagColor
		}
		t := models.Tag{ID: s.NewID(), Name: name, Color: color, CreatedAt: s.Now()}
		s.tags[t.ID] = t
		created = t
		p.add(key(kindTag, t.ID), insertRow(remote.Tags, map[string]any{
			"id":         t.ID,
			"name":       t.Name,
			"color":      t.Color,
			"created_at": stamp(t.CreatedAt),
		}))
		return true
	})
	return created, p
}

// UpdateTag renames or recolors a tag; empty arguments are kept
func (s *Store) UpdateTag(id, name, color string) *Pending {
	return s.change("update_tag", "Couldn't update the tag", func(p *plan) bool {
		t, ok := s.tags[id]
		if !ok {
			return false
		}
		fields := map[string]any{}
		if name = strings.TrimSpace(name); name != "" && name != t.Name {
			t.Name = name
			fields["name"] = name
		}
		if color != "" && color != t.Color {
			t.Color = color
			fields["color"] = color
		}
		if len(fields) == 0 {
			return false
		}
		s.tags[id] = t
		p.add(key(kindTag, id), updateRow(remote.Tags, id, fields))
		return true
	})
}

// DeleteTag removes a tag and its links to tasks
func (s *Store) DeleteTag(id string) *Pending {
	return s.change("delete_tag", "Couldn't delete the tag", func(p *plan) bool {
		if _, ok := s.tags[id]; !ok {
			return false
		}
		delete(s.tags, id)
		for taskID, ids := range s.taskTags {
			kept := ids[:0:0]
			for _, tagID := range ids {
				if tagID != id {
					kept = append(kept, tagID)
				}
			}
			if len(kept) == len(ids) {
				continue
			}
			if len(kept) == 0 {
				delete(s.taskTags, taskID)
			} else {
				s.taskTags[taskID] = kept
			}
			p.add(key(kindTaskTags, taskID), nil)
		}
		if s.view.Kind == ViewTag && s.view.ID == id {
			s.view = View{Kind: ViewAll, ShowDone: s.view.ShowDone}
		}
		p.add(key(kindTag, id), deleteRow(remote.Tags, id))
		return true
	})
}
