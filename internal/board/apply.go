package board

import "github.com/tgienger/pulse/internal/store"

// Apply hands a change effect to the store. completed reports a task moving
// into done. Effects that change nothing in the store return a nil Pending.
func Apply(s *store.Store, eff Effect) (p *store.Pending, completed bool) {
	switch e := eff.(type) {
	case Reorder:
		p = s.ReorderTasks(e.TaskID, e.TargetID, e.Position)
	case Reparent:
		p = s.Reparent(e.TaskID, e.ParentID)
	case RemoveParent:
		p = s.RemoveParent(e.TaskID)
	case MoveToList:
		p = s.MoveTaskToList(e.TaskID, e.ListID)
	case MoveListToFolder:
		p = s.MoveListToFolder(e.ListID, e.FolderID)
	case ReorderLists:
		p = s.ReorderLists(e.ListID, e.TargetID, e.Position)
	case ReorderFolders:
		p = s.ReorderFolders(e.FolderID, e.TargetID, e.Position)
	case ToggleDone:
		p, completed = s.ToggleDone(e.TaskID)
	case Delete:
		p = s.DeleteTask(e.TaskID)
	}
	return p, completed
}
