package store

// Position places a dragged item relative to its drop target
type Position int

const (
	Before Position = iota
	After
)

func (p Position) String() string {
	if p == After {
		return "after"
	}
	return "before"
}

// Reorder moves dragged next to target in ids and returns the new sequence;
// an item's new order_index is its position in the result. The target index
// is looked up after dragged is removed. ids is returned unchanged when
// either is missing or they are the same.
func Reorder(ids []string, dragged, target string, pos Position) []string {
	if dragged == target {
		return append([]string(nil), ids...)
	}
	rest := make([]string, 0, len(ids))
	found := false
	for _, id := range ids {
		if id == dragged {
			found = true
			continue
		}
		rest = append(rest, id)
	}
	at := -1
	for i, id := range rest {
		if id == target {
			at = i
			break
		}
	}
	if !found || at < 0 {
		return append([]string(nil), ids...)
	}
	if pos == After {
		at++
	}
	out := make([]string, 0, len(ids))
	out = append(out, rest[:at]...)
	out = append(out, dragged)
	return append(out, rest[at:]...)
}
