package store

import "strings"

const (
	kindTask     = "task"
	kindList     = "list"
	kindFolder   = "folder"
	kindTag      = "tag"
	kindTaskTags = "task_tags"
)

// mark is the version record of one row changed locally
type mark struct {
	applied uint64
	settled uint64 // 0 while the write is in flight
	writes  int
}

// guard keeps fetches from overwriting fresher local changes.
//
// A logical clock ticks on every optimistic change and on every settled write.
// A fetch that began at tick T keeps the local copy of a row whose write is
// still in flight or settled after T, since the response may predate it.
type guard struct {
	clock    uint64
	marks    map[string]*mark
	inflight map[uint64]int
}

func newGuard() *guard {
	return &guard{marks: map[string]*mark{}, inflight: map[uint64]int{}}
}

func key(kind, id string) string {
	return kind + ":" + id
}

// touch records a local change to every key
func (g *guard) touch(keys ...string) {
	g.clock++
	for _, k := range keys {
		m, ok := g.marks[k]
		if !ok {
			m = &mark{}
			g.marks[k] = m
		}
		m.applied = g.clock
		m.settled = 0
		m.writes++
	}
}

// settle records that the writes for keys finished, successfully or not
func (g *guard) settle(keys ...string) {
	g.clock++
	for _, k := range keys {
		m, ok := g.marks[k]
		if !ok {
			continue
		}
		if m.writes > 0 {
			m.writes--
		}
		if m.writes == 0 {
			m.settled = g.clock
		}
	}
	g.prune()
}

// begin registers a fetch and returns its start tick
func (g *guard) begin() uint64 {
	g.inflight[g.clock]++
	return g.clock
}

// end unregisters a fetch started at start
func (g *guard) end(start uint64) {
	if g.inflight[start] <= 1 {
		delete(g.inflight, start)
	} else {
		g.inflight[start]--
	}
	g.prune()
}

// protected returns the IDs of kind whose local copy must survive a fetch begun at start
func (g *guard) protected(kind string, start uint64) map[string]struct{} {
	out := map[string]struct{}{}
	prefix := kind + ":"
	for k, m := range g.marks {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if m.settled == 0 || m.settled > start {
			out[strings.TrimPrefix(k, prefix)] = struct{}{}
		}
	}
	return out
}

// prune drops settled marks that no running fetch could be older than
func (g *guard) prune() {
	oldest, running := uint64(0), false
	for start := range g.inflight {
		if !running || start < oldest {
			oldest, running = start, true
		}
	}
	for k, m := range g.marks {
		if m.settled == 0 {
			continue
		}
		if !running || m.settled <= oldest {
			delete(g.marks, k)
		}
	}
}

// size is the number of tracked rows
func (g *guard) size() int {
	return len(g.marks)
}
