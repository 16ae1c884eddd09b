package store

import (
	"context"

	log "github.com/sirupsen/logrus"
)

type write func(ctx context.Context, r Remote) error

// Pending is an optimistic change already visible locally whose writes have
// not been sent yet. A nil *Pending means the change was rejected.
type Pending struct {
	store  *Store
	op     string
	failed string
	keys   []string
	writes []write
}

// Op names the change for logs
func (p *Pending) Op() string {
	if p == nil {
		return ""
	}
	return p.op
}

// Commit sends the writes in order, stopping at the first failure, then
// refetches in the background. A failure is reported as a Notice and the
// refetch corrects the local state. No rollback is attempted.
func (p *Pending) Commit(ctx context.Context) error {
	if p == nil {
		return nil
	}
	s := p.store
	if len(p.writes) == 0 {
		s.settle(p.keys)
		return nil
	}

	var err error
	for _, w := range p.writes {
		if err = w(ctx, s.remote); err != nil {
			break
		}
	}
	s.settle(p.keys)

	entry := s.log.WithFields(log.Fields{"op": p.op, "writes": len(p.writes)})
	if err != nil {
		entry.WithError(err).Warn("store.commit.failed")
		s.notify(Error, p.failed)
	} else {
		entry.Debug("store.commit.done")
	}

	// the refetch reports its own failure and outlives a cancelled write
	_ = s.FetchAll(context.WithoutCancel(ctx), true)
	return err
}

// plan is what an optimistic change will send
type plan struct {
	keys   []string
	writes []write
}

func (p *plan) add(k string, w write) {
	p.keys = append(p.keys, k)
	if w != nil {
		p.writes = append(p.writes, w)
	}
}

// change applies fn under the write lock and marks the keys it reports.
// fn returning false rejects the change and must leave state untouched.
func (s *Store) change(op, failed string, fn func(p *plan) bool) *Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	var p plan
	if !fn(&p) {
		return nil
	}
	s.guard.touch(p.keys...)
	return &Pending{store: s, op: op, failed: failed, keys: p.keys, writes: p.writes}
}

func (s *Store) settle(keys []string) {
	s.mu.Lock()
	s.guard.settle(keys...)
	s.mu.Unlock()
}
