package prefs

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tgienger/pulse/internal/models"
	"github.com/tgienger/pulse/internal/remote"
)

// Remote is the slice of the collection client the mirror needs
type Remote interface {
	Select(ctx context.Context, collection string, q remote.Query, out any) error
	Upsert(ctx context.Context, collection string, rows any) error
}

// Syncer owns the current preferences: it saves them locally on every change
// and mirrors them to the user_settings collection after a quiet period.
type Syncer struct {
	store    Store
	remote   Remote
	debounce time.Duration
	log      log.FieldLogger

	mu      sync.Mutex
	current Prefs
	online  bool
	dirty   bool
	timer   *time.Timer
}

// NewSyncer creates a Syncer. remote may be nil to keep preferences local.
func NewSyncer(store Store, rem Remote, debounce time.Duration, logger log.FieldLogger) *Syncer {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if debounce <= 0 {
		debounce = time.Second
	}
	return &Syncer{store: store, remote: rem, debounce: debounce, log: logger, current: Default()}
}

// Load reads the locally cached preferences, falling back to defaults
func (s *Syncer) Load(ctx context.Context) Prefs {
	p, _, err := s.store.Load(ctx)
	if err != nil {
		s.log.WithError(err).Warn("prefs.load.failed")
		p = Default()
	}
	s.mu.Lock()
	s.current = p.Normalize()
	p = s.current
	s.mu.Unlock()
	return p
}

// Prefs returns the current preferences
func (s *Syncer) Prefs() Prefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set replaces the preferences, saves them locally and schedules the mirror
func (s *Syncer) Set(ctx context.Context, p Prefs) Prefs {
	p = p.Normalize()
	s.mu.Lock()
	s.current = p
	if s.online && s.remote != nil {
		s.dirty = true
		if s.timer == nil {
			s.timer = time.AfterFunc(s.debounce, s.push)
		} else {
			s.timer.Reset(s.debounce)
		}
	}
	s.mu.Unlock()

	if err := s.store.Save(ctx, p); err != nil {
		s.log.WithError(err).Warn("prefs.save.failed")
	}
	return p
}

// SignedIn enables the mirror and adopts the remote row when one exists
func (s *Syncer) SignedIn(ctx context.Context) (Prefs, error) {
	s.mu.Lock()
	s.online = true
	s.mu.Unlock()
	if s.remote == nil {
		return s.Prefs(), nil
	}

	var rows []models.Settings
	if err := s.remote.Select(ctx, remote.UserSettings, remote.Query{Limit: 1}, &rows); err != nil {
		return s.Prefs(), err
	}
	if len(rows) == 0 {
		return s.Prefs(), nil
	}
	r := rows[0]
	p := Prefs{
		PixelsPerHour:  r.PixelsPerHour,
		WorkStartHour:  r.WorkStartHour,
		WorkEndHour:    r.WorkEndHour,
		HideNightHours: r.HideNightHours,
	}.Normalize()

	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
	if err := s.store.Save(ctx, p); err != nil {
		s.log.WithError(err).Warn("prefs.save.failed")
	}
	return p, nil
}

// SignedOut stops mirroring; an unsent change is dropped
func (s *Syncer) SignedOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online = false
	s.dirty = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Flush sends a pending change now
func (s *Syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	p, send := s.current, s.dirty && s.online
	s.dirty = false
	s.mu.Unlock()
	if !send {
		return nil
	}
	return s.upsert(ctx, p)
}

func (s *Syncer) push() {
	s.mu.Lock()
	s.timer = nil
	p, send := s.current, s.dirty && s.online
	s.dirty = false
	s.mu.Unlock()
	if !send {
		return
	}
	if err := s.upsert(context.Background(), p); err != nil {
		s.log.WithError(err).Warn("prefs.mirror.failed")
	}
}

func (s *Syncer) upsert(ctx context.Context, p Prefs) error {
	return s.remote.Upsert(ctx, remote.UserSettings, map[string]any{
		"pixels_per_hour":  p.PixelsPerHour,
		"work_start_hour":  p.WorkStartHour,
		"work_end_hour":    p.WorkEndHour,
		"hide_night_hours": p.HideNightHours,
	})
}
