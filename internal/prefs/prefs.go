// Package prefs holds the calendar preferences of the signed-in user.
package prefs

import (
	"context"

	"github.com/bytedance/sonic"
)

const (
	MinPixelsPerHour = 20
	MaxPixelsPerHour = 200

	settingsKey = "calendar_prefs"
)

// Prefs are the calendar display preferences
type Prefs struct {
	PixelsPerHour  float64 `json:"pixels_per_hour"`
	WorkStartHour  int     `json:"work_start_hour"`
	WorkEndHour    int     `json:"work_end_hour"`
	HideNightHours bool    `json:"hide_night_hours"`
}

// Default returns the preferences of a fresh install
func Default() Prefs {
	return Prefs{PixelsPerHour: 60, WorkStartHour: 9, WorkEndHour: 18}
}

// Normalize clamps every field into its valid range
func (p Prefs) Normalize() Prefs {
	d := Default()
	if p.PixelsPerHour == 0 {
		p.PixelsPerHour = d.PixelsPerHour
	}
	p.PixelsPerHour = min(max(p.PixelsPerHour, MinPixelsPerHour), MaxPixelsPerHour)
	p.WorkStartHour = min(max(p.WorkStartHour, 0), 23)
	p.WorkEndHour = min(max(p.WorkEndHour, 1), 24)
	if p.WorkEndHour <= p.WorkStartHour {
		p.WorkStartHour, p.WorkEndHour = d.WorkStartHour, d.WorkEndHour
	}
	return p
}

// VisibleHours returns the hour window the calendar grid shows
func (p Prefs) VisibleHours() (from, to int) {
	if p.HideNightHours {
		return p.WorkStartHour, p.WorkEndHour
	}
	return 0, 24
}

// Store caches preferences on this machine
type Store interface {
	// Load returns false when nothing has been saved yet
	Load(ctx context.Context) (Prefs, bool, error)
	Save(ctx context.Context, p Prefs) error
}

// KV is a string key/value table such as the local settings database
type KV interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// KVStore keeps preferences as one JSON value in a KV table
type KVStore struct {
	kv KV
}

// NewKVStore creates a Store over kv
func NewKVStore(kv KV) *KVStore {
	return &KVStore{kv: kv}
}

func (s *KVStore) Load(_ context.Context) (Prefs, bool, error) {
	raw, err := s.kv.GetSetting(settingsKey)
	if err != nil || raw == "" {
		return Default(), false, err
	}
	p := Default()
	if err := sonic.UnmarshalString(raw, &p); err != nil {
		return Default(), false, err
	}
	return p.Normalize(), true, nil
}

func (s *KVStore) Save(_ context.Context, p Prefs) error {
	raw, err := sonic.MarshalString(p)
	if err != nil {
		return err
	}
	return s.kv.SetSetting(settingsKey, raw)
}
