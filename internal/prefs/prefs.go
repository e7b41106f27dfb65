// Package prefs manages persisted view preferences: small key/value
// display settings that parallel the deal state but are not part of the
// reconciled entity. Preferences are loaded once at startup and saved
// explicitly; a shallow dirty-check against the last-saved snapshot
// gates the save action so a no-op save never hits the store.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// prefKey is the store key all view preferences live under, as one
// JSON object.
const prefKey = "view"

// ViewPrefs holds the display settings for the deal view. All fields
// are flat scalars so the dirty-check can be a field-by-field
// comparison rather than a structural walk.
type ViewPrefs struct {
	LendersExpanded bool   `json:"lenders_expanded"`
	NotesExpanded   bool   `json:"notes_expanded"`
	ShowInactive    bool   `json:"show_inactive"`
	ShowPassed      bool   `json:"show_passed"`
	SortKey         string `json:"sort_key"`
	SortDescending  bool   `json:"sort_descending"`
}

// DefaultViewPrefs returns the view settings for a first run.
func DefaultViewPrefs() ViewPrefs {
	return ViewPrefs{
		LendersExpanded: true,
		SortKey:         "position",
	}
}

// equal is the shallow field-by-field comparison driving the dirty
// flag. Kept explicit rather than reflect.DeepEqual so adding a
// non-comparable field forces a conscious decision here.
func (p ViewPrefs) equal(other ViewPrefs) bool {
	return p.LendersExpanded == other.LendersExpanded &&
		p.NotesExpanded == other.NotesExpanded &&
		p.ShowInactive == other.ShowInactive &&
		p.ShowPassed == other.ShowPassed &&
		p.SortKey == other.SortKey &&
		p.SortDescending == other.SortDescending
}

// Store is the persistence surface prefs needs. *store.SQLiteStore
// satisfies it.
type Store interface {
	LoadPref(ctx context.Context, key string) (string, bool, error)
	SavePref(ctx context.Context, key, value string) error
}

// Manager owns the live preference object and its last-saved snapshot.
// It is safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	live   ViewPrefs
	saved  ViewPrefs
	store  Store
	logger *slog.Logger
}

// NewManager loads preferences from the store, falling back to
// defaults when nothing has been saved yet. A corrupt stored value is
// logged and replaced with defaults rather than failing startup.
func NewManager(ctx context.Context, st Store, logger *slog.Logger) (*Manager, error) {
	m := &Manager{store: st, logger: logger}

	raw, found, err := st.LoadPref(ctx, prefKey)
	if err != nil {
		return nil, fmt.Errorf("loading view preferences: %w", err)
	}

	p := DefaultViewPrefs()

	if found {
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			logger.Warn("stored view preferences unreadable, using defaults", "error", err)

			p = DefaultViewPrefs()
		}
	}

	m.live = p
	m.saved = p

	logger.Debug("view preferences loaded", "found", found)

	return m, nil
}

// Current returns a copy of the live preference object.
func (m *Manager) Current() ViewPrefs {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.live
}

// Update replaces the live preference object. It does not persist;
// the caller saves explicitly when the user confirms the view.
func (m *Manager) Update(p ViewPrefs) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.live = p
}

// Modified reports whether the live preferences differ from the
// last-saved snapshot. This gates the save action.
func (m *Manager) Modified() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return !m.live.equal(m.saved)
}

// Save persists the live preferences if they differ from the saved
// snapshot. Returns true when a write happened.
func (m *Manager) Save(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.live.equal(m.saved) {
		return false, nil
	}

	raw, err := json.Marshal(m.live)
	if err != nil {
		return false, fmt.Errorf("encoding view preferences: %w", err)
	}

	if err := m.store.SavePref(ctx, prefKey, string(raw)); err != nil {
		return false, fmt.Errorf("saving view preferences: %w", err)
	}

	m.saved = m.live

	m.logger.Debug("view preferences saved")

	return true, nil
}
