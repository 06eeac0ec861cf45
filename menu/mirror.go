// Package menu maintains a read-optimized local mirror of the backend
// catalog. The mirror is replaced wholesale on every sync; the client never
// edits an entry in place, even for admin writes, which always round-trip
// through the backend and come back via a refresh.
package menu

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/canteenhq/canteen-go/api"
	"github.com/canteenhq/canteen-go/core"
)

// MenuItemInput and MenuItemUpdate alias the api package's payloads so the
// mirror's admin surface does not force callers to import both packages.
type (
	MenuItemInput  = api.MenuItemInput
	MenuItemUpdate = api.MenuItemUpdate
)

// API is the slice of the backend client the mirror uses.
type API interface {
	Menu(ctx context.Context) ([]core.MenuEntry, error)
	Categories(ctx context.Context) ([]core.Category, error)
	CreateMenuItem(ctx context.Context, in MenuItemInput) error
	UpdateMenuItem(ctx context.Context, id string, in MenuItemUpdate) error
	DeleteMenuItem(ctx context.Context, id string) error
}

// Mirror holds the current catalog snapshot.
type Mirror struct {
	backend API
	logger  core.Logger

	mu         sync.RWMutex
	entries    []core.MenuEntry
	categories []core.Category
	lastSynced time.Time
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(m *Mirror) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMirror creates an empty mirror. Call Refresh (or wire a Syncer) to
// populate it.
func NewMirror(backend API, opts ...Option) *Mirror {
	m := &Mirror{
		backend: backend,
		logger:  &core.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Refresh fetches the menu and categories and replaces the snapshot. On
// error the previous snapshot is kept; a stale menu beats an empty one.
func (m *Mirror) Refresh(ctx context.Context) error {
	entries, err := m.backend.Menu(ctx)
	if err != nil {
		m.logger.Warn("Menu refresh failed, keeping previous snapshot", map[string]interface{}{
			"operation": "menu_refresh",
			"error":     err.Error(),
		})
		return err
	}
	categories, err := m.backend.Categories(ctx)
	if err != nil {
		m.logger.Warn("Category refresh failed, keeping previous snapshot", map[string]interface{}{
			"operation": "menu_refresh",
			"error":     err.Error(),
		})
		return err
	}

	m.mu.Lock()
	m.entries = entries
	m.categories = categories
	m.lastSynced = time.Now()
	m.mu.Unlock()

	m.logger.Debug("Menu snapshot replaced", map[string]interface{}{
		"operation":  "menu_refresh",
		"items":      len(entries),
		"categories": len(categories),
	})
	return nil
}

// ApplyPushUpdate replaces the entry snapshot with a server-pushed menu.
// The payload is the full catalog, not a delta, so replacement is total.
func (m *Mirror) ApplyPushUpdate(entries []core.MenuEntry) {
	m.mu.Lock()
	m.entries = entries
	m.lastSynced = time.Now()
	m.mu.Unlock()

	m.logger.Debug("Menu snapshot replaced from push", map[string]interface{}{
		"operation": "menu_push",
		"items":     len(entries),
	})
}

// Items returns a copy of the current snapshot.
func (m *Mirror) Items() []core.MenuEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.MenuEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Item looks up a single entry by id.
func (m *Mirror) Item(id string) (core.MenuEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.ID == id {
			return e, true
		}
	}
	return core.MenuEntry{}, false
}

// ItemsByCategory filters the snapshot by category reference. The
// reference matches the category id exactly, or its slug or name
// case-insensitively, because callers hold whichever form the UI or CLI
// happened to capture.
func (m *Mirror) ItemsByCategory(ref string) []core.MenuEntry {
	if ref == "" {
		return m.Items()
	}
	lower := strings.ToLower(ref)

	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.MenuEntry
	for _, e := range m.entries {
		if e.Category.ID == ref ||
			strings.ToLower(e.Category.Slug) == lower ||
			strings.ToLower(e.Category.Name) == lower {
			out = append(out, e)
		}
	}
	return out
}

// AvailableItems returns only the entries currently marked available.
func (m *Mirror) AvailableItems() []core.MenuEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.MenuEntry
	for _, e := range m.entries {
		if e.Available {
			out = append(out, e)
		}
	}
	return out
}

// Categories returns a copy of the category list.
func (m *Mirror) Categories() []core.Category {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Category, len(m.categories))
	copy(out, m.categories)
	return out
}

// LastSynced reports when the snapshot was last replaced; zero if never.
func (m *Mirror) LastSynced() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSynced
}

// admin writes: each round-trips through the backend and then refreshes,
// so the snapshot only ever reflects confirmed state

// Create adds a menu item and refreshes the snapshot.
func (m *Mirror) Create(ctx context.Context, in MenuItemInput) error {
	if err := m.backend.CreateMenuItem(ctx, in); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// Update patches a menu item and refreshes the snapshot.
func (m *Mirror) Update(ctx context.Context, id string, in MenuItemUpdate) error {
	if err := m.backend.UpdateMenuItem(ctx, id, in); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// Delete removes a menu item and refreshes the snapshot.
func (m *Mirror) Delete(ctx context.Context, id string) error {
	if err := m.backend.DeleteMenuItem(ctx, id); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// ToggleAvailability flips an item's availability flag.
func (m *Mirror) ToggleAvailability(ctx context.Context, id string) error {
	entry, ok := m.Item(id)
	if !ok {
		return &core.ClientError{
			Op:      "menu.ToggleAvailability",
			Kind:    "validation",
			ID:      id,
			Message: "No such menu item.",
			Err:     core.ErrNotFound,
		}
	}
	available := !entry.Available
	return m.Update(ctx, id, MenuItemUpdate{Available: &available})
}
