// Package cart is the local staging area for a prospective order. It never
// talks to the backend: checkout snapshots its lines into order items, and
// the ledger takes over from there.
package cart

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/canteenhq/canteen-go/core"
)

const (
	keyLines = "cart:lines"

	// keyPlacedOrder marks a confirmed order whose cart has not been
	// cleared yet. If the process dies between place and clear, restore
	// finds the marker and drops the stale cart instead of resurrecting
	// lines that were already turned into an order.
	keyPlacedOrder = "cart:placed_order"
)

// Store is the cart store. All mutations persist immediately (soft-fail)
// so the cart survives a restart.
type Store struct {
	storage core.Storage
	logger  core.Logger

	mu    sync.RWMutex
	lines []core.CartLine
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an empty cart store.
func New(storage core.Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		logger:  &core.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads the persisted cart. Corrupt data and lines with a
// non-positive quantity are discarded; a pending placed-order marker
// drops the whole cart (see keyPlacedOrder).
func (s *Store) Restore(ctx context.Context) {
	if marker, _ := s.storage.Get(ctx, keyPlacedOrder); marker != "" {
		s.logger.Warn("Dropping cart already submitted as an order", map[string]interface{}{
			"operation": "cart_restore",
			"order_id":  marker,
		})
		_ = s.storage.Delete(ctx, keyPlacedOrder)
		_ = s.storage.Delete(ctx, keyLines)
		return
	}

	raw, err := s.storage.Get(ctx, keyLines)
	if err != nil || raw == "" {
		return
	}

	var lines []core.CartLine
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		s.logger.Warn("Discarding unparseable persisted cart", map[string]interface{}{
			"operation": "cart_restore",
			"error":     err.Error(),
		})
		_ = s.storage.Delete(ctx, keyLines)
		return
	}

	kept := lines[:0]
	for _, line := range lines {
		if line.ItemID != "" && line.Quantity >= 1 {
			kept = append(kept, line)
		}
	}

	s.mu.Lock()
	s.lines = kept
	s.mu.Unlock()

	s.logger.Debug("Cart restored", map[string]interface{}{
		"operation": "cart_restore",
		"lines":     len(kept),
	})
}

// Add inserts a line with quantity 1, or bumps the quantity of the
// existing line for the same item. Always succeeds.
func (s *Store) Add(ctx context.Context, entry core.MenuEntry) {
	s.mu.Lock()
	found := false
	for i := range s.lines {
		if s.lines[i].ItemID == entry.ID {
			s.lines[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		s.lines = append(s.lines, core.CartLine{
			ItemID:   entry.ID,
			Name:     entry.Name,
			Price:    entry.Price,
			Quantity: 1,
			ImageURL: entry.ImageURL,
		})
	}
	s.mu.Unlock()

	s.persist(ctx)
}

// SetQuantity sets a line's quantity; n <= 0 removes the line entirely.
// No upper bound is enforced here - stock limits are a backend concern.
func (s *Store) SetQuantity(ctx context.Context, itemID string, n int) {
	if n <= 0 {
		s.Remove(ctx, itemID)
		return
	}

	s.mu.Lock()
	for i := range s.lines {
		if s.lines[i].ItemID == itemID {
			s.lines[i].Quantity = n
			break
		}
	}
	s.mu.Unlock()

	s.persist(ctx)
}

// Remove deletes a line if present; no-op otherwise.
func (s *Store) Remove(ctx context.Context, itemID string) {
	s.mu.Lock()
	for i := range s.lines {
		if s.lines[i].ItemID == itemID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.persist(ctx)
}

// Clear empties the cart and removes any placed-order marker. Called by
// the composition layer right after a confirmed order placement.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.lines = nil
	s.mu.Unlock()

	_ = s.storage.Delete(ctx, keyPlacedOrder)
	s.persist(ctx)
}

// MarkPlaced records that the current cart was confirmed as orderID.
// Callers invoke it between a successful placement and Clear, closing the
// crash window where a stale cart would point at an already-placed order.
func (s *Store) MarkPlaced(ctx context.Context, orderID string) {
	if err := s.storage.Set(ctx, keyPlacedOrder, orderID, 0); err != nil {
		s.logger.Error("Failed to persist placed-order marker", map[string]interface{}{
			"operation": "cart_persist",
			"order_id":  orderID,
			"error":     err.Error(),
		})
	}
}

// Quantity returns the quantity staged for an item, zero when absent.
func (s *Store) Quantity(itemID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, line := range s.lines {
		if line.ItemID == itemID {
			return line.Quantity
		}
	}
	return 0
}

// Lines returns a snapshot copy in insertion order.
func (s *Store) Lines() []core.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// LineCount is the number of distinct lines.
func (s *Store) LineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines)
}

// TotalItemCount is the sum of quantities across lines.
func (s *Store) TotalItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, line := range s.lines {
		total += line.Quantity
	}
	return total
}

// TotalAmount is the display total (price x quantity summed). It is never
// used for settlement; the server's confirmed total is authoritative.
func (s *Store) TotalAmount() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0.0
	for _, line := range s.lines {
		total += line.Price * float64(line.Quantity)
	}
	return total
}

// OrderItems snapshots the cart into order-item records for checkout.
// The snapshots share nothing with the cart lines, so later cart mutation
// cannot touch a submitted order.
func (s *Store) OrderItems() []core.OrderItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]core.OrderItem, 0, len(s.lines))
	for _, line := range s.lines {
		items = append(items, core.OrderItem{
			ItemID: line.ItemID,
			Name:   line.Name,
			Price:  line.Price,
			Qty:    line.Quantity,
		})
	}
	return items
}

// persist writes the current lines; failures are logged and the in-memory
// mutation stands.
func (s *Store) persist(ctx context.Context) {
	s.mu.RLock()
	data, err := json.Marshal(s.lines)
	s.mu.RUnlock()
	if err == nil {
		err = s.storage.Set(ctx, keyLines, string(data), 0)
	}
	if err != nil {
		s.logger.Error("Failed to persist cart", map[string]interface{}{
			"operation": "cart_persist",
			"error":     err.Error(),
		})
	}
}
