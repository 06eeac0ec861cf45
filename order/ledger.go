// Package order tracks server-confirmed orders and enforces the local
// rules around their lifecycle: the cancellation window for students and
// the forward status chain for admins. The local snapshot is only ever
// patched after the backend confirms a change; there are no optimistic
// updates.
package order

import (
	"context"
	"sync"
	"time"

	"github.com/canteenhq/canteen-go/core"
)

// CancellationWindow is how long after placement a student may cancel an
// order, and only while it is still in the placed status. Once the kitchen
// picks it up (preparing) the window is moot.
const CancellationWindow = 90 * time.Second

// API is the slice of the backend client the ledger uses.
type API interface {
	MyOrders(ctx context.Context) ([]core.Order, error)
	AllOrders(ctx context.Context) ([]core.Order, error)
	PlaceOrder(ctx context.Context, items []core.OrderItem, notes string) (core.Order, error)
	CancelOrder(ctx context.Context, id string) error
	UpdateOrderStatus(ctx context.Context, id string, status core.OrderStatus) error
}

// Ledger is the order ledger.
type Ledger struct {
	backend API
	logger  core.Logger
	now     func() time.Time

	mu     sync.RWMutex
	orders []core.Order
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the time source. Tests use it to sit on either side
// of the cancellation window without sleeping.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates an empty ledger.
func New(backend API, opts ...Option) *Ledger {
	l := &Ledger{
		backend: backend,
		logger:  &core.NoOpLogger{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FetchMine replaces the snapshot with the student's own orders.
func (l *Ledger) FetchMine(ctx context.Context) ([]core.Order, error) {
	orders, err := l.backend.MyOrders(ctx)
	if err != nil {
		return nil, err
	}
	l.replace(orders)
	return orders, nil
}

// FetchAll replaces the snapshot with every order (admin view).
func (l *Ledger) FetchAll(ctx context.Context) ([]core.Order, error) {
	orders, err := l.backend.AllOrders(ctx)
	if err != nil {
		return nil, err
	}
	l.replace(orders)
	return orders, nil
}

// Place submits the given item snapshots and records the confirmed order.
// The returned order carries the server's authoritative total.
func (l *Ledger) Place(ctx context.Context, items []core.OrderItem, notes string) (core.Order, error) {
	confirmed, err := l.backend.PlaceOrder(ctx, items, notes)
	if err != nil {
		return core.Order{}, err
	}

	l.mu.Lock()
	l.orders = append([]core.Order{confirmed}, l.orders...)
	l.mu.Unlock()

	l.logger.Info("Order placed", map[string]interface{}{
		"operation": "order_place",
		"order_id":  confirmed.ID,
		"total":     confirmed.Total,
	})
	return confirmed, nil
}

// Cancel cancels an order. The window check runs locally first so an
// obviously late request never reaches the backend; the backend remains
// the final authority for requests that pass.
func (l *Ledger) Cancel(ctx context.Context, id string) error {
	const op = "order.Cancel"

	ord, ok := l.Order(id)
	if !ok {
		return &core.ClientError{
			Op:      op,
			Kind:    "validation",
			ID:      id,
			Message: "No such order.",
			Err:     core.ErrNotFound,
		}
	}
	if ord.Status != core.StatusPlaced {
		return &core.ClientError{
			Op:      op,
			Kind:    "validation",
			ID:      id,
			Message: "This order can no longer be cancelled.",
			Err:     core.ErrTerminalStatus,
		}
	}
	if !l.CanCancel(ord) {
		return &core.ClientError{
			Op:      op,
			Kind:    "validation",
			ID:      id,
			Message: "The cancellation window for this order has passed.",
			Err:     core.ErrCancelWindowExpired,
		}
	}

	if err := l.backend.CancelOrder(ctx, id); err != nil {
		return err
	}
	l.patchStatus(id, core.StatusCancelled)

	l.logger.Info("Order cancelled", map[string]interface{}{
		"operation": "order_cancel",
		"order_id":  id,
	})
	return nil
}

// AdvanceStatus moves an order to the given status (admin only). The
// target must be a legal transition from the order's current status.
func (l *Ledger) AdvanceStatus(ctx context.Context, id string, target core.OrderStatus) error {
	const op = "order.AdvanceStatus"

	ord, ok := l.Order(id)
	if !ok {
		return &core.ClientError{
			Op:      op,
			Kind:    "validation",
			ID:      id,
			Message: "No such order.",
			Err:     core.ErrNotFound,
		}
	}
	if !ValidTransition(ord.Status, target) {
		if ord.Status.Terminal() {
			return &core.ClientError{
				Op:      op,
				Kind:    "validation",
				ID:      id,
				Message: "This order has already reached a final status.",
				Err:     core.ErrTerminalStatus,
			}
		}
		return &core.ClientError{
			Op:      op,
			Kind:    "validation",
			ID:      id,
			Message: "Orders move placed, preparing, ready, served in that sequence.",
			Err:     core.ErrValidation,
		}
	}

	if err := l.backend.UpdateOrderStatus(ctx, id, target); err != nil {
		return err
	}
	l.patchStatus(id, target)

	l.logger.Info("Order status updated", map[string]interface{}{
		"operation": "order_status",
		"order_id":  id,
		"status":    string(target),
	})
	return nil
}

// CanCancel reports whether the order is still inside its cancellation
// window and in the placed status.
func (l *Ledger) CanCancel(ord core.Order) bool {
	if ord.Status != core.StatusPlaced {
		return false
	}
	return l.now().Sub(ord.CreatedAt) < CancellationWindow
}

// CancellationTimeRemaining returns how much of the window is left, zero
// when it has passed or cancellation is not possible.
func (l *Ledger) CancellationTimeRemaining(ord core.Order) time.Duration {
	if ord.Status != core.StatusPlaced {
		return 0
	}
	remaining := CancellationWindow - l.now().Sub(ord.CreatedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// NextStatus returns the forward step in the fulfilment chain, or false
// when the status is terminal.
func NextStatus(s core.OrderStatus) (core.OrderStatus, bool) {
	switch s {
	case core.StatusPlaced:
		return core.StatusPreparing, true
	case core.StatusPreparing:
		return core.StatusReady, true
	case core.StatusReady:
		return core.StatusServed, true
	default:
		return "", false
	}
}

// ValidTransition reports whether from -> to is a legal status change:
// one forward step along the chain, or placed -> cancelled.
func ValidTransition(from, to core.OrderStatus) bool {
	if from == core.StatusPlaced && to == core.StatusCancelled {
		return true
	}
	next, ok := NextStatus(from)
	return ok && next == to
}

// Orders returns a snapshot copy in the backend's order (newest first).
func (l *Ledger) Orders() []core.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]core.Order, len(l.orders))
	copy(out, l.orders)
	return out
}

// Order looks up a single order by id.
func (l *Ledger) Order(id string) (core.Order, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, ord := range l.orders {
		if ord.ID == id {
			return ord, true
		}
	}
	return core.Order{}, false
}

// PendingOrders returns the orders still in flight (not served, not
// cancelled). This is the kitchen's working set.
func (l *Ledger) PendingOrders() []core.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []core.Order
	for _, ord := range l.orders {
		if !ord.Status.Terminal() {
			out = append(out, ord)
		}
	}
	return out
}

// OrdersCreatedToday returns the orders placed since local midnight.
func (l *Ledger) OrdersCreatedToday() []core.Order {
	now := l.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []core.Order
	for _, ord := range l.orders {
		if !ord.CreatedAt.Before(midnight) {
			out = append(out, ord)
		}
	}
	return out
}

// TodayRevenueTotal sums the confirmed totals of today's non-cancelled
// orders.
func (l *Ledger) TodayRevenueTotal() float64 {
	total := 0.0
	for _, ord := range l.OrdersCreatedToday() {
		if ord.Status != core.StatusCancelled {
			total += ord.Total
		}
	}
	return total
}

func (l *Ledger) replace(orders []core.Order) {
	l.mu.Lock()
	l.orders = orders
	l.mu.Unlock()
}

// patchStatus applies a backend-confirmed status change to the snapshot.
func (l *Ledger) patchStatus(id string, status core.OrderStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.orders {
		if l.orders[i].ID == id {
			l.orders[i].Status = status
			l.orders[i].UpdatedAt = l.now()
			return
		}
	}
}
