package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canteenhq/canteen-go/core"
)

type fakeOrderAPI struct {
	mu     sync.Mutex
	mine   []core.Order
	all    []core.Order
	placed core.Order
	err    error

	mineCalls    int
	allCalls     int
	cancelCalls  int
	statusCalls  int
	lastStatus   core.OrderStatus
	lastStatusID string
}

func (f *fakeOrderAPI) MyOrders(ctx context.Context) ([]core.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mineCalls++
	return append([]core.Order(nil), f.mine...), f.err
}

func (f *fakeOrderAPI) AllOrders(ctx context.Context) ([]core.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allCalls++
	return append([]core.Order(nil), f.all...), f.err
}

func (f *fakeOrderAPI) PlaceOrder(ctx context.Context, items []core.OrderItem, notes string) (core.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.placed, f.err
}

func (f *fakeOrderAPI) CancelOrder(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	return f.err
}

func (f *fakeOrderAPI) UpdateOrderStatus(ctx context.Context, id string, status core.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	f.lastStatusID = id
	f.lastStatus = status
	return f.err
}

// fixedClock lets the tests sit at an exact offset from order creation.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func placedOrder(id string, createdAt time.Time) core.Order {
	return core.Order{
		ID:        id,
		Status:    core.StatusPlaced,
		Total:     95,
		CreatedAt: createdAt,
	}
}

func newTestLedger(t *testing.T, backend *fakeOrderAPI, clock *fixedClock) *Ledger {
	t.Helper()
	return New(backend, WithClock(clock.Now))
}

func TestCancelInsideWindow(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := &fixedClock{now: base}
	backend := &fakeOrderAPI{mine: []core.Order{placedOrder("ord-1", base)}}
	l := newTestLedger(t, backend, clock)

	_, err := l.FetchMine(ctx)
	require.NoError(t, err)

	// one second short of the window
	clock.Advance(89 * time.Second)
	require.NoError(t, l.Cancel(ctx, "ord-1"))
	assert.Equal(t, 1, backend.cancelCalls)

	ord, _ := l.Order("ord-1")
	assert.Equal(t, core.StatusCancelled, ord.Status, "snapshot patched after backend confirm")
}

func TestCancelAfterWindowExpires(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := &fixedClock{now: base}
	backend := &fakeOrderAPI{mine: []core.Order{placedOrder("ord-1", base)}}
	l := newTestLedger(t, backend, clock)

	_, err := l.FetchMine(ctx)
	require.NoError(t, err)

	clock.Advance(91 * time.Second)
	err = l.Cancel(ctx, "ord-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCancelWindowExpired)
	assert.Zero(t, backend.cancelCalls, "a late cancel never reaches the backend")
}

func TestCancelRequiresPlacedStatus(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := &fixedClock{now: base}

	preparing := placedOrder("ord-1", base)
	preparing.Status = core.StatusPreparing
	backend := &fakeOrderAPI{mine: []core.Order{preparing}}
	l := newTestLedger(t, backend, clock)

	_, err := l.FetchMine(ctx)
	require.NoError(t, err)

	// still inside 90s but the kitchen already has it
	clock.Advance(10 * time.Second)
	err = l.Cancel(ctx, "ord-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTerminalStatus)
	assert.Zero(t, backend.cancelCalls)
}

func TestCancelUnknownOrder(t *testing.T) {
	l := New(&fakeOrderAPI{})
	err := l.Cancel(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCancellationTimeRemaining(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := &fixedClock{now: base}
	l := New(&fakeOrderAPI{}, WithClock(clock.Now))

	ord := placedOrder("ord-1", base)
	clock.Advance(30 * time.Second)
	assert.Equal(t, 60*time.Second, l.CancellationTimeRemaining(ord))

	clock.Advance(2 * time.Minute)
	assert.Zero(t, l.CancellationTimeRemaining(ord))

	served := ord
	served.Status = core.StatusServed
	assert.Zero(t, l.CancellationTimeRemaining(served))
}

func TestPlaceRecordsConfirmedOrder(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := &fixedClock{now: base}
	backend := &fakeOrderAPI{
		mine:   []core.Order{placedOrder("ord-old", base.Add(-time.Hour))},
		placed: placedOrder("ord-new", base),
	}
	l := newTestLedger(t, backend, clock)
	_, err := l.FetchMine(ctx)
	require.NoError(t, err)

	confirmed, err := l.Place(ctx, []core.OrderItem{{ItemID: "m1", Qty: 2}}, "no onions")
	require.NoError(t, err)
	assert.Equal(t, "ord-new", confirmed.ID)
	assert.Equal(t, 95.0, confirmed.Total, "the server total is kept verbatim")

	orders := l.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, "ord-new", orders[0].ID, "newest first")
}

func TestPlaceFailureLeavesSnapshotAlone(t *testing.T) {
	ctx := context.Background()
	backend := &fakeOrderAPI{err: errors.New("out of stock")}
	l := New(backend)

	_, err := l.Place(ctx, []core.OrderItem{{ItemID: "m1", Qty: 1}}, "")
	require.Error(t, err)
	assert.Empty(t, l.Orders())
}

func TestAdvanceStatusForwardChain(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := &fixedClock{now: base}
	backend := &fakeOrderAPI{all: []core.Order{placedOrder("ord-1", base)}}
	l := newTestLedger(t, backend, clock)
	_, err := l.FetchAll(ctx)
	require.NoError(t, err)

	for _, step := range []core.OrderStatus{core.StatusPreparing, core.StatusReady, core.StatusServed} {
		require.NoError(t, l.AdvanceStatus(ctx, "ord-1", step))
		ord, _ := l.Order("ord-1")
		assert.Equal(t, step, ord.Status)
	}
	assert.Equal(t, 3, backend.statusCalls)
}

func TestAdvanceStatusRejectsSkips(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	backend := &fakeOrderAPI{all: []core.Order{placedOrder("ord-1", base)}}
	l := New(backend)
	_, err := l.FetchAll(ctx)
	require.NoError(t, err)

	err = l.AdvanceStatus(ctx, "ord-1", core.StatusReady)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Zero(t, backend.statusCalls)
}

func TestAdvanceStatusRejectsTerminal(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	served := placedOrder("ord-1", base)
	served.Status = core.StatusServed
	backend := &fakeOrderAPI{all: []core.Order{served}}
	l := New(backend)
	_, err := l.FetchAll(ctx)
	require.NoError(t, err)

	err = l.AdvanceStatus(ctx, "ord-1", core.StatusPreparing)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTerminalStatus)
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to core.OrderStatus
		want     bool
	}{
		{core.StatusPlaced, core.StatusPreparing, true},
		{core.StatusPlaced, core.StatusCancelled, true},
		{core.StatusPreparing, core.StatusReady, true},
		{core.StatusReady, core.StatusServed, true},
		{core.StatusPlaced, core.StatusReady, false},
		{core.StatusPreparing, core.StatusCancelled, false},
		{core.StatusServed, core.StatusReady, false},
		{core.StatusCancelled, core.StatusPlaced, false},
	}
	for _, tt := range tests {
		if got := ValidTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ValidTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestPendingOrders(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	served := placedOrder("ord-2", base)
	served.Status = core.StatusServed
	cancelled := placedOrder("ord-3", base)
	cancelled.Status = core.StatusCancelled

	backend := &fakeOrderAPI{all: []core.Order{placedOrder("ord-1", base), served, cancelled}}
	l := New(backend)
	_, err := l.FetchAll(ctx)
	require.NoError(t, err)

	pending := l.PendingOrders()
	require.Len(t, pending, 1)
	assert.Equal(t, "ord-1", pending[0].ID)
}

func TestTodayRevenueTotal(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := &fixedClock{now: base}

	yesterday := placedOrder("ord-0", base.Add(-24*time.Hour))
	today := placedOrder("ord-1", base.Add(-time.Hour))
	todayCancelled := placedOrder("ord-2", base.Add(-30*time.Minute))
	todayCancelled.Status = core.StatusCancelled

	backend := &fakeOrderAPI{all: []core.Order{yesterday, today, todayCancelled}}
	l := newTestLedger(t, backend, clock)
	_, err := l.FetchAll(ctx)
	require.NoError(t, err)

	assert.Len(t, l.OrdersCreatedToday(), 2)
	assert.InDelta(t, 95.0, l.TodayRevenueTotal(), 0.001, "cancelled orders earn nothing")
}
