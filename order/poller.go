package order

import (
	"context"
	"sync"
	"time"

	"github.com/canteenhq/canteen-go/core"
)

// Poller periodically refreshes a ledger while an order view is active.
// Students poll their own orders every few seconds; the admin dashboard
// polls the full set at a slower rate. One poller runs per active view.
type Poller struct {
	fetch    func(ctx context.Context) error
	interval time.Duration
	logger   core.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewStudentPoller polls the student's own orders.
func NewStudentPoller(ledger *Ledger, interval time.Duration, logger core.Logger) *Poller {
	return newPoller(func(ctx context.Context) error {
		_, err := ledger.FetchMine(ctx)
		return err
	}, interval, logger)
}

// NewAdminPoller polls the full order set.
func NewAdminPoller(ledger *Ledger, interval time.Duration, logger core.Logger) *Poller {
	return newPoller(func(ctx context.Context) error {
		_, err := ledger.FetchAll(ctx)
		return err
	}, interval, logger)
}

func newPoller(fetch func(ctx context.Context) error, interval time.Duration, logger core.Logger) *Poller {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Poller{
		fetch:    fetch,
		interval: interval,
		logger:   logger,
	}
}

// Start begins polling until Stop is called or ctx is cancelled. An
// immediate fetch runs before the first tick. Starting a running poller
// is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go p.loop(pollCtx, done)
}

// Stop ends polling and waits for the loop to exit. Idempotent.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if err := p.fetch(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("Order poll failed", map[string]interface{}{
			"operation": "order_poll",
			"error":     err.Error(),
		})
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Failures keep the previous snapshot; the next tick tries again.
			if err := p.fetch(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn("Order poll failed", map[string]interface{}{
					"operation": "order_poll",
					"error":     err.Error(),
				})
			}
		}
	}
}
