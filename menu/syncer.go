package menu

import (
	"context"
	"sync"
	"time"

	"github.com/canteenhq/canteen-go/core"
)

// Mode identifies the active sync mechanism. Exactly one is active at a
// time: push while the live channel is up, polling while it is down, idle
// before start and after stop.
type Mode int

const (
	ModeIdle Mode = iota
	ModePush
	ModePolling
)

func (m Mode) String() string {
	switch m {
	case ModePush:
		return "push"
	case ModePolling:
		return "polling"
	default:
		return "idle"
	}
}

// Syncer keeps a Mirror fresh. Push delivery itself happens elsewhere (the
// live channel feeds ApplyPushUpdate directly); the syncer's job is owning
// the polling fallback and guaranteeing polling stops the moment push
// resumes.
type Syncer struct {
	mirror   *Mirror
	interval time.Duration
	logger   core.Logger

	mu     sync.Mutex
	mode   Mode
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSyncer creates an idle syncer polling at the given interval when in
// polling mode.
func NewSyncer(mirror *Mirror, interval time.Duration, logger core.Logger) *Syncer {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Syncer{
		mirror:   mirror,
		interval: interval,
		logger:   logger,
	}
}

// Mode returns the active sync mechanism.
func (s *Syncer) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// UsePush switches to push mode, stopping the polling loop if one is
// running. Called when the live channel (re)connects.
func (s *Syncer) UsePush() {
	s.mu.Lock()
	s.stopPollingLocked()
	s.mode = ModePush
	s.mu.Unlock()

	s.logger.Info("Menu sync switched to push", map[string]interface{}{
		"operation": "menu_sync",
	})
}

// UsePolling switches to interval polling. Called at start when the live
// channel is unavailable, and again when it drops. Starting polling while
// already polling is a no-op.
func (s *Syncer) UsePolling(ctx context.Context) {
	s.mu.Lock()
	if s.mode == ModePolling {
		s.mu.Unlock()
		return
	}
	s.stopPollingLocked()
	s.mode = ModePolling

	pollCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	s.logger.Info("Menu sync switched to polling", map[string]interface{}{
		"operation": "menu_sync",
		"interval":  s.interval.String(),
	})

	go s.pollLoop(pollCtx, done)
}

// Stop ends any polling loop and returns the syncer to idle.
func (s *Syncer) Stop() {
	s.mu.Lock()
	s.stopPollingLocked()
	s.mode = ModeIdle
	s.mu.Unlock()
}

// stopPollingLocked cancels a running poll loop and waits for it to exit.
// Callers hold s.mu.
func (s *Syncer) stopPollingLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *Syncer) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	// Refresh immediately on entering polling mode; the menu may have
	// changed while push was down.
	if err := s.mirror.Refresh(ctx); err != nil && ctx.Err() == nil {
		s.logger.Warn("Menu poll failed", map[string]interface{}{
			"operation": "menu_sync",
			"error":     err.Error(),
		})
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.mirror.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("Menu poll failed", map[string]interface{}{
					"operation": "menu_sync",
					"error":     err.Error(),
				})
			}
		}
	}
}
