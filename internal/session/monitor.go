package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultCheckInterval is how often the liveness check runs.
const DefaultCheckInterval = time.Minute

// Monitor runs a liveness check on a fixed interval until stopped. Ticks come
// from the injected clock.
type Monitor struct {
	clock    clockwork.Clock
	interval time.Duration
	check    func(context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor constructs a Monitor. It does nothing until Start.
func NewMonitor(clock clockwork.Clock, interval time.Duration, check func(context.Context)) *Monitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Monitor{clock: clock, interval: interval, check: check}
}

// Start schedules the check. Calling Start while the monitor is running is a
// no-op and returns false. After ctx ends the monitor must be stopped before it
// can be started again.
func (m *Monitor) Start(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	ticker := m.clock.NewTicker(m.interval)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	go m.run(ctx, ticker, done)
	return true
}

// Stop cancels the schedule and waits for an in-flight check to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether Start has been called without a matching Stop.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

func (m *Monitor) run(ctx context.Context, ticker clockwork.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if m.check != nil {
				m.check(ctx)
			}
		}
	}
}

// WatchExpiry returns a check that calls onExpired once each time the store's
// session goes from valid to invalid.
func WatchExpiry(store *Store, onExpired func()) func(context.Context) {
	var (
		mu    sync.Mutex
		armed bool
	)
	return func(ctx context.Context) {
		valid := store.IsValidSession(ctx)
		mu.Lock()
		fire := armed && !valid
		armed = valid
		mu.Unlock()
		if fire && onExpired != nil {
			onExpired()
		}
	}
}
