// Package waiter implements workspace-scoped long-poll waits over hub events.
//
// A waiter suspends until a matching event arrives, then keeps collecting
// matching events until the coalescing window passes with no new event, so a
// burst is returned in one response.
package waiter

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/KafClaw/thoughthub/internal/model"
)

// Defaults used when the manager is built with zero values.
const (
	DefaultWindow  = 100 * time.Millisecond
	DefaultTimeout = 30 * time.Second
	MaxTimeout     = 55 * time.Second
)

// Filter selects the events a waiter receives.
type Filter struct {
	WorkspaceID string
	Types       []model.EventType
}

// Matches reports whether evt passes the filter.
func (f Filter) Matches(evt model.HubEvent) bool {
	if evt.WorkspaceID != f.WorkspaceID {
		return false
	}
	return len(f.Types) == 0 || slices.Contains(f.Types, evt.Type)
}

type waiter struct {
	filter Filter
	mu     sync.Mutex
	events []model.HubEvent
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (w *waiter) push(evt model.HubEvent) {
	w.mu.Lock()
	w.events = append(w.events, evt)
	w.mu.Unlock()
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *waiter) drain() []model.HubEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.events
	w.events = nil
	if out == nil {
		out = []model.HubEvent{}
	}
	return out
}

func (w *waiter) release() {
	w.once.Do(func() { close(w.done) })
}

// Manager owns the set of pending waiters.
type Manager struct {
	mu             sync.Mutex
	waiters        map[uint64]*waiter
	nextID         uint64
	window         time.Duration
	defaultTimeout time.Duration
	maxTimeout     time.Duration
}

// NewManager creates a wait manager. Zero durations fall back to the
// package defaults; maxTimeout never exceeds MaxTimeout.
func NewManager(window, defaultTimeout, maxTimeout time.Duration) *Manager {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxTimeout <= 0 || maxTimeout > MaxTimeout {
		maxTimeout = MaxTimeout
	}
	if defaultTimeout <= 0 || defaultTimeout > maxTimeout {
		defaultTimeout = min(DefaultTimeout, maxTimeout)
	}
	return &Manager{
		waiters:        make(map[uint64]*waiter),
		window:         window,
		defaultTimeout: defaultTimeout,
		maxTimeout:     maxTimeout,
	}
}

// Clamp maps a requested timeout onto (0, maxTimeout]; non-positive requests
// get the default.
func (m *Manager) Clamp(requested time.Duration) time.Duration {
	if requested <= 0 {
		return m.defaultTimeout
	}
	return min(requested, m.maxTimeout)
}

// Max returns the server-side timeout ceiling.
func (m *Manager) Max() time.Duration { return m.maxTimeout }

// Wait blocks until matching events were collected and the coalescing window
// elapsed, the timeout passed, or CleanupAll released the waiter. A timeout
// without events yields an empty slice and no error. Cancelling ctx returns
// whatever was buffered together with ctx.Err().
func (m *Manager) Wait(ctx context.Context, filter Filter, timeout time.Duration) ([]model.HubEvent, error) {
	w := &waiter{
		filter: filter,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.waiters[id] = w
	m.mu.Unlock()
	// Deregister before draining so no event lands in an abandoned buffer.
	finish := func() []model.HubEvent {
		m.remove(id)
		return w.drain()
	}

	deadline := time.NewTimer(m.Clamp(timeout))
	defer deadline.Stop()
	var coalesce *time.Timer
	var flush <-chan time.Time
	defer func() {
		if coalesce != nil {
			coalesce.Stop()
		}
	}()

	for {
		select {
		case <-w.signal:
			if coalesce == nil {
				coalesce = time.NewTimer(m.window)
				flush = coalesce.C
			} else {
				coalesce.Reset(m.window)
			}
		case <-flush:
			return finish(), nil
		case <-deadline.C:
			return finish(), nil
		case <-w.done:
			return finish(), nil
		case <-ctx.Done():
			return finish(), ctx.Err()
		}
	}
}

// Notify delivers evt to every matching waiter and returns how many matched.
// Delivery happens under the manager lock, so a waiter that has been removed
// never receives an event.
func (m *Manager) Notify(evt model.HubEvent) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, w := range m.waiters {
		if w.filter.Matches(evt) {
			w.push(evt)
			n++
		}
	}
	return n
}

// CleanupAll force-resolves every pending waiter with its buffered events.
// Used at shutdown.
func (m *Manager) CleanupAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.waiters {
		w.release()
	}
	return len(m.waiters)
}

// Pending returns the number of suspended waiters.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}

func (m *Manager) remove(id uint64) {
	m.mu.Lock()
	delete(m.waiters, id)
	m.mu.Unlock()
}
