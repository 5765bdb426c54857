// Package hub coordinates agents sharing one reasoning context: identities,
// workspaces, problems, proposals, consensus markers and channels layered on
// a branching thought chain.
package hub

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KafClaw/thoughthub/internal/bus"
	"github.com/KafClaw/thoughthub/internal/model"
	"github.com/KafClaw/thoughthub/internal/store"
	"github.com/KafClaw/thoughthub/internal/waiter"
)

// EventSink receives every emitted event. Deliver must not block.
type EventSink interface {
	Deliver(evt model.HubEvent)
}

// Options configures a Hub. Only Store is required.
type Options struct {
	Store  store.Store
	Waiter *waiter.Manager
	Bus    *bus.ResourceBus
	Now    func() time.Time
	NewID  func() string
	Sinks  []EventSink
	// PresenceRefresh is the minimum age of lastSeenAt before a workspace
	// call rewrites it.
	PresenceRefresh time.Duration
}

// Hub is one coordination service instance. All state lives in the store;
// the instance owns only locks, waiters and subscriptions.
type Hub struct {
	store   store.Store
	waiter  *waiter.Manager
	bus     *bus.ResourceBus
	now     func() time.Time
	newID   func() string
	refresh time.Duration

	rosterMu sync.Mutex
	locks    lockTable

	sinkMu sync.RWMutex
	sinks  []EventSink

	ops map[string]operation
}

// New creates a hub over opts.Store.
func New(opts Options) *Hub {
	h := &Hub{
		store:   opts.Store,
		waiter:  opts.Waiter,
		bus:     opts.Bus,
		now:     opts.Now,
		newID:   opts.NewID,
		refresh: opts.PresenceRefresh,
		sinks:   opts.Sinks,
	}
	if h.waiter == nil {
		h.waiter = waiter.NewManager(waiter.DefaultWindow, waiter.DefaultTimeout, waiter.MaxTimeout)
	}
	if h.bus == nil {
		h.bus = bus.NewResourceBus()
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.newID == nil {
		h.newID = uuid.NewString
	}
	if h.refresh <= 0 {
		h.refresh = 30 * time.Second
	}
	h.ops = h.operations()
	return h
}

// Waiter returns the long-poll manager.
func (h *Hub) Waiter() *waiter.Manager { return h.waiter }

// Bus returns the resource bus.
func (h *Hub) Bus() *bus.ResourceBus { return h.bus }

// Store returns the backing store.
func (h *Hub) Store() store.Store { return h.store }

// AddSink registers an event sink.
func (h *Hub) AddSink(s EventSink) {
	h.sinkMu.Lock()
	h.sinks = append(h.sinks, s)
	h.sinkMu.Unlock()
}

// Shutdown releases every pending waiter.
func (h *Hub) Shutdown() {
	if n := h.waiter.CleanupAll(); n > 0 {
		slog.Info("Released pending waiters", "count", n)
	}
}

func (h *Hub) clock() time.Time { return h.now().UTC() }

func (h *Hub) emit(events []model.HubEvent) {
	if len(events) == 0 {
		return
	}
	h.sinkMu.RLock()
	sinks := h.sinks
	h.sinkMu.RUnlock()
	for _, evt := range events {
		h.waiter.Notify(evt)
		h.bus.Publish(bus.EventsURI, evt)
		for _, s := range sinks {
			s.Deliver(evt)
		}
	}
}

// lockTable hands out one mutex per workspace.
type lockTable struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *lockTable) lock(workspaceID string) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*sync.Mutex)
	}
	mu, ok := l.m[workspaceID]
	if !ok {
		mu = &sync.Mutex{}
		l.m[workspaceID] = mu
	}
	l.mu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// lookup maps a store miss onto a NotFound hub error.
func lookup[T any](v *T, err error, what, id string) (*T, error) {
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound(what, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", what, id, err)
	}
	return v, nil
}
