// Package bus provides in-process resource subscriptions for hub consumers.
package bus

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// EventsURI is the resource every hub event is published on.
const EventsURI = "hub://events"

// ChannelURI returns the resource URI of one problem channel.
func ChannelURI(workspaceID, problemID string) string {
	return fmt.Sprintf("hub://workspaces/%s/channels/%s", workspaceID, problemID)
}

// WorkspaceURI returns the prefix shared by all resources of a workspace.
func WorkspaceURI(workspaceID string) string {
	return fmt.Sprintf("hub://workspaces/%s/", workspaceID)
}

// Update is delivered to subscribers of a resource.
type Update struct {
	URI     string `json:"uri"`
	Payload any    `json:"payload"`
}

// Callback receives resource updates. It runs on the publisher's goroutine.
type Callback func(Update)

type subscription struct {
	id     uint64
	prefix bool
	cb     Callback
}

// ResourceBus fans resource updates out to in-process subscribers.
type ResourceBus struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	nextID uint64
}

// NewResourceBus creates an empty bus.
func NewResourceBus() *ResourceBus {
	return &ResourceBus{subs: make(map[string][]subscription)}
}

// Subscribe registers a callback for one URI. A URI ending in "/" matches
// every resource below it. The returned function removes the subscription.
func (b *ResourceBus) Subscribe(uri string, callback Callback) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[uri] = append(b.subs[uri], subscription{id: id, prefix: strings.HasSuffix(uri, "/"), cb: callback})
	return func() { b.unsubscribe(uri, id) }
}

func (b *ResourceBus) unsubscribe(uri string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[uri]
	for i, s := range subs {
		if s.id == id {
			b.subs[uri] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[uri]) == 0 {
		delete(b.subs, uri)
	}
}

// Publish delivers payload to every subscriber of uri and returns the number
// of callbacks invoked. A panicking callback is logged and skipped.
func (b *ResourceBus) Publish(uri string, payload any) int {
	b.mu.RLock()
	var targets []Callback
	for key, subs := range b.subs {
		for _, s := range subs {
			if key == uri || (s.prefix && strings.HasPrefix(uri, key)) {
				targets = append(targets, s.cb)
			}
		}
	}
	b.mu.RUnlock()

	upd := Update{URI: uri, Payload: payload}
	for _, cb := range targets {
		deliver(cb, upd)
	}
	return len(targets)
}

// Subscribers returns the number of subscriptions registered for uri.
func (b *ResourceBus) Subscribers(uri string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[uri])
}

func deliver(cb Callback, upd Update) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("resource subscriber panicked", "uri", upd.URI, "panic", r)
		}
	}()
	cb(upd)
}
