// Package eventbus is the in-process publish/subscribe hub used to fan
// cross-view state changes (counter updates, content edits) out to every
// open view without refetching. The bus is an explicit injected dependency,
// not a package-level singleton. Dispatch is synchronous, in registration
// order, and delivery is best-effort within the process only.
package eventbus

import (
	"sync"

	"go.uber.org/zap"
)

// Event names fanned out across views.
const (
	EventFavoriteChanged  = "favorite-changed"
	EventLikeChanged      = "like-changed"
	EventViewCountChanged = "view-count-changed"
	EventContentUpdated   = "content-updated"
	EventCommentsChanged  = "comments-changed"
)

// CounterChange is the payload for the counter events: subscribers apply
// Delta to their locally displayed count instead of refetching.
type CounterChange struct {
	ContentID string
	NewState  bool
	Delta     int
}

type Handler func(payload any)

// Subscription identifies a registered handler so it can be removed.
type Subscription struct {
	event string
	id    uint64
}

type entry struct {
	id uint64
	fn Handler
}

type Bus struct {
	log *zap.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]entry
}

func New(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{log: log, subs: make(map[string][]entry)}
}

// On registers a handler for event and returns its Subscription.
func (b *Bus) On(event string, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs[event] = append(b.subs[event], entry{id: b.nextID, fn: fn})
	return Subscription{event: event, id: b.nextID}
}

// Off removes a previously registered handler. Unknown subscriptions are a no-op.
func (b *Bus) Off(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.subs[sub.event]
	for i, e := range entries {
		if e.id == sub.id {
			b.subs[sub.event] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// RemoveAll drops every handler for event, or every handler on the bus when
// event is empty. Intended for teardown in tests and screen unmounts.
func (b *Bus) RemoveAll(event string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if event == "" {
		b.subs = make(map[string][]entry)
		return
	}
	delete(b.subs, event)
}

// Emit dispatches payload to every handler registered for event, in
// registration order, on the calling goroutine. A panicking handler is
// recovered and logged; the remaining handlers still run.
func (b *Bus) Emit(event string, payload any) {
	b.mu.RLock()
	entries := make([]entry, len(b.subs[event]))
	copy(entries, b.subs[event])
	b.mu.RUnlock()

	for _, e := range entries {
		b.dispatch(event, e, payload)
	}
}

func (b *Bus) dispatch(event string, e entry, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("eventbus: handler panic",
				zap.String("event", event), zap.Any("panic", r))
		}
	}()
	e.fn(payload)
}
