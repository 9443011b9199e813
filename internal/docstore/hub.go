package docstore

import "sync"

// Hub fans committed changes out to subscribers. Store implementations
// embed one and publish after each successful batch.
type Hub struct {
	mu   sync.Mutex
	subs map[int]*hubSub
	next int
}

type hubSub struct {
	target string
	fn     func(Change)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]*hubSub)}
}

// Add registers a subscriber for changes matching target and returns
// its unsubscribe handle.
func (h *Hub) Add(target string, fn func(Change)) UnsubscribeFunc {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	h.subs[id] = &hubSub{target: target, fn: fn}

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// Publish delivers changes to every matching subscriber. Callbacks run
// on the publishing goroutine, after the batch has committed.
func (h *Hub) Publish(changes []Change) {
	h.mu.Lock()
	subs := make([]*hubSub, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, change := range changes {
		for _, sub := range subs {
			if matches(sub.target, change.Path) {
				sub.fn(Change{Type: change.Type, Path: change.Path, Data: clone(change.Data)})
			}
		}
	}
}
