package docstore

import (
	"context"
	"fmt"
	"sync"
)

// Ensure Memory implements Store.
var _ Store = (*Memory)(nil)

// Memory is an in-process Store. It backs tests and gives live views
// their subscription semantics without an external database.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]Data
	hub  *Hub
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]Data),
		hub:  NewHub(),
	}
}

// overlay stages a batch on top of the committed documents so a
// failing op leaves the store untouched.
type overlay struct {
	base    map[string]Data
	staged  map[string]Data
	deleted map[string]bool
}

func (o *overlay) Read(path string) (Data, bool, error) {
	if o.deleted[path] {
		return nil, false, nil
	}
	if doc, ok := o.staged[path]; ok {
		return clone(doc), true, nil
	}
	doc, ok := o.base[path]
	if !ok {
		return nil, false, nil
	}
	return clone(doc), true, nil
}

func (o *overlay) Write(path string, data Data) error {
	o.staged[path] = data
	delete(o.deleted, path)
	return nil
}

func (o *overlay) Remove(path string) error {
	delete(o.staged, path)
	o.deleted[path] = true
	return nil
}

// Apply commits the batch under one lock, all-or-nothing.
func (m *Memory) Apply(ctx context.Context, batch Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()

	o := &overlay{
		base:    m.docs,
		staged:  make(map[string]Data, len(batch)),
		deleted: make(map[string]bool),
	}
	changes, err := Stage(batch, o)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	for path := range o.deleted {
		delete(m.docs, path)
	}
	for path, doc := range o.staged {
		m.docs[path] = doc
	}

	// Publish before releasing the lock so concurrent batches deliver
	// their changes in commit order. Subscriber callbacks must not call
	// back into the store.
	m.hub.Publish(changes)
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the document at path.
func (m *Memory) Get(ctx context.Context, path string) (Data, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[path]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", path, ErrNotFound)
	}
	return clone(doc), nil
}

// List returns copies of the documents directly under collection.
func (m *Memory) List(ctx context.Context, collection string) (map[string]Data, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make(map[string]Data)
	for path, doc := range m.docs {
		if path != collection && matches(collection, path) {
			docs[ID(path)] = clone(doc)
		}
	}
	return docs, nil
}

// Subscribe delivers the current state as Added changes, then streams
// later mutations until the returned handle is called.
func (m *Memory) Subscribe(ctx context.Context, target string, fn func(Change)) (UnsubscribeFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Register and snapshot under the same read lock: any batch that
	// commits afterwards is blocked until the snapshot has been
	// delivered, so its changes arrive through the hub in order.
	m.mu.RLock()
	defer m.mu.RUnlock()

	unsubscribe := m.hub.Add(target, fn)
	for path, doc := range m.docs {
		if matches(target, path) {
			fn(Change{Type: Added, Path: path, Data: clone(doc)})
		}
	}
	return unsubscribe, nil
}

// Close releases nothing for the in-memory store.
func (m *Memory) Close() error { return nil }
