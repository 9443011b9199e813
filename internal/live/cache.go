package live

import (
	"context"
	"sync"

	"github.com/setil-app/backend/internal/docstore"
)

// Cache holds the live view of the group a caller is currently
// looking at. Loading the same id again returns the existing view;
// switching groups tears the old view's listeners down before the new
// ones are established. The cache is owned by its caller rather than
// being process-wide state.
type Cache struct {
	docs docstore.Store

	mu      sync.Mutex
	current *GroupView
}

// NewCache creates a cache over the given document store.
func NewCache(docs docstore.Store) *Cache {
	return &Cache{docs: docs}
}

// Load returns the live view for groupID, reusing the cached one when
// the id is unchanged.
func (c *Cache) Load(ctx context.Context, groupID string) (*GroupView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && c.current.GroupID() == groupID {
		return c.current, nil
	}

	// Cancel the previous group's listeners before subscribing anew.
	if c.current != nil {
		c.current.Close()
		c.current = nil
	}

	view, err := Open(ctx, c.docs, groupID)
	if err != nil {
		return nil, err
	}
	c.current = view
	return view, nil
}

// Invalidate drops the cached view, releasing its listeners. The next
// Load rebuilds the view from a fresh snapshot.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.current.Close()
		c.current = nil
	}
}
