package rx

import "sync"

// CompositeSubscription owns a dynamic set of child subscriptions so that
// aggregated resources (a timer plus a socket, say) release atomically with
// the subscription that needed them. Insertion order is not preserved.
type CompositeSubscription struct {
	mu       sync.Mutex
	disposed bool
	children map[Disposable]struct{}
}

func NewCompositeSubscription(children ...Disposable) *CompositeSubscription {
	c := &CompositeSubscription{children: make(map[Disposable]struct{})}
	for _, child := range children {
		c.Add(child)
	}
	return c
}

// Add retains child until the composite disposes. Adding to an already
// disposed composite disposes child immediately instead of retaining it.
func (c *CompositeSubscription) Add(child Disposable) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		child.Dispose()
		return
	}
	c.children[child] = struct{}{}
	c.mu.Unlock()
}

// Remove disposes child and evicts it from the set. Absent children are
// ignored.
func (c *CompositeSubscription) Remove(child Disposable) {
	c.mu.Lock()
	_, present := c.children[child]
	if present {
		delete(c.children, child)
	}
	c.mu.Unlock()
	if present {
		child.Dispose()
	}
}

func (c *CompositeSubscription) IsDisposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// Len reports the number of retained children.
func (c *CompositeSubscription) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.children)
}

// Dispose disposes every currently stored child exactly once, then clears
// the set. The set is snapshotted under the lock so a release action that
// reenters Add or Remove cannot corrupt iteration; a panicking child does
// not stop its siblings.
func (c *CompositeSubscription) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	snapshot := make([]Disposable, 0, len(c.children))
	for child := range c.children {
		snapshot = append(snapshot, child)
	}
	c.children = nil
	c.mu.Unlock()
	disposeAll(snapshot)
}
