package state

import "sync"

// Cell holds the last published DataState of one resource.
// Only the owning manager calls Set/Update; any goroutine may call Get.
type Cell[T any] struct {
	resource string
	notifier *Notifier

	mu      sync.RWMutex
	current DataState[T]
}

// NewCell creates an Idle cell. Changes are announced on n, which may be nil.
func NewCell[T any](resource string, n *Notifier) *Cell[T] {
	return &Cell[T]{
		resource: resource,
		notifier: n,
		current:  Idle[T](),
	}
}

// Get returns the current snapshot
func (c *Cell[T]) Get() DataState[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Set publishes s
func (c *Cell[T]) Set(s DataState[T]) {
	c.mu.Lock()
	c.current = s
	c.mu.Unlock()

	c.notifier.Publish(Change{Resource: c.resource, Phase: s.Phase()})
}

// Update publishes the result of fn applied to the current snapshot
func (c *Cell[T]) Update(fn func(DataState[T]) DataState[T]) {
	c.mu.Lock()
	next := fn(c.current)
	c.current = next
	c.mu.Unlock()

	c.notifier.Publish(Change{Resource: c.resource, Phase: next.Phase()})
}
