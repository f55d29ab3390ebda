package state

import "sync"

// Change announces that a resource published a new state
type Change struct {
	Resource string
	Phase    Phase
}

// Notifier fans state changes out to subscribers. Delivery is best-effort:
// a subscriber whose buffer is full misses the event and is expected to
// re-read state on the next one it receives.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Change
}

// NewNotifier creates a notifier without subscribers
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Change)}
}

// Subscribe registers a listener. The returned func unsubscribes and closes the channel.
func (n *Notifier) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Change, buffer)

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = ch
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers c to every subscriber without blocking. Safe on a nil Notifier.
func (n *Notifier) Publish(c Change) {
	if n == nil {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- c:
		default:
		}
	}
}
