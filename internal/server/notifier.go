package server

import (
	"sync"

	"github.com/leapstack-labs/leapetl/pkg/core"
)

// Notifier broadcasts finished runs to all subscribed listeners.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan *core.Run]struct{}
}

// NewNotifier creates a new Notifier instance.
func NewNotifier() *Notifier {
	return &Notifier{
		listeners: make(map[chan *core.Run]struct{}),
	}
}

// Subscribe returns a channel that receives finished runs.
// The caller must call Unsubscribe when done to prevent goroutine leaks.
func (n *Notifier) Subscribe() chan *core.Run {
	ch := make(chan *core.Run, 8)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan *core.Run) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Broadcast sends run to all listeners.
// Non-blocking: a listener whose buffer is full misses the run.
func (n *Notifier) Broadcast(run *core.Run) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- run:
		default:
		}
	}
}

// Len returns the number of subscribed listeners.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
