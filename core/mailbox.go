package core

import (
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// envelope is a message in transit together with its sender.
type envelope struct {
	sender  Handle
	message Message
}

// mailbox is an unbounded FIFO of envelopes for a single actor. Any number
// of goroutines may push; only the worker currently running the actor pops.
// Insertion order is delivery order, so messages from one sender to one
// receiver keep their order.
type mailbox struct {
	mu     sync.Mutex
	queue  *linkedlistqueue.Queue
	closed bool
}

func newMailbox() *mailbox {
	return &mailbox{queue: linkedlistqueue.New()}
}

// push appends env. It returns false once the mailbox is closed.
func (m *mailbox) push(env envelope) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.queue.Enqueue(env)
	return true
}

// pop removes the oldest envelope.
func (m *mailbox) pop() (envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.queue.Dequeue()
	if !ok {
		return envelope{}, false
	}
	return v.(envelope), true
}

func (m *mailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Size()
}

// close rejects further pushes and returns the number of envelopes that were
// still queued. Closing twice returns 0.
func (m *mailbox) close() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0
	}
	m.closed = true
	n := m.queue.Size()
	m.queue.Clear()
	return n
}
