package core

import (
	"sync"
	"sync/atomic"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// cell is the runtime-owned record of one actor.
type cell struct {
	handle   Handle
	kind     string
	behavior Behavior
	mailbox  *mailbox

	// alive is 1 until the actor is destroyed.
	alive int32

	// scheduled is 1 while the cell sits on the run queue or is being run by
	// a worker. It is what keeps a single actor on a single worker.
	scheduled int32
}

func newCell(h Handle, b Behavior) *cell {
	return &cell{
		handle:   h,
		kind:     kindOf(b),
		behavior: b,
		mailbox:  newMailbox(),
		alive:    1,
	}
}

func (c *cell) isAlive() bool {
	return atomic.LoadInt32(&c.alive) == 1
}

// runQueue is the unbounded queue of actors with pending work.
type runQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  *linkedlistqueue.Queue
	closed bool
}

func newRunQueue() *runQueue {
	q := &runQueue{queue: linkedlistqueue.New()}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *runQueue) push(c *cell) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.queue.Enqueue(c)
	q.cond.Signal()
}

// pop blocks until a cell is ready or the queue is closed.
func (q *runQueue) pop() (*cell, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.queue.Empty() && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return nil, false
	}
	v, _ := q.queue.Dequeue()
	return v.(*cell), true
}

func (q *runQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
