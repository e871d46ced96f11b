package core

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Handle is an opaque, comparable reference to an actor instance.
// A Handle is never reused after the actor it denotes is destroyed.
type Handle struct {
	id uint64
}

// IsValid reports whether the handle denotes an actor at all.
func (h Handle) IsValid() bool {
	return h.id != 0
}

// String returns a string representation of the handle.
func (h Handle) String() string {
	if !h.IsValid() {
		return ":invalid"
	}
	return fmt.Sprintf(":%08x", h.id)
}

// handleAllocator hands out unique handles.
type handleAllocator struct {
	counter uint64
}

func (a *handleAllocator) next() Handle {
	return Handle{id: atomic.AddUint64(&a.counter, 1)}
}

// registry maps live handles to their actor cells.
type registry struct {
	cells sync.Map // map[Handle]*cell
	count int64
}

func (r *registry) register(c *cell) {
	r.cells.Store(c.handle, c)
	atomic.AddInt64(&r.count, 1)
}

func (r *registry) lookup(h Handle) (*cell, bool) {
	v, ok := r.cells.Load(h)
	if !ok {
		return nil, false
	}
	return v.(*cell), true
}

func (r *registry) release(h Handle) bool {
	if _, ok := r.cells.LoadAndDelete(h); !ok {
		return false
	}
	atomic.AddInt64(&r.count, -1)
	return true
}

func (r *registry) len() int {
	return int(atomic.LoadInt64(&r.count))
}
