package core

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Options contains configuration options for creating a Runtime.
type Options struct {
	// ID labels logs and metrics of this runtime.
	ID string

	// Workers is the number of goroutines dispatching messages.
	Workers int

	// Throughput is the number of messages a worker processes for one actor
	// before handing the actor back to the run queue.
	Throughput int

	// Logger is the parent logger; logrus.StandardLogger() if nil.
	Logger *logrus.Entry

	// Registerer receives the runtime metrics; metrics are disabled if nil.
	Registerer prom.Registerer
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		ID:         "runtime",
		Workers:    runtime.GOMAXPROCS(0),
		Throughput: 64,
	}
}

// Runtime owns the actor registry, the mailboxes and the workers that
// deliver messages. All of its methods are safe for concurrent use.
type Runtime struct {
	opts    Options
	log     *logrus.Entry
	metrics *metrics

	handles handleAllocator
	actors  registry
	ready   *runQueue
	wg      sync.WaitGroup

	// Atomic counters.
	inFlight  int64
	spawned   uint64
	destroyed uint64
	delivered uint64
	dropped   uint64
	stopped   int32

	// idle is closed while nothing is in flight and replaced once a message
	// is queued again.
	idleMu sync.Mutex
	idle   chan struct{}

	failed chan struct{}
	errMu  sync.Mutex
	err    error
}

// New creates a Runtime and starts its workers.
func New(opts Options) *Runtime {
	defaults := DefaultOptions()
	if opts.ID == "" {
		opts.ID = defaults.ID
	}
	if opts.Workers <= 0 {
		opts.Workers = defaults.Workers
	}
	if opts.Throughput <= 0 {
		opts.Throughput = defaults.Throughput
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	r := &Runtime{
		opts:    opts,
		log:     opts.Logger.WithField("runtime", opts.ID),
		metrics: newMetrics(opts.Registerer, opts.ID),
		ready:   newRunQueue(),
		idle:    make(chan struct{}),
		failed:  make(chan struct{}),
	}
	close(r.idle)

	r.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go r.worker()
	}

	r.log.WithField("workers", opts.Workers).Debug("runtime started")
	return r
}

// ID returns the runtime identifier.
func (r *Runtime) ID() string {
	return r.opts.ID
}

// Spawn registers a new actor running b and returns its handle. The actor
// does nothing until its first message arrives.
func (r *Runtime) Spawn(b Behavior) Handle {
	c := newCell(r.handles.next(), b)
	r.actors.register(c)
	atomic.AddUint64(&r.spawned, 1)
	r.metrics.spawn(c.kind)
	return c.handle
}

// Send enqueues msg on the target's mailbox from outside any actor.
func (r *Runtime) Send(to Handle, msg Message) {
	r.send(Handle{}, to, msg)
}

// Destroy marks the actor dead; messages queued for it are dropped. It is a
// no-op for unknown or already destroyed handles.
func (r *Runtime) Destroy(h Handle, reason string) {
	if c, ok := r.actors.lookup(h); ok {
		r.destroy(c, reason)
	}
}

// Wait blocks until no message is in flight, an actor fails, or ctx is done.
// It returns the first actor failure, if any.
func (r *Runtime) Wait(ctx context.Context) error {
	for {
		if err := r.Err(); err != nil {
			return err
		}
		idle := r.idleSignal()
		if atomic.LoadInt64(&r.inFlight) == 0 {
			return nil
		}
		select {
		case <-idle:
		case <-r.failed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Err returns the first fatal actor failure.
func (r *Runtime) Err() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.err
}

// Shutdown stops dispatching and waits for the workers to exit.
func (r *Runtime) Shutdown(ctx context.Context) error {
	atomic.StoreInt32(&r.stopped, 1)
	r.ready.close()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	defer r.metrics.unregister()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.WithFields(logrus.Fields(r.Stats().fields())).Debug("runtime stopped")
	return nil
}

// Stats returns a snapshot of the runtime counters.
func (r *Runtime) Stats() Stats {
	return Stats{
		Spawned:   atomic.LoadUint64(&r.spawned),
		Destroyed: atomic.LoadUint64(&r.destroyed),
		Alive:     r.actors.len(),
		Delivered: atomic.LoadUint64(&r.delivered),
		Dropped:   atomic.LoadUint64(&r.dropped),
		InFlight:  atomic.LoadInt64(&r.inFlight),
	}
}

func (s Stats) fields() map[string]interface{} {
	return map[string]interface{}{
		"spawned":   s.Spawned,
		"destroyed": s.Destroyed,
		"alive":     s.Alive,
		"delivered": s.Delivered,
		"dropped":   s.Dropped,
	}
}

func (r *Runtime) isStopped() bool {
	return atomic.LoadInt32(&r.stopped) == 1
}

func (r *Runtime) send(from, to Handle, msg Message) {
	if r.isStopped() {
		r.drop(1)
		return
	}
	c, ok := r.actors.lookup(to)
	if !ok {
		r.drop(1)
		return
	}

	if atomic.AddInt64(&r.inFlight, 1) == 1 {
		r.updateIdle()
	}
	if !c.mailbox.push(envelope{sender: from, message: msg}) {
		r.drop(1)
		r.settle(1)
		return
	}
	r.schedule(c)
}

func (r *Runtime) schedule(c *cell) {
	if atomic.CompareAndSwapInt32(&c.scheduled, 0, 1) {
		r.ready.push(c)
	}
}

func (r *Runtime) worker() {
	defer r.wg.Done()
	for {
		c, ok := r.ready.pop()
		if !ok {
			return
		}
		r.run(c)
	}
}

// run drains up to Throughput messages of one actor.
func (r *Runtime) run(c *cell) {
	for i := 0; i < r.opts.Throughput && !r.isStopped(); i++ {
		env, ok := c.mailbox.pop()
		if !ok {
			break
		}
		r.deliver(c, env)
		r.settle(1)
	}

	atomic.StoreInt32(&c.scheduled, 0)
	if c.mailbox.len() > 0 && !r.isStopped() {
		r.schedule(c)
	}
}

func (r *Runtime) deliver(c *cell, env envelope) {
	if !c.isAlive() {
		r.drop(1)
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.fail(errors.Errorf("actor %s (%s) panicked on %q: %v\n%s",
				c.handle, c.kind, env.message.Selector(), rec, debug.Stack()))
		}
	}()

	ctx := &Context{runtime: r, cell: c, sender: env.sender}
	end := r.metrics.time(c.kind)
	err := c.behavior.Receive(ctx, env.message)
	end()

	atomic.AddUint64(&r.delivered, 1)
	if err != nil {
		r.fail(errors.Wrapf(err, "actor %s (%s) failed on %q", c.handle, c.kind, env.message.Selector()))
	}
}

func (r *Runtime) destroy(c *cell, reason string) {
	if !atomic.CompareAndSwapInt32(&c.alive, 1, 0) {
		return
	}
	r.actors.release(c.handle)
	if n := c.mailbox.close(); n > 0 {
		r.drop(n)
		r.settle(n)
	}
	atomic.AddUint64(&r.destroyed, 1)
	r.metrics.destroy(c.kind)

	if r.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		r.log.WithFields(logrus.Fields{
			"actor":  c.handle.String(),
			"kind":   c.kind,
			"reason": reason,
		}).Trace("actor destroyed")
	}
}

func (r *Runtime) drop(n int) {
	atomic.AddUint64(&r.dropped, uint64(n))
	r.metrics.drop(n)
}

func (r *Runtime) settle(n int) {
	if atomic.AddInt64(&r.inFlight, -int64(n)) == 0 {
		r.updateIdle()
	}
}

// updateIdle makes the idle channel agree with the in-flight count. It runs
// after every transition through zero, so the last call to take the lock sees
// the settled count.
func (r *Runtime) updateIdle() {
	r.idleMu.Lock()
	defer r.idleMu.Unlock()

	closed := false
	select {
	case <-r.idle:
		closed = true
	default:
	}

	busy := atomic.LoadInt64(&r.inFlight) > 0
	switch {
	case busy && closed:
		r.idle = make(chan struct{})
	case !busy && !closed:
		close(r.idle)
	}
}

func (r *Runtime) idleSignal() <-chan struct{} {
	r.idleMu.Lock()
	defer r.idleMu.Unlock()
	return r.idle
}

// fail records the first fatal failure and halts dispatching.
func (r *Runtime) fail(err error) {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	if r.err != nil {
		return
	}
	r.err = err
	atomic.StoreInt32(&r.stopped, 1)
	close(r.failed)
	r.log.WithError(err).Error("actor run failed")
}

func (r *Runtime) String() string {
	return fmt.Sprintf("runtime %s", r.opts.ID)
}
