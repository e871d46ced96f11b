package core

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ping struct{ seq int }

func (ping) Selector() string { return "ping" }

type unknown struct{}

func (unknown) Selector() string { return "unknown" }

// recorder keeps every ping it receives, in order.
type recorder struct {
	seen []int
}

func (a *recorder) Receive(ctx *Context, msg Message) error {
	switch msg := msg.(type) {
	case ping:
		a.seen = append(a.seen, msg.seq)
		return nil
	default:
		return Unexpected(ctx, msg)
	}
}

func newTestRuntime(t *testing.T, opts Options) *Runtime {
	logger, _ := test.NewNullLogger()
	opts.ID = t.Name()
	opts.Logger = logrus.NewEntry(logger)
	r := New(opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, r.Shutdown(ctx))
	})
	return r
}

func waitFor(t *testing.T, r *Runtime) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, r.Wait(ctx))
}

func TestRuntime_SingleSenderOrder(t *testing.T) {
	r := newTestRuntime(t, Options{Workers: 4, Throughput: 3})

	rec := &recorder{}
	h := r.Spawn(rec)
	for i := 0; i < 1000; i++ {
		r.Send(h, ping{seq: i})
	}
	waitFor(t, r)

	require.Len(t, rec.seen, 1000)
	for i, seq := range rec.seen {
		require.Equal(t, i, seq)
	}

	stats := r.Stats()
	assert.Equal(t, uint64(1), stats.Spawned)
	assert.Equal(t, uint64(1000), stats.Delivered)
	assert.Equal(t, uint64(0), stats.Dropped)
	assert.Equal(t, int64(0), stats.InFlight)
}

func TestRuntime_PairwiseOrderAcrossSenders(t *testing.T) {
	r := newTestRuntime(t, Options{Workers: 8})

	const senders, perSender = 8, 200
	got := make(map[Handle][]int)
	sink := r.Spawn(BehaviorFunc(func(ctx *Context, msg Message) error {
		got[ctx.Sender()] = append(got[ctx.Sender()], msg.(ping).seq)
		return nil
	}))

	for i := 0; i < senders; i++ {
		h := r.Spawn(BehaviorFunc(func(ctx *Context, msg Message) error {
			for j := 0; j < perSender; j++ {
				ctx.Send(sink, ping{seq: j})
			}
			return nil
		}))
		r.Send(h, ping{})
	}
	waitFor(t, r)

	require.Len(t, got, senders)
	for sender, seqs := range got {
		require.Len(t, seqs, perSender, "sender %s", sender)
		for j, seq := range seqs {
			require.Equal(t, j, seq, "sender %s", sender)
		}
	}
}

func TestRuntime_OneMessageAtATime(t *testing.T) {
	r := newTestRuntime(t, Options{Workers: 8, Throughput: 1})

	var busy, overlaps int32
	count := 0
	h := r.Spawn(BehaviorFunc(func(ctx *Context, msg Message) error {
		if !atomic.CompareAndSwapInt32(&busy, 0, 1) {
			atomic.AddInt32(&overlaps, 1)
		}
		count++
		atomic.StoreInt32(&busy, 0)
		return nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				r.Send(h, ping{seq: j})
			}
		}()
	}
	wg.Wait()
	waitFor(t, r)

	assert.Equal(t, int32(0), atomic.LoadInt32(&overlaps))
	assert.Equal(t, 16*500, count)
}

func TestRuntime_SelfAndSpawn(t *testing.T) {
	r := newTestRuntime(t, Options{})

	var self, child, childSender Handle
	var parent Handle
	parent = r.Spawn(BehaviorFunc(func(ctx *Context, msg Message) error {
		self = ctx.Self()
		child = ctx.Spawn(BehaviorFunc(func(ctx *Context, msg Message) error {
			childSender = ctx.Sender()
			return nil
		}))
		ctx.Send(child, ping{})
		return nil
	}))
	r.Send(parent, ping{})
	waitFor(t, r)

	assert.Equal(t, parent, self)
	assert.True(t, child.IsValid())
	assert.NotEqual(t, parent, child)
	assert.Equal(t, parent, childSender)
	assert.Equal(t, uint64(2), r.Stats().Spawned)
}

func TestRuntime_DestroyIsIdempotent(t *testing.T) {
	r := newTestRuntime(t, Options{})

	var received int
	h := r.Spawn(BehaviorFunc(func(ctx *Context, msg Message) error {
		received++
		ctx.Destroy("done")
		ctx.Destroy("again")
		return nil
	}))
	r.Send(h, ping{seq: 1})
	waitFor(t, r)

	r.Destroy(h, "external")
	r.Send(h, ping{seq: 2})
	waitFor(t, r)

	assert.Equal(t, 1, received)
	stats := r.Stats()
	assert.Equal(t, uint64(1), stats.Destroyed)
	assert.Equal(t, 0, stats.Alive)
	assert.Equal(t, uint64(1), stats.Dropped)
}

func TestRuntime_DestroyDropsQueuedMessages(t *testing.T) {
	r := newTestRuntime(t, Options{Workers: 1, Throughput: 1})

	var received int
	h := r.Spawn(BehaviorFunc(func(ctx *Context, msg Message) error {
		received++
		if msg.(ping).seq == 0 {
			ctx.Destroy("first message")
		}
		return nil
	}))
	for i := 0; i < 10; i++ {
		r.Send(h, ping{seq: i})
	}
	waitFor(t, r)

	assert.Equal(t, 1, received)
	assert.Equal(t, uint64(9), r.Stats().Dropped)
	assert.Equal(t, int64(0), r.Stats().InFlight)
}

func TestRuntime_UnexpectedMessageIsFatal(t *testing.T) {
	r := newTestRuntime(t, Options{})

	h := r.Spawn(&recorder{})
	r.Send(h, unknown{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := r.Wait(ctx)
	require.Error(t, err)

	var unexpected UnexpectedMessageError
	require.True(t, errors.As(err, &unexpected))
	assert.Equal(t, "unknown", unexpected.Selector)
	assert.Equal(t, "recorder", unexpected.Kind)
	assert.Equal(t, h, unexpected.Actor)
	assert.Equal(t, err, r.Err())
}

func TestRuntime_PanicIsFatal(t *testing.T) {
	r := newTestRuntime(t, Options{})

	h := r.Spawn(BehaviorFunc(func(*Context, Message) error {
		panic("boom")
	}))
	r.Send(h, ping{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := r.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRuntime_WaitHonoursContext(t *testing.T) {
	r := newTestRuntime(t, Options{Workers: 1})

	h := r.Spawn(BehaviorFunc(func(ctx *Context, msg Message) error {
		ctx.Send(ctx.Self(), msg)
		return nil
	}))
	r.Send(h, ping{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Equal(t, context.DeadlineExceeded, r.Wait(ctx))
}

func TestRuntime_SendToUnknownHandle(t *testing.T) {
	r := newTestRuntime(t, Options{})

	r.Send(Handle{}, ping{})
	r.Send(Handle{id: 42}, ping{})
	waitFor(t, r)

	assert.Equal(t, uint64(2), r.Stats().Dropped)
}

func TestRuntime_Metrics(t *testing.T) {
	reg := prom.NewRegistry()
	r := newTestRuntime(t, Options{Registerer: reg})

	h := r.Spawn(&recorder{})
	for i := 0; i < 10; i++ {
		r.Send(h, ping{seq: i})
	}
	waitFor(t, r)
	r.Destroy(h, "done")
	r.Send(h, ping{})

	assert.Equal(t, float64(10), testutil.ToFloat64(r.metrics.delivered))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.metrics.dropped))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.metrics.spawned.WithLabelValues("recorder")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.metrics.destroyed.WithLabelValues("recorder")))

	// A second runtime with another id can share the registry.
	other := New(Options{ID: "other", Registerer: reg, Logger: r.opts.Logger})
	require.NoError(t, other.Shutdown(context.Background()))
}

func TestRuntime_WaitWakesEveryWaiter(t *testing.T) {
	r := newTestRuntime(t, Options{Workers: 2})

	gate := make(chan struct{})
	h := r.Spawn(BehaviorFunc(func(*Context, Message) error {
		<-gate
		return nil
	}))
	r.Send(h, ping{})

	const waiters = 4
	errs := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			errs <- r.Wait(ctx)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(gate)
	for i := 0; i < waiters; i++ {
		assert.NoError(t, <-errs)
	}
	assert.Equal(t, int64(0), r.Stats().InFlight)

	// The runtime becomes busy again after being idle.
	gate2 := make(chan struct{})
	r.Send(r.Spawn(BehaviorFunc(func(*Context, Message) error {
		<-gate2
		return nil
	})), ping{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, context.DeadlineExceeded, r.Wait(ctx))
	close(gate2)
	waitFor(t, r)
}

func TestRuntime_ShutdownTimeoutUnregistersMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	r := newTestRuntime(t, Options{Workers: 1, Registerer: reg})

	gate := make(chan struct{})
	defer close(gate)
	started := make(chan struct{})
	h := r.Spawn(BehaviorFunc(func(*Context, Message) error {
		close(started)
		<-gate
		return nil
	}))
	r.Send(h, ping{})
	<-started

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, context.DeadlineExceeded, r.Shutdown(ctx))

	families, err = reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}
