package mixed

import (
	"github.com/najoast/actorbench/core"
)

type boot struct{}

func (boot) Selector() string { return "boot" }

type supervisorInit struct {
	left int64
}

func (supervisorInit) Selector() string { return "init" }

type masterInit struct {
	supervisor   core.Handle
	ringSize     int64
	initialToken int64
	repetitions  int64
}

func (masterInit) Selector() string { return "init" }

type workerInit struct {
	supervisor core.Handle
}

func (workerInit) Selector() string { return "init" }

type linkInit struct {
	next core.Handle
}

func (linkInit) Selector() string { return "init" }

type token struct {
	value int64
}

func (token) Selector() string { return "token" }

type calc struct {
	n uint64
}

func (calc) Selector() string { return "calc" }

type done struct{}

func (done) Selector() string { return "done" }

type masterDone struct{}

func (masterDone) Selector() string { return "masterdone" }

type factors struct {
	values []uint64
}

func (factors) Selector() string { return "result" }

// launcher creates the supervisor and one chain master per ring.
type launcher struct {
	run *run
}

func (l *launcher) Receive(ctx *core.Context, msg core.Message) error {
	switch msg.(type) {
	case boot:
		p := l.run.params
		sv := ctx.Spawn(&supervisor{run: l.run})
		ctx.Send(sv, supervisorInit{left: p.Messages()})
		for i := int64(0); i < p.NumRings; i++ {
			ctx.Send(ctx.Spawn(&chainMaster{run: l.run}), masterInit{
				supervisor:   sv,
				ringSize:     p.RingSize,
				initialToken: p.InitialToken,
				repetitions:  p.Repetitions,
			})
		}
		ctx.Destroy("launched")
		return nil
	default:
		return core.Unexpected(ctx, msg)
	}
}

// chainMaster owns one ring and its factorization worker. The ring is
// rebuilt for every repetition.
type chainMaster struct {
	run        *run
	supervisor core.Handle
	worker     core.Handle
	next       core.Handle

	ringSize     int64
	initialToken int64
	repetitions  int64
	iteration    int64
}

func (m *chainMaster) Receive(ctx *core.Context, msg core.Message) error {
	switch msg := msg.(type) {
	case masterInit:
		ctx.Debug("chain_master::init")
		m.supervisor = msg.supervisor
		m.ringSize = msg.ringSize
		m.initialToken = msg.initialToken
		m.repetitions = msg.repetitions
		m.worker = ctx.Spawn(&worker{run: m.run})
		ctx.Send(m.worker, workerInit{supervisor: m.supervisor})
		m.newRing(ctx)
	case token:
		ctx.Debug("chain_master::token")
		m.run.hop()
		if msg.value > 0 {
			ctx.Send(m.next, token{value: msg.value - 1})
			return nil
		}
		m.run.loop()
		if m.iteration++; m.iteration < m.repetitions {
			m.newRing(ctx)
			return nil
		}
		ctx.Send(m.worker, done{})
		ctx.Send(m.supervisor, masterDone{})
		ctx.Destroy("done")
	default:
		return core.Unexpected(ctx, msg)
	}
	return nil
}

// newRing hands the worker a new job, links ringSize-1 actors back to the
// master and injects the initial token at the far end.
func (m *chainMaster) newRing(ctx *core.Context) {
	ctx.Send(m.worker, calc{n: m.run.task.N})

	prev := ctx.Self()
	m.next = prev
	for i := int64(1); i < m.ringSize; i++ {
		m.next = ctx.Spawn(&chainLink{run: m.run})
		ctx.Send(m.next, linkInit{next: prev})
		prev = m.next
	}
	ctx.Send(m.next, token{value: m.initialToken})
}

type chainLink struct {
	run  *run
	next core.Handle
}

func (l *chainLink) Receive(ctx *core.Context, msg core.Message) error {
	switch msg := msg.(type) {
	case linkInit:
		ctx.Debug("chain_link::init")
		l.next = msg.next
	case token:
		ctx.Debug("chain_link::token")
		l.run.hop()
		ctx.Send(l.next, msg)
		if msg.value == 0 {
			ctx.Destroy("done")
		}
	default:
		return core.Unexpected(ctx, msg)
	}
	return nil
}

type worker struct {
	run        *run
	supervisor core.Handle
}

func (w *worker) Receive(ctx *core.Context, msg core.Message) error {
	switch msg := msg.(type) {
	case workerInit:
		ctx.Debug("worker::init")
		w.supervisor = msg.supervisor
	case calc:
		ctx.Debug("worker::calc")
		ctx.Send(w.supervisor, factors{values: Factorize(msg.n)})
	case done:
		ctx.Debug("worker::done")
		ctx.Destroy("done")
	default:
		return core.Unexpected(ctx, msg)
	}
	return nil
}

// supervisor counts down one completion per masterdone and per result.
type supervisor struct {
	run  *run
	left int64
}

func (s *supervisor) Receive(ctx *core.Context, msg core.Message) error {
	switch msg := msg.(type) {
	case supervisorInit:
		ctx.Debug("supervisor::init")
		s.left = msg.left
	case masterDone:
		ctx.Debug("supervisor::masterdone")
		s.countDown(ctx)
	case factors:
		ctx.Debug("supervisor::result")
		s.run.checked(equal(msg.values, s.run.task.Factors))
		s.countDown(ctx)
	default:
		return core.Unexpected(ctx, msg)
	}
	return nil
}

func (s *supervisor) countDown(ctx *core.Context) {
	if s.left <= 0 {
		s.run.underflow()
		return
	}
	s.left--
	s.run.counted(s.left)
	if s.left == 0 {
		ctx.Destroy("done")
	}
}

func equal(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
