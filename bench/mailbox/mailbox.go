// Package mailbox implements the mailbox throughput benchmark: many senders
// flood a single receiver that counts every message exactly once.
package mailbox

import (
	"context"
	"math"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/najoast/actorbench/bench"
	"github.com/najoast/actorbench/core"
)

// Name identifies the workload.
const Name = "mailbox_performance"

// Params configure one run.
type Params struct {
	Senders  int64
	Messages int64
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.Senders < 1 {
		return errors.Errorf("num_senders must be positive, got %d", p.Senders)
	}
	if p.Messages < 1 {
		return errors.Errorf("num_msgs must be positive, got %d", p.Messages)
	}
	if p.Senders > math.MaxInt64/p.Messages {
		return errors.Errorf("num_senders * num_msgs overflows (%d * %d)", p.Senders, p.Messages)
	}
	return nil
}

// Total is the number of messages the receiver must count.
func (p Params) Total() int64 {
	return p.Senders * p.Messages
}

// Result of a mailbox run.
type Result struct {
	Expected    int64
	Received    int64
	Transitions int
}

// OK implements bench.Result.
func (r *Result) OK() bool {
	return r.Transitions == 1 && r.Received == r.Expected
}

// Fields implements bench.Result.
func (r *Result) Fields() logrus.Fields {
	return logrus.Fields{
		"expected":    r.Expected,
		"received":    r.Received,
		"transitions": r.Transitions,
	}
}

type run struct {
	params Params

	mu  sync.Mutex
	res Result
}

func (r *run) terminal(count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.res.Received = count
	r.res.Transitions++
}

func (r *run) result() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.res
	res.Expected = r.params.Total()
	return &res
}

// Execute floods one receiver from p.Senders senders and waits until every
// message was handled.
func Execute(ctx context.Context, rt *core.Runtime, p Params, sink bench.Sink) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	r := &run{params: p}
	rt.Send(rt.Spawn(&launcher{run: r}), boot{senders: p.Senders, messages: p.Messages})

	if err := rt.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "mailbox")
	}
	res := r.result()
	if res.Transitions == 0 {
		return nil, errors.Errorf("mailbox: runtime idle before the receiver reached %d", res.Expected)
	}
	if !res.OK() {
		sink.Emit("ERROR")
	}
	return res, nil
}

// Workload adapts Execute to bench.Workload.
type Workload struct{}

// New returns the workload.
func New() *Workload {
	return &Workload{}
}

// Name implements bench.Workload.
func (w *Workload) Name() string { return Name }

// Fields implements bench.Workload.
func (w *Workload) Fields() []string { return []string{"num_senders", "num_msgs"} }

// Defaults implements bench.Workload.
func (w *Workload) Defaults() []int64 { return []int64{20, 1000000} }

// Run implements bench.Workload.
func (w *Workload) Run(ctx context.Context, rt *core.Runtime, args []int64, sink bench.Sink) (bench.Result, error) {
	if err := bench.CheckArity(w, args); err != nil {
		return nil, err
	}
	res, err := Execute(ctx, rt, Params{Senders: args[0], Messages: args[1]}, sink)
	if err != nil {
		return nil, err
	}
	return res, nil
}
