// Package mixed implements the mixed benchmark: rings of actors circulate a
// count-down token while a factorization worker per ring keeps a core busy,
// and a supervisor counts the completions and checks every factorization.
package mixed

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/najoast/actorbench/bench"
	"github.com/najoast/actorbench/core"
)

// Name identifies the workload.
const Name = "mixed_case"

// Diagnostics emitted by the supervisor.
const (
	Okay      = "OKAY"
	Error     = "ERROR"
	Underflow = "supervisor counter underflow"
)

// Task is the number every worker factorizes and its expected factors.
type Task struct {
	N       uint64
	Factors []uint64
}

// DefaultTask is the factorization of TaskN.
var DefaultTask = Task{N: TaskN, Factors: []uint64{Factor1, Factor2}}

// Params configure one run.
type Params struct {
	NumRings     int64
	RingSize     int64
	InitialToken int64
	Repetitions  int64

	// Task defaults to DefaultTask.
	Task Task
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.NumRings < 1 {
		return errors.Errorf("num_rings must be positive, got %d", p.NumRings)
	}
	if p.RingSize < 1 {
		return errors.Errorf("ring_size must be positive, got %d", p.RingSize)
	}
	if p.InitialToken < 0 {
		return errors.Errorf("initial_token must not be negative, got %d", p.InitialToken)
	}
	if p.Repetitions < 1 {
		return errors.Errorf("repetitions must be positive, got %d", p.Repetitions)
	}
	return nil
}

func (p Params) task() Task {
	if p.Task.N == 0 && len(p.Task.Factors) == 0 {
		return DefaultTask
	}
	return p.Task
}

// Messages is the number of completions the supervisor waits for: one
// masterdone per ring plus one result per repetition of every ring.
func (p Params) Messages() int64 {
	return p.NumRings + p.NumRings*p.Repetitions
}

// ExpectedLoops is the number of ring loops over all masters.
func (p Params) ExpectedLoops() int64 {
	return p.NumRings * p.Repetitions
}

// ExpectedHops is the number of token messages handled by masters and
// links: every token value travels the whole ring once.
func (p Params) ExpectedHops() int64 {
	return p.ExpectedLoops() * p.RingSize * (p.InitialToken + 1)
}

// Result of a mixed run.
type Result struct {
	Loops       int64
	Hops        int64
	Okay        int
	Errors      int
	Underflows  int
	Transitions int
	Left        int64

	ExpectedLoops int64
	ExpectedHops  int64
}

// OK implements bench.Result.
func (r *Result) OK() bool {
	return r.Transitions == 1 && r.Left == 0 &&
		r.Errors == 0 && r.Underflows == 0 &&
		r.Loops == r.ExpectedLoops && r.Hops == r.ExpectedHops
}

// Fields implements bench.Result.
func (r *Result) Fields() logrus.Fields {
	return logrus.Fields{
		"loops":       r.Loops,
		"hops":        r.Hops,
		"okay":        r.Okay,
		"errors":      r.Errors,
		"underflows":  r.Underflows,
		"transitions": r.Transitions,
		"left":        r.Left,
	}
}

type run struct {
	params Params
	task   Task
	sink   bench.Sink

	loops int64
	hops  int64

	mu  sync.Mutex
	res Result
}

func (r *run) hop() {
	atomic.AddInt64(&r.hops, 1)
}

func (r *run) loop() {
	atomic.AddInt64(&r.loops, 1)
}

// checked records one factorization check and emits its verdict.
func (r *run) checked(ok bool) {
	line := Error
	r.mu.Lock()
	if ok {
		r.res.Okay++
		line = Okay
	} else {
		r.res.Errors++
	}
	r.mu.Unlock()
	r.sink.Emit(line)
}

func (r *run) underflow() {
	r.mu.Lock()
	r.res.Underflows++
	r.mu.Unlock()
	r.sink.Emit(Underflow)
}

func (r *run) counted(left int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.res.Left = left
	if left == 0 {
		r.res.Transitions++
	}
}

func (r *run) result() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.res
	res.Loops = atomic.LoadInt64(&r.loops)
	res.Hops = atomic.LoadInt64(&r.hops)
	res.ExpectedLoops = r.params.ExpectedLoops()
	res.ExpectedHops = r.params.ExpectedHops()
	return &res
}

// Execute starts p.NumRings chain masters reporting to one supervisor and
// waits until the whole system is idle.
func Execute(ctx context.Context, rt *core.Runtime, p Params, sink bench.Sink) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	r := &run{params: p, task: p.task(), sink: sink}
	r.res.Left = p.Messages()
	rt.Send(rt.Spawn(&launcher{run: r}), boot{})

	if err := rt.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "mixed")
	}
	res := r.result()
	if res.Transitions == 0 {
		return nil, errors.Errorf("mixed: runtime idle with %d completions outstanding", res.Left)
	}
	return res, nil
}

// Workload adapts Execute to bench.Workload.
type Workload struct {
	Task Task
}

// New returns the workload factorizing DefaultTask.
func New() *Workload {
	return &Workload{Task: DefaultTask}
}

// Name implements bench.Workload.
func (w *Workload) Name() string { return Name }

// Fields implements bench.Workload.
func (w *Workload) Fields() []string {
	return []string{"num_rings", "ring_size", "initial_token", "repetitions"}
}

// Defaults implements bench.Workload.
func (w *Workload) Defaults() []int64 { return []int64{20, 50, 10000, 5} }

// Run implements bench.Workload.
func (w *Workload) Run(ctx context.Context, rt *core.Runtime, args []int64, sink bench.Sink) (bench.Result, error) {
	if err := bench.CheckArity(w, args); err != nil {
		return nil, err
	}
	res, err := Execute(ctx, rt, Params{
		NumRings:     args[0],
		RingSize:     args[1],
		InitialToken: args[2],
		Repetitions:  args[3],
		Task:         w.Task,
	}, sink)
	if err != nil {
		return nil, err
	}
	return res, nil
}
