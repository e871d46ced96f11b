// Package creation implements the fan-out/fan-in benchmark: a binary tree of
// actors is spawned recursively and the subtree sizes are aggregated back to
// the root, which checks that the total equals 2^depth.
package creation

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/najoast/actorbench/bench"
	"github.com/najoast/actorbench/core"
)

// Name identifies the workload.
const Name = "actor_creation"

// MaxDepth keeps 2^depth within an int64.
const MaxDepth = 62

// Params configure one run.
type Params struct {
	Depth int

	// RetainNodes keeps every node alive after it reported to its parent.
	RetainNodes bool
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.Depth < 1 || p.Depth > MaxDepth {
		return errors.Errorf("depth must be in [1, %d], got %d", MaxDepth, p.Depth)
	}
	return nil
}

// Expected is the total the root must find.
func (p Params) Expected() int64 {
	return int64(1) << uint(p.Depth)
}

// Result of a fan-out/fan-in run.
type Result struct {
	Depth     int
	Expected  int64
	Found     int64
	Bounces   int
	Validated bool
}

// OK implements bench.Result.
func (r *Result) OK() bool {
	return r.Validated && r.Found == r.Expected
}

// Fields implements bench.Result.
func (r *Result) Fields() logrus.Fields {
	return logrus.Fields{
		"depth":    r.Depth,
		"expected": r.Expected,
		"found":    r.Found,
		"bounces":  r.Bounces,
	}
}

// run is the state shared by all nodes of one tree.
type run struct {
	params Params
	sink   bench.Sink
	root   core.Handle

	// reach counts completions of the nodes whose parent is the root,
	// including the root itself.
	reach int32

	mu  sync.Mutex
	res *Result
}

func (r *run) finish(res *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.res = res
}

func (r *run) result() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.res
}

// Execute spawns the tree on rt and waits for the root to validate.
func Execute(ctx context.Context, rt *core.Runtime, p Params, sink bench.Sink) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	r := &run{params: p, sink: sink}
	r.root = rt.Spawn(&node{run: r})
	rt.Send(r.root, boot{depth: p.Depth})

	if err := rt.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "fan-out")
	}
	res := r.result()
	if res == nil {
		return nil, errors.New("fan-out: runtime idle before the root validated")
	}
	return res, nil
}

// Workload adapts Execute to bench.Workload.
type Workload struct {
	RetainNodes bool
}

// New returns the workload with default options.
func New() *Workload {
	return &Workload{}
}

// Name implements bench.Workload.
func (w *Workload) Name() string { return Name }

// Fields implements bench.Workload.
func (w *Workload) Fields() []string { return []string{"depth"} }

// Defaults implements bench.Workload.
func (w *Workload) Defaults() []int64 { return []int64{20} }

// Run implements bench.Workload.
func (w *Workload) Run(ctx context.Context, rt *core.Runtime, args []int64, sink bench.Sink) (bench.Result, error) {
	if err := bench.CheckArity(w, args); err != nil {
		return nil, err
	}
	res, err := Execute(ctx, rt, Params{Depth: int(args[0]), RetainNodes: w.RetainNodes}, sink)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func mismatch(expected, found int64) string {
	return fmt.Sprintf("expected: %d found: %d", expected, found)
}
