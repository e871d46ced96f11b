package creation

import (
	"sync/atomic"

	"github.com/najoast/actorbench/core"
)

type boot struct {
	depth int
}

func (boot) Selector() string { return "boot" }

type spread struct {
	parent core.Handle
	depth  int
}

func (spread) Selector() string { return "spread" }

type result struct {
	value int64
}

func (result) Selector() string { return "result" }

// node is one actor of the tree. The root is its own parent.
type node struct {
	run    *run
	parent core.Handle
	r1, r2 int64

	bounces int
}

func (n *node) Receive(ctx *core.Context, msg core.Message) error {
	switch msg := msg.(type) {
	case boot:
		ctx.Send(ctx.Self(), spread{parent: ctx.Self(), depth: msg.depth})
	case spread:
		n.spread(ctx, msg)
	case result:
		n.result(ctx, msg)
	default:
		return core.Unexpected(ctx, msg)
	}
	return nil
}

func (n *node) isRoot(ctx *core.Context) bool {
	return ctx.Self() == n.run.root
}

func (n *node) spread(ctx *core.Context, msg spread) {
	n.parent = msg.parent
	if msg.depth == 1 {
		if n.isRoot(ctx) {
			// A single-node tree has nothing to wait for.
			n.validate(ctx)
			return
		}
		ctx.Send(n.parent, result{value: 1})
		n.done(ctx, "leaf reported")
		return
	}
	for i := 0; i < 2; i++ {
		child := ctx.Spawn(&node{run: n.run})
		ctx.Send(child, spread{parent: ctx.Self(), depth: msg.depth - 1})
	}
}

func (n *node) result(ctx *core.Context, msg result) {
	if n.r1 == 0 {
		n.r1 = msg.value
	} else if n.r2 == 0 {
		n.r2 = msg.value
	}
	if n.r1 == 0 || n.r2 == 0 {
		return
	}

	if n.parent != n.run.root {
		ctx.Send(n.parent, result{value: 1 + n.r1 + n.r2})
		n.done(ctx, "subtree reported")
		return
	}

	// The root and its two children share the reach counter: the first three
	// completions bounce the combined value to the root, the fourth validates.
	if atomic.AddInt32(&n.run.reach, 1)-1 <= 2 {
		if n.isRoot(ctx) {
			n.bounces++
		}
		ctx.Send(n.parent, result{value: 1 + n.r1 + n.r2})
		if !n.isRoot(ctx) {
			n.done(ctx, "subtree reported")
		}
		return
	}
	n.validate(ctx)
}

func (n *node) validate(ctx *core.Context) {
	p := n.run.params
	res := &Result{
		Depth:     p.Depth,
		Expected:  p.Expected(),
		Found:     2 + n.r1 + n.r2,
		Bounces:   n.bounces,
		Validated: true,
	}
	if res.Found != res.Expected {
		n.run.sink.Emit(mismatch(res.Expected, res.Found))
	}
	n.run.finish(res)
	n.done(ctx, "validated")
}

func (n *node) done(ctx *core.Context, reason string) {
	if !n.run.params.RetainNodes {
		ctx.Destroy(reason)
	}
}
