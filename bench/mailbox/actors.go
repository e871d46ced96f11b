package mailbox

import (
	"github.com/najoast/actorbench/core"
)

type boot struct {
	senders, messages int64
}

func (boot) Selector() string { return "boot" }

type start struct {
	receiver core.Handle
	count    int64
}

func (start) Selector() string { return "run" }

type msg struct{}

func (msg) Selector() string { return "msg" }

// launcher creates the receiver and the senders, then leaves.
type launcher struct {
	run *run
}

func (l *launcher) Receive(ctx *core.Context, m core.Message) error {
	switch m := m.(type) {
	case boot:
		testee := ctx.Spawn(&receiver{run: l.run, max: m.senders * m.messages})
		for i := int64(0); i < m.senders; i++ {
			ctx.Send(ctx.Spawn(&sender{}), start{receiver: testee, count: m.messages})
		}
		ctx.Destroy("launched")
		return nil
	default:
		return core.Unexpected(ctx, m)
	}
}

type sender struct{}

func (s *sender) Receive(ctx *core.Context, m core.Message) error {
	switch m := m.(type) {
	case start:
		for i := int64(0); i < m.count; i++ {
			ctx.Send(m.receiver, msg{})
		}
		ctx.Destroy("flooded")
		return nil
	default:
		return core.Unexpected(ctx, m)
	}
}

type receiver struct {
	run   *run
	max   int64
	value int64
}

func (r *receiver) Receive(ctx *core.Context, m core.Message) error {
	switch m.(type) {
	case msg:
		r.value++
		if r.value == r.max {
			r.run.terminal(r.value)
			ctx.Destroy("received all")
		}
		return nil
	default:
		return core.Unexpected(ctx, m)
	}
}
