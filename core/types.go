package core

import (
	"fmt"
	"reflect"
	"strings"
)

// Message is the unit of communication between actors. Selector names the
// message at the protocol boundary, e.g. "spread" or "token".
type Message interface {
	Selector() string
}

// Behavior defines how an actor kind reacts to its messages. Receive is
// never called concurrently for the same actor.
type Behavior interface {
	Receive(ctx *Context, msg Message) error
}

// BehaviorFunc adapts a function to the Behavior interface.
type BehaviorFunc func(ctx *Context, msg Message) error

// Receive implements Behavior.
func (f BehaviorFunc) Receive(ctx *Context, msg Message) error {
	return f(ctx, msg)
}

// UnexpectedMessageError is returned by behaviors that have no handler for a
// message. It is fatal to the run.
type UnexpectedMessageError struct {
	Kind     string
	Actor    Handle
	Selector string
}

func (e UnexpectedMessageError) Error() string {
	return fmt.Sprintf("actor %s (%s) has no handler for %q", e.Actor, e.Kind, e.Selector)
}

// Unexpected builds the protocol error for msg arriving at the context's actor.
func Unexpected(ctx *Context, msg Message) error {
	return UnexpectedMessageError{Kind: ctx.cell.kind, Actor: ctx.Self(), Selector: msg.Selector()}
}

// Stats is a snapshot of runtime counters.
type Stats struct {
	Spawned   uint64
	Destroyed uint64
	Alive     int
	Delivered uint64
	Dropped   uint64
	InFlight  int64
}

func kindOf(b Behavior) string {
	name := reflect.TypeOf(b).String()
	name = strings.TrimPrefix(name, "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
