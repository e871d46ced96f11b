package core

import (
	"github.com/sirupsen/logrus"
)

// Context holds contextual information for the actor processing the current
// message. It is only valid for the duration of the Receive call.
type Context struct {
	runtime *Runtime
	cell    *cell
	sender  Handle
}

// Self returns the handle of the actor processing the message.
func (c *Context) Self() Handle {
	return c.cell.handle
}

// Sender returns the handle of the sending actor, or the zero Handle when
// the message was sent from outside the runtime.
func (c *Context) Sender() Handle {
	return c.sender
}

// Spawn creates a new actor running b and returns its handle immediately.
func (c *Context) Spawn(b Behavior) Handle {
	return c.runtime.Spawn(b)
}

// Send enqueues msg on the target's mailbox (fire-and-forget).
func (c *Context) Send(to Handle, msg Message) {
	c.runtime.send(c.cell.handle, to, msg)
}

// Destroy marks the current actor dead. Queued and future messages to it are
// dropped. Calling Destroy more than once has no further effect.
func (c *Context) Destroy(reason string) {
	c.runtime.destroy(c.cell, reason)
}

// Log returns a logger labelled with the current actor.
func (c *Context) Log() *logrus.Entry {
	return c.runtime.log.WithFields(logrus.Fields{
		"actor": c.cell.handle.String(),
		"kind":  c.cell.kind,
	})
}

// Debug logs args for the current actor if the debug level is enabled.
func (c *Context) Debug(args ...interface{}) {
	if c.runtime.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		c.Log().Debug(args...)
	}
}
