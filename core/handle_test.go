package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle(t *testing.T) {
	var zero Handle
	assert.False(t, zero.IsValid())
	assert.Equal(t, ":invalid", zero.String())

	var alloc handleAllocator
	h1, h2 := alloc.next(), alloc.next()
	assert.True(t, h1.IsValid())
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, ":00000001", h1.String())

	copied := h1
	assert.True(t, copied == h1)
}

func TestRegistry(t *testing.T) {
	var alloc handleAllocator
	var reg registry

	c := newCell(alloc.next(), BehaviorFunc(func(*Context, Message) error { return nil }))
	reg.register(c)
	require.Equal(t, 1, reg.len())

	found, ok := reg.lookup(c.handle)
	require.True(t, ok)
	assert.Same(t, c, found)
	assert.Equal(t, "BehaviorFunc", found.kind)

	assert.True(t, reg.release(c.handle))
	assert.False(t, reg.release(c.handle))
	assert.Equal(t, 0, reg.len())

	_, ok = reg.lookup(c.handle)
	assert.False(t, ok)
}

func TestMailbox(t *testing.T) {
	m := newMailbox()
	for i := 0; i < 5; i++ {
		require.True(t, m.push(envelope{message: ping{seq: i}}))
	}
	assert.Equal(t, 5, m.len())

	for i := 0; i < 3; i++ {
		env, ok := m.pop()
		require.True(t, ok)
		assert.Equal(t, ping{seq: i}, env.message)
	}

	assert.Equal(t, 2, m.close())
	assert.Equal(t, 0, m.close())
	assert.False(t, m.push(envelope{message: ping{}}))

	_, ok := m.pop()
	assert.False(t, ok)
}
