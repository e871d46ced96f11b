package creation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/najoast/actorbench/bench"
	"github.com/najoast/actorbench/core"
)

func newRuntime(t *testing.T) *core.Runtime {
	logger, _ := test.NewNullLogger()
	rt := core.New(core.Options{ID: t.Name(), Workers: 4, Logger: logrus.NewEntry(logger)})
	t.Cleanup(func() {
		require.NoError(t, rt.Shutdown(context.Background()))
	})
	return rt
}

func execute(t *testing.T, rt *core.Runtime, p Params, sink bench.Sink) *Result {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := Execute(ctx, rt, p, sink)
	require.NoError(t, err)
	return res
}

func TestExecute(t *testing.T) {
	for depth := 1; depth <= 12; depth++ {
		depth := depth
		t.Run(fmt.Sprintf("depth=%d", depth), func(t *testing.T) {
			rt := newRuntime(t)
			lines := &bench.Lines{}

			res := execute(t, rt, Params{Depth: depth}, lines)
			assert.True(t, res.OK())
			assert.Equal(t, int64(1)<<uint(depth), res.Found)
			assert.Empty(t, lines.All())

			stats := rt.Stats()
			assert.Equal(t, uint64(1)<<uint(depth)-1, stats.Spawned)
			assert.Equal(t, 0, stats.Alive)
			assert.Equal(t, uint64(0), stats.Dropped)
		})
	}
}

func TestExecute_DepthThree(t *testing.T) {
	res := execute(t, newRuntime(t), Params{Depth: 3}, &bench.Lines{})
	assert.Equal(t, &Result{Depth: 3, Expected: 8, Found: 8, Bounces: 1, Validated: true}, res)
}

func TestExecute_RootBounces(t *testing.T) {
	cases := map[int]int{1: 0, 2: 3, 3: 1, 8: 1}
	for depth, bounces := range cases {
		res := execute(t, newRuntime(t), Params{Depth: depth}, &bench.Lines{})
		assert.Equal(t, bounces, res.Bounces, "depth %d", depth)
	}
}

func TestExecute_RetainNodes(t *testing.T) {
	rt := newRuntime(t)
	res := execute(t, rt, Params{Depth: 5, RetainNodes: true}, &bench.Lines{})
	require.True(t, res.OK())

	stats := rt.Stats()
	assert.Equal(t, 31, stats.Alive)
	assert.Equal(t, uint64(0), stats.Destroyed)
}

func TestExecute_IsolatedRuns(t *testing.T) {
	rt := newRuntime(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results := make(chan *Result, 4)
	for i := 0; i < 4; i++ {
		go func(depth int) {
			res, err := Execute(ctx, rt, Params{Depth: depth}, &bench.Lines{})
			assert.NoError(t, err)
			results <- res
		}(6 + i)
	}
	for i := 0; i < 4; i++ {
		res := <-results
		require.NotNil(t, res)
		assert.True(t, res.OK(), "depth %d found %d", res.Depth, res.Found)
	}
}

func TestParams_Validate(t *testing.T) {
	assert.NoError(t, Params{Depth: 1}.Validate())
	assert.NoError(t, Params{Depth: MaxDepth}.Validate())
	assert.Error(t, Params{Depth: 0}.Validate())
	assert.Error(t, Params{Depth: MaxDepth + 1}.Validate())
}

type stray struct{}

func (stray) Selector() string { return "stray" }

func TestNode_UnexpectedMessage(t *testing.T) {
	rt := newRuntime(t)
	h := rt.Spawn(&node{run: &run{sink: &bench.Lines{}}})
	rt.Send(h, stray{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := rt.Wait(ctx)

	var unexpected core.UnexpectedMessageError
	require.True(t, errors.As(err, &unexpected))
	assert.Equal(t, "node", unexpected.Kind)
	assert.Equal(t, "stray", unexpected.Selector)
}

func TestWorkload(t *testing.T) {
	w := New()
	assert.Equal(t, Name, w.Name())
	assert.Len(t, w.Defaults(), len(w.Fields()))

	_, err := w.Run(context.Background(), newRuntime(t), []int64{3, 4}, &bench.Lines{})
	assert.True(t, errors.Is(err, bench.ErrArity))

	res, err := w.Run(context.Background(), newRuntime(t), []int64{4}, &bench.Lines{})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, int64(16), res.Fields()["found"])
}

func TestMismatch(t *testing.T) {
	assert.Equal(t, "expected: 8 found: 6", mismatch(8, 6))
}
